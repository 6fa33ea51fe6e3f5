package converter

import "time"

// ProductModel представляет запись таблицы products в PostgreSQL.
type ProductModel struct {
	ID                   string     `db:"id"`
	SKU                  *string    `db:"sku"`
	Name                 string     `db:"name"`
	Category             string     `db:"category"`
	Brand                string     `db:"brand"`
	Price                int64      `db:"price"`
	Quantity             int        `db:"quantity"`
	Sold                 bool       `db:"sold"`
	Status               string     `db:"status"`
	PosItemID            *string    `db:"pos_item_id"`
	PosVariationID       *string    `db:"pos_variation_id"`
	MarketplaceListingID *string    `db:"marketplace_listing_id"`
	RecoveryStatus       string     `db:"recovery_status"`
	SaleDate             *time.Time `db:"sale_date"`
	RealizedPrice        *int64     `db:"realized_price"`
	Version              int64      `db:"version"`
	CreatedAt            time.Time  `db:"created_at"`
	UpdatedAt            *time.Time `db:"updated_at"`
}

// SaleModel представляет запись таблицы sales в PostgreSQL.
type SaleModel struct {
	ID                 string     `db:"id"`
	ProduitID          *string    `db:"produit_id"`
	SKU                string     `db:"sku"`
	Name               string     `db:"name"`
	Category           string     `db:"category"`
	Brand              string     `db:"brand"`
	DepositorTrigramme string     `db:"depositor_trigramme"`
	DepositorName      string     `db:"depositor_name"`
	Origin             string     `db:"origin"`
	SaleDate           time.Time  `db:"sale_date"`
	RealizedPrice      int64      `db:"realized_price"`
	Attribue           bool       `db:"attribue"`
	AttribueAt         *time.Time `db:"attribue_at"`
	ExternalRef        *string    `db:"external_ref"`
	CreatedAt          time.Time  `db:"created_at"`
}

type OrderModel struct {
	ID           string    `db:"id"`
	BuyerEmail   string    `db:"buyer_email"`
	ProduitID    string    `db:"produit_id"`
	UnitPrice    int64     `db:"unit_price"`
	Discount     int64     `db:"discount"`
	DeliveryFee  int64     `db:"delivery_fee"`
	DeliveryMode string    `db:"delivery_mode"`
	FinalPrice   int64     `db:"final_price"`
	PaymentRef   string    `db:"payment_ref"`
	SaleDate     time.Time `db:"sale_date"`
	CreatedAt    time.Time `db:"created_at"`
}

type DepositorModel struct {
	Trigramme string `db:"trigramme"`
	Name      string `db:"name"`
	Email     string `db:"email"`
	Policy    string `db:"policy"`
}

// OutboxEventModel представляет запись таблицы outbox_events в PostgreSQL.
type OutboxEventModel struct {
	ID          int64      `db:"id"`
	EventID     string     `db:"event_id"`
	EventType   string     `db:"event_type"`
	AggregateID string     `db:"aggregate_id"`
	Payload     []byte     `db:"payload"`
	Status      string     `db:"status"`
	CreatedAt   time.Time  `db:"created_at"`
	ProcessedAt *time.Time `db:"processed_at"`
}
