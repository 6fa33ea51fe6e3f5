package domain

import "time"

// ProductStatus — жизненный статус товара.
type ProductStatus string

const (
	StatusActive     ProductStatus = "active"
	StatusOutOfStock ProductStatus = "outOfStock"
	StatusReturned   ProductStatus = "returned"
	StatusDeleted    ProductStatus = "deleted"
)

// Product описывает товар, который продаётся сразу в нескольких каналах.
type Product struct {
	ID       string
	SKU      *string
	Name     string
	Category string
	Brand    string
	Price    int64 // Цена хранится в центах
	Quantity int
	Sold     bool
	Status   ProductStatus

	PosItemID            *string
	PosVariationID       *string
	MarketplaceListingID *string

	RecoveryStatus string
	SaleDate       *time.Time
	RealizedPrice  *int64

	Version   int64
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// SKUValue возвращает артикул или пустую строку.
func (p *Product) SKUValue() string {
	if p.SKU == nil {
		return ""
	}
	return *p.SKU
}

// Trigramme возвращает код депонента, закодированный в префиксе артикула.
func (p *Product) Trigramme() string {
	return TrigrammeFromSKU(p.SKUValue())
}

// ListingID возвращает идентификатор объявления товара в канале.
func (p *Product) ListingID(ch Channel) (string, bool) {
	var id *string
	switch ch {
	case ChannelPOS:
		id = p.PosItemID
		if id == nil {
			id = p.PosVariationID
		}
	case ChannelMarketplace:
		id = p.MarketplaceListingID
	}

	if id == nil || *id == "" {
		return "", false
	}
	return *id, true
}

// IsAvailable сообщает, можно ли ещё продать товар.
func (p *Product) IsAvailable() bool {
	return !p.Sold && p.Quantity > 0 && (p.Status == StatusActive || p.Status == "")
}

// Restock возвращает одну единицу на склад и снимает отметку о продаже.
func (p *Product) Restock() {
	p.Quantity++
	p.Sold = false
	p.Status = StatusActive
	p.SaleDate = nil
	p.RealizedPrice = nil
}

// Clone возвращает копию товара, чтобы повторная попытка записи начиналась с чистого состояния.
func (p *Product) Clone() *Product {
	cp := *p
	return &cp
}
