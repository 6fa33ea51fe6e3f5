package domain

import "time"

// DeliveryMode — способ получения заказа на витрине.
type DeliveryMode string

const (
	DeliveryHome   DeliveryMode = "delivery"
	DeliveryPickup DeliveryMode = "pickup"
)

func (m DeliveryMode) Valid() bool {
	return m == DeliveryHome || m == DeliveryPickup
}

// Order — оплаченный заказ витрины.
type Order struct {
	ID           string
	BuyerEmail   string
	ProduitID    string
	UnitPrice    int64
	Discount     int64
	DeliveryFee  int64
	DeliveryMode DeliveryMode
	FinalPrice   int64
	PaymentRef   string
	SaleDate     time.Time
	CreatedAt    time.Time
}

// BuyerInfo — данные покупателя из формы оформления заказа.
type BuyerInfo struct {
	Email   string
	Name    string
	Phone   string
	Address string
}

// CheckoutSession хранит рассчитанные цены до подтверждения оплаты.
type CheckoutSession struct {
	ID           string
	ProduitID    string
	Buyer        BuyerInfo
	DeliveryMode DeliveryMode
	BasePrice    int64
	Discount     int64
	DeliveryFee  int64
	FinalPrice   int64
	CreatedAt    time.Time
}
