package converter

import "time"

type DepositorRedisModel struct {
	Trigramme string `json:"trigramme"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Policy    string `json:"policy"`
}

type CheckoutSessionRedisModel struct {
	ID           string    `json:"id"`
	ProduitID    string    `json:"produitId"`
	BuyerEmail   string    `json:"buyerEmail"`
	BuyerName    string    `json:"buyerName,omitempty"`
	BuyerPhone   string    `json:"buyerPhone,omitempty"`
	BuyerAddress string    `json:"buyerAddress,omitempty"`
	DeliveryMode string    `json:"deliveryMode"`
	BasePrice    int64     `json:"basePrice"`
	Discount     int64     `json:"discount"`
	DeliveryFee  int64     `json:"deliveryFee"`
	FinalPrice   int64     `json:"finalPrice"`
	CreatedAt    time.Time `json:"createdAt"`
}
