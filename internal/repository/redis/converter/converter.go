// Package converter переводит сущности domain в JSON-модели Redis и обратно.
package converter

import "github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"

func ToArrDepositorRedisModel(deps []domain.Depositor) []DepositorRedisModel {
	out := make([]DepositorRedisModel, 0, len(deps))
	for _, d := range deps {
		out = append(out, DepositorRedisModel{
			Trigramme: d.Trigramme,
			Name:      d.Name,
			Email:     d.Email,
			Policy:    string(d.Policy),
		})
	}
	return out
}

func ToArrDepositor(models []DepositorRedisModel) []domain.Depositor {
	out := make([]domain.Depositor, 0, len(models))
	for _, m := range models {
		out = append(out, domain.Depositor{
			Trigramme: m.Trigramme,
			Name:      m.Name,
			Email:     m.Email,
			Policy:    domain.StockingPolicy(m.Policy),
		})
	}
	return out
}

func ToCheckoutSessionRedisModel(s *domain.CheckoutSession) *CheckoutSessionRedisModel {
	return &CheckoutSessionRedisModel{
		ID:           s.ID,
		ProduitID:    s.ProduitID,
		BuyerEmail:   s.Buyer.Email,
		BuyerName:    s.Buyer.Name,
		BuyerPhone:   s.Buyer.Phone,
		BuyerAddress: s.Buyer.Address,
		DeliveryMode: string(s.DeliveryMode),
		BasePrice:    s.BasePrice,
		Discount:     s.Discount,
		DeliveryFee:  s.DeliveryFee,
		FinalPrice:   s.FinalPrice,
		CreatedAt:    s.CreatedAt,
	}
}

func ToCheckoutSession(m *CheckoutSessionRedisModel) *domain.CheckoutSession {
	return &domain.CheckoutSession{
		ID:        m.ID,
		ProduitID: m.ProduitID,
		Buyer: domain.BuyerInfo{
			Email:   m.BuyerEmail,
			Name:    m.BuyerName,
			Phone:   m.BuyerPhone,
			Address: m.BuyerAddress,
		},
		DeliveryMode: domain.DeliveryMode(m.DeliveryMode),
		BasePrice:    m.BasePrice,
		Discount:     m.Discount,
		DeliveryFee:  m.DeliveryFee,
		FinalPrice:   m.FinalPrice,
		CreatedAt:    m.CreatedAt,
	}
}
