// Package converter переводит сущности domain в модели PostgreSQL и обратно.
package converter

import "github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"

type ProductConverter struct{}

func (ProductConverter) ToModel(p *domain.Product) *ProductModel {
	return &ProductModel{
		ID:                   p.ID,
		SKU:                  p.SKU,
		Name:                 p.Name,
		Category:             p.Category,
		Brand:                p.Brand,
		Price:                p.Price,
		Quantity:             p.Quantity,
		Sold:                 p.Sold,
		Status:               string(p.Status),
		PosItemID:            p.PosItemID,
		PosVariationID:       p.PosVariationID,
		MarketplaceListingID: p.MarketplaceListingID,
		RecoveryStatus:       p.RecoveryStatus,
		SaleDate:             p.SaleDate,
		RealizedPrice:        p.RealizedPrice,
		Version:              p.Version,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

func (ProductConverter) ToEntity(m *ProductModel) *domain.Product {
	return &domain.Product{
		ID:                   m.ID,
		SKU:                  m.SKU,
		Name:                 m.Name,
		Category:             m.Category,
		Brand:                m.Brand,
		Price:                m.Price,
		Quantity:             m.Quantity,
		Sold:                 m.Sold,
		Status:               domain.ProductStatus(m.Status),
		PosItemID:            m.PosItemID,
		PosVariationID:       m.PosVariationID,
		MarketplaceListingID: m.MarketplaceListingID,
		RecoveryStatus:       m.RecoveryStatus,
		SaleDate:             m.SaleDate,
		RealizedPrice:        m.RealizedPrice,
		Version:              m.Version,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

type SaleConverter struct{}

func (SaleConverter) ToModel(s *domain.Sale) *SaleModel {
	return &SaleModel{
		ID:                 s.ID,
		ProduitID:          s.ProduitID,
		SKU:                s.SKU,
		Name:               s.Name,
		Category:           s.Category,
		Brand:              s.Brand,
		DepositorTrigramme: s.DepositorTrigramme,
		DepositorName:      s.DepositorName,
		Origin:             string(s.Origin),
		SaleDate:           s.SaleDate,
		RealizedPrice:      s.RealizedPrice,
		Attribue:           s.Attribue,
		AttribueAt:         s.AttribueAt,
		ExternalRef:        s.ExternalRef,
		CreatedAt:          s.CreatedAt,
	}
}

func (SaleConverter) ToEntity(m *SaleModel) *domain.Sale {
	return &domain.Sale{
		ID:                 m.ID,
		ProduitID:          m.ProduitID,
		SKU:                m.SKU,
		Name:               m.Name,
		Category:           m.Category,
		Brand:              m.Brand,
		DepositorTrigramme: m.DepositorTrigramme,
		DepositorName:      m.DepositorName,
		Origin:             domain.SaleOrigin(m.Origin),
		SaleDate:           m.SaleDate,
		RealizedPrice:      m.RealizedPrice,
		Attribue:           m.Attribue,
		AttribueAt:         m.AttribueAt,
		ExternalRef:        m.ExternalRef,
		CreatedAt:          m.CreatedAt,
	}
}

type OrderConverter struct{}

func (OrderConverter) ToModel(o *domain.Order) *OrderModel {
	return &OrderModel{
		ID:           o.ID,
		BuyerEmail:   o.BuyerEmail,
		ProduitID:    o.ProduitID,
		UnitPrice:    o.UnitPrice,
		Discount:     o.Discount,
		DeliveryFee:  o.DeliveryFee,
		DeliveryMode: string(o.DeliveryMode),
		FinalPrice:   o.FinalPrice,
		PaymentRef:   o.PaymentRef,
		SaleDate:     o.SaleDate,
		CreatedAt:    o.CreatedAt,
	}
}

func (OrderConverter) ToEntity(m *OrderModel) *domain.Order {
	return &domain.Order{
		ID:           m.ID,
		BuyerEmail:   m.BuyerEmail,
		ProduitID:    m.ProduitID,
		UnitPrice:    m.UnitPrice,
		Discount:     m.Discount,
		DeliveryFee:  m.DeliveryFee,
		DeliveryMode: domain.DeliveryMode(m.DeliveryMode),
		FinalPrice:   m.FinalPrice,
		PaymentRef:   m.PaymentRef,
		SaleDate:     m.SaleDate,
		CreatedAt:    m.CreatedAt,
	}
}

func DepositorToEntity(m *DepositorModel) domain.Depositor {
	return domain.Depositor{
		Trigramme: m.Trigramme,
		Name:      m.Name,
		Email:     m.Email,
		Policy:    domain.StockingPolicy(m.Policy),
	}
}

// OutboxEventConverter преобразует события outbox между domain и моделью PostgreSQL.
type OutboxEventConverter struct{}

func (OutboxEventConverter) ToModel(ev *domain.OutboxEvent) *OutboxEventModel {
	return &OutboxEventModel{
		ID:          ev.ID,
		EventID:     ev.EventID,
		EventType:   string(ev.EventType),
		AggregateID: ev.AggregateID,
		Payload:     ev.Payload,
		Status:      string(ev.Status),
		CreatedAt:   ev.CreatedAt,
		ProcessedAt: ev.ProcessedAt,
	}
}

func (OutboxEventConverter) ToEntity(m *OutboxEventModel) *domain.OutboxEvent {
	return &domain.OutboxEvent{
		ID:          m.ID,
		EventID:     m.EventID,
		EventType:   domain.OutboxEventType(m.EventType),
		AggregateID: m.AggregateID,
		Payload:     m.Payload,
		Status:      domain.OutboxStatus(m.Status),
		CreatedAt:   m.CreatedAt,
		ProcessedAt: m.ProcessedAt,
	}
}

func (c OutboxEventConverter) ToArrEntity(models []*OutboxEventModel) []*domain.OutboxEvent {
	out := make([]*domain.OutboxEvent, 0, len(models))
	for _, m := range models {
		out = append(out, c.ToEntity(m))
	}
	return out
}
