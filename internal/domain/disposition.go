package domain

import "time"

// ApplySale списывает проданные единицы и определяет новый жизненный статус товара.
// Возвращает true, если товар нужно снять с продажи в остальных каналах.
func (p *Product) ApplySale(qtySold int, unitPrice int64, policy StockingPolicy, at time.Time) bool {
	newQty := p.Quantity - qtySold
	if newQty < 0 {
		newQty = 0
	}
	p.Quantity = newQty

	if newQty > 0 {
		return false
	}

	price := unitPrice
	saleDate := at
	p.SaleDate = &saleDate
	p.RealizedPrice = &price

	if policy == PolicySmallBatch {
		p.Status = StatusOutOfStock
		p.Sold = false
		return false
	}

	p.Sold = true
	return true
}
