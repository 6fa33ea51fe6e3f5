package domain

import "time"

// Sale — неизменяемая запись о продаже одной единицы товара.
type Sale struct {
	ID                 string
	ProduitID          *string
	SKU                string
	Name               string
	Category           string
	Brand              string
	DepositorTrigramme string
	DepositorName      string
	Origin             SaleOrigin
	SaleDate           time.Time
	RealizedPrice      int64 // за единицу, в центах
	Attribue           bool
	AttribueAt         *time.Time
	ExternalRef        *string
	CreatedAt          time.Time
}

// NewUnitSale создаёт запись о продаже одной единицы товара.
// Если product == nil, продажа остаётся непривязанной.
func NewUnitSale(id string, product *Product, dep *Depositor, origin SaleOrigin, saleDate time.Time, unitPrice int64, now time.Time) *Sale {
	s := &Sale{
		ID:            id,
		Origin:        origin,
		SaleDate:      saleDate,
		RealizedPrice: unitPrice,
		CreatedAt:     now,
	}
	if product != nil {
		s.AttributeTo(product, dep, now)
	}
	return s
}

// AttributeTo привязывает продажу к товару и копирует описательные поля,
// чтобы отчёты не зависели от последующих изменений товара.
func (s *Sale) AttributeTo(p *Product, dep *Depositor, now time.Time) {
	id := p.ID
	s.ProduitID = &id
	s.SKU = p.SKUValue()
	s.Name = p.Name
	s.Category = p.Category
	s.Brand = p.Brand
	s.DepositorTrigramme = p.Trigramme()
	if dep != nil {
		s.DepositorName = dep.Name
	}
	s.Attribue = true
	s.AttribueAt = &now
}

// DayKey — ключ дня продажи в заданной временной зоне.
func (s *Sale) DayKey(loc *time.Location) string {
	return s.SaleDate.In(loc).Format("2006-01-02")
}
