package domain

import (
	"strings"
	"time"
	"unicode"
)

// StockingPolicy — правило депонента для товара с нулевым остатком.
type StockingPolicy string

const (
	PolicyNormal     StockingPolicy = "normal"
	PolicySmallBatch StockingPolicy = "smallBatch"
)

// Depositor — поставщик товаров, идентифицируемый триграммой.
type Depositor struct {
	Trigramme string
	Name      string
	Email     string
	Policy    StockingPolicy
}

// DepositorSnapshot — неизменяемый снимок реестра депонентов.
type DepositorSnapshot struct {
	byTrigramme map[string]Depositor
	LoadedAt    time.Time
}

func NewDepositorSnapshot(deps []Depositor, loadedAt time.Time) *DepositorSnapshot {
	m := make(map[string]Depositor, len(deps))
	for _, d := range deps {
		m[strings.ToUpper(d.Trigramme)] = d
	}
	return &DepositorSnapshot{byTrigramme: m, LoadedAt: loadedAt}
}

// Lookup ищет депонента по триграмме.
func (s *DepositorSnapshot) Lookup(trigramme string) (Depositor, bool) {
	if s == nil || trigramme == "" {
		return Depositor{}, false
	}
	d, ok := s.byTrigramme[strings.ToUpper(trigramme)]
	return d, ok
}

// PolicyFor возвращает политику депонента для артикула. По умолчанию — normal.
func (s *DepositorSnapshot) PolicyFor(sku string) StockingPolicy {
	d, ok := s.Lookup(TrigrammeFromSKU(sku))
	if !ok || d.Policy == "" {
		return PolicyNormal
	}
	return d.Policy
}

// All возвращает всех депонентов снимка.
func (s *DepositorSnapshot) All() []Depositor {
	if s == nil {
		return nil
	}
	out := make([]Depositor, 0, len(s.byTrigramme))
	for _, d := range s.byTrigramme {
		out = append(out, d)
	}
	return out
}

// TrigrammeFromSKU возвращает ведущую буквенную часть артикула в верхнем регистре.
func TrigrammeFromSKU(sku string) string {
	sku = strings.TrimSpace(sku)
	end := 0
	for end < len(sku) && end < 4 {
		r := rune(sku[end])
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			break
		}
		end++
	}
	if end < 2 {
		return ""
	}
	return strings.ToUpper(sku[:end])
}
