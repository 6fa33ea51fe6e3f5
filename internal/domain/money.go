package domain

import "github.com/shopspring/decimal"

// SplitUnitPrice делит итоговую сумму позиции на количество единиц с округлением до цента.
func SplitUnitPrice(total int64, qty int) int64 {
	if qty <= 1 {
		return total
	}
	return decimal.NewFromInt(total).
		Div(decimal.NewFromInt(int64(qty))).
		Round(0).
		IntPart()
}

// MinorToMajor переводит центы в десятичную сумму для ответа клиенту.
func MinorToMajor(v int64) decimal.Decimal {
	return decimal.New(v, -2)
}
