// Package spreadsheet разбирает строки выгрузок продаж: цены в локальном формате,
// даты в разных кодировках и артикулы в свободном тексте.
package spreadsheet

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/shopspring/decimal"
)

// maxPriceMinor — 1 млн евро в центах.
const maxPriceMinor = 100_000_000

// ParsePrice переводит цену из ячейки в центы.
// Поддерживаются числа и строки вида "165,00 €", "1 234,50", "165.00", "€12".
func ParsePrice(v any) (int64, error) {
	var d decimal.Decimal

	switch val := v.(type) {
	case nil:
		return 0, e.Wrap("price is empty", e.ErrInvalidPrice)
	case json.Number:
		parsed, err := decimal.NewFromString(val.String())
		if err != nil {
			return 0, e.Wrap(val.String(), e.ErrInvalidPrice)
		}
		d = parsed
	case float64:
		d = decimal.NewFromFloat(val)
	case int:
		d = decimal.NewFromInt(int64(val))
	case int64:
		d = decimal.NewFromInt(val)
	case string:
		parsed, err := parseLocalePrice(val)
		if err != nil {
			return 0, err
		}
		d = parsed
	default:
		return 0, e.Wrap(fmt.Sprintf("%T", v), e.ErrInvalidPrice)
	}

	if d.IsNegative() {
		return 0, e.Wrap(d.String(), e.ErrInvalidPrice)
	}

	cents := d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	if cents > maxPriceMinor {
		return 0, e.Wrap(d.String(), e.ErrInvalidPrice)
	}

	return cents, nil
}

func parseLocalePrice(s string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsDigit(r), r == ',', r == '.', r == '-':
			return r
		default:
			// символ валюты, пробелы, неразрывные пробелы
			return -1
		}
	}, s)

	if cleaned == "" {
		return decimal.Zero, e.Wrap(fmt.Sprintf("%q", s), e.ErrInvalidPrice)
	}

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		// десятичный разделитель — тот, что стоит правее
		if lastComma > lastDot {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(cleaned, ",") > 1 {
			return decimal.Zero, e.Wrap(fmt.Sprintf("%q", s), e.ErrInvalidPrice)
		}
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, e.Wrap(fmt.Sprintf("%q", s), e.ErrInvalidPrice)
	}

	return d, nil
}
