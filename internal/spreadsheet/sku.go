package spreadsheet

import (
	"regexp"
	"strings"
)

var skuPattern = regexp.MustCompile(`[A-Za-z]{2,4}\d{1,4}`)

// ExtractSKU ищет артикул в свободном тексте.
// ambiguous = true, если найдено несколько разных кандидатов.
func ExtractSKU(texts ...string) (sku string, ambiguous bool) {
	seen := make(map[string]struct{})
	var first string

	for _, text := range texts {
		for _, m := range skuPattern.FindAllString(text, -1) {
			m = strings.ToUpper(m)
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			if first == "" {
				first = m
			}
		}
	}

	return first, len(seen) > 1
}

// NormalizeSKU приводит артикул к каноническому виду.
func NormalizeSKU(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
