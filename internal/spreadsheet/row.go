package spreadsheet

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
)

// ErrZeroPrice — строка с нулевой ценой: не продажа, а служебная запись.
var ErrZeroPrice = errors.New("zero price")

const maxRowQuantity = domain.MaxLineQuantity

var (
	dateColumns  = []string{"date", "datevente", "date_vente", "saledate", "date de vente"}
	priceColumns = []string{"prix", "price", "prixvente", "prix_vente", "montant", "amount", "realizedprice"}
	skuColumns   = []string{"sku", "reference", "référence", "ref"}
	qtyColumns   = []string{"quantite", "quantité", "quantity", "qty", "qte"}
	textColumns  = []string{"description", "libelle", "libellé", "name", "nom", "article", "designation", "désignation"}
)

// Row — строка выгрузки, приведённая к каноническому виду.
type Row struct {
	Date         time.Time
	PriceMinor   int64 // итог по строке, в центах
	Quantity     int
	SKU          string
	SKUAmbiguous bool
	Label        string
}

// ParseRow разбирает сырую строку таблицы. Ключи колонок не чувствительны к регистру.
func ParseRow(raw map[string]any, loc *time.Location) (Row, error) {
	cols := normalizeKeys(raw)

	price, err := ParsePrice(pick(cols, priceColumns))
	if err != nil {
		return Row{}, err
	}
	if price == 0 {
		return Row{}, ErrZeroPrice
	}

	date, err := ParseDate(pick(cols, dateColumns), loc)
	if err != nil {
		return Row{}, err
	}

	qty, err := parseQuantity(pick(cols, qtyColumns))
	if err != nil {
		return Row{}, err
	}

	row := Row{
		Date:       date,
		PriceMinor: price,
		Quantity:   qty,
	}

	texts := make([]string, 0, len(textColumns))
	for _, c := range textColumns {
		if s, ok := cols[c].(string); ok && strings.TrimSpace(s) != "" {
			texts = append(texts, strings.TrimSpace(s))
		}
	}
	row.Label = strings.Join(texts, " · ")

	if s := stringValue(pick(cols, skuColumns)); s != "" {
		row.SKU = NormalizeSKU(s)
	} else {
		row.SKU, row.SKUAmbiguous = ExtractSKU(texts...)
	}

	return row, nil
}

func normalizeKeys(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}

func pick(cols map[string]any, names []string) any {
	for _, n := range names {
		if v, ok := cols[n]; ok && v != nil {
			if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
				continue
			}
			return v
		}
	}
	return nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	default:
		return ""
	}
}

func parseQuantity(v any) (int, error) {
	var (
		n   int64
		err error
	)

	switch val := v.(type) {
	case nil:
		return 1, nil
	case json.Number:
		n, err = val.Int64()
	case float64:
		n = int64(val)
		if float64(n) != val {
			err = fmt.Errorf("fractional quantity %v", val)
		}
	case string:
		if strings.TrimSpace(val) == "" {
			return 1, nil
		}
		n, err = strconv.ParseInt(strings.TrimSpace(val), 10, 64)
	default:
		err = fmt.Errorf("unexpected type %T", v)
	}

	if err != nil || n < 1 || n > maxRowQuantity {
		return 0, e.Wrap(fmt.Sprintf("quantity %v", v), e.ErrInvalidQuantity)
	}

	return int(n), nil
}
