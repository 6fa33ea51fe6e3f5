package ingest

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/logger"
)

const (
	posOrderCreated   = "order.created"
	posOrderUpdated   = "order.updated"
	posStateCompleted = "COMPLETED"
)

type posMoney struct {
	Amount   *int64 `json:"amount"`
	Currency string `json:"currency"`
}

type posLineItem struct {
	UID             string    `json:"uid"`
	CatalogObjectID string    `json:"catalog_object_id"`
	Quantity        string    `json:"quantity"`
	Name            string    `json:"name"`
	VariationName   string    `json:"variation_name"`
	Note            string    `json:"note"`
	TotalMoney      *posMoney `json:"total_money"`
	BasePriceMoney  *posMoney `json:"base_price_money"`
}

type posOrder struct {
	ID        string        `json:"id"`
	State     string        `json:"state"`
	LineItems []posLineItem `json:"line_items"`
}

type posEnvelope struct {
	Type    string `json:"type"`
	EventID string `json:"event_id"`
	Data    struct {
		ID     string `json:"id"`
		Object struct {
			Order        *posOrder `json:"order"`
			OrderCreated *posOrder `json:"order_created"`
			OrderUpdated *posOrder `json:"order_updated"`
		} `json:"object"`
	} `json:"data"`
}

// DecodePOS декодирует вебхук кассы. Ошибка возвращается только для тела,
// которое не является JSON-документом; всё остальное становится проигнорированным событием.
func DecodePOS(body []byte, log logger.Logger) (*domain.SaleEvent, error) {
	var env posEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, e.Wrap("pos webhook", fmt.Errorf("%w: %v", e.ErrInvalidPayload, err))
	}

	ev := &domain.SaleEvent{
		Kind:    domain.SaleEventIgnored,
		Channel: domain.ChannelPOS,
		EventID: env.EventID,
		Type:    env.Type,
	}

	if env.Type != posOrderCreated && env.Type != posOrderUpdated {
		ev.Reason = "unhandled event type"
		return ev, nil
	}

	order := env.Data.Object.Order
	if order == nil {
		order = env.Data.Object.OrderUpdated
	}
	if order == nil {
		order = env.Data.Object.OrderCreated
	}
	if order == nil {
		ev.Reason = "no order in payload"
		return ev, nil
	}

	ev.OrderID = order.ID
	if ev.OrderID == "" {
		ev.OrderID = env.Data.ID
	}
	if ev.OrderID == "" {
		ev.Reason = "order without id"
		return ev, nil
	}
	if !strings.EqualFold(order.State, posStateCompleted) {
		ev.Reason = "order not completed"
		return ev, nil
	}

	for i, li := range order.LineItems {
		line, err := posLineToIntent(ev.OrderID, i, li)
		if err != nil {
			log.Warnf("pos order %s: dropping line %d: %v", ev.OrderID, i, err)
			continue
		}
		ev.Lines = append(ev.Lines, line)
	}

	if len(ev.Lines) == 0 {
		ev.Reason = "no valid line items"
		return ev, nil
	}

	ev.Kind = domain.SaleEventSale
	return ev, nil
}

func posLineToIntent(orderID string, idx int, li posLineItem) (domain.SaleIntent, error) {
	qty, err := parsePOSQuantity(li.Quantity)
	if err != nil {
		return domain.SaleIntent{}, err
	}

	var total int64
	switch {
	case li.TotalMoney != nil && li.TotalMoney.Amount != nil:
		total = *li.TotalMoney.Amount
	case li.BasePriceMoney != nil && li.BasePriceMoney.Amount != nil:
		total = *li.BasePriceMoney.Amount * int64(qty)
	default:
		return domain.SaleIntent{}, e.Wrap("line without price", e.ErrInvalidPayload)
	}
	if total < 0 {
		return domain.SaleIntent{}, e.Wrap("negative line total", e.ErrInvalidPrice)
	}

	ref := li.UID
	if ref == "" {
		ref = strconv.Itoa(idx)
	}

	name := strings.TrimSpace(strings.Join([]string{li.Name, li.VariationName, li.Note}, " "))

	return domain.SaleIntent{
		ExternalLineItemRef: ref,
		ChannelObjectID:     li.CatalogObjectID,
		Name:                name,
		QuantitySold:        qty,
		TotalPriceMinor:     total,
		UnitPriceMinor:      domain.SplitUnitPrice(total, qty),
		ChannelOrderID:      orderID,
	}, nil
}

// parsePOSQuantity — касса передаёт количество строкой, иногда дробной ("1.0").
func parsePOSQuantity(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 1, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 1 || f > domain.MaxLineQuantity || f != math.Trunc(f) {
		return 0, e.Wrap(fmt.Sprintf("quantity %q", s), e.ErrInvalidQuantity)
	}

	return int(f), nil
}
