package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/spreadsheet"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/logger"
)

var marketplaceSaleTypes = map[string]struct{}{
	"ORDER_PAID": {},
	"ITEM_SOLD":  {},
}

type marketplaceAmount struct {
	Value    json.RawMessage `json:"value"`
	Currency string          `json:"currency"`
}

type marketplaceLineItem struct {
	LineItemID   string             `json:"lineItemId"`
	LegacyItemID string             `json:"legacyItemId"`
	ListingID    string             `json:"listingId"`
	SKU          string             `json:"sku"`
	Title        string             `json:"title"`
	Quantity     json.Number        `json:"quantity"`
	Total        *marketplaceAmount `json:"total"`
	LineItemCost *marketplaceAmount `json:"lineItemCost"`
}

type marketplaceEnvelope struct {
	NotificationID string `json:"notificationId"`
	EventType      string `json:"eventType"`
	Metadata       struct {
		Topic string `json:"topic"`
	} `json:"metadata"`
	Order *struct {
		OrderID   string                `json:"orderId"`
		LineItems []marketplaceLineItem `json:"lineItems"`
	} `json:"order"`
}

// DecodeMarketplace декодирует уведомление маркетплейса о продаже.
func DecodeMarketplace(body []byte, log logger.Logger) (*domain.SaleEvent, error) {
	var env marketplaceEnvelope
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&env); err != nil {
		return nil, e.Wrap("marketplace webhook", fmt.Errorf("%w: %v", e.ErrInvalidPayload, err))
	}

	eventType := env.EventType
	if eventType == "" {
		eventType = env.Metadata.Topic
	}

	ev := &domain.SaleEvent{
		Kind:    domain.SaleEventIgnored,
		Channel: domain.ChannelMarketplace,
		EventID: env.NotificationID,
		Type:    eventType,
	}

	if _, ok := marketplaceSaleTypes[strings.ToUpper(eventType)]; !ok {
		ev.Reason = "unhandled event type"
		return ev, nil
	}
	if env.Order == nil || env.Order.OrderID == "" {
		ev.Reason = "no order in payload"
		return ev, nil
	}

	ev.OrderID = env.Order.OrderID
	for i, li := range env.Order.LineItems {
		line, err := marketplaceLineToIntent(ev.OrderID, i, li)
		if err != nil {
			log.Warnf("marketplace order %s: dropping line %d: %v", ev.OrderID, i, err)
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

func marketplaceLineToIntent(orderID string, idx int, li marketplaceLineItem) (domain.SaleIntent, error) {
	qty := 1
	if li.Quantity != "" {
		n, err := li.Quantity.Int64()
		if err != nil || n < 1 || n > domain.MaxLineQuantity {
			return domain.SaleIntent{}, e.Wrap(fmt.Sprintf("quantity %q", li.Quantity), e.ErrInvalidQuantity)
		}
		qty = int(n)
	}

	amount := li.Total
	if amount == nil {
		amount = li.LineItemCost
	}
	if amount == nil || len(amount.Value) == 0 {
		return domain.SaleIntent{}, e.Wrap("line without total", e.ErrInvalidPayload)
	}

	total, err := parseAmountValue(amount.Value)
	if err != nil {
		return domain.SaleIntent{}, err
	}

	listing := li.ListingID
	if listing == "" {
		listing = li.LegacyItemID
	}

	ref := li.LineItemID
	if ref == "" {
		ref = strconv.Itoa(idx)
	}

	return domain.SaleIntent{
		ExternalLineItemRef: ref,
		ChannelObjectID:     listing,
		SKUHint:             spreadsheet.NormalizeSKU(li.SKU),
		Name:                li.Title,
		QuantitySold:        qty,
		TotalPriceMinor:     total,
		UnitPriceMinor:      domain.SplitUnitPrice(total, qty),
		ChannelOrderID:      orderID,
	}, nil
}

// parseAmountValue — сумма приходит строкой "165.00" или числом.
func parseAmountValue(raw json.RawMessage) (int64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return spreadsheet.ParsePrice(s)
	}
	return spreadsheet.ParsePrice(json.Number(strings.TrimSpace(string(raw))))
}
