package ingest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
)

const StorefrontStatusPaid = "paid"

// StorefrontPayment — уведомление платёжной страницы витрины.
type StorefrontPayment struct {
	SessionID  string `json:"sessionId"`
	PaymentRef string `json:"paymentRef"`
	Status     string `json:"status"`
}

// DecodeStorefront декодирует уведомление об оплате заказа витрины.
func DecodeStorefront(body []byte) (*StorefrontPayment, error) {
	var p StorefrontPayment
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, e.Wrap("storefront webhook", fmt.Errorf("%w: %v", e.ErrInvalidPayload, err))
	}
	if strings.TrimSpace(p.SessionID) == "" {
		return nil, e.Wrap("storefront webhook: sessionId", e.ErrMissingFields)
	}
	p.Status = strings.ToLower(strings.TrimSpace(p.Status))
	return &p, nil
}
