package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/shopspring/decimal"
)

// DefaultPromotionRules — доставка 15.00, скидка 15% с третьего заказа за день.
var DefaultPromotionRules = PromotionRules{
	DeliveryFee:     1500,
	DiscountPercent: 15,
	MinPriorOrders:  2,
}

// PromotionCalculator считает скидку и стоимость доставки по заказам покупателя за текущий день.
type PromotionCalculator struct {
	orderRepo OrderRepository
	rules     PromotionRules
	loc       *time.Location
	now       func() time.Time
}

func NewPromotionCalculator(orderRepo OrderRepository, rules PromotionRules, loc *time.Location) *PromotionCalculator {
	if loc == nil {
		loc = time.UTC
	}
	return &PromotionCalculator{orderRepo: orderRepo, rules: rules, loc: loc, now: time.Now}
}

// Calculate только читает заказы, ничего не записывает и не кэширует.
func (c *PromotionCalculator) Calculate(ctx context.Context, req *PromotionReq) (*PromotionRes, error) {
	const op = "PromotionCalculator.Calculate"

	email := normalizeEmail(req.BuyerEmail)
	if email == "" {
		return nil, e.Wrap(op, e.ErrInvalidEmail)
	}
	if !req.DeliveryMode.Valid() {
		return nil, e.Wrap(op, e.ErrInvalidDeliveryMode)
	}

	now := req.Now
	if now.IsZero() {
		now = c.now()
	}
	from, to := DayBounds(now, c.loc)

	prior, err := c.orderRepo.ListByBuyerBetween(ctx, email, from, to)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	res := ComputePromotion(c.rules, prior, req.BasePrice, req.DeliveryMode)
	return &res, nil
}

// ComputePromotion применяет правила к уже оплаченным сегодня заказам покупателя.
func ComputePromotion(rules PromotionRules, prior []*domain.Order, basePrice int64, mode domain.DeliveryMode) PromotionRes {
	res := PromotionRes{OrderNumber: len(prior) + 1}

	if mode == domain.DeliveryHome && len(prior) == 0 {
		res.DeliveryFee = rules.DeliveryFee
	}

	if len(prior) >= rules.MinPriorOrders && !discountUsed(prior) {
		minPrice := basePrice
		for _, o := range prior {
			if o.UnitPrice < minPrice {
				minPrice = o.UnitPrice
			}
		}
		res.Discount = decimal.NewFromInt(minPrice).
			Mul(decimal.NewFromInt(rules.DiscountPercent)).
			Div(decimal.NewFromInt(100)).
			Round(0).
			IntPart()
	}

	res.FinalPrice = basePrice - res.Discount + res.DeliveryFee
	return res
}

func discountUsed(orders []*domain.Order) bool {
	for _, o := range orders {
		if o.Discount != 0 {
			return true
		}
	}
	return false
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
