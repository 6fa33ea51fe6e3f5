package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputePromotion_SameDayTiers(t *testing.T) {
	prices := []int64{4000, 2000, 6000, 3000}
	want := []PromotionRes{
		{OrderNumber: 1, DeliveryFee: 1500, Discount: 0, FinalPrice: 5500},
		{OrderNumber: 2, DeliveryFee: 0, Discount: 0, FinalPrice: 2000},
		// 15% от min(40, 20, 60)
		{OrderNumber: 3, DeliveryFee: 0, Discount: 300, FinalPrice: 5700},
		{OrderNumber: 4, DeliveryFee: 0, Discount: 0, FinalPrice: 3000},
	}

	var prior []*domain.Order
	for i, price := range prices {
		got := ComputePromotion(DefaultPromotionRules, prior, price, domain.DeliveryHome)
		assert.Equal(t, want[i], got, "order #%d", i+1)

		prior = append(prior, &domain.Order{UnitPrice: price, Discount: got.Discount, DeliveryFee: got.DeliveryFee})
	}
}

func TestComputePromotion_CurrentPriceCanBeMinimum(t *testing.T) {
	prior := []*domain.Order{{UnitPrice: 5000}, {UnitPrice: 8000}}
	got := ComputePromotion(DefaultPromotionRules, prior, 1999, domain.DeliveryHome)
	assert.Equal(t, int64(300), got.Discount) // 299.85 → 300
	assert.Equal(t, int64(1699), got.FinalPrice)
}

func TestComputePromotion_PickupHasNoFee(t *testing.T) {
	got := ComputePromotion(DefaultPromotionRules, nil, 4000, domain.DeliveryPickup)
	assert.Zero(t, got.DeliveryFee)
	assert.Equal(t, int64(4000), got.FinalPrice)
}

func TestPromotionCalculator_OnlyCountsToday(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, paris)
	orders := &fakeOrders{orders: []*domain.Order{
		{BuyerEmail: "ana@example.com", UnitPrice: 1000, SaleDate: now.Add(-24 * time.Hour)},
		{BuyerEmail: "ana@example.com", UnitPrice: 1000, SaleDate: now.Add(-2 * time.Hour)},
		{BuyerEmail: "bob@example.com", UnitPrice: 1000, SaleDate: now.Add(-time.Hour)},
	}}
	calc := NewPromotionCalculator(orders, DefaultPromotionRules, paris)

	got, err := calc.Calculate(context.Background(), &PromotionReq{
		BuyerEmail: " Ana@Example.com ", BasePrice: 5000, DeliveryMode: domain.DeliveryHome, Now: now,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, got.OrderNumber)
	assert.Zero(t, got.DeliveryFee)
	assert.Zero(t, got.Discount)

	_, err = calc.Calculate(context.Background(), &PromotionReq{BuyerEmail: "ana@example.com", DeliveryMode: "drone", Now: now})
	assert.ErrorIs(t, err, e.ErrInvalidDeliveryMode)

	_, err = calc.Calculate(context.Background(), &PromotionReq{DeliveryMode: domain.DeliveryHome, Now: now})
	assert.ErrorIs(t, err, e.ErrInvalidEmail)
}
