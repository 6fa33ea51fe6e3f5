package usecase

import (
	"context"
	"math/rand"
	"testing"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listedProduct(id, sku string, qty int) *domain.Product {
	return &domain.Product{
		ID:                   id,
		SKU:                  strPtr(sku),
		Name:                 "Veste en laine",
		Category:             "Manteaux",
		Brand:                "Sézane",
		Price:                16500,
		Quantity:             qty,
		Status:               domain.StatusActive,
		PosItemID:            strPtr("ITEM-" + id),
		PosVariationID:       strPtr("VAR-" + id),
		MarketplaceListingID: strPtr("MKT-" + id),
	}
}

func TestDisposition_LastUnitNormalPolicy(t *testing.T) {
	ev := newEnv(listedProduct("p1", "ABC12", 1))

	res, err := ev.engine.Apply(context.Background(), &DispositionReq{
		ProductID:   "p1",
		Intent:      domain.SaleIntent{ExternalLineItemRef: "L1", ChannelOrderID: "O1", QuantitySold: 1, TotalPriceMinor: 16500},
		Origin:      domain.OriginBoutique,
		AppendSales: true,
	})
	require.NoError(t, err)
	assert.True(t, res.Delist)

	p := ev.products.get("p1")
	assert.Equal(t, 0, p.Quantity)
	assert.True(t, p.Sold)
	assert.Equal(t, int64(16500), *p.RealizedPrice)

	sales := ev.sales.all()
	require.Len(t, sales, 1)
	assert.True(t, sales[0].Attribue)
	assert.Equal(t, "p1", *sales[0].ProduitID)
	assert.Equal(t, "Atelier Blanc", sales[0].DepositorName)
	assert.Equal(t, "O1/L1#1", *sales[0].ExternalRef)
	assert.Equal(t, 1, ev.outbox.count(domain.EventSaleRecorded))

	assert.Equal(t, 1, ev.dispatcher.Dispatch(res.Product, domain.OriginBoutique))
	ev.waitDispatch()
	assert.Empty(t, ev.pos.called())
	assert.Equal(t, []delistCall{{channel: domain.ChannelMarketplace, listingID: "MKT-p1"}}, ev.marketplace.called())
}

func TestDisposition_LastUnitSmallBatchPolicy(t *testing.T) {
	ev := newEnv(listedProduct("p1", "SMB7", 1))

	res, err := ev.engine.Apply(context.Background(), &DispositionReq{
		ProductID:   "p1",
		Intent:      domain.SaleIntent{ExternalLineItemRef: "L1", ChannelOrderID: "O1", QuantitySold: 1, TotalPriceMinor: 4000},
		Origin:      domain.OriginMarketplace,
		AppendSales: true,
	})
	require.NoError(t, err)
	assert.False(t, res.Delist)
	assert.Equal(t, domain.PolicySmallBatch, res.Policy)

	p := ev.products.get("p1")
	assert.Equal(t, 0, p.Quantity)
	assert.False(t, p.Sold)
	assert.Equal(t, domain.StatusOutOfStock, p.Status)
	assert.NotNil(t, p.SaleDate)

	assert.Equal(t, 0, ev.dispatcher.Dispatch(res.Product, domain.OriginMarketplace))
	ev.waitDispatch()
	assert.Empty(t, ev.pos.called())
	assert.Empty(t, ev.marketplace.called())
}

func TestDisposition_MultiUnitSplitsPrice(t *testing.T) {
	ev := newEnv(listedProduct("p1", "ABC12", 5))

	res, err := ev.engine.Apply(context.Background(), &DispositionReq{
		ProductID:   "p1",
		Intent:      domain.SaleIntent{ExternalLineItemRef: "L1", ChannelOrderID: "O1", QuantitySold: 3, TotalPriceMinor: 15000},
		Origin:      domain.OriginBoutique,
		AppendSales: true,
	})
	require.NoError(t, err)
	assert.False(t, res.Delist)
	assert.Equal(t, 2, ev.products.get("p1").Quantity)

	sales := ev.sales.all()
	require.Len(t, sales, 3)
	refs := map[string]bool{}
	for _, s := range sales {
		assert.Equal(t, int64(5000), s.RealizedPrice)
		refs[*s.ExternalRef] = true
	}
	assert.Len(t, refs, 3)
}

func TestDisposition_StockInvariantsHold(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		qty := rng.Intn(5)
		sold := 1 + rng.Intn(6)
		sku := "ABC1"
		if rng.Intn(2) == 0 {
			sku = "SMB1"
		}

		ev := newEnv(listedProduct("p", sku, qty))
		_, err := ev.engine.Apply(context.Background(), &DispositionReq{
			ProductID: "p",
			Intent:    domain.SaleIntent{QuantitySold: sold, TotalPriceMinor: int64(sold) * 1000},
			Origin:    domain.OriginBoutique,
		})
		require.NoError(t, err)

		p := ev.products.get("p")
		assert.GreaterOrEqual(t, p.Quantity, 0)
		if p.Sold {
			assert.Equal(t, 0, p.Quantity)
		}
		if sku == "ABC1" && p.Quantity == 0 {
			assert.True(t, p.Sold)
		}
	}
}

func TestDisposition_RetriesOnVersionConflict(t *testing.T) {
	ev := newEnv(listedProduct("p1", "ABC12", 2))
	ev.products.conflicts = 2

	_, err := ev.engine.Apply(context.Background(), &DispositionReq{
		ProductID:   "p1",
		Intent:      domain.SaleIntent{ExternalLineItemRef: "L1", ChannelOrderID: "O1", QuantitySold: 1, TotalPriceMinor: 1000},
		Origin:      domain.OriginBoutique,
		AppendSales: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, ev.products.get("p1").Quantity)
	assert.Len(t, ev.sales.all(), 1)
}

func TestDisposition_GivesUpAfterMaxAttempts(t *testing.T) {
	ev := newEnv(listedProduct("p1", "ABC12", 2))
	ev.products.conflicts = 10

	_, err := ev.engine.Apply(context.Background(), &DispositionReq{
		ProductID: "p1",
		Intent:    domain.SaleIntent{QuantitySold: 1, TotalPriceMinor: 1000},
		Origin:    domain.OriginBoutique,
	})
	assert.ErrorIs(t, err, e.ErrVersionConflict)
}

func TestDisposition_RejectsZeroQuantity(t *testing.T) {
	ev := newEnv(listedProduct("p1", "ABC12", 2))

	_, err := ev.engine.Apply(context.Background(), &DispositionReq{ProductID: "p1", Origin: domain.OriginBoutique})
	assert.ErrorIs(t, err, e.ErrInvalidQuantity)
}

func TestDelisting_ImportOriginDelistsEverywhere(t *testing.T) {
	ev := newEnv()
	p := listedProduct("p1", "ABC12", 0)
	p.Sold = true

	assert.Equal(t, 2, ev.dispatcher.Dispatch(p, domain.OriginManualAttribution))
	ev.waitDispatch()
	assert.Equal(t, []delistCall{{channel: domain.ChannelPOS, listingID: "ITEM-p1"}}, ev.pos.called())
	assert.Len(t, ev.marketplace.called(), 1)
}

func TestDelisting_SkipsChannelsWithoutListing(t *testing.T) {
	ev := newEnv()
	p := listedProduct("p1", "ABC12", 0)
	p.Sold = true
	p.MarketplaceListingID = nil
	ev.pos.err = e.ErrUpstreamChannel

	assert.Equal(t, 1, ev.dispatcher.Dispatch(p, domain.OriginStorefront))
	ev.waitDispatch()
	assert.Len(t, ev.pos.called(), 1)
	assert.Empty(t, ev.marketplace.called())
}
