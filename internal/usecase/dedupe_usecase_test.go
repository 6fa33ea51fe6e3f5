package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var paris, _ = time.LoadLocation("Europe/Paris")

func newDedupeUC(ev *env, batch int) *DedupeUseCase {
	u := NewDedupeUseCase(ev.sales, ev.outbox, ev.archive, fakeTx{}, nil, logger.NewNop(), paris, batch)
	u.now = func() time.Time { return testNow }
	u.newID = sequentialIDs("evt")
	return u
}

func sale(id string, price int64, at time.Time, attribue bool) *domain.Sale {
	s := &domain.Sale{ID: id, SaleDate: at, RealizedPrice: price, CreatedAt: at, Attribue: attribue}
	if attribue {
		s.ProduitID = strPtr("p-" + id)
	}
	return s
}

func TestPlanDedupe(t *testing.T) {
	day := time.Date(2026, 3, 14, 10, 0, 0, 0, paris)

	sales := []*domain.Sale{
		// смешанная группа: оставляем первую привязанную, удаляем непривязанные
		sale("a2", 5000, day.Add(2*time.Hour), true),
		sale("a1", 5000, day, true),
		sale("u1", 5000, day.Add(time.Hour), false),
		sale("u2", 5000, day.Add(3*time.Hour), false),
		// однородные группы не трогаются
		sale("b1", 7000, day, true),
		sale("b2", 7000, day, true),
		sale("c1", 9000, day, false),
		sale("c2", 9000, day, false),
		// другой день
		sale("u3", 5000, day.AddDate(0, 0, 1), false),
	}

	groups := PlanDedupe(sales, paris)
	require.Len(t, groups, 1)
	assert.Equal(t, "2026-03-14", groups[0].Day)
	assert.Equal(t, int64(5000), groups[0].Price)
	assert.Equal(t, 4, groups[0].Size)
	assert.Equal(t, "a1", groups[0].KeepID)
	assert.Equal(t, []string{"u1", "u2"}, groups[0].DeleteIDs)
}

func TestPlanDedupe_UsesBusinessTimezone(t *testing.T) {
	// 23:30 UTC 14 марта — уже 15 марта в Париже
	late := time.Date(2026, 3, 14, 23, 30, 0, 0, time.UTC)
	next := time.Date(2026, 3, 15, 9, 0, 0, 0, paris)

	groups := PlanDedupe([]*domain.Sale{sale("a", 1000, late, true), sale("u", 1000, next, false)}, paris)
	require.Len(t, groups, 1)
	assert.Equal(t, "2026-03-15", groups[0].Day)
}

func TestDedupe_DryRunDeletesNothing(t *testing.T) {
	day := time.Date(2026, 3, 14, 10, 0, 0, 0, paris)
	ev := newEnv()
	ev.sales = newFakeSales(sale("a1", 5000, day, true), sale("u1", 5000, day, false))
	u := newDedupeUC(ev, 0)

	res, err := u.Dedupe(context.Background(), &DedupeReq{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ToDelete)
	assert.Zero(t, res.Deleted)
	assert.Len(t, ev.sales.all(), 2)
	assert.Empty(t, ev.archive.reqs)
}

func TestDedupe_ApplyIsIdempotent(t *testing.T) {
	day := time.Date(2026, 3, 14, 10, 0, 0, 0, paris)
	ev := newEnv()
	seed := []*domain.Sale{sale("a1", 5000, day, true)}
	for i := 0; i < 7; i++ {
		seed = append(seed, sale(fmt.Sprintf("u%d", i), 5000, day.Add(time.Duration(i)*time.Minute), false))
	}
	seed = append(seed, sale("c1", 9000, day, false), sale("c2", 9000, day, false))
	ev.sales = newFakeSales(seed...)
	u := newDedupeUC(ev, 3)

	res, err := u.Dedupe(context.Background(), &DedupeReq{})
	require.NoError(t, err)
	assert.Equal(t, 7, res.Deleted)
	assert.Equal(t, "sales/dedupe.json", res.ArchiveKey)
	require.Len(t, ev.archive.reqs, 1)
	assert.Len(t, ev.archive.reqs[0].Sales, 7)
	assert.Len(t, ev.sales.all(), 3)
	assert.Equal(t, 1, ev.outbox.count(domain.EventSalesDeduplicated))

	again, err := u.Dedupe(context.Background(), &DedupeReq{})
	require.NoError(t, err)
	assert.Zero(t, again.ToDelete)
	assert.Zero(t, again.Deleted)
	assert.Len(t, ev.sales.all(), 3)
	assert.Equal(t, 1, ev.outbox.count(domain.EventSalesDeduplicated))
}

func TestDedupe_MonthScope(t *testing.T) {
	march := time.Date(2026, 3, 14, 10, 0, 0, 0, paris)
	april := time.Date(2026, 4, 2, 10, 0, 0, 0, paris)
	ev := newEnv()
	ev.sales = newFakeSales(
		sale("a1", 5000, march, true), sale("u1", 5000, march, false),
		sale("a2", 5000, april, true), sale("u2", 5000, april, false),
	)
	u := newDedupeUC(ev, 0)

	res, err := u.Dedupe(context.Background(), &DedupeReq{Month: "04-2026"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Scanned)
	assert.Equal(t, 1, res.Deleted)

	_, err = ev.sales.GetByID(context.Background(), "u1")
	assert.NoError(t, err)

	_, err = u.Dedupe(context.Background(), &DedupeReq{Month: "2026-04"})
	assert.ErrorIs(t, err, e.ErrInvalidMonth)
}

func TestDedupe_ApplyRefusedWithoutArchive(t *testing.T) {
	day := time.Date(2026, 3, 14, 10, 0, 0, 0, paris)
	ev := newEnv()
	ev.sales = newFakeSales(sale("a1", 5000, day, true), sale("u1", 5000, day, false))
	u := NewDedupeUseCase(ev.sales, ev.outbox, nil, fakeTx{}, nil, logger.NewNop(), paris, 0)

	plan, err := u.Dedupe(context.Background(), &DedupeReq{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, plan.ToDelete)

	_, err = u.Dedupe(context.Background(), &DedupeReq{})
	assert.ErrorIs(t, err, e.ErrArchiveUnavailable)
	assert.Len(t, ev.sales.all(), 2)
	assert.Zero(t, ev.outbox.count(domain.EventSalesDeduplicated))
}
