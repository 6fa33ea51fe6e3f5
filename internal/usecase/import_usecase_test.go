package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newImportUC(ev *env, maxRows int) *ImportUseCase {
	u := NewImportUseCase(ev.sales, ev.products, ev.outbox, fakeTx{}, testSnapshots(), nil, logger.NewNop(), paris, maxRows)
	u.now = func() time.Time { return testNow }
	u.newID = sequentialIDs("imp")
	return u
}

func TestImport_RowOutcomes(t *testing.T) {
	ev := newEnv(listedProduct("p1", "ABC12", 1))
	u := newImportUC(ev, 0)

	rows := []map[string]any{
		{"Date": "14/03/2026", "Prix": "165,00 €", "SKU": "abc12"},
		{"Date": "14/03/2026", "Prix": "0,00 €", "Description": "Remise"},
		{"Date": "pas une date", "Prix": "12,00"},
		{"Date": float64(46095), "Prix": float64(40), "Description": "Foulard soie", "Quantité": "2"},
		{"Date": "2026-03-14", "Prix": "30", "Libelle": "lot ABC12 et XYZ9"},
	}

	res, err := u.Import(context.Background(), &ImportReq{Rows: rows})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Imported)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 2, res.Errors[0].Row)

	// импорт не меняет остатки
	assert.Equal(t, 1, ev.products.get("p1").Quantity)

	var attributed, unattributed int
	for _, s := range ev.sales.all() {
		assert.Equal(t, domain.OriginImportedSpreadsheet, s.Origin)
		if s.Attribue {
			attributed++
			assert.Equal(t, int64(16500), s.RealizedPrice)
			assert.Equal(t, "Atelier Blanc", s.DepositorName)
		} else {
			unattributed++
		}
	}
	assert.Equal(t, 1, attributed)
	assert.Equal(t, 3, unattributed) // 2 единицы платка + неоднозначная строка
	assert.Equal(t, 4, ev.outbox.count(domain.EventSaleRecorded))
}

func TestImport_SplitsQuantityPrice(t *testing.T) {
	ev := newEnv()
	u := newImportUC(ev, 0)

	_, err := u.Import(context.Background(), &ImportReq{Rows: []map[string]any{
		{"date": "2026-03-14", "price": "100,00", "name": "Bijoux", "qty": "4"},
	}})
	require.NoError(t, err)

	sales := ev.sales.all()
	require.Len(t, sales, 4)
	for _, s := range sales {
		assert.Equal(t, int64(2500), s.RealizedPrice)
	}
}

func TestImport_ReimportIsSkipped(t *testing.T) {
	ev := newEnv(listedProduct("p1", "ABC12", 1))
	u := newImportUC(ev, 0)
	rows := []map[string]any{
		{"Date": "14/03/2026", "Prix": "165,00 €", "SKU": "ABC12"},
		{"Date": "14/03/2026", "Prix": "20,00 €", "Description": "Ceinture"},
		{"Date": "14/03/2026", "Prix": "20,00 €", "Description": "Ceinture"},
	}

	first, err := u.Import(context.Background(), &ImportReq{Rows: rows})
	require.NoError(t, err)
	assert.Equal(t, 3, first.Imported)

	second, err := u.Import(context.Background(), &ImportReq{Rows: rows})
	require.NoError(t, err)
	assert.Zero(t, second.Imported)
	assert.Equal(t, 3, second.Skipped)
	assert.Len(t, ev.sales.all(), 3)
}

func TestImport_ZeroPriceIsSkipped(t *testing.T) {
	ev := newEnv()
	u := newImportUC(ev, 0)

	res, err := u.Import(context.Background(), &ImportReq{Rows: []map[string]any{{"Date": "14/03/2026", "Prix": "0,00 €"}}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, res.Imported)
	assert.Empty(t, res.Errors)
}

func TestImport_TooManyRows(t *testing.T) {
	ev := newEnv()
	u := newImportUC(ev, 1)

	_, err := u.Import(context.Background(), &ImportReq{Rows: make([]map[string]any, 2)})
	assert.ErrorIs(t, err, e.ErrTooManyRows)
}
