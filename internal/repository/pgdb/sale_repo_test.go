package pgdb

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/repository/pgdb/converter"
	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/usecase"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var saleColumnNames = []string{
	"id", "produit_id", "sku", "name", "category", "brand", "depositor_trigramme", "depositor_name",
	"origin", "sale_date", "realized_price", "attribue", "attribue_at", "external_ref", "created_at",
}

func newSaleRepo(t *testing.T) (*SaleRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewSaleRepo(mock, converter.SaleConverter{}), mock
}

func TestSaleList_NumbersPlaceholdersInOrder(t *testing.T) {
	repo, mock := newSaleRepo(t)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	soldAt := from.Add(36 * time.Hour)
	ref := "ORD-1/li-1"
	no := false

	mock.ExpectQuery(regexp.QuoteMeta(`FROM sales WHERE sale_date >= $1 AND sale_date < $2 AND attribue = $3 ORDER BY sale_date, created_at, id`)).
		WithArgs(from, to, false).
		WillReturnRows(mock.NewRows(saleColumnNames).AddRow(
			"s1", nil, "ABC12", "Veste", "", "", "", "",
			"boutique", soldAt, int64(16500), false, nil, &ref, soldAt,
		))

	got, err := repo.List(context.Background(), usecase.SaleFilter{From: &from, To: &to, Attribue: &no})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].ID)
	assert.Nil(t, got[0].ProduitID)
	assert.Equal(t, domain.OriginBoutique, got[0].Origin)
	assert.Equal(t, int64(16500), got[0].RealizedPrice)
	require.NotNil(t, got[0].ExternalRef)
	assert.Equal(t, ref, *got[0].ExternalRef)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaleList_SingleFilterStartsAtOne(t *testing.T) {
	repo, mock := newSaleRepo(t)
	yes := true

	mock.ExpectQuery(regexp.QuoteMeta(`FROM sales WHERE attribue = $1 ORDER BY`)).
		WithArgs(true).
		WillReturnRows(mock.NewRows(saleColumnNames))

	got, err := repo.List(context.Background(), usecase.SaleFilter{Attribue: &yes})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// batchPool подменяет SendBatch: pgxmock v2 не умеет пакетные запросы.
type batchPool struct {
	pgxmock.PgxPoolIface
	results *fakeBatchResults
	queued  int
}

func (b *batchPool) SendBatch(_ context.Context, batch *pgx.Batch) pgx.BatchResults {
	b.queued = batch.Len()
	return b.results
}

type fakeBatchResults struct {
	errs   []error
	execs  int
	closed bool
}

func (f *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	i := f.execs
	f.execs++
	if i < len(f.errs) && f.errs[i] != nil {
		return pgconn.CommandTag{}, f.errs[i]
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeBatchResults) Query() (pgx.Rows, error) { return nil, errors.New("not supported") }
func (f *fakeBatchResults) QueryRow() pgx.Row        { return nil }
func (f *fakeBatchResults) Close() error {
	f.closed = true
	return nil
}

func batchSales() []*domain.Sale {
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	return []*domain.Sale{
		{ID: "s1", Origin: domain.OriginBoutique, SaleDate: at, RealizedPrice: 1000, CreatedAt: at},
		{ID: "s2", Origin: domain.OriginBoutique, SaleDate: at, RealizedPrice: 1000, CreatedAt: at},
	}
}

func TestSaleCreateBatch_DuplicateIsAlreadySeen(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	pool := &batchPool{PgxPoolIface: mock, results: &fakeBatchResults{
		errs: []error{nil, &pgconn.PgError{Code: "23505", ConstraintName: "sales_external_ref_key"}},
	}}
	repo := NewSaleRepo(pool, converter.SaleConverter{})

	err = repo.CreateBatch(context.Background(), batchSales())
	assert.ErrorIs(t, err, e.ErrEventAlreadySeen)
	assert.Contains(t, err.Error(), "s2")
	assert.Equal(t, 2, pool.queued)
	assert.True(t, pool.results.closed)
}

func TestSaleCreateBatch_OtherErrorsPassThrough(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	boom := &pgconn.PgError{Code: "23514", Message: "quantity check"}
	pool := &batchPool{PgxPoolIface: mock, results: &fakeBatchResults{errs: []error{boom}}}
	repo := NewSaleRepo(pool, converter.SaleConverter{})

	err = repo.CreateBatch(context.Background(), batchSales())
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, e.ErrEventAlreadySeen)

	pool.results = &fakeBatchResults{}
	require.NoError(t, repo.CreateBatch(context.Background(), batchSales()))
	assert.Equal(t, 2, pool.results.execs)
}
