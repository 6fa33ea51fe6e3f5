package pgdb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/repository/pgdb/converter"
	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/usecase"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/tr"
	"github.com/jackc/pgx/v5"
	"github.com/jimlawless/whereami"
)

const saleColumns = `
	id, produit_id, sku, name, category, brand, depositor_trigramme, depositor_name,
	origin, sale_date, realized_price, attribue, attribue_at, external_ref, created_at`

// SaleRepo хранит журнал продаж.
type SaleRepo struct {
	pool tr.DBTX
	conv converter.SaleConverter
}

func NewSaleRepo(pool tr.DBTX, conv converter.SaleConverter) *SaleRepo {
	return &SaleRepo{
		pool: pool,
		conv: conv,
	}
}

// CreateBatch вставляет продажи одним пакетом. Повтор external_ref — ошибка.
func (s *SaleRepo) CreateBatch(ctx context.Context, sales []*domain.Sale) error {
	if len(sales) == 0 {
		return nil
	}

	query := `
		INSERT INTO sales (` + saleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	batch := &pgx.Batch{}
	for _, sale := range sales {
		m := s.conv.ToModel(sale)
		batch.Queue(query,
			m.ID, m.ProduitID, m.SKU, m.Name, m.Category, m.Brand,
			m.DepositorTrigramme, m.DepositorName, m.Origin, m.SaleDate,
			m.RealizedPrice, m.Attribue, m.AttribueAt, m.ExternalRef, m.CreatedAt,
		)
	}

	br := tr.Conn(ctx, s.pool).SendBatch(ctx, batch)
	defer br.Close()

	for _, sale := range sales {
		if _, err := br.Exec(); err != nil {
			if postgresDuplicate(err) {
				return fmt.Errorf("%s: sale %s already exists: %w", whereami.WhereAmI(), sale.ID, e.ErrEventAlreadySeen)
			}
			return fmt.Errorf("%s: failed to insert sale %s: %w", whereami.WhereAmI(), sale.ID, err)
		}
	}

	return nil
}

func (s *SaleRepo) GetByID(ctx context.Context, id string) (*domain.Sale, error) {
	rows, err := tr.Conn(ctx, s.pool).Query(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	model, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[converter.SaleModel])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, e.Wrap(whereami.WhereAmI(), e.ErrSaleNotFound)
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return s.conv.ToEntity(model), nil
}

// UpdateAttribution перезаписывает поля привязки продажи к товару.
func (s *SaleRepo) UpdateAttribution(ctx context.Context, sale *domain.Sale) error {
	m := s.conv.ToModel(sale)
	query := `
		UPDATE sales
		SET produit_id = $2,
			sku = $3,
			name = $4,
			category = $5,
			brand = $6,
			depositor_trigramme = $7,
			depositor_name = $8,
			attribue = $9,
			attribue_at = $10
		WHERE id = $1
	`

	tag, err := tr.Conn(ctx, s.pool).Exec(ctx, query,
		m.ID, m.ProduitID, m.SKU, m.Name, m.Category, m.Brand,
		m.DepositorTrigramme, m.DepositorName, m.Attribue, m.AttribueAt,
	)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if tag.RowsAffected() == 0 {
		return e.Wrap(whereami.WhereAmI(), e.ErrSaleNotFound)
	}

	return nil
}

func (s *SaleRepo) Delete(ctx context.Context, id string) error {
	tag, err := tr.Conn(ctx, s.pool).Exec(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if tag.RowsAffected() == 0 {
		return e.Wrap(whereami.WhereAmI(), e.ErrSaleNotFound)
	}

	return nil
}

// DeleteBatch удаляет продажи по списку идентификаторов и возвращает число удалённых строк.
func (s *SaleRepo) DeleteBatch(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tag, err := tr.Conn(ctx, s.pool).Exec(ctx, `DELETE FROM sales WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, e.Wrap(whereami.WhereAmI(), err)
	}

	return tag.RowsAffected(), nil
}

func (s *SaleRepo) List(ctx context.Context, filter usecase.SaleFilter) ([]*domain.Sale, error) {
	var (
		conds []string
		args  []any
	)
	if filter.From != nil {
		args = append(args, *filter.From)
		conds = append(conds, fmt.Sprintf("sale_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conds = append(conds, fmt.Sprintf("sale_date < $%d", len(args)))
	}
	if filter.Attribue != nil {
		args = append(args, *filter.Attribue)
		conds = append(conds, fmt.Sprintf("attribue = $%d", len(args)))
	}

	query := `SELECT ` + saleColumns + ` FROM sales`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY sale_date, created_at, id`

	rows, err := tr.Conn(ctx, s.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	models, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[converter.SaleModel])
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	out := make([]*domain.Sale, 0, len(models))
	for _, m := range models {
		out = append(out, s.conv.ToEntity(m))
	}

	return out, nil
}

// ExistsByExternalRef возвращает множество уже записанных внешних ссылок.
func (s *SaleRepo) ExistsByExternalRef(ctx context.Context, refs []string) (map[string]bool, error) {
	found := make(map[string]bool)
	if len(refs) == 0 {
		return found, nil
	}

	rows, err := tr.Conn(ctx, s.pool).Query(ctx, `SELECT external_ref FROM sales WHERE external_ref = ANY($1)`, refs)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	existing, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	for _, ref := range existing {
		found[ref] = true
	}

	return found, nil
}
