package pgdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/repository/pgdb/converter"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/tr"
	"github.com/jackc/pgx/v5"
	"github.com/jimlawless/whereami"
)

const productColumns = `
	id, sku, name, category, brand, price, quantity, sold, status,
	pos_item_id, pos_variation_id, marketplace_listing_id,
	recovery_status, sale_date, realized_price, version, created_at, updated_at`

// ProductRepo реализует репозиторий товаров поверх PostgreSQL.
type ProductRepo struct {
	pool tr.DBTX
	conv converter.ProductConverter
}

func NewProductRepo(pool tr.DBTX, conv converter.ProductConverter) *ProductRepo {
	return &ProductRepo{
		pool: pool,
		conv: conv,
	}
}

func (p *ProductRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return p.queryOne(ctx, query, id)
}

// FindByListingID ищет товар по идентификатору объявления в канале.
// Для кассы подходит как идентификатор товара, так и идентификатор вариации.
func (p *ProductRepo) FindByListingID(ctx context.Context, ch domain.Channel, listingID string) (*domain.Product, error) {
	var where string
	switch ch {
	case domain.ChannelPOS:
		where = `pos_item_id = $1 OR pos_variation_id = $1`
	case domain.ChannelMarketplace:
		where = `marketplace_listing_id = $1`
	default:
		return nil, e.Wrap(whereami.WhereAmI(), e.ErrUnknownChannel)
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE ` + where + ` ORDER BY created_at LIMIT 1`
	return p.queryOne(ctx, query, listingID)
}

func (p *ProductRepo) FindBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE UPPER(sku) = UPPER($1)`
	return p.queryOne(ctx, query, sku)
}

// UpdateStock записывает складские поля при совпадении версии и увеличивает её.
func (p *ProductRepo) UpdateStock(ctx context.Context, product *domain.Product) error {
	conn := tr.Conn(ctx, p.pool)
	model := p.conv.ToModel(product)

	query := `
		UPDATE products
		SET quantity = $3,
			sold = $4,
			status = $5,
			sale_date = $6,
			realized_price = $7,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at
	`

	err := conn.QueryRow(ctx, query,
		model.ID,
		model.Version,
		model.Quantity,
		model.Sold,
		model.Status,
		model.SaleDate,
		model.RealizedPrice,
	).Scan(&model.Version, &model.UpdatedAt)
	if err == nil {
		product.Version = model.Version
		product.UpdatedAt = model.UpdatedAt
		return nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: failed to update stock of %s: %w", whereami.WhereAmI(), product.ID, err)
	}

	var exists bool
	if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, product.ID).Scan(&exists); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if !exists {
		return e.Wrap(whereami.WhereAmI(), e.ErrProductNotFound)
	}

	return e.Wrap(whereami.WhereAmI(), e.ErrVersionConflict)
}

func (p *ProductRepo) queryOne(ctx context.Context, query string, args ...any) (*domain.Product, error) {
	rows, err := tr.Conn(ctx, p.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	model, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[converter.ProductModel])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, e.Wrap(whereami.WhereAmI(), e.ErrProductNotFound)
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return p.conv.ToEntity(model), nil
}
