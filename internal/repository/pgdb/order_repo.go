package pgdb

import (
	"context"
	"time"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/repository/pgdb/converter"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/tr"
	"github.com/jackc/pgx/v5"
	"github.com/jimlawless/whereami"
)

type OrderRepo struct {
	pool tr.DBTX
	conv converter.OrderConverter
}

func NewOrderRepo(pool tr.DBTX, conv converter.OrderConverter) *OrderRepo {
	return &OrderRepo{
		pool: pool,
		conv: conv,
	}
}

func (o *OrderRepo) Create(ctx context.Context, order *domain.Order) error {
	m := o.conv.ToModel(order)
	query := `
		INSERT INTO orders (
			id, buyer_email, produit_id, unit_price, discount, delivery_fee,
			delivery_mode, final_price, payment_ref, sale_date, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	if _, err := tr.Conn(ctx, o.pool).Exec(ctx, query,
		m.ID, m.BuyerEmail, m.ProduitID, m.UnitPrice, m.Discount, m.DeliveryFee,
		m.DeliveryMode, m.FinalPrice, m.PaymentRef, m.SaleDate, m.CreatedAt,
	); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// ListByBuyerBetween возвращает заказы покупателя в полуинтервале [from, to).
func (o *OrderRepo) ListByBuyerBetween(ctx context.Context, email string, from, to time.Time) ([]*domain.Order, error) {
	query := `
		SELECT id, buyer_email, produit_id, unit_price, discount, delivery_fee,
			delivery_mode, final_price, payment_ref, sale_date, created_at
		FROM orders
		WHERE buyer_email = $1 AND sale_date >= $2 AND sale_date < $3
		ORDER BY sale_date
	`

	rows, err := tr.Conn(ctx, o.pool).Query(ctx, query, email, from, to)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	models, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[converter.OrderModel])
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	out := make([]*domain.Order, 0, len(models))
	for _, m := range models {
		out = append(out, o.conv.ToEntity(m))
	}

	return out, nil
}
