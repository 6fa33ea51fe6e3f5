package pgdb

import (
	"context"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/repository/pgdb/converter"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/tr"
	"github.com/jackc/pgx/v5"
	"github.com/jimlawless/whereami"
)

type DepositorRepo struct {
	pool tr.DBTX
}

func NewDepositorRepo(pool tr.DBTX) *DepositorRepo {
	return &DepositorRepo{pool: pool}
}

func (d *DepositorRepo) List(ctx context.Context) ([]domain.Depositor, error) {
	rows, err := tr.Conn(ctx, d.pool).Query(ctx, `SELECT trigramme, name, email, policy FROM depositors ORDER BY trigramme`)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	models, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[converter.DepositorModel])
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	out := make([]domain.Depositor, 0, len(models))
	for _, m := range models {
		out = append(out, converter.DepositorToEntity(m))
	}

	return out, nil
}
