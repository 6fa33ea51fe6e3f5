package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/spreadsheet"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/logger"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// ImportUseCase загружает продажи из таблицы сверки. Остатки товаров не меняются:
// таблица фиксирует продажи, уже списанные кассой или вручную.
type ImportUseCase struct {
	saleRepo    SaleRepository
	productRepo ProductRepository
	outboxRepo  OutboxRepository
	trm         TxManager
	snapshots   SnapshotProvider
	metrics     Metrics
	logger      logger.Logger
	loc         *time.Location
	maxRows     int

	now   func() time.Time
	newID func() string
}

func NewImportUseCase(
	saleRepo SaleRepository,
	productRepo ProductRepository,
	outboxRepo OutboxRepository,
	trm TxManager,
	snapshots SnapshotProvider,
	metrics Metrics,
	logger logger.Logger,
	loc *time.Location,
	maxRows int,
) *ImportUseCase {
	if metrics == nil {
		metrics = NopMetrics()
	}
	if loc == nil {
		loc = time.UTC
	}

	return &ImportUseCase{
		saleRepo:    saleRepo,
		productRepo: productRepo,
		outboxRepo:  outboxRepo,
		trm:         trm,
		snapshots:   snapshots,
		metrics:     metrics,
		logger:      logger,
		loc:         loc,
		maxRows:     maxRows,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

type importCandidate struct {
	index int
	row   spreadsheet.Row
	ref   string
}

func (u *ImportUseCase) Import(ctx context.Context, req *ImportReq) (*ImportRes, error) {
	const op = "ImportUseCase.Import"

	ctx, span := otel.Tracer(tracerName).Start(ctx, op)
	defer span.End()
	span.SetAttributes(attribute.Int("rows", len(req.Rows)))

	if u.maxRows > 0 && len(req.Rows) > u.maxRows {
		return nil, e.Wrap(op, fmt.Errorf("%w: %d > %d", e.ErrTooManyRows, len(req.Rows), u.maxRows))
	}

	res := &ImportRes{Errors: []ImportRowError{}}

	candidates := make([]importCandidate, 0, len(req.Rows))
	occurrences := make(map[string]int)
	for i, raw := range req.Rows {
		row, err := spreadsheet.ParseRow(raw, u.loc)
		if errors.Is(err, spreadsheet.ErrZeroPrice) {
			res.Skipped++
			continue
		}
		if err != nil {
			res.Errors = append(res.Errors, ImportRowError{Row: i, Error: err.Error()})
			continue
		}

		base := importRowKey(row, u.loc)
		occurrences[base]++
		candidates = append(candidates, importCandidate{
			index: i,
			row:   row,
			ref:   fmt.Sprintf("%s:%d", base, occurrences[base]),
		})
	}

	if len(candidates) == 0 {
		return res, nil
	}

	refs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		refs = append(refs, externalUnitRef(c.ref, 0))
	}
	existing, err := u.saleRepo.ExistsByExternalRef(ctx, refs)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	snap, err := snapshotFor(ctx, u.snapshots)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	now := u.now()
	var sales []*domain.Sale
	for _, c := range candidates {
		if existing[externalUnitRef(c.ref, 0)] {
			res.Skipped++
			continue
		}

		product, err := u.resolve(ctx, c.row)
		if err != nil {
			res.Errors = append(res.Errors, ImportRowError{Row: c.index, Error: err.Error()})
			continue
		}

		var dep *domain.Depositor
		if product != nil {
			if d, ok := snap.Lookup(product.Trigramme()); ok {
				dep = &d
			}
		}

		unit := domain.SplitUnitPrice(c.row.PriceMinor, c.row.Quantity)
		for k := 0; k < c.row.Quantity; k++ {
			s := domain.NewUnitSale(u.newID(), product, dep, domain.OriginImportedSpreadsheet, c.row.Date, unit, now)
			if product == nil {
				s.Name = c.row.Label
				if !c.row.SKUAmbiguous {
					s.SKU = c.row.SKU
				}
			}
			ref := externalUnitRef(c.ref, k)
			s.ExternalRef = &ref
			sales = append(sales, s)
		}
		res.Imported++
	}

	if len(sales) > 0 {
		err = u.trm.Do(ctx, func(ctx context.Context) error {
			return appendSales(ctx, u.saleRepo, u.outboxRepo, u.newID, u.now, sales)
		})
		if err != nil {
			return nil, e.Wrap(op, err)
		}
		u.metrics.SalesAppended(string(domain.OriginImportedSpreadsheet), len(sales))
	}

	u.logger.Infof("spreadsheet import: imported=%d skipped=%d errors=%d sales=%d",
		res.Imported, res.Skipped, len(res.Errors), len(sales))

	return res, nil
}

// resolve возвращает nil без ошибки, если товар не найден или артикул неоднозначен.
func (u *ImportUseCase) resolve(ctx context.Context, row spreadsheet.Row) (*domain.Product, error) {
	if row.SKU == "" || row.SKUAmbiguous {
		return nil, nil
	}

	p, err := u.productRepo.FindBySKU(ctx, row.SKU)
	if errors.Is(err, e.ErrProductNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// importRowKey — стабильный ключ строки: день, артикул или описание, сумма.
func importRowKey(row spreadsheet.Row, loc *time.Location) string {
	ident := row.SKU
	if ident == "" || row.SKUAmbiguous {
		ident = strings.ToLower(row.Label)
	}
	return fmt.Sprintf("sheet:%s:%s:%d", row.Date.In(loc).Format("2006-01-02"), ident, row.PriceMinor)
}
