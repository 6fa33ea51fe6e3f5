package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/jitter"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/logger"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const tracerName = "github.com/NouvelleRive/nouvelle-rive-sub001/internal/usecase"

// DispositionEngine применяет продажу к товару: списывает остаток, определяет
// статус по политике депонента и дописывает продажи в журнал в одной транзакции.
type DispositionEngine struct {
	productRepo ProductRepository
	saleRepo    SaleRepository
	outboxRepo  OutboxRepository
	trm         TxManager
	snapshots   SnapshotProvider
	metrics     Metrics
	logger      logger.Logger

	maxAttempts int
	backoffBase time.Duration
	backoffMax  time.Duration

	now   func() time.Time
	newID func() string
}

func NewDispositionEngine(
	productRepo ProductRepository,
	saleRepo SaleRepository,
	outboxRepo OutboxRepository,
	trm TxManager,
	snapshots SnapshotProvider,
	metrics Metrics,
	logger logger.Logger,
	maxAttempts int,
) *DispositionEngine {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if metrics == nil {
		metrics = NopMetrics()
	}

	return &DispositionEngine{
		productRepo: productRepo,
		saleRepo:    saleRepo,
		outboxRepo:  outboxRepo,
		trm:         trm,
		snapshots:   snapshots,
		metrics:     metrics,
		logger:      logger,
		maxAttempts: maxAttempts,
		backoffBase: 20 * time.Millisecond,
		backoffMax:  500 * time.Millisecond,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Apply списывает intent.QuantitySold единиц товара.
// Запись товара условная (по версии); при конфликте товар перечитывается и попытка повторяется.
func (d *DispositionEngine) Apply(ctx context.Context, req *DispositionReq) (*DispositionRes, error) {
	const op = "DispositionEngine.Apply"

	ctx, span := otel.Tracer(tracerName).Start(ctx, op)
	defer span.End()
	span.SetAttributes(
		attribute.String("product.id", req.ProductID),
		attribute.String("sale.origin", string(req.Origin)),
		attribute.Int("sale.quantity", req.Intent.QuantitySold),
	)

	if req.Intent.QuantitySold < 1 {
		return nil, e.Wrap(op, e.ErrInvalidQuantity)
	}

	snap, err := snapshotFor(ctx, d.snapshots)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	var res *DispositionRes
	for attempt := 0; attempt < d.maxAttempts; attempt++ {
		res, err = d.applyOnce(ctx, req, snap)
		if err == nil {
			if req.AppendSales {
				d.metrics.SalesAppended(string(req.Origin), len(res.Sales))
			}
			return res, nil
		}

		if !errors.Is(err, e.ErrVersionConflict) {
			return nil, e.Wrap(op, err)
		}

		wait := jitter.ExponentialBackoff(d.backoffBase, d.backoffMax, attempt, jitter.DefaultJitter)
		d.logger.Warnf("product %s version conflict, retrying in %v (attempt %d)", req.ProductID, wait, attempt+1)
		if err := jitter.Sleep(ctx, wait); err != nil {
			return nil, e.Wrap(op, err)
		}
	}

	return nil, e.Wrap(op, fmt.Errorf("all %d attempts failed: %w", d.maxAttempts, e.ErrVersionConflict))
}

func (d *DispositionEngine) applyOnce(ctx context.Context, req *DispositionReq, snap *domain.DepositorSnapshot) (*DispositionRes, error) {
	var res *DispositionRes

	err := d.trm.Do(ctx, func(ctx context.Context) error {
		product, err := d.productRepo.GetByID(ctx, req.ProductID)
		if err != nil {
			return err
		}

		now := d.now()
		saleDate := req.SaleDate
		if saleDate.IsZero() {
			saleDate = now
		}

		unitPrice := req.Intent.UnitPriceMinor
		if unitPrice == 0 && req.Intent.TotalPriceMinor > 0 {
			unitPrice = domain.SplitUnitPrice(req.Intent.TotalPriceMinor, req.Intent.QuantitySold)
		}

		policy := snap.PolicyFor(product.SKUValue())
		delist := product.ApplySale(req.Intent.QuantitySold, unitPrice, policy, saleDate)

		if err := d.productRepo.UpdateStock(ctx, product); err != nil {
			return err
		}

		res = &DispositionRes{Product: product, Policy: policy, Delist: delist}

		if req.AppendSales {
			dep, _ := snap.Lookup(product.Trigramme())
			res.Sales = d.buildSales(product, &dep, req, saleDate, unitPrice, now)
			if err := d.appendSales(ctx, res.Sales); err != nil {
				return err
			}
		}

		if req.InTx != nil {
			if err := req.InTx(ctx, res); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// buildSales разворачивает продажу N единиц в N записей по цене за единицу.
func (d *DispositionEngine) buildSales(product *domain.Product, dep *domain.Depositor, req *DispositionReq, saleDate time.Time, unitPrice int64, now time.Time) []*domain.Sale {
	if dep.Trigramme == "" {
		dep = nil
	}

	sales := make([]*domain.Sale, 0, req.Intent.QuantitySold)
	for i := 0; i < req.Intent.QuantitySold; i++ {
		sale := domain.NewUnitSale(d.newID(), product, dep, req.Origin, saleDate, unitPrice, now)
		if req.Intent.ChannelOrderID != "" || req.Intent.ExternalLineItemRef != "" {
			ref := externalUnitRef(req.Intent.ExternalRef(), i)
			sale.ExternalRef = &ref
		}
		sales = append(sales, sale)
	}

	return sales
}

// appendSales записывает продажи и события outbox в текущей транзакции.
func (d *DispositionEngine) appendSales(ctx context.Context, sales []*domain.Sale) error {
	return appendSales(ctx, d.saleRepo, d.outboxRepo, d.newID, d.now, sales)
}

func appendSales(
	ctx context.Context,
	saleRepo SaleRepository,
	outboxRepo OutboxRepository,
	newID func() string,
	now func() time.Time,
	sales []*domain.Sale,
) error {
	if len(sales) == 0 {
		return nil
	}

	if err := saleRepo.CreateBatch(ctx, sales); err != nil {
		return err
	}

	for _, s := range sales {
		if err := writeOutbox(ctx, outboxRepo, newID, now, domain.EventSaleRecorded, s.ID, NewSaleEventPayload(s)); err != nil {
			return err
		}
	}

	return nil
}

func writeOutbox(
	ctx context.Context,
	outboxRepo OutboxRepository,
	newID func() string,
	now func() time.Time,
	eventType domain.OutboxEventType,
	aggregateID string,
	payload any,
) error {
	if outboxRepo == nil {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return e.Wrap("writeOutbox", err)
	}

	_, err = outboxRepo.Create(ctx, &domain.OutboxEvent{
		EventID:     newID(),
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     data,
		Status:      domain.OutboxPending,
		CreatedAt:   now(),
	})
	return err
}

// RestockReq — возврат единицы товара на склад.
type RestockReq struct {
	ProductID string
	InTx      func(ctx context.Context, product *domain.Product) error
}

// Restock возвращает одну единицу товара на склад с той же защитой от гонок, что и Apply.
func (d *DispositionEngine) Restock(ctx context.Context, req *RestockReq) (*domain.Product, error) {
	const op = "DispositionEngine.Restock"

	for attempt := 0; attempt < d.maxAttempts; attempt++ {
		var product *domain.Product
		err := d.trm.Do(ctx, func(ctx context.Context) error {
			p, err := d.productRepo.GetByID(ctx, req.ProductID)
			if err != nil {
				return err
			}
			p.Restock()
			if err := d.productRepo.UpdateStock(ctx, p); err != nil {
				return err
			}
			product = p

			if req.InTx != nil {
				return req.InTx(ctx, p)
			}
			return nil
		})
		if err == nil {
			return product, nil
		}
		if !errors.Is(err, e.ErrVersionConflict) {
			return nil, e.Wrap(op, err)
		}

		if err := jitter.Sleep(ctx, jitter.ExponentialBackoff(d.backoffBase, d.backoffMax, attempt, jitter.DefaultJitter)); err != nil {
			return nil, e.Wrap(op, err)
		}
	}

	return nil, e.Wrap(op, e.ErrVersionConflict)
}
