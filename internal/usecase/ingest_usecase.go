package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/spreadsheet"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/logger"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	outcomeProcessed  = "processed"
	outcomeDuplicate  = "duplicate"
	outcomeUnresolved = "unresolved"
	outcomeFailed     = "failed"
)

// IngestUseCase применяет позиции декодированного вебхука к складу.
// Каждая позиция обрабатывается независимо: ошибка одной не прерывает остальные.
type IngestUseCase struct {
	engine      *DispositionEngine
	dispatcher  *DelistingDispatcher
	productRepo ProductRepository
	saleRepo    SaleRepository
	outboxRepo  OutboxRepository
	events      EventStore
	catalog     POSCatalog
	trm         TxManager
	metrics     Metrics
	logger      logger.Logger

	now   func() time.Time
	newID func() string
}

func NewIngestUseCase(
	engine *DispositionEngine,
	dispatcher *DelistingDispatcher,
	productRepo ProductRepository,
	saleRepo SaleRepository,
	outboxRepo OutboxRepository,
	events EventStore,
	catalog POSCatalog,
	trm TxManager,
	metrics Metrics,
	logger logger.Logger,
) *IngestUseCase {
	if metrics == nil {
		metrics = NopMetrics()
	}

	return &IngestUseCase{
		engine:      engine,
		dispatcher:  dispatcher,
		productRepo: productRepo,
		saleRepo:    saleRepo,
		outboxRepo:  outboxRepo,
		events:      events,
		catalog:     catalog,
		trm:         trm,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Process никогда не возвращает ошибку: вебхук подтверждается всегда, итог только логируется.
func (u *IngestUseCase) Process(ctx context.Context, req *IngestReq) *IngestRes {
	const op = "IngestUseCase.Process"

	res := &IngestRes{}
	ev := req.Event
	if ev == nil || ev.Kind != domain.SaleEventSale {
		res.Ignored = true
		if ev != nil {
			u.logger.Debugf("%s: %s event %q ignored: %s", op, ev.Channel, ev.Type, ev.Reason)
		}
		return res
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, op)
	defer span.End()
	span.SetAttributes(
		attribute.String("channel", string(ev.Channel)),
		attribute.String("order.id", ev.OrderID),
		attribute.Int("order.lines", len(ev.Lines)),
	)

	log := u.logger.With("channel", string(ev.Channel)).With("order_id", ev.OrderID)

	for _, line := range ev.Lines {
		outcome, delisted := u.processLine(ctx, ev.Channel, line, log)
		u.metrics.WebhookLine(string(ev.Channel), outcome)

		switch outcome {
		case outcomeProcessed:
			res.Processed++
			res.Delisted += delisted
		case outcomeDuplicate:
			res.Duplicates++
		case outcomeUnresolved:
			res.Unresolved++
		default:
			res.Failed++
		}
	}

	log.Infof("webhook processed: processed=%d duplicates=%d unresolved=%d failed=%d delisted=%d",
		res.Processed, res.Duplicates, res.Unresolved, res.Failed, res.Delisted)

	return res
}

func (u *IngestUseCase) processLine(ctx context.Context, ch domain.Channel, line domain.SaleIntent, log logger.Logger) (string, int) {
	key := webhookClaimKey(ch, line)

	claimed, err := u.claim(ctx, key)
	if err != nil {
		log.Warnf("processed-event store unavailable, continuing without idempotency: %v", err)
		claimed = true
	}
	if !claimed {
		log.Infof("line %s already processed, skipping", line.ExternalLineItemRef)
		return outcomeDuplicate, 0
	}

	origin := domain.OriginForChannel(ch)

	product, err := u.resolve(ctx, ch, line, log)
	if err != nil {
		if errors.Is(err, e.ErrUnresolvedProduct) || errors.Is(err, e.ErrAmbiguousMatch) {
			if werr := u.recordUnattributed(ctx, origin, line); werr != nil {
				log.Errorf(werr, "line %s: failed to record unattributed sale", line.ExternalLineItemRef)
				u.release(ctx, key, log)
				return outcomeFailed, 0
			}
			log.Warnf("line %s (%q): %v, recorded as unattributed", line.ExternalLineItemRef, line.Name, err)
			return outcomeUnresolved, 0
		}

		log.Errorf(err, "line %s: product lookup failed", line.ExternalLineItemRef)
		u.release(ctx, key, log)
		return outcomeFailed, 0
	}

	res, err := u.engine.Apply(ctx, &DispositionReq{
		ProductID:   product.ID,
		Intent:      line,
		Origin:      origin,
		AppendSales: true,
	})
	if err != nil {
		log.Errorf(err, "line %s: disposition of product %s failed", line.ExternalLineItemRef, product.ID)
		u.release(ctx, key, log)
		return outcomeFailed, 0
	}

	delisted := 0
	if res.Delist && u.dispatcher != nil {
		delisted = u.dispatcher.Dispatch(res.Product, origin)
	}

	return outcomeProcessed, delisted
}

// resolve ищет товар: по id объявления, затем по родительскому товару кассы, затем по артикулу.
func (u *IngestUseCase) resolve(ctx context.Context, ch domain.Channel, line domain.SaleIntent, log logger.Logger) (*domain.Product, error) {
	skuHint := line.SKUHint

	if line.ChannelObjectID != "" {
		p, err := u.productRepo.FindByListingID(ctx, ch, line.ChannelObjectID)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, e.ErrProductNotFound) {
			return nil, err
		}

		if ch == domain.ChannelPOS && u.catalog != nil {
			obj, err := u.catalog.RetrieveCatalogObject(ctx, line.ChannelObjectID)
			switch {
			case err != nil:
				log.Warnf("catalog lookup of %s failed: %v", line.ChannelObjectID, err)
			case obj != nil:
				if obj.ParentItemID != "" {
					p, err := u.productRepo.FindByListingID(ctx, ch, obj.ParentItemID)
					if err == nil {
						return p, nil
					}
					if !errors.Is(err, e.ErrProductNotFound) {
						return nil, err
					}
				}
				if skuHint == "" {
					skuHint = obj.SKU
				}
			}
		}
	}

	if skuHint == "" {
		sku, ambiguous := spreadsheet.ExtractSKU(line.Name)
		if ambiguous {
			return nil, e.Wrap(line.Name, e.ErrAmbiguousMatch)
		}
		skuHint = sku
	}

	if skuHint != "" {
		p, err := u.productRepo.FindBySKU(ctx, spreadsheet.NormalizeSKU(skuHint))
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, e.ErrProductNotFound) {
			return nil, err
		}
	}

	return nil, e.ErrUnresolvedProduct
}

// recordUnattributed записывает непривязанные продажи, чтобы оператор мог привязать их вручную.
func (u *IngestUseCase) recordUnattributed(ctx context.Context, origin domain.SaleOrigin, line domain.SaleIntent) error {
	now := u.now()
	unit := line.UnitPriceMinor
	if unit == 0 {
		unit = domain.SplitUnitPrice(line.TotalPriceMinor, line.QuantitySold)
	}

	sales := make([]*domain.Sale, 0, line.QuantitySold)
	for i := 0; i < line.QuantitySold; i++ {
		s := domain.NewUnitSale(u.newID(), nil, nil, origin, now, unit, now)
		s.Name = line.Name
		s.SKU = spreadsheet.NormalizeSKU(line.SKUHint)
		ref := externalUnitRef(line.ExternalRef(), i)
		s.ExternalRef = &ref
		sales = append(sales, s)
	}

	err := u.trm.Do(ctx, func(ctx context.Context) error {
		return appendSales(ctx, u.saleRepo, u.outboxRepo, u.newID, u.now, sales)
	})
	if err != nil {
		return err
	}

	u.metrics.SalesAppended(string(origin), len(sales))
	return nil
}

func (u *IngestUseCase) claim(ctx context.Context, key string) (bool, error) {
	if u.events == nil {
		return true, nil
	}
	return u.events.Claim(ctx, key)
}

func (u *IngestUseCase) release(ctx context.Context, key string, log logger.Logger) {
	if u.events == nil {
		return
	}
	if err := u.events.Release(ctx, key); err != nil {
		log.Warnf("failed to release claim %s: %v", key, err)
	}
}
