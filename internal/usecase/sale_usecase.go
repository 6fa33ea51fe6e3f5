package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/logger"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// SaleUseCase — операции оператора над журналом продаж: ручная привязка, удаление, выборка.
type SaleUseCase struct {
	saleRepo    SaleRepository
	productRepo ProductRepository
	outboxRepo  OutboxRepository
	engine      *DispositionEngine
	dispatcher  *DelistingDispatcher
	archive     ArchiveInfra
	catalog     POSCatalog
	trm         TxManager
	snapshots   SnapshotProvider
	metrics     Metrics
	logger      logger.Logger

	now   func() time.Time
	newID func() string
}

func NewSaleUseCase(
	saleRepo SaleRepository,
	productRepo ProductRepository,
	outboxRepo OutboxRepository,
	engine *DispositionEngine,
	dispatcher *DelistingDispatcher,
	archive ArchiveInfra,
	catalog POSCatalog,
	trm TxManager,
	snapshots SnapshotProvider,
	metrics Metrics,
	logger logger.Logger,
) *SaleUseCase {
	if metrics == nil {
		metrics = NopMetrics()
	}

	return &SaleUseCase{
		saleRepo:    saleRepo,
		productRepo: productRepo,
		outboxRepo:  outboxRepo,
		engine:      engine,
		dispatcher:  dispatcher,
		archive:     archive,
		catalog:     catalog,
		trm:         trm,
		snapshots:   snapshots,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Attribute привязывает продажу к товару и списывает одну единицу.
// Повторная привязка уже привязанной продажи возможна только с Force.
func (u *SaleUseCase) Attribute(ctx context.Context, req *AttributeReq) (*AttributeRes, error) {
	const op = "SaleUseCase.Attribute"

	ctx, span := otel.Tracer(tracerName).Start(ctx, op)
	defer span.End()
	span.SetAttributes(attribute.String("sale.id", req.SaleID), attribute.String("product.id", req.ProduitID))

	if strings.TrimSpace(req.SaleID) == "" || strings.TrimSpace(req.ProduitID) == "" {
		return nil, e.Wrap(op, e.ErrMissingFields)
	}

	sale, err := u.saleRepo.GetByID(ctx, req.SaleID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if sale.Attribue && !req.Force {
		return nil, e.Wrap(op, e.ErrAlreadyAttributed)
	}

	snap, err := snapshotFor(ctx, u.snapshots)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	var attributed *domain.Sale
	res, err := u.engine.Apply(ctx, &DispositionReq{
		ProductID: req.ProduitID,
		Intent: domain.SaleIntent{
			ExternalLineItemRef: sale.ID,
			QuantitySold:        1,
			UnitPriceMinor:      sale.RealizedPrice,
			TotalPriceMinor:     sale.RealizedPrice,
		},
		Origin:   domain.OriginManualAttribution,
		SaleDate: sale.SaleDate,
		InTx: func(ctx context.Context, dr *DispositionRes) error {
			// перечитываем в транзакции: продажу мог привязать другой оператор
			s, err := u.saleRepo.GetByID(ctx, req.SaleID)
			if err != nil {
				return err
			}
			if s.Attribue && !req.Force {
				return e.ErrAlreadyAttributed
			}
			if s.Attribue && s.ProduitID != nil && *s.ProduitID != dr.Product.ID {
				u.logger.Warnf("sale %s reassigned from product %s to %s; previous product stock is left unchanged",
					s.ID, *s.ProduitID, dr.Product.ID)
			}

			var dep *domain.Depositor
			if d, ok := snap.Lookup(dr.Product.Trigramme()); ok {
				dep = &d
			}
			s.AttributeTo(dr.Product, dep, u.now())

			if err := u.saleRepo.UpdateAttribution(ctx, s); err != nil {
				return err
			}
			attributed = s

			return writeOutbox(ctx, u.outboxRepo, u.newID, u.now, domain.EventSaleAttributed, s.ID, NewSaleEventPayload(s))
		},
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	out := &AttributeRes{
		Sale:     NewSaleInfo(attributed),
		Quantity: res.Product.Quantity,
		Sold:     res.Product.Sold,
		Status:   res.Product.Status,
	}
	if res.Delist && u.dispatcher != nil {
		out.Delisted = u.dispatcher.Dispatch(res.Product, domain.OriginManualAttribution)
	}

	u.logger.Infof("sale %s attributed to product %s (quantity=%d sold=%t)", attributed.ID, res.Product.ID, out.Quantity, out.Sold)
	return out, nil
}

// Delete архивирует продажу и удаляет её; с Restock возвращает единицу товара на склад.
func (u *SaleUseCase) Delete(ctx context.Context, req *DeleteSaleReq) error {
	const op = "SaleUseCase.Delete"

	ctx, span := otel.Tracer(tracerName).Start(ctx, op)
	defer span.End()
	span.SetAttributes(attribute.String("sale.id", req.SaleID), attribute.Bool("restock", req.Restock))

	if strings.TrimSpace(req.SaleID) == "" {
		return e.Wrap(op, e.ErrMissingFields)
	}

	sale, err := u.saleRepo.GetByID(ctx, req.SaleID)
	if err != nil {
		return e.Wrap(op, err)
	}

	if u.archive == nil {
		return e.Wrap(op, e.ErrArchiveUnavailable)
	}
	key, err := u.archive.ArchiveSales(ctx, NewArchiveSalesReq("delete", []*domain.Sale{sale}))
	if err != nil {
		return e.Wrap(op, fmt.Errorf("archive sale before delete: %w", err))
	}
	u.logger.Debugf("sale %s archived to %s", sale.ID, key)

	payload := NewSaleEventPayload(sale)
	deleteInTx := func(ctx context.Context) error {
		if err := u.saleRepo.Delete(ctx, sale.ID); err != nil {
			return err
		}
		return writeOutbox(ctx, u.outboxRepo, u.newID, u.now, domain.EventSaleDeleted, sale.ID, payload)
	}

	if req.Restock && sale.ProduitID != nil {
		payload.Restocked = true
		product, err := u.engine.Restock(ctx, &RestockReq{
			ProductID: *sale.ProduitID,
			InTx: func(ctx context.Context, _ *domain.Product) error {
				return deleteInTx(ctx)
			},
		})
		switch {
		case err == nil:
			u.pushInventory(product)
			u.metrics.SalesDeleted("manual", 1)
			u.logger.Infof("sale %s deleted, product %s restocked to %d", sale.ID, product.ID, product.Quantity)
			return nil
		case errors.Is(err, e.ErrProductNotFound):
			u.logger.Warnf("sale %s: product %s no longer exists, deleting without restock", sale.ID, *sale.ProduitID)
			payload.Restocked = false
		default:
			return e.Wrap(op, err)
		}
	}

	if err := u.trm.Do(ctx, deleteInTx); err != nil {
		return e.Wrap(op, err)
	}

	u.metrics.SalesDeleted("manual", 1)
	u.logger.Infof("sale %s deleted", sale.ID)
	return nil
}

// pushInventory отправляет новый остаток в кассу после коммита, ошибки только логируются.
func (u *SaleUseCase) pushInventory(product *domain.Product) {
	if u.catalog == nil || u.dispatcher == nil || product.PosVariationID == nil || *product.PosVariationID == "" {
		return
	}

	variationID, qty := *product.PosVariationID, product.Quantity
	u.dispatcher.Go(fmt.Sprintf("pos inventory %s", variationID), func(ctx context.Context) error {
		return u.catalog.SetInventoryCount(ctx, variationID, qty)
	})
}

func (u *SaleUseCase) List(ctx context.Context, filter SaleFilter) ([]SaleInfo, error) {
	const op = "SaleUseCase.List"

	sales, err := u.saleRepo.List(ctx, filter)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	out := make([]SaleInfo, 0, len(sales))
	for _, s := range sales {
		out = append(out, NewSaleInfo(s))
	}
	return out, nil
}
