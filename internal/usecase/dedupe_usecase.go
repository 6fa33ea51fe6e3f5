package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/logger"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const defaultDedupeBatch = 500

// DedupeUseCase удаляет непривязанные продажи, дублирующие привязанную продажу
// с той же ценой в тот же день.
type DedupeUseCase struct {
	saleRepo   SaleRepository
	outboxRepo OutboxRepository
	archive    ArchiveInfra
	trm        TxManager
	metrics    Metrics
	logger     logger.Logger
	loc        *time.Location
	batchSize  int

	now   func() time.Time
	newID func() string
}

func NewDedupeUseCase(
	saleRepo SaleRepository,
	outboxRepo OutboxRepository,
	archive ArchiveInfra,
	trm TxManager,
	metrics Metrics,
	logger logger.Logger,
	loc *time.Location,
	batchSize int,
) *DedupeUseCase {
	if batchSize <= 0 {
		batchSize = defaultDedupeBatch
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if loc == nil {
		loc = time.UTC
	}

	return &DedupeUseCase{
		saleRepo:   saleRepo,
		outboxRepo: outboxRepo,
		archive:    archive,
		trm:        trm,
		metrics:    metrics,
		logger:     logger,
		loc:        loc,
		batchSize:  batchSize,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

func (u *DedupeUseCase) Dedupe(ctx context.Context, req *DedupeReq) (*DedupeRes, error) {
	const op = "DedupeUseCase.Dedupe"

	ctx, span := otel.Tracer(tracerName).Start(ctx, op)
	defer span.End()
	span.SetAttributes(attribute.Bool("dry_run", req.DryRun), attribute.String("month", req.Month))

	var filter SaleFilter
	if req.Month != "" {
		from, to, err := ParseMonth(req.Month, u.loc)
		if err != nil {
			return nil, e.Wrap(op, err)
		}
		filter.From, filter.To = &from, &to
	}

	sales, err := u.saleRepo.List(ctx, filter)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	groups := PlanDedupe(sales, u.loc)
	res := &DedupeRes{DryRun: req.DryRun, Scanned: len(sales), Groups: groups}

	var doomedIDs []string
	for _, g := range groups {
		doomedIDs = append(doomedIDs, g.DeleteIDs...)
	}
	res.ToDelete = len(doomedIDs)

	if req.DryRun || len(doomedIDs) == 0 {
		u.logger.Infof("dedupe plan: scanned=%d groups=%d to_delete=%d dry_run=%t", res.Scanned, len(groups), res.ToDelete, req.DryRun)
		return res, nil
	}

	if u.archive == nil {
		return res, e.Wrap(op, e.ErrArchiveUnavailable)
	}

	doomed := make(map[string]struct{}, len(doomedIDs))
	for _, id := range doomedIDs {
		doomed[id] = struct{}{}
	}
	snapshot := make([]*domain.Sale, 0, len(doomedIDs))
	for _, s := range sales {
		if _, ok := doomed[s.ID]; ok {
			snapshot = append(snapshot, s)
		}
	}

	key, err := u.archive.ArchiveSales(ctx, NewArchiveSalesReq("dedupe", snapshot))
	if err != nil {
		return nil, e.Wrap(op, fmt.Errorf("archive duplicates: %w", err))
	}
	res.ArchiveKey = key

	for start := 0; start < len(doomedIDs); start += u.batchSize {
		end := min(start+u.batchSize, len(doomedIDs))
		batch := doomedIDs[start:end]

		var deleted int64
		err := u.trm.Do(ctx, func(ctx context.Context) error {
			n, err := u.saleRepo.DeleteBatch(ctx, batch)
			deleted = n
			return err
		})
		if err != nil {
			// уже удалённые пачки остаются удалёнными, повторный запуск доудалит остаток
			return res, e.Wrap(op, err)
		}
		res.Deleted += int(deleted)
	}

	err = u.trm.Do(ctx, func(ctx context.Context) error {
		return writeOutbox(ctx, u.outboxRepo, u.newID, u.now, domain.EventSalesDeduplicated, req.Month, DedupeEventPayload{
			Month:      req.Month,
			DeletedIDs: doomedIDs,
			ArchiveKey: res.ArchiveKey,
		})
	})
	if err != nil {
		u.logger.Errorf(err, "dedupe: failed to record outbox event")
	}

	u.metrics.SalesDeleted("dedupe", res.Deleted)
	u.logger.Infof("dedupe applied: scanned=%d groups=%d deleted=%d archive=%s", res.Scanned, len(groups), res.Deleted, res.ArchiveKey)

	return res, nil
}

type dedupeKey struct {
	day   string
	price int64
}

// PlanDedupe группирует продажи по (цена, день) и для смешанных групп оставляет
// первую привязанную продажу, помечая к удалению все непривязанные.
// Однородные группы не трогаются.
func PlanDedupe(sales []*domain.Sale, loc *time.Location) []DedupeGroup {
	buckets := make(map[dedupeKey][]*domain.Sale)
	for _, s := range sales {
		k := dedupeKey{day: s.DayKey(loc), price: s.RealizedPrice}
		buckets[k] = append(buckets[k], s)
	}

	var groups []DedupeGroup
	for k, members := range buckets {
		if len(members) < 2 {
			continue
		}

		var attributed, unattributed []*domain.Sale
		for _, s := range members {
			if s.Attribue {
				attributed = append(attributed, s)
			} else {
				unattributed = append(unattributed, s)
			}
		}
		if len(attributed) == 0 || len(unattributed) == 0 {
			continue
		}

		sortSales(attributed)
		sortSales(unattributed)

		g := DedupeGroup{
			Day:       k.day,
			Price:     k.price,
			Size:      len(members),
			KeepID:    attributed[0].ID,
			DeleteIDs: make([]string, 0, len(unattributed)),
		}
		for _, s := range unattributed {
			g.DeleteIDs = append(g.DeleteIDs, s.ID)
		}
		groups = append(groups, g)
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Day != groups[j].Day {
			return groups[i].Day < groups[j].Day
		}
		return groups[i].Price < groups[j].Price
	})

	return groups
}

func sortSales(sales []*domain.Sale) {
	sort.Slice(sales, func(i, j int) bool {
		if !sales[i].CreatedAt.Equal(sales[j].CreatedAt) {
			return sales[i].CreatedAt.Before(sales[j].CreatedAt)
		}
		return sales[i].ID < sales[j].ID
	})
}
