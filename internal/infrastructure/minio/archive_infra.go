package minio

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/usecase"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/jitter"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/logger"
	"github.com/google/uuid"
)

const (
	archiveContentType = "application/json"
	baseBackoff        = 200 * time.Millisecond
	maxBackoff         = 5 * time.Second
)

// ObjectStore — хранилище объектов архива.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ArchiveDocument — содержимое архивного объекта.
type ArchiveDocument struct {
	Reason     string             `json:"reason"`
	ArchivedAt time.Time          `json:"archivedAt"`
	Count      int                `json:"count"`
	Sales      []usecase.SaleInfo `json:"sales"`
}

// ArchiveInfrastructure сохраняет снимок продаж перед их удалением.
type ArchiveInfrastructure struct {
	store      ObjectStore
	logger     logger.Logger
	maxRetries int
	loc        *time.Location
	now        func() time.Time
	newID      func() string
}

func NewArchiveInfrastructure(store ObjectStore, maxRetries int, loc *time.Location, logger logger.Logger) *ArchiveInfrastructure {
	if maxRetries < 1 {
		maxRetries = 1
	}
	if loc == nil {
		loc = time.UTC
	}

	return &ArchiveInfrastructure{
		store:      store,
		logger:     logger,
		maxRetries: maxRetries,
		loc:        loc,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// ArchiveSales пишет документ sales/{reason}/{день}/{uuid}.json с повторами.
// Ошибка означает, что удалять продажи нельзя.
func (a *ArchiveInfrastructure) ArchiveSales(ctx context.Context, req *usecase.ArchiveSalesReq) (string, error) {
	const op = "ArchiveInfrastructure.ArchiveSales"

	now := a.now()
	doc := ArchiveDocument{
		Reason:     req.Reason,
		ArchivedAt: now,
		Count:      len(req.Sales),
		Sales:      make([]usecase.SaleInfo, 0, len(req.Sales)),
	}
	for _, s := range req.Sales {
		doc.Sales = append(doc.Sales, usecase.NewSaleInfo(s))
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", e.Wrap(op, err)
	}

	key := fmt.Sprintf("sales/%s/%s/%s.json", req.Reason, now.In(a.loc).Format("2006-01-02"), a.newID())

	var lastErr error
	for attempt := 0; attempt < a.maxRetries; attempt++ {
		stored, err := a.store.Put(ctx, key, data, archiveContentType)
		if err == nil {
			a.logger.Infof("archived %d sales to %s", doc.Count, stored)
			return stored, nil
		}
		lastErr = err
		a.logger.Warnf("archive attempt %d/%d for %s failed: %v", attempt+1, a.maxRetries, key, err)

		if attempt < a.maxRetries-1 {
			if err := jitter.Sleep(ctx, jitter.ExponentialBackoff(baseBackoff, maxBackoff, attempt, jitter.DefaultJitter)); err != nil {
				return "", e.Wrap(op, err)
			}
		}
	}

	return "", e.Wrap(op, lastErr)
}
