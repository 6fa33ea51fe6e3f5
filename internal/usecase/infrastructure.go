package usecase

import (
	"context"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
)

// ChannelDelister снимает объявление с одного канала продаж.
type ChannelDelister interface {
	Channel() domain.Channel
	Delist(ctx context.Context, listingID string) error
}

// POSCatalog — часть API каталога кассы, нужная для сверки.
type POSCatalog interface {
	RetrieveCatalogObject(ctx context.Context, objectID string) (*CatalogObject, error)
	SetInventoryCount(ctx context.Context, variationID string, quantity int) error
}

// ArchiveInfra сохраняет снимки удаляемых продаж перед необратимыми операциями.
type ArchiveInfra interface {
	ArchiveSales(ctx context.Context, req *ArchiveSalesReq) (string, error)
}

type MessageProducer interface {
	WriteRawMessage(ctx context.Context, req *WriteRawMessageReq) error
}

// Metrics — счётчики, которые ведут сценарии.
type Metrics interface {
	WebhookLine(channel, outcome string)
	Delist(channel, outcome string)
	SalesAppended(origin string, n int)
	SalesDeleted(reason string, n int)
}

type nopMetrics struct{}

func (nopMetrics) WebhookLine(string, string) {}
func (nopMetrics) Delist(string, string)      {}
func (nopMetrics) SalesAppended(string, int)  {}
func (nopMetrics) SalesDeleted(string, int)   {}

// NopMetrics возвращает реализацию Metrics, которая ничего не считает.
func NopMetrics() Metrics { return nopMetrics{} }
