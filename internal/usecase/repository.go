package usecase

import (
	"context"
	"time"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
)

type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	FindByListingID(ctx context.Context, ch domain.Channel, listingID string) (*domain.Product, error)
	FindBySKU(ctx context.Context, sku string) (*domain.Product, error)
	// UpdateStock записывает складские поля, только если версия не изменилась.
	UpdateStock(ctx context.Context, product *domain.Product) error
}

type SaleRepository interface {
	CreateBatch(ctx context.Context, sales []*domain.Sale) error
	GetByID(ctx context.Context, id string) (*domain.Sale, error)
	UpdateAttribution(ctx context.Context, sale *domain.Sale) error
	Delete(ctx context.Context, id string) error
	DeleteBatch(ctx context.Context, ids []string) (int64, error)
	List(ctx context.Context, filter SaleFilter) ([]*domain.Sale, error)
	ExistsByExternalRef(ctx context.Context, refs []string) (map[string]bool, error)
}

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	ListByBuyerBetween(ctx context.Context, email string, from, to time.Time) ([]*domain.Order, error)
}

type DepositorRepository interface {
	List(ctx context.Context) ([]domain.Depositor, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, event *domain.OutboxEvent) (*domain.OutboxEvent, error)
	GetAndMarkAsProcessing(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkAsProcessed(ctx context.Context, id int64) error
}

type DepositorCacheRepository interface {
	GetDepositors(ctx context.Context) ([]domain.Depositor, bool, error)
	SetDepositors(ctx context.Context, deps []domain.Depositor) error
}

// EventStore хранит множество уже обработанных позиций вебхуков с TTL.
type EventStore interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type CheckoutSessionRepository interface {
	Save(ctx context.Context, session *domain.CheckoutSession) error
	Get(ctx context.Context, id string) (*domain.CheckoutSession, error)
	Delete(ctx context.Context, id string) error
}

type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}
