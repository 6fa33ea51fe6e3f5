package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/logger"
)

// DelistingDispatcher снимает товар с продажи во всех каналах, кроме канала-источника.
// Вызовы выполняются в фоне после коммита, ошибки только логируются.
type DelistingDispatcher struct {
	delisters map[domain.Channel]ChannelDelister
	order     []domain.Channel
	timeout   time.Duration
	metrics   Metrics
	logger    logger.Logger
	wg        sync.WaitGroup
}

func NewDelistingDispatcher(timeout time.Duration, metrics Metrics, logger logger.Logger, delisters ...ChannelDelister) *DelistingDispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if metrics == nil {
		metrics = NopMetrics()
	}

	d := &DelistingDispatcher{
		delisters: make(map[domain.Channel]ChannelDelister, len(delisters)),
		timeout:   timeout,
		metrics:   metrics,
		logger:    logger,
	}
	for _, dl := range delisters {
		if dl == nil {
			continue
		}
		if _, ok := d.delisters[dl.Channel()]; !ok {
			d.order = append(d.order, dl.Channel())
		}
		d.delisters[dl.Channel()] = dl
	}

	return d
}

// Dispatch запускает снятие объявлений и возвращает число каналов, куда ушёл запрос.
func (d *DelistingDispatcher) Dispatch(product *domain.Product, origin domain.SaleOrigin) int {
	if product == nil || !product.Sold || product.Quantity != 0 {
		return 0
	}

	originChannel, hasOrigin := origin.Channel()
	dispatched := 0

	for _, ch := range d.order {
		if hasOrigin && ch == originChannel {
			continue
		}

		listingID, ok := product.ListingID(ch)
		if !ok {
			continue
		}

		delister := d.delisters[ch]
		productID := product.ID
		dispatched++

		d.Go(fmt.Sprintf("delist %s on %s", productID, ch), func(ctx context.Context) error {
			if err := delister.Delist(ctx, listingID); err != nil {
				d.metrics.Delist(string(ch), "error")
				return e.Wrap(string(ch), fmt.Errorf("%w: %v", e.ErrUpstreamChannel, err))
			}
			d.metrics.Delist(string(ch), "ok")
			d.logger.Infof("product %s delisted on %s (listing %s)", productID, ch, listingID)
			return nil
		})
	}

	return dispatched
}

// Go выполняет вызов внешнего канала в фоне с собственным таймаутом.
func (d *DelistingDispatcher) Go(name string, fn func(ctx context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Errorf(fmt.Errorf("panic: %v", r), "channel call %q panicked", name)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			d.logger.Errorf(err, "channel call %q failed", name)
		}
	}()
}

// Wait ожидает завершения фоновых вызовов с учётом таймаута остановки приложения.
func (d *DelistingDispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("channel calls still running during shutdown: %w", ctx.Err())
	}
}
