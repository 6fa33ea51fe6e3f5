package kafka

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/usecase"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/logger"
	"github.com/jackc/pgx/v5"
)

const (
	notifyChannel    = "outbox_pending"
	staleAfterSecond = 60
	defaultBatchSize = 100
	defaultPoll      = 5 * time.Second
)

// OutboxStore — хранилище outbox, которым пользуется воркер.
type OutboxStore interface {
	usecase.OutboxRepository
	RequeueStale(ctx context.Context, olderThanSeconds int) (int64, error)
}

// OutboxWorker переносит события журнала продаж из outbox_events в Kafka.
// Пачка забирается по NOTIFY outbox_pending и по таймеру.
type OutboxWorker struct {
	repo      OutboxStore
	logger    logger.Logger
	producer  usecase.MessageProducer
	dbConnStr string
	batchSize int
	poll      time.Duration

	wake chan struct{}
	wg   sync.WaitGroup
}

func NewOutboxWorker(
	repo OutboxStore,
	logger logger.Logger,
	producer usecase.MessageProducer,
	dbConnStr string,
	batchSize int,
	poll time.Duration,
) *OutboxWorker {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if poll <= 0 {
		poll = defaultPoll
	}

	return &OutboxWorker{
		repo:      repo,
		logger:    logger,
		producer:  producer,
		dbConnStr: dbConnStr,
		batchSize: batchSize,
		poll:      poll,
		wake:      make(chan struct{}, 1),
	}
}

// Start запускает воркер до отмены ctx.
func (w *OutboxWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()

	if w.dbConnStr != "" {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.listen(ctx)
		}()
	}
}

// Wait ждёт остановки всех горутин воркера.
func (w *OutboxWorker) Wait() {
	w.wg.Wait()
}

func (w *OutboxWorker) run(ctx context.Context) {
	w.logger.Infof("Draining pending outbox events on startup...")
	w.drain(ctx)

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Infof("Outbox worker stopped by context cancellation")
			return
		case <-ticker.C:
			if n, err := w.repo.RequeueStale(ctx, staleAfterSecond); err != nil {
				w.logger.Warnf("requeue stale outbox events failed: %v", err)
			} else if n > 0 {
				w.logger.Infof("requeued %d stale outbox events", n)
			}
			w.drain(ctx)
		case <-w.wake:
			w.drain(ctx)
		}
	}
}

func (w *OutboxWorker) drain(ctx context.Context) {
	for {
		hasMore, err := w.processBatch(ctx)
		if err != nil {
			if ctx.Err() == nil {
				w.logger.Warnf("outbox batch failed: %v", err)
			}
			return
		}
		if !hasMore {
			return
		}
	}
}

func (w *OutboxWorker) listen(ctx context.Context) {
	var conn *pgx.Conn

	connect := func() error {
		var err error
		conn, err = pgx.Connect(ctx, w.dbConnStr)
		if err != nil {
			return e.Wrap("failed to connect for LISTEN", err)
		}

		if _, err = conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
			_ = conn.Close(ctx)
			return e.Wrap("failed to LISTEN", err)
		}

		w.logger.Infof("Subscribed to '%s' channel", notifyChannel)
		return nil
	}

	if err := connect(); err != nil {
		w.logger.Warnf("LISTEN connect failed, falling back to polling: %v", err)
		return
	}
	defer func() { _ = conn.Close(context.Background()) }()

	for ctx.Err() == nil {
		waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		notif, err := conn.WaitForNotification(waitCtx)
		cancel()

		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				continue
			}
			w.logger.Warnf("LISTEN connection lost: %v. Reconnecting...", err)
			_ = conn.Close(ctx)

			if !sleepCtx(ctx, 2*time.Second) {
				return
			}
			if err := connect(); err != nil {
				w.logger.Warnf("Reconnect failed: %v", err)
				if !sleepCtx(ctx, 5*time.Second) {
					return
				}
			}
			continue
		}

		if notif != nil && notif.Channel == notifyChannel {
			select {
			case w.wake <- struct{}{}:
			default:
			}
		}
	}
}

// processBatch публикует одну пачку. hasMore = true, если пачка была полной.
func (w *OutboxWorker) processBatch(ctx context.Context) (bool, error) {
	events, err := w.repo.GetAndMarkAsProcessing(ctx, w.batchSize)
	if err != nil {
		return false, err
	}

	if len(events) == 0 {
		return false, nil
	}

	for _, event := range events {
		if err := w.publish(ctx, event); err != nil {
			// событие останется в processing и вернётся в очередь через RequeueStale
			w.logger.Warnf("publish outbox event %s failed: %v", event.EventID, err)
			if isRetryableError(err) {
				return false, err
			}
			continue
		}
		if err := w.repo.MarkAsProcessed(ctx, event.ID); err != nil {
			w.logger.Warnf("mark processed failed: %v", err)
		}
	}

	return len(events) == w.batchSize, nil
}

func (w *OutboxWorker) publish(ctx context.Context, event *domain.OutboxEvent) error {
	req := usecase.NewWriteRawMessageReq(event.AggregateID, event.Payload)
	req.Headers = map[string]string{
		"event_id":   event.EventID,
		"event_type": string(event.EventType),
	}

	return w.producer.WriteRawMessage(ctx, req)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	for _, phrase := range []string{
		"connection refused",
		"i/o timeout",
		"network is unreachable",
		"broker not available",
		"connection reset",
		"broken pipe",
		"no such host",
	} {
		if strings.Contains(errStr, phrase) {
			return true
		}
	}
	return false
}
