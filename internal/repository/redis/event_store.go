package redis

import (
	"context"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/cfg"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/clients"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/jimlawless/whereami"
)

const processedPrefix = "processed:"

// EventStore помнит обработанные позиции вебхуков в течение ProcessedEventTTL.
type EventStore struct {
	client *clients.RedisClient
	cfg    *cfg.RedisCfg
}

func NewEventStore(client *clients.RedisClient, cfg *cfg.RedisCfg) *EventStore {
	return &EventStore{
		client: client,
		cfg:    cfg,
	}
}

// Claim атомарно занимает ключ. false — ключ уже занят другой доставкой.
func (s *EventStore) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.Client.SetNX(ctx, processedPrefix+key, 1, s.cfg.ProcessedEventTTL).Result()
	if err != nil {
		return false, e.Wrap(whereami.WhereAmI(), err)
	}

	return ok, nil
}

// Release освобождает ключ, чтобы повторная доставка могла обработать позицию.
func (s *EventStore) Release(ctx context.Context, key string) error {
	if err := s.client.Client.Del(ctx, processedPrefix+key).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
