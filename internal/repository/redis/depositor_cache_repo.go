package redis

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/cfg"
	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/repository/redis/converter"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/clients"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/logger"
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

const depositorsKey = "depositors:all"

// DepositorCacheRepo кэширует реестр депонентов целиком одним JSON-ключом.
type DepositorCacheRepo struct {
	client *clients.RedisClient
	cfg    *cfg.RedisCfg
	logger logger.Logger
}

func NewDepositorCacheRepo(client *clients.RedisClient, cfg *cfg.RedisCfg, logger logger.Logger) *DepositorCacheRepo {
	return &DepositorCacheRepo{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// GetDepositors возвращает ok = false при промахе или повреждённом значении.
func (d *DepositorCacheRepo) GetDepositors(ctx context.Context) ([]domain.Depositor, bool, error) {
	data, err := d.client.Client.Get(ctx, depositorsKey).Bytes()
	if err != nil {
		if errors.Is(err, r.Nil) {
			return nil, false, nil
		}
		d.logger.Warnf("Redis GET failed: %v", e.Wrap(whereami.WhereAmI(), err))
		return nil, false, e.Wrap(whereami.WhereAmI(), err)
	}

	var models []converter.DepositorRedisModel
	if err := json.Unmarshal(data, &models); err != nil {
		d.logger.Warnf("Redis unmarshal failed: %v", e.Wrap(whereami.WhereAmI(), err))
		if err := d.client.Client.Del(ctx, depositorsKey).Err(); err != nil {
			d.logger.Warnf("Redis DEL failed: %v", e.Wrap(whereami.WhereAmI(), err))
		}
		return nil, false, nil
	}

	return converter.ToArrDepositor(models), true, nil
}

func (d *DepositorCacheRepo) SetDepositors(ctx context.Context, deps []domain.Depositor) error {
	data, err := json.Marshal(converter.ToArrDepositorRedisModel(deps))
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := d.client.Client.Set(ctx, depositorsKey, data, d.cfg.DepositorTTL).Err(); err != nil {
		d.logger.Warnf("Redis SET failed: %v", e.Wrap(whereami.WhereAmI(), err))
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
