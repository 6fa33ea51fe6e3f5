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
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

const checkoutPrefix = "checkout:"

// CheckoutSessionRepo хранит рассчитанные цены оформления заказа до оплаты.
type CheckoutSessionRepo struct {
	client *clients.RedisClient
	cfg    *cfg.RedisCfg
}

func NewCheckoutSessionRepo(client *clients.RedisClient, cfg *cfg.RedisCfg) *CheckoutSessionRepo {
	return &CheckoutSessionRepo{
		client: client,
		cfg:    cfg,
	}
}

func (c *CheckoutSessionRepo) Save(ctx context.Context, session *domain.CheckoutSession) error {
	data, err := json.Marshal(converter.ToCheckoutSessionRedisModel(session))
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := c.client.Client.Set(ctx, checkoutPrefix+session.ID, data, c.cfg.CheckoutTTL).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (c *CheckoutSessionRepo) Get(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	data, err := c.client.Client.Get(ctx, checkoutPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, r.Nil) {
			return nil, e.Wrap(whereami.WhereAmI(), e.ErrCheckoutSessionNotFound)
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	var model converter.CheckoutSessionRedisModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return converter.ToCheckoutSession(&model), nil
}

func (c *CheckoutSessionRepo) Delete(ctx context.Context, id string) error {
	if err := c.client.Client.Del(ctx, checkoutPrefix+id).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
