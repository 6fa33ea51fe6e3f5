// Package marketplace — HTTP-клиент объявлений маркетплейса.
package marketplace

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/cfg"
	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/logger"
	"github.com/go-resty/resty/v2"
	"github.com/jimlawless/whereami"
)

// коды ошибок, означающие что объявление уже снято
var alreadyEndedCodes = map[int]struct{}{
	25713: {}, // offer is not published
	25702: {}, // offer not found
}

type apiError struct {
	Errors []struct {
		ErrorID  int    `json:"errorId"`
		Message  string `json:"message"`
		Category string `json:"category"`
	} `json:"errors"`
}

func (a *apiError) alreadyEnded() bool {
	for _, er := range a.Errors {
		if _, ok := alreadyEndedCodes[er.ErrorID]; ok {
			return true
		}
	}
	return false
}

func (a *apiError) String() string {
	parts := make([]string, 0, len(a.Errors))
	for _, er := range a.Errors {
		parts = append(parts, fmt.Sprintf("%d: %s", er.ErrorID, er.Message))
	}
	return strings.Join(parts, "; ")
}

// Client снимает объявления маркетплейса с публикации.
type Client struct {
	http   *resty.Client
	logger logger.Logger
}

func NewClient(c *cfg.MarketplaceCfg, logger logger.Logger) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(c.BaseURL, "/")).
			SetTimeout(c.Timeout).
			SetAuthToken(c.AccessToken).
			SetHeader("Accept", "application/json").
			SetRetryCount(c.MaxRetries).
			SetRetryWaitTime(200 * time.Millisecond).
			SetRetryMaxWaitTime(3 * time.Second).
			AddRetryCondition(func(resp *resty.Response, err error) bool {
				if err != nil {
					return true
				}
				return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= http.StatusInternalServerError
			}),
		logger: logger,
	}
}

func (c *Client) Channel() domain.Channel {
	return domain.ChannelMarketplace
}

// Delist завершает объявление. Уже снятое или удалённое объявление — не ошибка.
func (c *Client) Delist(ctx context.Context, listingID string) error {
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("offerId", listingID).
		SetError(&apiErr).
		Post("/sell/inventory/v1/offer/{offerId}/withdraw")
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if resp.StatusCode() == http.StatusNotFound || (resp.IsError() && apiErr.alreadyEnded()) {
		c.logger.Infof("marketplace listing %s already ended", listingID)
		return nil
	}
	if resp.IsError() {
		msg := apiErr.String()
		if msg == "" {
			msg = resp.Status()
		}
		return e.Wrap(fmt.Sprintf("marketplace withdraw %s: %d %s", listingID, resp.StatusCode(), msg), e.ErrUpstreamChannel)
	}

	return nil
}
