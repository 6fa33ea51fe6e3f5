// Package pos — HTTP-клиент каталога и остатков кассы.
package pos

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/cfg"
	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/usecase"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/logger"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/jimlawless/whereami"
)

const (
	objectTypeItem      = "ITEM"
	objectTypeVariation = "ITEM_VARIATION"
)

type catalogObject struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	ItemData *struct {
		Name string `json:"name"`
	} `json:"item_data,omitempty"`
	ItemVariationData *struct {
		ItemID string `json:"item_id"`
		Name   string `json:"name"`
		SKU    string `json:"sku"`
	} `json:"item_variation_data,omitempty"`
}

type retrieveResponse struct {
	Object *catalogObject `json:"object"`
}

type apiError struct {
	Errors []struct {
		Category string `json:"category"`
		Code     string `json:"code"`
		Detail   string `json:"detail"`
	} `json:"errors"`
}

func (a *apiError) String() string {
	if a == nil || len(a.Errors) == 0 {
		return ""
	}
	parts := make([]string, 0, len(a.Errors))
	for _, er := range a.Errors {
		parts = append(parts, er.Code+": "+er.Detail)
	}
	return strings.Join(parts, "; ")
}

type physicalCount struct {
	CatalogObjectID string `json:"catalog_object_id"`
	State           string `json:"state"`
	LocationID      string `json:"location_id"`
	Quantity        string `json:"quantity"`
	OccurredAt      string `json:"occurred_at"`
}

type inventoryChange struct {
	Type          string         `json:"type"`
	PhysicalCount *physicalCount `json:"physical_count"`
}

type batchChangeRequest struct {
	IdempotencyKey string            `json:"idempotency_key"`
	Changes        []inventoryChange `json:"changes"`
}

// Client обращается к API кассы: чтение объектов каталога, удаление товара, установка остатка.
type Client struct {
	http       *resty.Client
	locationID string
	logger     logger.Logger
	now        func() time.Time
}

func NewClient(c *cfg.POSCfg, logger logger.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(c.BaseURL, "/")).
		SetTimeout(c.Timeout).
		SetAuthToken(c.AccessToken).
		SetHeader("Accept", "application/json").
		SetRetryCount(c.MaxRetries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		AddRetryCondition(retryable)
	if c.APIVersion != "" {
		httpClient.SetHeader("Square-Version", c.APIVersion)
	}

	return &Client{
		http:       httpClient,
		locationID: c.LocationID,
		logger:     logger,
		now:        time.Now,
	}
}

func (c *Client) Channel() domain.Channel {
	return domain.ChannelPOS
}

// Delist удаляет объект каталога товара. Уже удалённый объект — не ошибка.
func (c *Client) Delist(ctx context.Context, listingID string) error {
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", listingID).
		SetError(&apiErr).
		Delete("/v2/catalog/object/{id}")
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if resp.StatusCode() == http.StatusNotFound {
		c.logger.Infof("pos catalog object %s already removed", listingID)
		return nil
	}
	if resp.IsError() {
		return upstreamError(resp, &apiErr)
	}

	return nil
}

// RetrieveCatalogObject возвращает объект каталога; для вариации заполняет ParentItemID и SKU.
func (c *Client) RetrieveCatalogObject(ctx context.Context, objectID string) (*usecase.CatalogObject, error) {
	var (
		out    retrieveResponse
		apiErr apiError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", objectID).
		SetResult(&out).
		SetError(&apiErr).
		Get("/v2/catalog/object/{id}")
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.IsError() {
		return nil, upstreamError(resp, &apiErr)
	}
	if out.Object == nil {
		return nil, nil
	}

	obj := &usecase.CatalogObject{
		ID:   out.Object.ID,
		Type: out.Object.Type,
	}
	switch {
	case out.Object.Type == objectTypeVariation && out.Object.ItemVariationData != nil:
		obj.ParentItemID = out.Object.ItemVariationData.ItemID
		obj.SKU = out.Object.ItemVariationData.SKU
		obj.Name = out.Object.ItemVariationData.Name
	case out.Object.Type == objectTypeItem && out.Object.ItemData != nil:
		obj.Name = out.Object.ItemData.Name
	}

	return obj, nil
}

// SetInventoryCount выставляет физический остаток вариации в точке продаж.
func (c *Client) SetInventoryCount(ctx context.Context, variationID string, quantity int) error {
	body := batchChangeRequest{
		IdempotencyKey: uuid.NewString(),
		Changes: []inventoryChange{{
			Type: "PHYSICAL_COUNT",
			PhysicalCount: &physicalCount{
				CatalogObjectID: variationID,
				State:           "IN_STOCK",
				LocationID:      c.locationID,
				Quantity:        strconv.Itoa(quantity),
				OccurredAt:      c.now().UTC().Format(time.RFC3339),
			},
		}},
	}

	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetError(&apiErr).
		Post("/v2/inventory/changes/batch-create")
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if resp.IsError() {
		return upstreamError(resp, &apiErr)
	}

	return nil
}

func retryable(resp *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= http.StatusInternalServerError
}

func upstreamError(resp *resty.Response, apiErr *apiError) error {
	msg := apiErr.String()
	if msg == "" {
		msg = resp.Status()
	}
	return e.Wrap(fmt.Sprintf("pos %s %s: %d %s", resp.Request.Method, resp.Request.URL, resp.StatusCode(), msg), e.ErrUpstreamChannel)
}
