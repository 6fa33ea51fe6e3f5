package http

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/ingest"
	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/usecase"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/logger"
)

const signatureHeader = "x-signature"

// WebhookSecrets — общие секреты подписи и параметры challenge маркетплейса.
type WebhookSecrets struct {
	POS                    string
	Marketplace            string
	Storefront             string
	MarketplaceToken       string
	MarketplaceEndpointURL string
}

// WebhookHandler принимает события каналов. Любой исход, кроме неверной подписи,
// подтверждается ответом 200, иначе канал будет бесконечно повторять доставку.
type WebhookHandler struct {
	ingestUC   usecase.IngestUC
	checkoutUC usecase.CheckoutUC
	secrets    WebhookSecrets
	logger     logger.Logger
}

func NewWebhookHandler(ingestUC usecase.IngestUC, checkoutUC usecase.CheckoutUC, secrets WebhookSecrets, logger logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		ingestUC:   ingestUC,
		checkoutUC: checkoutUC,
		secrets:    secrets,
		logger:     logger,
	}
}

type webhookAck struct {
	Received  bool   `json:"received"`
	Ignored   bool   `json:"ignored,omitempty"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Message   string `json:"message,omitempty"`
}

type challengeResponse struct {
	ChallengeResponse string `json:"challengeResponse"`
}

// pos
//
//	@Summary	Вебхук кассы
//	@Tags		webhooks
//	@Accept		json
//	@Produce	json
//	@Param		x-signature	header		string	false	"HMAC-SHA256 тела"
//	@Success	200			{object}	webhookAck
//	@Failure	401			{object}	ErrorResponse
//	@Router		/webhooks/pos [post]
func (h *WebhookHandler) pos(w http.ResponseWriter, r *http.Request) {
	h.handleSale(w, r, domain.ChannelPOS, h.secrets.POS, ingest.DecodePOS)
}

// marketplace
//
//	@Summary	Вебхук маркетплейса
//	@Tags		webhooks
//	@Accept		json
//	@Produce	json
//	@Param		x-signature	header		string	false	"HMAC-SHA256 тела"
//	@Success	200			{object}	webhookAck
//	@Failure	401			{object}	ErrorResponse
//	@Router		/webhooks/marketplace [post]
func (h *WebhookHandler) marketplace(w http.ResponseWriter, r *http.Request) {
	h.handleSale(w, r, domain.ChannelMarketplace, h.secrets.Marketplace, ingest.DecodeMarketplace)
}

// marketplaceChallenge
//
//	@Summary	Проверка адреса вебхука маркетплейсом
//	@Tags		webhooks
//	@Produce	json
//	@Param		challenge_code	query		string	true	"Код проверки"
//	@Success	200				{object}	challengeResponse
//	@Failure	400				{object}	ErrorResponse
//	@Failure	403				{object}	ErrorResponse
//	@Router		/webhooks/marketplace [get]
func (h *WebhookHandler) marketplaceChallenge(w http.ResponseWriter, r *http.Request) {
	if h.secrets.MarketplaceToken == "" {
		h.logger.Warnf("marketplace challenge received but no verification token is configured")
		WriteError(w, e.ErrInvalidVerificationToken)
		return
	}

	code := r.URL.Query().Get("challenge_code")
	if code == "" {
		WriteError(w, e.Wrap("challenge_code", e.ErrMissingFields))
		return
	}

	WriteSuccess(w, http.StatusOK, challengeResponse{
		ChallengeResponse: ingest.ChallengeResponse(code, h.secrets.MarketplaceToken, h.secrets.MarketplaceEndpointURL),
	})
}

// storefront
//
//	@Summary	Подтверждение оплаты витрины
//	@Tags		webhooks
//	@Accept		json
//	@Produce	json
//	@Param		x-signature	header		string	false	"HMAC-SHA256 тела"
//	@Success	200			{object}	webhookAck
//	@Failure	401			{object}	ErrorResponse
//	@Router		/webhooks/storefront [post]
func (h *WebhookHandler) storefront(w http.ResponseWriter, r *http.Request) {
	log := h.logger.With("channel", domain.ChannelStorefront)

	body, ok := h.verifiedBody(w, r, h.secrets.Storefront, log)
	if !ok {
		return
	}

	ack := h.acknowledge(log, func() webhookAck {
		payment, err := ingest.DecodeStorefront(body)
		if err != nil {
			log.Warnf("storefront payload rejected: %v", err)
			return webhookAck{Received: true, Ignored: true, Message: "invalid payload"}
		}

		if err := h.checkoutUC.ConfirmPayment(r.Context(), &usecase.ConfirmPaymentReq{
			SessionID:  payment.SessionID,
			PaymentRef: payment.PaymentRef,
			Status:     payment.Status,
		}); err != nil {
			log.Errorf(err, "storefront payment %s not applied", payment.SessionID)
			return webhookAck{Received: true, Message: "not applied"}
		}

		return webhookAck{Received: true, Ignored: payment.Status != ingest.StorefrontStatusPaid}
	})

	WriteSuccess(w, http.StatusOK, ack)
}

type decodeFunc func(body []byte, log logger.Logger) (*domain.SaleEvent, error)

func (h *WebhookHandler) handleSale(w http.ResponseWriter, r *http.Request, ch domain.Channel, secret string, decode decodeFunc) {
	log := h.logger.With("channel", ch)

	body, ok := h.verifiedBody(w, r, secret, log)
	if !ok {
		return
	}

	ack := h.acknowledge(log, func() webhookAck {
		event, err := decode(body, log)
		if err != nil {
			log.Warnf("payload rejected: %v", err)
			return webhookAck{Received: true, Ignored: true, Message: "invalid payload"}
		}

		res := h.ingestUC.Process(context.WithoutCancel(r.Context()), &usecase.IngestReq{Event: event})
		return webhookAck{
			Received:  true,
			Ignored:   res.Ignored,
			Processed: res.Processed + res.Unresolved,
			Skipped:   res.Duplicates + res.Failed,
		}
	})

	WriteSuccess(w, http.StatusOK, ack)
}

// verifiedBody читает тело и проверяет подпись. false — ответ уже записан.
func (h *WebhookHandler) verifiedBody(w http.ResponseWriter, r *http.Request, secret string, log logger.Logger) ([]byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Warnf("failed to read webhook body: %v", err)
		WriteSuccess(w, http.StatusOK, webhookAck{Received: true, Ignored: true, Message: "unreadable body"})
		return nil, false
	}

	if err := ingest.VerifySignature(body, r.Header.Get(signatureHeader), secret); err != nil {
		log.Warnf("webhook signature rejected from %s", r.RemoteAddr)
		WriteError(w, err)
		return nil, false
	}

	return body, true
}

// acknowledge выполняет обработку и превращает панику в подтверждённый ответ.
func (h *WebhookHandler) acknowledge(log logger.Logger, fn func() webhookAck) (ack webhookAck) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf(fmt.Errorf("panic: %v", rec), "webhook processing panicked")
			ack = webhookAck{Received: true, Message: "internal error"}
		}
	}()

	return fn()
}
