package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/logger"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const paymentStatusPaid = "paid"

// CheckoutUseCase оформляет заказы витрины: расчёт цены при оформлении
// и списание товара после подтверждения оплаты.
type CheckoutUseCase struct {
	productRepo ProductRepository
	orderRepo   OrderRepository
	sessions    CheckoutSessionRepository
	events      EventStore
	promo       *PromotionCalculator
	engine      *DispositionEngine
	dispatcher  *DelistingDispatcher
	logger      logger.Logger
	checkoutURL string

	now   func() time.Time
	newID func() string
}

func NewCheckoutUseCase(
	productRepo ProductRepository,
	orderRepo OrderRepository,
	sessions CheckoutSessionRepository,
	events EventStore,
	promo *PromotionCalculator,
	engine *DispositionEngine,
	dispatcher *DelistingDispatcher,
	logger logger.Logger,
	checkoutURL string,
) *CheckoutUseCase {
	return &CheckoutUseCase{
		productRepo: productRepo,
		orderRepo:   orderRepo,
		sessions:    sessions,
		events:      events,
		promo:       promo,
		engine:      engine,
		dispatcher:  dispatcher,
		logger:      logger,
		checkoutURL: checkoutURL,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

func (u *CheckoutUseCase) Checkout(ctx context.Context, req *CheckoutReq) (*CheckoutRes, error) {
	const op = "CheckoutUseCase.Checkout"

	ctx, span := otel.Tracer(tracerName).Start(ctx, op)
	defer span.End()
	span.SetAttributes(attribute.String("product.id", req.ProduitID), attribute.String("delivery.mode", string(req.DeliveryMode)))

	if strings.TrimSpace(req.ProduitID) == "" {
		return nil, e.Wrap(op, e.ErrMissingFields)
	}
	if req.BasePrice <= 0 {
		return nil, e.Wrap(op, e.ErrInvalidPrice)
	}
	if !strings.Contains(req.Buyer.Email, "@") {
		return nil, e.Wrap(op, e.ErrInvalidEmail)
	}
	if !req.DeliveryMode.Valid() {
		return nil, e.Wrap(op, e.ErrInvalidDeliveryMode)
	}

	product, err := u.productRepo.GetByID(ctx, req.ProduitID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if !product.IsAvailable() {
		return nil, e.Wrap(op, e.ErrProductUnavailable)
	}
	if product.Price != req.BasePrice {
		return nil, e.Wrap(op, fmt.Errorf("%w: expected %d, got %d", e.ErrPriceMismatch, product.Price, req.BasePrice))
	}

	now := u.now()
	promo, err := u.promo.Calculate(ctx, &PromotionReq{
		BuyerEmail:   req.Buyer.Email,
		BasePrice:    req.BasePrice,
		DeliveryMode: req.DeliveryMode,
		Now:          now,
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	buyer := req.Buyer
	buyer.Email = normalizeEmail(buyer.Email)

	session := &domain.CheckoutSession{
		ID:           u.newID(),
		ProduitID:    product.ID,
		Buyer:        buyer,
		DeliveryMode: req.DeliveryMode,
		BasePrice:    req.BasePrice,
		Discount:     promo.Discount,
		DeliveryFee:  promo.DeliveryFee,
		FinalPrice:   promo.FinalPrice,
		CreatedAt:    now,
	}
	if err := u.sessions.Save(ctx, session); err != nil {
		return nil, e.Wrap(op, err)
	}

	u.logger.Infof("checkout session %s for product %s: order #%d today, final=%d discount=%d fee=%d",
		session.ID, product.ID, promo.OrderNumber, promo.FinalPrice, promo.Discount, promo.DeliveryFee)

	return &CheckoutRes{
		SessionID:   session.ID,
		FinalPrice:  promo.FinalPrice,
		Discount:    promo.Discount,
		DeliveryFee: promo.DeliveryFee,
		CheckoutURL: u.sessionURL(session.ID),
	}, nil
}

// ConfirmPayment сохраняет заказ и списывает товар. Неизвестная сессия
// и статусы, отличные от paid, подтверждаются без действий.
func (u *CheckoutUseCase) ConfirmPayment(ctx context.Context, req *ConfirmPaymentReq) error {
	const op = "CheckoutUseCase.ConfirmPayment"

	ctx, span := otel.Tracer(tracerName).Start(ctx, op)
	defer span.End()
	span.SetAttributes(attribute.String("checkout.session", req.SessionID), attribute.String("payment.status", req.Status))

	if req.Status != paymentStatusPaid {
		u.logger.Infof("checkout session %s: payment status %q, nothing to do", req.SessionID, req.Status)
		return nil
	}

	session, err := u.sessions.Get(ctx, req.SessionID)
	if errors.Is(err, e.ErrCheckoutSessionNotFound) {
		u.logger.Warnf("checkout session %s not found or expired", req.SessionID)
		return nil
	}
	if err != nil {
		return e.Wrap(op, err)
	}

	intent := domain.SaleIntent{
		ExternalLineItemRef: "payment",
		ChannelObjectID:     session.ProduitID,
		QuantitySold:        1,
		UnitPriceMinor:      session.BasePrice - session.Discount,
		TotalPriceMinor:     session.BasePrice - session.Discount,
		ChannelOrderID:      session.ID,
	}

	key := webhookClaimKey(domain.ChannelStorefront, intent)
	if u.events != nil {
		claimed, err := u.events.Claim(ctx, key)
		if err != nil {
			u.logger.Warnf("processed-event store unavailable, continuing: %v", err)
		} else if !claimed {
			u.logger.Infof("checkout session %s already confirmed", session.ID)
			return nil
		}
	}

	now := u.now()
	res, err := u.engine.Apply(ctx, &DispositionReq{
		ProductID:   session.ProduitID,
		Intent:      intent,
		Origin:      domain.OriginStorefront,
		SaleDate:    now,
		AppendSales: true,
		InTx: func(ctx context.Context, _ *DispositionRes) error {
			return u.orderRepo.Create(ctx, &domain.Order{
				ID:           u.newID(),
				BuyerEmail:   session.Buyer.Email,
				ProduitID:    session.ProduitID,
				UnitPrice:    session.BasePrice,
				Discount:     session.Discount,
				DeliveryFee:  session.DeliveryFee,
				DeliveryMode: session.DeliveryMode,
				FinalPrice:   session.FinalPrice,
				PaymentRef:   req.PaymentRef,
				SaleDate:     now,
				CreatedAt:    now,
			})
		},
	})
	if err != nil {
		if u.events != nil {
			if rerr := u.events.Release(ctx, key); rerr != nil {
				u.logger.Warnf("failed to release claim %s: %v", key, rerr)
			}
		}
		return e.Wrap(op, err)
	}

	if res.Delist && u.dispatcher != nil {
		u.dispatcher.Dispatch(res.Product, domain.OriginStorefront)
	}

	if err := u.sessions.Delete(ctx, session.ID); err != nil {
		u.logger.Warnf("failed to delete checkout session %s: %v", session.ID, err)
	}

	u.logger.Infof("storefront order paid: session=%s product=%s final=%d", session.ID, session.ProduitID, session.FinalPrice)
	return nil
}

func (u *CheckoutUseCase) sessionURL(sessionID string) string {
	base := u.checkoutURL
	if base == "" {
		return ""
	}

	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + url.Values{"session": {sessionID}}.Encode()
}
