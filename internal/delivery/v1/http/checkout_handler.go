package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/usecase"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/logger"
)

type CheckoutHandler struct {
	checkoutUC usecase.CheckoutUC
	logger     logger.Logger
}

func NewCheckoutHandler(checkoutUC usecase.CheckoutUC, logger logger.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkoutUC: checkoutUC, logger: logger}
}

type buyerInfo struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type checkoutRequest struct {
	ProduitID    string      `json:"produitId"`
	BasePrice    json.Number `json:"basePrice"`
	Buyer        buyerInfo   `json:"buyerInfo"`
	DeliveryMode string      `json:"deliveryMode"`
}

type checkoutResponse struct {
	Success     bool    `json:"success"`
	SessionID   string  `json:"sessionId"`
	FinalPrice  float64 `json:"finalPrice"`
	Discount    float64 `json:"discount"`
	DeliveryFee float64 `json:"deliveryFee"`
	CheckoutURL string  `json:"checkoutUrl"`
}

// checkout
//
//	@Summary	Оформление заказа на витрине
//	@Description	Считает скидку и доставку на сегодня и создаёт сессию оплаты.
//	@Tags		checkout
//	@Accept		json
//	@Produce	json
//	@Param		request	body		checkoutRequest	true	"Заказ"
//	@Success	200		{object}	checkoutResponse
//	@Failure	400		{object}	ErrorResponse
//	@Failure	404		{object}	ErrorResponse
//	@Failure	409		{object}	ErrorResponse
//	@Router		/checkout [post]
func (h *CheckoutHandler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req, false); err != nil {
		WriteError(w, err)
		return
	}

	basePrice, err := parsePriceToCents(req.BasePrice)
	if err != nil {
		WriteError(w, err)
		return
	}

	res, err := h.checkoutUC.Checkout(r.Context(), &usecase.CheckoutReq{
		ProduitID: strings.TrimSpace(req.ProduitID),
		BasePrice: basePrice,
		Buyer: domain.BuyerInfo{
			Email:   req.Buyer.Email,
			Name:    req.Buyer.Name,
			Phone:   req.Buyer.Phone,
			Address: req.Buyer.Address,
		},
		DeliveryMode: domain.DeliveryMode(strings.ToLower(strings.TrimSpace(req.DeliveryMode))),
	})
	if err != nil {
		h.logger.Warnf("checkout of %s rejected: %v", req.ProduitID, err)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, checkoutResponse{
		Success:     true,
		SessionID:   res.SessionID,
		FinalPrice:  toMajor(res.FinalPrice),
		Discount:    toMajor(res.Discount),
		DeliveryFee: toMajor(res.DeliveryFee),
		CheckoutURL: res.CheckoutURL,
	})
}
