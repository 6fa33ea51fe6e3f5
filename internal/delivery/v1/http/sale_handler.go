package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/usecase"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type SaleHandler struct {
	saleUC usecase.SaleUC
	loc    *time.Location
	logger logger.Logger
}

func NewSaleHandler(saleUC usecase.SaleUC, loc *time.Location, logger logger.Logger) *SaleHandler {
	return &SaleHandler{saleUC: saleUC, loc: loc, logger: logger}
}

type attributeRequest struct {
	SaleID    string `json:"saleId"`
	ProduitID string `json:"produitId"`
	Force     bool   `json:"force"`
}

type saleResponse struct {
	ID                 string     `json:"id"`
	ProduitID          *string    `json:"produitId"`
	SKU                string     `json:"sku"`
	Name               string     `json:"nom"`
	Category           string     `json:"categorie"`
	Brand              string     `json:"marque"`
	DepositorTrigramme string     `json:"trigramme"`
	DepositorName      string     `json:"chineuse"`
	Origin             string     `json:"origin"`
	SaleDate           time.Time  `json:"dateVente"`
	RealizedPrice      float64    `json:"prixVenteReel"`
	Attribue           bool       `json:"attribue"`
	AttribueAt         *time.Time `json:"attribueAt,omitempty"`
}

func newSaleResponse(s usecase.SaleInfo) saleResponse {
	return saleResponse{
		ID:                 s.ID,
		ProduitID:          s.ProduitID,
		SKU:                s.SKU,
		Name:               s.Name,
		Category:           s.Category,
		Brand:              s.Brand,
		DepositorTrigramme: s.DepositorTrigramme,
		DepositorName:      s.DepositorName,
		Origin:             string(s.Origin),
		SaleDate:           s.SaleDate,
		RealizedPrice:      toMajor(s.RealizedPrice),
		Attribue:           s.Attribue,
		AttribueAt:         s.AttribueAt,
	}
}

type attributeResponse struct {
	Success  bool         `json:"success"`
	Sale     saleResponse `json:"vente"`
	Quantity int          `json:"quantite"`
	Sold     bool         `json:"vendu"`
	Status   string       `json:"statut"`
	Delisted int          `json:"delisted"`
}

type listSalesResponse struct {
	Success bool           `json:"success"`
	Count   int            `json:"count"`
	Sales   []saleResponse `json:"ventes"`
}

type deleteSaleRequest struct {
	Restock bool `json:"remettreEnStock"`
}

// attribute
//
//	@Summary	Ручная привязка продажи к товару
//	@Tags		sales
//	@Accept		json
//	@Produce	json
//	@Param		request	body		attributeRequest	true	"Продажа и товар"
//	@Success	200		{object}	attributeResponse
//	@Failure	400		{object}	ErrorResponse
//	@Failure	404		{object}	ErrorResponse
//	@Failure	409		{object}	ErrorResponse
//	@Router		/sales/attribute [post]
func (h *SaleHandler) attribute(w http.ResponseWriter, r *http.Request) {
	var req attributeRequest
	if err := decodeJSON(r, &req, false); err != nil {
		WriteError(w, err)
		return
	}

	res, err := h.saleUC.Attribute(r.Context(), &usecase.AttributeReq{
		SaleID:    strings.TrimSpace(req.SaleID),
		ProduitID: strings.TrimSpace(req.ProduitID),
		Force:     req.Force,
	})
	if err != nil {
		h.logger.Warnf("attribute %s -> %s: %v", req.SaleID, req.ProduitID, err)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, attributeResponse{
		Success:  true,
		Sale:     newSaleResponse(res.Sale),
		Quantity: res.Quantity,
		Sold:     res.Sold,
		Status:   string(res.Status),
		Delisted: res.Delisted,
	})
}

// list
//
//	@Summary	Список продаж
//	@Tags		sales
//	@Produce	json
//	@Param		month		query		string	false	"MM-YYYY"
//	@Param		attribue	query		bool	false	"Фильтр по привязке"
//	@Success	200			{object}	listSalesResponse
//	@Failure	400			{object}	ErrorResponse
//	@Router		/sales [get]
func (h *SaleHandler) list(w http.ResponseWriter, r *http.Request) {
	var filter usecase.SaleFilter

	if month := r.URL.Query().Get("month"); month != "" {
		from, to, err := usecase.ParseMonth(month, h.loc)
		if err != nil {
			WriteError(w, err)
			return
		}
		filter.From, filter.To = &from, &to
	}

	if raw := r.URL.Query().Get("attribue"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			WriteError(w, e.Wrap("attribue", e.ErrStatusBadRequest))
			return
		}
		filter.Attribue = &v
	}

	sales, err := h.saleUC.List(r.Context(), filter)
	if err != nil {
		h.logger.Errorf(err, "list sales")
		WriteError(w, err)
		return
	}

	out := make([]saleResponse, 0, len(sales))
	for _, s := range sales {
		out = append(out, newSaleResponse(s))
	}

	WriteSuccess(w, http.StatusOK, listSalesResponse{Success: true, Count: len(out), Sales: out})
}

// delete
//
//	@Summary	Удаление продажи
//	@Description	С remettreEnStock=true единица возвращается на склад.
//	@Tags		sales
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string				true	"ID продажи"
//	@Param		request	body		deleteSaleRequest	false	"Возврат на склад"
//	@Success	200		{object}	map[string]interface{}
//	@Failure	404		{object}	ErrorResponse
//	@Router		/sales/{id} [delete]
func (h *SaleHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req deleteSaleRequest
	if err := decodeJSON(r, &req, true); err != nil {
		WriteError(w, err)
		return
	}
	if raw := r.URL.Query().Get("remettreEnStock"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			WriteError(w, e.Wrap("remettreEnStock", e.ErrStatusBadRequest))
			return
		}
		req.Restock = v
	}

	if err := h.saleUC.Delete(r.Context(), &usecase.DeleteSaleReq{SaleID: id, Restock: req.Restock}); err != nil {
		h.logger.Warnf("delete sale %s: %v", id, err)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, map[string]any{
		"success":         true,
		"id":              id,
		"remettreEnStock": req.Restock,
	})
}
