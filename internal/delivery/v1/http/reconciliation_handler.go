package http

import (
	"net/http"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/usecase"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/logger"
)

// ReconciliationHandler — операторские сценарии сверки: импорт выгрузки и дедупликация.
type ReconciliationHandler struct {
	importUC usecase.ImportUC
	dedupeUC usecase.DedupeUC
	logger   logger.Logger
}

func NewReconciliationHandler(importUC usecase.ImportUC, dedupeUC usecase.DedupeUC, logger logger.Logger) *ReconciliationHandler {
	return &ReconciliationHandler{importUC: importUC, dedupeUC: dedupeUC, logger: logger}
}

type importRequest struct {
	Rows []map[string]any `json:"rows"`
}

type importRowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type importResponse struct {
	Success  bool             `json:"success"`
	Imported int              `json:"imported"`
	Skipped  int              `json:"skipped"`
	Errors   []importRowError `json:"errors"`
}

type dedupeRequest struct {
	DryRun *bool  `json:"dryRun"`
	Month  string `json:"month"`
}

type dedupeGroup struct {
	Day       string   `json:"day"`
	Price     float64  `json:"prix"`
	Size      int      `json:"size"`
	KeepID    string   `json:"keepId"`
	DeleteIDs []string `json:"deleteIds"`
}

type dedupeResponse struct {
	Success    bool          `json:"success"`
	DryRun     bool          `json:"dryRun"`
	Scanned    int           `json:"scanned"`
	Groups     []dedupeGroup `json:"groups"`
	ToDelete   int           `json:"toDelete"`
	Deleted    int           `json:"deleted"`
	ArchiveKey string        `json:"archiveKey,omitempty"`
}

// importSales
//
//	@Summary	Импорт выгрузки продаж
//	@Description	Строки без цены пропускаются, повторы существующих продаж тоже. Склад не меняется.
//	@Tags		reconciliation
//	@Accept		json
//	@Produce	json
//	@Param		request	body		importRequest	true	"Строки выгрузки"
//	@Success	200		{object}	importResponse
//	@Failure	400		{object}	ErrorResponse
//	@Router		/sales-reconciliation/import [post]
func (h *ReconciliationHandler) importSales(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeJSON(r, &req, false); err != nil {
		WriteError(w, err)
		return
	}

	res, err := h.importUC.Import(r.Context(), &usecase.ImportReq{Rows: req.Rows})
	if err != nil {
		h.logger.Warnf("import of %d rows failed: %v", len(req.Rows), err)
		WriteError(w, err)
		return
	}

	errs := make([]importRowError, 0, len(res.Errors))
	for _, re := range res.Errors {
		errs = append(errs, importRowError{Row: re.Row, Error: re.Error})
	}

	WriteSuccess(w, http.StatusOK, importResponse{
		Success:  true,
		Imported: res.Imported,
		Skipped:  res.Skipped,
		Errors:   errs,
	})
}

// dedupe
//
//	@Summary	Удаление дублей продаж
//	@Description	По умолчанию dryRun=true: возвращается только план.
//	@Tags		reconciliation
//	@Accept		json
//	@Produce	json
//	@Param		request	body		dedupeRequest	false	"Параметры"
//	@Success	200		{object}	dedupeResponse
//	@Failure	400		{object}	ErrorResponse
//	@Router		/reconciliation/dedupe [post]
func (h *ReconciliationHandler) dedupe(w http.ResponseWriter, r *http.Request) {
	var req dedupeRequest
	if err := decodeJSON(r, &req, true); err != nil {
		WriteError(w, err)
		return
	}

	dryRun := true
	if req.DryRun != nil {
		dryRun = *req.DryRun
	}

	res, err := h.dedupeUC.Dedupe(r.Context(), &usecase.DedupeReq{DryRun: dryRun, Month: req.Month})
	if err != nil {
		h.logger.Errorf(err, "dedupe (dryRun=%t, month=%q)", dryRun, req.Month)
		WriteError(w, err)
		return
	}

	groups := make([]dedupeGroup, 0, len(res.Groups))
	for _, g := range res.Groups {
		groups = append(groups, dedupeGroup{
			Day:       g.Day,
			Price:     toMajor(g.Price),
			Size:      g.Size,
			KeepID:    g.KeepID,
			DeleteIDs: g.DeleteIDs,
		})
	}

	WriteSuccess(w, http.StatusOK, dedupeResponse{
		Success:    true,
		DryRun:     res.DryRun,
		Scanned:    res.Scanned,
		Groups:     groups,
		ToDelete:   res.ToDelete,
		Deleted:    res.Deleted,
		ArchiveKey: res.ArchiveKey,
	})
}
