package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/shopspring/decimal"
)

// ErrorResponse — тело ответа с ошибкой.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Error   string `json:"error"`
}

func NewErrorResponse(code int, message string) *ErrorResponse {
	return &ErrorResponse{
		Success: false,
		Code:    code,
		Error:   message,
	}
}

var badRequestErrors = []error{
	e.ErrStatusBadRequest,
	e.ErrInvalidPayload,
	e.ErrMissingFields,
	e.ErrInvalidPrice,
	e.ErrPricePrecision,
	e.ErrPriceMismatch,
	e.ErrInvalidMonth,
	e.ErrInvalidDate,
	e.ErrInvalidQuantity,
	e.ErrInvalidDeliveryMode,
	e.ErrInvalidEmail,
	e.ErrTooManyRows,
	e.ErrUnsupportedMediaType,
}

var notFoundErrors = []error{
	e.ErrProductNotFound,
	e.ErrSaleNotFound,
	e.ErrCheckoutSessionNotFound,
}

// ToHTTPResponse сопоставляет ошибку сценария со статусом и текстом ответа.
func ToHTTPResponse(err error) (int, string) {
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest, target.Error()
		}
	}
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return http.StatusNotFound, target.Error()
		}
	}

	switch {
	case errors.Is(err, e.ErrInvalidSignature):
		return http.StatusUnauthorized, e.ErrInvalidSignature.Error()
	case errors.Is(err, e.ErrInvalidVerificationToken):
		return http.StatusForbidden, e.ErrInvalidVerificationToken.Error()
	case errors.Is(err, e.ErrAlreadyAttributed):
		return http.StatusConflict, e.ErrAlreadyAttributed.Error()
	case errors.Is(err, e.ErrProductUnavailable):
		return http.StatusConflict, e.ErrProductUnavailable.Error()
	case errors.Is(err, e.ErrArchiveUnavailable):
		return http.StatusServiceUnavailable, e.ErrArchiveUnavailable.Error()
	default:
		return http.StatusInternalServerError, e.ErrInternalServerError.Error()
	}
}

func WriteError(w http.ResponseWriter, err error) {
	code, msg := ToHTTPResponse(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(NewErrorResponse(code, msg))
}

func WriteSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON читает тело запроса. Числа остаются json.Number, чтобы не терять центы.
// Пустое тело при allowEmpty — не ошибка.
func decodeJSON(r *http.Request, dst any, allowEmpty bool) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), e.ErrInvalidPayload)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		if allowEmpty {
			return nil
		}
		return e.Wrap("empty body", e.ErrInvalidPayload)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return e.Wrap(err.Error(), e.ErrInvalidPayload)
	}

	return nil
}

// parsePriceToCents переводит цену в основных единицах ("165", "165.5", 165.50) в центы.
// Больше двух знаков после запятой — ErrPricePrecision.
func parsePriceToCents(n json.Number) (int64, error) {
	s := strings.TrimSpace(n.String())
	if s == "" {
		return 0, e.Wrap("price is empty", e.ErrMissingFields)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, e.Wrap(s, e.ErrInvalidPrice)
	}
	if d.IsNegative() {
		return 0, e.Wrap(s, e.ErrInvalidPrice)
	}

	// 1 млн в основных единицах
	if d.GreaterThan(decimal.NewFromInt(1_000_000)) {
		return 0, e.Wrap(s, e.ErrInvalidPrice)
	}
	if d.Exponent() < -2 && !d.Equal(d.Round(2)) {
		return 0, e.Wrap(s, e.ErrPricePrecision)
	}

	return d.Shift(2).Round(0).IntPart(), nil
}

// toMajor переводит центы в основные единицы для ответа.
func toMajor(minor int64) float64 {
	return decimal.New(minor, -2).InexactFloat64()
}
