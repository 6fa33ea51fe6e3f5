package e

import "fmt"

var (
	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = fmt.Errorf("transaction not found")
	ErrVersionConflict     = fmt.Errorf("product version conflict")

	// Внутренние ошибки конфигурации
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect environment variable")

	// Внутренние ошибки приёма событий
	ErrUnresolvedProduct = fmt.Errorf("product could not be resolved")
	ErrAmbiguousMatch    = fmt.Errorf("ambiguous product match")
	ErrEventAlreadySeen  = fmt.Errorf("event already processed")
	ErrUnknownChannel    = fmt.Errorf("unknown channel")

	// Ошибки внешних каналов (только логируются)
	ErrUpstreamChannel = fmt.Errorf("upstream channel error")

	// 400 Bad Request
	ErrStatusBadRequest     = fmt.Errorf("bad request")
	ErrInvalidPayload       = fmt.Errorf("invalid payload")
	ErrMissingFields        = fmt.Errorf("missing required fields")
	ErrInvalidPrice         = fmt.Errorf("invalid price")
	ErrPricePrecision       = fmt.Errorf("price must have at most 2 decimal places")
	ErrPriceMismatch        = fmt.Errorf("base price does not match product price")
	ErrInvalidMonth         = fmt.Errorf("month must be formatted as MM-YYYY")
	ErrInvalidDate          = fmt.Errorf("invalid date")
	ErrInvalidQuantity      = fmt.Errorf("quantity must be positive")
	ErrInvalidDeliveryMode  = fmt.Errorf("invalid delivery mode")
	ErrInvalidEmail         = fmt.Errorf("invalid buyer email")
	ErrTooManyRows          = fmt.Errorf("too many rows")
	ErrUnsupportedMediaType = fmt.Errorf("unsupported media type")

	// 401 / 403
	ErrInvalidSignature         = fmt.Errorf("invalid signature")
	ErrInvalidVerificationToken = fmt.Errorf("verification token is not configured")

	// 404 Not Found
	ErrProductNotFound         = fmt.Errorf("product not found")
	ErrSaleNotFound            = fmt.Errorf("sale not found")
	ErrCheckoutSessionNotFound = fmt.Errorf("checkout session not found")

	// 409 Conflict
	ErrAlreadyAttributed  = fmt.Errorf("sale is already attributed")
	ErrProductUnavailable = fmt.Errorf("product is not available")

	// 503: удаление без архива запрещено
	ErrArchiveUnavailable = fmt.Errorf("sale archive is not configured")

	// 500
	ErrInternalServerError = fmt.Errorf("internal server error")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
