package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
)

// INGEST

// IngestReq — декодированное событие канала.
type IngestReq struct {
	Event *domain.SaleEvent
}

// IngestRes — итог обработки одного вебхука. Ошибки позиций не прерывают соседние позиции.
type IngestRes struct {
	Ignored    bool
	Processed  int
	Duplicates int
	Unresolved int
	Failed     int
	Delisted   int
}

// DISPOSITION

// DispositionReq — запрос на применение продажи к товару.
type DispositionReq struct {
	ProductID   string
	Intent      domain.SaleIntent
	Origin      domain.SaleOrigin
	SaleDate    time.Time // нулевое значение — текущее время
	AppendSales bool
	// InTx вызывается в той же транзакции после записи товара.
	InTx func(ctx context.Context, res *DispositionRes) error
}

// DispositionRes — состояние товара после списания.
type DispositionRes struct {
	Product *domain.Product
	Sales   []*domain.Sale
	Policy  domain.StockingPolicy
	Delist  bool
}

// SALES

type AttributeReq struct {
	SaleID    string
	ProduitID string
	Force     bool
}

type AttributeRes struct {
	Sale     SaleInfo
	Quantity int
	Sold     bool
	Status   domain.ProductStatus
	Delisted int
}

type DeleteSaleReq struct {
	SaleID  string
	Restock bool
}

// SaleFilter — необязательные условия выборки продаж.
type SaleFilter struct {
	From     *time.Time
	To       *time.Time
	Attribue *bool
}

// SaleInfo — DTO продажи для внешнего использования.
type SaleInfo struct {
	ID                 string
	ProduitID          *string
	SKU                string
	Name               string
	Category           string
	Brand              string
	DepositorTrigramme string
	DepositorName      string
	Origin             domain.SaleOrigin
	SaleDate           time.Time
	RealizedPrice      int64
	Attribue           bool
	AttribueAt         *time.Time
	CreatedAt          time.Time
}

// IMPORT

type ImportReq struct {
	Rows []map[string]any
}

type ImportRowError struct {
	Row   int
	Error string
}

type ImportRes struct {
	Imported int
	Skipped  int
	Errors   []ImportRowError
}

// DEDUPE

type DedupeReq struct {
	DryRun bool
	Month  string // MM-YYYY, пусто — все продажи
}

// DedupeGroup — группа продаж с одинаковой ценой и днём, в которой есть дубликаты.
type DedupeGroup struct {
	Day       string
	Price     int64
	Size      int
	KeepID    string
	DeleteIDs []string
}

type DedupeRes struct {
	DryRun     bool
	Scanned    int
	Groups     []DedupeGroup
	ToDelete   int
	Deleted    int
	ArchiveKey string
}

// PROMOTION / CHECKOUT

// PromotionRules — параметры расчёта скидок.
type PromotionRules struct {
	DeliveryFee     int64 // в центах
	DiscountPercent int64 // 15 = 15%
	MinPriorOrders  int   // скидка начиная с заказа номер MinPriorOrders+1
}

type PromotionReq struct {
	BuyerEmail   string
	BasePrice    int64
	DeliveryMode domain.DeliveryMode
	Now          time.Time
}

type PromotionRes struct {
	OrderNumber int
	Discount    int64
	DeliveryFee int64
	FinalPrice  int64
}

type CheckoutReq struct {
	ProduitID    string
	BasePrice    int64
	Buyer        domain.BuyerInfo
	DeliveryMode domain.DeliveryMode
}

type CheckoutRes struct {
	SessionID   string
	FinalPrice  int64
	Discount    int64
	DeliveryFee int64
	CheckoutURL string
}

type ConfirmPaymentReq struct {
	SessionID  string
	PaymentRef string
	Status     string
}

// INFRASTRUCTURE

// CatalogObject — объект каталога кассы (вариация или товар).
type CatalogObject struct {
	ID           string
	Type         string
	ParentItemID string
	SKU          string
	Name         string
}

type ArchiveSalesReq struct {
	Reason string
	Sales  []*domain.Sale
}

type WriteRawMessageReq struct {
	Key     string
	Payload []byte
	Headers map[string]string
}

// SaleEventPayload — тело события журнала продаж в Kafka.
type SaleEventPayload struct {
	SaleID        string    `json:"saleId"`
	ProduitID     *string   `json:"produitId,omitempty"`
	SKU           string    `json:"sku,omitempty"`
	Origin        string    `json:"origin"`
	SaleDate      time.Time `json:"saleDate"`
	RealizedPrice int64     `json:"realizedPrice"`
	Attribue      bool      `json:"attribue"`
	Restocked     bool      `json:"restocked,omitempty"`
}

// DedupeEventPayload — тело события об удалении дубликатов.
type DedupeEventPayload struct {
	Month      string   `json:"month,omitempty"`
	DeletedIDs []string `json:"deletedIds"`
	ArchiveKey string   `json:"archiveKey,omitempty"`
}

// MAPPERS

func NewWriteRawMessageReq(key string, payload []byte) *WriteRawMessageReq {
	return &WriteRawMessageReq{Key: key, Payload: payload}
}

func NewArchiveSalesReq(reason string, sales []*domain.Sale) *ArchiveSalesReq {
	return &ArchiveSalesReq{Reason: reason, Sales: sales}
}

func NewSaleInfo(s *domain.Sale) SaleInfo {
	return SaleInfo{
		ID:                 s.ID,
		ProduitID:          s.ProduitID,
		SKU:                s.SKU,
		Name:               s.Name,
		Category:           s.Category,
		Brand:              s.Brand,
		DepositorTrigramme: s.DepositorTrigramme,
		DepositorName:      s.DepositorName,
		Origin:             s.Origin,
		SaleDate:           s.SaleDate,
		RealizedPrice:      s.RealizedPrice,
		Attribue:           s.Attribue,
		AttribueAt:         s.AttribueAt,
		CreatedAt:          s.CreatedAt,
	}
}

func NewSaleEventPayload(s *domain.Sale) SaleEventPayload {
	return SaleEventPayload{
		SaleID:        s.ID,
		ProduitID:     s.ProduitID,
		SKU:           s.SKU,
		Origin:        string(s.Origin),
		SaleDate:      s.SaleDate,
		RealizedPrice: s.RealizedPrice,
		Attribue:      s.Attribue,
	}
}

// ParseMonth разбирает месяц в формате MM-YYYY и возвращает полуинтервал [from, to) в зоне loc.
func ParseMonth(s string, loc *time.Location) (time.Time, time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 4 {
		return time.Time{}, time.Time{}, e.Wrap(s, e.ErrInvalidMonth)
	}

	month, err := strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return time.Time{}, time.Time{}, e.Wrap(s, e.ErrInvalidMonth)
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, time.Time{}, e.Wrap(s, e.ErrInvalidMonth)
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	return from, from.AddDate(0, 1, 0), nil
}

// DayBounds возвращает начало текущего и следующего дня в зоне loc.
func DayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

func webhookClaimKey(ch domain.Channel, line domain.SaleIntent) string {
	return fmt.Sprintf("webhook:%s:%s:%s", ch, line.ChannelOrderID, line.ExternalLineItemRef)
}

// externalUnitRef — ссылка на i-ю единицу позиции, нумерация с 1.
func externalUnitRef(base string, i int) string {
	return fmt.Sprintf("%s#%d", base, i+1)
}
