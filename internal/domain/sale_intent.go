package domain

// MaxLineQuantity — потолок количества в одной позиции: каждая единица становится отдельной записью журнала.
const MaxLineQuantity = 100

// SaleIntent — канонический, не зависящий от канала запрос на списание.
type SaleIntent struct {
	ExternalLineItemRef string
	ChannelObjectID     string
	SKUHint             string
	Name                string
	QuantitySold        int
	TotalPriceMinor     int64
	UnitPriceMinor      int64
	ChannelOrderID      string
}

// SaleEventKind — вариант размеченного объединения входящего события.
type SaleEventKind int

const (
	// SaleEventIgnored — событие понятно, но не требует действий.
	SaleEventIgnored SaleEventKind = iota
	// SaleEventSale — событие содержит проданные позиции.
	SaleEventSale
)

// SaleEvent — результат декодирования вебхука на границе сервиса.
type SaleEvent struct {
	Kind    SaleEventKind
	Channel Channel
	EventID string
	Type    string
	OrderID string
	Lines   []SaleIntent
	Reason  string // почему событие проигнорировано
}

// ExternalRef возвращает ссылку на позицию заказа для записи продажи.
func (i SaleIntent) ExternalRef() string {
	return i.ChannelOrderID + "/" + i.ExternalLineItemRef
}
