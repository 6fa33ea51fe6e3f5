package domain

// Channel — независимая витрина продаж со своими идентификаторами каталога.
type Channel string

const (
	ChannelPOS         Channel = "pos"
	ChannelMarketplace Channel = "marketplace"
	ChannelStorefront  Channel = "storefront"
)

// SaleOrigin — источник записи о продаже.
type SaleOrigin string

const (
	OriginBoutique            SaleOrigin = "boutique"
	OriginMarketplace         SaleOrigin = "marketplace"
	OriginStorefront          SaleOrigin = "storefront"
	OriginImportedSpreadsheet SaleOrigin = "importedSpreadsheet"
	OriginManualAttribution   SaleOrigin = "manualAttribution"
)

// Channel возвращает канал, из которого пришла продажа.
// Для импорта и ручной привязки канала нет.
func (o SaleOrigin) Channel() (Channel, bool) {
	switch o {
	case OriginBoutique:
		return ChannelPOS, true
	case OriginMarketplace:
		return ChannelMarketplace, true
	case OriginStorefront:
		return ChannelStorefront, true
	default:
		return "", false
	}
}

// OriginForChannel возвращает источник продажи для канала вебхука.
func OriginForChannel(ch Channel) SaleOrigin {
	switch ch {
	case ChannelPOS:
		return OriginBoutique
	case ChannelMarketplace:
		return OriginMarketplace
	case ChannelStorefront:
		return OriginStorefront
	default:
		return OriginManualAttribution
	}
}

func (o SaleOrigin) Valid() bool {
	switch o {
	case OriginBoutique, OriginMarketplace, OriginStorefront, OriginImportedSpreadsheet, OriginManualAttribution:
		return true
	}
	return false
}
