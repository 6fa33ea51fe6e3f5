package spreadsheet

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
)

// serialEpoch — нулевой день серийных дат табличных редакторов (с учётом ошибки 1900 года).
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"02.01.2006",
}

// ParseDate разбирает дату из ячейки: ISO-строку, DD/MM/YYYY или серийный номер.
// Даты без зоны трактуются в зоне loc.
func ParseDate(v any, loc *time.Location) (time.Time, error) {
	switch val := v.(type) {
	case nil:
		return time.Time{}, e.Wrap("date is empty", e.ErrInvalidDate)
	case time.Time:
		return val, nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return time.Time{}, e.Wrap(val.String(), e.ErrInvalidDate)
		}
		return fromSerial(f, loc)
	case float64:
		return fromSerial(val, loc)
	case int:
		return fromSerial(float64(val), loc)
	case string:
		return parseDateString(strings.TrimSpace(val), loc)
	case map[string]any:
		// объект даты, сериализованный как {"seconds": ..., "nanoseconds": ...}
		if secs, ok := val["seconds"]; ok {
			return fromSecondsField(secs, val["nanoseconds"])
		}
		if secs, ok := val["_seconds"]; ok {
			return fromSecondsField(secs, val["_nanoseconds"])
		}
		return time.Time{}, e.Wrap("date object", e.ErrInvalidDate)
	default:
		return time.Time{}, e.Wrap(fmt.Sprintf("%T", v), e.ErrInvalidDate)
	}
}

func parseDateString(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, e.Wrap("date is empty", e.ErrInvalidDate)
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}

	// серийный номер, выгруженный строкой
	if f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64); err == nil {
		return fromSerial(f, loc)
	}

	return time.Time{}, e.Wrap(fmt.Sprintf("%q", s), e.ErrInvalidDate)
}

func fromSerial(f float64, loc *time.Location) (time.Time, error) {
	// 1 = 1900-01-01, 2958465 = 9999-12-31
	if f < 1 || f > 2958465 || math.IsNaN(f) {
		return time.Time{}, e.Wrap(fmt.Sprintf("serial %v", f), e.ErrInvalidDate)
	}

	days := math.Floor(f)
	secs := math.Round((f - days) * 86400)
	t := serialEpoch.AddDate(0, 0, int(days)).Add(time.Duration(secs) * time.Second)

	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
}

func fromSecondsField(secs, nanos any) (time.Time, error) {
	toInt := func(v any) (int64, bool) {
		switch n := v.(type) {
		case json.Number:
			i, err := n.Int64()
			return i, err == nil
		case float64:
			return int64(n), true
		case int64:
			return n, true
		case int:
			return int64(n), true
		}
		return 0, false
	}

	s, ok := toInt(secs)
	if !ok {
		return time.Time{}, e.Wrap("date seconds", e.ErrInvalidDate)
	}
	ns, _ := toInt(nanos)

	return time.Unix(s, ns), nil
}
