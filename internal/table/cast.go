package table

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// TimestampLayout is the canonical text form used when a timestamp is cast to
// STRING.
const TimestampLayout = "2006-01-02 15:04:05.999999999"

var (
	maxInt64 = decimal.NewFromInt(math.MaxInt64)
	minInt64 = decimal.NewFromInt(math.MinInt64)
)

// Cast converts v to the target type using warehouse TRY_CAST semantics:
// values that cannot be represented become nil instead of failing. Strings are
// trimmed first and blank strings are nil for every non-STRING target.
func Cast(v any, to Type) any {
	if v == nil {
		return nil
	}
	v = widen(v)
	switch to {
	case String:
		return toString(v)
	case Int:
		return toInt(v)
	case Float:
		return toFloat(v)
	case Bool:
		return toBool(v)
	case Timestamp:
		return toTimestamp(v)
	case Date:
		ts := toTimestamp(v)
		if ts == nil {
			return nil
		}
		t := ts.(time.Time)
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return nil
}

// Normalize maps a driver value onto the value set documented in the package
// comment, interpreting it as a column of type typ.
func Normalize(v any, typ Type) any {
	if v == nil {
		return nil
	}
	v = widen(v)
	if typ == "" {
		return v
	}
	if typ == String {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return Cast(v, typ)
}

// widen folds byte slices and narrow numeric kinds into string, int64 and
// float64.
func widen(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int16:
		return int64(x)
	case int8:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case float32:
		return float64(x)
	}
	return v
}

func toString(v any) any {
	switch x := v.(type) {
	case string:
		return x
	case time.Time:
		return x.UTC().Format(TimestampLayout)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return nil
	}
	return s
}

func toInt(v any) any {
	switch x := v.(type) {
	case int64:
		return x
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil
		}
		// NUMBER(38,0) semantics: round half away from zero.
		d = d.Round(0)
		if d.GreaterThan(maxInt64) || d.LessThan(minInt64) {
			return nil
		}
		return d.IntPart()
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		r := math.Round(x)
		// float64(math.MaxInt64) rounds up to 2^63, which does not fit.
		if r >= 0x1p63 || r < -0x1p63 {
			return nil
		}
		return int64(r)
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	case time.Time:
		return nil
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return nil
	}
	return n
}

func toFloat(v any) any {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return f
	case bool:
		if x {
			return float64(1)
		}
		return float64(0)
	case time.Time:
		return nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return nil
	}
	return f
}

func toBool(v any) any {
	switch x := v.(type) {
	case bool:
		return x
	case int64:
		return x != 0
	case float64:
		return x != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "t", "yes", "y", "on", "1":
			return true
		case "false", "f", "no", "n", "off", "0":
			return false
		}
		return nil
	}
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	TimestampLayout,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
	"01/02/2006",
	"01/02/2006 15:04:05",
}

func toTimestamp(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.UTC()
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil
		}
		for _, layout := range timestampLayouts {
			if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return t
			}
		}
		t, err := cast.ToTimeInDefaultLocationE(s, time.UTC)
		if err != nil {
			return nil
		}
		return t
	case int64:
		return time.Unix(x, 0).UTC()
	case float64, bool:
		return nil
	}
	return nil
}
