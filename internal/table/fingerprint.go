package table

import (
	"math"
	"strconv"
	"time"

	"github.com/zeebo/xxh3"
)

// Value tags keep e.g. the string "1" and the integer 1 apart.
const (
	tagNull byte = iota
	tagString
	tagInt
	tagFloat
	tagBool
	tagTime
	tagOther
)

// Fingerprint returns a 64-bit xxh3 digest of the table schema and content,
// skipping the columns named in exclude (typically load timestamps). Two tables
// with the same columns and the same rows in the same order have the same
// fingerprint.
func Fingerprint(t *Table, exclude ...string) uint64 {
	skip := make(map[int]bool, len(exclude))
	for _, name := range exclude {
		if ix := t.Index(name); ix >= 0 {
			skip[ix] = true
		}
	}

	h := xxh3.New()
	buf := make([]byte, 0, 64)
	for i, c := range t.Columns {
		if skip[i] {
			continue
		}
		buf = append(buf[:0], c.Name...)
		buf = append(buf, 0)
		buf = append(buf, c.Type...)
		buf = append(buf, 0)
		_, _ = h.Write(buf)
	}
	_, _ = h.Write([]byte{'\n'})

	for _, r := range t.Rows {
		for i, v := range r {
			if skip[i] {
				continue
			}
			buf = appendValue(buf[:0], v)
			_, _ = h.Write(buf)
		}
		_, _ = h.Write([]byte{'\n'})
	}
	return h.Sum64()
}

func appendValue(b []byte, v any) []byte {
	switch x := v.(type) {
	case nil:
		return append(b, tagNull)
	case string:
		b = append(b, tagString)
		b = strconv.AppendInt(b, int64(len(x)), 10)
		b = append(b, ':')
		return append(b, x...)
	case int64:
		b = append(b, tagInt)
		return strconv.AppendInt(b, x, 10)
	case float64:
		b = append(b, tagFloat)
		return strconv.AppendUint(b, math.Float64bits(x), 16)
	case bool:
		b = append(b, tagBool)
		return strconv.AppendBool(b, x)
	case time.Time:
		b = append(b, tagTime)
		return strconv.AppendInt(b, x.UnixNano(), 10)
	default:
		b = append(b, tagOther)
		s, _ := toString(v).(string)
		return append(b, s...)
	}
}
