package tagtree

import (
	"encoding/hex"
	"math"
	"strconv"
	"strings"
)

// Format renders v in a compact text form, e.g. {level:7,tags:["a","b"]}.
// Numeric suffixes mark the kind: 1b, 2s, 3L, 1.5f, 2.5d; Int has none.
// Arrays render as [B;1b,2b], [I;1,2] and [L;1L]; Raw values as
// raw#<kind>:<hex>.
func Format(v Value) string {
	var buf strings.Builder
	appendFormatted(&buf, v)
	return buf.String()
}

func appendFormatted(buf *strings.Builder, v Value) {
	switch v := v.(type) {
	case nil:
		buf.WriteString("<nil>")
	case Byte:
		buf.WriteString(strconv.Itoa(int(v)))
		buf.WriteByte('b')
	case Short:
		buf.WriteString(strconv.Itoa(int(v)))
		buf.WriteByte('s')
	case Int:
		buf.WriteString(strconv.Itoa(int(v)))
	case Long:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
		buf.WriteByte('L')
	case Float:
		buf.WriteString(formatFloat(float64(v), 32))
		buf.WriteByte('f')
	case Double:
		buf.WriteString(formatFloat(float64(v), 64))
		buf.WriteByte('d')
	case String:
		buf.WriteString(strconv.Quote(string(v)))
	case ByteArray:
		buf.WriteString("[B;")
		for i, x := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(strconv.Itoa(int(int8(x))))
			buf.WriteByte('b')
		}
		buf.WriteByte(']')
	case IntArray:
		buf.WriteString("[I;")
		for i, x := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(strconv.Itoa(int(x)))
		}
		buf.WriteByte(']')
	case LongArray:
		buf.WriteString("[L;")
		for i, x := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(strconv.FormatInt(x, 10))
			buf.WriteByte('L')
		}
		buf.WriteByte(']')
	case *List:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			appendFormatted(buf, item)
		}
		buf.WriteByte(']')
	case *Compound:
		buf.WriteByte('{')
		for i, e := range v.entries {
			if i > 0 {
				buf.WriteByte(',')
			}
			if isBareKey(e.key) {
				buf.WriteString(e.key)
			} else {
				buf.WriteString(strconv.Quote(e.key))
			}
			buf.WriteByte(':')
			appendFormatted(buf, e.val)
		}
		buf.WriteByte('}')
	case Raw:
		buf.WriteString("raw#")
		buf.WriteString(strconv.Itoa(int(v.Type)))
		buf.WriteByte(':')
		buf.WriteString(hex.EncodeToString(v.Payload))
	}
}

func formatFloat(f float64, bitSize int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'g', -1, bitSize)
}

// isBareKey reports whether key can be written without quotes.
func isBareKey(key string) bool {
	if key == "" {
		return false
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '_' || c == '-' || c == '+':
		default:
			return false
		}
	}
	return true
}
