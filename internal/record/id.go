package record

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// CanonicalID returns the trimmed string form of an identifier.
//
// Spreadsheet backends hand numeric-looking ids back as numbers, and the
// default float formatting switches to scientific notation for large values
// ("1.712e+12"). Numbers are therefore always rendered as plain decimals.
// Strings are trimmed and otherwise left alone; ids are never compared
// numerically.
func CanonicalID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(id)
	case json.Number:
		return canonicalNumber(id.String())
	case float64:
		if id == math.Trunc(id) && !math.IsInf(id, 0) {
			return new(big.Float).SetFloat64(id).Text('f', 0)
		}
		return strconv.FormatFloat(id, 'f', -1, 64)
	case float32:
		return CanonicalID(float64(id))
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case int32:
		return strconv.FormatInt(int64(id), 10)
	case uint64:
		return strconv.FormatUint(id, 10)
	case fmt.Stringer:
		return strings.TrimSpace(id.String())
	default:
		return strings.TrimSpace(fmt.Sprint(id))
	}
}

// canonicalNumber renders a JSON number literal without an exponent.
// Integers keep every digit; the literal is returned trimmed when it is
// already plain or cannot be parsed.
func canonicalNumber(lit string) string {
	lit = strings.TrimSpace(lit)
	if !strings.ContainsAny(lit, "eE") {
		return lit
	}
	r, ok := new(big.Rat).SetString(lit)
	if !ok {
		return lit
	}
	if r.IsInt() {
		return r.Num().String()
	}
	f, _ := r.Float64()
	return strconv.FormatFloat(f, 'f', -1, 64)
}
