package x402

import (
	"encoding/json"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// ParseAtomic converts a raw amount value into an exact atomic-unit integer.
// It accepts *big.Int, Amount, string, json.Number, float64, and the common
// integer kinds. A nil result means "amount unknown" and is never a fatal
// condition; callers degrade to an unavailable display state instead.
//
// String inputs are parsed exactly in base 10 with no floating-point
// intermediate. Numeric inputs are truncated toward zero first, a documented
// lossy path kept for older clients that send bare JSON numbers.
func ParseAtomic(raw any) *big.Int {
	switch v := raw.(type) {
	case nil:
		return nil
	case *big.Int:
		if v == nil {
			return nil
		}
		return new(big.Int).Set(v)
	case Amount:
		if v.numeric {
			return truncateNumericString(v.raw)
		}
		return parseIntegerString(v.raw)
	case string:
		return parseIntegerString(v)
	case json.Number:
		if n := parseIntegerString(v.String()); n != nil {
			return n
		}
		return truncateNumericString(v.String())
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		n, _ := big.NewFloat(math.Trunc(v)).Int(nil)
		return n
	case int:
		return big.NewInt(int64(v))
	case int64:
		return big.NewInt(v)
	case uint64:
		return new(big.Int).SetUint64(v)
	default:
		return nil
	}
}

func parseIntegerString(s string) *big.Int {
	if s == "" {
		return nil
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil
	}
	return n
}

func truncateNumericString(s string) *big.Int {
	f, _, err := big.ParseFloat(s, 10, 128, big.ToZero)
	if err != nil || f.IsInf() {
		return nil
	}
	// big.Float.Int truncates toward zero.
	n, _ := f.Int(nil)
	return n
}

// FormatAtomic renders an atomic amount as a fixed-point decimal string. With
// decimals <= 0 the integer is returned as-is; otherwise the value is scaled
// by 10^decimals with trailing zeros stripped from the fraction, and the
// separator omitted entirely when the fraction strips empty. The sign applies
// to the whole magnitude. Exact for all magnitudes; decimal is big.Int-backed
// so no floating-point rounding is involved.
func FormatAtomic(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	if decimals <= 0 {
		return amount.String()
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}
