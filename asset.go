package x402

import (
	"encoding/json"
	"fmt"
	"math"
)

// DefaultAssetDecimals is assumed when no precision is carried anywhere in the
// requirements. Matches USDC, by far the dominant asset on this facilitator.
const DefaultAssetDecimals = 6

// UnknownAsset is the canonical address for an unresolvable asset.
const UnknownAsset = "unknown"

// AssetSpec is the tagged union over the asset shapes seen on the wire: a
// plain mint address string, or a structured object carrying the address plus
// its own decimal precision.
type AssetSpec struct {
	// Address is the token mint address, empty when the asset was absent or
	// took an unrecognized shape.
	Address string

	// Decimals is the precision carried by the structured form, nil otherwise.
	Decimals *int

	// Structured reports which branch of the union was decoded.
	Structured bool
}

// AssetAddress builds the plain-string form of the union.
func AssetAddress(address string) AssetSpec {
	return AssetSpec{Address: address}
}

// UnmarshalJSON decodes either union branch. Unrecognized shapes (null,
// numbers, arrays) decode to the zero value so resolution can fall back to
// "unknown" instead of failing the whole request.
func (a *AssetSpec) UnmarshalJSON(data []byte) error {
	*a = AssetSpec{}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		a.Address = s
		return nil
	}

	var obj struct {
		Address  any `json:"address"`
		Decimals any `json:"decimals"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil
	}
	if obj.Address == nil {
		return nil
	}

	a.Structured = true
	if s, ok := obj.Address.(string); ok {
		a.Address = s
	} else {
		a.Address = fmt.Sprint(obj.Address)
	}
	if d, ok := coerceDecimals(obj.Decimals); ok {
		a.Decimals = &d
	}
	return nil
}

// MarshalJSON re-encodes the branch that was decoded.
func (a AssetSpec) MarshalJSON() ([]byte, error) {
	if !a.Structured {
		return json.Marshal(a.Address)
	}
	obj := map[string]any{"address": a.Address}
	if a.Decimals != nil {
		obj["decimals"] = *a.Decimals
	}
	return json.Marshal(obj)
}

// CanonicalAsset is the resolved asset identity every downstream consumer
// works with: a mint address and the decimal precision used to display its
// atomic amounts.
type CanonicalAsset struct {
	Address  string
	Decimals int
}

// ResolveAsset extracts the canonical asset from payment requirements.
// Resolution order, which must not change: an extra.assetDecimals override
// wins in every branch; the structured asset form beats the plain string
// form; with neither, the address is "unknown". Decimals fall back to
// DefaultAssetDecimals.
func ResolveAsset(req *PaymentRequirements) CanonicalAsset {
	override, hasOverride := assetDecimalsOverride(req.Extra)

	decimals := func(fallback int) int {
		if hasOverride {
			return override
		}
		return fallback
	}

	switch {
	case req.Asset.Structured:
		d := DefaultAssetDecimals
		if req.Asset.Decimals != nil {
			d = *req.Asset.Decimals
		}
		return CanonicalAsset{Address: req.Asset.Address, Decimals: decimals(d)}
	case req.Asset.Address != "":
		return CanonicalAsset{Address: req.Asset.Address, Decimals: decimals(DefaultAssetDecimals)}
	default:
		return CanonicalAsset{Address: UnknownAsset, Decimals: decimals(DefaultAssetDecimals)}
	}
}

func assetDecimalsOverride(extra map[string]any) (int, bool) {
	if extra == nil {
		return 0, false
	}
	return coerceDecimals(extra["assetDecimals"])
}

// coerceDecimals accepts the numeric kinds a decoded JSON document can carry
// for a decimals field. Strings and other shapes are not well-formed numbers.
func coerceDecimals(v any) (int, bool) {
	switch d := v.(type) {
	case float64:
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return 0, false
		}
		return int(d), true
	case int:
		return d, true
	case int64:
		return int(d), true
	case json.Number:
		if i, err := d.Int64(); err == nil {
			return int(i), true
		}
		if f, err := d.Float64(); err == nil {
			return int(f), true
		}
		return 0, false
	default:
		return 0, false
	}
}
