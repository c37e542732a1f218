// Package x402 defines the wire-level data model for the dexter x402
// facilitator: payment requirements and payloads as they arrive from resource
// servers, the verification and settlement result shapes returned to them, and
// the exact-amount helpers shared by every other package in this module.
package x402

import (
	"encoding/json"
	"fmt"
)

// Version is the x402 protocol version implemented by this facilitator.
const Version = 1

// SchemeExact is the only payment scheme this facilitator settles.
const SchemeExact = "exact"

// PaymentRequirements describes a single payment option a resource server
// advertised in its 402 response. It is supplied by the caller on /verify and
// /settle and never mutated by the facilitator.
type PaymentRequirements struct {
	// Scheme is the payment scheme identifier (e.g., "exact").
	Scheme string `json:"scheme"`

	// Network is the blockchain network identifier (e.g., "solana").
	Network string `json:"network"`

	// MaxAmountRequired is the payment amount in atomic units. Resource
	// servers send it as a string or, from older clients, a bare number.
	MaxAmountRequired Amount `json:"maxAmountRequired"`

	// Asset is the token mint. Either a plain address string or a structured
	// object carrying its own decimals; see AssetSpec.
	Asset AssetSpec `json:"asset"`

	// PayTo is the recipient address for the payment.
	PayTo string `json:"payTo"`

	// Resource is the URL of the protected resource.
	Resource string `json:"resource"`

	// Description is an optional human-readable payment description.
	Description string `json:"description,omitempty"`

	// MimeType is the content type of the protected resource.
	MimeType string `json:"mimeType,omitempty"`

	// MaxTimeoutSeconds is the validity period for the payment authorization.
	MaxTimeoutSeconds int `json:"maxTimeoutSeconds,omitempty"`

	// Extra carries scheme-specific additional data. Recognized keys:
	// "feePayer" (fee payer address for SVM networks) and "assetDecimals"
	// (decimal-precision override for display purposes).
	Extra map[string]any `json:"extra,omitempty"`
}

// Amount is the raw wire representation of an atomic amount. The x402 spec
// says string, but numeric values show up in the wild, so both JSON tokens are
// accepted. Conversion to an exact integer happens in ParseAtomic.
type Amount struct {
	raw     string
	numeric bool
}

// NewAmount wraps an atomic-unit string for use in requirements built in code.
func NewAmount(raw string) Amount {
	return Amount{raw: raw}
}

// String returns the raw wire value.
func (a Amount) String() string { return a.raw }

// IsNumeric reports whether the value arrived as a JSON number rather than a
// string. Numeric values take the documented lossy truncation path in
// ParseAtomic.
func (a Amount) IsNumeric() bool { return a.numeric }

// UnmarshalJSON accepts either a JSON string or a JSON number token.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = Amount{raw: s}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount must be a string or number: %w", err)
	}
	*a = Amount{raw: n.String(), numeric: true}
	return nil
}

// MarshalJSON renders the amount as a string, the canonical wire form.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.raw)
}

// PaymentPayload is a signed payment submitted for verification or settlement.
type PaymentPayload struct {
	// X402Version is the protocol version (currently 1).
	X402Version int `json:"x402Version"`

	// Scheme is the payment scheme identifier (e.g., "exact").
	Scheme string `json:"scheme"`

	// Network is the blockchain network identifier.
	Network string `json:"network"`

	// Payload contains the network-specific signed payment data, decoded by
	// the signer that owns the network (see svm.TransactionPayload).
	Payload json.RawMessage `json:"payload"`
}

// VerifyResponse is the result of verifying a payment without executing it.
type VerifyResponse struct {
	IsValid       bool   `json:"isValid"`
	InvalidReason string `json:"invalidReason,omitempty"`
	Payer         string `json:"payer,omitempty"`
}

// SettlementResponse is the result of settling a payment on-chain.
type SettlementResponse struct {
	// Success indicates whether the payment was settled.
	Success bool `json:"success"`

	// ErrorReason provides details if the payment failed.
	ErrorReason string `json:"errorReason,omitempty"`

	// Transaction is the on-chain transaction signature.
	Transaction string `json:"transaction,omitempty"`

	// Network is the network where the payment was settled.
	Network string `json:"network"`

	// Payer is the address that made the payment.
	Payer string `json:"payer,omitempty"`
}

// SupportedKind describes one payment type the facilitator accepts.
type SupportedKind struct {
	X402Version int            `json:"x402Version"`
	Scheme      string         `json:"scheme"`
	Network     string         `json:"network"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// SupportedResponse lists every payment type the facilitator accepts.
type SupportedResponse struct {
	Kinds []SupportedKind `json:"kinds"`
}
