// Package encoding handles the base64 JSON transport encoding x402 uses for
// payment headers: X-Payment on requests and X-Payment-Response on receipts.
package encoding

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	x402 "github.com/BranchManager69/dexter-x402"
)

// EncodePayment converts a PaymentPayload to a base64-encoded JSON string,
// the X-Payment header wire form.
func EncodePayment(payment x402.PaymentPayload) (string, error) {
	paymentJSON, err := json.Marshal(payment)
	if err != nil {
		return "", fmt.Errorf("marshal payment: %w", err)
	}
	return base64.StdEncoding.EncodeToString(paymentJSON), nil
}

// DecodePayment converts a base64-encoded JSON string to a PaymentPayload.
func DecodePayment(encoded string) (x402.PaymentPayload, error) {
	var payment x402.PaymentPayload

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return payment, fmt.Errorf("%w: decode base64: %v", x402.ErrInvalidPayload, err)
	}
	if err := json.Unmarshal(decoded, &payment); err != nil {
		return payment, fmt.Errorf("%w: unmarshal payment: %v", x402.ErrInvalidPayload, err)
	}
	return payment, nil
}

// EncodeSettlement converts a SettlementResponse to a base64-encoded JSON
// string, the X-Payment-Response header wire form.
func EncodeSettlement(settlement x402.SettlementResponse) (string, error) {
	settlementJSON, err := json.Marshal(settlement)
	if err != nil {
		return "", fmt.Errorf("marshal settlement: %w", err)
	}
	return base64.StdEncoding.EncodeToString(settlementJSON), nil
}

// DecodeSettlement converts a base64-encoded JSON string to a
// SettlementResponse.
func DecodeSettlement(encoded string) (x402.SettlementResponse, error) {
	var settlement x402.SettlementResponse

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return settlement, fmt.Errorf("decode base64: %w", err)
	}
	if err := json.Unmarshal(decoded, &settlement); err != nil {
		return settlement, fmt.Errorf("unmarshal settlement: %w", err)
	}
	return settlement, nil
}
