package encoding

import (
	"encoding/json"
	"errors"
	"testing"

	x402 "github.com/BranchManager69/dexter-x402"
)

func TestPaymentRoundTrip(t *testing.T) {
	payment := x402.PaymentPayload{
		X402Version: 1,
		Scheme:      "exact",
		Network:     "solana-devnet",
		Payload:     json.RawMessage(`{"transaction":"AQID"}`),
	}

	encoded, err := EncodePayment(payment)
	if err != nil {
		t.Fatalf("EncodePayment: %v", err)
	}

	decoded, err := DecodePayment(encoded)
	if err != nil {
		t.Fatalf("DecodePayment: %v", err)
	}
	if decoded.Scheme != payment.Scheme || decoded.Network != payment.Network {
		t.Errorf("decoded = %+v", decoded)
	}
	if string(decoded.Payload) != string(payment.Payload) {
		t.Errorf("Payload = %s", decoded.Payload)
	}
}

func TestDecodePaymentErrors(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{"not base64", "!!!"},
		{"not json", "bm90IGpzb24="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePayment(tt.encoded)
			if !errors.Is(err, x402.ErrInvalidPayload) {
				t.Errorf("err = %v, want ErrInvalidPayload", err)
			}
		})
	}
}

func TestSettlementRoundTrip(t *testing.T) {
	settlement := x402.SettlementResponse{
		Success:     true,
		Transaction: "5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7",
		Network:     "solana-devnet",
		Payer:       "7v91N7iZ9mNicL8WfG6cgSCKyRXydQjLh6UYBWwm6y1Q",
	}

	encoded, err := EncodeSettlement(settlement)
	if err != nil {
		t.Fatalf("EncodeSettlement: %v", err)
	}

	decoded, err := DecodeSettlement(encoded)
	if err != nil {
		t.Fatalf("DecodeSettlement: %v", err)
	}
	if decoded != settlement {
		t.Errorf("decoded = %+v, want %+v", decoded, settlement)
	}
}
