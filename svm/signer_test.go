package svm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"

	x402 "github.com/BranchManager69/dexter-x402"
)

func newTestSigner(t *testing.T) *Signer {
	t.Helper()
	wallet := solana.NewWallet()
	s, err := NewSigner(x402.SolanaDevnet, WithSecretKey(wallet.PrivateKey.String()))
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	return s
}

// buildPayment assembles a client-signed SPL TransferChecked transaction the
// way a paying client would: fee payer slot assigned to the facilitator,
// client signature applied, fee payer signature left empty.
func buildPayment(t *testing.T, feePayer solana.PublicKey, client *solana.Wallet, mint, recipient solana.PublicKey, amount uint64, decimals uint8) x402.PaymentPayload {
	t.Helper()

	sourceATA, _, err := solana.FindAssociatedTokenAddress(client.PublicKey(), mint)
	if err != nil {
		t.Fatalf("source ATA: %v", err)
	}
	destATA, _, err := solana.FindAssociatedTokenAddress(recipient, mint)
	if err != nil {
		t.Fatalf("dest ATA: %v", err)
	}

	transfer := token.NewTransferCheckedInstructionBuilder().
		SetAmount(amount).
		SetDecimals(decimals).
		SetSourceAccount(sourceATA).
		SetDestinationAccount(destATA).
		SetMintAccount(mint).
		SetOwnerAccount(client.PublicKey()).
		Build()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{transfer},
		solana.Hash{},
		solana.TransactionPayer(feePayer),
	)
	if err != nil {
		t.Fatalf("NewTransaction: %v", err)
	}

	if _, err := tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(client.PublicKey()) {
			return &client.PrivateKey
		}
		return nil
	}); err != nil {
		t.Fatalf("PartialSign: %v", err)
	}

	txBytes, err := tx.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}

	return x402.PaymentPayload{
		X402Version: 1,
		Scheme:      "exact",
		Network:     "solana-devnet",
		Payload:     json.RawMessage(fmt.Sprintf(`{"transaction":%q}`, base64.StdEncoding.EncodeToString(txBytes))),
	}
}

func requirementsFor(mint, recipient solana.PublicKey, amount string) x402.PaymentRequirements {
	return x402.PaymentRequirements{
		Scheme:            "exact",
		Network:           "solana-devnet",
		MaxAmountRequired: x402.NewAmount(amount),
		Asset:             x402.AssetAddress(mint.String()),
		PayTo:             recipient.String(),
		Resource:          "https://api.example.com/data",
	}
}

func TestNewSigner(t *testing.T) {
	wallet := solana.NewWallet()

	tests := []struct {
		name    string
		opts    []Option
		wantErr bool
	}{
		{"valid secret key", []Option{WithSecretKey(wallet.PrivateKey.String())}, false},
		{"no key", nil, true},
		{"malformed key", []Option{WithSecretKey("not-base58!")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSigner(x402.SolanaDevnet, tt.opts...)
			if tt.wantErr {
				if !errors.Is(err, x402.ErrInvalidKey) {
					t.Fatalf("err = %v, want ErrInvalidKey", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewSigner: %v", err)
			}
			if s.Network() != "solana-devnet" {
				t.Errorf("Network() = %q", s.Network())
			}
			if s.Address() != wallet.PublicKey().String() {
				t.Errorf("Address() = %q, want %q", s.Address(), wallet.PublicKey())
			}
		})
	}
}

func TestNewSignerFromKeygenFile(t *testing.T) {
	wallet := solana.NewWallet()
	raw := make([]int, len(wallet.PrivateKey))
	for i, b := range wallet.PrivateKey {
		raw[i] = int(b)
	}
	keyBytes, err := json.Marshal(raw)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	path := filepath.Join(t.TempDir(), "keypair.json")
	if err := os.WriteFile(path, keyBytes, 0o600); err != nil {
		t.Fatalf("write keygen file: %v", err)
	}

	s, err := NewSigner(x402.SolanaDevnet, WithKeygenFile(path))
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	if s.Address() != wallet.PublicKey().String() {
		t.Errorf("Address() = %q, want %q", s.Address(), wallet.PublicKey())
	}
}

func TestVerifyValidPayment(t *testing.T) {
	s := newTestSigner(t)
	client := solana.NewWallet()
	mint := solana.NewWallet().PublicKey()
	recipient := solana.NewWallet().PublicKey()

	payment := buildPayment(t, s.pub, client, mint, recipient, 1000000, 6)
	res, err := s.Verify(context.Background(), payment, requirementsFor(mint, recipient, "1000000"))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !res.IsValid {
		t.Fatalf("invalid: %s", res.InvalidReason)
	}
	if res.Payer != client.PublicKey().String() {
		t.Errorf("Payer = %q, want %q", res.Payer, client.PublicKey())
	}
}

func TestVerifyRejections(t *testing.T) {
	s := newTestSigner(t)
	client := solana.NewWallet()
	mint := solana.NewWallet().PublicKey()
	otherMint := solana.NewWallet().PublicKey()
	recipient := solana.NewWallet().PublicKey()
	otherRecipient := solana.NewWallet().PublicKey()

	tests := []struct {
		name    string
		payment x402.PaymentPayload
		reqs    x402.PaymentRequirements
	}{
		{
			name:    "fee payer mismatch",
			payment: buildPayment(t, solana.NewWallet().PublicKey(), client, mint, recipient, 1000000, 6),
			reqs:    requirementsFor(mint, recipient, "1000000"),
		},
		{
			name:    "mint mismatch",
			payment: buildPayment(t, s.pub, client, otherMint, recipient, 1000000, 6),
			reqs:    requirementsFor(mint, recipient, "1000000"),
		},
		{
			name:    "amount mismatch",
			payment: buildPayment(t, s.pub, client, mint, recipient, 999, 6),
			reqs:    requirementsFor(mint, recipient, "1000000"),
		},
		{
			name:    "recipient mismatch",
			payment: buildPayment(t, s.pub, client, mint, otherRecipient, 1000000, 6),
			reqs:    requirementsFor(mint, recipient, "1000000"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Verify(context.Background(), tt.payment, tt.reqs)
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if res.IsValid {
				t.Fatal("payment unexpectedly valid")
			}
			if res.InvalidReason == "" {
				t.Error("InvalidReason is empty")
			}
		})
	}
}

func TestVerifyEnvelopeMismatch(t *testing.T) {
	s := newTestSigner(t)
	client := solana.NewWallet()
	mint := solana.NewWallet().PublicKey()
	recipient := solana.NewWallet().PublicKey()
	reqs := requirementsFor(mint, recipient, "1000000")

	tests := []struct {
		name   string
		mutate func(*x402.PaymentPayload)
	}{
		{"wrong version", func(p *x402.PaymentPayload) { p.X402Version = 2 }},
		{"wrong scheme", func(p *x402.PaymentPayload) { p.Scheme = "subscription" }},
		{"wrong network", func(p *x402.PaymentPayload) { p.Network = "solana" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payment := buildPayment(t, s.pub, client, mint, recipient, 1000000, 6)
			tt.mutate(&payment)

			res, err := s.Verify(context.Background(), payment, reqs)
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if res.IsValid {
				t.Fatal("payment unexpectedly valid")
			}
		})
	}
}

func TestVerifyMalformedPayload(t *testing.T) {
	s := newTestSigner(t)

	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `"garbage"`},
		{"missing transaction", `{}`},
		{"not base64", `{"transaction":"!!!"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payment := x402.PaymentPayload{
				X402Version: 1,
				Scheme:      "exact",
				Network:     "solana-devnet",
				Payload:     json.RawMessage(tt.payload),
			}
			_, err := s.Verify(context.Background(), payment, x402.PaymentRequirements{})
			if !errors.Is(err, x402.ErrInvalidPayload) {
				t.Fatalf("err = %v, want ErrInvalidPayload", err)
			}
		})
	}
}

// An invalid payment settles to a failure receipt without touching the RPC
// node.
func TestSettleInvalidPaymentReturnsFailureReceipt(t *testing.T) {
	s := newTestSigner(t)
	client := solana.NewWallet()
	mint := solana.NewWallet().PublicKey()
	recipient := solana.NewWallet().PublicKey()

	payment := buildPayment(t, s.pub, client, mint, recipient, 999, 6)
	res, err := s.Settle(context.Background(), payment, requirementsFor(mint, recipient, "1000000"))
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if res.Success {
		t.Fatal("settlement unexpectedly succeeded")
	}
	if res.ErrorReason == "" {
		t.Error("ErrorReason is empty")
	}
	if res.Network != "solana-devnet" {
		t.Errorf("Network = %q", res.Network)
	}
}
