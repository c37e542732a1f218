// Package facilitator implements the request resolution and settlement
// accounting core of the dexter x402 facilitator: it maps networks to lazily
// created signers, delegates verification and settlement to them, and tracks
// settled volume per asset over a trailing 24-hour window.
package facilitator

import (
	"context"

	x402 "github.com/BranchManager69/dexter-x402"
)

// Signer is the outbound capability contract the facilitator delegates
// cryptographic work to. One signer is bound to one network for the lifetime
// of the process.
type Signer interface {
	// Network returns the network identifier the signer is bound to.
	Network() string

	// Verify checks a payment authorization without executing it.
	Verify(ctx context.Context, payment x402.PaymentPayload, reqs x402.PaymentRequirements) (*x402.VerifyResponse, error)

	// Settle executes a verified payment on-chain and returns the receipt.
	Settle(ctx context.Context, payment x402.PaymentPayload, reqs x402.PaymentRequirements) (*x402.SettlementResponse, error)
}

// WalletSigner is a Signer that can expose its fee payer wallet address.
// Settlement requires this capability; /supported advertises the address as
// extra.feePayer.
type WalletSigner interface {
	Signer

	// Address returns the signer's public wallet address.
	Address() string
}

// SignerFactory creates the signer for a network. Invoked at most once per
// network per process; the registry memoizes both in-flight and completed
// creations.
type SignerFactory func(ctx context.Context, network x402.Network) (Signer, error)
