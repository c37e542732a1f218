package x402

import "errors"

// Sentinel errors shared across the facilitator. Anything wrapping one of
// these surfaces to HTTP callers as a client-class failure; only configuration
// problems abort the process, and only at startup.

var (
	// ErrUnsupportedNetwork indicates a network outside the enabled set.
	ErrUnsupportedNetwork = errors.New("x402: unsupported network")

	// ErrUnknownNetwork indicates a configured network absent from the
	// known-network registry. Startup-fatal.
	ErrUnknownNetwork = errors.New("x402: unknown network")

	// ErrUnsupportedScheme indicates a payment scheme other than "exact".
	ErrUnsupportedScheme = errors.New("x402: unsupported payment scheme")

	// ErrUnsupportedVersion indicates an x402 protocol version mismatch.
	ErrUnsupportedVersion = errors.New("x402: unsupported protocol version")

	// ErrInvalidPayload indicates a payment payload that cannot be decoded.
	ErrInvalidPayload = errors.New("x402: invalid payment payload")

	// ErrInvalidRequirements indicates malformed payment requirements.
	ErrInvalidRequirements = errors.New("x402: invalid payment requirements")

	// ErrInvalidKey indicates unusable signer key material.
	ErrInvalidKey = errors.New("x402: invalid private key")

	// ErrNoWalletCapability indicates a signer that cannot expose a wallet
	// address, which settlement requires.
	ErrNoWalletCapability = errors.New("x402: signer has no wallet capability")

	// ErrVerificationFailed indicates the delegated verify operation failed.
	ErrVerificationFailed = errors.New("x402: payment verification failed")

	// ErrSettlementFailed indicates on-chain settlement failed.
	ErrSettlementFailed = errors.New("x402: payment settlement failed")
)
