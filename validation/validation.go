// Package validation checks request envelopes at the HTTP boundary before
// they reach a signer. It rejects only what no signer could ever accept;
// anything network-specific is left to the signer that owns the network.
package validation

import (
	"fmt"

	x402 "github.com/BranchManager69/dexter-x402"
)

// ValidatePayload checks the structural shape of a submitted payment.
func ValidatePayload(payment x402.PaymentPayload) error {
	if payment.X402Version != x402.Version {
		return fmt.Errorf("%w: unsupported x402 version %d", x402.ErrUnsupportedVersion, payment.X402Version)
	}
	if payment.Scheme == "" {
		return fmt.Errorf("%w: scheme cannot be empty", x402.ErrInvalidPayload)
	}
	if payment.Scheme != x402.SchemeExact {
		return fmt.Errorf("%w: %s", x402.ErrUnsupportedScheme, payment.Scheme)
	}
	if payment.Network == "" {
		return fmt.Errorf("%w: network cannot be empty", x402.ErrInvalidPayload)
	}
	if len(payment.Payload) == 0 {
		return fmt.Errorf("%w: payload cannot be empty", x402.ErrInvalidPayload)
	}
	return nil
}

// ValidateRequirements checks the structural shape of payment requirements.
// The amount is deliberately not required here: requirements without a
// parseable amount still verify and settle, they just cannot be totalled.
func ValidateRequirements(reqs x402.PaymentRequirements) error {
	if reqs.Scheme == "" {
		return fmt.Errorf("%w: scheme cannot be empty", x402.ErrInvalidRequirements)
	}
	if reqs.Scheme != x402.SchemeExact {
		return fmt.Errorf("%w: %s", x402.ErrUnsupportedScheme, reqs.Scheme)
	}
	if reqs.Network == "" {
		return fmt.Errorf("%w: network cannot be empty", x402.ErrInvalidRequirements)
	}
	if reqs.PayTo == "" {
		return fmt.Errorf("%w: payTo cannot be empty", x402.ErrInvalidRequirements)
	}
	if reqs.MaxTimeoutSeconds < 0 {
		return fmt.Errorf("%w: timeout cannot be negative: %d", x402.ErrInvalidRequirements, reqs.MaxTimeoutSeconds)
	}
	return nil
}
