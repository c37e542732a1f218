package x402

import "fmt"

// Network holds per-network configuration for a chain this facilitator knows
// how to settle on. USDC mint addresses verified against Circle's published
// deployments.
type Network struct {
	// ID is the x402 protocol network identifier (e.g., "solana").
	ID string

	// RPCURL is the default JSON-RPC endpoint for the network.
	RPCURL string

	// USDCMint is the Circle USDC mint address on this network.
	USDCMint string

	// USDCDecimals is the decimal precision of USDC (always 6).
	USDCDecimals int
}

var (
	// SolanaMainnet is the configuration for Solana mainnet.
	SolanaMainnet = Network{
		ID:           "solana",
		RPCURL:       "https://api.mainnet-beta.solana.com",
		USDCMint:     "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		USDCDecimals: 6,
	}

	// SolanaDevnet is the configuration for Solana devnet.
	SolanaDevnet = Network{
		ID:           "solana-devnet",
		RPCURL:       "https://api.devnet.solana.com",
		USDCMint:     "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU",
		USDCDecimals: 6,
	}
)

// knownNetworks is the allow-list the enabled set is validated against.
var knownNetworks = map[string]Network{
	SolanaMainnet.ID: SolanaMainnet,
	SolanaDevnet.ID:  SolanaDevnet,
}

// LookupNetwork returns the configuration for a known network identifier.
func LookupNetwork(id string) (Network, bool) {
	n, ok := knownNetworks[id]
	return n, ok
}

// ValidateNetworks checks a configured network list against the allow-list.
// Any unrecognized entry is an error; callers treat this as startup-fatal
// rather than serving a misconfigured network set.
func ValidateNetworks(ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: no networks configured", ErrUnknownNetwork)
	}
	for _, id := range ids {
		if _, ok := knownNetworks[id]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownNetwork, id)
		}
	}
	return nil
}
