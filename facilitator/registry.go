package facilitator

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	x402 "github.com/BranchManager69/dexter-x402"
)

// Registry holds the enabled network set and the per-network signer cache.
// Signers are created lazily on first demand and live for the process
// lifetime; there is no teardown path.
type Registry struct {
	enabled map[string]x402.Network
	order   []string
	factory SignerFactory

	group   singleflight.Group
	mu      sync.RWMutex
	signers map[string]Signer
}

// NewRegistry validates the configured network list against the known-network
// allow-list and builds a registry over it. An unrecognized entry is an error
// the caller must treat as startup-fatal.
func NewRegistry(networks []string, factory SignerFactory) (*Registry, error) {
	if err := x402.ValidateNetworks(networks); err != nil {
		return nil, err
	}
	if factory == nil {
		return nil, fmt.Errorf("signer factory is required")
	}

	enabled := make(map[string]x402.Network, len(networks))
	order := make([]string, 0, len(networks))
	for _, id := range networks {
		if _, dup := enabled[id]; dup {
			continue
		}
		n, _ := x402.LookupNetwork(id)
		enabled[id] = n
		order = append(order, id)
	}
	sort.Strings(order)

	return &Registry{
		enabled: enabled,
		order:   order,
		factory: factory,
		signers: make(map[string]Signer),
	}, nil
}

// Networks returns the enabled network identifiers in sorted order.
func (r *Registry) Networks() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Resolve maps a network identifier to its configuration. Identifiers outside
// the enabled set fail with ErrUnsupportedNetwork even when globally valid;
// this is a request-time validation error, not a fatal one.
func (r *Registry) Resolve(id string) (x402.Network, error) {
	n, ok := r.enabled[id]
	if !ok {
		return x402.Network{}, fmt.Errorf("%w: %q", x402.ErrUnsupportedNetwork, id)
	}
	return n, nil
}

// Signer returns the cached signer for a network, creating it on first use.
// Concurrent first-use callers share a single in-flight creation, so the
// factory runs at most once per network. Failed creations are not cached; the
// next request retries.
func (r *Registry) Signer(ctx context.Context, id string) (Signer, error) {
	network, err := r.Resolve(id)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	s, ok := r.signers[id]
	r.mu.RUnlock()
	if ok {
		return s, nil
	}

	v, err, _ := r.group.Do(id, func() (any, error) {
		r.mu.RLock()
		s, ok := r.signers[id]
		r.mu.RUnlock()
		if ok {
			return s, nil
		}

		s, err := r.factory(ctx, network)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.signers[id] = s
		r.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Signer), nil
}
