package facilitator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	x402 "github.com/BranchManager69/dexter-x402"
)

type stubSigner struct {
	network string
	address string

	verify func(ctx context.Context, payment x402.PaymentPayload, reqs x402.PaymentRequirements) (*x402.VerifyResponse, error)
	settle func(ctx context.Context, payment x402.PaymentPayload, reqs x402.PaymentRequirements) (*x402.SettlementResponse, error)
}

func (s *stubSigner) Network() string { return s.network }
func (s *stubSigner) Address() string { return s.address }

func (s *stubSigner) Verify(ctx context.Context, payment x402.PaymentPayload, reqs x402.PaymentRequirements) (*x402.VerifyResponse, error) {
	if s.verify == nil {
		return &x402.VerifyResponse{IsValid: true}, nil
	}
	return s.verify(ctx, payment, reqs)
}

func (s *stubSigner) Settle(ctx context.Context, payment x402.PaymentPayload, reqs x402.PaymentRequirements) (*x402.SettlementResponse, error) {
	if s.settle == nil {
		return &x402.SettlementResponse{Success: true, Network: s.network}, nil
	}
	return s.settle(ctx, payment, reqs)
}

func stubFactory(s Signer) SignerFactory {
	return func(ctx context.Context, network x402.Network) (Signer, error) {
		return s, nil
	}
}

func TestNewRegistryRejectsUnknownNetwork(t *testing.T) {
	_, err := NewRegistry([]string{"solana", "base"}, stubFactory(&stubSigner{}))
	if !errors.Is(err, x402.ErrUnknownNetwork) {
		t.Fatalf("err = %v, want ErrUnknownNetwork", err)
	}
}

func TestRegistryResolve(t *testing.T) {
	r, err := NewRegistry([]string{"solana-devnet"}, stubFactory(&stubSigner{}))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	if _, err := r.Resolve("solana-devnet"); err != nil {
		t.Errorf("Resolve(enabled) = %v", err)
	}

	// Globally valid but not enabled: still unsupported.
	if _, err := r.Resolve("solana"); !errors.Is(err, x402.ErrUnsupportedNetwork) {
		t.Errorf("Resolve(solana) = %v, want ErrUnsupportedNetwork", err)
	}
	if _, err := r.Resolve("base"); !errors.Is(err, x402.ErrUnsupportedNetwork) {
		t.Errorf("Resolve(base) = %v, want ErrUnsupportedNetwork", err)
	}
}

func TestRegistrySignerCreatedOnce(t *testing.T) {
	var calls atomic.Int32
	factory := func(ctx context.Context, network x402.Network) (Signer, error) {
		calls.Add(1)
		time.Sleep(10 * time.Millisecond) // widen the first-use race window
		return &stubSigner{network: network.ID}, nil
	}

	r, err := NewRegistry([]string{"solana"}, factory)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	const concurrency = 8
	signers := make([]Signer, concurrency)
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := r.Signer(context.Background(), "solana")
			if err != nil {
				t.Errorf("Signer: %v", err)
				return
			}
			signers[i] = s
		}()
	}
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("factory called %d times, want 1", got)
	}
	for i := 1; i < concurrency; i++ {
		if signers[i] != signers[0] {
			t.Fatalf("caller %d observed a different signer instance", i)
		}
	}
}

func TestRegistrySignerFailureNotCached(t *testing.T) {
	var calls atomic.Int32
	factory := func(ctx context.Context, network x402.Network) (Signer, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("rpc unreachable")
		}
		return &stubSigner{network: network.ID}, nil
	}

	r, err := NewRegistry([]string{"solana"}, factory)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	if _, err := r.Signer(context.Background(), "solana"); err == nil {
		t.Fatal("first Signer call should fail")
	}
	if _, err := r.Signer(context.Background(), "solana"); err != nil {
		t.Fatalf("second Signer call failed: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("factory called %d times, want 2", got)
	}
}

func TestRegistrySignerUnsupportedNetwork(t *testing.T) {
	r, err := NewRegistry([]string{"solana"}, stubFactory(&stubSigner{}))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if _, err := r.Signer(context.Background(), "solana-devnet"); !errors.Is(err, x402.ErrUnsupportedNetwork) {
		t.Fatalf("err = %v, want ErrUnsupportedNetwork", err)
	}
}

func TestRegistryNetworksSorted(t *testing.T) {
	r, err := NewRegistry([]string{"solana-devnet", "solana", "solana"}, stubFactory(&stubSigner{}))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	got := r.Networks()
	if len(got) != 2 || got[0] != "solana" || got[1] != "solana-devnet" {
		t.Fatalf("Networks() = %v", got)
	}
}
