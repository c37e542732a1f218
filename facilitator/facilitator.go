package facilitator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	x402 "github.com/BranchManager69/dexter-x402"
	"github.com/BranchManager69/dexter-x402/metrics"
)

// Facilitator composes the registry, the delegated signer capability, and the
// settlement window to answer verify and settle requests.
type Facilitator struct {
	registry *Registry
	window   *Window
	log      *zap.Logger
	metrics  metrics.Recorder
	now      func() time.Time
}

// Option configures a Facilitator.
type Option func(*Facilitator)

// WithLogger sets the structured logger.
func WithLogger(log *zap.Logger) Option {
	return func(f *Facilitator) { f.log = log }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(rec metrics.Recorder) Option {
	return func(f *Facilitator) { f.metrics = rec }
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(f *Facilitator) { f.now = now }
}

// New builds a Facilitator over the given registry.
func New(registry *Registry, opts ...Option) *Facilitator {
	f := &Facilitator{
		registry: registry,
		window:   NewWindow(),
		log:      zap.NewNop(),
		metrics:  metrics.Noop{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Networks returns the enabled network identifiers.
func (f *Facilitator) Networks() []string {
	return f.registry.Networks()
}

// Window exposes the settlement window for observation.
func (f *Facilitator) Window() *Window {
	return f.window
}

// Verify resolves the network, obtains its signer, and delegates verification.
// The signer's result is returned verbatim; on a valid payment an
// observability event carrying the resolved asset and amount is emitted. The
// settlement window is never touched here.
func (f *Facilitator) Verify(ctx context.Context, payment x402.PaymentPayload, reqs x402.PaymentRequirements) (*x402.VerifyResponse, error) {
	start := f.now()

	signer, err := f.registry.Signer(ctx, reqs.Network)
	if err != nil {
		f.metrics.IncCounter("verify_rejected", map[string]string{"network": reqs.Network})
		return nil, err
	}

	res, err := signer.Verify(ctx, payment, reqs)
	if err != nil {
		f.metrics.IncCounter("verify_error", map[string]string{"network": reqs.Network})
		return nil, err
	}
	f.metrics.ObserveLatency("verify", f.now().Sub(start), map[string]string{"network": reqs.Network})

	if res.IsValid {
		asset := x402.ResolveAsset(&reqs)
		f.metrics.IncCounter("verify_ok", map[string]string{"network": reqs.Network})
		f.log.Info("payment verified",
			zap.String("network", reqs.Network),
			zap.String("asset", asset.Address),
			zap.String("amount", displayAmount(reqs.MaxAmountRequired, asset.Decimals)),
			zap.String("payer", res.Payer),
		)
	} else {
		f.metrics.IncCounter("verify_invalid", map[string]string{"network": reqs.Network})
		f.log.Info("payment rejected",
			zap.String("network", reqs.Network),
			zap.String("reason", res.InvalidReason),
		)
	}
	return res, nil
}

// Settle resolves the network, requires a wallet-capable signer, and delegates
// settlement. On success the settled amount is recorded into the rolling
// window before the receipt is returned; an amount that fails to parse is
// logged as unavailable and skipped, never blocking the receipt.
func (f *Facilitator) Settle(ctx context.Context, payment x402.PaymentPayload, reqs x402.PaymentRequirements) (*x402.SettlementResponse, error) {
	start := f.now()

	signer, err := f.registry.Signer(ctx, reqs.Network)
	if err != nil {
		f.metrics.IncCounter("settle_rejected", map[string]string{"network": reqs.Network})
		return nil, err
	}

	wallet, ok := signer.(WalletSigner)
	if !ok {
		f.metrics.IncCounter("settle_rejected", map[string]string{"network": reqs.Network})
		return nil, fmt.Errorf("%w: network %q", x402.ErrNoWalletCapability, reqs.Network)
	}

	res, err := wallet.Settle(ctx, payment, reqs)
	if err != nil {
		f.metrics.IncCounter("settle_error", map[string]string{"network": reqs.Network})
		return nil, err
	}
	f.metrics.ObserveLatency("settle", f.now().Sub(start), map[string]string{"network": reqs.Network})

	if res.Success {
		f.metrics.IncCounter("settle_ok", map[string]string{"network": reqs.Network})
		f.recordSettlement(&reqs, res)
	} else {
		f.metrics.IncCounter("settle_failed", map[string]string{"network": reqs.Network})
		f.log.Warn("settlement failed",
			zap.String("network", reqs.Network),
			zap.String("reason", res.ErrorReason),
		)
	}
	return res, nil
}

// recordSettlement is best-effort telemetry, not part of the settlement's
// correctness contract.
func (f *Facilitator) recordSettlement(reqs *x402.PaymentRequirements, res *x402.SettlementResponse) {
	asset := x402.ResolveAsset(reqs)
	amount := x402.ParseAtomic(reqs.MaxAmountRequired)

	fields := []zap.Field{
		zap.String("network", reqs.Network),
		zap.String("asset", asset.Address),
		zap.String("transaction", res.Transaction),
		zap.String("payer", res.Payer),
	}

	if amount == nil {
		f.log.Info("payment settled",
			append(fields, zap.String("amount", "unavailable"))...)
		return
	}

	totals, count := f.window.Record(f.now(), asset.Address, asset.Decimals, amount)
	rolling := make(map[string]string, len(totals))
	for key, total := range totals {
		rolling[key.Asset] = x402.FormatAtomic(total, key.Decimals)
	}
	f.log.Info("payment settled", append(fields,
		zap.String("amount", x402.FormatAtomic(amount, asset.Decimals)),
		zap.Int("window_count", count),
		zap.Any("window_totals", rolling),
	)...)
}

// Supported lists the payment kinds this facilitator accepts: one
// exact-scheme entry per enabled network, with the fee payer address attached
// when the network's signer is wallet-capable. A network whose signer cannot
// be created is still advertised, just without the fee payer.
func (f *Facilitator) Supported(ctx context.Context) *x402.SupportedResponse {
	out := &x402.SupportedResponse{Kinds: make([]x402.SupportedKind, 0, len(f.registry.Networks()))}
	for _, id := range f.registry.Networks() {
		kind := x402.SupportedKind{
			X402Version: x402.Version,
			Scheme:      x402.SchemeExact,
			Network:     id,
		}
		signer, err := f.registry.Signer(ctx, id)
		if err != nil {
			f.log.Warn("signer unavailable for supported kinds", zap.String("network", id), zap.Error(err))
		} else if wallet, ok := signer.(WalletSigner); ok {
			kind.Extra = map[string]any{"feePayer": wallet.Address()}
		}
		out.Kinds = append(out.Kinds, kind)
	}
	return out
}

func displayAmount(raw x402.Amount, decimals int) string {
	amount := x402.ParseAtomic(raw)
	if amount == nil {
		return "unavailable"
	}
	return x402.FormatAtomic(amount, decimals)
}
