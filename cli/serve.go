package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	x402 "github.com/BranchManager69/dexter-x402"
	"github.com/BranchManager69/dexter-x402/facilitator"
	"github.com/BranchManager69/dexter-x402/httpapi"
	"github.com/BranchManager69/dexter-x402/metrics"
	"github.com/BranchManager69/dexter-x402/svm"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the facilitator HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		defer func() { _ = log.Sync() }()

		registry, err := facilitator.NewRegistry(cfg.Networks.Enabled, signerFactory())
		if err != nil {
			return err
		}

		promRegistry := prometheus.NewRegistry()
		promRegistry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		fac := facilitator.New(registry,
			facilitator.WithLogger(log),
			facilitator.WithMetrics(metrics.NewPrometheusRecorder(promRegistry)),
		)

		log.Info("starting facilitator",
			zap.Strings("networks", fac.Networks()),
			zap.String("addr", cfg.Server.Addr()),
		)

		server := httpapi.NewServer(fac, cfg.Server, log, promRegistry)
		return server.Run(ctx)
	},
}

// signerFactory builds the per-network signer from the solana credentials in
// the loaded config.
func signerFactory() facilitator.SignerFactory {
	return func(ctx context.Context, network x402.Network) (facilitator.Signer, error) {
		opts := []svm.Option{}
		if cfg.Solana.SecretKey != "" {
			opts = append(opts, svm.WithSecretKey(cfg.Solana.SecretKey))
		}
		if cfg.Solana.KeygenFile != "" {
			opts = append(opts, svm.WithKeygenFile(cfg.Solana.KeygenFile))
		}
		if cfg.Solana.RPCURL != "" {
			opts = append(opts, svm.WithRPCEndpoint(cfg.Solana.RPCURL))
		}
		return svm.NewSigner(network, opts...)
	}
}
