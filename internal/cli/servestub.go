package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"xloractl/internal/stubserver"
)

// defaultStubAddr mirrors the port the production inference server
// listens on, so clients need no reconfiguration.
const defaultStubAddr = ":1234"

func newServeStubCmd(a *app) *cobra.Command {
	var (
		addr       string
		enableCORS bool
	)
	cmd := &cobra.Command{
		Use:   "serve-stub",
		Short: "Run a deterministic stub inference server for development and testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("addr") && a.cfg.StubAddr != "" {
				addr = a.cfg.StubAddr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			a.log.Info().Str("addr", addr).Msg("stub server listening")
			return stubserver.ListenAndServe(ctx, addr, stubserver.Options{
				Model:      a.cfg.Model,
				EnableCORS: enableCORS,
				Logger:     &a.log,
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", defaultStubAddr, "HTTP listen address")
	cmd.Flags().BoolVar(&enableCORS, "cors", false, "Enable permissive CORS")
	return cmd
}
