package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"formsearch/internal/gateway"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the search gateway",
	Long: `Run the gateway that forwards POST /api/search to the backend's
/search endpoint with the shared secret attached.

Configuration comes from the config file, overridden by BACKEND_URL,
API_SECRET, GATEWAY_ADDR and GATEWAY_RATE_LIMIT.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	closer, err := setupLogging(appCfg.Log.File)
	if err != nil {
		return err
	}
	defer closer.Close()

	gw := gateway.NewService(gatewayConfig(appCfg))

	errCh := make(chan error, 1)
	go func() { errCh <- gw.ListenAndServe() }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case err := <-errCh:
		return err
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("shutting down")
		return gw.Stop()
	}
}
