package cmd

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"formsearch/internal/debounce"
	"formsearch/internal/domain"
	"formsearch/internal/gateway"
	"formsearch/internal/logging"
	"formsearch/internal/tui"
)

var (
	searchDev   bool
	searchServe bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Interactive search-as-you-type",
	Long: `Interactive search over form questions.

Results refresh as you type. UserView queries the primary strategy;
DevView (ctrl+t, or --dev) queries every strategy and shows them side
by side.

Examples:
  formsearch search               # gateway already running
  formsearch search --serve       # start the gateway in-process
  formsearch search --dev         # start in DevView`,
	Args: cobra.NoArgs,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&searchDev, "dev", false, "start in DevView")
	searchCmd.Flags().BoolVar(&searchServe, "serve", false, "run the gateway in this process")
}

func runSearch(cmd *cobra.Command, _ []string) error {
	file := appCfg.Log.File
	if file == "" {
		file = logging.DefaultFile()
	}
	closer, err := setupLogging(file)
	if err != nil {
		return err
	}
	defer closer.Close()

	gatewayURL := appCfg.Client.GatewayURL
	if searchServe {
		gw := gateway.NewService(gatewayConfig(appCfg))
		if err := gw.Start(); err != nil {
			return fmt.Errorf("start gateway: %w", err)
		}
		defer gw.Stop()
		gatewayURL = localURL(gw.Addr())
	}

	d := newDispatcher(appCfg, gatewayURL)
	defer d.Close()
	deb := debounce.New(time.Duration(appCfg.Client.DebounceMS) * time.Millisecond)

	mode := domain.UserView
	if searchDev {
		mode = domain.DevView
	}
	log.Info().Str("gateway", gatewayURL).Str("mode", mode.String()).Msg("starting search UI")

	if _, err := tea.NewProgram(tui.New(d, deb, mode), tea.WithAltScreen()).Run(); err != nil {
		return err
	}
	return nil
}
