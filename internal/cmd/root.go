package cmd

import (
	"io"
	"net"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"formsearch/internal/client"
	"formsearch/internal/config"
	"formsearch/internal/gateway"
	"formsearch/internal/logging"
	"formsearch/internal/service"
)

var (
	cfgPath string
	appCfg  *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "formsearch",
	Short: "search-as-you-type over form questions",
	Long: `formsearch - search-as-you-type over form questions
  - search   interactive search, one or all strategies side by side
  - serve    gateway that forwards searches to the backend
  - query    one-shot search from the command line`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config file (default ./config.yaml or ~/.config/formsearch/config.yaml)")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(queryCmd)
}

func loadConfig(*cobra.Command, []string) error {
	_ = godotenv.Load()

	var err error
	if cfgPath == "" {
		appCfg, _, err = config.LoadDefault()
	} else {
		appCfg, err = config.Load(cfgPath)
	}
	return err
}

func setupLogging(file string) (io.Closer, error) {
	return logging.Setup(appCfg.Log.Level, file)
}

func gatewayConfig(cfg *config.AppConfig) gateway.Config {
	return gateway.Config{
		Addr:       cfg.Gateway.Addr,
		BackendURL: cfg.Gateway.BackendURL,
		APISecret:  cfg.Gateway.APISecret,
		RateLimit:  cfg.Gateway.RateLimit,
	}
}

func newDispatcher(cfg *config.AppConfig, gatewayURL string) *service.Dispatcher {
	cl := client.New(client.Config{BaseURL: gatewayURL})
	return service.NewDispatcher(cl, service.Options{
		Strategies: cfg.Client.Strategies,
		Primary:    cfg.Client.Primary,
		TopN:       cfg.Client.TopN,
	})
}

// localURL turns a listener address into a URL this process can dial.
// Wildcard hosts are replaced by the loopback address.
func localURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}
