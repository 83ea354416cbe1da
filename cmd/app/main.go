package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"StrikeGate/internal/di"
	"StrikeGate/pkg/config"
	xhttp "StrikeGate/pkg/http"
)

var (
	version = "dev"
	commit  = "none"
)

var (
	configPath string
	serverAddr string
)

func main() {
	root := &cobra.Command{
		Use:          "strikegate",
		Short:        "Intraday index-options decision engine",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "config file path")

	root.AddCommand(serveCmd(), evaluateCmd(), riskCmd(), statusCmd(), versionCmd())

	_ = root.Execute()
}

func loadConfig() (*config.Config, error) {
	// .env is optional; explicit environment variables win either way
	_ = godotenv.Load()
	return config.LoadWithEnv(configPath)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the engine: market feed, decision loop, consumers and the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			app, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("init: %w", err)
			}
			return app.Run()
		},
	}
}

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Trigger one decision cycle on a running instance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return callAPI(cmd, xhttp.MethodPost, "/api/decisions/evaluate", map[string]string{})
		},
	}
	addAddrFlag(cmd)
	return cmd
}

func riskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Show today's risk budget from a running instance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return callAPI(cmd, xhttp.MethodGet, "/api/risk/state", nil)
		},
	}
	addAddrFlag(cmd)
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the ops status aggregate from a running instance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return callAPI(cmd, xhttp.MethodGet, "/api/status", nil)
		},
	}
	addAddrFlag(cmd)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "strikegate %s (%s) %s\n", version, commit, runtime.Version())
		},
	}
}

func addAddrFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&serverAddr, "addr", "http://localhost:8080", "running instance base URL")
}

type apiEnvelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// callAPI hits the instance's API and prints the payload. Error statuses
// arrive inside the envelope, not as HTTP status codes.
func callAPI(cmd *cobra.Command, method, path string, body interface{}) error {
	client := xhttp.NewClient(xhttp.WithTimeout(15 * time.Second))

	var env apiEnvelope
	err := client.SendAndParse(cmd.Context(), &xhttp.RequestOptions{
		Method: method,
		URL:    strings.TrimRight(serverAddr, "/") + path,
		Body:   body,
	}, &env)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	if env.Status >= http.StatusBadRequest {
		return fmt.Errorf("service answered %d %s: %s", env.Status, env.Message, env.Data)
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, env.Data, "", "  "); err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), string(env.Data))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), buf.String())
	return nil
}
