package commands

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/asha/dude/internal/config"
	"github.com/asha/dude/internal/logging"
	"github.com/asha/dude/internal/server"
)

var serveAddrFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API proxy server",
	Long: `Run the dude API server. It proxies the generative backend and
streams replies to clients as newline-delimited JSON.

The GEMINI_API_KEY environment variable must be set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddrFlag, "addr", "a", "", "Listen address (default from config)")
}

func runServe() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	addr := serveAddrFlag
	if addr == "" {
		addr = cfg.ListenAddr
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is not set")
	}

	upstream, err := server.NewGeminiUpstream(apiKey)
	if err != nil {
		return fmt.Errorf("failed to create upstream client: %w", err)
	}

	mux := http.NewServeMux()
	srv := server.New(upstream)
	srv.Register(mux)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logging.Get().Info("server listening on %s", addr)
	fmt.Printf("dude server listening on %s\n", addr)
	return httpServer.ListenAndServe()
}
