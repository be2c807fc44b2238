// Package commands provides CLI commands for dude.
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/asha/dude/internal/config"
)

var (
	// Global flags
	serverFlag string
	outputFlag string
	fileFlag   string

	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dude [prompt]",
	Short: "Personal assistant chat for the terminal",
	Long: `dude is a personal assistant chat client. It talks to the dude server,
which proxies a generative backend, and keeps your conversations on disk.

Examples:
  dude chat                        Start interactive chat
  dude serve                       Run the API proxy server
  dude "What's on my plate today?" Send a single query
  dude -f prompt.md                Read prompt from file
  cat prompt.md | dude             Read prompt from stdin
  dude "Hello" -o response.md      Save response to file`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("dude %s (built %s)\n", Version, BuildTime)
			return nil
		}

		// Check for stdin input
		stat, _ := os.Stdin.Stat()
		hasStdin := (stat.Mode() & os.ModeCharDevice) == 0

		if fileFlag != "" {
			data, err := os.ReadFile(fileFlag)
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}
			return runQuery(string(data), !isStdoutTTY())
		}

		if hasStdin {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
			return runQuery(string(data), !isStdoutTTY())
		}

		if len(args) > 0 {
			return runQuery(args[0], !isStdoutTTY())
		}

		// No input - show help
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverFlag, "server", "s", "", "Server URL (default from config)")
	rootCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Save response to file")
	rootCmd.Flags().StringVarP(&fileFlag, "file", "f", "", "Read prompt from file")
	rootCmd.Flags().BoolP("version", "v", false, "Show version and exit")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(avatarCmd)
	rootCmd.AddCommand(configCmd)
}

// getServerURL returns the server URL to use (from flag or config)
func getServerURL() string {
	if serverFlag != "" {
		return serverFlag
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return config.DefaultConfig().ServerURL
	}
	return cfg.ServerURL
}
