package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/asha/dude/internal/config"
	"github.com/asha/dude/internal/render"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change settings",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Long: `Change a setting. Available keys:

  server_url         URL of the dude server
  listen_addr        Address the serve command binds to
  voice_output       Speak replies aloud (true/false)
  copy_to_clipboard  Copy one-shot replies to the clipboard (true/false)
  verbose            Verbose logging (true/false)
  tui_theme          TUI color theme`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configSetCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	path, _ := config.GetConfigPath()
	fmt.Printf("Config file: %s\n\n", path)
	fmt.Printf("server_url         %s\n", cfg.ServerURL)
	fmt.Printf("listen_addr        %s\n", cfg.ListenAddr)
	fmt.Printf("voice_output       %t\n", cfg.VoiceOutput)
	fmt.Printf("copy_to_clipboard  %t\n", cfg.CopyToClipboard)
	fmt.Printf("verbose            %t\n", cfg.Verbose)
	fmt.Printf("tui_theme          %s\n", cfg.TUITheme)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	key, value := args[0], args[1]
	switch key {
	case "server_url":
		cfg.ServerURL = value
	case "listen_addr":
		cfg.ListenAddr = value
	case "voice_output":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean %q", value)
		}
		cfg.VoiceOutput = b
	case "copy_to_clipboard":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean %q", value)
		}
		cfg.CopyToClipboard = b
	case "verbose":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean %q", value)
		}
		cfg.Verbose = b
	case "tui_theme":
		found := false
		for _, name := range render.TUIThemeNames() {
			if name == value {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown theme %q (available: %v)", value, render.TUIThemeNames())
		}
		cfg.TUITheme = value
	default:
		return fmt.Errorf("unknown setting %q", key)
	}

	if err := config.SaveConfig(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	fmt.Printf("%s = %s\n", key, value)
	return nil
}
