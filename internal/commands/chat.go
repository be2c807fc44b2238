package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/asha/dude/internal/api"
	"github.com/asha/dude/internal/chat"
	"github.com/asha/dude/internal/config"
	"github.com/asha/dude/internal/history"
	"github.com/asha/dude/internal/storage"
	"github.com/asha/dude/internal/tui"
	"github.com/asha/dude/internal/voice"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start an interactive chat session with Dude.

Conversations are saved locally and can be revisited from the drawer
(Ctrl+O). Type 'exit', 'quit', or press Ctrl+C to end the session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

func runChat() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	kv, err := storage.DefaultStore()
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}

	store, err := history.NewStore(kv)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	drafts := history.NewDrafts(kv)

	client, err := api.NewClient(getServerURL())
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()

	pipeline := chat.NewPipeline(client, store, drafts, voice.NewCommandSpeaker())
	pipeline.VoiceOutput = cfg.VoiceOutput

	tui.UpdateTheme(cfg.TUITheme)
	return tui.RunChat(pipeline, store, drafts)
}
