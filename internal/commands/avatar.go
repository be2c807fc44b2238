package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/asha/dude/internal/api"
	"github.com/asha/dude/internal/models"
	"github.com/asha/dude/internal/storage"
)

var avatarCmd = &cobra.Command{
	Use:   "avatar",
	Short: "Manage the assistant avatar",
}

var avatarGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a fresh assistant avatar",
	RunE:  runAvatarGenerate,
}

var avatarResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the avatar to the default",
	RunE:  runAvatarReset,
}

func init() {
	avatarCmd.AddCommand(avatarGenerateCmd)
	avatarCmd.AddCommand(avatarResetCmd)
}

func runAvatarGenerate(cmd *cobra.Command, args []string) error {
	client, err := api.NewClient(getServerURL())
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()

	spin := newSpinner("Generating avatar")
	spin.start()

	dataURL, err := client.GenerateAvatar(context.Background())
	if err != nil {
		spin.stopWithError()
		fmt.Println(formatErrorMessage(err, "Avatar generation failed"))
		return fmt.Errorf("avatar generation failed: %w", err)
	}
	spin.stopWithSuccess("Avatar generated")

	kv, err := storage.DefaultStore()
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	if err := kv.Set(models.KeyAvatarURL, dataURL); err != nil {
		return fmt.Errorf("failed to save avatar: %w", err)
	}

	fmt.Printf("Saved new avatar (%d bytes).\n", len(dataURL))
	return nil
}

func runAvatarReset(cmd *cobra.Command, args []string) error {
	kv, err := storage.DefaultStore()
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	if err := kv.Remove(models.KeyAvatarURL); err != nil {
		return fmt.Errorf("failed to reset avatar: %w", err)
	}
	fmt.Println("Avatar reset to default.")
	return nil
}
