package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/asha/dude/internal/history"
	"github.com/asha/dude/internal/models"
	"github.com/asha/dude/internal/storage"
)

var (
	exportFormatFlag string
	pruneDaysFlag    int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage conversation history",
	Long:  `View and manage your local conversation history.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all conversations",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a conversation as markdown or JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryExport,
}

var historyRenameCmd = &cobra.Command{
	Use:   "rename <id> <title>",
	Short: "Rename a conversation",
	Args:  cobra.ExactArgs(2),
	RunE:  runHistoryRename,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete conversations older than a cutoff",
	RunE:  runHistoryPrune,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all conversations",
	RunE:  runHistoryClear,
}

func init() {
	historyExportCmd.Flags().StringVarP(&exportFormatFlag, "format", "F", "markdown", "Export format (markdown, json)")
	historyExportCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Write export to file")
	historyPruneCmd.Flags().IntVarP(&pruneDaysFlag, "days", "d", 30, "Delete conversations older than this many days")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyRenameCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyPruneCmd)
	historyCmd.AddCommand(historyClearCmd)
}

func openHistoryStore() (*history.Store, error) {
	kv, err := storage.DefaultStore()
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	store, err := history.NewStore(kv)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return store, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openHistoryStore()
	if err != nil {
		return err
	}

	conversations := store.List()
	if len(conversations) == 0 {
		fmt.Println("No conversations found.")
		return nil
	}

	activeID := store.ActiveID()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tMESSAGES\tCREATED\t")
	_, _ = fmt.Fprintln(w, "--\t-----\t--------\t-------\t")

	for _, conv := range conversations {
		title := conv.Title
		if len(title) > 40 {
			title = title[:40] + "..."
		}
		marker := ""
		if conv.ID == activeID {
			marker = "*"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			conv.ID, title, len(conv.Messages), conv.CreatedAt.Format("2006-01-02 15:04"), marker)
	}

	return w.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openHistoryStore()
	if err != nil {
		return err
	}

	conv, err := store.Get(args[0])
	if err != nil {
		return fmt.Errorf("conversation not found: %w", err)
	}

	fmt.Printf("ID: %s\n", conv.ID)
	fmt.Printf("Title: %s\n", conv.Title)
	fmt.Printf("Created: %s\n", conv.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Messages: %d\n", len(conv.Messages))
	fmt.Println()

	for i, msg := range conv.Messages {
		role := "You"
		if msg.Sender == models.SenderAssistant {
			role = "Dude"
		}
		fmt.Printf("[%d] %s:\n", i+1, role)

		content := msg.Text
		if len(content) > 500 {
			content = content[:500] + "..."
		}
		fmt.Printf("  %s\n", content)

		if len(msg.Sources) > 0 {
			fmt.Printf("  (%d sources)\n", len(msg.Sources))
		}
		if msg.CalendarEvent != nil {
			fmt.Printf("  📅 %s\n", msg.CalendarEvent.Title)
		}
		if msg.MindMap != nil {
			fmt.Printf("  🧠 %s\n", msg.MindMap.Title)
		}
		fmt.Println()
	}

	return nil
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	store, err := openHistoryStore()
	if err != nil {
		return err
	}

	format := history.ExportFormat(exportFormatFlag)
	data, err := store.Export(args[0], format)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if outputFlag != "" {
		if err := os.WriteFile(outputFlag, data, 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Printf("Exported to %s\n", outputFlag)
		return nil
	}

	fmt.Print(string(data))
	return nil
}

func runHistoryRename(cmd *cobra.Command, args []string) error {
	store, err := openHistoryStore()
	if err != nil {
		return err
	}

	if err := store.Rename(args[0], args[1]); err != nil {
		return fmt.Errorf("rename failed: %w", err)
	}
	fmt.Println("Conversation renamed.")
	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	store, err := openHistoryStore()
	if err != nil {
		return err
	}

	if err := store.Delete(args[0]); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	fmt.Println("Conversation deleted.")
	return nil
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	store, err := openHistoryStore()
	if err != nil {
		return err
	}

	removed, err := store.PruneOlderThan(time.Duration(pruneDaysFlag) * 24 * time.Hour)
	if err != nil {
		return fmt.Errorf("prune failed: %w", err)
	}
	fmt.Printf("Pruned %d conversation(s).\n", removed)
	return nil
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	store, err := openHistoryStore()
	if err != nil {
		return err
	}

	for _, conv := range store.List() {
		if err := store.Delete(conv.ID); err != nil {
			return fmt.Errorf("delete failed: %w", err)
		}
	}
	fmt.Println("History cleared.")
	return nil
}
