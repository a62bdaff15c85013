package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/ragqa/internal/infrastructure/tui"
)

var chatTopK int

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions interactively",
	Long: `Loads the corpus and opens an interactive question loop.
Type quit, exit or q to leave. On a terminal a full-screen chat is shown,
otherwise questions are read line by line from stdin.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().IntVarP(&chatTopK, "top-k", "k", 0, "number of chunks to retrieve (default retrieval.top_k)")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, appConfig, appOptions{withLLM: true, confirmer: confirmerFor(cmd)}, appLog)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.session.Prepare(ctx); err != nil {
		return err
	}

	stats, err := a.session.Stats(ctx)
	if err != nil {
		return err
	}
	summary := fmt.Sprintf("%d documents, %d chunks, %s mode", stats.Documents, stats.TotalChunks, stats.Mode)

	if isTerminal(cmd.InOrStdin()) {
		return tui.Run(ctx, a.session, chatTopK, summary)
	}
	cmd.Println(dimStyle.Render(summary))
	return tui.RunPlain(ctx, a.session, chatTopK, cmd.InOrStdin(), cmd.OutOrStdout())
}
