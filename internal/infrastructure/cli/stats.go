package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show corpus and index statistics",
	Long: `Loads the corpus without changing the index and reports how many
documents and chunks it has, and how many chunks are indexed.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output statistics as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, appConfig, appOptions{}, appLog)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.session.Load(ctx); err != nil {
		return err
	}
	stats, err := a.session.Stats(ctx)
	if err != nil {
		return err
	}

	if statsJSON {
		data, err := json.MarshalIndent(map[string]any{
			"documents":      stats.Documents,
			"total_chunks":   stats.TotalChunks,
			"indexed_chunks": stats.IndexedChunks,
			"mode":           stats.Mode,
			"status":         stats.Status,
		}, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Status:          %s\n", stats.Status)
	cmd.Printf("Mode:            %s\n", stats.Mode)
	cmd.Printf("Documents:       %d\n", stats.Documents)
	cmd.Printf("Total chunks:    %d\n", stats.TotalChunks)
	cmd.Printf("Indexed chunks:  %d\n", stats.IndexedChunks)
	for _, doc := range a.session.Documents() {
		cmd.Println(dimStyle.Render("  - " + doc))
	}
	return nil
}
