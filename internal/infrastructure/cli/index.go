package cli

import (
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build or refresh the index",
	Long: `Loads the corpus and indexes every chunk that is not indexed yet.
If the index already holds chunks you are asked whether to rebuild it;
--yes rebuilds without asking.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, appConfig, appOptions{confirmer: confirmerFor(cmd)}, appLog)
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
	cmd.Printf("Indexed %d of %d chunks from %d documents (%s mode)\n",
		stats.IndexedChunks, stats.TotalChunks, stats.Documents, stats.Mode)
	return nil
}
