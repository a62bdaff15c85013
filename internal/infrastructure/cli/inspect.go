package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/ragqa/internal/adapters/vectordb"
	"github.com/0xcro3dile/ragqa/internal/domain/entities"
	"github.com/0xcro3dile/ragqa/internal/domain/usecases"
)

const previewLength = 200

var (
	inspectLimit      int
	inspectQuery      string
	inspectCollection string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect the persisted vector index",
	Long: `Lists the collections in the persisted vector index and previews the
stored chunks of one collection. With --query an example search is run
against the stored embeddings and similarity scores are printed.`,
	Args: cobra.NoArgs,
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().IntVarP(&inspectLimit, "limit", "n", 3, "number of chunks and search results to show")
	inspectCmd.Flags().StringVarP(&inspectQuery, "query", "q", "", "run an example search")
	inspectCmd.Flags().StringVar(&inspectCollection, "collection", "", "collection to inspect (default index.collection)")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if appConfig.Index.Path == "" {
		return fmt.Errorf("%w: inspect needs a persisted index, set index.path", entities.ErrInvalidConfiguration)
	}
	limit := max(inspectLimit, 1)
	name := inspectCollection
	if name == "" {
		name = appConfig.Index.Collection
	}

	dbPath := filepath.Join(appConfig.Index.Path, vectordb.DatabaseFile)
	if _, err := os.Stat(dbPath); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("database not found at %s, run 'ragqa index --mode vector' first", dbPath)
	}

	store, err := vectordb.NewSQLiteStore(appConfig.Index.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	infos, err := store.Collections(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Index: %s\n", store.Path())
	cmd.Printf("Available collections: %d\n", len(infos))
	for _, info := range infos {
		cmd.Printf("  - %s (%d chunks, %d dimensions)\n", info.Name, info.Count, info.Dimension)
	}

	collection, err := store.OpenCollection(ctx, name)
	if err != nil {
		return err
	}
	count, err := collection.Count(ctx)
	if err != nil {
		return err
	}

	cmd.Println()
	cmd.Printf("Collection: %s\n", collection.Name())
	cmd.Printf("Total chunks in collection: %d\n", count)
	if count == 0 {
		cmd.Println("Collection is empty. Run 'ragqa index --mode vector' first.")
		return nil
	}

	records, err := collection.Records(ctx)
	if err != nil {
		return err
	}
	for i, rec := range records[:min(limit, len(records))] {
		cmd.Println()
		cmd.Println(questionStyle.Render(fmt.Sprintf("--- Chunk %d ---", i+1)))
		cmd.Printf("ID: %s\n", rec.Chunk.ID)
		cmd.Printf("Source: %s (chunk %d)\n", rec.Chunk.Source, rec.Chunk.Sequence)
		cmd.Printf("Text: %s\n", preview(rec.Chunk.Text))
	}

	if strings.TrimSpace(inspectQuery) == "" {
		return nil
	}

	embedder, err := newEmbedder(appConfig.Embedder, appLog)
	if err != nil {
		return err
	}
	index := usecases.NewVectorIndex(embedder, collection, usecases.VectorIndexOptions{Logger: appLog})
	results, err := index.Search(ctx, inspectQuery, limit)
	if err != nil {
		return err
	}

	cmd.Println()
	cmd.Printf("Example search: %q\n", inspectQuery)
	for _, r := range results {
		cmd.Println()
		cmd.Println(questionStyle.Render(fmt.Sprintf("Result %d:", r.Rank)))
		cmd.Printf("Source: %s (chunk %d)\n", r.Chunk.Source, r.Chunk.Sequence)
		cmd.Printf("Similarity Score: %.4f\n", r.Score)
		cmd.Printf("Text: %s\n", preview(r.Chunk.Text))
	}
	return nil
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength]) + "..."
}
