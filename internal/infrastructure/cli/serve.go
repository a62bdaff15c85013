package cli

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/ragqa/internal/adapters/filewatcher"
	"github.com/0xcro3dile/ragqa/internal/domain/ports"
	httpserver "github.com/0xcro3dile/ragqa/internal/infrastructure/http"
)

// reloadQuiet is how long the corpus must stay unchanged before a reload.
const reloadQuiet = 500 * time.Millisecond

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the question-answering HTTP API",
	Long: `Loads the corpus and serves the HTTP API:

  POST /api/ask      {"question": "...", "top_k": 3}
  GET  /api/stats
  GET  /api/health

With corpus.watch enabled the corpus is reloaded when files change.
The PORT environment variable overrides server.port.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, appConfig, appOptions{withLLM: true, confirmer: confirmerFor(cmd)}, appLog)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.session.Prepare(ctx); err != nil {
		return err
	}

	if appConfig.Corpus.Watch {
		stop, err := watchCorpus(ctx, a)
		if err != nil {
			return err
		}
		defer stop()
	}

	return httpserver.NewServer(a.session, appConfig.Server.Addr(), appLog).Start(ctx)
}

// watchCorpus reloads the session whenever the corpus directory settles after a change.
func watchCorpus(ctx context.Context, a *app) (func(), error) {
	watcher, err := filewatcher.NewFSNotifyWatcher(a.loader.SupportedExtensions(), a.log)
	if err != nil {
		return nil, err
	}
	events, err := watcher.Watch(ctx, a.loader.Dir())
	if err != nil {
		watcher.Stop()
		return nil, err
	}

	a.log.Info("watching corpus", slog.String("dir", a.loader.Dir()))

	go func() {
		for batch := range filewatcher.Debounce(ctx, events, reloadQuiet) {
			a.log.Info("corpus changed, reloading",
				slog.Int("events", len(batch)),
				slog.Any("changes", describeEvents(batch)))
			if err := a.session.Reload(ctx); err != nil {
				a.log.Error("reloading corpus", slog.String("error", err.Error()))
			}
		}
	}()

	return func() { watcher.Stop() }, nil
}

// describeEvents renders a debounced batch as "<operation> <file>" entries, first occurrence first.
func describeEvents(batch []ports.FileEvent) []string {
	out := make([]string, 0, len(batch))
	for _, ev := range batch {
		entry := ev.Operation.String() + " " + filepath.Base(ev.Path)
		if !slices.Contains(out, entry) {
			out = append(out, entry)
		}
	}
	return out
}
