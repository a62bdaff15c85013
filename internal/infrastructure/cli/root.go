// Package cli is the ragqa command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/ragqa/internal/config"
	"github.com/0xcro3dile/ragqa/internal/domain/usecases"
	"github.com/0xcro3dile/ragqa/internal/logger"
)

var (
	cfgFile   string
	verbose   bool
	modeFlag  string
	assumeYes bool

	appConfig *config.AppConfig
	appLog    *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ragqa",
	Short: "Answer questions from a local document corpus",
	Long: `ragqa loads the text files of a corpus directory, indexes them and answers
questions with a language model grounded on the retrieved chunks.

Two retrieval modes are available: lexical (token overlap, in memory) and
vector (embeddings persisted in a local SQLite index).`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default ragqa.yaml, ragqa.yml or ragqa.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&modeFlag, "mode", "m", "", "retrieval mode: lexical or vector (overrides index.mode)")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "rebuild an existing index without asking")
}

// Execute runs the root command. Cancelling ctx stops long-running commands.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	if err := config.LoadEnv(); err != nil {
		return err
	}

	var (
		cfg *config.AppConfig
		err error
	)
	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
	} else {
		cfg, _, err = config.LoadDefault()
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if modeFlag != "" {
		mode, err := usecases.ParseMode(modeFlag)
		if err != nil {
			return err
		}
		cfg.Index.Mode = string(mode)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := logger.ParseLevel(cfg.Log.Level)
	if verbose {
		level = slog.LevelDebug
	}
	appConfig = cfg
	appLog = logger.New(cmd.ErrOrStderr(), logger.Options{Level: level, Format: logger.Format(cfg.Log.Format)})
	slog.SetDefault(appLog)
	return nil
}
