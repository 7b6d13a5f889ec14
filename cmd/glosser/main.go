package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/japaniel/glosser/pkg/config"
)

var (
	cfgPath string
	verbose bool

	// Overrides merged over the config file.
	flagBackend string
	flagStorage string
	flagLang    string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "glosser",
	Short: "Inspect and correct morpheme alignments",
	Long: `glosser reads an alignment document together with its glossary and
rule set, and lets you correct entries locally. Corrections are stored as
sparse patches on top of the original documents, which are never modified.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgPath, cmd.Flags().Changed("config"))
		if err != nil {
			return err
		}
		c.Merge(flagOverrides())
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c

		zc := zap.NewProductionConfig()
		level, err := zap.ParseAtomicLevel(cfg.Log.Level)
		if err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		zc.Level = level
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", config.DefaultPath, "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "patch storage backend (sqlite or json)")
	rootCmd.PersistentFlags().StringVar(&flagStorage, "storage", "", "patch storage path")
	rootCmd.PersistentFlags().StringVar(&flagLang, "lang", "", "collation language for listings")
}

// flagOverrides collects the storage and view flags. Unset flags stay empty
// and leave the config file's values alone.
func flagOverrides() *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{Backend: flagBackend, Path: flagStorage},
		View:    config.ViewConfig{Language: flagLang},
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// commandContext returns the command's context, or Background when the
// command was not started through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
