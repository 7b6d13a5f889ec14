package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/japaniel/glosser/pkg/persist"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	configWriteCmd = &cobra.Command{
		Use:   "write <file>",
		Short: "Write the effective configuration, flag overrides included, as YAML",
		Args:  cobra.ExactArgs(1),
		RunE:  runConfigWrite,
	}

	documentsCmd = &cobra.Command{
		Use:   "documents",
		Short: "List the base documents patches were made against (sqlite backend)",
		Args:  cobra.NoArgs,
		RunE:  runDocuments,
	}
)

func init() {
	configCmd.AddCommand(configWriteCmd)
	rootCmd.AddCommand(configCmd, documentsCmd)
}

func runConfigWrite(cmd *cobra.Command, args []string) error {
	if err := cfg.SaveToFile(args[0]); err != nil {
		return err
	}
	logger.Info("config written", zap.String("file", args[0]))
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
	return nil
}

func runDocuments(cmd *cobra.Command, args []string) error {
	s, err := openSession(commandContext(cmd))
	if err != nil {
		return err
	}
	defer s.Close()

	lister, ok := s.persister.(persist.DocumentLister)
	if !ok {
		return fmt.Errorf("document history is only kept by the sqlite backend (backend %q)", cfg.Storage.Backend)
	}
	docs, err := lister.Documents()
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	out := cmd.OutOrStdout()
	for _, d := range docs {
		fmt.Fprintf(out, "%s  %-10s %s  %s\n", d.LoadedAt.Local().Format("2006-01-02 15:04:05"),
			d.Kind, dimStyle.Render(d.SHA256[:min(12, len(d.SHA256))]), d.Path)
	}
	return nil
}
