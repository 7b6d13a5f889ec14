package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/japaniel/glosser/pkg/app"
	"github.com/japaniel/glosser/pkg/model"
	"github.com/japaniel/glosser/pkg/overlay"
	"github.com/japaniel/glosser/pkg/persist"
)

var (
	editLine   int
	editScoped bool

	editCmd = &cobra.Command{
		Use:   "edit <glossary|rule|unknown> <id> field=value...",
		Short: "Record a local correction",
		Long: `Records a correction as a patch over the base documents.

For glossary entries and rules <id> is the record id. For unknown morphemes
it is the surface form; the correction then applies to every occurrence of
that form unless --scoped is given together with --line.

Fields equal to the original value are ignored. An edit that changes
nothing is not saved.`,
		Example: `  glosser edit glossary g1 gloss="love (intr.)"
  glosser edit unknown dı gloss=PAST --line 3 --scoped`,
		Args: cobra.MinimumNArgs(3),
		RunE: runEdit,
	}

	patchesCmd = &cobra.Command{
		Use:   "patches",
		Short: "Move patches between stores",
	}

	patchesExportCmd = &cobra.Command{
		Use:   "export <file>",
		Short: "Write all patches as JSON (\"-\" for stdout)",
		Args:  cobra.ExactArgs(1),
		RunE:  runPatchesExport,
	}

	patchesImportCmd = &cobra.Command{
		Use:   "import <file>",
		Short: "Apply patches from a JSON file (\"-\" for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE:  runPatchesImport,
	}
)

func init() {
	editCmd.Flags().IntVarP(&editLine, "line", "l", overlay.NoLine, "alignment line the unknown morpheme was seen on")
	editCmd.Flags().BoolVar(&editScoped, "scoped", false, "store the unknown-morpheme patch for --line only")
	patchesCmd.AddCommand(patchesExportCmd, patchesImportCmd)
	rootCmd.AddCommand(editCmd, patchesCmd)
}

// parseFields parses field=value arguments. Later assignments win.
func parseFields(args []string) (map[string]string, error) {
	fields := make(map[string]string, len(args))
	for _, a := range args {
		name, value, ok := strings.Cut(a, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid field assignment %q: want field=value", a)
		}
		fields[name] = value
	}
	return fields, nil
}

func runEdit(cmd *cobra.Command, args []string) (err error) {
	kind := model.Kind(args[0])
	if !kind.Valid() {
		return fmt.Errorf("unknown kind %q: want glossary, rule or unknown", args[0])
	}
	fields, err := parseFields(args[2:])
	if err != nil {
		return err
	}
	if editScoped && editLine < 0 {
		return fmt.Errorf("--scoped requires --line")
	}

	s, err := openSession(commandContext(cmd))
	if err != nil {
		return err
	}
	defer closeFlushing(s, &err)

	changed, err := s.state.ApplyEdit(app.Edit{
		Kind:   kind,
		ID:     args[1],
		Fields: fields,
		Line:   editLine,
		Scoped: editScoped,
	})
	if err != nil {
		logger.Warn("edit ignored", zap.String("kind", string(kind)), zap.String("id", args[1]), zap.Error(err))
		return err
	}
	if !changed {
		fmt.Fprintln(cmd.OutOrStdout(), "no change")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "saved %s:%s\n", kind, args[1])
	return nil
}

// closeFlushing closes s and reports a failed flush unless err is already set.
func closeFlushing(s *session, err *error) {
	if cerr := s.Close(); cerr != nil && *err == nil {
		*err = fmt.Errorf("failed to save patches: %w", cerr)
	}
}

func runPatchesExport(cmd *cobra.Command, args []string) error {
	s, err := openSession(commandContext(cmd))
	if err != nil {
		return err
	}
	defer s.Close()

	var w io.Writer = cmd.OutOrStdout()
	if args[0] != "-" {
		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("failed to create export file: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := persist.ExportJSON(w, s.state.Store().Mapping()); err != nil {
		return err
	}
	logger.Info("patches exported", zap.Int("patches", s.state.Store().Len()), zap.String("file", args[0]))
	return nil
}

func runPatchesImport(cmd *cobra.Command, args []string) (err error) {
	var r io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open import file: %w", err)
		}
		defer f.Close()
		r = f
	}
	mapping, err := persist.ImportJSON(r)
	if err != nil {
		return err
	}

	s, err := openSession(commandContext(cmd))
	if err != nil {
		return err
	}
	defer closeFlushing(s, &err)

	applied, skipped := s.state.ImportPatches(mapping)
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d patches, skipped %d\n", applied, len(skipped))
	for _, k := range skipped {
		fmt.Fprintf(cmd.OutOrStdout(), "  skipped %s\n", k)
	}
	return nil
}
