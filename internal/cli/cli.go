package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"comment-editor/internal/comment"
	"comment-editor/internal/config"
	"comment-editor/internal/export"
	"comment-editor/internal/filewalker"
	"comment-editor/internal/journal"
	"comment-editor/internal/patcher"
	"comment-editor/internal/planfile"
	"comment-editor/internal/position"
	"comment-editor/internal/session"
	"comment-editor/internal/worker"
)

// Execute runs the CLI application.
func Execute() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	cfgFile  string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:          "comment-editor",
		Short:        "Extract, group and rewrite source-code comments in place",
		Long:         "Finds //, # and /* */ comments in source files, groups consecutive comment lines and writes edited comment text back without touching the surrounding code.",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "Config file (default .comment-editor.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(extractCmd(opts))
	rootCmd.AddCommand(scanCmd(opts))
	rootCmd.AddCommand(setCmd(opts))
	rootCmd.AddCommand(applyCmd(opts))
	rootCmd.AddCommand(editCmd(opts))
	rootCmd.AddCommand(historyCmd(opts))

	return rootCmd
}

// setup loads configuration and applies the log level.
func (o *rootOptions) setup() (*config.Config, error) {
	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)
	return cfg, nil
}

func extractCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "List the comment groups of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flat, _ := cmd.Flags().GetBool("flat")
			format, _ := cmd.Flags().GetString("format")
			return runExtract(cmd.OutOrStdout(), opts, args[0], format, flat)
		},
	}

	cmd.Flags().Bool("flat", false, "List every comment match instead of groups")
	cmd.Flags().String("format", "table", "Output format: table, json or tsv")

	return cmd
}

func scanCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <directory>",
		Short: "Extract comment groups from every supported file under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			return runScan(cmd.OutOrStdout(), opts, args[0], format)
		},
	}

	cmd.Flags().String("format", "table", "Output format: table, json or tsv")

	return cmd
}

func setCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <file> <line> <text>",
		Short: "Replace the comment body on one line",
		Long: `Replaces the body of a comment that starts line <line>, keeping the
marker, indentation and trailing whitespace. Lines that do not start with
// or # are left unchanged. Text must fit on one line; use edit or apply
to add lines.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := strconv.Atoi(args[1])
			if err != nil || line < 1 {
				return fmt.Errorf("invalid line number %q", args[1])
			}
			text := unescape(args[2])
			if strings.ContainsAny(text, "\r\n") {
				return fmt.Errorf("set line %d: %w", line, patcher.ErrMultiLine)
			}
			return runSet(opts, args[0], line, text)
		},
	}
}

func applyCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply <file> <plan.json>",
		Short: "Apply a JSON edit plan of replacements and insertions",
		Long: `Applies a plan file to <file>. Each plan entry is one of
  {"line": 5, "text": "..."}                 replace the comment on line 5
  {"after": 5, "offset": 0, "text": "..."}   insert a new line after line 5
  {"code": -5001, "text": "..."}             integer position code`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			return runApply(cmd.OutOrStdout(), opts, args[0], args[1], dryRun)
		},
	}

	cmd.Flags().Bool("dry-run", false, "Print the resulting file instead of writing it")

	return cmd
}

func editCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <file> <group> <text>",
		Short: "Replace the text of a comment group",
		Long: `Replaces the combined text of comment group <group> (as numbered by
extract). Use \n in <text> to separate lines; extra lines are inserted after
the group and missing lines are blanked.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			group, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid group index %q", args[1])
			}
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			return runEdit(cmd.OutOrStdout(), opts, args[0], group, unescape(args[2]), dryRun)
		},
	}

	cmd.Flags().Bool("dry-run", false, "Print the edit plan as JSON instead of writing the file")

	return cmd
}

func historyCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [file]",
		Short: "Show journaled saves",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			format, _ := cmd.Flags().GetString("format")
			var file string
			if len(args) == 1 {
				file = args[0]
			}
			return runHistory(cmd.OutOrStdout(), opts, file, limit, format)
		},
	}

	cmd.Flags().Int("limit", 20, "Maximum number of entries (0 for all)")
	cmd.Flags().String("format", "table", "Output format: table, json or tsv")

	return cmd
}

// runExtract handles the `extract` command.
func runExtract(out io.Writer, opts *rootOptions, file, formatName string, flat bool) error {
	if _, err := opts.setup(); err != nil {
		return err
	}
	format, err := export.ParseFormat(formatName)
	if err != nil {
		return err
	}
	if _, err := os.Stat(file); err != nil {
		return fmt.Errorf("stat file: %w", err)
	}

	extractor := comment.NewExtractor()
	if flat {
		return export.WriteTokens(out, format, file, extractor.ExtractComments(file))
	}

	groups := extractor.ExtractGroupedComments(file)
	log.Debug().Str("file", file).Int("groups", len(groups)).Msg("Extracted comment groups")
	return export.WriteGroups(out, format, []export.FileGroups{{Path: file, Groups: groups}})
}

// runScan handles the `scan` command.
func runScan(out io.Writer, opts *rootOptions, dir, formatName string) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg, err := opts.setup()
	if err != nil {
		return err
	}
	format, err := export.ParseFormat(formatName)
	if err != nil {
		return err
	}

	w := filewalker.NewWalker(cfg.Extensions)
	entries, err := w.Walk(dir)
	if err != nil {
		return fmt.Errorf("walk input directory: %w", err)
	}

	// Each file is extracted in a single pass; only files run in parallel.
	pool := worker.NewPool[filewalker.FileEntry, []comment.Group](cfg.Workers,
		func(ctx context.Context, entry filewalker.FileEntry) ([]comment.Group, error) {
			return w.ExtractFile(entry), nil
		},
	)
	results := pool.Execute(ctx, entries)

	var files []export.FileGroups
	groupCount := 0
	for _, r := range results {
		if !r.Done || len(r.Result) == 0 {
			continue
		}
		files = append(files, export.FileGroups{Path: r.Input.Path, Groups: r.Result})
		groupCount += len(r.Result)
	}

	log.Info().
		Int("files", len(entries)).
		Int("with_comments", len(files)).
		Int("groups", groupCount).
		Msg("Scan complete")

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("scan interrupted: %w", err)
	}
	return export.WriteGroups(out, format, files)
}

// runSet handles the `set` command.
func runSet(opts *rootOptions, file string, line int, text string) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg, err := opts.setup()
	if err != nil {
		return err
	}

	before, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("%w %s: %w", patcher.ErrOpen, file, err)
	}

	p := patcher.NewPatcher(cfg.WriteOptions())
	if err := p.SaveComments(file, []patcher.LineEdit{{Line: line, Text: text}}); err != nil {
		return err
	}

	recordSave(ctx, cfg, file, []patcher.Edit{{Pos: position.ReplaceLine(line), Text: text}}, before)
	return nil
}

// runApply handles the `apply` command.
func runApply(out io.Writer, opts *rootOptions, file, planPath string, dryRun bool) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg, err := opts.setup()
	if err != nil {
		return err
	}

	edits, err := planfile.Load(planPath)
	if err != nil {
		return err
	}
	log.Info().Str("plan", planPath).Int("edits", len(edits)).Msg("Loaded edit plan")

	p := patcher.NewPatcher(cfg.WriteOptions())
	if dryRun {
		lines, err := p.Preview(file, edits)
		if err != nil {
			return err
		}
		for _, line := range lines {
			fmt.Fprintln(out, line)
		}
		return nil
	}

	before, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("%w %s: %w", patcher.ErrOpen, file, err)
	}
	if err := p.SaveCommentsWithMultiLine(file, edits); err != nil {
		return err
	}

	recordSave(ctx, cfg, file, edits, before)
	return nil
}

// runEdit handles the `edit` command.
func runEdit(out io.Writer, opts *rootOptions, file string, group int, text string, dryRun bool) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg, err := opts.setup()
	if err != nil {
		return err
	}

	s, err := session.Open(file, patcher.NewPatcher(cfg.WriteOptions()))
	if err != nil {
		return err
	}
	edited := map[int]string{group: text}

	if dryRun {
		edits, err := s.Plan(edited)
		if err != nil {
			return err
		}
		return planfile.Write(out, edits)
	}

	before, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("%w %s: %w", patcher.ErrOpen, file, err)
	}
	edits, err := s.Save(edited)
	if err != nil {
		return err
	}
	if len(edits) > 0 {
		recordSave(ctx, cfg, file, edits, before)
	}
	return nil
}

// runHistory handles the `history` command.
func runHistory(out io.Writer, opts *rootOptions, file string, limit int, formatName string) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg, err := opts.setup()
	if err != nil {
		return err
	}
	format, err := export.ParseFormat(formatName)
	if err != nil {
		return err
	}
	if cfg.Journal == "" {
		return fmt.Errorf("journaling is disabled: set journal in the config or %s_JOURNAL", config.EnvPrefix)
	}

	store, err := journal.Open(ctx, cfg.Journal)
	if err != nil {
		return err
	}
	defer store.Close()

	if file != "" {
		if file, err = filepath.Abs(file); err != nil {
			return fmt.Errorf("resolve file path: %w", err)
		}
	}
	entries, err := store.List(ctx, file, limit)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}
	return export.WriteHistory(out, format, entries)
}

// recordSave journals a successful save. Journal failures are logged, the
// file is already written.
func recordSave(ctx context.Context, cfg *config.Config, file string, edits []patcher.Edit, before []byte) {
	if cfg.Journal == "" {
		return
	}

	store, err := journal.Open(ctx, cfg.Journal)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open journal")
		return
	}
	defer store.Close()

	after, err := os.ReadFile(file)
	if err != nil {
		log.Error().Err(err).Str("file", file).Msg("Failed to read saved file for journal")
		return
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		abs = file
	}

	entry := journal.NewEntry(abs, edits, before, after)
	if err := store.Record(ctx, entry); err != nil {
		log.Error().Err(err).Str("file", file).Msg("Failed to record journal entry")
		return
	}
	log.Debug().Str("id", entry.ID.String()).Str("file", abs).Msg("Recorded journal entry")
}

// unescape turns the two-character sequences \n, \t and \\ in a CLI
// argument into the characters they name.
func unescape(s string) string {
	return strings.NewReplacer(`\\`, `\`, `\n`, "\n", `\t`, "\t").Replace(s)
}

// setupContext creates a cancellable context with signal handling.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			log.Warn().Msg("Received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}
