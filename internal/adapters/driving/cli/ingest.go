package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/services"
)

var (
	ingestMaxTokens int
	ingestOverlap   int
	ingestSkipIndex bool
	ingestWatch     bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Ingest documents into the chunk store",
	Long: `Loads every supported file (Markdown, HTML, PDF) under the given paths,
splits it into section-aware overlapping chunks and stores them. Re-ingesting
a document replaces its chunks. The vector index is rebuilt afterwards unless
--skip-index is set.

With --watch the command keeps running and ingests files in the given
directories as they are created or changed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

// progressReporter is implemented by ingest services that report per-file progress.
type progressReporter interface {
	SetProgressFunc(fn services.ProgressFunc)
}

func init() {
	ingestCmd.Flags().IntVar(&ingestMaxTokens, "max-tokens", domain.DefaultMaxTokens,
		"chunk window size in words, 0 keeps sections whole; overrides chunking.max_tokens when set")
	ingestCmd.Flags().IntVar(&ingestOverlap, "overlap", domain.DefaultOverlap,
		"words shared by consecutive chunks; overrides chunking.overlap when set")
	ingestCmd.Flags().BoolVar(&ingestSkipIndex, "skip-index", false, "store chunks without touching the vector index")
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "keep ingesting changed files until interrupted")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	opts := domain.BuildOptions{SkipIndex: ingestSkipIndex}
	// Unset flags defer to the chunking settings.
	if cmd.Flags().Changed("max-tokens") {
		opts.MaxTokens = domain.IntOption(ingestMaxTokens)
	}
	if cmd.Flags().Changed("overlap") {
		opts.Overlap = domain.IntOption(ingestOverlap)
	}

	if reporter, ok := ingestService.(progressReporter); ok && styled && !verbose {
		finish := attachProgressBar(cmd, reporter)
		defer finish()
	}

	report, err := ingestService.Build(cmd.Context(), args, opts)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	printBuildReport(cmd, report)

	if !ingestWatch {
		return nil
	}
	return watchPaths(cmd, args, opts)
}

func printBuildReport(cmd *cobra.Command, report *domain.BuildReport) {
	var failed int
	for _, f := range report.Files {
		if f.Err == nil && f.Error == "" {
			continue
		}
		failed++
		msg := f.Error
		if f.Err != nil {
			msg = f.Err.Error()
		}
		cmd.Printf("  %s %s: %s\n", render(errorStyle, "failed"), f.Path, msg)
	}

	cmd.Printf("%s %d documents, %d chunks",
		render(successStyle, "Ingested"), report.Documents, len(report.ChunkIDs))
	if failed > 0 {
		cmd.Printf(" (%d files failed)", failed)
	}
	cmd.Println()

	if report.Index != nil {
		printIndexReport(cmd, report.Index)
	}
}

func printIndexReport(cmd *cobra.Command, report *domain.IndexReport) {
	line := fmt.Sprintf("Index %s: %d vectors", report.Action, report.Vectors)
	if report.Added > 0 {
		line += fmt.Sprintf(" (%d added)", report.Added)
	}
	cmd.Println(render(mutedStyle, line))
	if report.FellBack {
		cmd.Println(render(warningStyle, "Append failed; the index was rebuilt from the chunk store."))
	}
}

// attachProgressBar draws a bar once the file count is known and returns
// a function that detaches it.
func attachProgressBar(cmd *cobra.Command, reporter progressReporter) func() {
	var (
		mu  sync.Mutex
		bar *progressbar.ProgressBar
	)
	reporter.SetProgressFunc(func(done, total int, path string) {
		mu.Lock()
		defer mu.Unlock()
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}
		bar.Describe(fmt.Sprintf("[cyan]Ingesting[reset] %s", filepath.Base(path)))
		_ = bar.Set(done)
	})
	return func() {
		reporter.SetProgressFunc(nil)
		mu.Lock()
		defer mu.Unlock()
		if bar != nil {
			_ = bar.Finish()
		}
	}
}

// watchPaths runs the watcher over the directory arguments until interrupted.
func watchPaths(cmd *cobra.Command, args []string, opts domain.BuildOptions) error {
	var dirs []string
	for _, p := range args {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			dirs = append(dirs, p)
		}
	}
	if len(dirs) == 0 {
		return errors.New("--watch needs at least one directory")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Printf("Watching %d directories. Press Ctrl+C to stop.\n", len(dirs))
	opts.SkipIndex = false
	if err := ingestService.Watch(ctx, dirs, opts); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}
