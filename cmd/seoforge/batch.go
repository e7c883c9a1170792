package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ternarybob/seoforge/internal/app"
	"github.com/ternarybob/seoforge/internal/common"
	"github.com/ternarybob/seoforge/internal/handlers"
	"github.com/ternarybob/seoforge/internal/models"
	"github.com/ternarybob/seoforge/internal/services/exporter"
	"github.com/ternarybob/seoforge/internal/tui"
)

type batchOptions struct {
	request   handlers.RunRequest
	formats   []string
	outputDir string
	plain     bool
}

func newBatchCmd() *cobra.Command {
	var (
		opts         batchOptions
		concurrency  int
		maxRows      int
		processAll   bool
		language     string
		topic        string
		targetLength int
	)

	cmd := &cobra.Command{
		Use:   "batch <keywords.xlsx|keywords.csv>",
		Short: "Import a keyword file, generate content and export the results",
		Example: `  seoforge batch keywords.xlsx
  seoforge batch keywords.csv --all --concurrency 5 --format xlsx --format pdf
  seoforge batch keywords.xlsx --topic Tech --language English --output ./out`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("concurrency") {
				opts.request.Concurrency = &concurrency
			}
			if flags.Changed("max-rows") {
				opts.request.MaxRows = &maxRows
			}
			if flags.Changed("all") {
				opts.request.ProcessAll = &processAll
			}
			if flags.Changed("language") {
				opts.request.Language = &language
			}
			if flags.Changed("topic") {
				opts.request.Topic = &topic
			}
			if flags.Changed("target-length") {
				opts.request.TargetLength = &targetLength
			}
			return runBatch(cmd, args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&concurrency, "concurrency", 0, "Parallel generator calls (1-10, default from [batch])")
	flags.IntVar(&maxRows, "max-rows", 0, "Maximum eligible rows to process (default from [batch])")
	flags.BoolVar(&processAll, "all", false, "Process every eligible row")
	flags.StringVar(&language, "language", "", "Output language")
	flags.StringVar(&topic, "topic", "", "Topic profile name (see 'seoforge topics')")
	flags.IntVar(&targetLength, "target-length", 0, "Target article length in words")
	flags.StringVar(&opts.request.CustomInstructions, "instructions", "", "Custom instructions replacing the topic protocol")
	flags.StringArrayVarP(&opts.formats, "format", "f", []string{"xlsx", "json"}, "Export format: xlsx, json, csv or pdf (repeatable)")
	flags.StringVarP(&opts.outputDir, "output", "o", "", "Export directory (default from [export])")
	flags.BoolVar(&opts.plain, "plain", false, "Log progress lines instead of the interactive view")

	return cmd
}

func runBatch(cmd *cobra.Command, path string, opts batchOptions) error {
	interactive := !opts.plain && isTerminal(os.Stdout)
	initLogger(interactive)
	if !interactive {
		common.PrintBanner(cmd.OutOrStdout(), config, "batch")
	}

	formats := make([]exporter.Format, 0, len(opts.formats))
	for _, name := range opts.formats {
		for _, part := range strings.Split(name, ",") {
			format, err := exporter.ParseFormat(part)
			if err != nil {
				return err
			}
			formats = append(formats, format)
		}
	}
	if opts.outputDir != "" {
		config.Export.OutputDir = opts.outputDir
	}

	cfg, err := opts.request.Configuration(config.RunDefaults())
	if err != nil {
		return fmt.Errorf("invalid run options: %w", err)
	}

	application, err := app.New(config, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	if !application.Credentials.Status().Configured {
		return errors.New("no API key configured: set GEMINI_API_KEY or ANTHROPIC_API_KEY, or store one via PUT /api/credentials")
	}

	rows, err := application.Importer.ParseFile(path)
	if err != nil {
		return err
	}
	items := make([]models.WorkItem, len(rows))
	for i, row := range rows {
		items[i] = row.ToWorkItem()
	}
	if _, err := application.ItemStore.Append(items); err != nil {
		return err
	}
	logger.Info().Str("file", path).Int("rows", len(items)).Msg("Keywords imported")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := time.Now()
	var progress models.RunProgress
	if interactive {
		progress, err = runInteractive(ctx, application, cfg, path)
	} else {
		progress, err = application.Processor.Run(ctx, cfg)
	}
	if err != nil {
		return err
	}

	// Export uses a fresh context so an interrupted run still writes what completed
	snapshot := application.ItemStore.Snapshot()
	var files []string
	for _, format := range formats {
		file, err := application.Exporter.WriteFile(context.Background(), format, snapshot)
		if errors.Is(err, exporter.ErrNothingToExport) {
			logger.Warn().Str("format", string(format)).Msg("Nothing to export")
			continue
		}
		if err != nil {
			return err
		}
		files = append(files, file)
	}

	var failures []models.WorkItem
	for _, item := range snapshot {
		if item.Status == models.ItemStatusError {
			failures = append(failures, item)
		}
	}

	fmt.Fprint(cmd.OutOrStdout(), tui.RenderSummary(tui.Summary{
		Progress: progress,
		Stats:    models.CountItems(snapshot),
		Elapsed:  time.Since(started),
		Files:    files,
		Failures: failures,
	}))

	if application.Processor.CredentialsInvalid() {
		return errors.New("the generator rejected the API key")
	}
	return nil
}

// runInteractive drains the run under a Bubble Tea progress view
func runInteractive(ctx context.Context, application *app.App, cfg models.RunConfiguration, title string) (models.RunProgress, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	total := cfg.Selection.Apply(application.ItemStore.Stats().Pending)
	model := tui.NewProgressModel("SeoForge · "+title, total, cancel)
	program := tea.NewProgram(model, tea.WithContext(ctx))

	if err := tui.Subscribe(application.EventService, program); err != nil {
		return models.RunProgress{}, err
	}

	var (
		progress models.RunProgress
		runErr   error
	)
	done := make(chan struct{})
	common.SafeGo(logger, "batch-run", func() {
		defer close(done)
		progress, runErr = application.Processor.Run(runCtx, cfg)
		program.Send(tui.DoneMsg{Progress: progress, Err: runErr})
	})

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		cancel()
		<-done
		return progress, fmt.Errorf("progress view failed: %w", err)
	}

	// A second ctrl+c quits the view early; in-flight items still finish
	cancel()
	<-done
	return progress, runErr
}
