package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"clipscribe/internal/export"
	"clipscribe/internal/language"
	"clipscribe/internal/logging"
	"clipscribe/internal/pipeline"
	"clipscribe/internal/preflight"
	"clipscribe/internal/progress"
	"clipscribe/internal/urls"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		listFile          string
		scanText          bool
		skipPreflight     bool
		downloadWorkers   int
		transcribeWorkers int
		model             string
		languageFlag      string
	)

	cmd := &cobra.Command{
		Use:   "run [urls...]",
		Short: "Download and transcribe a batch of video links",
		Long: `Run processes a batch of TikTok links end to end: download, audio
extraction, transcription, and export. Links come from arguments, from a
file via --file, or from stdin when --file is "-". Press Ctrl+C once for a
graceful stop; in-flight work finishes and everything unstarted is cancelled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if downloadWorkers > 0 {
				cfg.Download.Workers = downloadWorkers
			}
			if transcribeWorkers > 0 {
				cfg.Transcription.Workers = transcribeWorkers
			}
			if model != "" {
				cfg.Transcription.Model = model
			}
			if languageFlag != "" {
				cfg.Transcription.Language = languageFlag
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			hint, err := language.Normalize(cfg.Transcription.Language)
			if err != nil {
				return err
			}
			cfg.Transcription.Language = hint

			inputs, err := collectInputs(args, listFile, cmd.InOrStdin(), scanText)
			if err != nil {
				return err
			}
			accepted, rejected := normalizeInputs(inputs)
			for _, reason := range rejected {
				fmt.Fprintln(cmd.ErrOrStderr(), "skipping:", reason)
			}
			if len(accepted) == 0 {
				return errors.New("no valid urls to process")
			}

			if !skipPreflight {
				results := preflight.Run(cmd.Context(), cfg)
				if !preflight.Ok(results) {
					fmt.Fprintln(cmd.ErrOrStderr(), renderPreflight(results))
					return errors.New("preflight checks failed (use --skip-preflight to override)")
				}
			}

			logger, err := logging.NewFromSettings(cfg.Logging.Level, cfg.Logging.Format, cfg.Paths.LogDir)
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			mgr, err := pipeline.NewManager(cfg, logger, pipeline.Deps{})
			if err != nil {
				return err
			}
			defer mgr.Destroy()

			runCtx, stopProgress := context.WithCancel(cmd.Context())
			defer stopProgress()
			go watchSignals(mgr, cmd.ErrOrStderr())
			go renderProgress(runCtx, progress.NewAggregator(mgr.Store()), cmd.OutOrStdout())

			result, err := mgr.Run(runCtx, accepted)
			stopProgress()
			if err != nil {
				return err
			}

			exportDir := filepath.Join(cfg.Paths.ExportDir, "run-"+mgr.RunID())
			if err := writeExports(exportDir, result); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderSummary(result))
			fmt.Fprintf(out, "Exports written to %s\n", exportDir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&listFile, "file", "f", "", `Read links from a file ("-" for stdin)`)
	cmd.Flags().BoolVar(&scanText, "scan", false, "Treat the input file as free text and extract links from it")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip tool and disk checks before running")
	cmd.Flags().IntVar(&downloadWorkers, "download-workers", 0, "Override the download worker count")
	cmd.Flags().IntVar(&transcribeWorkers, "transcription-workers", 0, "Override the transcription worker count")
	cmd.Flags().StringVar(&model, "model", "", "Override the whisper model size")
	cmd.Flags().StringVar(&languageFlag, "language", "", `Override the language hint ("auto" to detect)`)
	return cmd
}

// collectInputs merges positional arguments with the optional list file.
// With --scan the file content is treated as prose and links are extracted;
// otherwise one link per line, blank lines and # comments skipped.
func collectInputs(args []string, listFile string, stdin io.Reader, scanText bool) ([]string, error) {
	inputs := append([]string(nil), args...)
	if listFile == "" {
		return inputs, nil
	}

	var reader io.Reader
	if listFile == "-" {
		reader = stdin
	} else {
		file, err := os.Open(listFile)
		if err != nil {
			return nil, fmt.Errorf("open url list: %w", err)
		}
		defer file.Close()
		reader = file
	}

	if scanText {
		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("read url list: %w", err)
		}
		return append(inputs, urls.ExtractFromText(string(data))...), nil
	}

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		inputs = append(inputs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read url list: %w", err)
	}
	return inputs, nil
}

// normalizeInputs canonicalizes and deduplicates the batch. Rejects are
// reported, not fatal: one bad link never blocks the rest.
func normalizeInputs(inputs []string) (accepted []string, rejected []string) {
	normalizer := urls.NewNormalizer()
	for _, input := range inputs {
		if _, err := normalizer.Add(input); err != nil {
			rejected = append(rejected, err.Error())
		}
	}
	return normalizer.Accepted(), rejected
}

// watchSignals cancels the run on the first interrupt and exits hard on the
// second.
func watchSignals(mgr *pipeline.Manager, errOut io.Writer) {
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	<-signals
	fmt.Fprintln(errOut, "\nStopping: in-flight jobs will finish, everything else is cancelled. Press Ctrl+C again to abort.")
	mgr.Cancel()
	<-signals
	os.Exit(130)
}

func renderProgress(ctx context.Context, aggregator *progress.Aggregator, out io.Writer) {
	for snapshot := range aggregator.Subscribe(ctx, 2*time.Second) {
		fmt.Fprintln(out, renderProgressLine(snapshot))
	}
}

func writeExports(dir string, result *pipeline.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	csvFile, err := os.Create(filepath.Join(dir, "transcripts.csv"))
	if err != nil {
		return fmt.Errorf("create csv export: %w", err)
	}
	if err := export.WriteCSV(csvFile, result.Jobs); err != nil {
		csvFile.Close()
		return err
	}
	if err := csvFile.Close(); err != nil {
		return fmt.Errorf("close csv export: %w", err)
	}

	jsonFile, err := os.Create(filepath.Join(dir, "transcripts.json"))
	if err != nil {
		return fmt.Errorf("create json export: %w", err)
	}
	if err := export.WriteJSON(jsonFile, result.Jobs); err != nil {
		jsonFile.Close()
		return err
	}
	if err := jsonFile.Close(); err != nil {
		return fmt.Errorf("close json export: %w", err)
	}

	srtDir := filepath.Join(dir, "srt")
	files := export.SRTFiles(result.Jobs)
	if len(files) > 0 {
		if err := os.MkdirAll(srtDir, 0o755); err != nil {
			return fmt.Errorf("create srt directory: %w", err)
		}
	}
	for _, file := range files {
		if err := os.WriteFile(filepath.Join(srtDir, file.Name), file.Content, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", file.Name, err)
		}
	}
	return nil
}
