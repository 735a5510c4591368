// Command assess-local runs an evidence assessment on a ZIP archive on disk
// and writes the report CSV.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"cloud.google.com/go/storage"

	"github.com/Lllllllleong/evidenceassessment/internal/config"
	"github.com/Lllllllleong/evidenceassessment/internal/orchestrator"
	"github.com/Lllllllleong/evidenceassessment/internal/services"
)

func main() {
	zipPath := flag.String("zip", "", "Path to the evidence archive (required)")
	taxonomySource := flag.String("taxonomy", "", "Taxonomy file, http(s) URL or gs:// object (overrides TAXONOMY_SOURCE)")
	outPath := flag.String("out", "", "Report CSV destination (default stdout)")
	resultsPath := flag.String("results", "", "Optional raw results CSV destination")
	validateOnly := flag.Bool("validate-only", false, "Only check the folder structure of the archive")
	envFile := flag.String("env", ".env", "Optional .env file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if *zipPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -zip is required.")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *zipPath, *taxonomySource, *outPath, *resultsPath, *validateOnly, *envFile); err != nil {
		slog.Error("Assessment failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, zipPath, taxonomySource, outPath, resultsPath string, validateOnly bool, envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if taxonomySource != "" {
		cfg.TaxonomySource = taxonomySource
	}

	var storageClient *storage.Client
	if strings.HasPrefix(cfg.TaxonomySource, "gs://") {
		storageClient, err = storage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("failed to create Storage client: %w", err)
		}
		defer storageClient.Close()
	}

	p, closeValidator, err := services.BuildPipeline(ctx, cfg, storageClient, nil)
	if err != nil {
		return err
	}
	defer closeValidator()

	archiveFile, err := os.Open(zipPath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer archiveFile.Close()
	info, err := archiveFile.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat archive: %w", err)
	}

	if validateOnly {
		check, err := p.Validate(ctx, archiveFile, info.Size())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(check)
	}

	progress := make(chan orchestrator.ProgressEvent, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		services.LogProgress(slog.Default(), progress)
	}()
	rep, err := p.Run(ctx, "local", archiveFile, info.Size(), progress)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	reportCSV, resultsCSV, err := services.RenderCSVs(rep)
	if err != nil {
		return err
	}
	if err := writeOutput(outPath, reportCSV); err != nil {
		return err
	}
	if resultsPath != "" {
		if err := writeOutput(resultsPath, resultsCSV); err != nil {
			return err
		}
	}

	for _, msg := range rep.Errors {
		slog.Warn("Assessment issue", "detail", msg)
	}
	slog.Info("Assessment complete.",
		"controls", rep.TotalControls,
		"successCount", rep.SuccessCount,
		"errorCount", rep.ErrorCount,
		"cancelled", rep.Cancelled,
	)
	return nil
}

func writeOutput(path string, content []byte) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}
	if _, err := w.Write(content); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
