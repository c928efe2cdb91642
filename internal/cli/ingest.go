package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"opsqa/config"
	"opsqa/internal/adapter/chunker"
	"opsqa/internal/adapter/extractor"
	"opsqa/internal/adapter/fs"
	"opsqa/internal/adapter/ocr"
	"opsqa/internal/usecase"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Ingest and index documents for retrieval",
	Long: `Ingest documents under the given directory: extract their text
(through OCR for scans), chunk, classify and index them. Unchanged files
are skipped; changed files supersede their previous version. Per-file
reports are stored and can be inspected with 'opsqa status'.

Examples:
  opsqa ingest .                # Ingest current directory
  opsqa ingest /srv/documents   # Ingest a specific tree`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := GetRootDir()
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	cfg := GetConfig()
	ctx := cmd.Context()

	st, err := openStore(cfg, GetRootDir())
	if err != nil {
		return err
	}
	defer st.Close()

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	vectors, err := newVectorStore(ctx, cfg, st, embedder.Dimension())
	if err != nil {
		return fmt.Errorf("failed to create vector store: %w", err)
	}
	cls, err := newClassifier(cfg)
	if err != nil {
		return fmt.Errorf("failed to create classifier: %w", err)
	}

	gateway := ocr.NewHTTPGateway(cfg.OCR.BaseURL, time.Duration(cfg.OCR.TimeoutSeconds)*time.Second)
	registry := extractor.NewRegistry(
		extractor.NewTextExtractor(),
		extractor.NewTableExtractor(),
		extractor.NewScanExtractor(gateway, gateway),
	)

	walker := fs.NewWalker(cfg.Ingest.Includes, cfg.Ingest.Excludes)

	ingestUC := usecase.NewIngestUseCase(cfg.Ingest, usecase.IngestDeps{
		Docs:       st,
		Vectors:    vectors,
		Walker:     walker,
		Extractor:  registry,
		Chunker:    chunker.NewDocumentChunker(chunker.NewTextChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap), chunker.NewTableChunker(cfg.Ingest.TableSingleChunkThreshold, cfg.Ingest.TableRowsPerChunk)),
		Classifier: cls,
		Embedder:   embedder,
		ReadFile:   fs.ReadFile,
		Logger:     slog.Default(),
	})

	// Walk once up front so the progress bar knows the total.
	files, err := walker.Walk(path)
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", path, err)
	}
	fmt.Printf("Scanning %s: %d candidate files\n", path, len(files))

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Ingesting[reset]"),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)

	result, err := ingestUC.Ingest(ctx, path, func(string) {
		bar.Add(1)
	})
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("\nIngestion complete:\n")
	fmt.Printf("  Files ingested: %d\n", result.FilesIngested)
	fmt.Printf("  Files skipped:  %d (unchanged)\n", result.FilesSkipped)
	fmt.Printf("  Files failed:   %d\n", result.FilesFailed)
	fmt.Printf("  Chunks indexed: %d\n", result.ChunksIndexed)

	if len(result.Errors) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	for _, report := range result.Reports {
		for _, pf := range report.PageFailures {
			fmt.Printf("  - %s: page %d: %s\n", report.SourcePath, pf.Page, pf.Reason)
		}
	}

	fmt.Printf("\nIndex stored at: %s\n", config.IndexDBPath(GetRootDir()))
	return nil
}
