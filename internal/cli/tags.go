package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"opsqa/internal/usecase"
)

var exportTagsCmd = &cobra.Command{
	Use:   "export-tags [output.csv]",
	Short: "Export chunk classifications to CSV for review",
	Long: `Write one CSV row per indexed chunk with its category and metadata,
so a reviewer can correct the automatic classification in a spreadsheet
and load it back with 'opsqa import-tags'. Without an argument the CSV
goes to stdout.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExportTags,
}

var importTagsCmd = &cobra.Command{
	Use:   "import-tags <input.csv>",
	Short: "Import reviewed chunk classifications from CSV",
	Long: `Apply reviewed tags from a CSV produced by 'opsqa export-tags'.
Rows with unknown chunk ids or invalid categories are reported and
skipped; every valid row updates both the stored chunk and its vector
payload so filtered retrieval sees the correction.`,
	Args: cobra.ExactArgs(1),
	RunE: runImportTags,
}

func init() {
	rootCmd.AddCommand(exportTagsCmd)
	rootCmd.AddCommand(importTagsCmd)
}

func runExportTags(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	st, err := openStore(cfg, GetRootDir())
	if err != nil {
		return err
	}
	defer st.Close()

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	vectors, err := newVectorStore(cmd.Context(), cfg, st, embedder.Dimension())
	if err != nil {
		return fmt.Errorf("failed to create vector store: %w", err)
	}
	tagsUC := usecase.NewTagsUseCase(st, vectors, embedder, nil, nil)

	out := os.Stdout
	if len(args) == 1 {
		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", args[0], err)
		}
		defer f.Close()
		out = f
	}

	if err := tagsUC.Export(out); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	if len(args) == 1 {
		fmt.Printf("Tags exported to %s\n", args[0])
	}
	return nil
}

func runImportTags(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	st, err := openStore(cfg, GetRootDir())
	if err != nil {
		return err
	}
	defer st.Close()

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	vectors, err := newVectorStore(cmd.Context(), cfg, st, embedder.Dimension())
	if err != nil {
		return fmt.Errorf("failed to create vector store: %w", err)
	}
	tagsUC := usecase.NewTagsUseCase(st, vectors, embedder, nil, nil)

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer f.Close()

	result, err := tagsUC.Import(cmd.Context(), f)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Printf("Updated %d chunks\n", result.Updated)
	if len(result.Errors) > 0 {
		fmt.Println("Skipped rows:")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	return nil
}
