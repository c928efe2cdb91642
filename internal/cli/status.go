package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"opsqa/internal/usecase"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status [source-path]",
	Short: "Show ingestion status",
	Long: `Without arguments, list every live document with its status. With a
source path, show the full ingestion report of its active version,
including per-page and per-chunk failures.

Examples:
  opsqa status
  opsqa status manuals/dryer.pdf`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	st, err := openStore(cfg, GetRootDir())
	if err != nil {
		return err
	}
	defer st.Close()

	statusUC := usecase.NewStatusUseCase(st)

	if len(args) == 1 {
		report, err := statusUC.ReportForPath(args[0])
		if err != nil {
			return fmt.Errorf("no report for %s: %w", args[0], err)
		}
		if statusJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		fmt.Printf("Document:       %s\n", report.DocID)
		fmt.Printf("Source:         %s\n", report.SourcePath)
		fmt.Printf("Status:         %s\n", report.Status)
		fmt.Printf("Pages:          %d extracted\n", report.PagesExtracted)
		fmt.Printf("Chunks:         %d indexed of %d created\n", report.ChunksIndexed, report.ChunksCreated)
		for _, pf := range report.PageFailures {
			fmt.Printf("  page %d failed: %s\n", pf.Page, pf.Reason)
		}
		for _, cf := range report.ChunkFailures {
			fmt.Printf("  chunk %s failed: %s\n", cf.ChunkID, cf.Reason)
		}
		return nil
	}

	docs, err := statusUC.Overview()
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	if statusJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	}

	if len(docs) == 0 {
		fmt.Println("No documents ingested yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tFORMAT\tLANGUAGE\tSTATUS\tINGESTED")
	for _, doc := range docs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			doc.SourcePath, doc.Format, doc.Language, doc.Status,
			doc.IngestedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
