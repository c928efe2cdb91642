package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"opsqa/internal/adapter/cache"
	"opsqa/internal/adapter/retriever"
	"opsqa/internal/domain"
	"opsqa/internal/usecase"
)

var (
	askFilters []string
	askTopK    int
	askJSON    bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question against the indexed documents",
	Long: `Ask a free-text question. The answer is composed only from indexed
document chunks and carries a citation for every claim. When the index
does not hold the evidence, opsqa reports insufficient evidence rather
than guessing.

Examples:
  opsqa ask "what is the max moisture content for grade A pellets?"
  opsqa ask --filter category=safety "lockout steps for breaker 3"
  opsqa ask --json "torque spec for valve 7"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringArrayVar(&askFilters, "filter", nil, "metadata filter key=value (repeatable)")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the answer as JSON")
}

func runAsk(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	cfg := GetConfig()
	ctx := cmd.Context()

	filter, err := parseFilters(askFilters)
	if err != nil {
		return err
	}

	topK := askTopK
	if topK <= 0 {
		topK = cfg.Retrieve.TopK
	}

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
	answerLLM, err := newAnswerLLM(cfg)
	if err != nil {
		return fmt.Errorf("failed to create completion client: %w", err)
	}

	semantic := retriever.NewSemanticRetriever(embedder, vectors, st, retriever.Options{
		CandidateMultiplier: cfg.Retrieve.CandidateMultiplier,
		MinSimilarity:       cfg.Retrieve.MinSimilarity,
		SimWeight:           cfg.Retrieve.SimWeight,
		MetaWeight:          cfg.Retrieve.MetaWeight,
	})
	cached := cache.NewCachedRetriever(semantic, cache.NewQueryCache(
		cfg.Retrieve.CacheSize,
		time.Duration(cfg.Retrieve.CacheTTLSeconds)*time.Second,
	))

	answerUC, err := usecase.NewAnswerUseCase(cached, answerLLM, cfg.Answer, topK, slog.Default())
	if err != nil {
		return err
	}

	answer, err := answerUC.Answer(ctx, query, filter)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if askJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	}

	printAnswer(answer)
	return nil
}

func parseFilters(raw []string) (domain.QueryFilter, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	filter := make(domain.QueryFilter, len(raw))
	for _, f := range raw {
		key, value, ok := strings.Cut(f, "=")
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("invalid filter %q, expected key=value", f)
		}
		filter[key] = value
	}
	return filter, nil
}

func printAnswer(answer domain.Answer) {
	fmt.Println(answer.Text)
	fmt.Printf("\nConfidence: %s\n", answer.Confidence)
	if len(answer.Citations) > 0 {
		fmt.Println("Citations:")
		for _, c := range answer.Citations {
			fmt.Printf("  - %s (document %s, page %d)\n", c.ChunkID, c.DocumentID, c.Page)
		}
	}
}
