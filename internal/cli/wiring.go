package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"opsqa/config"
	"opsqa/internal/adapter/classifier"
	"opsqa/internal/adapter/embedding"
	"opsqa/internal/adapter/llm"
	"opsqa/internal/adapter/store"
	"opsqa/internal/port"
)

// openStore opens the index database, clearing it first when the
// index-relevant configuration changed underneath it.
func openStore(cfg *config.Config, dir string) (*store.BoltStore, error) {
	if err := config.EnsureDataDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	st, err := store.NewBoltStore(config.IndexDBPath(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to open index store: %w", err)
	}

	migration, err := st.CheckMigration(cfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to check migration: %w", err)
	}
	if migration.NeedsRebuild {
		fmt.Printf("Index rebuild required: %s\n", migration.Reason)
		fmt.Println("Clearing existing index...")
		if err := st.Clear(); err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to clear index: %w", err)
		}
	}
	if err := st.Migrate(cfg); err != nil {
		st.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return st, nil
}

func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	timeout := time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second
	switch cfg.Embedding.Provider {
	case "openai":
		return embedding.NewOpenAIEmbedder(cfg.Embedding.APIKeyEnv, cfg.Embedding.Model, cfg.Embedding.BaseURL, timeout)
	case "ollama":
		return embedding.NewOllamaEmbedder(cfg.Embedding.Model, cfg.Embedding.BaseURL, timeout)
	case "mock":
		return embedding.NewMockEmbedder(cfg.Embedding.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}
}

func newVectorStore(ctx context.Context, cfg *config.Config, st *store.BoltStore, dimension int) (port.VectorStore, error) {
	switch cfg.Vector.Provider {
	case "bolt", "":
		return store.NewBoltVectorStore(st.DB(), dimension)
	case "qdrant":
		return store.NewQdrantStore(ctx, store.QdrantConfig{
			URL:        cfg.Vector.URL,
			APIKey:     os.Getenv(cfg.Vector.APIKeyEnv),
			Collection: cfg.Vector.Collection,
			Dimension:  dimension,
		})
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", cfg.Vector.Provider)
	}
}

func newClassifier(cfg *config.Config) (port.Classifier, error) {
	timeout := time.Duration(cfg.Classify.TimeoutSeconds) * time.Second
	switch cfg.Classify.Provider {
	case "none", "":
		return classifier.NoopClassifier{}, nil
	case "openai":
		client, err := llm.NewOpenAIClient(cfg.Classify.APIKeyEnv, cfg.Classify.Model, cfg.Classify.BaseURL, 0, timeout)
		if err != nil {
			return nil, err
		}
		return classifier.NewLLMClassifier(client, cfg.Classify.Retries), nil
	case "ollama":
		client := llm.NewOllamaClient(cfg.Classify.Model, cfg.Classify.BaseURL, 0, timeout)
		return classifier.NewLLMClassifier(client, cfg.Classify.Retries), nil
	default:
		return nil, fmt.Errorf("unsupported classify provider: %s", cfg.Classify.Provider)
	}
}

func newAnswerLLM(cfg *config.Config) (port.LLM, error) {
	timeout := time.Duration(cfg.Answer.TimeoutSeconds) * time.Second
	switch cfg.Answer.Provider {
	case "openai":
		return llm.NewOpenAIClient(cfg.Answer.APIKeyEnv, cfg.Answer.Model, cfg.Answer.BaseURL, cfg.Answer.MaxTokens, timeout)
	case "ollama":
		return llm.NewOllamaClient(cfg.Answer.Model, cfg.Answer.BaseURL, cfg.Answer.MaxTokens, timeout), nil
	default:
		return nil, fmt.Errorf("unsupported answer provider: %s", cfg.Answer.Provider)
	}
}
