package store

import (
	"testing"

	"opsqa/config"
)

func TestMigrateFreshDatabase(t *testing.T) {
	s := openTestStore(t)
	cfg := config.DefaultConfig()

	result, err := s.CheckMigration(cfg)
	if err != nil {
		t.Fatalf("CheckMigration() error = %v", err)
	}
	if !result.NeedsMigration {
		t.Error("fresh database should need schema initialization")
	}

	if err := s.Migrate(cfg); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	info, err := s.GetSchemaInfo()
	if err != nil {
		t.Fatalf("GetSchemaInfo() error = %v", err)
	}
	if info.Version != CurrentSchemaVersion {
		t.Errorf("Version = %d, want %d", info.Version, CurrentSchemaVersion)
	}
	if info.ConfigHash != ComputeConfigHash(cfg) {
		t.Error("config hash not recorded")
	}

	result, err = s.CheckMigration(cfg)
	if err != nil {
		t.Fatalf("CheckMigration() error = %v", err)
	}
	if result.NeedsMigration || result.NeedsRebuild {
		t.Errorf("migrated database flagged again: %+v", result)
	}
}

func TestRebuildOnConfigChange(t *testing.T) {
	s := openTestStore(t)
	cfg := config.DefaultConfig()
	if err := s.Migrate(cfg); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	changed := config.DefaultConfig()
	changed.Embedding.Model = "text-embedding-3-large"

	needs, reason, err := s.NeedsRebuild(changed)
	if err != nil {
		t.Fatalf("NeedsRebuild() error = %v", err)
	}
	if !needs {
		t.Error("embedding model change should force rebuild")
	}
	if reason == "" {
		t.Error("rebuild reason missing")
	}

	// Options outside index semantics do not force a rebuild.
	tuned := config.DefaultConfig()
	tuned.Retrieve.TopK = 20
	needs, _, err = s.NeedsRebuild(tuned)
	if err != nil {
		t.Fatalf("NeedsRebuild() error = %v", err)
	}
	if needs {
		t.Error("retrieval tuning should not force rebuild")
	}
}

func TestClearKeepsSchemaKeys(t *testing.T) {
	s := openTestStore(t)
	cfg := config.DefaultConfig()
	if err := s.Migrate(cfg); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := s.PutDoc(sampleDoc("doc-1", "a.txt")); err != nil {
		t.Fatalf("PutDoc() error = %v", err)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	docs, err := s.ListDocs()
	if err != nil {
		t.Fatalf("ListDocs() error = %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("Clear() left %d docs", len(docs))
	}

	info, err := s.GetSchemaInfo()
	if err != nil {
		t.Fatalf("GetSchemaInfo() error = %v", err)
	}
	if info.Version != CurrentSchemaVersion {
		t.Errorf("Clear() dropped schema version, got %d", info.Version)
	}
}

func TestComputeConfigHashStable(t *testing.T) {
	a := config.DefaultConfig()
	b := config.DefaultConfig()
	if ComputeConfigHash(a) != ComputeConfigHash(b) {
		t.Error("identical configs hash differently")
	}

	b.Ingest.ChunkSize = 500
	if ComputeConfigHash(a) == ComputeConfigHash(b) {
		t.Error("chunk size change not reflected in hash")
	}
}
