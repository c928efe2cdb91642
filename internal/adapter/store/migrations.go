package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"opsqa/config"
)

// CurrentSchemaVersion is incremented on breaking storage changes.
const CurrentSchemaVersion = 1

var (
	keySchemaVersion = []byte("schema_version")
	keyConfigHash    = []byte("config_hash")
)

// SchemaInfo holds the stored schema version and the hash of the
// index-relevant configuration the data was built with.
type SchemaInfo struct {
	Version    int    `json:"version"`
	ConfigHash string `json:"config_hash"`
}

func (s *BoltStore) GetSchemaInfo() (*SchemaInfo, error) {
	var info SchemaInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if b == nil {
			return nil
		}

		versionData := b.Get(keySchemaVersion)
		if versionData != nil {
			if err := json.Unmarshal(versionData, &info.Version); err != nil {
				info.Version = 1
			}
		}

		hashData := b.Get(keyConfigHash)
		if hashData != nil {
			info.ConfigHash = string(hashData)
		}

		return nil
	})
	return &info, err
}

func (s *BoltStore) SetSchemaInfo(info *SchemaInfo) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)

		versionData, err := json.Marshal(info.Version)
		if err != nil {
			return err
		}
		if err := b.Put(keySchemaVersion, versionData); err != nil {
			return err
		}

		return b.Put(keyConfigHash, []byte(info.ConfigHash))
	})
}

// ComputeConfigHash hashes the configuration that determines index
// semantics. A change means stored chunks and vectors no longer match
// what ingestion would produce, so the index must be rebuilt. The
// embedding model is part of the hash: vectors from different models
// live in different spaces.
func ComputeConfigHash(cfg *config.Config) string {
	relevant := struct {
		ChunkSize         int    `json:"chunk_size"`
		ChunkOverlap      int    `json:"chunk_overlap"`
		TableThreshold    int    `json:"table_threshold"`
		TableRowsPerChunk int    `json:"table_rows_per_chunk"`
		EmbProvider       string `json:"emb_provider"`
		EmbModel          string `json:"emb_model"`
		EmbDimension      int    `json:"emb_dimension"`
		VectorProvider    string `json:"vector_provider"`
	}{
		ChunkSize:         cfg.Ingest.ChunkSize,
		ChunkOverlap:      cfg.Ingest.ChunkOverlap,
		TableThreshold:    cfg.Ingest.TableSingleChunkThreshold,
		TableRowsPerChunk: cfg.Ingest.TableRowsPerChunk,
		EmbProvider:       cfg.Embedding.Provider,
		EmbModel:          cfg.Embedding.Model,
		EmbDimension:      cfg.Embedding.Dimension,
		VectorProvider:    cfg.Vector.Provider,
	}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

// MigrationResult describes the result of a migration check.
type MigrationResult struct {
	NeedsMigration bool
	NeedsRebuild   bool
	OldVersion     int
	NewVersion     int
	Reason         string
}

// CheckMigration checks if migration or rebuild is needed.
func (s *BoltStore) CheckMigration(cfg *config.Config) (*MigrationResult, error) {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to get schema info: %w", err)
	}

	result := &MigrationResult{
		OldVersion: info.Version,
		NewVersion: CurrentSchemaVersion,
	}

	if info.Version == 0 {
		result.NeedsMigration = true
		result.Reason = "initializing schema version"
	} else if info.Version < CurrentSchemaVersion {
		result.NeedsMigration = true
		result.Reason = fmt.Sprintf("schema upgrade from v%d to v%d", info.Version, CurrentSchemaVersion)
	} else if info.Version > CurrentSchemaVersion {
		result.NeedsRebuild = true
		result.Reason = fmt.Sprintf("database created by newer version (v%d > v%d)", info.Version, CurrentSchemaVersion)
		return result, nil
	}

	newHash := ComputeConfigHash(cfg)
	if info.ConfigHash != "" && info.ConfigHash != newHash {
		result.NeedsRebuild = true
		result.Reason = "index configuration changed"
	}

	return result, nil
}

// Migrate runs any pending schema migrations and records the current
// version and config hash.
func (s *BoltStore) Migrate(cfg *config.Config) error {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return err
	}

	for v := info.Version; v < CurrentSchemaVersion; v++ {
		if err := s.runMigration(v, v+1); err != nil {
			return fmt.Errorf("migration from v%d to v%d failed: %w", v, v+1, err)
		}
	}

	return s.SetSchemaInfo(&SchemaInfo{
		Version:    CurrentSchemaVersion,
		ConfigHash: ComputeConfigHash(cfg),
	})
}

func (s *BoltStore) runMigration(from, to int) error {
	switch {
	case from == 0 && to == 1:
		return nil
	default:
		return nil
	}
}

// Clear removes all indexed data (for rebuild), keeping schema keys.
func (s *BoltStore) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{bucketDocs, bucketChunks, bucketBlobs, bucketDocChunks, bucketActive, bucketReports, bucketVectors}
		for _, name := range buckets {
			b := tx.Bucket(name)
			if b == nil {
				continue
			}

			c := b.Cursor()
			for k, _ := c.First(); k != nil; k, _ = c.Next() {
				if err := b.Delete(k); err != nil {
					return err
				}
			}
		}

		metaBucket := tx.Bucket(bucketMeta)
		if metaBucket != nil {
			c := metaBucket.Cursor()
			for k, _ := c.First(); k != nil; k, _ = c.Next() {
				if string(k) != string(keySchemaVersion) && string(k) != string(keyConfigHash) {
					if err := metaBucket.Delete(k); err != nil {
						return err
					}
				}
			}
		}

		return nil
	})
}

// NeedsRebuild reports whether the index must be rebuilt because the
// index-relevant configuration changed underneath it.
func (s *BoltStore) NeedsRebuild(cfg *config.Config) (bool, string, error) {
	result, err := s.CheckMigration(cfg)
	if err != nil {
		return false, "", err
	}
	return result.NeedsRebuild, result.Reason, nil
}
