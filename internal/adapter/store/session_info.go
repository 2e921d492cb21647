package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"go.etcd.io/bbolt"

	"pdfrag/config"
)

// SessionInfo describes the session that owns the registry.
type SessionInfo struct {
	ID         string    `json:"id"`
	ConfigHash string    `json:"config_hash"`
	StartedAt  time.Time `json:"started_at"`
}

// ComputeConfigHash fingerprints the settings that determine chunk ids and
// vectors. Two sessions with the same hash would build identical indexes
// from identical uploads.
func ComputeConfigHash(cfg *config.Config) string {
	relevant := struct {
		ChunkSize    int      `json:"chunk_size"`
		ChunkOverlap int      `json:"chunk_overlap"`
		Separators   []string `json:"separators"`
		Dimension    int      `json:"dimension"`
		EmbProvider  string   `json:"emb_provider"`
		EmbModel     string   `json:"emb_model"`
	}{
		ChunkSize:    cfg.Splitter.ChunkSize,
		ChunkOverlap: cfg.Splitter.ChunkOverlap,
		Separators:   cfg.Splitter.Separators,
		Dimension:    cfg.Index.Dimension,
		EmbProvider:  cfg.Embedding.Provider,
		EmbModel:     cfg.Embedding.Model,
	}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

// SessionInfo returns the stored session info, or nil if none was recorded.
func (s *BoltRegistry) SessionInfo() (*SessionInfo, error) {
	var info *SessionInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketSession).Get(keySession)
		if data == nil {
			return nil
		}
		info = &SessionInfo{}
		return json.Unmarshal(data, info)
	})
	return info, err
}

func (s *BoltRegistry) SetSessionInfo(info SessionInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSession).Put(keySession, data)
	})
}
