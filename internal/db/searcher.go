package db

import (
	"github.com/bnrobert/gobro/internal/model"
	"github.com/uptrace/bun"
)

// DicomFileSearcher defines a minimal interface for searching the catalog.
// Consumers can depend on this instead of concrete Store implementations.
type DicomFileSearcher interface {
	SearchDicomFiles(query string) ([]model.DicomFile, error)
}

// BunDicomFileSearcher is a Bun-based implementation of DicomFileSearcher.
type BunDicomFileSearcher struct {
	bdb *bun.DB
}

// NewBunDicomFileSearcher creates a new BunDicomFileSearcher.
func NewBunDicomFileSearcher(bdb *bun.DB) DicomFileSearcher {
	return &BunDicomFileSearcher{bdb: bdb}
}

// NewDicomFileSearcherFromStore creates a DicomFileSearcher from any Store by
// using the underlying Bun DB.
func NewDicomFileSearcherFromStore(s Store) DicomFileSearcher {
	return NewBunDicomFileSearcher(s.BunDB())
}

// SearchDicomFiles delegates to the centralized Bun search helper.
func (s *BunDicomFileSearcher) SearchDicomFiles(q string) ([]model.DicomFile, error) {
	return SearchDicomFilesBun(s.bdb, q)
}

// DefaultDicomFileSearcher returns a DicomFileSearcher backed by the
// package-level `store` if available. It returns nil when the package store
// is not initialized; callers should handle nil by falling back to local
// filtering.
func DefaultDicomFileSearcher() DicomFileSearcher {
	if store == nil {
		return nil
	}
	return NewDicomFileSearcherFromStore(store)
}
