// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"github.com/bnrobert/gobro/internal/model"
	"github.com/uptrace/bun"
)

// Store defines the interface for all database operations in Gobro.
// This allows for multiple database backends to be implemented.
type Store interface {
	// DICOM catalog methods
	UpsertDicomFile(f model.DicomFile) (int, error)
	GetAllDicomFiles() ([]model.DicomFile, error)
	GetDicomFileByPath(path string) (*model.DicomFile, error)
	GetDicomFilesByModality(modality string) ([]model.DicomFile, error)
	DeleteDicomFiles(ids []int) (int, error)
	CountDicomFiles() (int, error)
	CountDicomFilesByModality() (map[string]int, error)

	// Bibliography methods
	UpsertArticle(a model.Article, authors []model.Author, terms []model.MeshTerm) error
	GetAllArticles() ([]model.Article, error)
	GetArticleByPMID(pmid string) (*model.Article, error)
	GetAuthorsForArticle(pmid string) ([]model.Author, error)
	GetTermsForArticle(pmid string) ([]model.MeshTerm, error)
	GetAllAuthors() ([]model.Author, error)
	GetAllMeshTerms() ([]model.MeshTerm, error)
	CountArticles() (int, error)
	TopJournals(n int) ([]NameCount, error)
	TopMeshTerms(n int) ([]NameCount, error)

	// Host Key methods
	GetKnownHostKey(hostname string) (string, error)
	AddKnownHostKey(hostname, key string) error

	// Audit Log methods
	GetAllAuditLogEntries() ([]model.AuditLogEntry, error)
	LogAction(action string, details string) error

	// Backup methods
	ExportDataForBackup() (*model.BackupData, error)
	ImportDataFromBackup(backup *model.BackupData) error
	IntegrateDataFromBackup(backup *model.BackupData) error

	// BunDB exposes the underlying Bun handle for search helpers.
	BunDB() *bun.DB
}

// NameCount is a (name, count) aggregation row used by the dashboard and the
// bibliography statistics views.
type NameCount struct {
	Name  string
	Count int
}
