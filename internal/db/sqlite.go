// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

// package db provides the data access layer for Gobro.
// This file contains the SQLite implementation of the database store.
package db // import "github.com/bnrobert/gobro/internal/db"

import (
	"context"
	"fmt"

	"github.com/bnrobert/gobro/internal/model"
	"github.com/uptrace/bun"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SqliteStore is the SQLite implementation of the Store interface.
type SqliteStore struct {
	bun *bun.DB
}

const sqliteUpsertDicomFileSQL = `INSERT INTO dicom_files (
	path, size_bytes, content_hash,
	image_type, instance_creation_date, study_date, series_date,
	acquisition_date, content_date, accession_number, modality,
	station_name, patient_name, patient_id, patient_birth_date,
	series_instance_uid, study_id, instance_number, indexed_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
	size_bytes = excluded.size_bytes,
	content_hash = excluded.content_hash,
	image_type = excluded.image_type,
	instance_creation_date = excluded.instance_creation_date,
	study_date = excluded.study_date,
	series_date = excluded.series_date,
	acquisition_date = excluded.acquisition_date,
	content_date = excluded.content_date,
	accession_number = excluded.accession_number,
	modality = excluded.modality,
	station_name = excluded.station_name,
	patient_name = excluded.patient_name,
	patient_id = excluded.patient_id,
	patient_birth_date = excluded.patient_birth_date,
	series_instance_uid = excluded.series_instance_uid,
	study_id = excluded.study_id,
	instance_number = excluded.instance_number,
	indexed_at = excluded.indexed_at`

const sqliteUpsertArticleSQL = `INSERT INTO articles (
	pmid, title, journal_abbrev, journal, volume, issue, pub_date, source, abstract
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(pmid) DO UPDATE SET
	title = excluded.title,
	journal_abbrev = excluded.journal_abbrev,
	journal = excluded.journal,
	volume = excluded.volume,
	issue = excluded.issue,
	pub_date = excluded.pub_date,
	source = excluded.source,
	abstract = excluded.abstract`

// UpsertDicomFile inserts or refreshes a catalog row keyed by path and
// returns the row ID. Indexing runs log a single summary entry at a higher
// level, so there is no per-file audit entry here.
func (s *SqliteStore) UpsertDicomFile(f model.DicomFile) (int, error) {
	ctx := context.Background()
	if _, err := ExecRaw(ctx, s.bun, sqliteUpsertDicomFileSQL, dicomFileUpsertArgs(f)...); err != nil {
		return 0, MapDBError(err)
	}
	return selectDicomFileID(s.bun, f.Path)
}

// GetAllDicomFiles retrieves the whole DICOM catalog.
func (s *SqliteStore) GetAllDicomFiles() ([]model.DicomFile, error) {
	return GetAllDicomFilesBun(s.bun)
}

// GetDicomFileByPath retrieves a single catalog row by path.
func (s *SqliteStore) GetDicomFileByPath(path string) (*model.DicomFile, error) {
	return GetDicomFileByPathBun(s.bun, path)
}

// GetDicomFilesByModality retrieves catalog rows for one modality.
func (s *SqliteStore) GetDicomFilesByModality(modality string) ([]model.DicomFile, error) {
	return GetDicomFilesByModalityBun(s.bun, modality)
}

// DeleteDicomFiles removes catalog rows by ID.
func (s *SqliteStore) DeleteDicomFiles(ids []int) (int, error) {
	n, err := DeleteDicomFilesBun(s.bun, ids)
	if err == nil && n > 0 {
		_ = s.LogAction("PRUNE_DICOM_FILES", fmt.Sprintf("removed: %d", n))
	}
	return n, err
}

// CountDicomFiles returns the catalog size.
func (s *SqliteStore) CountDicomFiles() (int, error) {
	return CountDicomFilesBun(s.bun)
}

// CountDicomFilesByModality returns catalog sizes grouped by modality.
func (s *SqliteStore) CountDicomFilesByModality() (map[string]int, error) {
	return CountDicomFilesByModalityBun(s.bun)
}

// UpsertArticle stores an article with its authors and MeSH terms. The
// article row is replaced on re-import while author and term sets grow by
// union, matching how repeated MEDLINE exports overlap.
func (s *SqliteStore) UpsertArticle(a model.Article, authors []model.Author, terms []model.MeshTerm) error {
	ctx := context.Background()
	err := WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		if _, err := ExecRaw(ctx, tx, sqliteUpsertArticleSQL, articleUpsertArgs(a)...); err != nil {
			return MapDBError(err)
		}
		for _, au := range authors {
			if _, err := ExecRaw(ctx, tx,
				"INSERT OR IGNORE INTO article_authors (pmid, short_name, full_name) VALUES (?, ?, ?)",
				a.PMID, au.ShortName, au.FullName); err != nil {
				return MapDBError(err)
			}
		}
		for _, mt := range terms {
			if _, err := ExecRaw(ctx, tx,
				"INSERT OR IGNORE INTO article_terms (pmid, term) VALUES (?, ?)",
				a.PMID, mt.Term); err != nil {
				return MapDBError(err)
			}
		}
		return nil
	})
	return err
}

// GetAllArticles retrieves all stored articles.
func (s *SqliteStore) GetAllArticles() ([]model.Article, error) {
	return GetAllArticlesBun(s.bun)
}

// GetArticleByPMID retrieves a single article.
func (s *SqliteStore) GetArticleByPMID(pmid string) (*model.Article, error) {
	return GetArticleByPMIDBun(s.bun, pmid)
}

// GetAuthorsForArticle retrieves an article's authors.
func (s *SqliteStore) GetAuthorsForArticle(pmid string) ([]model.Author, error) {
	return GetAuthorsForArticleBun(s.bun, pmid)
}

// GetTermsForArticle retrieves an article's MeSH terms.
func (s *SqliteStore) GetTermsForArticle(pmid string) ([]model.MeshTerm, error) {
	return GetTermsForArticleBun(s.bun, pmid)
}

// GetAllAuthors retrieves every author row.
func (s *SqliteStore) GetAllAuthors() ([]model.Author, error) {
	return GetAllAuthorsBun(s.bun)
}

// GetAllMeshTerms retrieves every MeSH term row.
func (s *SqliteStore) GetAllMeshTerms() ([]model.MeshTerm, error) {
	return GetAllMeshTermsBun(s.bun)
}

// CountArticles returns the number of stored articles.
func (s *SqliteStore) CountArticles() (int, error) {
	return CountArticlesBun(s.bun)
}

// TopJournals returns the n most frequent journals.
func (s *SqliteStore) TopJournals(n int) ([]NameCount, error) {
	return TopJournalsBun(s.bun, n)
}

// TopMeshTerms returns the n most frequent MeSH terms.
func (s *SqliteStore) TopMeshTerms(n int) ([]NameCount, error) {
	return TopMeshTermsBun(s.bun, n)
}

// GetKnownHostKey retrieves the trusted public key for a given hostname.
func (s *SqliteStore) GetKnownHostKey(hostname string) (string, error) {
	return GetKnownHostKeyBun(s.bun, hostname)
}

// AddKnownHostKey adds a new trusted host key to the database.
func (s *SqliteStore) AddKnownHostKey(hostname, key string) error {
	// INSERT OR REPLACE will add the key if it doesn't exist, or update it if it does.
	// This is useful if a host is legitimately re-provisioned.
	ctx := context.Background()
	_, err := ExecRaw(ctx, s.bun, "INSERT OR REPLACE INTO known_hosts (hostname, key) VALUES (?, ?)", hostname, key)
	if err == nil {
		_ = s.LogAction("TRUST_HOST", fmt.Sprintf("hostname: %s", hostname))
	}
	return err
}

// GetAllAuditLogEntries retrieves all entries from the audit log, most recent first.
func (s *SqliteStore) GetAllAuditLogEntries() ([]model.AuditLogEntry, error) {
	return GetAllAuditLogEntriesBun(s.bun)
}

// LogAction records an audit trail event.
func (s *SqliteStore) LogAction(action string, details string) error {
	return LogActionBun(s.bun, action, details)
}

// ExportDataForBackup retrieves all data from the database for a backup.
// It uses a transaction to ensure a consistent snapshot of the data.
func (s *SqliteStore) ExportDataForBackup() (*model.BackupData, error) {
	return ExportDataForBackupBun(s.bun)
}

// ImportDataFromBackup restores the database from a backup data structure.
// It performs a full wipe-and-replace within a single transaction to ensure atomicity.
func (s *SqliteStore) ImportDataFromBackup(backup *model.BackupData) error {
	return ImportDataFromBackupBun(s.bun, backup)
}

// IntegrateDataFromBackup restores data from a backup in a non-destructive way,
// skipping entries that already exist.
func (s *SqliteStore) IntegrateDataFromBackup(backup *model.BackupData) error {
	return IntegrateDataFromBackupBun(s.bun, backup)
}

// BunDB exposes the underlying Bun handle for advanced callers.
func (s *SqliteStore) BunDB() *bun.DB {
	return s.bun
}
