// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

// This file contains the PostgreSQL implementation of the database store.
package db

import (
	"context"
	"fmt"

	"github.com/bnrobert/gobro/internal/model"
	"github.com/uptrace/bun"
)

// PostgresStore is the PostgreSQL implementation of the Store interface.
type PostgresStore struct {
	bun *bun.DB
}

const postgresUpsertDicomFileSQL = `INSERT INTO dicom_files (
	path, size_bytes, content_hash,
	image_type, instance_creation_date, study_date, series_date,
	acquisition_date, content_date, accession_number, modality,
	station_name, patient_name, patient_id, patient_birth_date,
	series_instance_uid, study_id, instance_number, indexed_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (path) DO UPDATE SET
	size_bytes = EXCLUDED.size_bytes,
	content_hash = EXCLUDED.content_hash,
	image_type = EXCLUDED.image_type,
	instance_creation_date = EXCLUDED.instance_creation_date,
	study_date = EXCLUDED.study_date,
	series_date = EXCLUDED.series_date,
	acquisition_date = EXCLUDED.acquisition_date,
	content_date = EXCLUDED.content_date,
	accession_number = EXCLUDED.accession_number,
	modality = EXCLUDED.modality,
	station_name = EXCLUDED.station_name,
	patient_name = EXCLUDED.patient_name,
	patient_id = EXCLUDED.patient_id,
	patient_birth_date = EXCLUDED.patient_birth_date,
	series_instance_uid = EXCLUDED.series_instance_uid,
	study_id = EXCLUDED.study_id,
	instance_number = EXCLUDED.instance_number,
	indexed_at = EXCLUDED.indexed_at`

const postgresUpsertArticleSQL = `INSERT INTO articles (
	pmid, title, journal_abbrev, journal, volume, issue, pub_date, source, abstract
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (pmid) DO UPDATE SET
	title = EXCLUDED.title,
	journal_abbrev = EXCLUDED.journal_abbrev,
	journal = EXCLUDED.journal,
	volume = EXCLUDED.volume,
	issue = EXCLUDED.issue,
	pub_date = EXCLUDED.pub_date,
	source = EXCLUDED.source,
	abstract = EXCLUDED.abstract`

// UpsertDicomFile inserts or refreshes a catalog row keyed by path and
// returns the row ID.
func (s *PostgresStore) UpsertDicomFile(f model.DicomFile) (int, error) {
	ctx := context.Background()
	if _, err := ExecRaw(ctx, s.bun, postgresUpsertDicomFileSQL, dicomFileUpsertArgs(f)...); err != nil {
		return 0, MapDBError(err)
	}
	return selectDicomFileID(s.bun, f.Path)
}

// GetAllDicomFiles retrieves the whole DICOM catalog.
func (s *PostgresStore) GetAllDicomFiles() ([]model.DicomFile, error) {
	return GetAllDicomFilesBun(s.bun)
}

// GetDicomFileByPath retrieves a single catalog row by path.
func (s *PostgresStore) GetDicomFileByPath(path string) (*model.DicomFile, error) {
	return GetDicomFileByPathBun(s.bun, path)
}

// GetDicomFilesByModality retrieves catalog rows for one modality.
func (s *PostgresStore) GetDicomFilesByModality(modality string) ([]model.DicomFile, error) {
	return GetDicomFilesByModalityBun(s.bun, modality)
}

// DeleteDicomFiles removes catalog rows by ID.
func (s *PostgresStore) DeleteDicomFiles(ids []int) (int, error) {
	n, err := DeleteDicomFilesBun(s.bun, ids)
	if err == nil && n > 0 {
		_ = s.LogAction("PRUNE_DICOM_FILES", fmt.Sprintf("removed: %d", n))
	}
	return n, err
}

// CountDicomFiles returns the catalog size.
func (s *PostgresStore) CountDicomFiles() (int, error) {
	return CountDicomFilesBun(s.bun)
}

// CountDicomFilesByModality returns catalog sizes grouped by modality.
func (s *PostgresStore) CountDicomFilesByModality() (map[string]int, error) {
	return CountDicomFilesByModalityBun(s.bun)
}

// UpsertArticle stores an article with its authors and MeSH terms.
func (s *PostgresStore) UpsertArticle(a model.Article, authors []model.Author, terms []model.MeshTerm) error {
	ctx := context.Background()
	return WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		if _, err := ExecRaw(ctx, tx, postgresUpsertArticleSQL, articleUpsertArgs(a)...); err != nil {
			return MapDBError(err)
		}
		for _, au := range authors {
			if _, err := ExecRaw(ctx, tx,
				"INSERT INTO article_authors (pmid, short_name, full_name) VALUES (?, ?, ?) ON CONFLICT DO NOTHING",
				a.PMID, au.ShortName, au.FullName); err != nil {
				return MapDBError(err)
			}
		}
		for _, mt := range terms {
			if _, err := ExecRaw(ctx, tx,
				"INSERT INTO article_terms (pmid, term) VALUES (?, ?) ON CONFLICT DO NOTHING",
				a.PMID, mt.Term); err != nil {
				return MapDBError(err)
			}
		}
		return nil
	})
}

// GetAllArticles retrieves all stored articles.
func (s *PostgresStore) GetAllArticles() ([]model.Article, error) {
	return GetAllArticlesBun(s.bun)
}

// GetArticleByPMID retrieves a single article.
func (s *PostgresStore) GetArticleByPMID(pmid string) (*model.Article, error) {
	return GetArticleByPMIDBun(s.bun, pmid)
}

// GetAuthorsForArticle retrieves an article's authors.
func (s *PostgresStore) GetAuthorsForArticle(pmid string) ([]model.Author, error) {
	return GetAuthorsForArticleBun(s.bun, pmid)
}

// GetTermsForArticle retrieves an article's MeSH terms.
func (s *PostgresStore) GetTermsForArticle(pmid string) ([]model.MeshTerm, error) {
	return GetTermsForArticleBun(s.bun, pmid)
}

// GetAllAuthors retrieves every author row.
func (s *PostgresStore) GetAllAuthors() ([]model.Author, error) {
	return GetAllAuthorsBun(s.bun)
}

// GetAllMeshTerms retrieves every MeSH term row.
func (s *PostgresStore) GetAllMeshTerms() ([]model.MeshTerm, error) {
	return GetAllMeshTermsBun(s.bun)
}

// CountArticles returns the number of stored articles.
func (s *PostgresStore) CountArticles() (int, error) {
	return CountArticlesBun(s.bun)
}

// TopJournals returns the n most frequent journals.
func (s *PostgresStore) TopJournals(n int) ([]NameCount, error) {
	return TopJournalsBun(s.bun, n)
}

// TopMeshTerms returns the n most frequent MeSH terms.
func (s *PostgresStore) TopMeshTerms(n int) ([]NameCount, error) {
	return TopMeshTermsBun(s.bun, n)
}

// GetKnownHostKey retrieves the trusted public key for a given hostname.
func (s *PostgresStore) GetKnownHostKey(hostname string) (string, error) {
	return GetKnownHostKeyBun(s.bun, hostname)
}

// AddKnownHostKey adds a new trusted host key to the database.
// "key" needs quoting here; it is reserved in some PostgreSQL contexts.
func (s *PostgresStore) AddKnownHostKey(hostname, key string) error {
	ctx := context.Background()
	_, err := ExecRaw(ctx, s.bun,
		`INSERT INTO known_hosts (hostname, "key") VALUES (?, ?) ON CONFLICT (hostname) DO UPDATE SET "key" = EXCLUDED."key"`,
		hostname, key)
	if err == nil {
		_ = s.LogAction("TRUST_HOST", fmt.Sprintf("hostname: %s", hostname))
	}
	return err
}

// GetAllAuditLogEntries retrieves all entries from the audit log, most recent first.
func (s *PostgresStore) GetAllAuditLogEntries() ([]model.AuditLogEntry, error) {
	return GetAllAuditLogEntriesBun(s.bun)
}

// LogAction records an audit trail event.
func (s *PostgresStore) LogAction(action string, details string) error {
	return LogActionBun(s.bun, action, details)
}

// ExportDataForBackup retrieves all data from the database for a backup.
func (s *PostgresStore) ExportDataForBackup() (*model.BackupData, error) {
	return ExportDataForBackupBun(s.bun)
}

// ImportDataFromBackup restores the database from a backup data structure.
func (s *PostgresStore) ImportDataFromBackup(backup *model.BackupData) error {
	return ImportDataFromBackupBun(s.bun, backup)
}

// IntegrateDataFromBackup restores data from a backup in a non-destructive way.
func (s *PostgresStore) IntegrateDataFromBackup(backup *model.BackupData) error {
	return IntegrateDataFromBackupBun(s.bun, backup)
}

// BunDB exposes the underlying Bun handle for advanced callers.
func (s *PostgresStore) BunDB() *bun.DB {
	return s.bun
}
