// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

// This file contains the MySQL implementation of the database store.
package db

import (
	"context"
	"fmt"

	"github.com/bnrobert/gobro/internal/model"
	"github.com/uptrace/bun"
	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// MySQLStore is the MySQL implementation of the Store interface.
type MySQLStore struct {
	bun *bun.DB
}

const mysqlUpsertDicomFileSQL = `INSERT INTO dicom_files (
	path, size_bytes, content_hash,
	image_type, instance_creation_date, study_date, series_date,
	acquisition_date, content_date, accession_number, modality,
	station_name, patient_name, patient_id, patient_birth_date,
	series_instance_uid, study_id, instance_number, indexed_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
	size_bytes = VALUES(size_bytes),
	content_hash = VALUES(content_hash),
	image_type = VALUES(image_type),
	instance_creation_date = VALUES(instance_creation_date),
	study_date = VALUES(study_date),
	series_date = VALUES(series_date),
	acquisition_date = VALUES(acquisition_date),
	content_date = VALUES(content_date),
	accession_number = VALUES(accession_number),
	modality = VALUES(modality),
	station_name = VALUES(station_name),
	patient_name = VALUES(patient_name),
	patient_id = VALUES(patient_id),
	patient_birth_date = VALUES(patient_birth_date),
	series_instance_uid = VALUES(series_instance_uid),
	study_id = VALUES(study_id),
	instance_number = VALUES(instance_number),
	indexed_at = VALUES(indexed_at)`

const mysqlUpsertArticleSQL = `INSERT INTO articles (
	pmid, title, journal_abbrev, journal, volume, issue, pub_date, source, abstract
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
	title = VALUES(title),
	journal_abbrev = VALUES(journal_abbrev),
	journal = VALUES(journal),
	volume = VALUES(volume),
	issue = VALUES(issue),
	pub_date = VALUES(pub_date),
	source = VALUES(source),
	abstract = VALUES(abstract)`

// UpsertDicomFile inserts or refreshes a catalog row keyed by path and
// returns the row ID.
func (s *MySQLStore) UpsertDicomFile(f model.DicomFile) (int, error) {
	ctx := context.Background()
	if _, err := ExecRaw(ctx, s.bun, mysqlUpsertDicomFileSQL, dicomFileUpsertArgs(f)...); err != nil {
		return 0, MapDBError(err)
	}
	return selectDicomFileID(s.bun, f.Path)
}

// GetAllDicomFiles retrieves the whole DICOM catalog.
func (s *MySQLStore) GetAllDicomFiles() ([]model.DicomFile, error) {
	return GetAllDicomFilesBun(s.bun)
}

// GetDicomFileByPath retrieves a single catalog row by path.
func (s *MySQLStore) GetDicomFileByPath(path string) (*model.DicomFile, error) {
	return GetDicomFileByPathBun(s.bun, path)
}

// GetDicomFilesByModality retrieves catalog rows for one modality.
func (s *MySQLStore) GetDicomFilesByModality(modality string) ([]model.DicomFile, error) {
	return GetDicomFilesByModalityBun(s.bun, modality)
}

// DeleteDicomFiles removes catalog rows by ID.
func (s *MySQLStore) DeleteDicomFiles(ids []int) (int, error) {
	n, err := DeleteDicomFilesBun(s.bun, ids)
	if err == nil && n > 0 {
		_ = s.LogAction("PRUNE_DICOM_FILES", fmt.Sprintf("removed: %d", n))
	}
	return n, err
}

// CountDicomFiles returns the catalog size.
func (s *MySQLStore) CountDicomFiles() (int, error) {
	return CountDicomFilesBun(s.bun)
}

// CountDicomFilesByModality returns catalog sizes grouped by modality.
func (s *MySQLStore) CountDicomFilesByModality() (map[string]int, error) {
	return CountDicomFilesByModalityBun(s.bun)
}

// UpsertArticle stores an article with its authors and MeSH terms.
func (s *MySQLStore) UpsertArticle(a model.Article, authors []model.Author, terms []model.MeshTerm) error {
	ctx := context.Background()
	return WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		if _, err := ExecRaw(ctx, tx, mysqlUpsertArticleSQL, articleUpsertArgs(a)...); err != nil {
			return MapDBError(err)
		}
		for _, au := range authors {
			if _, err := ExecRaw(ctx, tx,
				"INSERT IGNORE INTO article_authors (pmid, short_name, full_name) VALUES (?, ?, ?)",
				a.PMID, au.ShortName, au.FullName); err != nil {
				return MapDBError(err)
			}
		}
		for _, mt := range terms {
			if _, err := ExecRaw(ctx, tx,
				"INSERT IGNORE INTO article_terms (pmid, term) VALUES (?, ?)",
				a.PMID, mt.Term); err != nil {
				return MapDBError(err)
			}
		}
		return nil
	})
}

// GetAllArticles retrieves all stored articles.
func (s *MySQLStore) GetAllArticles() ([]model.Article, error) {
	return GetAllArticlesBun(s.bun)
}

// GetArticleByPMID retrieves a single article.
func (s *MySQLStore) GetArticleByPMID(pmid string) (*model.Article, error) {
	return GetArticleByPMIDBun(s.bun, pmid)
}

// GetAuthorsForArticle retrieves an article's authors.
func (s *MySQLStore) GetAuthorsForArticle(pmid string) ([]model.Author, error) {
	return GetAuthorsForArticleBun(s.bun, pmid)
}

// GetTermsForArticle retrieves an article's MeSH terms.
func (s *MySQLStore) GetTermsForArticle(pmid string) ([]model.MeshTerm, error) {
	return GetTermsForArticleBun(s.bun, pmid)
}

// GetAllAuthors retrieves every author row.
func (s *MySQLStore) GetAllAuthors() ([]model.Author, error) {
	return GetAllAuthorsBun(s.bun)
}

// GetAllMeshTerms retrieves every MeSH term row.
func (s *MySQLStore) GetAllMeshTerms() ([]model.MeshTerm, error) {
	return GetAllMeshTermsBun(s.bun)
}

// CountArticles returns the number of stored articles.
func (s *MySQLStore) CountArticles() (int, error) {
	return CountArticlesBun(s.bun)
}

// TopJournals returns the n most frequent journals.
func (s *MySQLStore) TopJournals(n int) ([]NameCount, error) {
	return TopJournalsBun(s.bun, n)
}

// TopMeshTerms returns the n most frequent MeSH terms.
func (s *MySQLStore) TopMeshTerms(n int) ([]NameCount, error) {
	return TopMeshTermsBun(s.bun, n)
}

// GetKnownHostKey retrieves the trusted public key for a given hostname.
func (s *MySQLStore) GetKnownHostKey(hostname string) (string, error) {
	return GetKnownHostKeyBun(s.bun, hostname)
}

// AddKnownHostKey adds a new trusted host key to the database.
// REPLACE INTO is the MySQL idiom; `key` needs backticks as a reserved word.
func (s *MySQLStore) AddKnownHostKey(hostname, key string) error {
	ctx := context.Background()
	_, err := ExecRaw(ctx, s.bun,
		"REPLACE INTO known_hosts (hostname, `key`) VALUES (?, ?)", hostname, key)
	if err == nil {
		_ = s.LogAction("TRUST_HOST", fmt.Sprintf("hostname: %s", hostname))
	}
	return err
}

// GetAllAuditLogEntries retrieves all entries from the audit log, most recent first.
func (s *MySQLStore) GetAllAuditLogEntries() ([]model.AuditLogEntry, error) {
	return GetAllAuditLogEntriesBun(s.bun)
}

// LogAction records an audit trail event.
func (s *MySQLStore) LogAction(action string, details string) error {
	return LogActionBun(s.bun, action, details)
}

// ExportDataForBackup retrieves all data from the database for a backup.
func (s *MySQLStore) ExportDataForBackup() (*model.BackupData, error) {
	return ExportDataForBackupBun(s.bun)
}

// ImportDataFromBackup restores the database from a backup data structure.
func (s *MySQLStore) ImportDataFromBackup(backup *model.BackupData) error {
	return ImportDataFromBackupBun(s.bun, backup)
}

// IntegrateDataFromBackup restores data from a backup in a non-destructive way.
func (s *MySQLStore) IntegrateDataFromBackup(backup *model.BackupData) error {
	return IntegrateDataFromBackupBun(s.bun, backup)
}

// BunDB exposes the underlying Bun handle for advanced callers.
func (s *MySQLStore) BunDB() *bun.DB {
	return s.bun
}
