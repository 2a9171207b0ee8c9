package db

import (
	"context"
	"database/sql"
	"fmt"
	"os/user"
	"strings"
	"time"

	"github.com/bnrobert/gobro/internal/model"
	"github.com/uptrace/bun"
)

// DicomFileModel maps the `dicom_files` table for Bun queries.
type DicomFileModel struct {
	bun.BaseModel `bun:"table:dicom_files"`
	ID            int    `bun:"id,pk,autoincrement"`
	Path          string `bun:"path"`
	SizeBytes     int64  `bun:"size_bytes"`
	ContentHash   string `bun:"content_hash"`

	ImageType            string `bun:"image_type"`
	InstanceCreationDate string `bun:"instance_creation_date"`
	StudyDate            string `bun:"study_date"`
	SeriesDate           string `bun:"series_date"`
	AcquisitionDate      string `bun:"acquisition_date"`
	ContentDate          string `bun:"content_date"`
	AccessionNumber      string `bun:"accession_number"`
	Modality             string `bun:"modality"`
	StationName          string `bun:"station_name"`
	PatientName          string `bun:"patient_name"`
	PatientID            string `bun:"patient_id"`
	PatientBirthDate     string `bun:"patient_birth_date"`
	SeriesInstanceUID    string `bun:"series_instance_uid"`
	StudyID              string `bun:"study_id"`
	InstanceNumber       string `bun:"instance_number"`

	IndexedAt string `bun:"indexed_at"`
}

// ArticleModel maps the `articles` table.
type ArticleModel struct {
	bun.BaseModel `bun:"table:articles"`
	PMID          string         `bun:"pmid,pk"`
	Title         sql.NullString `bun:"title"`
	JournalAbbrev sql.NullString `bun:"journal_abbrev"`
	Journal       sql.NullString `bun:"journal"`
	Volume        sql.NullString `bun:"volume"`
	Issue         sql.NullString `bun:"issue"`
	PubDate       sql.NullString `bun:"pub_date"`
	Source        sql.NullString `bun:"source"`
	Abstract      sql.NullString `bun:"abstract"`
}

// AuthorModel maps the `article_authors` table.
type AuthorModel struct {
	bun.BaseModel `bun:"table:article_authors"`
	ID            int    `bun:"id,pk,autoincrement"`
	PMID          string `bun:"pmid"`
	ShortName     string `bun:"short_name"`
	FullName      string `bun:"full_name"`
}

// MeshTermModel maps the `article_terms` table.
type MeshTermModel struct {
	bun.BaseModel `bun:"table:article_terms"`
	ID            int    `bun:"id,pk,autoincrement"`
	PMID          string `bun:"pmid"`
	Term          string `bun:"term"`
}

// AuditLogModel maps the audit_log table.
type AuditLogModel struct {
	bun.BaseModel `bun:"table:audit_log"`
	ID            int    `bun:"id,pk,autoincrement"`
	Timestamp     string `bun:"timestamp"`
	Username      string `bun:"username"`
	Action        string `bun:"action"`
	Details       string `bun:"details"`
}

// KnownHostModel maps known_hosts.
type KnownHostModel struct {
	bun.BaseModel `bun:"table:known_hosts"`
	Hostname      string `bun:"hostname,pk"`
	Key           string `bun:"key"`
}

// --- Mapping helpers (centralized conversions) ---

func dicomFileModelToModel(m DicomFileModel) model.DicomFile {
	return model.DicomFile{
		ID:                   m.ID,
		Path:                 m.Path,
		SizeBytes:            m.SizeBytes,
		ContentHash:          m.ContentHash,
		ImageType:            m.ImageType,
		InstanceCreationDate: m.InstanceCreationDate,
		StudyDate:            m.StudyDate,
		SeriesDate:           m.SeriesDate,
		AcquisitionDate:      m.AcquisitionDate,
		ContentDate:          m.ContentDate,
		AccessionNumber:      m.AccessionNumber,
		Modality:             m.Modality,
		StationName:          m.StationName,
		PatientName:          m.PatientName,
		PatientID:            m.PatientID,
		PatientBirthDate:     m.PatientBirthDate,
		SeriesInstanceUID:    m.SeriesInstanceUID,
		StudyID:              m.StudyID,
		InstanceNumber:       m.InstanceNumber,
		IndexedAt:            m.IndexedAt,
	}
}

func dicomFileModelFromModel(f model.DicomFile) DicomFileModel {
	return DicomFileModel{
		ID:                   f.ID,
		Path:                 f.Path,
		SizeBytes:            f.SizeBytes,
		ContentHash:          f.ContentHash,
		ImageType:            f.ImageType,
		InstanceCreationDate: f.InstanceCreationDate,
		StudyDate:            f.StudyDate,
		SeriesDate:           f.SeriesDate,
		AcquisitionDate:      f.AcquisitionDate,
		ContentDate:          f.ContentDate,
		AccessionNumber:      f.AccessionNumber,
		Modality:             f.Modality,
		StationName:          f.StationName,
		PatientName:          f.PatientName,
		PatientID:            f.PatientID,
		PatientBirthDate:     f.PatientBirthDate,
		SeriesInstanceUID:    f.SeriesInstanceUID,
		StudyID:              f.StudyID,
		InstanceNumber:       f.InstanceNumber,
		IndexedAt:            f.IndexedAt,
	}
}

func articleModelToModel(m ArticleModel) model.Article {
	a := model.Article{PMID: m.PMID}
	if m.Title.Valid {
		a.Title = m.Title.String
	}
	if m.JournalAbbrev.Valid {
		a.JournalAbbrev = m.JournalAbbrev.String
	}
	if m.Journal.Valid {
		a.Journal = m.Journal.String
	}
	if m.Volume.Valid {
		a.Volume = m.Volume.String
	}
	if m.Issue.Valid {
		a.Issue = m.Issue.String
	}
	if m.PubDate.Valid {
		a.PubDate = m.PubDate.String
	}
	if m.Source.Valid {
		a.Source = m.Source.String
	}
	if m.Abstract.Valid {
		a.Abstract = m.Abstract.String
	}
	return a
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// dicomFileUpsertArgs returns the value bindings for the catalog upsert
// statements. The order matches the column list in the dialect stores.
func dicomFileUpsertArgs(f model.DicomFile) []interface{} {
	return []interface{}{
		f.Path, f.SizeBytes, f.ContentHash,
		f.ImageType, f.InstanceCreationDate, f.StudyDate, f.SeriesDate,
		f.AcquisitionDate, f.ContentDate, f.AccessionNumber, f.Modality,
		f.StationName, f.PatientName, f.PatientID, f.PatientBirthDate,
		f.SeriesInstanceUID, f.StudyID, f.InstanceNumber, f.IndexedAt,
	}
}

// articleUpsertArgs returns the value bindings for the article upsert
// statements. Empty strings are stored as NULL.
func articleUpsertArgs(a model.Article) []interface{} {
	return []interface{}{
		a.PMID, nullable(a.Title), nullable(a.JournalAbbrev), nullable(a.Journal),
		nullable(a.Volume), nullable(a.Issue), nullable(a.PubDate),
		nullable(a.Source), nullable(a.Abstract),
	}
}

// selectDicomFileID looks up the catalog row ID for a path after an upsert.
func selectDicomFileID(bdb *bun.DB, path string) (int, error) {
	ctx := context.Background()
	var id int
	if err := QueryRawInto(ctx, bdb, &id, "SELECT id FROM dicom_files WHERE path = ?", path); err != nil {
		return 0, err
	}
	return id, nil
}

// --- DICOM catalog helpers ---

// GetAllDicomFilesBun returns the whole catalog ordered by patient, study and path.
func GetAllDicomFilesBun(bdb *bun.DB) ([]model.DicomFile, error) {
	ctx := context.Background()
	var rows []DicomFileModel
	err := bdb.NewSelect().Model(&rows).OrderExpr("patient_id, study_date, path").Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.DicomFile, 0, len(rows))
	for _, r := range rows {
		out = append(out, dicomFileModelToModel(r))
	}
	return out, nil
}

// GetDicomFileByPathBun returns one catalog row by path, or nil when absent.
func GetDicomFileByPathBun(bdb *bun.DB, path string) (*model.DicomFile, error) {
	ctx := context.Background()
	var row DicomFileModel
	err := bdb.NewSelect().Model(&row).Where("path = ?", path).Limit(1).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	m := dicomFileModelToModel(row)
	return &m, nil
}

// GetDicomFilesByModalityBun returns catalog rows with the given modality.
func GetDicomFilesByModalityBun(bdb *bun.DB, modality string) ([]model.DicomFile, error) {
	ctx := context.Background()
	var rows []DicomFileModel
	err := bdb.NewSelect().Model(&rows).Where("modality = ?", modality).OrderExpr("patient_id, study_date, path").Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.DicomFile, 0, len(rows))
	for _, r := range rows {
		out = append(out, dicomFileModelToModel(r))
	}
	return out, nil
}

// DeleteDicomFilesBun removes catalog rows by ID and reports how many were deleted.
func DeleteDicomFilesBun(bdb *bun.DB, ids []int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	ctx := context.Background()
	res, err := bdb.NewDelete().Model((*DicomFileModel)(nil)).Where("id IN (?)", bun.In(ids)).Exec(ctx)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}

// CountDicomFilesBun returns the catalog size.
func CountDicomFilesBun(bdb *bun.DB) (int, error) {
	ctx := context.Background()
	return bdb.NewSelect().Model((*DicomFileModel)(nil)).Count(ctx)
}

// SearchDicomFilesBun performs a token-based search in SQL. Each token must
// match at least one of the searchable columns.
func SearchDicomFilesBun(bdb *bun.DB, q string) ([]model.DicomFile, error) {
	ctx := context.Background()
	tokens := TokenizeSearchQuery(q)
	var rows []DicomFileModel
	qb := bdb.NewSelect().Model(&rows)
	if len(tokens) > 0 {
		// Build WHERE clause with AND of ORs: for each token, require it matches one of the columns.
		for _, tok := range tokens {
			like := "%" + tok + "%"
			// Use LOWER(...) for case-insensitive matching across engines
			qb = qb.Where("(LOWER(patient_id) LIKE ? OR LOWER(patient_name) LIKE ? OR LOWER(modality) LIKE ? OR LOWER(station_name) LIKE ? OR LOWER(path) LIKE ?)",
				like, like, like, like, like)
		}
	}
	if err := qb.OrderExpr("patient_id, study_date, path").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.DicomFile, 0, len(rows))
	for _, r := range rows {
		out = append(out, dicomFileModelToModel(r))
	}
	return out, nil
}

// CountDicomFilesByModalityBun groups the catalog by modality.
func CountDicomFilesByModalityBun(bdb *bun.DB) (map[string]int, error) {
	ctx := context.Background()
	var rows []NameCount
	err := QueryRawInto(ctx, bdb, &rows, "SELECT modality AS name, COUNT(*) AS count FROM dicom_files GROUP BY modality")
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Name] = r.Count
	}
	return out, nil
}

// --- Bibliography helpers ---

// GetAllArticlesBun returns all articles ordered by PMID.
func GetAllArticlesBun(bdb *bun.DB) ([]model.Article, error) {
	ctx := context.Background()
	var rows []ArticleModel
	if err := bdb.NewSelect().Model(&rows).OrderExpr("pmid").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Article, 0, len(rows))
	for _, r := range rows {
		out = append(out, articleModelToModel(r))
	}
	return out, nil
}

// GetArticleByPMIDBun returns one article, or nil when absent.
func GetArticleByPMIDBun(bdb *bun.DB, pmid string) (*model.Article, error) {
	ctx := context.Background()
	var row ArticleModel
	err := bdb.NewSelect().Model(&row).Where("pmid = ?", pmid).Limit(1).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	a := articleModelToModel(row)
	return &a, nil
}

// GetAuthorsForArticleBun returns an article's authors in import order.
func GetAuthorsForArticleBun(bdb *bun.DB, pmid string) ([]model.Author, error) {
	ctx := context.Background()
	var rows []AuthorModel
	if err := bdb.NewSelect().Model(&rows).Where("pmid = ?", pmid).OrderExpr("id").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Author, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Author{ID: r.ID, PMID: r.PMID, ShortName: r.ShortName, FullName: r.FullName})
	}
	return out, nil
}

// GetTermsForArticleBun returns an article's MeSH terms in import order.
func GetTermsForArticleBun(bdb *bun.DB, pmid string) ([]model.MeshTerm, error) {
	ctx := context.Background()
	var rows []MeshTermModel
	if err := bdb.NewSelect().Model(&rows).Where("pmid = ?", pmid).OrderExpr("id").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.MeshTerm, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.MeshTerm{ID: r.ID, PMID: r.PMID, Term: r.Term})
	}
	return out, nil
}

// GetAllAuthorsBun returns every author row.
func GetAllAuthorsBun(bdb *bun.DB) ([]model.Author, error) {
	ctx := context.Background()
	var rows []AuthorModel
	if err := bdb.NewSelect().Model(&rows).OrderExpr("pmid, id").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Author, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Author{ID: r.ID, PMID: r.PMID, ShortName: r.ShortName, FullName: r.FullName})
	}
	return out, nil
}

// GetAllMeshTermsBun returns every MeSH term row.
func GetAllMeshTermsBun(bdb *bun.DB) ([]model.MeshTerm, error) {
	ctx := context.Background()
	var rows []MeshTermModel
	if err := bdb.NewSelect().Model(&rows).OrderExpr("pmid, id").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.MeshTerm, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.MeshTerm{ID: r.ID, PMID: r.PMID, Term: r.Term})
	}
	return out, nil
}

// CountArticlesBun returns the number of stored articles.
func CountArticlesBun(bdb *bun.DB) (int, error) {
	ctx := context.Background()
	return bdb.NewSelect().Model((*ArticleModel)(nil)).Count(ctx)
}

// TopJournalsBun returns the most frequent journals, busiest first.
func TopJournalsBun(bdb *bun.DB, n int) ([]NameCount, error) {
	ctx := context.Background()
	var rows []NameCount
	err := QueryRawInto(ctx, bdb, &rows,
		"SELECT journal AS name, COUNT(*) AS count FROM articles WHERE journal IS NOT NULL AND journal != '' GROUP BY journal ORDER BY count DESC, name LIMIT ?", n)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// TopMeshTermsBun returns the most frequent MeSH terms, busiest first.
func TopMeshTermsBun(bdb *bun.DB, n int) ([]NameCount, error) {
	ctx := context.Background()
	var rows []NameCount
	err := QueryRawInto(ctx, bdb, &rows,
		"SELECT term AS name, COUNT(*) AS count FROM article_terms GROUP BY term ORDER BY count DESC, name LIMIT ?", n)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// --- Known hosts / audit helpers ---

// GetKnownHostKeyBun returns the stored key for hostname, or "" when unknown.
func GetKnownHostKeyBun(bdb *bun.DB, hostname string) (string, error) {
	ctx := context.Background()
	var kh KnownHostModel
	err := bdb.NewSelect().Model(&kh).Where("hostname = ?", hostname).Limit(1).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return kh.Key, nil
}

// LogActionBun records an audit entry stamped with the OS user.
func LogActionBun(bdb *bun.DB, action string, details string) error {
	ctx := context.Background()
	curUser, err := user.Current()
	username := "unknown"
	if err == nil {
		if parts := strings.Split(curUser.Username, `\`); len(parts) > 1 {
			username = parts[1]
		} else {
			username = curUser.Username
		}
	}
	_, err = ExecRaw(ctx, bdb, "INSERT INTO audit_log (username, action, details) VALUES (?, ?, ?)", username, action, details)
	return MapDBError(err)
}

// GetAllAuditLogEntriesBun returns the audit trail, most recent first.
func GetAllAuditLogEntriesBun(bdb *bun.DB) ([]model.AuditLogEntry, error) {
	ctx := context.Background()
	var rows []AuditLogModel
	if err := bdb.NewSelect().Model(&rows).OrderExpr("timestamp DESC, id DESC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.AuditLogEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.AuditLogEntry{ID: r.ID, Timestamp: r.Timestamp, Username: r.Username, Action: r.Action, Details: r.Details})
	}
	return out, nil
}

// --- Backup helpers ---

// ExportDataForBackupBun exports all tables' data into a model.BackupData using a Bun transaction.
func ExportDataForBackupBun(bdb *bun.DB) (*model.BackupData, error) {
	ctx := context.Background()
	var backup *model.BackupData
	err := WithTx(ctx, bdb, func(ctx context.Context, tx bun.Tx) error {
		backup = &model.BackupData{SchemaVersion: 1}

		var dfs []DicomFileModel
		if err := tx.NewSelect().Model(&dfs).OrderExpr("id").Scan(ctx); err != nil {
			return err
		}
		for _, d := range dfs {
			backup.DicomFiles = append(backup.DicomFiles, dicomFileModelToModel(d))
		}

		var arts []ArticleModel
		if err := tx.NewSelect().Model(&arts).OrderExpr("pmid").Scan(ctx); err != nil {
			return err
		}
		for _, a := range arts {
			backup.Articles = append(backup.Articles, articleModelToModel(a))
		}

		var aus []AuthorModel
		if err := tx.NewSelect().Model(&aus).OrderExpr("id").Scan(ctx); err != nil {
			return err
		}
		for _, a := range aus {
			backup.Authors = append(backup.Authors, model.Author{ID: a.ID, PMID: a.PMID, ShortName: a.ShortName, FullName: a.FullName})
		}

		var mts []MeshTermModel
		if err := tx.NewSelect().Model(&mts).OrderExpr("id").Scan(ctx); err != nil {
			return err
		}
		for _, m := range mts {
			backup.MeshTerms = append(backup.MeshTerms, model.MeshTerm{ID: m.ID, PMID: m.PMID, Term: m.Term})
		}

		var khs []KnownHostModel
		if err := tx.NewSelect().Model(&khs).Scan(ctx); err != nil {
			return err
		}
		for _, k := range khs {
			backup.KnownHosts = append(backup.KnownHosts, model.KnownHost{Hostname: k.Hostname, Key: k.Key})
		}

		var als []AuditLogModel
		if err := tx.NewSelect().Model(&als).OrderExpr("id").Scan(ctx); err != nil {
			return err
		}
		for _, a := range als {
			backup.AuditLogEntries = append(backup.AuditLogEntries, model.AuditLogEntry{ID: a.ID, Timestamp: a.Timestamp, Username: a.Username, Action: a.Action, Details: a.Details})
		}

		return nil
	})
	return backup, err
}

// ImportDataFromBackupBun performs a full wipe-and-replace using a Bun transaction.
func ImportDataFromBackupBun(bdb *bun.DB, backup *model.BackupData) error {
	ctx := context.Background()
	return WithTx(ctx, bdb, func(ctx context.Context, tx bun.Tx) error {
		// Wipe tables
		tables := []string{"article_terms", "article_authors", "articles", "dicom_files", "audit_log", "known_hosts"}
		for _, t := range tables {
			if _, err := ExecRaw(ctx, tx, fmt.Sprintf("DELETE FROM %s", t)); err != nil {
				return err
			}
		}

		for _, f := range backup.DicomFiles {
			m := dicomFileModelFromModel(f)
			if _, err := tx.NewInsert().Model(&m).Exec(ctx); err != nil {
				return MapDBError(err)
			}
		}
		for _, a := range backup.Articles {
			if _, err := ExecRaw(ctx, tx,
				"INSERT INTO articles (pmid, title, journal_abbrev, journal, volume, issue, pub_date, source, abstract) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
				a.PMID, a.Title, a.JournalAbbrev, a.Journal, a.Volume, a.Issue, a.PubDate, a.Source, a.Abstract); err != nil {
				return MapDBError(err)
			}
		}
		for _, a := range backup.Authors {
			if _, err := ExecRaw(ctx, tx,
				"INSERT INTO article_authors (id, pmid, short_name, full_name) VALUES (?, ?, ?, ?)",
				a.ID, a.PMID, a.ShortName, a.FullName); err != nil {
				return MapDBError(err)
			}
		}
		for _, m := range backup.MeshTerms {
			if _, err := ExecRaw(ctx, tx,
				"INSERT INTO article_terms (id, pmid, term) VALUES (?, ?, ?)",
				m.ID, m.PMID, m.Term); err != nil {
				return MapDBError(err)
			}
		}
		for _, kh := range backup.KnownHosts {
			m := KnownHostModel{Hostname: kh.Hostname, Key: kh.Key}
			if _, err := tx.NewInsert().Model(&m).Exec(ctx); err != nil {
				return MapDBError(err)
			}
		}
		// AuditLog: convert RFC3339 timestamps to time.Time when possible so MySQL accepts them.
		for _, ale := range backup.AuditLogEntries {
			var ts interface{} = ale.Timestamp
			if ale.Timestamp != "" {
				if parsed, err := time.Parse(time.RFC3339, ale.Timestamp); err == nil {
					ts = parsed
				} else {
					// Fallback: convert 'T' separator to space and strip trailing 'Z' if present.
					s := ale.Timestamp
					s = strings.Replace(s, "T", " ", 1)
					s = strings.TrimSuffix(s, "Z")
					ts = s
				}
			}
			if _, err := ExecRaw(ctx, tx,
				"INSERT INTO audit_log (id, timestamp, username, action, details) VALUES (?, ?, ?, ?, ?)",
				ale.ID, ts, ale.Username, ale.Action, ale.Details); err != nil {
				return MapDBError(err)
			}
		}
		return nil
	})
}

// IntegrateDataFromBackupBun performs a non-destructive restore: existing rows
// win, missing rows are added. Audit history is never merged.
func IntegrateDataFromBackupBun(bdb *bun.DB, backup *model.BackupData) error {
	ctx := context.Background()
	return WithTx(ctx, bdb, func(ctx context.Context, tx bun.Tx) error {
		// All reads go through the transaction. With SQLite the pool may hold a
		// single connection, so a read on the DB handle would block forever.
		for _, f := range backup.DicomFiles {
			exists, err := tx.NewSelect().Model((*DicomFileModel)(nil)).Where("path = ?", f.Path).Exists(ctx)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			m := dicomFileModelFromModel(f)
			m.ID = 0
			if _, err := tx.NewInsert().Model(&m).Exec(ctx); err != nil {
				return MapDBError(err)
			}
		}
		for _, a := range backup.Articles {
			exists, err := tx.NewSelect().Model((*ArticleModel)(nil)).Where("pmid = ?", a.PMID).Exists(ctx)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			if _, err := ExecRaw(ctx, tx,
				"INSERT INTO articles (pmid, title, journal_abbrev, journal, volume, issue, pub_date, source, abstract) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
				a.PMID, a.Title, a.JournalAbbrev, a.Journal, a.Volume, a.Issue, a.PubDate, a.Source, a.Abstract); err != nil {
				return MapDBError(err)
			}
			for _, au := range backup.Authors {
				if au.PMID != a.PMID {
					continue
				}
				if _, err := ExecRaw(ctx, tx,
					"INSERT INTO article_authors (pmid, short_name, full_name) VALUES (?, ?, ?)",
					au.PMID, au.ShortName, au.FullName); err != nil {
					return MapDBError(err)
				}
			}
			for _, mt := range backup.MeshTerms {
				if mt.PMID != a.PMID {
					continue
				}
				if _, err := ExecRaw(ctx, tx,
					"INSERT INTO article_terms (pmid, term) VALUES (?, ?)",
					mt.PMID, mt.Term); err != nil {
					return MapDBError(err)
				}
			}
		}
		for _, kh := range backup.KnownHosts {
			exists, err := tx.NewSelect().Model((*KnownHostModel)(nil)).Where("hostname = ?", kh.Hostname).Exists(ctx)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			m := KnownHostModel{Hostname: kh.Hostname, Key: kh.Key}
			if _, err := tx.NewInsert().Model(&m).Exec(ctx); err != nil {
				return MapDBError(err)
			}
		}
		return nil
	})
}
