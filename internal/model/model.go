// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

// package model defines the core data structures shared across Gobro.
package model // import "github.com/bnrobert/gobro/internal/model"

import "fmt"

// DicomFile is one catalog entry: a DICOM file on disk plus the attributes
// extracted from its header. Attribute values that were absent in the file
// are stored as "UNK".
type DicomFile struct {
	ID          int    `json:"id"`
	Path        string `json:"path"`
	SizeBytes   int64  `json:"size_bytes"`
	ContentHash string `json:"content_hash"`

	ImageType            string `json:"image_type"`
	InstanceCreationDate string `json:"instance_creation_date"`
	StudyDate            string `json:"study_date"`
	SeriesDate           string `json:"series_date"`
	AcquisitionDate      string `json:"acquisition_date"`
	ContentDate          string `json:"content_date"`
	AccessionNumber      string `json:"accession_number"`
	Modality             string `json:"modality"`
	StationName          string `json:"station_name"`
	PatientName          string `json:"patient_name"`
	PatientID            string `json:"patient_id"`
	PatientBirthDate     string `json:"patient_birth_date"`
	SeriesInstanceUID    string `json:"series_instance_uid"`
	StudyID              string `json:"study_id"`
	InstanceNumber       string `json:"instance_number"`

	IndexedAt string `json:"indexed_at"`
}

// String returns a compact patient/modality/path representation.
func (f DicomFile) String() string {
	return fmt.Sprintf("%s [%s] %s", f.PatientID, f.Modality, f.Path)
}

// Article is one bibliographic record imported from a MEDLINE export.
type Article struct {
	PMID          string `json:"pmid"`
	Title         string `json:"title"`
	JournalAbbrev string `json:"journal_abbrev"`
	Journal       string `json:"journal"`
	Volume        string `json:"volume"`
	Issue         string `json:"issue"`
	PubDate       string `json:"pub_date"`
	Source        string `json:"source"`
	Abstract      string `json:"abstract"`
}

// String returns the PMID and title.
func (a Article) String() string {
	return fmt.Sprintf("%s: %s", a.PMID, a.Title)
}

// Author links an article to one of its authors. ShortName is the family
// name part of the full name (the text before the first comma).
type Author struct {
	ID        int    `json:"id"`
	PMID      string `json:"pmid"`
	ShortName string `json:"short_name"`
	FullName  string `json:"full_name"`
}

// MeshTerm links an article to one of its MeSH keywords.
type MeshTerm struct {
	ID   int    `json:"id"`
	PMID string `json:"pmid"`
	Term string `json:"term"`
}

// AuditLogEntry is one row of the audit trail.
type AuditLogEntry struct {
	ID        int    `json:"id"`
	Timestamp string `json:"timestamp"`
	Username  string `json:"username"`
	Action    string `json:"action"`
	Details   string `json:"details"`
}

// KnownHost represents a trusted host's public key for SFTP pushes.
type KnownHost struct {
	Hostname string `json:"hostname"`
	Key      string `json:"key"`
}
