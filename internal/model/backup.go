// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.
package model

// BackupData is a container for all data to be exported for a backup.
// It holds slices of all the core models in Gobro.
type BackupData struct {
	// SchemaVersion helps in handling migrations during restore.
	SchemaVersion int `json:"schema_version"`

	// Data from each table.
	DicomFiles      []DicomFile     `json:"dicom_files"`
	Articles        []Article       `json:"articles"`
	Authors         []Author        `json:"authors"`
	MeshTerms       []MeshTerm      `json:"mesh_terms"`
	KnownHosts      []KnownHost     `json:"known_hosts"`
	AuditLogEntries []AuditLogEntry `json:"audit_log_entries"`
}
