// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

// Package dicom reads, inspects and anonymizes DICOM files. Header
// attributes surface as plain strings. Attributes absent from a file read as
// UnknownValue so callers never branch on missing elements.
package dicom // import "github.com/bnrobert/gobro/internal/dicom"

import (
	"bytes"
	"fmt"
	"path/filepath"

	godicom "github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/bnrobert/gobro/internal/fsutil"
)

// File is a parsed DICOM file.
type File struct {
	Path    string
	Dataset godicom.Dataset
}

// Info holds the header attributes Gobro catalogs per file.
type Info struct {
	ImageType            string
	InstanceCreationDate string
	StudyDate            string
	SeriesDate           string
	AcquisitionDate      string
	ContentDate          string
	AccessionNumber      string
	Modality             string
	StationName          string
	PatientName          string
	PatientID            string
	PatientBirthDate     string
	SeriesInstanceUID    string
	StudyID              string
	InstanceNumber       string
}

// Open parses the DICOM file at path. The path must point to a readable and
// writable regular file carrying a Modality element; everything else is
// rejected up front so every caller fails the same way.
func Open(path string) (*File, error) {
	return open(path)
}

// OpenHeader parses only the header of the file at path, skipping pixel
// data. Cheaper for catalog scans. Files opened this way must not be saved.
func OpenHeader(path string) (*File, error) {
	return open(path, godicom.SkipPixelData())
}

func open(path string, opts ...godicom.ParseOption) (*File, error) {
	if !fsutil.CheckFile(path) {
		return nil, fmt.Errorf("unsupported file: %s", path)
	}
	ds, err := godicom.ParseFile(path, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	f := &File{Path: path, Dataset: ds}
	if _, ok := f.elementString(tag.Modality); !ok {
		return nil, fmt.Errorf("%s: no Modality element", path)
	}
	return f, nil
}

// Info extracts the catalog attributes from the header. ImageType keeps only
// its third component, the vendor image kind.
func (f *File) Info() Info {
	return Info{
		ImageType:            f.imageType(),
		InstanceCreationDate: f.attribute(tag.InstanceCreationDate),
		StudyDate:            f.attribute(tag.StudyDate),
		SeriesDate:           f.attribute(tag.SeriesDate),
		AcquisitionDate:      f.attribute(tag.AcquisitionDate),
		ContentDate:          f.attribute(tag.ContentDate),
		AccessionNumber:      f.attribute(tag.AccessionNumber),
		Modality:             f.attribute(tag.Modality),
		StationName:          f.attribute(tag.StationName),
		PatientName:          f.attribute(tag.PatientName),
		PatientID:            f.attribute(tag.PatientID),
		PatientBirthDate:     f.attribute(tag.PatientBirthDate),
		SeriesInstanceUID:    f.attribute(tag.SeriesInstanceUID),
		StudyID:              f.attribute(tag.StudyID),
		InstanceNumber:       f.attribute(tag.InstanceNumber),
	}
}

func (f *File) imageType() string {
	vals, ok := f.elementStrings(tag.ImageType)
	if !ok || len(vals) <= 2 {
		return UnknownValue
	}
	return vals[2]
}

// Save writes the dataset to path atomically, creating parent directories as
// needed. VR verification is skipped so slightly out-of-spec values seen in
// the wild survive a rewrite.
func (f *File) Save(path string) error {
	var buf bytes.Buffer
	if err := godicom.Write(&buf, f.Dataset, godicom.SkipVRVerification()); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := fsutil.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return fsutil.WriteAtomic(path, buf.Bytes(), 0o644)
}
