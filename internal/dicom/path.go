// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

package dicom

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom/pkg/tag"
)

// OutputPath returns the relative path an anonymized file is stored under:
//
//	PID/ACCESSION/SERIES_MODALITY/TYPE_NNNNN.dcm
//
// where ACCESSION and SERIES are the last 16 characters of AccessionNumber
// and SeriesInstanceUID, TYPE is the third ImageType component and NNNNN the
// zero-padded InstanceNumber. It reads the rewritten header, so it must be
// called after Anonymize.
func (f *File) OutputPath() (string, error) {
	pid, ok := f.elementString(tag.PatientID)
	if !ok {
		return "", fmt.Errorf("%s: missing PatientID", f.Path)
	}
	seriesUID, ok := f.elementString(tag.SeriesInstanceUID)
	if !ok {
		return "", fmt.Errorf("%s: missing SeriesInstanceUID", f.Path)
	}
	modality, ok := f.elementString(tag.Modality)
	if !ok {
		return "", fmt.Errorf("%s: missing Modality", f.Path)
	}

	accession := "12345"
	if v, ok := f.elementString(tag.AccessionNumber); ok && v != "" {
		accession = v
	}
	instance := 0
	if v, ok := f.elementString(tag.InstanceNumber); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			instance = n
		}
	}

	series := fmt.Sprintf("%s_%s", lastN(seriesUID, 16), modality)
	name := fmt.Sprintf("%s_%05d.dcm", f.imageType(), instance)
	return filepath.Join(pid, lastN(accession, 16), series, name), nil
}
