// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

package dicom

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/bnrobert/gobro/internal/fsutil"
)

// ErrAlreadyAnonymized marks files skipped because their name shows they are
// the output of a previous run.
var ErrAlreadyAnonymized = errors.New("file is already anonymized")

// AnonymizeSuffix is appended to the source file name when a single file is
// anonymized without an output directory.
const AnonymizeSuffix = "_anonymized"

// Identity holds the replacement values computed for one file during
// anonymization. The same input always yields the same Identity, so a study
// anonymized twice maps to the same pseudonym.
type Identity struct {
	PatientID string // uppercase hex pseudonym, replaces PatientID and PatientName
	StudyKey  string // uppercase hex sum of the StudyInstanceUID components
	StudyDate string // study date flattened to YYYY0101
	BirthDate string // flattened birth date, empty when the file has none
	Station   string // replacement StationName
}

// Anonymize rewrites the identifying attributes of f in place and returns
// the identity used. station overrides the default replacement station name,
// the uppercased local hostname. Files without StudyDate, StudyTime,
// StudyInstanceUID or a numeric DeviceSerialNumber are rejected before any
// element is touched. Only attributes present in the file are rewritten; the
// cleared tag set is removed outright.
func Anonymize(f *File, station string) (Identity, error) {
	id, err := identityFor(f, station)
	if err != nil {
		return Identity{}, err
	}

	key16 := lastN(id.StudyKey, 16)
	assign := []struct {
		t tag.Tag
		v string
	}{
		{tag.StationName, id.Station},
		{tag.InstanceCreationDate, id.StudyDate},
		{tag.StudyDate, id.StudyDate},
		{tag.SeriesDate, id.StudyDate},
		{tag.AcquisitionDate, id.StudyDate},
		{tag.ContentDate, id.StudyDate},
		{tag.AccessionNumber, key16},
		{tag.PatientName, id.PatientID},
		{tag.PatientID, id.PatientID},
		{tag.PatientBirthDate, id.BirthDate},
		{tag.StudyID, key16},
	}
	for _, a := range assign {
		if a.t == tag.PatientBirthDate && a.v == "" {
			continue
		}
		if _, err := f.setString(a.t, a.v); err != nil {
			return Identity{}, err
		}
	}
	f.removeTags(clearedTags)
	return id, nil
}

func identityFor(f *File, station string) (Identity, error) {
	studyDate, ok := f.elementString(tag.StudyDate)
	if !ok {
		return Identity{}, fmt.Errorf("%s: missing StudyDate", f.Path)
	}
	studyTime, ok := f.elementString(tag.StudyTime)
	if !ok {
		return Identity{}, fmt.Errorf("%s: missing StudyTime", f.Path)
	}
	studyUID, ok := f.elementString(tag.StudyInstanceUID)
	if !ok {
		return Identity{}, fmt.Errorf("%s: missing StudyInstanceUID", f.Path)
	}
	serial, ok := f.elementString(tag.DeviceSerialNumber)
	if !ok {
		return Identity{}, fmt.Errorf("%s: missing DeviceSerialNumber", f.Path)
	}

	pid, err := pseudonym(serial, studyDate, studyTime)
	if err != nil {
		return Identity{}, fmt.Errorf("%s: %w", f.Path, err)
	}
	key, err := studyKey(studyUID)
	if err != nil {
		return Identity{}, fmt.Errorf("%s: %w", f.Path, err)
	}

	if station == "" {
		host, err := os.Hostname()
		if err != nil {
			return Identity{}, fmt.Errorf("resolve station name: %w", err)
		}
		station = strings.ToUpper(host)
	}

	id := Identity{
		PatientID: pid,
		StudyKey:  key,
		StudyDate: flattenDate(studyDate),
		Station:   station,
	}
	if birth, ok := f.elementString(tag.PatientBirthDate); ok {
		id.BirthDate = flattenDate(birth)
	}
	return id, nil
}

// pseudonym builds the replacement patient ID: the digit string
// serial+date[2:]+time[:4] read as one arbitrary-precision decimal integer
// and rendered as uppercase hex.
func pseudonym(serial, studyDate, studyTime string) (string, error) {
	digits := serial + fromN(studyDate, 2) + firstN(studyTime, 4)
	n, ok := new(big.Int).SetString(digits, 10)
	if !ok || n.Sign() < 0 {
		return "", fmt.Errorf("device serial and study timestamp %q are not numeric", digits)
	}
	return strings.ToUpper(n.Text(16)), nil
}

// studyKey sums the dot-separated components of a StudyInstanceUID and
// renders the sum as uppercase hex. AccessionNumber and StudyID carry its
// last 16 characters after anonymization.
func studyKey(uid string) (string, error) {
	sum := new(big.Int)
	part := new(big.Int)
	found := false
	for _, c := range strings.Split(uid, ".") {
		if c == "" {
			continue
		}
		if _, ok := part.SetString(c, 10); !ok {
			return "", fmt.Errorf("study instance UID %q is not numeric", uid)
		}
		sum.Add(sum, part)
		found = true
	}
	if !found {
		return "", fmt.Errorf("study instance UID %q has no components", uid)
	}
	return strings.ToUpper(sum.Text(16)), nil
}

// flattenDate turns a DICOM DA value into the first day of its year,
// YYYYMMDD becoming YYYY0101.
func flattenDate(date string) string {
	if len(date) <= 4 {
		return "0101"
	}
	return date[:len(date)-4] + "0101"
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func fromN(s string, n int) string {
	if len(s) <= n {
		return ""
	}
	return s[n:]
}

// AnonymizeFile anonymizes the file at src. With outDir empty the result is
// written beside the source as <name>_anonymized.dcm; otherwise it lands
// under outDir following OutputPath. outDir must already exist. Returns the
// path written.
func AnonymizeFile(src, outDir, station string) (string, error) {
	if strings.Contains(filepath.Base(src), AnonymizeSuffix) {
		return "", fmt.Errorf("%s: %w", src, ErrAlreadyAnonymized)
	}
	if outDir != "" && !fsutil.CheckDir(outDir) {
		return "", fmt.Errorf("unsupported directory: %s", outDir)
	}

	f, err := Open(src)
	if err != nil {
		return "", err
	}
	if _, err := Anonymize(f, station); err != nil {
		return "", err
	}

	var dst string
	if outDir == "" {
		dir, name, ext := fsutil.SplitPath(src)
		if ext == "" {
			ext = ".dcm"
		}
		dst = filepath.Join(dir, strings.TrimSuffix(name, ext)+AnonymizeSuffix+ext)
	} else {
		rel, err := f.OutputPath()
		if err != nil {
			return "", err
		}
		dst = filepath.Join(outDir, rel)
	}
	if err := f.Save(dst); err != nil {
		return "", err
	}
	return dst, nil
}
