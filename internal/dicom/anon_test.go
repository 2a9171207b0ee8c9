// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

package dicom

import (
	"strings"
	"testing"

	godicom "github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

var tagInstitutionName = tag.Tag{Group: 0x0008, Element: 0x0080}

func mustElement(t *testing.T, tg tag.Tag, value interface{}) *godicom.Element {
	t.Helper()
	el, err := godicom.NewElement(tg, value)
	if err != nil {
		t.Fatalf("NewElement(%v): %v", tg, err)
	}
	return el
}

// sampleFile builds an in-memory CT header with a known identity:
// serial 7001, study 2024-01-02 15:30 and a study UID summing to 0x2AC7.
func sampleFile(t *testing.T) *File {
	t.Helper()
	ds := godicom.Dataset{Elements: []*godicom.Element{
		mustElement(t, tag.MediaStorageSOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.2"}),
		mustElement(t, tag.MediaStorageSOPInstanceUID, []string{"1.2.3.400.17"}),
		mustElement(t, tag.TransferSyntaxUID, []string{"1.2.840.10008.1.2.1"}),
		mustElement(t, tag.ImageType, []string{"ORIGINAL", "PRIMARY", "AXIAL"}),
		mustElement(t, tag.InstanceCreationDate, []string{"20240102"}),
		mustElement(t, tag.StudyDate, []string{"20240102"}),
		mustElement(t, tag.SeriesDate, []string{"20240102"}),
		mustElement(t, tag.StudyTime, []string{"153045"}),
		mustElement(t, tag.AccessionNumber, []string{"ACC9000"}),
		mustElement(t, tag.Modality, []string{"CT"}),
		mustElement(t, tag.StationName, []string{"CTSCANNER1"}),
		mustElement(t, tagInstitutionName, []string{"General Hospital"}),
		mustElement(t, tag.PatientName, []string{"DOE^JANE"}),
		mustElement(t, tag.PatientID, []string{"HOSP12345"}),
		mustElement(t, tag.PatientBirthDate, []string{"19701114"}),
		mustElement(t, tag.DeviceSerialNumber, []string{"7001"}),
		mustElement(t, tag.StudyInstanceUID, []string{"1.2.840.10008.100"}),
		mustElement(t, tag.SeriesInstanceUID, []string{"1.2.3.400"}),
		mustElement(t, tag.StudyID, []string{"ST01"}),
		mustElement(t, tag.InstanceNumber, []string{"17"}),
	}}
	return &File{Path: "sample.dcm", Dataset: ds}
}

const samplePseudonym = "3FAD084AF25A" // hex(70012401021530)

func TestAnonymizeRewritesIdentity(t *testing.T) {
	f := sampleFile(t)
	id, err := Anonymize(f, "WORKBENCH")
	if err != nil {
		t.Fatalf("Anonymize failed: %v", err)
	}

	if id.PatientID != samplePseudonym {
		t.Errorf("pseudonym = %q, want %q", id.PatientID, samplePseudonym)
	}
	if id.StudyKey != "2AC7" {
		t.Errorf("study key = %q, want 2AC7", id.StudyKey)
	}
	if id.StudyDate != "20240101" {
		t.Errorf("study date = %q, want 20240101", id.StudyDate)
	}
	if id.BirthDate != "19700101" {
		t.Errorf("birth date = %q, want 19700101", id.BirthDate)
	}
	if id.Station != "WORKBENCH" {
		t.Errorf("station = %q, want WORKBENCH", id.Station)
	}

	checks := map[string]struct {
		t    tag.Tag
		want string
	}{
		"PatientID":            {tag.PatientID, samplePseudonym},
		"PatientName":          {tag.PatientName, samplePseudonym},
		"PatientBirthDate":     {tag.PatientBirthDate, "19700101"},
		"StudyDate":            {tag.StudyDate, "20240101"},
		"SeriesDate":           {tag.SeriesDate, "20240101"},
		"InstanceCreationDate": {tag.InstanceCreationDate, "20240101"},
		"AccessionNumber":      {tag.AccessionNumber, "2AC7"},
		"StudyID":              {tag.StudyID, "2AC7"},
		"StationName":          {tag.StationName, "WORKBENCH"},
	}
	for name, c := range checks {
		got, ok := f.elementString(c.t)
		if !ok {
			t.Errorf("%s missing after anonymization", name)
			continue
		}
		if got != c.want {
			t.Errorf("%s = %q, want %q", name, got, c.want)
		}
	}

	if _, ok := f.elementString(tagInstitutionName); ok {
		t.Error("InstitutionName survived anonymization")
	}
	if _, ok := f.elementString(tag.AcquisitionDate); ok {
		t.Error("AcquisitionDate appeared although the file never had one")
	}
	if got, _ := f.elementString(tag.SeriesInstanceUID); got != "1.2.3.400" {
		t.Errorf("SeriesInstanceUID changed to %q", got)
	}
}

func TestAnonymizeIsDeterministic(t *testing.T) {
	a, err := Anonymize(sampleFile(t), "WORKBENCH")
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	b, err := Anonymize(sampleFile(t), "WORKBENCH")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if a != b {
		t.Errorf("identities differ: %+v vs %+v", a, b)
	}
}

func TestAnonymizeRequiresStudyElements(t *testing.T) {
	for _, missing := range []struct {
		name string
		t    tag.Tag
	}{
		{"StudyDate", tag.StudyDate},
		{"StudyTime", tag.StudyTime},
		{"StudyInstanceUID", tag.StudyInstanceUID},
		{"DeviceSerialNumber", tag.DeviceSerialNumber},
	} {
		f := sampleFile(t)
		f.removeTags([]tag.Tag{missing.t})
		if _, err := Anonymize(f, "WORKBENCH"); err == nil {
			t.Errorf("no error for file without %s", missing.name)
		} else if !strings.Contains(err.Error(), missing.name) {
			t.Errorf("error for missing %s does not name it: %v", missing.name, err)
		}
	}
}

func TestAnonymizeRejectsNonNumericSerial(t *testing.T) {
	f := sampleFile(t)
	if _, err := f.setString(tag.DeviceSerialNumber, "SN-77"); err != nil {
		t.Fatalf("setString: %v", err)
	}
	if _, err := Anonymize(f, "WORKBENCH"); err == nil {
		t.Error("non-numeric DeviceSerialNumber accepted")
	}
}

func TestAnonymizeSkipsAbsentBirthDate(t *testing.T) {
	f := sampleFile(t)
	f.removeTags([]tag.Tag{tag.PatientBirthDate})
	id, err := Anonymize(f, "WORKBENCH")
	if err != nil {
		t.Fatalf("Anonymize failed: %v", err)
	}
	if id.BirthDate != "" {
		t.Errorf("birth date = %q for a file without one", id.BirthDate)
	}
	if _, ok := f.elementString(tag.PatientBirthDate); ok {
		t.Error("PatientBirthDate appeared although the file never had one")
	}
}

func TestPseudonym(t *testing.T) {
	tests := []struct {
		serial, date, time string
		want               string
		wantErr            bool
	}{
		{"7001", "20240102", "153045", samplePseudonym, false},
		{"1", "02", "0730", "29EA", false},
		{"SN-77", "20240102", "153045", "", true},
		{"7001", "20240102", "15:30", "", true},
	}
	for _, tt := range tests {
		got, err := pseudonym(tt.serial, tt.date, tt.time)
		if tt.wantErr {
			if err == nil {
				t.Errorf("pseudonym(%q,%q,%q) accepted", tt.serial, tt.date, tt.time)
			}
			continue
		}
		if err != nil {
			t.Errorf("pseudonym(%q,%q,%q): %v", tt.serial, tt.date, tt.time, err)
			continue
		}
		if got != tt.want {
			t.Errorf("pseudonym(%q,%q,%q) = %q, want %q", tt.serial, tt.date, tt.time, got, tt.want)
		}
	}
}

func TestStudyKey(t *testing.T) {
	tests := []struct {
		uid     string
		want    string
		wantErr bool
	}{
		{"1.2.840.10008.100", "2AC7", false},
		{"900", "384", false},
		{"1.2.3", "6", false},
		{"", "", true},
		{"1.ABC", "", true},
	}
	for _, tt := range tests {
		got, err := studyKey(tt.uid)
		if tt.wantErr {
			if err == nil {
				t.Errorf("studyKey(%q) accepted", tt.uid)
			}
			continue
		}
		if err != nil {
			t.Errorf("studyKey(%q): %v", tt.uid, err)
			continue
		}
		if got != tt.want {
			t.Errorf("studyKey(%q) = %q, want %q", tt.uid, got, tt.want)
		}
	}
}

func TestFlattenDate(t *testing.T) {
	tests := []struct{ in, want string }{
		{"20240102", "20240101"},
		{"19701114", "19700101"},
		{"1970", "0101"},
		{"", "0101"},
	}
	for _, tt := range tests {
		if got := flattenDate(tt.in); got != tt.want {
			t.Errorf("flattenDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInfoExtraction(t *testing.T) {
	info := sampleFile(t).Info()

	if info.ImageType != "AXIAL" {
		t.Errorf("ImageType = %q, want AXIAL", info.ImageType)
	}
	if info.Modality != "CT" {
		t.Errorf("Modality = %q, want CT", info.Modality)
	}
	if info.PatientName != "DOE^JANE" {
		t.Errorf("PatientName = %q", info.PatientName)
	}
	if info.InstanceNumber != "17" {
		t.Errorf("InstanceNumber = %q, want 17", info.InstanceNumber)
	}
	if info.AcquisitionDate != UnknownValue {
		t.Errorf("AcquisitionDate = %q, want %q", info.AcquisitionDate, UnknownValue)
	}
	if info.ContentDate != UnknownValue {
		t.Errorf("ContentDate = %q, want %q", info.ContentDate, UnknownValue)
	}
}

func TestImageTypeFallsBackOnShortValues(t *testing.T) {
	f := sampleFile(t)
	if _, err := f.setString(tag.ImageType, "ORIGINAL"); err != nil {
		t.Fatalf("setString: %v", err)
	}
	if got := f.Info().ImageType; got != UnknownValue {
		t.Errorf("ImageType = %q, want %q", got, UnknownValue)
	}
}

func TestOutputPath(t *testing.T) {
	f := sampleFile(t)
	if _, err := Anonymize(f, "WORKBENCH"); err != nil {
		t.Fatalf("Anonymize failed: %v", err)
	}
	got, err := f.OutputPath()
	if err != nil {
		t.Fatalf("OutputPath: %v", err)
	}
	want := samplePseudonym + "/2AC7/1.2.3.400_CT/AXIAL_00017.dcm"
	if got != want {
		t.Errorf("OutputPath = %q, want %q", got, want)
	}
}

func TestOutputPathFallbacks(t *testing.T) {
	ds := godicom.Dataset{Elements: []*godicom.Element{
		mustElement(t, tag.PatientID, []string{"X"}),
		mustElement(t, tag.SeriesInstanceUID, []string{"1.2"}),
		mustElement(t, tag.Modality, []string{"MR"}),
	}}
	f := &File{Path: "bare.dcm", Dataset: ds}
	got, err := f.OutputPath()
	if err != nil {
		t.Fatalf("OutputPath: %v", err)
	}
	if want := "X/12345/1.2_MR/UNK_00000.dcm"; got != want {
		t.Errorf("OutputPath = %q, want %q", got, want)
	}
}

func TestOutputPathRequiresPatientID(t *testing.T) {
	f := &File{Dataset: godicom.Dataset{Elements: []*godicom.Element{
		mustElement(t, tag.Modality, []string{"MR"}),
	}}}
	if _, err := f.OutputPath(); err == nil {
		t.Error("OutputPath succeeded without PatientID")
	}
}
