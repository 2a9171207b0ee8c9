// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

package dicom

import "github.com/suyashkumar/dicom/pkg/tag"

// UnknownValue is stored for header attributes absent from a file.
const UnknownValue = "UNK"

// clearedTags are the identifying attributes removed during anonymization:
// institution and physician names, request and procedure descriptions, the
// free-text patient fields and a few carrier sequences. Pinned numerically
// so a dictionary update cannot silently change what gets stripped.
var clearedTags = []tag.Tag{
	{Group: 0x0002, Element: 0x0013}, // ImplementationVersionName
	{Group: 0x0008, Element: 0x0054}, // RetrieveAETitle
	{Group: 0x0008, Element: 0x0080}, // InstitutionName
	{Group: 0x0008, Element: 0x0081}, // InstitutionAddress
	{Group: 0x0008, Element: 0x0090}, // ReferringPhysicianName
	{Group: 0x0008, Element: 0x0092}, // ReferringPhysicianAddress
	{Group: 0x0008, Element: 0x0094}, // ReferringPhysicianTelephoneNumbers
	{Group: 0x0008, Element: 0x1032}, // ProcedureCodeSequence
	{Group: 0x0008, Element: 0x1040}, // InstitutionalDepartmentName
	{Group: 0x0008, Element: 0x1048}, // PhysiciansOfRecord
	{Group: 0x0008, Element: 0x1050}, // PerformingPhysicianName
	{Group: 0x0008, Element: 0x1060}, // NameOfPhysiciansReadingStudy
	{Group: 0x0008, Element: 0x1070}, // OperatorsName
	{Group: 0x0008, Element: 0x1080}, // AdmittingDiagnosesDescription
	{Group: 0x0008, Element: 0x1111}, // ReferencedPerformedProcedureStepSequence
	{Group: 0x0010, Element: 0x1000}, // OtherPatientIDs
	{Group: 0x0010, Element: 0x1001}, // OtherPatientNames
	{Group: 0x0010, Element: 0x1090}, // MedicalRecordLocator
	{Group: 0x0010, Element: 0x2160}, // EthnicGroup
	{Group: 0x0010, Element: 0x2180}, // Occupation
	{Group: 0x0010, Element: 0x21B0}, // AdditionalPatientHistory
	{Group: 0x0010, Element: 0x4000}, // PatientComments
	{Group: 0x0032, Element: 0x1032}, // RequestingPhysician
	{Group: 0x0032, Element: 0x1033}, // RequestingService
	{Group: 0x0032, Element: 0x1060}, // RequestedProcedureDescription
	{Group: 0x0040, Element: 0x0006}, // ScheduledPerformingPhysicianName
	{Group: 0x0040, Element: 0x0241}, // PerformedStationAETitle
	{Group: 0x0040, Element: 0x0254}, // PerformedProcedureStepDescription
	{Group: 0x0040, Element: 0x0260}, // PerformedProtocolCodeSequence
	{Group: 0x0040, Element: 0x0275}, // RequestAttributesSequence
	{Group: 0x0040, Element: 0x1001}, // RequestedProcedureID
	{Group: 0x0040, Element: 0x2004}, // IssueDateOfImagingServiceRequest
	{Group: 0x0040, Element: 0xA730}, // ContentSequence
}
