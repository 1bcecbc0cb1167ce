package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// unmarshalEnum decodes a JSON string and rejects values outside the enum.
func unmarshalEnum[T ~string](data []byte, name string, valid func(T) bool) (T, error) {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return "", fmt.Errorf("%s must be string", name)
	}
	v := T(str)
	if !valid(v) {
		return "", fmt.Errorf("invalid %s: %q", name, str)
	}
	return v, nil
}

type InspectionType string

const (
	InspectionTypePrePour  InspectionType = "PRE_POUR"
	InspectionTypePostPour InspectionType = "POST_POUR"
	InspectionTypeFinal    InspectionType = "FINAL"
	InspectionTypeSpecial  InspectionType = "SPECIAL"
)

func (t InspectionType) IsValid() bool {
	switch t {
	case InspectionTypePrePour, InspectionTypePostPour, InspectionTypeFinal, InspectionTypeSpecial:
		return true
	}
	return false
}

func (t *InspectionType) UnmarshalJSON(data []byte) error {
	v, err := unmarshalEnum(data, "inspection type", InspectionType.IsValid)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

type InspectionStatus string

const (
	InspectionStatusPending    InspectionStatus = "PENDING"
	InspectionStatusInProgress InspectionStatus = "IN_PROGRESS"
	InspectionStatusPassed     InspectionStatus = "PASSED"
	InspectionStatusFailed     InspectionStatus = "FAILED"
	InspectionStatusWaived     InspectionStatus = "WAIVED"
)

func (s InspectionStatus) IsValid() bool {
	switch s {
	case InspectionStatusPending, InspectionStatusInProgress,
		InspectionStatusPassed, InspectionStatusFailed, InspectionStatusWaived:
		return true
	}
	return false
}

func (s *InspectionStatus) UnmarshalJSON(data []byte) error {
	v, err := unmarshalEnum(data, "inspection status", InspectionStatus.IsValid)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// IsTerminal reports PASSED, FAILED and WAIVED.
func (s InspectionStatus) IsTerminal() bool {
	switch s {
	case InspectionStatusPassed, InspectionStatusFailed, InspectionStatusWaived:
		return true
	}
	return false
}

// CanTransitionTo enforces PENDING -> IN_PROGRESS -> {PASSED, FAILED, WAIVED}.
// A PENDING inspection may be completed in one step; it passes through IN_PROGRESS.
func (s InspectionStatus) CanTransitionTo(next InspectionStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case InspectionStatusPending:
		return next == InspectionStatusInProgress || next.IsTerminal()
	case InspectionStatusInProgress:
		return next.IsTerminal()
	}
	return false
}

type ChecklistItemStatus string

const (
	ChecklistItemStatusPending ChecklistItemStatus = "PENDING"
	ChecklistItemStatusPassed  ChecklistItemStatus = "PASSED"
	ChecklistItemStatusFailed  ChecklistItemStatus = "FAILED"
	ChecklistItemStatusNA      ChecklistItemStatus = "NA"
)

func (s ChecklistItemStatus) IsValid() bool {
	switch s {
	case ChecklistItemStatusPending, ChecklistItemStatusPassed, ChecklistItemStatusFailed, ChecklistItemStatusNA:
		return true
	}
	return false
}

func (s *ChecklistItemStatus) UnmarshalJSON(data []byte) error {
	v, err := unmarshalEnum(data, "checklist item status", ChecklistItemStatus.IsValid)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityNormal   Severity = "NORMAL"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityNormal, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	v, err := unmarshalEnum(data, "severity", Severity.IsValid)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

type DefectStatus string

const (
	DefectStatusOpen              DefectStatus = "OPEN"
	DefectStatusInReview          DefectStatus = "IN_REVIEW"
	DefectStatusApprovedForRepair DefectStatus = "APPROVED_FOR_REPAIR"
	DefectStatusRepaired          DefectStatus = "REPAIRED"
	DefectStatusRejected          DefectStatus = "REJECTED"
	DefectStatusClosed            DefectStatus = "CLOSED"
)

func (s DefectStatus) IsValid() bool {
	switch s {
	case DefectStatusOpen, DefectStatusInReview, DefectStatusApprovedForRepair,
		DefectStatusRepaired, DefectStatusRejected, DefectStatusClosed:
		return true
	}
	return false
}

func (s *DefectStatus) UnmarshalJSON(data []byte) error {
	v, err := unmarshalEnum(data, "defect status", DefectStatus.IsValid)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// defect status graph; REPAIRED -> OPEN is the only back-edge (failed post-repair inspection)
var defectTransitions = map[DefectStatus][]DefectStatus{
	DefectStatusOpen:              {DefectStatusInReview, DefectStatusApprovedForRepair, DefectStatusRepaired, DefectStatusRejected, DefectStatusClosed},
	DefectStatusInReview:          {DefectStatusApprovedForRepair, DefectStatusRejected, DefectStatusClosed},
	DefectStatusApprovedForRepair: {DefectStatusRepaired, DefectStatusRejected, DefectStatusClosed},
	DefectStatusRepaired:          {DefectStatusOpen, DefectStatusRejected, DefectStatusClosed},
	DefectStatusRejected:          {DefectStatusClosed},
	DefectStatusClosed:            {},
}

func (s DefectStatus) CanTransitionTo(next DefectStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range defectTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RepairInspectionResult is the outcome of the inspection done after a repair.
type RepairInspectionResult string

const (
	RepairInspectionResultPassed RepairInspectionResult = "PASSED"
	RepairInspectionResultFailed RepairInspectionResult = "FAILED"
)

func (r RepairInspectionResult) IsValid() bool {
	return r == RepairInspectionResultPassed || r == RepairInspectionResultFailed
}

func (r *RepairInspectionResult) UnmarshalJSON(data []byte) error {
	v, err := unmarshalEnum(data, "post-repair inspection result", RepairInspectionResult.IsValid)
	if err != nil {
		return err
	}
	*r = v
	return nil
}

type MeasurementType string

const (
	MeasurementTypeDimension MeasurementType = "DIMENSION"
	MeasurementTypeWeight    MeasurementType = "WEIGHT"
	MeasurementTypeStrength  MeasurementType = "STRENGTH"
	MeasurementTypeDensity   MeasurementType = "DENSITY"
	MeasurementTypeOther     MeasurementType = "OTHER"
)

func (t MeasurementType) IsValid() bool {
	switch t {
	case MeasurementTypeDimension, MeasurementTypeWeight, MeasurementTypeStrength,
		MeasurementTypeDensity, MeasurementTypeOther:
		return true
	}
	return false
}

func (t *MeasurementType) UnmarshalJSON(data []byte) error {
	v, err := unmarshalEnum(data, "measurement type", MeasurementType.IsValid)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

type MeasurementStatus string

const (
	MeasurementStatusPending    MeasurementStatus = "PENDING"
	MeasurementStatusWithinSpec MeasurementStatus = "WITHIN_SPEC"
	MeasurementStatusOutOfSpec  MeasurementStatus = "OUT_OF_SPEC"
)

func (s MeasurementStatus) IsValid() bool {
	switch s {
	case MeasurementStatusPending, MeasurementStatusWithinSpec, MeasurementStatusOutOfSpec:
		return true
	}
	return false
}

type TestResultStatus string

const (
	TestResultStatusPending TestResultStatus = "PENDING"
	TestResultStatusPassed  TestResultStatus = "PASSED"
	TestResultStatusFailed  TestResultStatus = "FAILED"
)

func (s TestResultStatus) IsValid() bool {
	switch s {
	case TestResultStatusPending, TestResultStatusPassed, TestResultStatusFailed:
		return true
	}
	return false
}

type TestType string

const (
	TestTypeCompressiveStrength TestType = "COMPRESSIVE_STRENGTH"
	TestTypeSlump               TestType = "SLUMP"
	TestTypeAirContent          TestType = "AIR_CONTENT"
	TestTypeUnitWeight          TestType = "UNIT_WEIGHT"
	TestTypeTemperature         TestType = "TEMPERATURE"
)

func (t TestType) IsValid() bool {
	switch t {
	case TestTypeCompressiveStrength, TestTypeSlump, TestTypeAirContent, TestTypeUnitWeight, TestTypeTemperature:
		return true
	}
	return false
}

func (t *TestType) UnmarshalJSON(data []byte) error {
	v, err := unmarshalEnum(data, "test type", TestType.IsValid)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// PieceStatus is owned by Production/Yard; the QA engine only reads and writes it.
type PieceStatus string

const (
	PieceStatusScheduled        PieceStatus = "SCHEDULED"
	PieceStatusInProduction     PieceStatus = "IN_PRODUCTION"
	PieceStatusReadyForPour     PieceStatus = "READY_FOR_POUR"
	PieceStatusInspectionFailed PieceStatus = "INSPECTION_FAILED"
	PieceStatusReadyForYard     PieceStatus = "READY_FOR_YARD"
	PieceStatusReworkRequired   PieceStatus = "REWORK_REQUIRED"
	PieceStatusQCApproved       PieceStatus = "QC_APPROVED"
	PieceStatusQCRejected       PieceStatus = "QC_REJECTED"
	PieceStatusDefective        PieceStatus = "DEFECTIVE"
	PieceStatusRejected         PieceStatus = "REJECTED"
)

func (s PieceStatus) IsValid() bool {
	switch s {
	case PieceStatusScheduled, PieceStatusInProduction, PieceStatusReadyForPour,
		PieceStatusInspectionFailed, PieceStatusReadyForYard, PieceStatusReworkRequired,
		PieceStatusQCApproved, PieceStatusQCRejected, PieceStatusDefective, PieceStatusRejected:
		return true
	}
	return false
}

// IsRejection reports the statuses counted as rejected in job metrics.
func (s PieceStatus) IsRejection() bool {
	switch s {
	case PieceStatusQCRejected, PieceStatusDefective, PieceStatusRejected:
		return true
	}
	return false
}

// Module identifies an ERP module as a notification origin or target.
type Module string

const (
	ModuleQualityControl Module = "QUALITY_CONTROL"
	ModuleYardManagement Module = "YARD_MANAGEMENT"
	ModuleShipping       Module = "SHIPPING"
	ModuleProduction     Module = "PRODUCTION"
)

func (m Module) IsValid() bool {
	switch m {
	case ModuleQualityControl, ModuleYardManagement, ModuleShipping, ModuleProduction:
		return true
	}
	return false
}

type NotificationType string

const (
	NotificationTypePieceStatusChanged NotificationType = "PIECE_STATUS_CHANGED"
	NotificationTypeReadyForShipping   NotificationType = "PIECE_READY_FOR_SHIPPING"
	NotificationTypeRequiresAttention  NotificationType = "PIECE_REQUIRES_ATTENTION"
)

type OutboxPublishStatus string

const (
	OutboxPublishStatusPending    OutboxPublishStatus = "PENDING"
	OutboxPublishStatusProcessing OutboxPublishStatus = "PROCESSING"
	OutboxPublishStatusSent       OutboxPublishStatus = "SENT"
	OutboxPublishStatusFailed     OutboxPublishStatus = "FAILED"
	OutboxPublishStatusDead       OutboxPublishStatus = "DEAD"
)

var ErrInvalidEnum = errors.New("invalid enum value")

// ParseInspectionType is used by query-string filters, where JSON decoding does not apply.
func ParseInspectionType(s string) (InspectionType, error) {
	t := InspectionType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("%w: inspection type %q", ErrInvalidEnum, s)
	}
	return t, nil
}

func ParseInspectionStatus(s string) (InspectionStatus, error) {
	v := InspectionStatus(s)
	if !v.IsValid() {
		return "", fmt.Errorf("%w: inspection status %q", ErrInvalidEnum, s)
	}
	return v, nil
}

func ParseDefectStatus(s string) (DefectStatus, error) {
	v := DefectStatus(s)
	if !v.IsValid() {
		return "", fmt.Errorf("%w: defect status %q", ErrInvalidEnum, s)
	}
	return v, nil
}

func ParseSeverity(s string) (Severity, error) {
	v := Severity(s)
	if !v.IsValid() {
		return "", fmt.Errorf("%w: severity %q", ErrInvalidEnum, s)
	}
	return v, nil
}

func ParseModule(s string) (Module, error) {
	v := Module(s)
	if !v.IsValid() {
		return "", fmt.Errorf("%w: module %q", ErrInvalidEnum, s)
	}
	return v, nil
}
