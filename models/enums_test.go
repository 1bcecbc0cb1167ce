package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestInspectionStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to InspectionStatus
		ok       bool
	}{
		{InspectionStatusPending, InspectionStatusInProgress, true},
		{InspectionStatusPending, InspectionStatusWaived, true},
		{InspectionStatusInProgress, InspectionStatusFailed, true},
		{InspectionStatusInProgress, InspectionStatusPending, false},
		{InspectionStatusPassed, InspectionStatusPassed, true},
		{InspectionStatusPassed, InspectionStatusInProgress, false},
		{InspectionStatusWaived, InspectionStatusPassed, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.ok {
			t.Fatalf("%s -> %s = %v, want %v", c.from, c.to, got, c.ok)
		}
	}
}

func TestEnumJSONRejectsUnknownValues(t *testing.T) {
	var in NewInspection
	if err := json.Unmarshal([]byte(`{"type":"VISUAL"}`), &in); err == nil {
		t.Fatal("expected error for unknown inspection type")
	}
	var d NewDefect
	if err := json.Unmarshal([]byte(`{"description":"x","severity":"URGENT"}`), &d); err == nil {
		t.Fatal("expected error for unknown severity")
	}
	if err := json.Unmarshal([]byte(`{"description":"x","severity":"CRITICAL","status":"IN_REVIEW"}`), &d); err != nil {
		t.Fatalf("valid defect: %v", err)
	}
	if d.Severity != SeverityCritical || d.Status == nil || *d.Status != DefectStatusInReview {
		t.Fatalf("decoded %+v", d)
	}
}

func TestParseEnums(t *testing.T) {
	if _, err := ParseInspectionStatus("DONE"); !errors.Is(err, ErrInvalidEnum) {
		t.Fatalf("ParseInspectionStatus: %v", err)
	}
	if m, err := ParseModule("SHIPPING"); err != nil || m != ModuleShipping {
		t.Fatalf("ParseModule = %s, %v", m, err)
	}
	if _, err := ParseSeverity("normal"); err == nil {
		t.Fatal("severity parsing is case sensitive")
	}
}

func TestPieceStatusIsRejection(t *testing.T) {
	for _, s := range []PieceStatus{PieceStatusQCRejected, PieceStatusDefective, PieceStatusRejected} {
		if !s.IsRejection() {
			t.Fatalf("%s should count as a rejection", s)
		}
	}
	if PieceStatusReworkRequired.IsRejection() || PieceStatusInspectionFailed.IsRejection() {
		t.Fatal("rework and failed pre-pour are not rejections")
	}
}

func TestDefectRepairPassed(t *testing.T) {
	passed := RepairInspectionResultPassed
	d := Defect{Status: DefectStatusRepaired, InspectedAfterRepairResult: &passed}
	if !d.RepairPassed() {
		t.Fatal("expected repaired defect with passing re-inspection")
	}
	d.Status = DefectStatusApprovedForRepair
	if d.RepairPassed() {
		t.Fatal("repair not done yet")
	}
}

func TestActivityDatePrefersScheduledDate(t *testing.T) {
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	scheduled := created.Add(48 * time.Hour)
	i := Inspection{CreatedAt: created}
	if !i.ActivityDate().Equal(created) {
		t.Fatalf("activity date = %s", i.ActivityDate())
	}
	i.ScheduledDate = &scheduled
	if !i.ActivityDate().Equal(scheduled) {
		t.Fatalf("activity date = %s", i.ActivityDate())
	}
}

func TestDocumentPrefixScope(t *testing.T) {
	if DocumentPrefixInspection.Scope() != NumberScopeYearly || DocumentPrefixDefect.Scope() != NumberScopeYearly {
		t.Fatal("inspection and defect numbers are yearly")
	}
	if DocumentPrefixWorkOrder.Scope() != NumberScopeDaily || DocumentPrefixBreakdownReport.Scope() != NumberScopeDaily {
		t.Fatal("work order and breakdown numbers are daily")
	}
}
