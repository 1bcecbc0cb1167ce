package quality

import (
	"context"
	"testing"
	"time"

	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/utils"
)

func statusPtr(s models.InspectionStatus) *models.InspectionStatus { return &s }

func createInspection(t *testing.T, f *fixture, typ models.InspectionType, pieceId string) *models.Inspection {
	t.Helper()
	in := models.NewInspection{Type: typ}
	if pieceId != "" {
		in.PieceId = strPtr(pieceId)
	}
	inspection, err := f.svc.CreateInspection(userContext(), in)
	if err != nil {
		t.Fatalf("CreateInspection: %v", err)
	}
	return inspection
}

func TestPrePourPassedMovesPieceToReadyForPour(t *testing.T) {
	f := newFixture(t)
	inspection := createInspection(t, f, models.InspectionTypePrePour, "piece-1")
	if inspection.Status != models.InspectionStatusPending {
		t.Fatalf("new inspection status = %s, want PENDING", inspection.Status)
	}

	updated, err := f.svc.UpdateInspection(userContext(), inspection.ID, models.InspectionPatch{
		Status: statusPtr(models.InspectionStatusPassed),
	})
	if err != nil {
		t.Fatalf("UpdateInspection: %v", err)
	}
	if updated.StartedAt == nil || updated.CompletedAt == nil {
		t.Fatalf("expected started and completed timestamps, got %v %v", updated.StartedAt, updated.CompletedAt)
	}
	if got := f.pieceStatus(t, "piece-1"); got != models.PieceStatusReadyForPour {
		t.Fatalf("piece status = %s, want READY_FOR_POUR", got)
	}
	if got := f.targets(); !sameModules(got, []models.Module{models.ModuleYardManagement}) {
		t.Fatalf("notification targets = %v, want [YARD_MANAGEMENT]", got)
	}

	n := f.notifications.All()[0]
	if n.Type != models.NotificationTypePieceStatusChanged || n.SourceModule != models.ModuleQualityControl {
		t.Fatalf("unexpected notification %+v", n)
	}
	if n.CorrelationId != "corr-1" {
		t.Fatalf("correlation id = %q, want corr-1", n.CorrelationId)
	}
	if n.Metadata.JobNumber != "J-100" || n.Metadata.PreviousStatus != models.PieceStatusInProduction {
		t.Fatalf("unexpected metadata %+v", n.Metadata)
	}
	if n.Metadata.Details.Inspection == nil || n.Metadata.Details.Inspection.InspectionNumber != inspection.InspectionNumber {
		t.Fatalf("metadata does not reference the inspection: %+v", n.Metadata.Details)
	}
}

func TestInspectionOutcome(t *testing.T) {
	tests := []struct {
		typ    models.InspectionType
		status models.InspectionStatus
		want   models.PieceStatus
		ok     bool
	}{
		{models.InspectionTypePrePour, models.InspectionStatusPassed, models.PieceStatusReadyForPour, true},
		{models.InspectionTypePrePour, models.InspectionStatusFailed, models.PieceStatusInspectionFailed, true},
		{models.InspectionTypePostPour, models.InspectionStatusPassed, models.PieceStatusReadyForYard, true},
		{models.InspectionTypePostPour, models.InspectionStatusFailed, models.PieceStatusReworkRequired, true},
		{models.InspectionTypeFinal, models.InspectionStatusPassed, models.PieceStatusQCApproved, true},
		{models.InspectionTypeFinal, models.InspectionStatusFailed, models.PieceStatusQCRejected, true},
		{models.InspectionTypeSpecial, models.InspectionStatusFailed, models.PieceStatusQCRejected, true},
		{models.InspectionTypeFinal, models.InspectionStatusWaived, "", false},
		{models.InspectionTypeFinal, models.InspectionStatusInProgress, "", false},
	}
	for _, tt := range tests {
		got, ok := InspectionOutcome(tt.typ, tt.status)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("InspectionOutcome(%s, %s) = %s, %v; want %s, %v", tt.typ, tt.status, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFinalFailedRejectsPieceAndAlertsProduction(t *testing.T) {
	f := newFixture(t)
	inspection := createInspection(t, f, models.InspectionTypeFinal, "piece-4")
	if _, err := f.svc.UpdateInspection(userContext(), inspection.ID, models.InspectionPatch{
		Status: statusPtr(models.InspectionStatusFailed),
	}); err != nil {
		t.Fatalf("UpdateInspection: %v", err)
	}
	if got := f.pieceStatus(t, "piece-4"); got != models.PieceStatusQCRejected {
		t.Fatalf("piece status = %s, want QC_REJECTED", got)
	}
	want := []models.Module{models.ModuleYardManagement, models.ModuleProduction}
	if got := f.targets(); !sameModules(got, want) {
		t.Fatalf("notification targets = %v, want %v", got, want)
	}
	metrics, err := f.pieces.GetJobMetrics(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("GetJobMetrics: %v", err)
	}
	if metrics.TotalPieces != 4 || metrics.RejectedPieces != 1 || metrics.RejectionRate.String() != "25" {
		t.Fatalf("unexpected job metrics %+v", metrics)
	}
}

func TestInspectionStatusTransitions(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.CreateInspection(userContext(), models.NewInspection{
		Type:   models.InspectionTypeFinal,
		Status: statusPtr(models.InspectionStatusPassed),
	}); !utils.IsValidation(err) {
		t.Fatalf("creating a completed inspection: got %v, want validation error", err)
	}

	inspection := createInspection(t, f, models.InspectionTypeFinal, "")
	if _, err := f.svc.UpdateInspection(userContext(), inspection.ID, models.InspectionPatch{
		Status: statusPtr(models.InspectionStatusInProgress),
	}); err != nil {
		t.Fatalf("start inspection: %v", err)
	}
	if _, err := f.svc.UpdateInspection(userContext(), inspection.ID, models.InspectionPatch{
		Status: statusPtr(models.InspectionStatusPending),
	}); !utils.IsValidation(err) {
		t.Fatalf("IN_PROGRESS -> PENDING: got %v, want validation error", err)
	}
	if _, err := f.svc.UpdateInspection(userContext(), inspection.ID, models.InspectionPatch{
		Status: statusPtr(models.InspectionStatusPassed),
	}); err != nil {
		t.Fatalf("complete inspection: %v", err)
	}
	if _, err := f.svc.UpdateInspection(userContext(), inspection.ID, models.InspectionPatch{
		Status: statusPtr(models.InspectionStatusFailed),
	}); !utils.IsValidation(err) {
		t.Fatalf("PASSED -> FAILED: got %v, want validation error", err)
	}

	stored, err := f.inspections.Get(context.Background(), inspection.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != models.InspectionStatusPassed {
		t.Fatalf("stored status = %s, want PASSED", stored.Status)
	}
}

func TestWaiveRequiresReasonAndLeavesPieceAlone(t *testing.T) {
	f := newFixture(t)
	inspection := createInspection(t, f, models.InspectionTypePostPour, "piece-1")

	if _, err := f.svc.UpdateInspection(userContext(), inspection.ID, models.InspectionPatch{
		Status: statusPtr(models.InspectionStatusWaived),
	}); !utils.IsValidation(err) {
		t.Fatalf("waive without reason: got %v, want validation error", err)
	}

	waived, err := f.svc.UpdateInspection(userContext(), inspection.ID, models.InspectionPatch{
		Status:       statusPtr(models.InspectionStatusWaived),
		WaiverReason: strPtr("covered by mock-up approval"),
	})
	if err != nil {
		t.Fatalf("waive: %v", err)
	}
	if waived.WaivedBy != "Dana Inspector" {
		t.Fatalf("waived by = %q, want Dana Inspector", waived.WaivedBy)
	}
	if got := f.pieceStatus(t, "piece-1"); got != models.PieceStatusInProduction {
		t.Fatalf("piece status = %s, want IN_PRODUCTION", got)
	}
	if n := len(f.notifications.All()); n != 0 {
		t.Fatalf("got %d notifications, want none", n)
	}
}

func TestRepeatedCompletionDoesNotNotifyTwice(t *testing.T) {
	f := newFixture(t)
	inspection := createInspection(t, f, models.InspectionTypePostPour, "piece-2")
	patch := models.InspectionPatch{Status: statusPtr(models.InspectionStatusPassed)}
	if _, err := f.svc.UpdateInspection(userContext(), inspection.ID, patch); err != nil {
		t.Fatalf("first update: %v", err)
	}
	patch.Notes = strPtr("rechecked lifting inserts")
	if _, err := f.svc.UpdateInspection(userContext(), inspection.ID, patch); err != nil {
		t.Fatalf("second update: %v", err)
	}
	if got := f.pieces.StatusWrites(); got != 1 {
		t.Fatalf("piece status writes = %d, want 1", got)
	}
	if n := len(f.notifications.All()); n != 1 {
		t.Fatalf("got %d notifications, want 1", n)
	}
}

func TestSyncInspectionPieceStatusIsIdempotent(t *testing.T) {
	f := newFixture(t)
	inspection := createInspection(t, f, models.InspectionTypeFinal, "piece-3")
	if _, err := f.svc.UpdateInspection(userContext(), inspection.ID, models.InspectionPatch{
		Status: statusPtr(models.InspectionStatusPassed),
	}); err != nil {
		t.Fatalf("UpdateInspection: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := f.svc.SyncInspectionPieceStatus(userContext(), inspection.ID); err != nil {
			t.Fatalf("sync %d: %v", i, err)
		}
	}
	if got := f.pieces.StatusWrites(); got != 1 {
		t.Fatalf("piece status writes = %d, want 1", got)
	}
	if n := len(f.notifications.All()); n != 2 {
		t.Fatalf("got %d notifications, want 2", n)
	}
	if got := f.pieces.JobMetricsCount(); got != 1 {
		t.Fatalf("job metrics rows = %d, want 1", got)
	}
}

func TestSyncInspectionRequiresPieceAndOutcome(t *testing.T) {
	f := newFixture(t)
	noPiece := createInspection(t, f, models.InspectionTypeFinal, "")
	if _, err := f.svc.SyncInspectionPieceStatus(userContext(), noPiece.ID); !utils.IsValidation(err) {
		t.Fatalf("sync without piece: got %v, want validation error", err)
	}
	pending := createInspection(t, f, models.InspectionTypeFinal, "piece-1")
	if _, err := f.svc.SyncInspectionPieceStatus(userContext(), pending.ID); !utils.IsValidation(err) {
		t.Fatalf("sync of pending inspection: got %v, want validation error", err)
	}
	if _, err := f.svc.SyncInspectionPieceStatus(userContext(), "missing"); !utils.IsNotFound(err) {
		t.Fatalf("sync of unknown inspection: got %v, want not found", err)
	}
}

func TestPieceWriteFailureIsReportedWithSavedInspection(t *testing.T) {
	f := newFixture(t, withFailingPieceWrites)
	inspection := createInspection(t, f, models.InspectionTypePrePour, "piece-1")

	updated, err := f.svc.UpdateInspection(userContext(), inspection.ID, models.InspectionPatch{
		Status: statusPtr(models.InspectionStatusFailed),
	})
	if !utils.IsStatusSync(err) {
		t.Fatalf("got %v, want status sync error", err)
	}
	if updated == nil || updated.Status != models.InspectionStatusFailed {
		t.Fatalf("expected the saved inspection alongside the error, got %+v", updated)
	}
	stored, err := f.inspections.Get(context.Background(), inspection.ID)
	if err != nil || stored.Status != models.InspectionStatusFailed {
		t.Fatalf("stored inspection = %+v, %v", stored, err)
	}
	if got := f.pieceStatus(t, "piece-1"); got != models.PieceStatusInProduction {
		t.Fatalf("piece status = %s, want IN_PRODUCTION", got)
	}

	healthy := f.deps
	healthy.Pieces = f.pieces
	if _, err := NewService(healthy).SyncInspectionPieceStatus(userContext(), inspection.ID); err != nil {
		t.Fatalf("retry sync: %v", err)
	}
	if got := f.pieceStatus(t, "piece-1"); got != models.PieceStatusInspectionFailed {
		t.Fatalf("piece status after retry = %s, want INSPECTION_FAILED", got)
	}
}

func TestCreateInspectionResolvesLineage(t *testing.T) {
	f := newFixture(t)
	inspection := createInspection(t, f, models.InspectionTypePrePour, "piece-2")
	if inspection.PieceNumber != "PC-2" || inspection.JobId == nil || *inspection.JobId != "job-1" {
		t.Fatalf("unexpected lineage %+v", inspection)
	}
	if inspection.JobNumber != "J-100" || inspection.JobName != "Riverside Garage" {
		t.Fatalf("job data not denormalized: %q %q", inspection.JobNumber, inspection.JobName)
	}
	if inspection.InspectorId != "u-7" || inspection.InspectorName != "Dana Inspector" {
		t.Fatalf("inspector = %q %q", inspection.InspectorId, inspection.InspectorName)
	}

	if _, err := f.svc.CreateInspection(userContext(), models.NewInspection{
		Type:    models.InspectionTypeFinal,
		PieceId: strPtr("no-such-piece"),
	}); !utils.IsNotFound(err) {
		t.Fatalf("unknown piece: got %v, want not found", err)
	}
	if _, err := f.svc.CreateInspection(userContext(), models.NewInspection{Type: "VISUAL"}); !utils.IsValidation(err) {
		t.Fatalf("unknown type: got %v, want validation error", err)
	}
}

func TestInspectionNumbersIncrease(t *testing.T) {
	f := newFixture(t)
	first := createInspection(t, f, models.InspectionTypeFinal, "")
	second := createInspection(t, f, models.InspectionTypeFinal, "")
	if first.InspectionNumber != "INS-26-0001" || second.InspectionNumber != "INS-26-0002" {
		t.Fatalf("numbers = %s, %s; want INS-26-0001, INS-26-0002", first.InspectionNumber, second.InspectionNumber)
	}

	if _, err := f.svc.CreateInspection(userContext(), models.NewInspection{
		Type:             models.InspectionTypeFinal,
		InspectionNumber: "INS-26-0002",
	}); !utils.IsConflict(err) {
		t.Fatalf("duplicate explicit number: got %v, want conflict", err)
	}
}

func TestCreateInspectionFromTemplate(t *testing.T) {
	f := newFixture(t)
	inspection, err := f.svc.CreateInspection(userContext(), models.NewInspection{
		Type:       models.InspectionTypePrePour,
		PieceId:    strPtr("piece-1"),
		TemplateId: strPtr("tpl-pre-pour"),
	})
	if err != nil {
		t.Fatalf("CreateInspection: %v", err)
	}
	items := inspection.ChecklistItems
	if len(items) != 2 {
		t.Fatalf("got %d checklist items, want 2", len(items))
	}
	if items[0].Category != "Forms" || items[0].Sequence != 1 || items[0].Severity != models.SeverityNormal {
		t.Fatalf("first item = %+v", items[0])
	}
	if items[1].Category != "Embeds" || items[1].Sequence != 2 || items[1].Severity != models.SeverityHigh {
		t.Fatalf("second item = %+v", items[1])
	}
	for _, item := range items {
		if item.Status != models.ChecklistItemStatusPending || item.InspectionId != inspection.ID || item.ID == "" {
			t.Fatalf("item not seeded as pending: %+v", item)
		}
	}
	if inspection.ChecklistTemplateId == nil || *inspection.ChecklistTemplateId != "tpl-pre-pour" {
		t.Fatalf("template id = %v", inspection.ChecklistTemplateId)
	}
}

func TestCreateInspectionRejectsUnusableTemplates(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name  string
		input models.NewInspection
		check func(error) bool
	}{
		{"inactive", models.NewInspection{Type: models.InspectionTypeFinal, TemplateId: strPtr("tpl-retired")}, utils.IsValidation},
		{"wrong type", models.NewInspection{Type: models.InspectionTypePostPour, TemplateId: strPtr("tpl-pre-pour")}, utils.IsValidation},
		{"missing", models.NewInspection{Type: models.InspectionTypeFinal, TemplateId: strPtr("tpl-none")}, utils.IsNotFound},
		{"template and items", models.NewInspection{
			Type:           models.InspectionTypePrePour,
			TemplateId:     strPtr("tpl-pre-pour"),
			ChecklistItems: []models.NewChecklistItem{{Description: "Extra"}},
		}, utils.IsValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.CreateInspection(userContext(), tt.input); !tt.check(err) {
				t.Fatalf("got %v", err)
			}
		})
	}
}

func TestExplicitChecklistItems(t *testing.T) {
	f := newFixture(t)
	passed := models.ChecklistItemStatusPassed
	inspection, err := f.svc.CreateInspection(userContext(), models.NewInspection{
		Type: models.InspectionTypeSpecial,
		ChecklistItems: []models.NewChecklistItem{
			{Description: "Strand cut flush"},
			{Description: "Chamfer intact", Status: passed, Severity: models.SeverityLow},
		},
	})
	if err != nil {
		t.Fatalf("CreateInspection: %v", err)
	}
	first, second := inspection.ChecklistItems[0], inspection.ChecklistItems[1]
	if first.Status != models.ChecklistItemStatusPending || first.Severity != models.SeverityNormal || first.CompletedAt != nil {
		t.Fatalf("first item = %+v", first)
	}
	if second.CompletedBy != "Dana Inspector" || second.CompletedAt == nil || second.Sequence != 2 {
		t.Fatalf("second item = %+v", second)
	}
}

func TestUpdateChecklistItemStartsInspection(t *testing.T) {
	f := newFixture(t)
	inspection, err := f.svc.CreateInspection(userContext(), models.NewInspection{
		Type:       models.InspectionTypePrePour,
		TemplateId: strPtr("tpl-pre-pour"),
	})
	if err != nil {
		t.Fatalf("CreateInspection: %v", err)
	}
	itemId := inspection.ChecklistItems[0].ID
	failed := models.ChecklistItemStatusFailed
	item, err := f.svc.UpdateChecklistItem(userContext(), inspection.ID, itemId, models.ChecklistItemPatch{
		Status: &failed,
		Result: strPtr("side form 5mm out"),
	})
	if err != nil {
		t.Fatalf("UpdateChecklistItem: %v", err)
	}
	if item.CompletedBy != "Dana Inspector" || item.CompletedAt == nil || item.Result != "side form 5mm out" {
		t.Fatalf("item = %+v", item)
	}
	stored, err := f.inspections.Get(context.Background(), inspection.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != models.InspectionStatusInProgress || stored.StartedAt == nil {
		t.Fatalf("inspection status = %s, started %v", stored.Status, stored.StartedAt)
	}

	pending := models.ChecklistItemStatusPending
	item, err = f.svc.UpdateChecklistItem(userContext(), inspection.ID, itemId, models.ChecklistItemPatch{Status: &pending})
	if err != nil {
		t.Fatalf("reset item: %v", err)
	}
	if item.CompletedBy != "" || item.CompletedAt != nil {
		t.Fatalf("reset item kept completion: %+v", item)
	}

	if _, err := f.svc.UpdateInspection(userContext(), inspection.ID, models.InspectionPatch{
		Status: statusPtr(models.InspectionStatusPassed),
	}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := f.svc.UpdateChecklistItem(userContext(), inspection.ID, itemId, models.ChecklistItemPatch{Status: &failed}); !utils.IsValidation(err) {
		t.Fatalf("edit on completed inspection: got %v, want validation error", err)
	}
	if _, err := f.svc.UpdateChecklistItem(userContext(), inspection.ID, "nope", models.ChecklistItemPatch{}); !utils.IsValidation(err) && !utils.IsNotFound(err) {
		t.Fatalf("unknown item: got %v", err)
	}
}

func TestGetInspectionAttachesDefectsAndMeasurements(t *testing.T) {
	f := newFixture(t)
	inspection := createInspection(t, f, models.InspectionTypePostPour, "piece-1")
	if _, err := f.svc.CreateDefect(userContext(), models.NewDefect{
		InspectionId: &inspection.ID,
		Description:  "Honeycombing at stem",
	}); err != nil {
		t.Fatalf("CreateDefect: %v", err)
	}
	if _, err := f.svc.RecordMeasurement(userContext(), inspection.ID, models.NewMeasurement{Name: "Length"}); err != nil {
		t.Fatalf("RecordMeasurement: %v", err)
	}
	got, err := f.svc.GetInspection(context.Background(), inspection.ID)
	if err != nil {
		t.Fatalf("GetInspection: %v", err)
	}
	if len(got.Defects) != 1 || len(got.Measurements) != 1 {
		t.Fatalf("got %d defects and %d measurements", len(got.Defects), len(got.Measurements))
	}
}

func TestListInspectionsFilters(t *testing.T) {
	f := newFixture(t)
	createInspection(t, f, models.InspectionTypePrePour, "piece-1")
	createInspection(t, f, models.InspectionTypeFinal, "piece-2")
	createInspection(t, f, models.InspectionTypeFinal, "loose-piece")

	final := models.InspectionTypeFinal
	list, err := f.svc.ListInspections(context.Background(), models.InspectionFilter{Type: &final})
	if err != nil {
		t.Fatalf("ListInspections: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d FINAL inspections, want 2", len(list))
	}

	list, err = f.svc.ListInspections(context.Background(), models.InspectionFilter{Search: "riverside"})
	if err != nil {
		t.Fatalf("ListInspections: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("search by job name matched %d, want 2", len(list))
	}

	from := testNow
	to := testNow.Add(-time.Hour)
	if _, err := f.svc.ListInspections(context.Background(), models.InspectionFilter{From: &from, To: &to}); !utils.IsValidation(err) {
		t.Fatalf("inverted range: got %v, want validation error", err)
	}
}
