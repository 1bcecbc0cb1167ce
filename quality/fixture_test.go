package quality

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/repositories/memory"
	"github.com/mmdatafocus/precast_backend/utils"
	"github.com/sirupsen/logrus"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type fixture struct {
	svc           *Service
	inspections   *memory.InspectionRepository
	defects       *memory.DefectRepository
	measurements  *memory.MeasurementRepository
	tests         *memory.TestResultRepository
	pieces        *memory.PieceRepository
	notifications *memory.NotificationRepository
	clock         *testclock.Clock
	deps          Dependencies
}

type fixtureOption func(*Dependencies)

func withFailingPieceWrites(d *Dependencies) {
	d.Pieces = failingPieces{d.Pieces.(*memory.PieceRepository)}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func strPtr(s string) *string { return &s }

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	f := &fixture{
		inspections:   memory.NewInspectionRepository(),
		defects:       memory.NewDefectRepository(),
		measurements:  memory.NewMeasurementRepository(),
		tests:         memory.NewTestResultRepository(),
		pieces:        memory.NewPieceRepository(),
		notifications: memory.NewNotificationRepository(),
		clock:         testclock.NewClock(testNow),
	}
	f.pieces.AddJob(models.Job{ID: "job-1", JobNumber: "J-100", Name: "Riverside Garage"})
	for _, id := range []string{"piece-1", "piece-2", "piece-3", "piece-4"} {
		f.pieces.AddPiece(models.Piece{
			ID:          id,
			PieceNumber: "PC-" + id[len(id)-1:],
			PieceType:   "DOUBLE_TEE",
			JobId:       strPtr("job-1"),
			Status:      models.PieceStatusInProduction,
		})
	}
	f.pieces.AddPiece(models.Piece{ID: "loose-piece", PieceNumber: "PC-X", Status: models.PieceStatusScheduled})

	prePour := models.InspectionTypePrePour
	templates := memory.NewTemplateRepository(
		models.ChecklistTemplate{
			ID: "tpl-pre-pour", Name: "Pre-pour", InspectionType: &prePour, Version: 2, IsActive: true,
			Items: []models.ChecklistTemplateItem{
				{ID: "ti-2", Sequence: 2, Category: "Embeds", Description: "Embed plates located", Severity: models.SeverityHigh},
				{ID: "ti-1", Sequence: 1, Category: "Forms", Description: "Form dimensions checked", Requirement: "±3mm"},
			},
		},
		models.ChecklistTemplate{ID: "tpl-retired", Name: "Retired", Version: 1, IsActive: false},
	)

	deps := Dependencies{
		Inspections:   f.inspections,
		Defects:       f.defects,
		Measurements:  f.measurements,
		Tests:         f.tests,
		Templates:     templates,
		Pieces:        f.pieces,
		Jobs:          f.pieces,
		Notifications: f.notifications,
		IssuedNumbers: memory.NewIssuedNumberRepository(),
		Clock:         f.clock,
		Logger:        quietLogger(),
	}
	for _, opt := range opts {
		opt(&deps)
	}
	f.deps = deps
	f.svc = NewService(deps)
	return f
}

func (f *fixture) pieceStatus(t *testing.T, id string) models.PieceStatus {
	t.Helper()
	p, err := f.pieces.FindPiece(context.Background(), id)
	if err != nil {
		t.Fatalf("FindPiece(%s): %v", id, err)
	}
	return p.Status
}

func (f *fixture) targets() []models.Module {
	var out []models.Module
	for _, n := range f.notifications.All() {
		out = append(out, n.TargetModule)
	}
	return out
}

func sameModules(got, want []models.Module) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func userContext() context.Context {
	ctx := utils.SetUserIdInContext(context.Background(), "u-7")
	ctx = utils.SetUserNameInContext(ctx, "Dana Inspector")
	return utils.SetCorrelationIdInContext(ctx, "corr-1")
}

// failingPieces fails every piece status write.
type failingPieces struct {
	*memory.PieceRepository
}

func (p failingPieces) UpdatePieceStatus(context.Context, string, models.PieceStatus, time.Time) error {
	return errors.New("piece store unavailable")
}

// failingSink rejects every notification.
type failingSink struct{ calls int }

func (s *failingSink) CreateNotification(context.Context, *models.Notification) error {
	s.calls++
	return errors.New("notification table locked")
}
