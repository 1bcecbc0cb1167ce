package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/juju/clock/testclock"
	"github.com/mmdatafocus/precast_backend/middlewares"
	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/quality"
	"github.com/mmdatafocus/precast_backend/repositories"
	"github.com/mmdatafocus/precast_backend/repositories/memory"
	"github.com/sirupsen/logrus"
)

var handlerNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type brokenPieces struct {
	*memory.PieceRepository
}

func (brokenPieces) UpdatePieceStatus(context.Context, string, models.PieceStatus, time.Time) error {
	return errors.New("piece store unavailable")
}

func newTestRouter(t *testing.T, breakPieces bool) (*gin.Engine, *memory.PieceRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	pieces := memory.NewPieceRepository()
	job := "job-1"
	pieces.AddJob(models.Job{ID: job, JobNumber: "J-100", Name: "Riverside Garage"})
	pieces.AddPiece(models.Piece{ID: "piece-1", PieceNumber: "PC-1", JobId: &job, Status: models.PieceStatusInProduction})
	pieces.AddPiece(models.Piece{ID: "piece-2", PieceNumber: "PC-2", JobId: &job, Status: models.PieceStatusInProduction})

	var pieceStore repositories.PieceRepository = pieces
	if breakPieces {
		pieceStore = brokenPieces{pieces}
	}
	svc := quality.NewService(quality.Dependencies{
		Inspections:   memory.NewInspectionRepository(),
		Defects:       memory.NewDefectRepository(),
		Measurements:  memory.NewMeasurementRepository(),
		Tests:         memory.NewTestResultRepository(),
		Templates:     memory.NewTemplateRepository(),
		Pieces:        pieceStore,
		Jobs:          pieces,
		Notifications: memory.NewNotificationRepository(),
		IssuedNumbers: memory.NewIssuedNumberRepository(),
		Clock:         testclock.NewClock(handlerNow),
		Logger:        logger,
	})

	r := gin.New()
	r.Use(middlewares.RequestContext())
	r.Use(middlewares.LoaderMiddleware(pieces))
	registerQualityRoutes(r, &qualityHandlers{svc: svc, logger: logger})
	return r, pieces
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middlewares.HeaderUserName, "Dana Inspector")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return out
}

func TestInspectionLifecycleOverHTTP(t *testing.T) {
	r, pieces := newTestRouter(t, false)

	w := doJSON(t, r, http.MethodPost, "/api/qc/inspections", map[string]any{"type": "PRE_POUR", "piece_id": "piece-1"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	created := decode[models.Inspection](t, w)
	if created.InspectionNumber != "INS-26-0001" || created.CreatedBy != "Dana Inspector" {
		t.Fatalf("created = %+v", created)
	}

	w = doJSON(t, r, http.MethodPatch, "/api/qc/inspections/"+created.ID, map[string]any{"status": "PASSED"})
	if w.Code != http.StatusOK {
		t.Fatalf("update: %d %s", w.Code, w.Body.String())
	}
	piece, _ := pieces.FindPiece(context.Background(), "piece-1")
	if piece.Status != models.PieceStatusReadyForPour {
		t.Fatalf("piece status = %s", piece.Status)
	}

	w = doJSON(t, r, http.MethodGet, "/api/qc/inspections/"+created.ID, nil)
	one := decode[map[string]any](t, w)
	if w.Code != http.StatusOK || one["inspection_number"] != "INS-26-0001" || one["current_piece_status"] != string(models.PieceStatusReadyForPour) {
		t.Fatalf("get: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/api/qc/inspections?type=PRE_POUR", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}
	list := decode[[]map[string]any](t, w)
	if len(list) != 1 || list[0]["current_piece_status"] != string(models.PieceStatusReadyForPour) {
		t.Fatalf("list = %v", list)
	}

	w = doJSON(t, r, http.MethodGet, "/api/notifications?target_module=YARD_MANAGEMENT&unread=true", nil)
	notifications := decode[[]models.Notification](t, w)
	if w.Code != http.StatusOK || len(notifications) != 1 {
		t.Fatalf("notifications: %d %s", w.Code, w.Body.String())
	}
	w = doJSON(t, r, http.MethodPost, "/api/notifications/"+notifications[0].ID+"/read", nil)
	if w.Code != http.StatusOK || !decode[models.Notification](t, w).IsRead {
		t.Fatalf("mark read: %d %s", w.Code, w.Body.String())
	}
}

func TestErrorMapping(t *testing.T) {
	r, _ := newTestRouter(t, false)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown inspection", http.MethodGet, "/api/qc/inspections/missing", nil, http.StatusNotFound},
		{"unknown defect", http.MethodPatch, "/api/qc/defects/missing", map[string]any{"status": "CLOSED"}, http.StatusNotFound},
		{"unknown enum in body", http.MethodPost, "/api/qc/inspections", map[string]any{"type": "VISUAL"}, http.StatusBadRequest},
		{"unknown enum in query", http.MethodGet, "/api/qc/defects?severity=URGENT", nil, http.StatusBadRequest},
		{"bad date", http.MethodGet, "/api/qc/inspections?from=yesterday", nil, http.StatusBadRequest},
		{"defect without piece", http.MethodPost, "/api/qc/defects", map[string]any{"description": "crack"}, http.StatusBadRequest},
		{"no dispatcher", http.MethodPost, "/internal/ops/notifications/requeue-dead", nil, http.StatusServiceUnavailable},
	}
	for _, c := range cases {
		if w := doJSON(t, r, c.method, c.path, c.body); w.Code != c.want {
			t.Fatalf("%s: got %d, want %d (%s)", c.name, w.Code, c.want, w.Body.String())
		}
	}

	body := map[string]any{"type": "FINAL", "inspection_number": "INS-26-0042"}
	if w := doJSON(t, r, http.MethodPost, "/api/qc/inspections", body); w.Code != http.StatusCreated {
		t.Fatalf("first create: %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodPost, "/api/qc/inspections", body); w.Code != http.StatusConflict {
		t.Fatalf("duplicate number: got %d", w.Code)
	}
}

func TestStatusSyncFailureIsMultiStatus(t *testing.T) {
	r, _ := newTestRouter(t, true)

	w := doJSON(t, r, http.MethodPost, "/api/qc/defects", map[string]any{
		"piece_id":    "piece-2",
		"description": "Through crack at stem",
		"severity":    "CRITICAL",
	})
	if w.Code != http.StatusMultiStatus {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	resp := decode[struct {
		Data  models.Defect `json:"data"`
		Error string        `json:"error"`
	}](t, w)
	if resp.Data.ID == "" || resp.Data.DefectNumber != "DEF-26-0001" || resp.Error == "" {
		t.Fatalf("response = %+v", resp)
	}
}

func TestIssueNumberOverHTTP(t *testing.T) {
	r, _ := newTestRouter(t, false)

	w := doJSON(t, r, http.MethodPost, "/api/numbers/wo", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("issue: %d %s", w.Code, w.Body.String())
	}
	if got := decode[map[string]string](t, w)["number"]; got != "WO-20260314-0001" {
		t.Fatalf("number = %q", got)
	}
	if w := doJSON(t, r, http.MethodPost, "/api/numbers/INS", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("inspection prefix: got %d", w.Code)
	}
}

func TestTimeParamCoversWholeDay(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?to=2026-03-14", nil)
	to, err := timeParam(c, "to", true)
	if err != nil {
		t.Fatalf("timeParam: %v", err)
	}
	want := time.Date(2026, 3, 14, 23, 59, 59, 999999999, time.UTC)
	if !to.Equal(want) {
		t.Fatalf("to = %s, want %s", to, want)
	}
}
