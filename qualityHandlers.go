package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/precast_backend/config"
	"github.com/mmdatafocus/precast_backend/middlewares"
	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/notify"
	"github.com/mmdatafocus/precast_backend/quality"
	"github.com/mmdatafocus/precast_backend/utils"
	"github.com/sirupsen/logrus"
)

type qualityHandlers struct {
	svc        *quality.Service
	dispatcher *notify.OutboxDispatcher
	logger     *logrus.Logger
}

func registerQualityRoutes(r gin.IRouter, h *qualityHandlers) {
	qc := r.Group("/api/qc")
	qc.POST("/inspections", h.createInspection)
	qc.GET("/inspections", h.listInspections)
	qc.GET("/inspections/:id", h.getInspection)
	qc.PATCH("/inspections/:id", h.updateInspection)
	qc.PATCH("/inspections/:id/checklist-items/:itemId", h.updateChecklistItem)
	qc.POST("/inspections/:id/measurements", h.recordMeasurement)
	qc.POST("/inspections/:id/sync-piece-status", h.syncInspectionPieceStatus)
	qc.PATCH("/measurements/:id", h.updateMeasurement)
	qc.POST("/defects", h.createDefect)
	qc.GET("/defects", h.listDefects)
	qc.GET("/defects/:id", h.getDefect)
	qc.PATCH("/defects/:id", h.updateDefect)
	qc.POST("/defects/:id/sync-piece-status", h.syncDefectPieceStatus)
	qc.POST("/test-results", h.recordTestResult)
	qc.GET("/dashboard", h.dashboard)

	r.GET("/api/notifications", h.listNotifications)
	r.POST("/api/notifications/:id/read", h.markNotificationRead)
	r.POST("/api/numbers/:prefix", h.issueNumber)
	r.POST("/internal/ops/notifications/requeue-dead", h.requeueDeadNotifications)
}

// inspectionView adds the piece's live status to read responses.
type inspectionView struct {
	*models.Inspection
	CurrentPieceStatus *models.PieceStatus `json:"current_piece_status,omitempty"`
}

type defectView struct {
	*models.Defect
	CurrentPieceStatus *models.PieceStatus `json:"current_piece_status,omitempty"`
}

func (h *qualityHandlers) createInspection(c *gin.Context) {
	var input models.NewInspection
	if !bindJSON(c, &input) {
		return
	}
	inspection, err := h.svc.CreateInspection(c.Request.Context(), input)
	h.respond(c, http.StatusCreated, inspection, err)
}

func (h *qualityHandlers) listInspections(c *gin.Context) {
	filter, err := inspectionFilterFromQuery(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	inspections, err := h.svc.ListInspections(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ids := make([]string, 0, len(inspections))
	for _, i := range inspections {
		if i.PieceId != nil {
			ids = append(ids, *i.PieceId)
		}
	}
	statuses := h.pieceStatuses(c.Request.Context(), ids)
	views := make([]inspectionView, 0, len(inspections))
	for _, i := range inspections {
		views = append(views, inspectionView{Inspection: i, CurrentPieceStatus: lookupStatus(statuses, i.PieceId)})
	}
	c.JSON(http.StatusOK, views)
}

func (h *qualityHandlers) getInspection(c *gin.Context) {
	ctx := c.Request.Context()
	inspection, err := h.svc.GetInspection(ctx, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inspectionView{Inspection: inspection, CurrentPieceStatus: h.pieceStatus(ctx, inspection.PieceId)})
}

func (h *qualityHandlers) updateInspection(c *gin.Context) {
	var patch models.InspectionPatch
	if !bindJSON(c, &patch) {
		return
	}
	inspection, err := h.svc.UpdateInspection(c.Request.Context(), c.Param("id"), patch)
	h.respond(c, http.StatusOK, inspection, err)
}

func (h *qualityHandlers) updateChecklistItem(c *gin.Context) {
	var patch models.ChecklistItemPatch
	if !bindJSON(c, &patch) {
		return
	}
	item, err := h.svc.UpdateChecklistItem(c.Request.Context(), c.Param("id"), c.Param("itemId"), patch)
	h.respond(c, http.StatusOK, item, err)
}

func (h *qualityHandlers) recordMeasurement(c *gin.Context) {
	var input models.NewMeasurement
	if !bindJSON(c, &input) {
		return
	}
	m, err := h.svc.RecordMeasurement(c.Request.Context(), c.Param("id"), input)
	h.respond(c, http.StatusCreated, m, err)
}

func (h *qualityHandlers) updateMeasurement(c *gin.Context) {
	var patch models.MeasurementPatch
	if !bindJSON(c, &patch) {
		return
	}
	m, err := h.svc.UpdateMeasurement(c.Request.Context(), c.Param("id"), patch)
	h.respond(c, http.StatusOK, m, err)
}

func (h *qualityHandlers) syncInspectionPieceStatus(c *gin.Context) {
	inspection, err := h.svc.SyncInspectionPieceStatus(c.Request.Context(), c.Param("id"))
	h.respond(c, http.StatusOK, inspection, err)
}

func (h *qualityHandlers) createDefect(c *gin.Context) {
	var input models.NewDefect
	if !bindJSON(c, &input) {
		return
	}
	defect, err := h.svc.CreateDefect(c.Request.Context(), input)
	h.respond(c, http.StatusCreated, defect, err)
}

func (h *qualityHandlers) listDefects(c *gin.Context) {
	filter, err := defectFilterFromQuery(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	defects, err := h.svc.ListDefects(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ids := make([]string, 0, len(defects))
	for _, d := range defects {
		ids = append(ids, d.PieceId)
	}
	statuses := h.pieceStatuses(c.Request.Context(), ids)
	views := make([]defectView, 0, len(defects))
	for _, d := range defects {
		pieceId := d.PieceId
		views = append(views, defectView{Defect: d, CurrentPieceStatus: lookupStatus(statuses, &pieceId)})
	}
	c.JSON(http.StatusOK, views)
}

func (h *qualityHandlers) getDefect(c *gin.Context) {
	ctx := c.Request.Context()
	defect, err := h.svc.GetDefect(ctx, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, defectView{Defect: defect, CurrentPieceStatus: h.pieceStatus(ctx, &defect.PieceId)})
}

func (h *qualityHandlers) updateDefect(c *gin.Context) {
	var patch models.DefectPatch
	if !bindJSON(c, &patch) {
		return
	}
	defect, err := h.svc.UpdateDefect(c.Request.Context(), c.Param("id"), patch)
	h.respond(c, http.StatusOK, defect, err)
}

func (h *qualityHandlers) syncDefectPieceStatus(c *gin.Context) {
	defect, err := h.svc.SyncDefectPieceStatus(c.Request.Context(), c.Param("id"))
	h.respond(c, http.StatusOK, defect, err)
}

func (h *qualityHandlers) recordTestResult(c *gin.Context) {
	var input models.NewTestResult
	if !bindJSON(c, &input) {
		return
	}
	result, err := h.svc.RecordTestResult(c.Request.Context(), input)
	h.respond(c, http.StatusCreated, result, err)
}

func (h *qualityHandlers) dashboard(c *gin.Context) {
	summary, err := h.svc.GetDashboardMetrics(c.Request.Context())
	h.respond(c, http.StatusOK, summary, err)
}

func (h *qualityHandlers) listNotifications(c *gin.Context) {
	var filter models.NotificationFilter
	if v := c.Query("target_module"); v != "" {
		module, err := models.ParseModule(v)
		if err != nil {
			h.respondError(c, utils.NewValidationError("target_module: %v", err))
			return
		}
		filter.TargetModule = &module
	}
	if v := c.Query("entity_id"); v != "" {
		filter.EntityId = &v
	}
	if v := c.Query("unread"); v != "" {
		unread, err := strconv.ParseBool(v)
		if err != nil {
			h.respondError(c, utils.NewValidationError("unread must be true or false"))
			return
		}
		filter.UnreadOnly = unread
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			h.respondError(c, utils.NewValidationError("limit must be a non-negative integer"))
			return
		}
		filter.Limit = limit
	}
	notifications, err := h.svc.ListNotifications(c.Request.Context(), filter)
	h.respond(c, http.StatusOK, notifications, err)
}

func (h *qualityHandlers) markNotificationRead(c *gin.Context) {
	n, err := h.svc.MarkNotificationRead(c.Request.Context(), c.Param("id"))
	h.respond(c, http.StatusOK, n, err)
}

func (h *qualityHandlers) issueNumber(c *gin.Context) {
	prefix := models.DocumentPrefix(strings.ToUpper(c.Param("prefix")))
	number, err := h.svc.IssueNumber(c.Request.Context(), prefix, utils.ActorFromContext(c.Request.Context()))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"number": number})
}

func (h *qualityHandlers) requeueDeadNotifications(c *gin.Context) {
	if h.dispatcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "outbox dispatcher is not running"})
		return
	}
	count, err := h.dispatcher.RequeueDead(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requeued": count})
}

func bindJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return false
	}
	return true
}

// respond writes body with status. A StatusSyncError still carries the saved entity.
func (h *qualityHandlers) respond(c *gin.Context, status int, body any, err error) {
	var syncErr *utils.StatusSyncError
	switch {
	case err == nil:
		c.JSON(status, body)
	case errors.As(err, &syncErr):
		config.LogWarn(h.logger, "server", "respond", c.FullPath(), map[string]string{
			"resource": syncErr.Resource,
			"id":       syncErr.Id,
			"piece_id": syncErr.PieceId,
		}, err)
		c.JSON(http.StatusMultiStatus, gin.H{"data": body, "error": err.Error()})
	default:
		h.respondError(c, err)
	}
}

func (h *qualityHandlers) respondError(c *gin.Context, err error) {
	var validationErr *utils.ValidationError
	switch {
	case errors.As(err, &validationErr):
		body := gin.H{"error": validationErr.Error()}
		if len(validationErr.Fields) > 0 {
			body["fields"] = validationErr.Fields
		}
		c.JSON(http.StatusBadRequest, body)
	case utils.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case utils.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		config.LogError(h.logger, "server", "respondError", c.FullPath(), nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// pieceStatuses is best effort: list responses still go out without live statuses.
func (h *qualityHandlers) pieceStatuses(ctx context.Context, ids []string) map[string]models.PieceStatus {
	if middlewares.For(ctx) == nil {
		return nil
	}
	statuses, err := middlewares.GetPieceStatuses(ctx, utils.UniqueSlice(ids))
	if err != nil {
		config.LogWarn(h.logger, "server", "pieceStatuses", "GetPieceStatuses", ids, err)
		return nil
	}
	return statuses
}

func (h *qualityHandlers) pieceStatus(ctx context.Context, pieceId *string) *models.PieceStatus {
	if pieceId == nil || *pieceId == "" || middlewares.For(ctx) == nil {
		return nil
	}
	piece, err := middlewares.GetPiece(ctx, *pieceId)
	if err != nil {
		config.LogWarn(h.logger, "server", "pieceStatus", "GetPiece", *pieceId, err)
		return nil
	}
	if piece == nil {
		return nil
	}
	return &piece.Status
}

func lookupStatus(statuses map[string]models.PieceStatus, pieceId *string) *models.PieceStatus {
	if pieceId == nil {
		return nil
	}
	status, ok := statuses[*pieceId]
	if !ok {
		return nil
	}
	return &status
}

func inspectionFilterFromQuery(c *gin.Context) (models.InspectionFilter, error) {
	filter := models.InspectionFilter{Search: c.Query("search")}
	if v := c.Query("type"); v != "" {
		t, err := models.ParseInspectionType(v)
		if err != nil {
			return filter, utils.NewValidationError("type: %v", err)
		}
		filter.Type = &t
	}
	if v := c.Query("status"); v != "" {
		s, err := models.ParseInspectionStatus(v)
		if err != nil {
			return filter, utils.NewValidationError("status: %v", err)
		}
		filter.Status = &s
	}
	if v := c.Query("job_id"); v != "" {
		filter.JobId = &v
	}
	if v := c.Query("piece_id"); v != "" {
		filter.PieceId = &v
	}
	var err error
	if filter.From, err = timeParam(c, "from", false); err != nil {
		return filter, err
	}
	if filter.To, err = timeParam(c, "to", true); err != nil {
		return filter, err
	}
	return filter, nil
}

func defectFilterFromQuery(c *gin.Context) (models.DefectFilter, error) {
	filter := models.DefectFilter{Search: c.Query("search")}
	if v := c.Query("status"); v != "" {
		s, err := models.ParseDefectStatus(v)
		if err != nil {
			return filter, utils.NewValidationError("status: %v", err)
		}
		filter.Status = &s
	}
	if v := c.Query("severity"); v != "" {
		s, err := models.ParseSeverity(v)
		if err != nil {
			return filter, utils.NewValidationError("severity: %v", err)
		}
		filter.Severity = &s
	}
	for key, dest := range map[string]**string{
		"category":      &filter.Category,
		"job_id":        &filter.JobId,
		"piece_id":      &filter.PieceId,
		"inspection_id": &filter.InspectionId,
	} {
		if v := c.Query(key); v != "" {
			value := v
			*dest = &value
		}
	}
	return filter, nil
}

// timeParam accepts RFC3339 or a plain date. A plain date used as an upper bound covers the whole day.
func timeParam(c *gin.Context, key string, endOfDay bool) (*time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, utils.NewValidationError("%s must be RFC3339 or YYYY-MM-DD", key)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
