package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/juju/clock"
	"github.com/mmdatafocus/precast_backend/config"
	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/quality"
	"github.com/mmdatafocus/precast_backend/repositories/gormstore"
	"github.com/mmdatafocus/precast_backend/utils"
	"github.com/sirupsen/logrus"
)

// pieceSyncer is the part of quality.Service this tool drives.
type pieceSyncer interface {
	ListInspections(ctx context.Context, filter models.InspectionFilter) ([]*models.Inspection, error)
	SyncInspectionPieceStatus(ctx context.Context, id string) (*models.Inspection, error)
	ListDefects(ctx context.Context, filter models.DefectFilter) ([]*models.Defect, error)
	SyncDefectPieceStatus(ctx context.Context, id string) (*models.Defect, error)
}

type syncReport struct {
	Candidates int
	Synced     int
	Failed     int
}

func main() {
	since := flag.Duration("since", 7*24*time.Hour, "Only pieces whose newest outcome falls within this window")
	dryRun := flag.Bool("dry-run", false, "List candidates without writing piece statuses")
	flag.Parse()

	logger := config.GetLogger()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	pieces := gormstore.NewPieceStore(db)
	svc := quality.NewService(quality.Dependencies{
		Inspections:   gormstore.NewInspectionStore(db),
		Defects:       gormstore.NewDefectStore(db),
		Measurements:  gormstore.NewMeasurementStore(db),
		Tests:         gormstore.NewTestResultStore(db),
		Templates:     gormstore.NewTemplateStore(db, logger),
		Pieces:        pieces,
		Jobs:          pieces,
		Notifications: gormstore.NewNotificationStore(db),
		IssuedNumbers: gormstore.NewIssuedNumberStore(db),
		Clock:         clock.WallClock,
		Logger:        logger,
	})

	ctx := utils.SetUserNameInContext(context.Background(), "PieceStatusSync")
	ctx = utils.SetCorrelationIdInContext(ctx, utils.CorrelationIdFromContextOrNew(context.Background()))
	from := time.Now().UTC().Add(-*since)

	report, err := syncPieceStatuses(ctx, svc, from, *dryRun, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "piece status sync failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("candidates=%d synced=%d failed=%d dry_run=%t\n", report.Candidates, report.Synced, report.Failed, *dryRun)
	if report.Failed > 0 {
		os.Exit(1)
	}
}

// pieceOutcome is the stored result that currently decides a piece's status.
type pieceOutcome struct {
	PieceId    string
	Target     models.PieceStatus
	At         time.Time
	Inspection *models.Inspection
	Defect     *models.Defect
}

func (o pieceOutcome) label() string {
	if o.Inspection != nil {
		return "inspection " + o.Inspection.InspectionNumber
	}
	return "defect " + o.Defect.DefectNumber
}

func inspectionOutcomeTime(i *models.Inspection) time.Time {
	if i.CompletedAt != nil {
		return *i.CompletedAt
	}
	return i.UpdatedAt
}

// defectOutcomeTime is when the defect started implying its target: the passed
// repair inspection, the rejection, or the report of a critical defect.
func defectOutcomeTime(d *models.Defect) time.Time {
	switch {
	case d.RepairPassed():
		if d.InspectedAfterRepairAt != nil {
			return *d.InspectedAfterRepairAt
		}
		return d.UpdatedAt
	case d.Status == models.DefectStatusRejected:
		return d.UpdatedAt
	}
	return d.CreatedAt
}

// latestOutcomes keeps the newest status-deciding outcome per piece. On equal
// times the inspection wins.
func latestOutcomes(inspections []*models.Inspection, defects []*models.Defect) map[string]pieceOutcome {
	latest := make(map[string]pieceOutcome)
	consider := func(o pieceOutcome) {
		if cur, ok := latest[o.PieceId]; !ok || o.At.After(cur.At) {
			latest[o.PieceId] = o
		}
	}
	for _, i := range inspections {
		if i.PieceId == nil || *i.PieceId == "" {
			continue
		}
		target, ok := quality.InspectionOutcome(i.Type, i.Status)
		if !ok {
			continue
		}
		consider(pieceOutcome{PieceId: *i.PieceId, Target: target, At: inspectionOutcomeTime(i), Inspection: i})
	}
	for _, d := range defects {
		if d.PieceId == "" {
			continue
		}
		target, ok := quality.DefectSyncTarget(*d)
		if !ok {
			continue
		}
		consider(pieceOutcome{PieceId: d.PieceId, Target: target, At: defectOutcomeTime(d), Defect: d})
	}
	return latest
}

// syncPieceStatuses re-runs the status sync for the newest outcome of every piece
// decided at or after from. Older outcomes of the same piece are never replayed.
func syncPieceStatuses(ctx context.Context, svc pieceSyncer, from time.Time, dryRun bool, logger *logrus.Logger) (syncReport, error) {
	var report syncReport

	var inspections []*models.Inspection
	for _, status := range []models.InspectionStatus{models.InspectionStatusPassed, models.InspectionStatusFailed} {
		status := status
		found, err := svc.ListInspections(ctx, models.InspectionFilter{Status: &status})
		if err != nil {
			return report, err
		}
		inspections = append(inspections, found...)
	}
	defects, err := svc.ListDefects(ctx, models.DefectFilter{})
	if err != nil {
		return report, err
	}

	latest := latestOutcomes(inspections, defects)
	pieceIds := make([]string, 0, len(latest))
	for id, o := range latest {
		if !o.At.Before(from) {
			pieceIds = append(pieceIds, id)
		}
	}
	sort.Strings(pieceIds)

	for _, pieceId := range pieceIds {
		o := latest[pieceId]
		report.Candidates++
		if dryRun {
			fmt.Printf("%s piece=%s target=%s at=%s\n", o.label(), pieceId, o.Target, o.At.Format(time.RFC3339))
			continue
		}
		var syncErr error
		if o.Inspection != nil {
			_, syncErr = svc.SyncInspectionPieceStatus(ctx, o.Inspection.ID)
		} else {
			_, syncErr = svc.SyncDefectPieceStatus(ctx, o.Defect.ID)
		}
		if syncErr != nil {
			report.Failed++
			config.LogError(logger, "piece-status-sync", "syncPieceStatuses", o.label(), map[string]string{
				"piece_id": pieceId,
				"target":   string(o.Target),
			}, syncErr)
			continue
		}
		report.Synced++
	}
	return report, nil
}
