// Package quality is the QA workflow engine: inspections, defects, measurements and the
// piece status changes and cross-module notifications they cause.
package quality

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/mmdatafocus/precast_backend/config"
	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/repositories"
	"github.com/mmdatafocus/precast_backend/telemetry"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Dependencies are the stores and collaborators the engine is built from.
// Sink defaults to Notifications when nil.
type Dependencies struct {
	Inspections   repositories.InspectionRepository
	Defects       repositories.DefectRepository
	Measurements  repositories.MeasurementRepository
	Tests         repositories.TestResultRepository
	Templates     repositories.TemplateRepository
	Pieces        repositories.PieceRepository
	Jobs          repositories.JobRepository
	Notifications repositories.NotificationRepository
	Sink          repositories.NotificationSink
	IssuedNumbers repositories.IssuedNumberRepository
	Locker        repositories.Locker
	Clock         clock.Clock
	Logger        *logrus.Logger
	Tracer        trace.Tracer
}

type Service struct {
	inspections   repositories.InspectionRepository
	defects       repositories.DefectRepository
	measurements  repositories.MeasurementRepository
	tests         repositories.TestResultRepository
	pieces        repositories.PieceRepository
	jobs          repositories.JobRepository
	notifications repositories.NotificationRepository
	issuedNumbers repositories.IssuedNumberRepository

	generator   *Generator
	expander    *ChecklistExpander
	fanOut      *FanOut
	coordinator *Coordinator
	aggregator  *Aggregator

	clock  clock.Clock
	logger *logrus.Logger
	tracer trace.Tracer
}

func NewService(d Dependencies) *Service {
	if d.Clock == nil {
		d.Clock = clock.WallClock
	}
	if d.Logger == nil {
		d.Logger = config.GetLogger()
	}
	if d.Tracer == nil {
		d.Tracer = otel.Tracer("precast-qa")
	}
	sink := d.Sink
	if sink == nil {
		sink = d.Notifications
	}

	fanOut := NewFanOut(sink, d.Pieces, d.Jobs, d.Clock, d.Logger)
	return &Service{
		inspections:   d.Inspections,
		defects:       d.Defects,
		measurements:  d.Measurements,
		tests:         d.Tests,
		pieces:        d.Pieces,
		jobs:          d.Jobs,
		notifications: d.Notifications,
		issuedNumbers: d.IssuedNumbers,

		generator:   NewGenerator(d.Locker),
		expander:    NewChecklistExpander(d.Templates),
		fanOut:      fanOut,
		coordinator: NewCoordinator(d.Pieces, fanOut, d.Clock, d.Logger),
		aggregator:  NewAggregator(d.Inspections, d.Defects, d.Measurements, d.Tests, d.Pieces, d.Clock),

		clock:  d.Clock,
		logger: d.Logger,
		tracer: d.Tracer,
	}
}

// start opens a span and returns a func that records the outcome; call it with the named error.
func (s *Service) start(ctx context.Context, operation string) (context.Context, func(err error)) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "quality."+operation)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		telemetry.ObserveOperation(operation, started, err)
	}
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

func (s *Service) GetDashboardMetrics(ctx context.Context) (result *models.MetricsSummary, err error) {
	ctx, end := s.start(ctx, "GetDashboardMetrics")
	defer func() { end(err) }()
	return s.aggregator.DashboardMetrics(ctx)
}

// IssueNumber hands out a number for documents other modules own (work orders, breakdown reports).
func (s *Service) IssueNumber(ctx context.Context, prefix models.DocumentPrefix, issuedBy string) (number string, err error) {
	ctx, end := s.start(ctx, "IssueNumber")
	defer func() { end(err) }()
	if !prefix.IsValid() || prefix.Scope() != models.NumberScopeDaily {
		return "", invalidField("prefix", "numbers are only issued for work orders and breakdown reports, got "+string(prefix))
	}
	return s.generator.Reserve(ctx, s.issuedNumbers, prefix, s.now(), func(n string) error {
		return s.issuedNumbers.Insert(ctx, &models.IssuedNumber{Number: n, Prefix: string(prefix), IssuedBy: issuedBy, CreatedAt: s.now()})
	})
}

func (s *Service) ListNotifications(ctx context.Context, filter models.NotificationFilter) (result []*models.Notification, err error) {
	ctx, end := s.start(ctx, "ListNotifications")
	defer func() { end(err) }()
	return s.notifications.ListNotifications(ctx, filter)
}

func (s *Service) MarkNotificationRead(ctx context.Context, id string) (result *models.Notification, err error) {
	ctx, end := s.start(ctx, "MarkNotificationRead")
	defer func() { end(err) }()
	return s.notifications.MarkRead(ctx, id, s.now())
}
