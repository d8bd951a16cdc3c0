package ecosystem

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/noxhaven/world-engine/worldengine/config"
	"github.com/noxhaven/world-engine/worldengine/database/models"
	"github.com/noxhaven/world-engine/worldengine/database/repositories"
	"github.com/noxhaven/world-engine/worldengine/utils"
	"golang.org/x/sync/errgroup"
)

const aggregationParallelism = 4

// RecordEventParams carries everything a game-action handler knows about the
// fact it is reporting.
type RecordEventParams struct {
	DistrictID int64
	Type       models.DistrictEventType
	Severity   int
	ActorID    string
	TargetID   string
	CrewID     string
	Payload    *models.EventPayload
}

type Service struct {
	districts repositories.DistrictRepository
	log       *slog.Logger
}

func NewService(districts repositories.DistrictRepository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{districts: districts, log: log}
}

// RecordEvent resolves the event's metric impacts and appends it to the
// district's fact log. High-severity events additionally trigger an immediate
// aggregation of that district so the world reacts without waiting for the
// next sweep.
func (s *Service) RecordEvent(ctx context.Context, params RecordEventParams) (*models.DistrictEvent, error) {
	if params.Severity < config.SeverityMin || params.Severity > config.SeverityMax {
		return nil, &repositories.ValidationError{
			Rule:   "severity_range",
			Detail: fmt.Sprintf("severity %d outside [%d,%d]", params.Severity, config.SeverityMin, config.SeverityMax),
		}
	}
	if params.Type == "" {
		return nil, &repositories.ValidationError{Rule: "event_type", Detail: "event type is required"}
	}

	// The district must exist; events against unknown districts are a
	// caller bug, not a lazily created row.
	if _, err := s.districts.GetByID(ctx, params.DistrictID); err != nil {
		return nil, err
	}

	impacts := ResolveImpacts(params.Type, params.Severity)
	event := &models.DistrictEvent{
		DistrictID:     params.DistrictID,
		Type:           params.Type,
		Severity:       params.Severity,
		ActorID:        params.ActorID,
		TargetID:       params.TargetID,
		CrewID:         params.CrewID,
		Payload:        params.Payload,
		CrimeImpact:    impacts.Crime,
		PoliceImpact:   impacts.Police,
		PropertyImpact: impacts.Property,
		BusinessImpact: impacts.Business,
		ActivityImpact: impacts.Activity,
		TensionImpact:  impacts.Tension,
	}

	if err := s.districts.InsertEvent(ctx, event); err != nil {
		return nil, err
	}

	if params.Severity >= config.ImmediateAggregationSeverity {
		if _, err := s.AggregateDistrict(ctx, params.DistrictID); err != nil {
			// The event is durably recorded; the periodic sweep will fold
			// it if the immediate pass lost a race.
			s.log.Warn("Immediate aggregation failed",
				slog.Int64("district_id", params.DistrictID),
				slog.Any("error", err))
		}
	}

	return event, nil
}

// RunAggregation folds all unprocessed events into their districts. Safe to
// run concurrently with event inserts and with itself: each district run
// claims its rows with SKIP LOCKED. Returns the number of events folded.
func (s *Service) RunAggregation(ctx context.Context) (int, error) {
	ids, err := s.districts.DistrictIDsWithUnprocessed(ctx)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	var g errgroup.Group
	g.SetLimit(aggregationParallelism)
	counts := make([]int, len(ids))

	for i, id := range ids {
		g.Go(func() error {
			n, err := s.AggregateDistrict(ctx, id)
			if err != nil {
				return fmt.Errorf("district %d: %w", id, err)
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	return total, nil
}

// AggregateDistrict folds one district's unprocessed events into its state
// and reclassifies the status. A no-op when nothing is pending.
func (s *Service) AggregateDistrict(ctx context.Context, districtID int64) (int, error) {
	var processed int
	err := utils.WithConflictRetry(ctx, func(ctx context.Context) error {
		var err error
		processed, err = s.districts.AggregateUnprocessed(ctx, districtID, s.fold)
		return err
	})
	if err != nil {
		if utils.RetryableError(err) {
			return 0, &repositories.ConflictError{Entity: "district", Detail: err.Error()}
		}
		return 0, err
	}
	if processed > 0 {
		s.log.Debug("District aggregated",
			slog.Int64("district_id", districtID),
			slog.Int("events", processed))
	}
	return processed, nil
}

func (s *Service) fold(d *models.District, events []*models.DistrictEvent) error {
	var sum Impacts
	for _, e := range events {
		sum.Add(Impacts{
			Crime:    e.CrimeImpact,
			Police:   e.PoliceImpact,
			Property: e.PropertyImpact,
			Business: e.BusinessImpact,
			Activity: e.ActivityImpact,
			Tension:  e.TensionImpact,
		})
	}

	d.CrimeIndex = utils.Clamp(d.CrimeIndex+sum.Crime, config.MetricMin, config.MetricMax)
	d.PolicePresence = utils.Clamp(d.PolicePresence+sum.Police, config.MetricMin, config.MetricMax)
	d.PropertyValues = utils.Clamp(d.PropertyValues+sum.Property, config.MetricMin, config.MetricMax)
	d.BusinessHealth = utils.Clamp(d.BusinessHealth+sum.Business, config.MetricMin, config.MetricMax)
	d.StreetActivity = utils.Clamp(d.StreetActivity+sum.Activity, config.MetricMin, config.MetricMax)
	d.CrewTension = utils.Clamp(d.CrewTension+sum.Tension, config.MetricMin, config.MetricMax)

	now := time.Now()
	d.LastCalculated = now
	if next := ClassifyStatus(d); next != d.Status {
		d.Status = next
		d.StatusChangedAt = now
	}
	return nil
}

// GetDistrictState returns the current continuous state of one district.
func (s *Service) GetDistrictState(ctx context.Context, id int64) (*models.District, error) {
	return s.districts.GetByID(ctx, id)
}

// Seed creates districts that do not exist yet. Called once at world-seed
// time; existing districts are left untouched.
func (s *Service) Seed(ctx context.Context, names []string) error {
	existing, err := s.districts.GetAll(ctx)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, d := range existing {
		have[d.Name] = true
	}

	for _, name := range names {
		if have[name] {
			continue
		}
		d := &models.District{
			Name:           name,
			PropertyValues: 50,
			BusinessHealth: 50,
			Status:         models.DistrictStatusStable,
		}
		if err := s.districts.Create(ctx, d); err != nil {
			return fmt.Errorf("failed to seed district %q: %w", name, err)
		}
		s.log.Info("District seeded", slog.String("name", name))
	}
	return nil
}
