package worldengine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/noxhaven/world-engine/worldengine/api"
	"github.com/noxhaven/world-engine/worldengine/archive"
	"github.com/noxhaven/world-engine/worldengine/database"
	"github.com/noxhaven/world-engine/worldengine/database/models"
	"github.com/noxhaven/world-engine/worldengine/database/repositories"
	"github.com/noxhaven/world-engine/worldengine/debt"
	"github.com/noxhaven/world-engine/worldengine/ecosystem"
	"github.com/noxhaven/world-engine/worldengine/logger"
	"github.com/noxhaven/world-engine/worldengine/reputation"
	"github.com/noxhaven/world-engine/worldengine/scheduler"
	"github.com/noxhaven/world-engine/worldengine/surveillance"
)

// World wires the persistence layer, the domain services, and the periodic
// jobs into one runnable unit.
type World struct {
	DB *database.DB

	Ecosystem    *ecosystem.Service
	Surveillance *surveillance.Service
	Reputation   *reputation.Service
	Debts        *debt.Service

	Scheduler *scheduler.Scheduler
	API       *api.Server

	cfg      *Config
	exporter *archive.Exporter
	log      *slog.Logger
}

func NewWorld(ctx context.Context, cfg *Config, log *slog.Logger) (*World, error) {
	if log == nil {
		log = slog.Default()
	}

	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.InitializeSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	bunDB := db.BunDB()
	districtRepo := repositories.NewDistrictRepository(bunDB)
	surveillanceRepo := repositories.NewSurveillanceRepository(bunDB)
	pursuitRepo := repositories.NewPursuitRepository(bunDB)
	reputationRepo := repositories.NewReputationRepository(bunDB)
	debtRepo := repositories.NewDebtRepository(bunDB)
	offerRepo := repositories.NewOfferRepository(bunDB)

	w := &World{
		DB:           db,
		Ecosystem:    ecosystem.NewService(districtRepo, log),
		Surveillance: surveillance.NewService(surveillanceRepo, pursuitRepo, log),
		Reputation:   reputation.NewService(reputationRepo, log),
		Debts:        debt.NewService(debtRepo, offerRepo, log),
		Scheduler:    scheduler.New(),
		cfg:          cfg,
		log:          log,
	}

	if cfg.Archive.Enabled {
		exporter, err := archive.NewExporter(
			cfg.Archive.Key, cfg.Archive.Secret, cfg.Archive.Region,
			cfg.Archive.Bucket, cfg.Archive.Prefix,
			districtRepo, reputationRepo, log)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize archive exporter: %w", err)
		}
		w.exporter = exporter
	}

	w.API, err = api.NewServer(cfg.API.Addr, w.Ecosystem, w.Surveillance, w.Reputation, w.Debts, log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize API server: %w", err)
	}

	return w, nil
}

// FulfillDebt settles a debt and credits the debtor's trust with the creditor.
func (w *World) FulfillDebt(ctx context.Context, debtID int64, callerID string) (*debt.TransitionResult, error) {
	result, err := w.Debts.Fulfill(ctx, debtID, callerID)
	if err != nil {
		return nil, err
	}

	d := result.Debt
	reason := fmt.Sprintf("fulfilled debt %d", d.ID)
	if _, err := w.Reputation.Modify(ctx, d.DebtorID, models.RelationPlayer, d.CreditorID,
		models.DimensionTrust, result.TrustBonus, reason, d.CreditorID); err != nil {
		// The debt is settled either way; the missing trust credit is worth
		// a log line, not a rollback.
		w.log.Warn("Trust bonus not applied",
			slog.Int64("debt_id", d.ID),
			slog.Any("error", err))
	}
	return result, nil
}

// DefaultDebt marks a debt broken and docks the debtor's trust with the
// creditor.
func (w *World) DefaultDebt(ctx context.Context, debtID int64, reason string) (*debt.TransitionResult, error) {
	result, err := w.Debts.Default(ctx, debtID, reason)
	if err != nil {
		return nil, err
	}

	d := result.Debt
	auditReason := fmt.Sprintf("defaulted on debt %d", d.ID)
	if _, err := w.Reputation.Modify(ctx, d.DebtorID, models.RelationPlayer, d.CreditorID,
		models.DimensionTrust, -result.TrustPenalty, auditReason, d.CreditorID); err != nil {
		w.log.Warn("Trust penalty not applied",
			slog.Int64("debt_id", d.ID),
			slog.Any("error", err))
	}
	return result, nil
}

// StartJobs registers every periodic world job on the scheduler.
func (w *World) StartJobs() {
	jobs := w.cfg.Jobs

	w.Scheduler.Register("district_aggregation", jobs.AggregationInterval, func(ctx context.Context) error {
		_, err := w.Ecosystem.RunAggregation(ctx)
		return err
	})

	w.Scheduler.Register("player_heat_decay", jobs.HeatDecayInterval, func(ctx context.Context) error {
		_, err := w.Surveillance.DecayHeat(ctx, jobs.HeatDecayStep, jobs.HeatDecayFloor)
		return err
	})

	w.Scheduler.Register("reputation_heat_decay", jobs.HeatDecayInterval, func(ctx context.Context) error {
		_, err := w.Reputation.DecayHeat(ctx, jobs.HeatDecayStep, jobs.HeatDecayFloor)
		return err
	})

	w.Scheduler.Register("pursuit_sweep", jobs.PursuitSweepInterval, func(ctx context.Context) error {
		_, err := w.Surveillance.SweepTimeouts(ctx, jobs.PursuitInactivity)
		return err
	})

	w.Scheduler.Register("offer_expiry", jobs.OfferExpiryInterval, func(ctx context.Context) error {
		_, err := w.Debts.ExpireOffers(ctx)
		return err
	})

	if w.exporter != nil {
		w.Scheduler.Register("audit_archive", jobs.ArchiveInterval, func(ctx context.Context) error {
			return w.exporter.Run(ctx, jobs.ArchiveRetention)
		})
	}

	logger.LogSystem("World jobs started")
}

// Shutdown stops the jobs and the API, then closes the database.
func (w *World) Shutdown(timeout time.Duration) {
	if err := w.Scheduler.Shutdown(timeout); err != nil {
		logger.LogError("Scheduler shutdown incomplete", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := w.API.Stop(ctx); err != nil {
		logger.LogError("API shutdown failed", err)
	}

	w.DB.Close()
	logger.LogSystem("World stopped")
}
