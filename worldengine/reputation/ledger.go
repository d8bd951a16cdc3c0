package reputation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/noxhaven/world-engine/worldengine/config"
	"github.com/noxhaven/world-engine/worldengine/database/models"
	"github.com/noxhaven/world-engine/worldengine/database/repositories"
	"github.com/noxhaven/world-engine/worldengine/utils"
)

// ModifyResult reports what one ledger write actually did.
type ModifyResult struct {
	Record   *models.ReputationRecord `json:"record"`
	OldValue int                      `json:"old_value"`
	NewValue int                      `json:"new_value"`
	Clamped  bool                     `json:"clamped"`
	Standing StandingInfo             `json:"standing"`
}

// View pairs a record with its derived standing for the query surface.
type View struct {
	Record   *models.ReputationRecord `json:"record"`
	Standing StandingInfo             `json:"standing"`
}

type Service struct {
	records repositories.ReputationRepository
	log     *slog.Logger
}

func NewService(records repositories.ReputationRepository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{records: records, log: log}
}

// DimensionBounds returns the closed range a dimension may occupy.
func DimensionBounds(dim models.Dimension) (int, int, error) {
	switch dim {
	case models.DimensionHeat:
		return config.HeatMin, config.HeatMax, nil
	case models.DimensionRespect, models.DimensionFear, models.DimensionTrust:
		return config.ReputationMin, config.ReputationMax, nil
	default:
		return 0, 0, &repositories.ValidationError{
			Rule:   "dimension",
			Detail: fmt.Sprintf("unknown dimension %q", dim),
		}
	}
}

func validRelationType(t models.RelationType) bool {
	switch t {
	case models.RelationDistrict, models.RelationFaction, models.RelationCrew, models.RelationPlayer:
		return true
	}
	return false
}

// Modify applies a signed delta to one dimension of the (player, type,
// target) record, clamping to the dimension's bounds, and appends exactly one
// audit event — all in one atomic unit. Contended writes retry with jittered
// backoff before surfacing a conflict.
func (s *Service) Modify(ctx context.Context, playerID string, relType models.RelationType, targetID string, dim models.Dimension, delta int, reason, relatedPlayerID string) (*ModifyResult, error) {
	if playerID == "" || targetID == "" {
		return nil, &repositories.ValidationError{Rule: "reputation_key", Detail: "player and target are required"}
	}
	if !validRelationType(relType) {
		return nil, &repositories.ValidationError{
			Rule:   "relation_type",
			Detail: fmt.Sprintf("unknown relation type %q", relType),
		}
	}
	if reason == "" {
		return nil, &repositories.ValidationError{Rule: "reason", Detail: "a reason is required for the audit trail"}
	}
	min, max, err := DimensionBounds(dim)
	if err != nil {
		return nil, err
	}

	result := &ModifyResult{}
	err = utils.WithConflictRetry(ctx, func(ctx context.Context) error {
		rec, err := s.records.Modify(ctx, playerID, relType, targetID, func(ctx context.Context, tx repositories.TxInserter, rec *models.ReputationRecord) error {
			old := dimensionValue(rec, dim)
			next := utils.Clamp(old+delta, min, max)
			clamped := next != old+delta
			setDimension(rec, dim, next)

			result.OldValue = old
			result.NewValue = next
			result.Clamped = clamped

			return tx.Insert(ctx, &models.ReputationEvent{
				RecordID:        rec.ID,
				Dimension:       dim,
				Delta:           delta,
				OldValue:        old,
				NewValue:        next,
				Clamped:         clamped,
				Reason:          reason,
				RelatedPlayerID: relatedPlayerID,
			})
		})
		if err != nil {
			return err
		}
		result.Record = rec
		return nil
	})
	if err != nil {
		if utils.RetryableError(err) {
			return nil, &repositories.ConflictError{Entity: "reputation_record", Detail: err.Error()}
		}
		return nil, err
	}

	result.Standing = Describe(result.Record)
	return result, nil
}

func dimensionValue(rec *models.ReputationRecord, dim models.Dimension) int {
	switch dim {
	case models.DimensionRespect:
		return rec.Respect
	case models.DimensionFear:
		return rec.Fear
	case models.DimensionTrust:
		return rec.Trust
	default:
		return rec.Heat
	}
}

func setDimension(rec *models.ReputationRecord, dim models.Dimension, value int) {
	switch dim {
	case models.DimensionRespect:
		rec.Respect = value
	case models.DimensionFear:
		rec.Fear = value
	case models.DimensionTrust:
		rec.Trust = value
	default:
		rec.Heat = value
	}
}

// GetPlayerReputations lists a player's records with derived standings.
// Passing an empty relation type returns every relationship.
func (s *Service) GetPlayerReputations(ctx context.Context, playerID string, relType models.RelationType) ([]View, error) {
	if relType != "" && !validRelationType(relType) {
		return nil, &repositories.ValidationError{
			Rule:   "relation_type",
			Detail: fmt.Sprintf("unknown relation type %q", relType),
		}
	}

	records, err := s.records.ListByPlayer(ctx, playerID, relType)
	if err != nil {
		return nil, err
	}

	views := make([]View, len(records))
	for i, rec := range records {
		views[i] = View{Record: rec, Standing: Describe(rec)}
	}
	return views, nil
}

// DecayHeat reduces every record's heat dimension by step toward floor. Run
// on a schedule, never per action; re-running is safe.
func (s *Service) DecayHeat(ctx context.Context, step, floor int) (int64, error) {
	if step <= 0 {
		return 0, &repositories.ValidationError{Rule: "decay_step", Detail: "decay step must be positive"}
	}
	if floor < config.HeatMin {
		floor = config.HeatMin
	}
	affected, err := s.records.DecayHeat(ctx, step, floor)
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		s.log.Debug("Reputation heat decayed",
			slog.Int64("records", affected),
			slog.Int("step", step))
	}
	return affected, nil
}
