package ecosystem

import (
	"github.com/noxhaven/world-engine/worldengine/database/models"
)

// Impacts are the signed per-metric deltas one event contributes when it is
// folded into district state.
type Impacts struct {
	Crime    int
	Police   int
	Property int
	Business int
	Activity int
	Tension  int
}

// ResolveImpacts maps (event type, severity) to metric deltas through a fixed
// table. Unmapped types count as background street activity.
func ResolveImpacts(eventType models.DistrictEventType, severity int) Impacts {
	s := severity
	switch eventType {
	case models.EventCrimeCommitted:
		return Impacts{Crime: 2 * s, Police: s}
	case models.EventPropertyBought:
		return Impacts{Property: 2 * s, Business: s}
	case models.EventPropertySold:
		return Impacts{Property: -s, Activity: s}
	case models.EventCrewBattle:
		return Impacts{Crime: 3 * s, Police: 2 * s, Business: -s}
	case models.EventBusinessOpened:
		return Impacts{Business: 2 * s, Property: s}
	case models.EventBusinessClosed:
		return Impacts{Business: -2 * s, Property: -s}
	case models.EventPlayerAttacked:
		return Impacts{Crime: 2 * s, Activity: -s, Tension: 2 * s}
	case models.EventPoliceRaid:
		return Impacts{Police: 3 * s, Crime: -2 * s, Tension: s}
	case models.EventTerritoryClaimed:
		return Impacts{Tension: 2 * s, Activity: s}
	case models.EventTerritoryLost:
		return Impacts{Tension: 2 * s, Activity: -s}
	case models.EventHeistExecuted:
		return Impacts{Crime: 4 * s, Police: 3 * s}
	case models.EventDrugBust:
		return Impacts{Police: 2 * s, Crime: -s, Business: -s}
	case models.EventGentrification:
		return Impacts{Property: 2 * s, Business: s, Crime: -s}
	case models.EventEconomicBoost:
		return Impacts{Business: 2 * s, Property: s, Activity: s}
	case models.EventEconomicCrash:
		return Impacts{Business: -3 * s, Property: -2 * s, Activity: -s}
	default:
		return Impacts{Activity: 1}
	}
}

// Add accumulates other into i.
func (i *Impacts) Add(other Impacts) {
	i.Crime += other.Crime
	i.Police += other.Police
	i.Property += other.Property
	i.Business += other.Business
	i.Activity += other.Activity
	i.Tension += other.Tension
}
