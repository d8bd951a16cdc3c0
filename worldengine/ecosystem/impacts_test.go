package ecosystem

import (
	"testing"

	"github.com/noxhaven/world-engine/worldengine/database/models"
)

func TestResolveImpacts(t *testing.T) {
	tests := []struct {
		name      string
		eventType models.DistrictEventType
		severity  int
		want      Impacts
	}{
		{
			name:      "crime committed",
			eventType: models.EventCrimeCommitted,
			severity:  5,
			want:      Impacts{Crime: 10, Police: 5},
		},
		{
			name:      "crew battle severity 7",
			eventType: models.EventCrewBattle,
			severity:  7,
			want:      Impacts{Crime: 21, Police: 14, Business: -7},
		},
		{
			name:      "heist executed",
			eventType: models.EventHeistExecuted,
			severity:  3,
			want:      Impacts{Crime: 12, Police: 9},
		},
		{
			name:      "police raid lowers crime and raises tension",
			eventType: models.EventPoliceRaid,
			severity:  4,
			want:      Impacts{Police: 12, Crime: -8, Tension: 4},
		},
		{
			name:      "player attacked doubles into tension",
			eventType: models.EventPlayerAttacked,
			severity:  3,
			want:      Impacts{Crime: 6, Activity: -3, Tension: 6},
		},
		{
			name:      "territory claimed",
			eventType: models.EventTerritoryClaimed,
			severity:  2,
			want:      Impacts{Tension: 4, Activity: 2},
		},
		{
			name:      "economic crash",
			eventType: models.EventEconomicCrash,
			severity:  5,
			want:      Impacts{Business: -15, Property: -10, Activity: -5},
		},
		{
			name:      "unmapped type counts as background activity",
			eventType: models.DistrictEventType("street_race"),
			severity:  9,
			want:      Impacts{Activity: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveImpacts(tt.eventType, tt.severity)
			if got != tt.want {
				t.Errorf("ResolveImpacts(%s, %d) = %+v, want %+v", tt.eventType, tt.severity, got, tt.want)
			}
		})
	}
}

func TestImpactsAdd(t *testing.T) {
	sum := Impacts{}
	sum.Add(Impacts{Crime: 4, Police: 2, Tension: 1})
	sum.Add(Impacts{Crime: -1, Business: 3, Tension: 2})

	want := Impacts{Crime: 3, Police: 2, Business: 3, Tension: 3}
	if sum != want {
		t.Errorf("Add accumulated %+v, want %+v", sum, want)
	}
}
