package reputation

import (
	"testing"

	"github.com/noxhaven/world-engine/worldengine/database/models"
)

func TestStandingFor(t *testing.T) {
	tests := []struct {
		score int
		want  Standing
	}{
		{250, StandingLegendary},
		{200, StandingLegendary},
		{199, StandingRenowned},
		{120, StandingRenowned},
		{119, StandingWellKnown},
		{60, StandingWellKnown},
		{59, StandingRecognized},
		{20, StandingRecognized},
		{19, StandingUnknown},
		{0, StandingUnknown},
		{-19, StandingUnknown},
		{-20, StandingDistrusted},
		{-99, StandingDistrusted},
		{-100, StandingDespised},
		{-300, StandingDespised},
	}
	for _, tt := range tests {
		if got := StandingFor(tt.score); got != tt.want {
			t.Errorf("StandingFor(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestCombinedScore(t *testing.T) {
	rec := &models.ReputationRecord{Respect: 40, Fear: 30, Trust: 20, Heat: 25}
	if got := CombinedScore(rec); got != 65 {
		t.Errorf("CombinedScore = %d, want 65", got)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name          string
		rec           models.ReputationRecord
		wantStanding  Standing
		wantSecondary string
	}{
		{
			name:          "feared enforcer",
			rec:           models.ReputationRecord{Respect: 10, Fear: 60, Trust: 5},
			wantStanding:  StandingWellKnown,
			wantSecondary: LabelFeared,
		},
		{
			name:          "trusted fixer",
			rec:           models.ReputationRecord{Respect: 10, Fear: 5, Trust: 50},
			wantStanding:  StandingWellKnown,
			wantSecondary: LabelTrusted,
		},
		{
			name:          "no dimension pronounced enough",
			rec:           models.ReputationRecord{Respect: 20, Fear: 10, Trust: 10},
			wantStanding:  StandingRecognized,
			wantSecondary: "",
		},
		{
			name:          "legendary has no secondary",
			rec:           models.ReputationRecord{Respect: 100, Fear: 80, Trust: 40},
			wantStanding:  StandingLegendary,
			wantSecondary: "",
		},
		{
			name:          "despised has no secondary",
			rec:           models.ReputationRecord{Respect: -100, Fear: 40, Trust: -60},
			wantStanding:  StandingDespised,
			wantSecondary: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := Describe(&tt.rec)
			if info.Standing != tt.wantStanding {
				t.Errorf("standing = %s, want %s", info.Standing, tt.wantStanding)
			}
			if info.Secondary != tt.wantSecondary {
				t.Errorf("secondary = %q, want %q", info.Secondary, tt.wantSecondary)
			}
		})
	}
}
