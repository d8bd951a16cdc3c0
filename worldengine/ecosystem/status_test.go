package ecosystem

import (
	"testing"

	"github.com/noxhaven/world-engine/worldengine/database/models"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name string
		d    models.District
		want models.DistrictStatus
	}{
		{
			name: "fresh district is stable",
			d:    models.District{PropertyValues: 50, BusinessHealth: 50},
			want: models.DistrictStatusStable,
		},
		{
			name: "warzone at high crime and tension",
			d:    models.District{CrimeIndex: 70, CrewTension: 60, PropertyValues: 50, BusinessHealth: 50},
			want: models.DistrictStatusWarzone,
		},
		{
			name: "warzone outranks volatile",
			d:    models.District{CrimeIndex: 80, CrewTension: 70, PropertyValues: 50, BusinessHealth: 50},
			want: models.DistrictStatusWarzone,
		},
		{
			name: "volatile below warzone thresholds",
			d:    models.District{CrimeIndex: 55, CrewTension: 40, PropertyValues: 50, BusinessHealth: 50},
			want: models.DistrictStatusVolatile,
		},
		{
			name: "high crime alone is not volatile",
			d:    models.District{CrimeIndex: 60, CrewTension: 39, PropertyValues: 50, BusinessHealth: 50},
			want: models.DistrictStatusStable,
		},
		{
			name: "gentrifying needs low crime",
			d:    models.District{PropertyValues: 70, BusinessHealth: 65, CrimeIndex: 40},
			want: models.DistrictStatusGentrifying,
		},
		{
			name: "crime at 41 blocks gentrifying",
			d:    models.District{PropertyValues: 70, BusinessHealth: 65, CrimeIndex: 41},
			want: models.DistrictStatusStable,
		},
		{
			name: "declining on dead economy",
			d:    models.District{BusinessHealth: 35, PropertyValues: 40},
			want: models.DistrictStatusDeclining,
		},
		{
			name: "warzone outranks declining",
			d:    models.District{CrimeIndex: 90, CrewTension: 80, BusinessHealth: 10, PropertyValues: 10},
			want: models.DistrictStatusWarzone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyStatus(&tt.d); got != tt.want {
				t.Errorf("ClassifyStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}
