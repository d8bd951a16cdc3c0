package ecosystem

import (
	"github.com/noxhaven/world-engine/worldengine/database/models"
)

// ClassifyStatus derives the discrete district status from the continuous
// metrics. The ladder is ordered; the first matching rule wins, so the rules
// must stay in this exact precedence.
func ClassifyStatus(d *models.District) models.DistrictStatus {
	switch {
	case d.CrimeIndex >= 70 && d.CrewTension >= 60:
		return models.DistrictStatusWarzone
	case d.PropertyValues >= 65 && d.BusinessHealth >= 60 && d.CrimeIndex <= 40:
		return models.DistrictStatusGentrifying
	case d.BusinessHealth <= 35 && d.PropertyValues <= 40:
		return models.DistrictStatusDeclining
	case d.CrimeIndex >= 55 && d.CrewTension >= 40:
		return models.DistrictStatusVolatile
	default:
		return models.DistrictStatusStable
	}
}
