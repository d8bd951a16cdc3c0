package surveillance

import (
	"github.com/noxhaven/world-engine/worldengine/config"
	"github.com/noxhaven/world-engine/worldengine/utils"
)

// Chance computes the detection probability (percent) for a player in a
// sector. Monotonically non-decreasing in both surveillance level and heat,
// always within [5,95].
func Chance(surveillanceLevel, heatLevel int, scannerCoverage float64) float64 {
	raw := float64(surveillanceLevel+heatLevel) / 2 * scannerCoverage
	return utils.ClampFloat(raw, config.DetectionFloor, config.DetectionCeil)
}
