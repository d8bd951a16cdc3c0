package reputation

import (
	"github.com/noxhaven/world-engine/worldengine/database/models"
)

type Standing string

const (
	StandingLegendary  Standing = "Legendary"
	StandingRenowned   Standing = "Renowned"
	StandingWellKnown  Standing = "Well-known"
	StandingRecognized Standing = "Recognized"
	StandingUnknown    Standing = "Unknown"
	StandingDistrusted Standing = "Distrusted"
	StandingDespised   Standing = "Despised"
)

// Secondary labels for the dominant dimension.
const (
	LabelFeared    = "Feared"
	LabelTrusted   = "Trusted"
	LabelRespected = "Respected"
)

const dominantThreshold = 30

// StandingInfo is the human-readable classification of one record.
type StandingInfo struct {
	Score     int      `json:"score"`
	Standing  Standing `json:"standing"`
	Secondary string   `json:"secondary,omitempty"`
}

// CombinedScore folds the four dimensions into one number: heat works
// against a player's standing, everything else for it.
func CombinedScore(rec *models.ReputationRecord) int {
	return rec.Respect + rec.Fear + rec.Trust - rec.Heat
}

// StandingFor maps a combined score onto its band.
func StandingFor(score int) Standing {
	switch {
	case score >= 200:
		return StandingLegendary
	case score >= 120:
		return StandingRenowned
	case score >= 60:
		return StandingWellKnown
	case score >= 20:
		return StandingRecognized
	case score > -20:
		return StandingUnknown
	case score > -100:
		return StandingDistrusted
	default:
		return StandingDespised
	}
}

// Describe classifies a record. The secondary label names the dominant
// positive dimension when the standing is non-terminal (neither Legendary
// nor Despised) and the dimension is pronounced enough to matter.
func Describe(rec *models.ReputationRecord) StandingInfo {
	score := CombinedScore(rec)
	info := StandingInfo{
		Score:    score,
		Standing: StandingFor(score),
	}

	if info.Standing == StandingLegendary || info.Standing == StandingDespised {
		return info
	}

	dominant, value := dominantDimension(rec)
	if value >= dominantThreshold {
		info.Secondary = dominant
	}
	return info
}

func dominantDimension(rec *models.ReputationRecord) (string, int) {
	label, value := LabelRespected, rec.Respect
	if rec.Fear > value {
		label, value = LabelFeared, rec.Fear
	}
	if rec.Trust > value {
		label, value = LabelTrusted, rec.Trust
	}
	return label, value
}
