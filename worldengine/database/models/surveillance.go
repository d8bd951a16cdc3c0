package models

import (
	"time"

	"github.com/uptrace/bun"
)

type GridStatus string

const (
	GridStatusOnline   GridStatus = "online"
	GridStatusDegraded GridStatus = "degraded"
	GridStatusOffline  GridStatus = "offline"
)

// SectorSurveillance tracks the automated monitoring footprint of one map
// sector. Sectors without a row fall back to documented defaults instead of
// failing the calling action.
type SectorSurveillance struct {
	bun.BaseModel `bun:"table:sector_surveillance,alias:ss"`

	SectorID          string     `bun:"sector_id,pk" json:"sector_id"`
	SurveillanceLevel int        `bun:"surveillance_level,notnull,default:50" json:"surveillance_level"`
	DroneDensity      int        `bun:"drone_density,notnull,default:0" json:"drone_density"`
	ScannerCoverage   float64    `bun:"scanner_coverage,notnull,default:0.75" json:"scanner_coverage"`
	HNCPresence       int        `bun:"hnc_presence,notnull,default:0" json:"hnc_presence"`
	AlertLevel        int        `bun:"alert_level,notnull,default:0" json:"alert_level"`
	GridStatus        GridStatus `bun:"grid_status,notnull,default:'online'" json:"grid_status"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// PlayerHeat tracks how much enforcement attention a single player has
// accumulated. Raised by crime actions, lowered by the decay job and by
// escaping pursuits.
type PlayerHeat struct {
	bun.BaseModel `bun:"table:player_heat,alias:ph"`

	PlayerID        string `bun:"player_id,pk" json:"player_id"`
	HeatLevel       int    `bun:"heat_level,notnull,default:0" json:"heat_level"`
	CurrentSector   string `bun:"current_sector" json:"current_sector,omitempty"`
	Flagged         bool   `bun:"flagged,notnull,default:false" json:"flagged"`
	TotalDetections int    `bun:"total_detections,notnull,default:0" json:"total_detections"`
	TotalEvasions   int    `bun:"total_evasions,notnull,default:0" json:"total_evasions"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}
