package models

import (
	"time"

	"github.com/uptrace/bun"
)

type PursuitResolution string

const (
	PursuitEscaped PursuitResolution = "escaped"
	PursuitCaught  PursuitResolution = "caught"
)

// Pursuit is one enforcement-response episode against one player. At most
// one active episode exists per player; terminal states are escaped/caught.
type Pursuit struct {
	bun.BaseModel `bun:"table:pursuits,alias:p"`

	ID                int64  `bun:"id,pk,autoincrement" json:"id"`
	PursuitCode       string `bun:"pursuit_code,notnull,unique" json:"pursuit_code"`
	PlayerID          string `bun:"player_id,notnull" json:"player_id"`
	Level             int    `bun:"level,notnull,default:1" json:"level"`
	DronesAssigned    int    `bun:"drones_assigned,notnull,default:0" json:"drones_assigned"`
	EnforcersAssigned int    `bun:"enforcers_assigned,notnull,default:0" json:"enforcers_assigned"`

	LastSpottedSector string    `bun:"last_spotted_sector" json:"last_spotted_sector,omitempty"`
	LastSpottedAt     time.Time `bun:"last_spotted_at,notnull" json:"last_spotted_at"`

	Active     bool              `bun:"active,notnull,default:true" json:"active"`
	Resolution PursuitResolution `bun:"resolution" json:"resolution,omitempty"`

	// Penalty applied when the episode ended in capture.
	CashPenaltyPct int `bun:"cash_penalty_pct,notnull,default:0" json:"cash_penalty_pct"`
	JailMinutes    int `bun:"jail_minutes,notnull,default:0" json:"jail_minutes"`

	CreatedAt  time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt  time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
	ResolvedAt *time.Time `bun:"resolved_at" json:"resolved_at,omitempty"`
}
