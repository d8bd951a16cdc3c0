package models

import (
	"time"

	"github.com/uptrace/bun"
)

type RelationType string

const (
	RelationDistrict RelationType = "district"
	RelationFaction  RelationType = "faction"
	RelationCrew     RelationType = "crew"
	RelationPlayer   RelationType = "player"
)

type Dimension string

const (
	DimensionRespect Dimension = "respect"
	DimensionFear    Dimension = "fear"
	DimensionTrust   Dimension = "trust"
	DimensionHeat    Dimension = "heat"
)

// ReputationRecord holds the four bounded reputation dimensions a player has
// toward one target. Unique per (player, relation type, target); created
// lazily on first modification and never deleted.
type ReputationRecord struct {
	bun.BaseModel `bun:"table:reputation_records,alias:rr"`

	ID       int64        `bun:"id,pk,autoincrement" json:"id"`
	PlayerID string       `bun:"player_id,notnull" json:"player_id"`
	Type     RelationType `bun:"relation_type,notnull" json:"relation_type"`
	TargetID string       `bun:"target_id,notnull" json:"target_id"`

	Respect int `bun:"respect,notnull,default:0" json:"respect"`
	Fear    int `bun:"fear,notnull,default:0" json:"fear"`
	Trust   int `bun:"trust,notnull,default:0" json:"trust"`
	Heat    int `bun:"heat,notnull,default:0" json:"heat"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// ReputationEvent is the append-only audit row written alongside every
// successful reputation modification.
type ReputationEvent struct {
	bun.BaseModel `bun:"table:reputation_events,alias:re"`

	ID              int64     `bun:"id,pk,autoincrement" json:"id"`
	RecordID        int64     `bun:"record_id,notnull" json:"record_id"`
	Dimension       Dimension `bun:"dimension,notnull" json:"dimension"`
	Delta           int       `bun:"delta,notnull" json:"delta"`
	OldValue        int       `bun:"old_value,notnull" json:"old_value"`
	NewValue        int       `bun:"new_value,notnull" json:"new_value"`
	Clamped         bool      `bun:"clamped,notnull,default:false" json:"clamped"`
	Reason          string    `bun:"reason,notnull" json:"reason"`
	RelatedPlayerID string    `bun:"related_player_id" json:"related_player_id,omitempty"`
	Metadata        map[string]string `bun:"metadata,type:jsonb" json:"metadata,omitempty"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}
