package models

import (
	"time"

	"github.com/uptrace/bun"
)

type DistrictEventType string

const (
	EventCrimeCommitted   DistrictEventType = "crime_committed"
	EventPropertyBought   DistrictEventType = "property_bought"
	EventPropertySold     DistrictEventType = "property_sold"
	EventCrewBattle       DistrictEventType = "crew_battle"
	EventBusinessOpened   DistrictEventType = "business_opened"
	EventBusinessClosed   DistrictEventType = "business_closed"
	EventPlayerAttacked   DistrictEventType = "player_attacked"
	EventPoliceRaid       DistrictEventType = "police_raid"
	EventTerritoryClaimed DistrictEventType = "territory_claimed"
	EventTerritoryLost    DistrictEventType = "territory_lost"
	EventHeistExecuted    DistrictEventType = "heist_executed"
	EventDrugBust         DistrictEventType = "drug_bust"
	EventGentrification   DistrictEventType = "gentrification"
	EventEconomicBoost    DistrictEventType = "economic_boost"
	EventEconomicCrash    DistrictEventType = "economic_crash"
)

type EffectKind string

// Closed set of payload effect kinds. New kinds require a code change, not a
// schema change.
const (
	EffectCash    EffectKind = "cash"
	EffectBuff    EffectKind = "buff"
	EffectRestore EffectKind = "restore"
	EffectReduce  EffectKind = "reduce"
	EffectNone    EffectKind = "none"
)

// EventPayload is the versioned structured payload attached to a district
// event by the originating game action.
type EventPayload struct {
	Version int        `json:"version"`
	Effect  EffectKind `json:"effect"`
	Amount  int64      `json:"amount,omitempty"`
	Detail  string     `json:"detail,omitempty"`
}

// DistrictEvent is an immutable fact about something that happened in a
// district. Only the Processed flag is ever mutated after insert; rows are
// retained for audit and analytics.
type DistrictEvent struct {
	bun.BaseModel `bun:"table:district_events,alias:de"`

	ID         int64             `bun:"id,pk,autoincrement" json:"id"`
	DistrictID int64             `bun:"district_id,notnull" json:"district_id"`
	Type       DistrictEventType `bun:"event_type,notnull" json:"event_type"`
	Severity   int               `bun:"severity,notnull" json:"severity"`
	ActorID    string            `bun:"actor_id" json:"actor_id,omitempty"`
	TargetID   string            `bun:"target_id" json:"target_id,omitempty"`
	CrewID     string            `bun:"crew_id" json:"crew_id,omitempty"`
	Payload    *EventPayload     `bun:"payload,type:jsonb" json:"payload,omitempty"`

	// Signed per-metric impacts resolved at record time.
	CrimeImpact    int `bun:"crime_impact,notnull,default:0" json:"crime_impact"`
	PoliceImpact   int `bun:"police_impact,notnull,default:0" json:"police_impact"`
	PropertyImpact int `bun:"property_impact,notnull,default:0" json:"property_impact"`
	BusinessImpact int `bun:"business_impact,notnull,default:0" json:"business_impact"`
	ActivityImpact int `bun:"activity_impact,notnull,default:0" json:"activity_impact"`
	TensionImpact  int `bun:"tension_impact,notnull,default:0" json:"tension_impact"`

	Processed bool      `bun:"processed,notnull,default:false" json:"processed"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}
