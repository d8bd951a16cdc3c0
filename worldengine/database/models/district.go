package models

import (
	"time"

	"github.com/uptrace/bun"
)

type DistrictStatus string

const (
	DistrictStatusStable      DistrictStatus = "stable"
	DistrictStatusVolatile    DistrictStatus = "volatile"
	DistrictStatusWarzone     DistrictStatus = "warzone"
	DistrictStatusGentrifying DistrictStatus = "gentrifying"
	DistrictStatusDeclining   DistrictStatus = "declining"
)

// District holds the continuous ecosystem state of one city district.
// Rows are created at world-seed time and only ever mutated by the
// aggregation job; all metrics stay within [0,100].
type District struct {
	bun.BaseModel `bun:"table:districts,alias:d"`

	ID              int64          `bun:"id,pk,autoincrement" json:"id"`
	Name            string         `bun:"name,notnull,unique" json:"name"`
	CrimeIndex      int            `bun:"crime_index,notnull,default:0" json:"crime_index"`
	PolicePresence  int            `bun:"police_presence,notnull,default:0" json:"police_presence"`
	PropertyValues  int            `bun:"property_values,notnull,default:50" json:"property_values"`
	BusinessHealth  int            `bun:"business_health,notnull,default:50" json:"business_health"`
	StreetActivity  int            `bun:"street_activity,notnull,default:0" json:"street_activity"`
	HeatLevel       int            `bun:"heat_level,notnull,default:0" json:"heat_level"`
	CrewTension     int            `bun:"crew_tension,notnull,default:0" json:"crew_tension"`
	Status          DistrictStatus `bun:"status,notnull,default:'stable'" json:"status"`
	LastCalculated  time.Time      `bun:"last_calculated" json:"last_calculated"`
	StatusChangedAt time.Time      `bun:"status_changed_at" json:"status_changed_at"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}
