package config

import "time"

// Application-wide constants organized by domain

// Database and performance constants
const (
	DefaultQueryTimeout = 30 * time.Second
	BatchQueryTimeout   = 30 * time.Second
	DefaultTxTimeout    = 15 * time.Second
	JobTimeout          = 5 * time.Minute

	// Conflict retry policy for contended row updates.
	MaxRetries       = 3
	RetryBaseBackoff = 25 * time.Millisecond
	RetryMaxJitter   = 50 * time.Millisecond
)

// World simulation constants
const (
	// Severity at or above which an event triggers an immediate
	// aggregation of its district instead of waiting for the next sweep.
	ImmediateAggregationSeverity = 8

	MetricMin = 0
	MetricMax = 100

	SeverityMin = 1
	SeverityMax = 10

	// Detection probability bounds (percent).
	DetectionFloor = 5.0
	DetectionCeil  = 95.0

	// Defaults for sectors with no surveillance record.
	DefaultSurveillanceLevel = 50
	DefaultScannerCoverage   = 0.75

	// Reputation dimension bounds.
	ReputationMin = -100
	ReputationMax = 100
	HeatMin       = 0
	HeatMax       = 100

	DebtValueMin = 1
	DebtValueMax = 10
)

// Job defaults (overridable via config.toml)
const (
	DefaultAggregationInterval  = 1 * time.Minute
	DefaultHeatDecayInterval    = 10 * time.Minute
	DefaultHeatDecayStep        = 2
	DefaultOfferExpiryInterval  = 1 * time.Minute
	DefaultPursuitSweepInterval = 2 * time.Minute
	DefaultPursuitInactivity    = 10 * time.Minute
	DefaultArchiveInterval      = 6 * time.Hour
	DefaultArchiveRetention     = 30 * 24 * time.Hour
	DefaultOfferDuration        = 72 * time.Hour
)
