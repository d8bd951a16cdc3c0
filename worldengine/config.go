package worldengine

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/noxhaven/world-engine/worldengine/config"
	"github.com/noxhaven/world-engine/worldengine/database"
	"github.com/pelletier/go-toml/v2"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	cfg.Jobs.applyDefaults()
	return &cfg, nil
}

type Config struct {
	Log     LogConfig         `toml:"log"`
	DB      database.DBConfig `toml:"db"`
	API     APIConfig         `toml:"api"`
	Jobs    JobsConfig        `toml:"jobs"`
	Archive ArchiveConfig     `toml:"archive"`
}

type LogConfig struct {
	Level slog.Level `toml:"level"`
}

type APIConfig struct {
	Addr string `toml:"addr"`
}

type JobsConfig struct {
	AggregationInterval  time.Duration `toml:"aggregation_interval"`
	HeatDecayInterval    time.Duration `toml:"heat_decay_interval"`
	HeatDecayStep        int           `toml:"heat_decay_step"`
	HeatDecayFloor       int           `toml:"heat_decay_floor"`
	OfferExpiryInterval  time.Duration `toml:"offer_expiry_interval"`
	PursuitSweepInterval time.Duration `toml:"pursuit_sweep_interval"`
	PursuitInactivity    time.Duration `toml:"pursuit_inactivity"`
	ArchiveInterval      time.Duration `toml:"archive_interval"`
	ArchiveRetention     time.Duration `toml:"archive_retention"`
}

func (jc *JobsConfig) applyDefaults() {
	if jc.AggregationInterval <= 0 {
		jc.AggregationInterval = config.DefaultAggregationInterval
	}
	if jc.HeatDecayInterval <= 0 {
		jc.HeatDecayInterval = config.DefaultHeatDecayInterval
	}
	if jc.HeatDecayStep <= 0 {
		jc.HeatDecayStep = config.DefaultHeatDecayStep
	}
	if jc.OfferExpiryInterval <= 0 {
		jc.OfferExpiryInterval = config.DefaultOfferExpiryInterval
	}
	if jc.PursuitSweepInterval <= 0 {
		jc.PursuitSweepInterval = config.DefaultPursuitSweepInterval
	}
	if jc.PursuitInactivity <= 0 {
		jc.PursuitInactivity = config.DefaultPursuitInactivity
	}
	if jc.ArchiveInterval <= 0 {
		jc.ArchiveInterval = config.DefaultArchiveInterval
	}
	if jc.ArchiveRetention <= 0 {
		jc.ArchiveRetention = config.DefaultArchiveRetention
	}
}

type ArchiveConfig struct {
	Enabled bool   `toml:"enabled"`
	Key     string `toml:"key"`
	Secret  string `toml:"secret"`
	Region  string `toml:"region"`
	Bucket  string `toml:"bucket"`
	Prefix  string `toml:"prefix"`
}
