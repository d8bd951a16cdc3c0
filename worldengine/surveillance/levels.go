package surveillance

// LevelSpec fixes the enforcement response at one pursuit level. The table
// is monotone in every column; escalation never skips a level.
type LevelSpec struct {
	Level            int
	Name             string
	Drones           int
	Enforcers        int
	EscapeDifficulty int // percent, higher is harder
	HeatRequired     int
	CashPenaltyPct   int
	JailMinutes      int
}

const MaxPursuitLevel = 5

var pursuitLevels = [MaxPursuitLevel]LevelSpec{
	{Level: 1, Name: "drone-scan", Drones: 1, Enforcers: 0, EscapeDifficulty: 20, HeatRequired: 20, CashPenaltyPct: 5, JailMinutes: 5},
	{Level: 2, Name: "drone-pursuit", Drones: 3, Enforcers: 1, EscapeDifficulty: 40, HeatRequired: 40, CashPenaltyPct: 10, JailMinutes: 15},
	{Level: 3, Name: "ground-response", Drones: 6, Enforcers: 3, EscapeDifficulty: 55, HeatRequired: 60, CashPenaltyPct: 20, JailMinutes: 30},
	{Level: 4, Name: "tactical-lockdown", Drones: 10, Enforcers: 6, EscapeDifficulty: 75, HeatRequired: 80, CashPenaltyPct: 35, JailMinutes: 60},
	{Level: 5, Name: "maximum-response", Drones: 15, Enforcers: 10, EscapeDifficulty: 90, HeatRequired: 100, CashPenaltyPct: 50, JailMinutes: 120},
}

// PursuitLevel returns the spec for a level in [1,5].
func PursuitLevel(level int) (LevelSpec, bool) {
	if level < 1 || level > MaxPursuitLevel {
		return LevelSpec{}, false
	}
	return pursuitLevels[level-1], true
}

// HighestLevelForHeat returns the highest level whose heat requirement the
// given heat meets, or 0 when the heat is below the first threshold.
func HighestLevelForHeat(heat int) int {
	level := 0
	for _, spec := range pursuitLevels {
		if heat >= spec.HeatRequired {
			level = spec.Level
		}
	}
	return level
}
