package surveillance

import "testing"

func TestChance(t *testing.T) {
	tests := []struct {
		name     string
		level    int
		heat     int
		coverage float64
		want     float64
	}{
		{"defaults with no heat", 50, 0, 0.75, 18.75},
		{"hot player in a watched sector", 80, 40, 0.9, 54},
		{"floor applies", 0, 0, 0.1, 5},
		{"ceiling applies", 100, 100, 1.0, 95},
		{"full coverage midrange", 60, 20, 1.0, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Chance(tt.level, tt.heat, tt.coverage)
			if got != tt.want {
				t.Errorf("Chance(%d, %d, %.2f) = %v, want %v", tt.level, tt.heat, tt.coverage, got, tt.want)
			}
		})
	}
}

func TestChanceMonotone(t *testing.T) {
	prev := 0.0
	for heat := 0; heat <= 100; heat += 10 {
		got := Chance(50, heat, 0.75)
		if got < prev {
			t.Fatalf("Chance decreased at heat %d: %v < %v", heat, got, prev)
		}
		prev = got
	}

	prev = 0.0
	for level := 0; level <= 100; level += 10 {
		got := Chance(level, 30, 0.75)
		if got < prev {
			t.Fatalf("Chance decreased at level %d: %v < %v", level, got, prev)
		}
		prev = got
	}
}
