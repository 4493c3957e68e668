package quota

import (
	"testing"
	"time"
)

func TestAllowance(t *testing.T) {
	cfg := Config{MinDailyPixels: 10, PointsPerPixel: 5}

	tests := []struct {
		points int
		want   int
	}{
		{0, 10},    // floored at the minimum
		{49, 10},   // 49/5 = 9, still below the floor
		{50, 10},   // exactly the floor
		{55, 11},   // first balance above the floor
		{57, 11},   // integer division, no rounding up
		{500, 100},
	}
	for _, tt := range tests {
		if got := cfg.Allowance(tt.points); got != tt.want {
			t.Errorf("Allowance(%d) = %d, want %d", tt.points, got, tt.want)
		}
	}
}

func TestDailyLimitError(t *testing.T) {
	err := &DailyLimitError{Used: 10, Allowed: 10}
	if err.Error() != "daily limit reached: 10/10" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestCooldownError(t *testing.T) {
	err := &CooldownError{RetryAfter: 90 * time.Second}
	if err.Error() != "cooldown active: retry in 1m30s" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}
