package quota

import "testing"

func TestSummarize(t *testing.T) {
	tests := []struct {
		frequency int
		status    string
		level     string
		color     string
		canCreate bool
	}{
		{-1, StatusExhausted, LevelError, ColorError, false},
		{0, StatusExhausted, LevelError, ColorError, false},
		{1, StatusLow, LevelWarning, ColorWarning, true},
		{5, StatusLow, LevelWarning, ColorWarning, true},
		{6, StatusNormal, LevelSuccess, ColorSuccess, true},
		{20, StatusNormal, LevelSuccess, ColorSuccess, true},
		{21, StatusSufficient, LevelSuccess, ColorSuccess, true},
	}
	for _, tt := range tests {
		s := Summarize(tt.frequency)
		if s.Status != tt.status || s.Level != tt.level || s.Color != tt.color || s.CanCreate != tt.canCreate {
			t.Errorf("Summarize(%d) = %+v", tt.frequency, s)
		}
		if s.Remaining != tt.frequency {
			t.Errorf("Summarize(%d).Remaining = %d", tt.frequency, s.Remaining)
		}
	}
}

func TestShouldWarn(t *testing.T) {
	tests := []struct {
		before, after int
		want          bool
	}{
		{10, 9, false},
		{4, 3, true},
		{3, 2, true},
		{1, 0, true},
		{0, 5, false},
		{2, 2, false},
	}
	for _, tt := range tests {
		if got := ShouldWarn(tt.before, tt.after); got != tt.want {
			t.Errorf("ShouldWarn(%d, %d) = %v, want %v", tt.before, tt.after, got, tt.want)
		}
	}
}
