// Package quota classifies a user's remaining forwarding-rule quota
// ("frequency"). Thresholds match what the console has always shown users.
package quota

const (
	StatusExhausted  = "exhausted"
	StatusLow        = "low"
	StatusNormal     = "normal"
	StatusSufficient = "sufficient"

	LevelError   = "error"
	LevelWarning = "warning"
	LevelSuccess = "success"

	ColorError   = "#ff4d4f"
	ColorWarning = "#faad14"
	ColorSuccess = "#52c41a"
)

// WarningThreshold is the balance at or below which a low-quota notice is sent.
const WarningThreshold = 3

const (
	lowCeiling    = 5
	normalCeiling = 20
)

type Summary struct {
	Remaining int    `json:"remaining"`
	Status    string `json:"status"`
	Level     string `json:"level"`
	Color     string `json:"color"`
	CanCreate bool   `json:"canCreate"`
}

func HasQuota(frequency int) bool {
	return frequency > 0
}

func Status(frequency int) string {
	switch {
	case frequency <= 0:
		return StatusExhausted
	case frequency <= lowCeiling:
		return StatusLow
	case frequency <= normalCeiling:
		return StatusNormal
	default:
		return StatusSufficient
	}
}

func Level(frequency int) string {
	switch {
	case frequency <= 0:
		return LevelError
	case frequency <= lowCeiling:
		return LevelWarning
	default:
		return LevelSuccess
	}
}

func Color(frequency int) string {
	switch Level(frequency) {
	case LevelError:
		return ColorError
	case LevelWarning:
		return ColorWarning
	default:
		return ColorSuccess
	}
}

func Summarize(frequency int) Summary {
	return Summary{
		Remaining: frequency,
		Status:    Status(frequency),
		Level:     Level(frequency),
		Color:     Color(frequency),
		CanCreate: HasQuota(frequency),
	}
}

// ShouldWarn reports whether a change from before to after crosses into the
// warning band. Repeated decrements inside the band warn each time.
func ShouldWarn(before, after int) bool {
	return after < before && after <= WarningThreshold
}
