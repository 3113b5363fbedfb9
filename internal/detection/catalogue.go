package detection

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Priority ranks how urgently a sound should be surfaced to the user.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority validates a priority filter value.
func ParsePriority(s string) (Priority, bool) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return p, true
	}
	return "", false
}

const (
	// DirectionUnknown is used when no stereo estimate exists for an alert.
	DirectionUnknown = "unknown"
	// DistanceUnknown is used when distance reporting is off or no level is known.
	DistanceUnknown = "unknown"

	DistanceNear   = "near"
	DistanceMedium = "medium"
	DistanceFar    = "far"

	// CategoryOther groups sounds outside the catalogue.
	CategoryOther = "other"
)

// soundCategory is one group of the sound catalogue.
type soundCategory struct {
	name   string
	sounds []string
}

// catalogue lists the sounds the demo generator draws from, grouped by category.
var catalogue = []soundCategory{
	{"household", []string{"doorbell", "knock", "microwave beep", "oven timer", "refrigerator hum", "dishwasher"}},
	{"alerts", []string{"alarm", "phone ringing", "notification alert", "fire alarm", "security alarm"}},
	{"human", []string{"footsteps", "coughing", "sneezing", "laughing", "crying", "shouting", "whispering"}},
	{"devices", []string{"keyboard typing", "phone vibration", "computer fan", "printer"}},
	{"external", []string{"car horn", "siren", "thunder", "rain", "wind", "construction"}},
}

var (
	highPriority   = []string{"alarm", "fire alarm", "doorbell", "phone ringing"}
	mediumPriority = []string{"knock", "microwave beep", "oven timer", "notification alert"}
)

// Categories returns the catalogue category names in a fixed order.
func Categories() []string {
	out := make([]string, len(catalogue))
	for i, c := range catalogue {
		out[i] = c.name
	}
	return out
}

// SoundsIn returns the sounds of a catalogue category, nil for unknown categories.
func SoundsIn(category string) []string {
	for _, c := range catalogue {
		if c.name == category {
			return append([]string(nil), c.sounds...)
		}
	}
	return nil
}

// NormalizeLabel lower-cases and trims a classifier label.
func NormalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// CategoryOf returns the catalogue category of a sound, or CategoryOther.
func CategoryOf(sound string) string {
	sound = NormalizeLabel(sound)
	for _, c := range catalogue {
		for _, s := range c.sounds {
			if s == sound {
				return c.name
			}
		}
	}
	return CategoryOther
}

// PriorityOf ranks a sound. Sounds matching one of the user's important
// sounds (substring match) are always high priority.
func PriorityOf(sound string, important []string) Priority {
	sound = NormalizeLabel(sound)
	for _, s := range highPriority {
		if s == sound {
			return PriorityHigh
		}
	}
	for _, imp := range important {
		imp = NormalizeLabel(imp)
		if imp != "" && strings.Contains(sound, imp) {
			return PriorityHigh
		}
	}
	for _, s := range mediumPriority {
		if s == sound {
			return PriorityMedium
		}
	}
	return PriorityLow
}

// Describe builds the human readable alert description.
func Describe(sound, direction string) string {
	sound = NormalizeLabel(sound)
	if direction == "" {
		direction = DirectionUnknown
	}
	switch sound {
	case "doorbell":
		return "Someone at the door (" + direction + ")"
	case "knock":
		return "Knocking (" + direction + ")"
	case "footsteps":
		return "Footsteps approaching (" + direction + ")"
	case "phone ringing":
		return "Phone ringing (" + direction + ")"
	default:
		// a Caser is stateful, so one is created per call
		return cases.Title(language.English).String(sound) + " (" + direction + ")"
	}
}

// DistanceFromLevel maps a signal level (0-100) to a coarse distance.
func DistanceFromLevel(level float64) string {
	switch {
	case level >= 70:
		return DistanceNear
	case level >= 40:
		return DistanceMedium
	default:
		return DistanceFar
	}
}
