package push

import (
	"strings"

	"peloton-planner/internal/intervals"
)

// CategoryTag maps an objective category letter to the Intervals.icu race
// tag. Anything other than a single A, B or C maps to RACE_C.
func CategoryTag(category string) string {
	switch strings.ToUpper(category) {
	case "A":
		return intervals.CategoryRaceA
	case "B":
		return intervals.CategoryRaceB
	default:
		return intervals.CategoryRaceC
	}
}

func resolveCategory(enrollment Enrollment, race *Race) string {
	if enrollment.ObjectiveCategory != "" {
		return enrollment.ObjectiveCategory
	}
	return race.Category
}
