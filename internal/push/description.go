package push

import (
	"fmt"
	"html"
	"strings"

	"peloton-planner/internal/estimate"
)

// describe renders the event body shown in the athlete's calendar
func describe(seg segment, est estimate.Estimate) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<p><strong>%s</strong></p>\n", html.EscapeString(seg.Name))
	b.WriteString("<ul>\n")
	fmt.Fprintf(&b, "<li>Distance: %.1f km</li>\n", seg.DistanceKm)
	fmt.Fprintf(&b, "<li>Elevation: %.0f m</li>\n", seg.ElevationM)
	fmt.Fprintf(&b, "<li>Predicted duration: %s</li>\n", estimate.FormatDuration(est.DurationMinutes))
	if est.PredictedKJ > 0 {
		fmt.Fprintf(&b, "<li>Predicted energy: %.0f kJ</li>\n", est.PredictedKJ)
	}
	if est.KJPerHourPerKg > 0 {
		fmt.Fprintf(&b, "<li>kJ/h/kg: %.1f</li>\n", est.KJPerHourPerKg)
	}
	b.WriteString("</ul>\n")

	if len(est.Projections) > 0 {
		b.WriteString("<p>Pace projections:</p>\n<ul>\n")
		for _, p := range est.Projections {
			fmt.Fprintf(&b, "<li>%.0f km/h: %s</li>\n", p.SpeedKmh, p.Label)
		}
		b.WriteString("</ul>\n")
	}

	return b.String()
}
