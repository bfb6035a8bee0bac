package estimate_test

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"peloton-planner/internal/estimate"
)

func TestCompute(t *testing.T) {
	convey.Convey("Given a single-stage race of 120 km with no target speed", t, func() {
		seg := estimate.Segment{DistanceKm: 120, ElevationM: 1500}

		convey.Convey("When estimating for a 70 kg athlete at 10 kJ/h/kg", func() {
			est := estimate.Compute(seg, 70, 10)

			convey.Convey("Then the default 25 km/h speed gives 288 minutes", func() {
				convey.So(est.DurationMinutes, convey.ShouldAlmostEqual, 288, 1e-9)
				convey.So(est.DurationSeconds, convey.ShouldEqual, 17280)
			})

			convey.Convey("And the energy is 4.8 h * 10 * 70", func() {
				convey.So(est.PredictedKJ, convey.ShouldAlmostEqual, 3360, 1e-9)
				convey.So(est.KJPerHourPerKg, convey.ShouldAlmostEqual, 10, 1e-9)
			})

			convey.Convey("And pace projections are given at 36 and 41 km/h", func() {
				convey.So(est.Projections, convey.ShouldHaveLength, 2)
				convey.So(est.Projections[0].SpeedKmh, convey.ShouldEqual, 36)
				convey.So(est.Projections[0].Label, convey.ShouldEqual, "3h 20m")
				convey.So(est.Projections[1].SpeedKmh, convey.ShouldEqual, 41)
				convey.So(est.Projections[1].Label, convey.ShouldEqual, "2h 55m")
			})
		})
	})

	convey.Convey("Given a race with an explicit predicted duration of 200 minutes", t, func() {
		seg := estimate.Segment{DistanceKm: 150, SpeedKmh: 40, ExplicitDurationMin: 200}

		convey.Convey("Then the explicit duration is used verbatim", func() {
			est := estimate.Compute(seg, 65, 12)
			convey.So(est.DurationMinutes, convey.ShouldEqual, 200)
			convey.So(est.DurationSeconds, convey.ShouldEqual, 12000)
		})
	})

	convey.Convey("Given a segment without distance", t, func() {
		seg := estimate.Segment{SpeedKmh: 30}

		convey.Convey("When estimating", func() {
			est := estimate.Compute(seg, 70, 10)

			convey.Convey("Then the 240 minute default applies", func() {
				convey.So(est.DurationMinutes, convey.ShouldEqual, 240)
				convey.So(est.DurationSeconds, convey.ShouldEqual, 14400)
				convey.So(est.PredictedKJ, convey.ShouldAlmostEqual, 2800, 1e-9)
			})

			convey.Convey("And no pace projections are produced", func() {
				convey.So(est.Projections, convey.ShouldBeEmpty)
			})
		})
	})

	convey.Convey("Given a stage with its own target speed", t, func() {
		seg := estimate.Segment{DistanceKm: 90, SpeedKmh: 36}

		convey.Convey("Then the duration follows that speed", func() {
			est := estimate.Compute(seg, 60, 11)
			convey.So(est.DurationMinutes, convey.ShouldAlmostEqual, 150, 1e-9)
			convey.So(est.PredictedKJ, convey.ShouldAlmostEqual, 2.5*11*60, 1e-9)
		})
	})

	convey.Convey("Given missing athlete weight and energy rate", t, func() {
		est := estimate.Compute(estimate.Segment{DistanceKm: 50}, 0, 0)

		convey.Convey("Then 70 kg and 10 kJ/h/kg are assumed", func() {
			convey.So(est.DurationMinutes, convey.ShouldAlmostEqual, 120, 1e-9)
			convey.So(est.PredictedKJ, convey.ShouldAlmostEqual, 2*10*70, 1e-9)
		})
	})
}

func TestDurationProperty(t *testing.T) {
	convey.Convey("For any positive distance and speed", t, func() {
		cases := []struct{ km, speed float64 }{
			{1, 1}, {42.195, 33.3}, {180, 42}, {0.5, 25}, {260, 38.7},
		}

		for _, c := range cases {
			got := estimate.Duration(estimate.Segment{DistanceKm: c.km, SpeedKmh: c.speed})
			convey.So(got, convey.ShouldAlmostEqual, c.km/c.speed*60, 1e-9)
		}
	})
}

func TestFormatDuration(t *testing.T) {
	convey.Convey("Given durations in minutes", t, func() {
		convey.So(estimate.FormatDuration(0), convey.ShouldEqual, "0h 0m")
		convey.So(estimate.FormatDuration(59.99), convey.ShouldEqual, "0h 59m")
		convey.So(estimate.FormatDuration(60), convey.ShouldEqual, "1h 0m")
		convey.So(estimate.FormatDuration(175.6), convey.ShouldEqual, "2h 55m")
		convey.So(estimate.FormatDuration(-5), convey.ShouldEqual, "0h 0m")
	})
}
