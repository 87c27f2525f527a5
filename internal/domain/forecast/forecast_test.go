package forecast_test

import (
	"testing"
	"time"

	"github.com/okian/homedash/internal/domain/forecast"
	"github.com/okian/homedash/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func slot(at time.Time, temp float64, cond int, pop float64) model.ForecastEntry {
	return model.ForecastEntry{
		At:                       at,
		Temp:                     temp,
		TempMin:                  temp - 1,
		TempMax:                  temp + 1,
		Condition:                model.Condition{ID: cond, Main: "c"},
		PrecipitationProbability: pop,
	}
}

func TestDaily(t *testing.T) {
	convey.Convey("Given forecast slots spanning two local days", t, func() {
		prague, err := time.LoadLocation("Europe/Prague")
		convey.So(err, convey.ShouldBeNil)
		day1 := time.Date(2024, 5, 1, 15, 0, 0, 0, prague)
		entries := []model.ForecastEntry{
			slot(day1, 20, 800, 0),
			slot(day1.Add(3*time.Hour), 18, 500, 0.4),
			slot(day1.Add(6*time.Hour), 14, 500, 0.2),
			slot(day1.Add(9*time.Hour), 10, 800, 0),
			slot(day1.Add(12*time.Hour), 9, 801, 0.1),
		}

		convey.Convey("When summarized", func() {
			days := forecast.Daily(entries, prague)

			convey.Convey("Then slots group by local date", func() {
				convey.So(days, convey.ShouldHaveLength, 2)
				convey.So(days[0].Date, convey.ShouldEqual, "2024-05-01")
				convey.So(days[0].Slots, convey.ShouldEqual, 3)
				convey.So(days[1].Date, convey.ShouldEqual, "2024-05-02")
				convey.So(days[1].Slots, convey.ShouldEqual, 2)
			})

			convey.Convey("Then extremes and precipitation are aggregated", func() {
				convey.So(days[0].TempMin, convey.ShouldEqual, 13)
				convey.So(days[0].TempMax, convey.ShouldEqual, 21)
				convey.So(days[0].MaxPrecipitationProbability, convey.ShouldEqual, 0.4)
			})

			convey.Convey("Then the dominant condition wins, ties to the earliest", func() {
				convey.So(days[0].Condition.ID, convey.ShouldEqual, 500)
				convey.So(days[1].Condition.ID, convey.ShouldEqual, 800)
			})
		})

		convey.Convey("When slots carry no point temperature", func() {
			bare := []model.ForecastEntry{
				{At: day1, TempMin: 9, TempMax: 15},
				{At: day1.Add(3 * time.Hour), TempMin: 11, TempMax: 17},
			}
			days := forecast.Daily(bare, prague)

			convey.Convey("Then the day range comes from the slot extremes", func() {
				convey.So(days, convey.ShouldHaveLength, 1)
				convey.So(days[0].TempMin, convey.ShouldEqual, 9)
				convey.So(days[0].TempMax, convey.ShouldEqual, 17)
			})
		})

		convey.Convey("When empty", func() {
			convey.So(forecast.Daily(nil, prague), convey.ShouldBeEmpty)
		})
	})
}
