// Package forecast condenses 3-hour forecast slots into per-day summaries.
package forecast

import (
	"time"

	"github.com/okian/homedash/internal/domain/model"
)

// Day summarizes the forecast slots of one local calendar day.
type Day struct {
	Date                        string          `json:"date"`
	TempMin                     float64         `json:"tempMin"`
	TempMax                     float64         `json:"tempMax"`
	Condition                   model.Condition `json:"condition"`
	MaxPrecipitationProbability float64         `json:"maxPop"`
	Slots                       int             `json:"slots"`
}

// Daily groups entries by local day in input order. Extremes come from the
// slots' min and max only. The condition is the most frequent one of the
// day; ties go to the earliest.
func Daily(entries []model.ForecastEntry, loc *time.Location) []Day {
	if loc == nil {
		loc = time.Local
	}

	var (
		days   []Day
		counts map[int]int
		first  map[int]int
		conds  map[int]model.Condition
	)
	flush := func() {
		if len(days) == 0 {
			return
		}
		best, bestCount, bestFirst := 0, -1, 0
		for id, c := range counts {
			if c > bestCount || (c == bestCount && first[id] < bestFirst) {
				best, bestCount, bestFirst = id, c, first[id]
			}
		}
		days[len(days)-1].Condition = conds[best]
	}

	for i, e := range entries {
		date := e.At.In(loc).Format(model.DateLayout)
		if len(days) == 0 || days[len(days)-1].Date != date {
			flush()
			days = append(days, Day{Date: date, TempMin: e.TempMin, TempMax: e.TempMax})
			counts = make(map[int]int)
			first = make(map[int]int)
			conds = make(map[int]model.Condition)
		}
		d := &days[len(days)-1]
		d.TempMin = min(d.TempMin, e.TempMin)
		d.TempMax = max(d.TempMax, e.TempMax)
		d.MaxPrecipitationProbability = max(d.MaxPrecipitationProbability, e.PrecipitationProbability)
		d.Slots++

		id := e.Condition.ID
		if _, ok := first[id]; !ok {
			first[id] = i
			conds[id] = e.Condition
		}
		counts[id]++
	}
	flush()
	return days
}
