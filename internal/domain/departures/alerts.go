package departures

import (
	"time"

	"github.com/okian/homedash/internal/domain/model"
)

// RelevantAlerts returns the alerts active at now that affect a route among
// deps. Short names are resolved to route ids through routes; departures on
// routes missing from the table cannot match. deps should be the full fetched
// list, before filtering and capping.
func RelevantAlerts(now time.Time, alerts []model.Alert, deps []model.Departure, routes model.RouteTable) []model.Alert {
	if len(alerts) == 0 || len(deps) == 0 || len(routes) == 0 {
		return nil
	}

	present := make(map[string]struct{}, len(deps))
	for _, d := range deps {
		if r, ok := routes[d.RouteShortName]; ok {
			present[r.ID] = struct{}{}
		}
	}

	var out []model.Alert
	for _, a := range alerts {
		if !a.ActiveAt(now) {
			continue
		}
		for _, id := range a.AffectedRouteIDs {
			if _, ok := present[id]; ok {
				out = append(out, a)
				break
			}
		}
	}
	return out
}
