package arrivals

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/pradeepg78/TrainSense/internal/realtime/mta"
	"github.com/pradeepg78/TrainSense/models"
)

// staleBound drops predictions whose time is more than this far in the
// past; feeds occasionally carry entries for trains long gone.
const staleBound = 2 * time.Minute

// Aggregator turns decoded feed predictions into the ordered,
// deduplicated arrival list served for one stop. Stateless; safe for
// concurrent use.
type Aggregator struct {
	rank     map[string]int
	perGroup int
	horizon  time.Duration
}

// New builds an aggregator. displayOrder fixes the cross-group route
// ordering; perGroup bounds how many arrivals each (route, direction)
// group keeps; predictions beyond horizon are dropped.
func New(displayOrder []string, perGroup int, horizon time.Duration) *Aggregator {
	rank := make(map[string]int, len(displayOrder))
	for i, r := range displayOrder {
		rank[r] = i
	}
	return &Aggregator{rank: rank, perGroup: perGroup, horizon: horizon}
}

// Aggregate filters predictions to the given member-stop set, computes
// minutes-until-arrival and status, deduplicates identical
// (route, direction, minutes) tuples, orders and truncates.
func (a *Aggregator) Aggregate(preds []mta.Prediction, memberStops map[string]bool, now time.Time) []models.Arrival {
	nowEpoch := now.Unix()
	horizonMin := int(a.horizon.Minutes())

	type dedupKey struct {
		route, direction string
		minutes          int
	}
	seen := map[dedupKey]bool{}

	out := []models.Arrival{}
	for _, p := range preds {
		if !memberStops[p.StopID] {
			continue
		}

		delta := p.Epoch - nowEpoch
		if delta < -int64(staleBound.Seconds()) {
			continue
		}
		minutes := int(math.Floor(float64(delta) / 60))
		if minutes > horizonMin {
			continue
		}

		key := dedupKey{route: p.RouteID, direction: p.Direction, minutes: minutes}
		if seen[key] {
			continue
		}
		seen[key] = true

		out = append(out, models.Arrival{
			Route:       p.RouteID,
			Direction:   p.Direction,
			Minutes:     minutes,
			ArrivalTime: p.Epoch,
			Status:      statusLabel(minutes),
			TripID:      p.TripID,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := a.routeRank(out[i].Route), a.routeRank(out[j].Route)
		if ri != rj {
			return ri < rj
		}
		if out[i].Route != out[j].Route {
			// Unknown routes share a rank; fall back to alphabetical.
			return out[i].Route < out[j].Route
		}
		if out[i].Direction != out[j].Direction {
			return out[i].Direction < out[j].Direction
		}
		return out[i].Minutes < out[j].Minutes
	})

	return a.truncateGroups(out)
}

func (a *Aggregator) routeRank(routeID string) int {
	if r, ok := a.rank[routeID]; ok {
		return r
	}
	return len(a.rank)
}

// truncateGroups bounds each (route, direction) group to perGroup
// entries. Input is already sorted, so the soonest survive.
func (a *Aggregator) truncateGroups(arrivals []models.Arrival) []models.Arrival {
	if a.perGroup <= 0 {
		return arrivals
	}

	counts := map[[2]string]int{}
	kept := arrivals[:0]
	for _, arr := range arrivals {
		key := [2]string{arr.Route, arr.Direction}
		if counts[key] >= a.perGroup {
			continue
		}
		counts[key]++
		kept = append(kept, arr)
	}
	return kept
}

// statusLabel buckets minutes-until-arrival into a coarse label.
// "Due" is reserved exclusively for minutes <= 0.
func statusLabel(minutes int) string {
	switch {
	case minutes <= 0:
		return models.StatusDue
	case minutes <= 3:
		return models.StatusApproaching
	default:
		return fmt.Sprintf("%d min", minutes)
	}
}
