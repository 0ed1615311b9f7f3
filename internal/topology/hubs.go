package topology

import (
	"sort"

	"github.com/pradeepg78/TrainSense/models"
)

// Resolver groups platform-level stops into rider-facing station hubs.
// Grouping key is parent_station when present, else the stop's own id;
// no proximity or name heuristics. Stateless and deterministic: the
// same stop snapshot always yields the same hubs.
type Resolver struct {
	transferMin int
	rank        map[string]int
}

// NewResolver builds a resolver. transferMin is the merged-route-set
// size at which a hub counts as a transfer hub; displayOrder fixes the
// ordering of each hub's route list.
func NewResolver(transferMin int, displayOrder []string) *Resolver {
	rank := make(map[string]int, len(displayOrder))
	for i, r := range displayOrder {
		rank[r] = i
	}
	return &Resolver{transferMin: transferMin, rank: rank}
}

// Resolve partitions the given stops into hubs. Every input stop lands
// in exactly one hub. routesByStop supplies each stop's serving routes;
// a hub's route set is the deduplicated union over its members. Hub
// coordinates are the arithmetic mean of member coordinates.
func (r *Resolver) Resolve(stops []models.Stop, routesByStop map[string][]models.Route) []models.StationHub {
	partitions := map[string][]models.Stop{}
	for _, s := range stops {
		key := s.HubKey()
		partitions[key] = append(partitions[key], s)
	}

	hubs := make([]models.StationHub, 0, len(partitions))
	for key, members := range partitions {
		hub := models.StationHub{HubID: key}

		var latSum, lonSum float64
		for _, m := range members {
			latSum += m.Latitude
			lonSum += m.Longitude
			hub.MemberStopIDs = append(hub.MemberStopIDs, m.ID)
		}
		hub.Latitude = latSum / float64(len(members))
		hub.Longitude = lonSum / float64(len(members))
		sort.Strings(hub.MemberStopIDs)

		hub.Name = hubName(key, members)
		hub.Routes = r.routeUnion(members, routesByStop)
		hub.IsTransfer = len(hub.Routes) >= r.transferMin

		hubs = append(hubs, hub)
	}

	// Stable output order; clients must not rely on it, but tests and
	// idempotence checks do.
	sort.Slice(hubs, func(i, j int) bool { return hubs[i].HubID < hubs[j].HubID })
	return hubs
}

// hubName picks the display name: the member that IS the hub (its id
// equals the grouping key), else the lexicographically smallest member
// so repeated runs agree.
func hubName(key string, members []models.Stop) string {
	best := members[0]
	for _, m := range members {
		if m.ID == key {
			return m.Name
		}
		if m.ID < best.ID {
			best = m
		}
	}
	return best.Name
}

// routeUnion merges member route sets, deduplicated by route id,
// ordered by display rank then id.
func (r *Resolver) routeUnion(members []models.Stop, routesByStop map[string][]models.Route) []models.Route {
	seen := map[string]bool{}
	routes := []models.Route{}
	for _, m := range members {
		for _, rt := range routesByStop[m.ID] {
			if seen[rt.ID] {
				continue
			}
			seen[rt.ID] = true
			routes = append(routes, rt)
		}
	}

	sort.Slice(routes, func(i, j int) bool {
		ri, rj := r.routeRank(routes[i].ID), r.routeRank(routes[j].ID)
		if ri != rj {
			return ri < rj
		}
		return routes[i].ID < routes[j].ID
	})
	return routes
}

func (r *Resolver) routeRank(routeID string) int {
	if v, ok := r.rank[routeID]; ok {
		return v
	}
	return len(r.rank)
}
