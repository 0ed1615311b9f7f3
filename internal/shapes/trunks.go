package shapes

import (
	"github.com/pradeepg78/TrainSense/internal/config"
	"github.com/pradeepg78/TrainSense/models"
)

// Merger coalesces per-route shapes that run on shared physical
// trackage into one polyline per alignment, so the map never draws the
// same track four times. Offsetting parallel lines for display is the
// renderer's job; the contract here is one polyline per alignment,
// tagged with every route that uses it.
type Merger struct {
	trunks []config.TrunkGroup
	tables *config.Tables
}

// NewMerger builds a merger over the configured trunk table.
func NewMerger(tables *config.Tables) *Merger {
	return &Merger{trunks: tables.Trunks, tables: tables}
}

// Merge produces the deduplicated shape list for the given routes.
// shapesByRoute maps route id to its raw polyline (may be empty for
// routes without imported shapes). Every route id in routeIDs appears
// in exactly one output entry: as part of its trunk when the trunk
// table names it, else as a standalone pass-through.
func (m *Merger) Merge(routeIDs []string, shapesByRoute map[string][]models.LatLon) []models.TrunkShape {
	requested := map[string]bool{}
	for _, r := range routeIDs {
		requested[r] = true
	}

	assigned := map[string]bool{}
	out := []models.TrunkShape{}

	for _, trunk := range m.trunks {
		members := []string{}
		for _, r := range trunk.Routes {
			if requested[r] && !assigned[r] {
				members = append(members, r)
				assigned[r] = true
			}
		}
		if len(members) == 0 {
			continue
		}

		out = append(out, models.TrunkShape{
			Key:      trunk.Key,
			Color:    m.tables.ColorFor(members[0]),
			Routes:   members,
			Polyline: representative(members, shapesByRoute),
		})
	}

	// Routes outside every trunk keep their own shape unchanged.
	for _, r := range routeIDs {
		if assigned[r] {
			continue
		}
		assigned[r] = true
		out = append(out, models.TrunkShape{
			Key:      r,
			Color:    m.tables.ColorFor(r),
			Routes:   []string{r},
			Polyline: shapesByRoute[r],
		})
	}

	return out
}

// representative picks the first member route with a non-empty shape
// as the trunk polyline. No averaging or offsetting.
func representative(members []string, shapesByRoute map[string][]models.LatLon) []models.LatLon {
	for _, r := range members {
		if pts := shapesByRoute[r]; len(pts) > 0 {
			return pts
		}
	}
	return nil
}
