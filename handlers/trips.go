package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/pradeepg78/TrainSense/repository"
)

// tripRequest is the POST /api/plan-trip body.
type tripRequest struct {
	FromStopID string `json:"from_stop_id"`
	ToStopID   string `json:"to_stop_id"`
}

// tripPlan is a simple route suggestion: either a direct ride on a
// shared route, or a single transfer at a station served by routes
// from both ends. Not a full journey planner.
type tripPlan struct {
	Type         string   `json:"type"` // "direct" | "transfer" | "none"
	Routes       []string `json:"routes,omitempty"`
	TransferStop string   `json:"transfer_stop,omitempty"`
	TransferName string   `json:"transfer_name,omitempty"`
	FirstLeg     []string `json:"first_leg,omitempty"`
	SecondLeg    []string `json:"second_leg,omitempty"`
}

// PlanTrip handles POST /api/plan-trip
func (h *TransitHandler) PlanTrip(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req tripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.FromStopID == "" || req.ToStopID == "" {
		respondError(w, http.StatusBadRequest, "from_stop_id and to_stop_id are required")
		return
	}

	fromRoutes, err := h.stationRoutes(ctx, req.FromStopID)
	if err != nil {
		h.respondTripError(w, req.FromStopID, err)
		return
	}
	toRoutes, err := h.stationRoutes(ctx, req.ToStopID)
	if err != nil {
		h.respondTripError(w, req.ToStopID, err)
		return
	}

	if common := intersect(fromRoutes, toRoutes); len(common) > 0 {
		respondData(w, tripPlan{Type: "direct", Routes: common})
		return
	}

	plan, err := h.findTransfer(ctx, fromRoutes, toRoutes)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to plan trip")
		return
	}
	respondData(w, plan)
}

// stationRoutes returns the route ids serving any platform of the
// stop's station grouping.
func (h *TransitHandler) stationRoutes(ctx context.Context, stopID string) ([]string, error) {
	members, err := h.repo.StationMembers(ctx, stopID)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var ids []string
	for _, m := range members {
		routes, err := h.repo.RoutesForStop(ctx, m.ID)
		if err != nil {
			continue
		}
		for _, rt := range routes {
			if !seen[rt.ID] {
				seen[rt.ID] = true
				ids = append(ids, rt.ID)
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// findTransfer looks for a station served by at least one route from
// each end and suggests it as the single transfer point. Deterministic:
// candidate stations are scanned in id order.
func (h *TransitHandler) findTransfer(ctx context.Context, fromRoutes, toRoutes []string) (tripPlan, error) {
	routesByStop, err := h.repo.RoutesByStop(ctx)
	if err != nil {
		return tripPlan{}, err
	}

	fromSet := toSet(fromRoutes)
	dstSet := toSet(toRoutes)

	stopIDs := make([]string, 0, len(routesByStop))
	for id := range routesByStop {
		stopIDs = append(stopIDs, id)
	}
	sort.Strings(stopIDs)

	for _, id := range stopIDs {
		var firstLeg, secondLeg []string
		for _, rt := range routesByStop[id] {
			if fromSet[rt.ID] {
				firstLeg = append(firstLeg, rt.ID)
			}
			if dstSet[rt.ID] {
				secondLeg = append(secondLeg, rt.ID)
			}
		}
		if len(firstLeg) == 0 || len(secondLeg) == 0 {
			continue
		}

		plan := tripPlan{
			Type:         "transfer",
			TransferStop: id,
			FirstLeg:     firstLeg,
			SecondLeg:    secondLeg,
		}
		if stop, err := h.repo.Stop(ctx, id); err == nil {
			plan.TransferName = stop.Name
		}
		return plan, nil
	}

	return tripPlan{Type: "none"}, nil
}

func (h *TransitHandler) respondTripError(w http.ResponseWriter, stopID string, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		respondError(w, http.StatusNotFound, fmt.Sprintf("stop not found: %s", stopID))
		return
	}
	respondError(w, http.StatusInternalServerError, "Failed to plan trip")
}

func intersect(a, b []string) []string {
	set := toSet(b)
	var out []string
	for _, v := range a {
		if set[v] {
			out = append(out, v)
		}
	}
	return out
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
