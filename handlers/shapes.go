package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pradeepg78/TrainSense/internal/config"
	"github.com/pradeepg78/TrainSense/internal/shapes"
	"github.com/pradeepg78/TrainSense/models"
	"github.com/pradeepg78/TrainSense/repository"
)

// ShapeHandler handles HTTP requests for route and trunk polylines
type ShapeHandler struct {
	repo   TopologyRepository
	merger *shapes.Merger
	tables *config.Tables
}

// NewShapeHandler creates a new shape handler.
func NewShapeHandler(repo TopologyRepository, merger *shapes.Merger, tables *config.Tables) *ShapeHandler {
	return &ShapeHandler{repo: repo, merger: merger, tables: tables}
}

// GetRouteShape handles GET /api/route-shape/{routeID}
func (h *ShapeHandler) GetRouteShape(w http.ResponseWriter, r *http.Request) {
	routeID := chi.URLParam(r, "routeID")

	points, err := h.repo.Shape(r.Context(), routeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusNotFound, fmt.Sprintf("route not found: %s", routeID))
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch route shape")
		return
	}

	respondData(w, models.TrunkShape{
		Key:      routeID,
		Color:    h.tables.ColorFor(routeID),
		Routes:   []string{routeID},
		Polyline: points,
	})
}

// GetTrunkShapes handles GET /api/trunk-shapes
// Returns one polyline per shared alignment, covering every imported
// route exactly once.
func (h *ShapeHandler) GetTrunkShapes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	routes, err := h.repo.Routes(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch routes")
		return
	}

	routeIDs := make([]string, 0, len(routes))
	shapesByRoute := make(map[string][]models.LatLon, len(routes))
	for _, rt := range routes {
		routeIDs = append(routeIDs, rt.ID)
		pts, err := h.repo.Shape(ctx, rt.ID)
		if err != nil {
			continue
		}
		shapesByRoute[rt.ID] = pts
	}

	respondData(w, h.merger.Merge(routeIDs, shapesByRoute))
}
