package handlers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pradeepg78/TrainSense/internal/topology"
	"github.com/pradeepg78/TrainSense/models"
	"github.com/pradeepg78/TrainSense/repository"
)

// TopologyRepository defines the interface for static topology reads
type TopologyRepository interface {
	Ping(ctx context.Context) error
	Routes(ctx context.Context) ([]models.Route, error)
	Route(ctx context.Context, routeID string) (*models.Route, error)
	Stops(ctx context.Context) ([]models.Stop, error)
	Stop(ctx context.Context, stopID string) (*models.Stop, error)
	RoutesForStop(ctx context.Context, stopID string) ([]models.Route, error)
	StopsForRoute(ctx context.Context, routeID string) ([]models.Stop, error)
	RoutesByStop(ctx context.Context) (map[string][]models.Route, error)
	StationMembers(ctx context.Context, stopID string) ([]models.Stop, error)
	Shape(ctx context.Context, routeID string) ([]models.LatLon, error)
	Stats(ctx context.Context) (*repository.DataStats, error)
}

// TransitHandler handles HTTP requests for static topology data
type TransitHandler struct {
	repo TopologyRepository
	hubs *topology.Resolver
}

// NewTransitHandler creates a new handler with the given repository
// and hub resolver.
func NewTransitHandler(repo TopologyRepository, hubs *topology.Resolver) *TransitHandler {
	return &TransitHandler{repo: repo, hubs: hubs}
}

// GetRoutes handles GET /api/routes
func (h *TransitHandler) GetRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := h.repo.Routes(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch routes")
		return
	}
	respondData(w, routes)
}

// GetStops handles GET /api/stops
// Returns all platform-level stops, each with its serving routes.
func (h *TransitHandler) GetStops(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stops, err := h.repo.Stops(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch stops")
		return
	}

	routesByStop, err := h.repo.RoutesByStop(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch stop routes")
		return
	}

	for i := range stops {
		stops[i].Routes = routesByStop[stops[i].ID]
	}
	respondData(w, stops)
}

// GetStopRoutes handles GET /api/stops/{stopID}/routes
func (h *TransitHandler) GetStopRoutes(w http.ResponseWriter, r *http.Request) {
	stopID := chi.URLParam(r, "stopID")

	routes, err := h.repo.RoutesForStop(r.Context(), stopID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusNotFound, fmt.Sprintf("stop not found: %s", stopID))
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch stop routes")
		return
	}
	respondData(w, routes)
}

// GetRouteStops handles GET /api/routes/{routeID}/stops
func (h *TransitHandler) GetRouteStops(w http.ResponseWriter, r *http.Request) {
	routeID := chi.URLParam(r, "routeID")

	stops, err := h.repo.StopsForRoute(r.Context(), routeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusNotFound, fmt.Sprintf("route not found: %s", routeID))
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch route stops")
		return
	}
	respondData(w, stops)
}

// GetMapStations handles GET /api/map/stations
// Returns hub-resolved stations: platform stops grouped into the
// rider-facing station complexes the map renders.
func (h *TransitHandler) GetMapStations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stops, err := h.repo.Stops(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch stops")
		return
	}

	routesByStop, err := h.repo.RoutesByStop(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch stop routes")
		return
	}

	respondData(w, h.hubs.Resolve(stops, routesByStop))
}

// nearbyStop is one GET /api/stops/nearby result entry.
type nearbyStop struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	DistanceKM float64 `json:"distance_km"`
}

// GetNearbyStops handles GET /api/stops/nearby?lat=..&lon=..&radius=..
func (h *TransitHandler) GetNearbyStops(w http.ResponseWriter, r *http.Request) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if errLat != nil || errLon != nil {
		respondError(w, http.StatusBadRequest, "Latitude and longitude are required")
		return
	}

	radius := 1.0
	if v := r.URL.Query().Get("radius"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			radius = parsed
		}
	}

	stops, err := h.repo.Stops(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch stops")
		return
	}

	nearby := []nearbyStop{}
	for _, s := range stops {
		if s.LocationType != 0 {
			continue
		}
		d := haversineKM(lat, lon, s.Latitude, s.Longitude)
		if d <= radius {
			nearby = append(nearby, nearbyStop{
				ID:         s.ID,
				Name:       s.Name,
				Latitude:   s.Latitude,
				Longitude:  s.Longitude,
				DistanceKM: math.Round(d*100) / 100,
			})
		}
	}

	sort.Slice(nearby, func(i, j int) bool { return nearby[i].DistanceKM < nearby[j].DistanceKM })
	if len(nearby) > 20 {
		nearby = nearby[:20]
	}
	respondData(w, nearby)
}

// GetDataStats handles GET /api/data/stats
func (h *TransitHandler) GetDataStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch data stats")
		return
	}
	respondData(w, stats)
}

// haversineKM is the great-circle distance between two coordinates.
func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKM = 6371

	rlat1, rlon1 := lat1*math.Pi/180, lon1*math.Pi/180
	rlat2, rlon2 := lat2*math.Pi/180, lon2*math.Pi/180

	dlat := rlat2 - rlat1
	dlon := rlon2 - rlon1

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	return earthRadiusKM * 2 * math.Asin(math.Sqrt(a))
}
