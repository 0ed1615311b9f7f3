package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pradeepg78/TrainSense/internal/config"
	"github.com/pradeepg78/TrainSense/internal/metrics"
	"github.com/pradeepg78/TrainSense/internal/realtime/arrivals"
	"github.com/pradeepg78/TrainSense/internal/realtime/mta"
	"github.com/pradeepg78/TrainSense/models"
	"github.com/pradeepg78/TrainSense/repository"
)

// FeedClient defines the interface for realtime feed operations
type FeedClient interface {
	FetchDecode(ctx context.Context, group string) (*mta.FeedSnapshot, error)
	HealthCheck(ctx context.Context) *models.FeedHealthReport
	RouteStatus(ctx context.Context, routeID string) models.RouteStatus
}

// RealtimeHandler handles HTTP requests backed by GTFS-realtime feeds
type RealtimeHandler struct {
	repo      TopologyRepository
	feeds     FeedClient
	agg       *arrivals.Aggregator
	tables    *config.Tables
	collector *metrics.Collector
}

// NewRealtimeHandler creates a new realtime handler.
func NewRealtimeHandler(repo TopologyRepository, feeds FeedClient, agg *arrivals.Aggregator, tables *config.Tables, collector *metrics.Collector) *RealtimeHandler {
	return &RealtimeHandler{repo: repo, feeds: feeds, agg: agg, tables: tables, collector: collector}
}

// stopArrivals is the GET /api/realtime/{stopID} payload.
type stopArrivals struct {
	StopID    string           `json:"stop_id"`
	StopName  string           `json:"stop_name"`
	Arrivals  []models.Arrival `json:"arrivals"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// GetStopArrivals handles GET /api/realtime/{stopID}
//
// The requested stop is widened to its full station grouping, the feed
// groups serving any of the station's routes are fetched concurrently,
// and the decoded predictions are aggregated into one arrival list.
// Feed failures degrade the response; only an unknown stop is an error.
func (h *RealtimeHandler) GetStopArrivals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stopID := chi.URLParam(r, "stopID")

	stop, err := h.repo.Stop(ctx, stopID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusNotFound, fmt.Sprintf("stop not found: %s", stopID))
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch stop")
		return
	}

	members, err := h.repo.StationMembers(ctx, stopID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to resolve station members")
		return
	}

	memberStops := make(map[string]bool, len(members))
	routeSet := map[string]bool{}
	var routeIDs []string
	for _, m := range members {
		memberStops[m.ID] = true
		routes, err := h.repo.RoutesForStop(ctx, m.ID)
		if err != nil {
			continue
		}
		for _, rt := range routes {
			if !routeSet[rt.ID] {
				routeSet[rt.ID] = true
				routeIDs = append(routeIDs, rt.ID)
			}
		}
	}

	groups := mta.GroupsForRoutes(h.tables, routeIDs)

	var (
		mu     sync.Mutex
		preds  []mta.Prediction
		failed int
	)
	var wg sync.WaitGroup
	for _, group := range groups {
		group := group
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := h.feeds.FetchDecode(ctx, group)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				return
			}
			preds = append(preds, snap.Predictions...)
		}()
	}
	wg.Wait()

	list := h.agg.Aggregate(preds, memberStops, time.Now())

	if h.collector != nil {
		h.collector.ArrivalsServed.Add(float64(len(list)))
	}

	payload := stopArrivals{
		StopID:    stop.ID,
		StopName:  stop.Name,
		Arrivals:  list,
		UpdatedAt: time.Now().UTC(),
	}

	switch {
	case len(groups) > 0 && failed == len(groups):
		if h.collector != nil {
			h.collector.RequestErrors.WithLabelValues("realtime").Inc()
		}
		respondDataWarning(w, payload, "realtime feeds unavailable")
	case failed > 0:
		respondDataWarning(w, payload, "some realtime feeds unavailable")
	default:
		respondData(w, payload)
	}
}

// realtimeHealth is the GET /api/realtime/health payload.
type realtimeHealth struct {
	Healthy   bool                     `json:"healthy"`
	Timestamp time.Time                `json:"timestamp"`
	Feeds     []models.FeedGroupHealth `json:"feeds"`
}

// GetRealtimeHealth handles GET /api/realtime/health
func (h *RealtimeHandler) GetRealtimeHealth(w http.ResponseWriter, r *http.Request) {
	report := h.feeds.HealthCheck(r.Context())
	respondData(w, realtimeHealth{
		Healthy:   report.Healthy(),
		Timestamp: report.Timestamp,
		Feeds:     report.Feeds,
	})
}

// GetServiceStatus handles GET /api/service-status
// Returns the per-route service status for every imported route. The
// decoded-feed cache keeps this to at most one fetch per feed group.
func (h *RealtimeHandler) GetServiceStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	routes, err := h.repo.Routes(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch routes")
		return
	}

	statuses := make(map[string]models.RouteStatus, len(routes))
	for _, rt := range routes {
		statuses[rt.ID] = h.feeds.RouteStatus(ctx, rt.ID)
	}
	respondData(w, statuses)
}
