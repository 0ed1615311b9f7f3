package models

import (
	"errors"
	"strings"
)

// Route represents a subway line as imported from GTFS routes.txt.
// Maps 1:1 to rows in the routes table.
type Route struct {
	ID        string `db:"id" json:"id"`                 // e.g. "6", "N", "Q"
	ShortName string `db:"short_name" json:"short_name"` // display name
	LongName  string `db:"long_name" json:"long_name"`
	RouteType int    `db:"route_type" json:"route_type"` // 1=subway
	Color     string `db:"route_color" json:"route_color"`
	TextColor string `db:"text_color" json:"text_color"`
	IsExpress bool   `db:"-" json:"is_express"`
}

// ExpressSuffix marks express variants of a base route (e.g. "6X").
// Express variants share the base route's color but are rendered with
// a diamond glyph instead of a circle.
const ExpressSuffix = "X"

// BaseRouteID strips the express marker, returning the base route.
func (r *Route) BaseRouteID() string {
	return strings.TrimSuffix(r.ID, ExpressSuffix)
}

// MarkExpress derives the IsExpress flag from the route identifier.
// Called after scanning a row; the flag is not persisted.
func (r *Route) MarkExpress() {
	r.IsExpress = strings.HasSuffix(r.ID, ExpressSuffix) && len(r.ID) > 1
}

// Stop represents a platform-level stop from GTFS stops.txt.
// A stop either has no parent (it is a top-level station) or its
// parent_station references another stop in the store.
type Stop struct {
	ID            string  `db:"id" json:"id"`
	Name          string  `db:"name" json:"name"`
	Latitude      float64 `db:"latitude" json:"latitude"`
	Longitude     float64 `db:"longitude" json:"longitude"`
	LocationType  int     `db:"location_type" json:"location_type"` // 0=platform, 1=station
	ParentStation string  `db:"parent_station" json:"parent_station,omitempty"`

	// Routes serving this stop, populated for /api/stops responses.
	Routes []Route `db:"-" json:"routes,omitempty"`
}

// HubKey returns the identifier under which this stop is grouped into
// a station hub: the parent station when present, else the stop's own id.
func (s *Stop) HubKey() string {
	if s.ParentStation != "" {
		return s.ParentStation
	}
	return s.ID
}

// Validate checks imported stop data before it is written to the store.
func (s *Stop) Validate() error {
	if s.ID == "" {
		return errors.New("stop id is required")
	}
	if s.Latitude < -90 || s.Latitude > 90 {
		return errors.New("latitude out of range: must be between -90 and 90")
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		return errors.New("longitude out of range: must be between -180 and 180")
	}
	return nil
}

// StationHub is a derived grouping of platform stops that riders
// perceive as one station. Recomputed per request; never persisted.
type StationHub struct {
	HubID         string   `json:"hub_id"`
	Name          string   `json:"name"`
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	Routes        []Route  `json:"routes"`
	MemberStopIDs []string `json:"member_stop_ids"`
	IsTransfer    bool     `json:"is_transfer"`
}

// Arrival is a single realtime arrival prediction for a stop, derived
// fresh from a GTFS-realtime feed on every request.
type Arrival struct {
	Route       string `json:"route"`
	Direction   string `json:"direction"`
	Minutes     int    `json:"minutes"`
	ArrivalTime int64  `json:"arrival_time"` // epoch seconds
	Status      string `json:"status"`
	TripID      string `json:"trip_id,omitempty"`
}

// Arrival status labels. StatusDue is reserved exclusively for
// predictions at or past their arrival time (minutes <= 0).
const (
	StatusDue         = "Due"
	StatusApproaching = "Approaching"
)

// LatLon is a single polyline point.
type LatLon struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// TrunkShape is one drawable polyline: either a trunk alignment shared
// by several routes, or a standalone route's own shape.
type TrunkShape struct {
	Key      string   `json:"key"` // trunk key or route id
	Color    string   `json:"color"`
	Routes   []string `json:"routes"`
	Polyline []LatLon `json:"polyline"`
}

// RouteStatus is the coarse per-route service status derived from
// realtime feed delay analysis. Degrades to "unknown" when no data
// is available.
type RouteStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Color   string `json:"color"`
}

// Service status levels with their display colors.
const (
	ServiceGood        = "good_service"
	ServiceSomeDelays  = "some_delays"
	ServiceMajorDelays = "significant_delays"
	ServiceUnknown     = "unknown"
)

// StatusUnknown returns the degraded status used when feed data is
// absent or the route cannot be matched to a feed.
func StatusUnknown(message string) RouteStatus {
	return RouteStatus{Status: ServiceUnknown, Message: message, Color: "#999999"}
}
