package mta

import (
	"strings"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
)

// delayThreshold is the stop-time delay (seconds) at which a trip
// counts as delayed for service status analysis.
const delayThreshold = 300

// Direction labels for NYCT feeds.
const (
	DirectionNorth = "Northbound"
	DirectionSouth = "Southbound"
	DirectionEast  = "Eastbound"
	DirectionWest  = "Westbound"
)

// decodeFeed normalizes the trip-update entities of a FeedMessage into
// a FeedSnapshot. Entities missing trip or stop identifiers are
// rejected at this boundary and counted as malformed rather than
// propagated as partial objects.
func decodeFeed(group string, fm *gtfs.FeedMessage) *FeedSnapshot {
	snap := &FeedSnapshot{
		Group:        group,
		Entities:     len(fm.Entity),
		RouteTrips:   map[string]int{},
		RouteDelayed: map[string]int{},
	}

	if fm.Header != nil && fm.Header.Timestamp != nil {
		snap.FeedTimestamp = int64(*fm.Header.Timestamp)
	}

	for _, e := range fm.Entity {
		tu := e.TripUpdate
		if tu == nil {
			continue
		}
		if tu.Trip == nil || tu.Trip.TripId == nil || *tu.Trip.TripId == "" {
			snap.Malformed++
			continue
		}

		tripID := *tu.Trip.TripId
		routeID := ""
		if tu.Trip.RouteId != nil {
			routeID = *tu.Trip.RouteId
		}

		if routeID != "" {
			snap.RouteTrips[routeID]++
			if tripDelayed(tu) {
				snap.RouteDelayed[routeID]++
			}
		}

		for _, stu := range tu.StopTimeUpdate {
			if stu.StopId == nil || *stu.StopId == "" {
				snap.Malformed++
				continue
			}
			stopID := *stu.StopId

			epoch := stopTimeEpoch(stu)
			if epoch == 0 {
				// No prediction carried (e.g. skipped stop); valid, not malformed.
				continue
			}

			snap.Predictions = append(snap.Predictions, Prediction{
				TripID:    tripID,
				RouteID:   routeID,
				StopID:    stopID,
				Direction: directionLabel(tu.Trip.DirectionId, stopID, tripID),
				Epoch:     epoch,
			})
		}
	}

	return snap
}

// stopTimeEpoch extracts the predicted time of a stop-time update,
// preferring arrival over departure.
func stopTimeEpoch(stu *gtfs.TripUpdate_StopTimeUpdate) int64 {
	if stu.Arrival != nil && stu.Arrival.Time != nil {
		return *stu.Arrival.Time
	}
	if stu.Departure != nil && stu.Departure.Time != nil {
		return *stu.Departure.Time
	}
	return 0
}

// tripDelayed reports whether any stop-time update on the trip carries
// a delay at or past the threshold.
func tripDelayed(tu *gtfs.TripUpdate) bool {
	for _, stu := range tu.StopTimeUpdate {
		if stu.Arrival != nil && stu.Arrival.Delay != nil && *stu.Arrival.Delay >= delayThreshold {
			return true
		}
		if stu.Departure != nil && stu.Departure.Delay != nil && *stu.Departure.Delay >= delayThreshold {
			return true
		}
	}
	return false
}

// directionLabel derives the human direction label for a prediction.
// An explicit direction_id field wins; NYCT feeds usually omit it, in
// which case the trailing letter of the platform stop id ("R16N",
// "R16S") applies; as a last resort the trip id is scanned for the
// keywords the agency has historically embedded.
func directionLabel(directionID *uint32, stopID, tripID string) string {
	if directionID != nil {
		if *directionID == 0 {
			return DirectionNorth
		}
		return DirectionSouth
	}

	if n := len(stopID); n > 1 {
		switch stopID[n-1] {
		case 'N':
			return DirectionNorth
		case 'S':
			return DirectionSouth
		}
	}

	trip := strings.ToLower(tripID)
	switch {
	case strings.Contains(trip, "north") || strings.Contains(trip, "uptown"):
		return DirectionNorth
	case strings.Contains(trip, "south") || strings.Contains(trip, "downtown"):
		return DirectionSouth
	case strings.Contains(trip, "east"):
		return DirectionEast
	case strings.Contains(trip, "west"):
		return DirectionWest
	}

	return DirectionNorth
}
