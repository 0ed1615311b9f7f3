package mta

import (
	"context"

	"github.com/pradeepg78/TrainSense/models"
)

// RouteStatus derives a coarse service status for a route from the
// delay profile of its live trips. Best effort: any failure to reach
// or match the feed degrades to "unknown", never to an error.
func (c *Client) RouteStatus(ctx context.Context, routeID string) models.RouteStatus {
	group, ok := GroupForRoute(c.tables, routeID)
	if !ok {
		return models.StatusUnknown("Route not found in feed mappings")
	}

	snap, err := c.FetchDecode(ctx, group)
	if err != nil {
		return models.StatusUnknown("Unable to fetch feed data")
	}

	total := snap.RouteTrips[routeID]
	if total == 0 {
		return models.StatusUnknown("No trip data available")
	}

	delayed := snap.RouteDelayed[routeID]
	pct := delayed * 100 / total

	switch {
	case pct < 10:
		return models.RouteStatus{Status: models.ServiceGood, Message: "Good Service", Color: "#00C851"}
	case pct < 30:
		return models.RouteStatus{Status: models.ServiceSomeDelays, Message: "Some Delays", Color: "#ffbb33"}
	default:
		return models.RouteStatus{Status: models.ServiceMajorDelays, Message: "Significant Delays", Color: "#ff4444"}
	}
}
