package mta

import (
	"fmt"

	"github.com/pradeepg78/TrainSense/internal/config"
)

// The MTA publishes one GTFS-realtime endpoint per fixed grouping of
// routes (the numbered lines, A/C/E, B/D/F/M, ...). The grouping is
// agency-defined configuration carried in config.Tables.

// GroupEntry looks up the table entry for a feed group key.
func GroupEntry(tables *config.Tables, group string) (config.FeedGroupEntry, error) {
	for _, fg := range tables.FeedGroups {
		if fg.Group == group {
			return fg, nil
		}
	}
	return config.FeedGroupEntry{}, fmt.Errorf("unknown feed group %q", group)
}

// GroupForRoute returns the feed group carrying the given route.
func GroupForRoute(tables *config.Tables, routeID string) (string, bool) {
	for _, fg := range tables.FeedGroups {
		for _, r := range fg.Routes {
			if r == routeID {
				return fg.Group, true
			}
		}
	}
	return "", false
}

// GroupsForRoutes returns the feed groups relevant to any of the given
// routes, deduplicated, in table order. An empty route list selects
// every group, for stops whose serving routes are unknown.
func GroupsForRoutes(tables *config.Tables, routeIDs []string) []string {
	if len(routeIDs) == 0 {
		groups := make([]string, 0, len(tables.FeedGroups))
		for _, fg := range tables.FeedGroups {
			groups = append(groups, fg.Group)
		}
		return groups
	}

	want := map[string]bool{}
	for _, r := range routeIDs {
		want[r] = true
	}

	groups := []string{}
	for _, fg := range tables.FeedGroups {
		for _, r := range fg.Routes {
			if want[r] {
				groups = append(groups, fg.Group)
				break
			}
		}
	}
	return groups
}

// FeedURL builds the endpoint URL for a feed group entry.
func FeedURL(baseURL string, entry config.FeedGroupEntry) string {
	return baseURL + "/" + entry.Path
}
