package topology

import (
	"reflect"
	"testing"

	"github.com/pradeepg78/TrainSense/models"
)

func testStops() []models.Stop {
	return []models.Stop{
		{ID: "R16", Name: "Times Sq-42 St", Latitude: 40.754672, Longitude: -73.986754, LocationType: 1},
		{ID: "R16N", Name: "Times Sq-42 St", Latitude: 40.754672, Longitude: -73.986754, ParentStation: "R16"},
		{ID: "R16S", Name: "Times Sq-42 St", Latitude: 40.754672, Longitude: -73.986754, ParentStation: "R16"},
		{ID: "G08", Name: "Court Sq", Latitude: 40.747023, Longitude: -73.945264},
	}
}

func testRoutesByStop() map[string][]models.Route {
	return map[string][]models.Route{
		"R16N": {{ID: "N"}, {ID: "Q"}},
		"R16S": {{ID: "Q"}, {ID: "R"}, {ID: "W"}},
		"G08":  {{ID: "G"}},
	}
}

func TestResolve_GroupsByParentStation(t *testing.T) {
	r := NewResolver(3, []string{"N", "Q", "R", "W", "G"})
	hubs := r.Resolve(testStops(), testRoutesByStop())

	if len(hubs) != 2 {
		t.Fatalf("expected 2 hubs, got %d", len(hubs))
	}

	var timesSq *models.StationHub
	for i := range hubs {
		if hubs[i].HubID == "R16" {
			timesSq = &hubs[i]
		}
	}
	if timesSq == nil {
		t.Fatal("no hub with id R16")
	}

	wantMembers := []string{"R16", "R16N", "R16S"}
	if !reflect.DeepEqual(timesSq.MemberStopIDs, wantMembers) {
		t.Errorf("member stop ids = %v, expected %v", timesSq.MemberStopIDs, wantMembers)
	}
	if timesSq.Name != "Times Sq-42 St" {
		t.Errorf("hub name = %q", timesSq.Name)
	}
}

func TestResolve_EveryStopInExactlyOneHub(t *testing.T) {
	r := NewResolver(3, nil)
	stops := testStops()
	hubs := r.Resolve(stops, testRoutesByStop())

	seen := map[string]int{}
	for _, h := range hubs {
		for _, id := range h.MemberStopIDs {
			seen[id]++
		}
	}
	for _, s := range stops {
		if seen[s.ID] != 1 {
			t.Errorf("stop %s appears in %d hubs, expected exactly 1", s.ID, seen[s.ID])
		}
	}
}

func TestResolve_RouteUnionDedupedAndOrdered(t *testing.T) {
	r := NewResolver(3, []string{"N", "Q", "R", "W"})
	hubs := r.Resolve(testStops(), testRoutesByStop())

	for _, h := range hubs {
		if h.HubID != "R16" {
			continue
		}
		got := make([]string, len(h.Routes))
		for i, rt := range h.Routes {
			got[i] = rt.ID
		}
		want := []string{"N", "Q", "R", "W"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("route union = %v, expected %v", got, want)
		}
	}
}

func TestResolve_Centroid(t *testing.T) {
	r := NewResolver(3, nil)
	stops := []models.Stop{
		{ID: "A1", Latitude: 40.0, Longitude: -74.0, ParentStation: "P1"},
		{ID: "A2", Latitude: 42.0, Longitude: -72.0, ParentStation: "P1"},
	}
	hubs := r.Resolve(stops, nil)

	if len(hubs) != 1 {
		t.Fatalf("expected 1 hub, got %d", len(hubs))
	}
	if hubs[0].Latitude != 41.0 || hubs[0].Longitude != -73.0 {
		t.Errorf("centroid = (%f, %f), expected (41, -73)", hubs[0].Latitude, hubs[0].Longitude)
	}
}

func TestResolve_TransferThreshold(t *testing.T) {
	stops := testStops()
	routes := testRoutesByStop()

	tests := []struct {
		name        string
		transferMin int
		hubID       string
		expected    bool
	}{
		{"four routes at threshold 3", 3, "R16", true},
		{"four routes at threshold 5", 5, "R16", false},
		{"single route at threshold 3", 3, "G08", false},
		{"single route at threshold 1", 1, "G08", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := NewResolver(tc.transferMin, nil)
			for _, h := range r.Resolve(stops, routes) {
				if h.HubID == tc.hubID && h.IsTransfer != tc.expected {
					t.Errorf("hub %s IsTransfer = %v, expected %v", tc.hubID, h.IsTransfer, tc.expected)
				}
			}
		})
	}
}

func TestResolve_Deterministic(t *testing.T) {
	r := NewResolver(3, []string{"N", "Q", "R", "W", "G"})
	first := r.Resolve(testStops(), testRoutesByStop())
	second := r.Resolve(testStops(), testRoutesByStop())

	if !reflect.DeepEqual(first, second) {
		t.Error("repeated resolution over the same snapshot differs")
	}
}

func TestResolve_StandaloneStopIsOwnHub(t *testing.T) {
	r := NewResolver(3, nil)
	hubs := r.Resolve([]models.Stop{
		{ID: "G08", Name: "Court Sq", Latitude: 40.747, Longitude: -73.945},
	}, nil)

	if len(hubs) != 1 {
		t.Fatalf("expected 1 hub, got %d", len(hubs))
	}
	if hubs[0].HubID != "G08" || hubs[0].Name != "Court Sq" {
		t.Errorf("hub = %q / %q, expected G08 / Court Sq", hubs[0].HubID, hubs[0].Name)
	}
}
