package arrivals

import (
	"testing"
	"time"

	"github.com/pradeepg78/TrainSense/internal/realtime/mta"
	"github.com/pradeepg78/TrainSense/models"
)

var displayOrder = []string{"1", "2", "3", "N", "Q", "R", "W"}

func TestAggregate_FiltersToMemberStops(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	agg := New(displayOrder, 5, 30*time.Minute)

	preds := []mta.Prediction{
		{TripID: "t1", RouteID: "N", StopID: "R16N", Direction: "Northbound", Epoch: now.Unix() + 120},
		{TripID: "t2", RouteID: "N", StopID: "R20N", Direction: "Northbound", Epoch: now.Unix() + 120},
	}
	members := map[string]bool{"R16N": true, "R16S": true}

	got := agg.Aggregate(preds, members, now)
	if len(got) != 1 {
		t.Fatalf("expected 1 arrival, got %d", len(got))
	}
	if got[0].TripID != "t1" {
		t.Errorf("kept trip %s, expected t1", got[0].TripID)
	}
}

func TestAggregate_DedupesIdenticalTuples(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	agg := New(displayOrder, 5, 30*time.Minute)

	// Two feed entries predicting the same route, direction and minute.
	preds := []mta.Prediction{
		{TripID: "t1", RouteID: "N", StopID: "R16N", Direction: "Northbound", Epoch: now.Unix() + 120},
		{TripID: "t2", RouteID: "N", StopID: "R16N", Direction: "Northbound", Epoch: now.Unix() + 130},
		{TripID: "t3", RouteID: "Q", StopID: "R16S", Direction: "Southbound", Epoch: now.Unix() - 10},
	}
	members := map[string]bool{"R16N": true, "R16S": true}

	got := agg.Aggregate(preds, members, now)
	if len(got) != 2 {
		t.Fatalf("expected 2 arrivals after dedupe, got %d", len(got))
	}
	// First occurrence survives.
	if got[0].Route != "N" || got[0].TripID != "t1" {
		t.Errorf("first arrival = %s/%s, expected N/t1", got[0].Route, got[0].TripID)
	}
}

func TestAggregate_DueOnlyAtOrPastArrival(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	agg := New(displayOrder, 5, 30*time.Minute)
	members := map[string]bool{"R16N": true}

	tests := []struct {
		name     string
		offset   int64 // seconds from now
		expected string
	}{
		{"ten seconds past", -10, models.StatusDue},
		{"exactly now", 0, models.StatusDue},
		{"thirty seconds out", 30, models.StatusDue}, // floors to 0 minutes
		{"two minutes out", 120, models.StatusApproaching},
		{"ten minutes out", 600, "10 min"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := agg.Aggregate([]mta.Prediction{
				{TripID: "t", RouteID: "N", StopID: "R16N", Epoch: now.Unix() + tc.offset},
			}, members, now)
			if len(got) != 1 {
				t.Fatalf("expected 1 arrival, got %d", len(got))
			}
			if got[0].Status != tc.expected {
				t.Errorf("status = %q, expected %q", got[0].Status, tc.expected)
			}
		})
	}
}

func TestAggregate_DropsStaleAndBeyondHorizon(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	agg := New(displayOrder, 5, 30*time.Minute)
	members := map[string]bool{"R16N": true}

	preds := []mta.Prediction{
		{TripID: "stale", RouteID: "N", StopID: "R16N", Epoch: now.Unix() - 300},
		{TripID: "far", RouteID: "N", StopID: "R16N", Epoch: now.Unix() + 45*60},
		{TripID: "ok", RouteID: "N", StopID: "R16N", Epoch: now.Unix() + 300},
	}

	got := agg.Aggregate(preds, members, now)
	if len(got) != 1 || got[0].TripID != "ok" {
		t.Fatalf("expected only trip ok, got %v", got)
	}
}

func TestAggregate_OrdersByDisplayRank(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	agg := New(displayOrder, 5, 30*time.Minute)
	members := map[string]bool{"R16N": true}

	preds := []mta.Prediction{
		{TripID: "q", RouteID: "Q", StopID: "R16N", Direction: "Northbound", Epoch: now.Unix() + 600},
		{TripID: "one", RouteID: "1", StopID: "R16N", Direction: "Northbound", Epoch: now.Unix() + 900},
		{TripID: "n", RouteID: "N", StopID: "R16N", Direction: "Northbound", Epoch: now.Unix() + 120},
	}

	got := agg.Aggregate(preds, members, now)
	want := []string{"1", "N", "Q"}
	for i, routeID := range want {
		if got[i].Route != routeID {
			t.Errorf("position %d = %s, expected %s", i, got[i].Route, routeID)
		}
	}
}

func TestAggregate_TruncatesPerGroup(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	agg := New(displayOrder, 2, 30*time.Minute)
	members := map[string]bool{"R16N": true}

	var preds []mta.Prediction
	for i := 1; i <= 5; i++ {
		preds = append(preds, mta.Prediction{
			TripID: "t", RouteID: "N", StopID: "R16N", Direction: "Northbound",
			Epoch: now.Unix() + int64(i)*240,
		})
	}
	// One arrival in the opposite direction must survive truncation.
	preds = append(preds, mta.Prediction{
		TripID: "s", RouteID: "N", StopID: "R16N", Direction: "Southbound",
		Epoch: now.Unix() + 240,
	})

	got := agg.Aggregate(preds, members, now)
	counts := map[string]int{}
	for _, a := range got {
		counts[a.Direction]++
	}
	if counts["Northbound"] != 2 {
		t.Errorf("Northbound kept %d, expected 2", counts["Northbound"])
	}
	if counts["Southbound"] != 1 {
		t.Errorf("Southbound kept %d, expected 1", counts["Southbound"])
	}
	// Truncation keeps the soonest.
	if got[0].Minutes > got[1].Minutes {
		t.Error("kept arrivals not ordered soonest-first")
	}
}

func TestAggregate_EmptyInput(t *testing.T) {
	agg := New(displayOrder, 5, 30*time.Minute)
	got := agg.Aggregate(nil, map[string]bool{"R16N": true}, time.Now())
	if len(got) != 0 {
		t.Errorf("expected empty result, got %d arrivals", len(got))
	}
}
