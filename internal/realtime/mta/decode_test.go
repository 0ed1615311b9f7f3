package mta

import (
	"testing"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

func strPtr(s string) *string { return &s }
func i64Ptr(v int64) *int64   { return &v }
func i32Ptr(v int32) *int32   { return &v }
func u32Ptr(v uint32) *uint32 { return &v }
func u64Ptr(v uint64) *uint64 { return &v }

func tripUpdateEntity(id, tripID, routeID string, stus ...*gtfs.TripUpdate_StopTimeUpdate) *gtfs.FeedEntity {
	tu := &gtfs.TripUpdate{
		Trip:           &gtfs.TripDescriptor{},
		StopTimeUpdate: stus,
	}
	if tripID != "" {
		tu.Trip.TripId = strPtr(tripID)
	}
	if routeID != "" {
		tu.Trip.RouteId = strPtr(routeID)
	}
	return &gtfs.FeedEntity{Id: strPtr(id), TripUpdate: tu}
}

func stuArrival(stopID string, epoch int64) *gtfs.TripUpdate_StopTimeUpdate {
	return &gtfs.TripUpdate_StopTimeUpdate{
		StopId:  strPtr(stopID),
		Arrival: &gtfs.TripUpdate_StopTimeEvent{Time: i64Ptr(epoch)},
	}
}

func TestDecodeFeed_Predictions(t *testing.T) {
	fm := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: strPtr("2.0"),
			Timestamp:           u64Ptr(1_700_000_000),
		},
		Entity: []*gtfs.FeedEntity{
			tripUpdateEntity("1", "trip-1", "N",
				stuArrival("R16N", 1_700_000_120),
				stuArrival("R20N", 1_700_000_300),
			),
		},
	}

	snap := decodeFeed("nqrw", fm)

	if snap.FeedTimestamp != 1_700_000_000 {
		t.Errorf("feed timestamp = %d", snap.FeedTimestamp)
	}
	if snap.Entities != 1 {
		t.Errorf("entities = %d, expected 1", snap.Entities)
	}
	if len(snap.Predictions) != 2 {
		t.Fatalf("predictions = %d, expected 2", len(snap.Predictions))
	}
	p := snap.Predictions[0]
	if p.RouteID != "N" || p.StopID != "R16N" || p.Epoch != 1_700_000_120 {
		t.Errorf("unexpected prediction %+v", p)
	}
	if p.Direction != DirectionNorth {
		t.Errorf("direction = %q, expected %q", p.Direction, DirectionNorth)
	}
	if snap.RouteTrips["N"] != 1 {
		t.Errorf("route trips = %d, expected 1", snap.RouteTrips["N"])
	}
}

func TestDecodeFeed_MissingIdentifiersCountedMalformed(t *testing.T) {
	fm := &gtfs.FeedMessage{
		Entity: []*gtfs.FeedEntity{
			tripUpdateEntity("1", "", "N", stuArrival("R16N", 1_700_000_120)),
			tripUpdateEntity("2", "trip-2", "N",
				&gtfs.TripUpdate_StopTimeUpdate{
					Arrival: &gtfs.TripUpdate_StopTimeEvent{Time: i64Ptr(1_700_000_120)},
				},
			),
		},
	}

	snap := decodeFeed("nqrw", fm)
	if snap.Malformed != 2 {
		t.Errorf("malformed = %d, expected 2", snap.Malformed)
	}
	if len(snap.Predictions) != 0 {
		t.Errorf("predictions = %d, expected 0", len(snap.Predictions))
	}
}

func TestDecodeFeed_MissingTimeIsNotMalformed(t *testing.T) {
	fm := &gtfs.FeedMessage{
		Entity: []*gtfs.FeedEntity{
			tripUpdateEntity("1", "trip-1", "N",
				&gtfs.TripUpdate_StopTimeUpdate{StopId: strPtr("R16N")},
			),
		},
	}

	snap := decodeFeed("nqrw", fm)
	if snap.Malformed != 0 {
		t.Errorf("malformed = %d, expected 0", snap.Malformed)
	}
	if len(snap.Predictions) != 0 {
		t.Errorf("predictions = %d, expected 0", len(snap.Predictions))
	}
}

func TestDecodeFeed_DeparturePreferredWhenNoArrival(t *testing.T) {
	fm := &gtfs.FeedMessage{
		Entity: []*gtfs.FeedEntity{
			tripUpdateEntity("1", "trip-1", "N",
				&gtfs.TripUpdate_StopTimeUpdate{
					StopId:    strPtr("R16N"),
					Departure: &gtfs.TripUpdate_StopTimeEvent{Time: i64Ptr(1_700_000_200)},
				},
			),
		},
	}

	snap := decodeFeed("nqrw", fm)
	if len(snap.Predictions) != 1 || snap.Predictions[0].Epoch != 1_700_000_200 {
		t.Errorf("expected departure time fallback, got %+v", snap.Predictions)
	}
}

func TestDecodeFeed_DelayedTrips(t *testing.T) {
	fm := &gtfs.FeedMessage{
		Entity: []*gtfs.FeedEntity{
			tripUpdateEntity("1", "trip-1", "N",
				&gtfs.TripUpdate_StopTimeUpdate{
					StopId:  strPtr("R16N"),
					Arrival: &gtfs.TripUpdate_StopTimeEvent{Time: i64Ptr(1_700_000_120), Delay: i32Ptr(600)},
				},
			),
			tripUpdateEntity("2", "trip-2", "N",
				&gtfs.TripUpdate_StopTimeUpdate{
					StopId:  strPtr("R16S"),
					Arrival: &gtfs.TripUpdate_StopTimeEvent{Time: i64Ptr(1_700_000_120), Delay: i32Ptr(60)},
				},
			),
		},
	}

	snap := decodeFeed("nqrw", fm)
	if snap.RouteTrips["N"] != 2 {
		t.Errorf("route trips = %d, expected 2", snap.RouteTrips["N"])
	}
	if snap.RouteDelayed["N"] != 1 {
		t.Errorf("delayed trips = %d, expected 1", snap.RouteDelayed["N"])
	}
}

func TestDecodeFeed_RoundTripsThroughProto(t *testing.T) {
	fm := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{GtfsRealtimeVersion: strPtr("2.0")},
		Entity: []*gtfs.FeedEntity{
			tripUpdateEntity("1", "trip-1", "Q", stuArrival("R16S", 1_700_000_500)),
		},
	}

	raw, err := proto.Marshal(fm)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(raw, decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	snap := decodeFeed("nqrw", decoded)
	if len(snap.Predictions) != 1 || snap.Predictions[0].RouteID != "Q" {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestDirectionLabel(t *testing.T) {
	tests := []struct {
		name        string
		directionID *uint32
		stopID      string
		tripID      string
		expected    string
	}{
		{"explicit zero wins over stop suffix", u32Ptr(0), "R16S", "t", DirectionNorth},
		{"explicit one", u32Ptr(1), "R16N", "t", DirectionSouth},
		{"stop suffix N", nil, "R16N", "t", DirectionNorth},
		{"stop suffix S", nil, "R16S", "t", DirectionSouth},
		{"trip keyword uptown", nil, "R16", "123_uptown_local", DirectionNorth},
		{"trip keyword downtown", nil, "R16", "123_downtown_local", DirectionSouth},
		{"trip keyword east", nil, "R16", "123_eastbound", DirectionEast},
		{"trip keyword west", nil, "R16", "123_westbound", DirectionWest},
		{"no signal defaults north", nil, "R16", "opaque", DirectionNorth},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := directionLabel(tc.directionID, tc.stopID, tc.tripID)
			if got != tc.expected {
				t.Errorf("directionLabel = %q, expected %q", got, tc.expected)
			}
		})
	}
}
