package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *SQLiteTopologyRepository {
	t.Helper()

	sqliteDB, err := NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqliteDB.Close() })

	db := sqliteDB.GetDB()
	ctx := context.Background()
	require.NoError(t, EnsureSchema(ctx, db))

	seed := []string{
		`INSERT INTO routes (id, short_name, long_name, route_type, route_color, text_color) VALUES
			('N', 'N', 'Broadway Express', 1, 'FCCC0A', '000000'),
			('Q', 'Q', 'Second Av Express', 1, 'FCCC0A', '000000'),
			('6X', '6X', 'Pelham Bay Express', 1, '00933C', 'FFFFFF')`,
		`INSERT INTO stops (id, name, latitude, longitude, location_type, parent_station) VALUES
			('R16',  'Times Sq-42 St', 40.754672, -73.986754, 1, ''),
			('R16N', 'Times Sq-42 St', 40.754672, -73.986754, 0, 'R16'),
			('R16S', 'Times Sq-42 St', 40.754672, -73.986754, 0, 'R16'),
			('G08',  'Court Sq',       40.747023, -73.945264, 0, '')`,
		`INSERT INTO stop_routes (stop_id, route_id) VALUES
			('R16N', 'N'), ('R16N', 'Q'), ('R16S', 'N'), ('G08', 'Q')`,
		`INSERT INTO shapes (route_id, pt_sequence, latitude, longitude) VALUES
			('N', 0, 40.75, -73.98), ('N', 1, 40.76, -73.99)`,
		`INSERT INTO import_meta (import_id, imported_at_utc, source_dir, route_count, stop_count, membership_count, shape_point_count)
			VALUES ('test-import', '2026-08-30T12:00:00Z', '/tmp/gtfs', 3, 4, 4, 2)`,
	}
	for _, stmt := range seed {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}

	return NewSQLiteTopologyRepository(db)
}

func TestRoutes(t *testing.T) {
	repo := newTestRepo(t)

	routes, err := repo.Routes(context.Background())
	require.NoError(t, err)
	require.Len(t, routes, 3)

	assert.Equal(t, "6X", routes[0].ID)
	assert.True(t, routes[0].IsExpress)
	assert.Equal(t, "N", routes[1].ID)
	assert.False(t, routes[1].IsExpress)
}

func TestRoute_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Route(context.Background(), "ZZ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStop(t *testing.T) {
	repo := newTestRepo(t)

	stop, err := repo.Stop(context.Background(), "R16N")
	require.NoError(t, err)
	assert.Equal(t, "Times Sq-42 St", stop.Name)
	assert.Equal(t, "R16", stop.ParentStation)
	assert.Equal(t, "R16", stop.HubKey())

	_, err = repo.Stop(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRoutesForStop(t *testing.T) {
	repo := newTestRepo(t)

	routes, err := repo.RoutesForStop(context.Background(), "R16N")
	require.NoError(t, err)
	require.Len(t, routes, 2)
	assert.Equal(t, "N", routes[0].ID)
	assert.Equal(t, "Q", routes[1].ID)
}

func TestRoutesForStop_UnknownStop(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.RoutesForStop(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRoutesForStop_StopWithoutRoutes(t *testing.T) {
	repo := newTestRepo(t)

	// The parent station row itself carries no memberships.
	routes, err := repo.RoutesForStop(context.Background(), "R16")
	require.NoError(t, err)
	assert.Empty(t, routes)
}

func TestStopsForRoute(t *testing.T) {
	repo := newTestRepo(t)

	stops, err := repo.StopsForRoute(context.Background(), "N")
	require.NoError(t, err)
	require.Len(t, stops, 2)
	assert.Equal(t, "R16N", stops[0].ID)
	assert.Equal(t, "R16S", stops[1].ID)

	_, err = repo.StopsForRoute(context.Background(), "ZZ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRoutesByStop(t *testing.T) {
	repo := newTestRepo(t)

	byStop, err := repo.RoutesByStop(context.Background())
	require.NoError(t, err)
	assert.Len(t, byStop["R16N"], 2)
	assert.Len(t, byStop["R16S"], 1)
	assert.Len(t, byStop["G08"], 1)
}

func TestStationMembers(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	// Same grouping from the platform and from the station row.
	for _, start := range []string{"R16N", "R16S", "R16"} {
		members, err := repo.StationMembers(ctx, start)
		require.NoError(t, err, start)
		ids := make([]string, len(members))
		for i, m := range members {
			ids[i] = m.ID
		}
		assert.Equal(t, []string{"R16", "R16N", "R16S"}, ids, "from %s", start)
	}

	// A stop with no parent is its own single-member group.
	members, err := repo.StationMembers(ctx, "G08")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "G08", members[0].ID)
}

func TestShape(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	points, err := repo.Shape(ctx, "N")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 40.75, points[0].Latitude)

	// Known route without an imported shape: empty, not an error.
	points, err = repo.Shape(ctx, "Q")
	require.NoError(t, err)
	assert.Empty(t, points)

	_, err = repo.Shape(ctx, "ZZ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStats(t *testing.T) {
	repo := newTestRepo(t)

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Routes)
	assert.Equal(t, 4, stats.Stops)
	assert.Equal(t, 4, stats.Memberships)
	assert.Equal(t, 2, stats.ShapePoints)
	assert.Equal(t, "test-import", stats.ImportID)
	require.NotNil(t, stats.ImportedAt)
}
