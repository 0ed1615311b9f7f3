package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pradeepg78/TrainSense/models"
)

// ErrNotFound is returned when a referenced route or stop identifier
// does not exist in the store. Handlers map it to a 404-style response.
var ErrNotFound = errors.New("not found")

// schemaSQL is the single source of truth for the topology schema,
// embedded at compile time. Both the importer and tests use it.
//
//go:embed schema.sql
var schemaSQL string

// SQLiteDB wraps a SQL database connection for SQLite
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB opens a SQLite database with WAL mode and foreign keys
// enabled.
func NewSQLiteDB(dbPath string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal=WAL&_fk=1&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *SQLiteDB) GetDB() *sql.DB {
	return s.db
}

// EnsureSchema creates the topology tables if they don't exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SQLiteTopologyRepository serves read-only topology queries against
// the imported GTFS static data.
type SQLiteTopologyRepository struct {
	db *sql.DB
}

// NewSQLiteTopologyRepository creates a new SQLiteTopologyRepository
func NewSQLiteTopologyRepository(db *sql.DB) *SQLiteTopologyRepository {
	return &SQLiteTopologyRepository{db: db}
}

// Ping verifies database connectivity for health checks.
func (r *SQLiteTopologyRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Routes returns all imported subway routes ordered by identifier.
func (r *SQLiteTopologyRepository) Routes(ctx context.Context) ([]models.Route, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, short_name, long_name, route_type, route_color, text_color
		FROM routes
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query routes: %w", err)
	}
	defer rows.Close()

	return scanRoutes(rows)
}

// Route returns a single route by id, or ErrNotFound.
func (r *SQLiteTopologyRepository) Route(ctx context.Context, routeID string) (*models.Route, error) {
	var rt models.Route
	err := r.db.QueryRowContext(ctx, `
		SELECT id, short_name, long_name, route_type, route_color, text_color
		FROM routes
		WHERE id = ?
	`, routeID).Scan(&rt.ID, &rt.ShortName, &rt.LongName, &rt.RouteType, &rt.Color, &rt.TextColor)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("route %s: %w", routeID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query route %s: %w", routeID, err)
	}
	rt.MarkExpress()
	return &rt, nil
}

// Stops returns all imported stops (platforms and stations).
func (r *SQLiteTopologyRepository) Stops(ctx context.Context) ([]models.Stop, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, latitude, longitude, location_type, parent_station
		FROM stops
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stops: %w", err)
	}
	defer rows.Close()

	return scanStops(rows)
}

// Stop returns a single stop by id, or ErrNotFound.
func (r *SQLiteTopologyRepository) Stop(ctx context.Context, stopID string) (*models.Stop, error) {
	var s models.Stop
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, latitude, longitude, location_type, parent_station
		FROM stops
		WHERE id = ?
	`, stopID).Scan(&s.ID, &s.Name, &s.Latitude, &s.Longitude, &s.LocationType, &s.ParentStation)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("stop %s: %w", stopID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query stop %s: %w", stopID, err)
	}
	return &s, nil
}

// RoutesForStop returns the routes serving a stop, or ErrNotFound for
// an unknown stop id.
func (r *SQLiteTopologyRepository) RoutesForStop(ctx context.Context, stopID string) ([]models.Route, error) {
	if _, err := r.Stop(ctx, stopID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT rt.id, rt.short_name, rt.long_name, rt.route_type, rt.route_color, rt.text_color
		FROM routes rt
		JOIN stop_routes sr ON sr.route_id = rt.id
		WHERE sr.stop_id = ?
		ORDER BY rt.id
	`, stopID)
	if err != nil {
		return nil, fmt.Errorf("failed to query routes for stop %s: %w", stopID, err)
	}
	defer rows.Close()

	return scanRoutes(rows)
}

// StopsForRoute returns the platform stops a route serves, or
// ErrNotFound for an unknown route id.
func (r *SQLiteTopologyRepository) StopsForRoute(ctx context.Context, routeID string) ([]models.Stop, error) {
	if _, err := r.Route(ctx, routeID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.latitude, s.longitude, s.location_type, s.parent_station
		FROM stops s
		JOIN stop_routes sr ON sr.stop_id = s.id
		WHERE sr.route_id = ?
		ORDER BY s.id
	`, routeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stops for route %s: %w", routeID, err)
	}
	defer rows.Close()

	return scanStops(rows)
}

// RoutesByStop returns the full stop -> routes mapping in one pass,
// for hub resolution over the whole stop table.
func (r *SQLiteTopologyRepository) RoutesByStop(ctx context.Context) (map[string][]models.Route, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sr.stop_id, rt.id, rt.short_name, rt.long_name, rt.route_type, rt.route_color, rt.text_color
		FROM stop_routes sr
		JOIN routes rt ON rt.id = sr.route_id
		ORDER BY sr.stop_id, rt.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stop route memberships: %w", err)
	}
	defer rows.Close()

	result := map[string][]models.Route{}
	for rows.Next() {
		var stopID string
		var rt models.Route
		if err := rows.Scan(&stopID, &rt.ID, &rt.ShortName, &rt.LongName, &rt.RouteType, &rt.Color, &rt.TextColor); err != nil {
			return nil, fmt.Errorf("failed to scan membership row: %w", err)
		}
		rt.MarkExpress()
		result[stopID] = append(result[stopID], rt)
	}
	return result, rows.Err()
}

// StationMembers returns every stop belonging to the same station
// grouping as stopID: the stops sharing its hub key, plus the hub stop
// itself. ErrNotFound for an unknown stop.
func (r *SQLiteTopologyRepository) StationMembers(ctx context.Context, stopID string) ([]models.Stop, error) {
	stop, err := r.Stop(ctx, stopID)
	if err != nil {
		return nil, err
	}
	key := stop.HubKey()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, latitude, longitude, location_type, parent_station
		FROM stops
		WHERE id = ? OR parent_station = ?
		ORDER BY id
	`, key, key)
	if err != nil {
		return nil, fmt.Errorf("failed to query station members for %s: %w", stopID, err)
	}
	defer rows.Close()

	return scanStops(rows)
}

// Shape returns the imported polyline for a route, ordered by point
// sequence. ErrNotFound when the route id is unknown; a known route
// with no imported shape yields an empty polyline.
func (r *SQLiteTopologyRepository) Shape(ctx context.Context, routeID string) ([]models.LatLon, error) {
	if _, err := r.Route(ctx, routeID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT latitude, longitude
		FROM shapes
		WHERE route_id = ?
		ORDER BY pt_sequence
	`, routeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query shape for route %s: %w", routeID, err)
	}
	defer rows.Close()

	points := []models.LatLon{}
	for rows.Next() {
		var p models.LatLon
		if err := rows.Scan(&p.Latitude, &p.Longitude); err != nil {
			return nil, fmt.Errorf("failed to scan shape point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// DataStats reports table row counts and the most recent import run.
type DataStats struct {
	Routes      int        `json:"routes"`
	Stops       int        `json:"stops"`
	Memberships int        `json:"memberships"`
	ShapePoints int        `json:"shape_points"`
	ImportID    string     `json:"import_id,omitempty"`
	ImportedAt  *time.Time `json:"imported_at,omitempty"`
}

// Stats returns row counts plus the latest import metadata.
func (r *SQLiteTopologyRepository) Stats(ctx context.Context) (*DataStats, error) {
	stats := &DataStats{}
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM routes),
			(SELECT COUNT(*) FROM stops),
			(SELECT COUNT(*) FROM stop_routes),
			(SELECT COUNT(*) FROM shapes)
	`).Scan(&stats.Routes, &stats.Stops, &stats.Memberships, &stats.ShapePoints)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}

	var importedAt string
	err = r.db.QueryRowContext(ctx, `
		SELECT import_id, imported_at_utc
		FROM import_meta
		ORDER BY imported_at_utc DESC
		LIMIT 1
	`).Scan(&stats.ImportID, &importedAt)
	if err == nil {
		if t, perr := time.Parse(time.RFC3339, importedAt); perr == nil {
			stats.ImportedAt = &t
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to query import meta: %w", err)
	}

	return stats, nil
}

func scanRoutes(rows *sql.Rows) ([]models.Route, error) {
	routes := []models.Route{}
	for rows.Next() {
		var rt models.Route
		if err := rows.Scan(&rt.ID, &rt.ShortName, &rt.LongName, &rt.RouteType, &rt.Color, &rt.TextColor); err != nil {
			return nil, fmt.Errorf("failed to scan route row: %w", err)
		}
		rt.MarkExpress()
		routes = append(routes, rt)
	}
	return routes, rows.Err()
}

func scanStops(rows *sql.Rows) ([]models.Stop, error) {
	stops := []models.Stop{}
	for rows.Next() {
		var s models.Stop
		if err := rows.Scan(&s.ID, &s.Name, &s.Latitude, &s.Longitude, &s.LocationType, &s.ParentStation); err != nil {
			return nil, fmt.Errorf("failed to scan stop row: %w", err)
		}
		stops = append(stops, s)
	}
	return stops, rows.Err()
}
