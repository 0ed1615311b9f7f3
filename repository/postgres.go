package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pradeepg78/TrainSense/models"
)

// PostgresTopologyRepository is the Postgres-backed variant of the
// topology store, used when DATABASE_URL is set. The schema mirrors
// schema.sql and is provisioned outside this service.
type PostgresTopologyRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTopologyRepository connects a pgx pool to databaseURL.
func NewPostgresTopologyRepository(databaseURL string) (*PostgresTopologyRepository, error) {
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresTopologyRepository{pool: pool}, nil
}

// Close releases the connection pool.
func (r *PostgresTopologyRepository) Close() {
	r.pool.Close()
}

// Ping verifies database connectivity for health checks.
func (r *PostgresTopologyRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Routes returns all imported subway routes ordered by identifier.
func (r *PostgresTopologyRepository) Routes(ctx context.Context) ([]models.Route, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, short_name, long_name, route_type, route_color, text_color
		FROM routes
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query routes: %w", err)
	}
	defer rows.Close()

	return scanPgxRoutes(rows)
}

// Route returns a single route by id, or ErrNotFound.
func (r *PostgresTopologyRepository) Route(ctx context.Context, routeID string) (*models.Route, error) {
	var rt models.Route
	err := r.pool.QueryRow(ctx, `
		SELECT id, short_name, long_name, route_type, route_color, text_color
		FROM routes
		WHERE id = $1
	`, routeID).Scan(&rt.ID, &rt.ShortName, &rt.LongName, &rt.RouteType, &rt.Color, &rt.TextColor)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("route %s: %w", routeID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query route %s: %w", routeID, err)
	}
	rt.MarkExpress()
	return &rt, nil
}

// Stops returns all imported stops (platforms and stations).
func (r *PostgresTopologyRepository) Stops(ctx context.Context) ([]models.Stop, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, latitude, longitude, location_type, parent_station
		FROM stops
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stops: %w", err)
	}
	defer rows.Close()

	return scanPgxStops(rows)
}

// Stop returns a single stop by id, or ErrNotFound.
func (r *PostgresTopologyRepository) Stop(ctx context.Context, stopID string) (*models.Stop, error) {
	var s models.Stop
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, latitude, longitude, location_type, parent_station
		FROM stops
		WHERE id = $1
	`, stopID).Scan(&s.ID, &s.Name, &s.Latitude, &s.Longitude, &s.LocationType, &s.ParentStation)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("stop %s: %w", stopID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query stop %s: %w", stopID, err)
	}
	return &s, nil
}

// RoutesForStop returns the routes serving a stop, or ErrNotFound for
// an unknown stop id.
func (r *PostgresTopologyRepository) RoutesForStop(ctx context.Context, stopID string) ([]models.Route, error) {
	if _, err := r.Stop(ctx, stopID); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT rt.id, rt.short_name, rt.long_name, rt.route_type, rt.route_color, rt.text_color
		FROM routes rt
		JOIN stop_routes sr ON sr.route_id = rt.id
		WHERE sr.stop_id = $1
		ORDER BY rt.id
	`, stopID)
	if err != nil {
		return nil, fmt.Errorf("failed to query routes for stop %s: %w", stopID, err)
	}
	defer rows.Close()

	return scanPgxRoutes(rows)
}

// StopsForRoute returns the platform stops a route serves, or
// ErrNotFound for an unknown route id.
func (r *PostgresTopologyRepository) StopsForRoute(ctx context.Context, routeID string) ([]models.Stop, error) {
	if _, err := r.Route(ctx, routeID); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.name, s.latitude, s.longitude, s.location_type, s.parent_station
		FROM stops s
		JOIN stop_routes sr ON sr.stop_id = s.id
		WHERE sr.route_id = $1
		ORDER BY s.id
	`, routeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stops for route %s: %w", routeID, err)
	}
	defer rows.Close()

	return scanPgxStops(rows)
}

// RoutesByStop returns the full stop -> routes mapping in one pass.
func (r *PostgresTopologyRepository) RoutesByStop(ctx context.Context) (map[string][]models.Route, error) {
	rows, err := r.pool.Query(ctx, `
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

// StationMembers returns every stop sharing stopID's hub key.
func (r *PostgresTopologyRepository) StationMembers(ctx context.Context, stopID string) ([]models.Stop, error) {
	stop, err := r.Stop(ctx, stopID)
	if err != nil {
		return nil, err
	}
	key := stop.HubKey()

	rows, err := r.pool.Query(ctx, `
		SELECT id, name, latitude, longitude, location_type, parent_station
		FROM stops
		WHERE id = $1 OR parent_station = $1
		ORDER BY id
	`, key)
	if err != nil {
		return nil, fmt.Errorf("failed to query station members for %s: %w", stopID, err)
	}
	defer rows.Close()

	return scanPgxStops(rows)
}

// Shape returns the imported polyline for a route.
func (r *PostgresTopologyRepository) Shape(ctx context.Context, routeID string) ([]models.LatLon, error) {
	if _, err := r.Route(ctx, routeID); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT latitude, longitude
		FROM shapes
		WHERE route_id = $1
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

// Stats returns row counts plus the latest import metadata.
func (r *PostgresTopologyRepository) Stats(ctx context.Context) (*DataStats, error) {
	stats := &DataStats{}
	err := r.pool.QueryRow(ctx, `
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
	err = r.pool.QueryRow(ctx, `
		SELECT import_id, imported_at_utc
		FROM import_meta
		ORDER BY imported_at_utc DESC
		LIMIT 1
	`).Scan(&stats.ImportID, &importedAt)
	if err == nil {
		if t, perr := time.Parse(time.RFC3339, importedAt); perr == nil {
			stats.ImportedAt = &t
		}
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to query import meta: %w", err)
	}

	return stats, nil
}

func scanPgxRoutes(rows pgx.Rows) ([]models.Route, error) {
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

func scanPgxStops(rows pgx.Rows) ([]models.Stop, error) {
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
