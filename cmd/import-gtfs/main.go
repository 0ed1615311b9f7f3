// Command import-gtfs loads a GTFS static export into the topology
// database consumed by the API. It filters to subway routes, derives
// stop-route memberships from trips and stop times, and picks one
// representative shape per route.
//
// Usage:
//
//	import-gtfs -gtfs-dir ./gtfs_subway -db ./data/transit.db
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"

	"github.com/pradeepg78/TrainSense/models"
	"github.com/pradeepg78/TrainSense/repository"
)

// GTFS CSV rows. Numeric fields that may be empty in real exports are
// carried as strings and parsed explicitly.
type gtfsRoute struct {
	RouteID   string `csv:"route_id"`
	ShortName string `csv:"route_short_name"`
	LongName  string `csv:"route_long_name"`
	RouteType string `csv:"route_type"`
	Color     string `csv:"route_color"`
	TextColor string `csv:"route_text_color"`
}

type gtfsStop struct {
	StopID        string `csv:"stop_id"`
	Name          string `csv:"stop_name"`
	Latitude      string `csv:"stop_lat"`
	Longitude     string `csv:"stop_lon"`
	LocationType  string `csv:"location_type"`
	ParentStation string `csv:"parent_station"`
}

type gtfsTrip struct {
	RouteID string `csv:"route_id"`
	TripID  string `csv:"trip_id"`
	ShapeID string `csv:"shape_id"`
}

type gtfsStopTime struct {
	TripID string `csv:"trip_id"`
	StopID string `csv:"stop_id"`
}

type gtfsShapePoint struct {
	ShapeID   string `csv:"shape_id"`
	Latitude  string `csv:"shape_pt_lat"`
	Longitude string `csv:"shape_pt_lon"`
	Sequence  string `csv:"shape_pt_sequence"`
}

func main() {
	dbPath := flag.String("db", "data/transit.db", "SQLite database path")
	gtfsDir := flag.String("gtfs-dir", "", "directory containing the GTFS static .txt files")
	flag.Parse()

	if *gtfsDir == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*dbPath, *gtfsDir); err != nil {
		log.Fatalf("Import failed: %v", err)
	}
}

func run(dbPath, gtfsDir string) error {
	var routes []gtfsRoute
	if err := readCSV(gtfsDir, "routes.txt", &routes); err != nil {
		return err
	}
	var stops []gtfsStop
	if err := readCSV(gtfsDir, "stops.txt", &stops); err != nil {
		return err
	}
	var trips []gtfsTrip
	if err := readCSV(gtfsDir, "trips.txt", &trips); err != nil {
		return err
	}
	var stopTimes []gtfsStopTime
	if err := readCSV(gtfsDir, "stop_times.txt", &stopTimes); err != nil {
		return err
	}
	var shapePoints []gtfsShapePoint
	if err := readCSV(gtfsDir, "shapes.txt", &shapePoints); err != nil {
		// Shapes are optional; the API serves empty polylines without them.
		log.Printf("No shapes imported: %v", err)
	}

	// Keep subway routes only.
	subway := map[string]models.Route{}
	for _, r := range routes {
		if r.RouteType != "1" {
			continue
		}
		subway[r.RouteID] = models.Route{
			ID:        r.RouteID,
			ShortName: orDefault(r.ShortName, r.RouteID),
			LongName:  r.LongName,
			RouteType: 1,
			Color:     orDefault(r.Color, "000000"),
			TextColor: orDefault(r.TextColor, "FFFFFF"),
		}
	}
	log.Printf("Parsed %d subway routes (of %d total)", len(subway), len(routes))

	// Trip -> route, and shape usage counts for representative selection.
	tripRoute := map[string]string{}
	shapeUse := map[string]map[string]int{} // route -> shape id -> trip count
	for _, t := range trips {
		if _, ok := subway[t.RouteID]; !ok {
			continue
		}
		tripRoute[t.TripID] = t.RouteID
		if t.ShapeID != "" {
			if shapeUse[t.RouteID] == nil {
				shapeUse[t.RouteID] = map[string]int{}
			}
			shapeUse[t.RouteID][t.ShapeID]++
		}
	}

	// Stop-route memberships via stop_times.
	memberships := map[[2]string]bool{}
	servedStops := map[string]bool{}
	for _, st := range stopTimes {
		routeID, ok := tripRoute[st.TripID]
		if !ok {
			continue
		}
		memberships[[2]string{st.StopID, routeID}] = true
		servedStops[st.StopID] = true
	}
	log.Printf("Derived %d stop-route memberships across %d stops", len(memberships), len(servedStops))

	// Keep served stops plus the parent stations they reference.
	keptStops := []models.Stop{}
	byID := map[string]gtfsStop{}
	for _, s := range stops {
		byID[s.StopID] = s
	}
	keep := map[string]bool{}
	for _, s := range stops {
		if !servedStops[s.StopID] {
			continue
		}
		keep[s.StopID] = true
		if s.ParentStation != "" {
			keep[s.ParentStation] = true
		}
	}
	for id := range keep {
		raw, ok := byID[id]
		if !ok {
			continue
		}
		stop, err := parseStop(raw)
		if err != nil {
			log.Printf("Skipping stop %s: %v", id, err)
			continue
		}
		keptStops = append(keptStops, stop)
	}

	// Group shape points and pick, per route, the longest shape among
	// those its trips reference. Ties break on shape id for stable
	// re-imports.
	pointsByShape := map[string][]gtfsShapePoint{}
	for _, p := range shapePoints {
		pointsByShape[p.ShapeID] = append(pointsByShape[p.ShapeID], p)
	}
	routeShapes := map[string][]gtfsShapePoint{}
	for routeID, uses := range shapeUse {
		best, bestLen := "", 0
		for shapeID := range uses {
			n := len(pointsByShape[shapeID])
			if n == 0 {
				continue
			}
			if n > bestLen || (n == bestLen && shapeID < best) {
				best, bestLen = shapeID, n
			}
		}
		if best != "" {
			routeShapes[routeID] = pointsByShape[best]
		}
	}

	return write(dbPath, gtfsDir, subway, keptStops, memberships, routeShapes)
}

func write(dbPath, gtfsDir string, routes map[string]models.Route, stops []models.Stop, memberships map[[2]string]bool, routeShapes map[string][]gtfsShapePoint) error {
	sqliteDB, err := repository.NewSQLiteDB(dbPath)
	if err != nil {
		return err
	}
	defer sqliteDB.Close()
	db := sqliteDB.GetDB()

	ctx := context.Background()
	if err := repository.EnsureSchema(ctx, db); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"shapes", "stop_routes", "stops", "routes"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, rt := range routes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO routes (id, short_name, long_name, route_type, route_color, text_color)
			VALUES (?, ?, ?, ?, ?, ?)
		`, rt.ID, rt.ShortName, rt.LongName, rt.RouteType, rt.Color, rt.TextColor); err != nil {
			return fmt.Errorf("failed to insert route %s: %w", rt.ID, err)
		}
	}

	stopIDs := map[string]bool{}
	for _, s := range stops {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO stops (id, name, latitude, longitude, location_type, parent_station)
			VALUES (?, ?, ?, ?, ?, ?)
		`, s.ID, s.Name, s.Latitude, s.Longitude, s.LocationType, s.ParentStation); err != nil {
			return fmt.Errorf("failed to insert stop %s: %w", s.ID, err)
		}
		stopIDs[s.ID] = true
	}

	membershipCount := 0
	for key := range memberships {
		stopID, routeID := key[0], key[1]
		if !stopIDs[stopID] {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO stop_routes (stop_id, route_id) VALUES (?, ?)
		`, stopID, routeID); err != nil {
			return fmt.Errorf("failed to insert membership %s/%s: %w", stopID, routeID, err)
		}
		membershipCount++
	}

	shapePointCount := 0
	for routeID, points := range routeShapes {
		for _, p := range points {
			seq, err := strconv.Atoi(p.Sequence)
			if err != nil {
				continue
			}
			lat, errLat := strconv.ParseFloat(p.Latitude, 64)
			lon, errLon := strconv.ParseFloat(p.Longitude, 64)
			if errLat != nil || errLon != nil {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO shapes (route_id, pt_sequence, latitude, longitude)
				VALUES (?, ?, ?, ?)
			`, routeID, seq, lat, lon); err != nil {
				return fmt.Errorf("failed to insert shape point for route %s: %w", routeID, err)
			}
			shapePointCount++
		}
	}

	importID := uuid.NewString()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO import_meta (import_id, imported_at_utc, source_dir, route_count, stop_count, membership_count, shape_point_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, importID, time.Now().UTC().Format(time.RFC3339), gtfsDir, len(routes), len(stops), membershipCount, shapePointCount); err != nil {
		return fmt.Errorf("failed to record import metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}

	log.Printf("Import %s complete: %d routes, %d stops, %d memberships, %d shape points",
		importID, len(routes), len(stops), membershipCount, shapePointCount)
	return nil
}

func readCSV(dir, name string, out interface{}) error {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("opening %s: %w", name, err)
	}

	// Some agency exports lead with a UTF-8 BOM that would corrupt the
	// first header name.
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	if err := gocsv.UnmarshalBytes(data, out); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	return nil
}

func parseStop(raw gtfsStop) (models.Stop, error) {
	lat, err := strconv.ParseFloat(raw.Latitude, 64)
	if err != nil {
		return models.Stop{}, fmt.Errorf("bad latitude %q", raw.Latitude)
	}
	lon, err := strconv.ParseFloat(raw.Longitude, 64)
	if err != nil {
		return models.Stop{}, fmt.Errorf("bad longitude %q", raw.Longitude)
	}

	locationType := 0
	if raw.LocationType != "" {
		if v, err := strconv.Atoi(raw.LocationType); err == nil {
			locationType = v
		}
	}

	stop := models.Stop{
		ID:            raw.StopID,
		Name:          raw.Name,
		Latitude:      lat,
		Longitude:     lon,
		LocationType:  locationType,
		ParentStation: raw.ParentStation,
	}
	if err := stop.Validate(); err != nil {
		return models.Stop{}, err
	}
	return stop, nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
