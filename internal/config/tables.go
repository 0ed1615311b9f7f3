package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Tables holds the static lookup tables the core depends on: the
// feed-group composition, shared-trackage trunk groups, route display
// colors and the fixed route display order. They are agency-defined
// configuration, not computed - components receive them at
// construction time so tests can substitute their own.
type Tables struct {
	// FeedGroups maps a realtime feed group key to the routes it carries.
	FeedGroups []FeedGroupEntry `yaml:"feedGroups" validate:"required,min=1,dive"`

	// Trunks lists shared physical alignments and the routes running on
	// them. Routes absent from every trunk get standalone shapes.
	Trunks []TrunkGroup `yaml:"trunks" validate:"dive"`

	// RouteColors maps a route id to its display color ("#RRGGBB").
	RouteColors map[string]string `yaml:"routeColors" validate:"required"`

	// DisplayOrder is the fixed rider-facing route ordering: numbered
	// lines ascending, then lettered lines. Unknown routes sort last,
	// alphabetically.
	DisplayOrder []string `yaml:"displayOrder" validate:"required,min=1"`
}

// FeedGroupEntry binds one feed group key to its member routes and the
// endpoint path suffix under the feed base URL.
type FeedGroupEntry struct {
	Group  string   `yaml:"group" validate:"required"`
	Path   string   `yaml:"path" validate:"required"`
	Routes []string `yaml:"routes" validate:"required,min=1"`
}

// TrunkGroup is one shared-trackage alignment.
type TrunkGroup struct {
	Key    string   `yaml:"key" validate:"required"`
	Routes []string `yaml:"routes" validate:"required,min=1"`
}

// DefaultTables returns the NYCT subway tables.
func DefaultTables() *Tables {
	return &Tables{
		FeedGroups: []FeedGroupEntry{
			{Group: "123456", Path: "nyct%2Fgtfs", Routes: []string{"1", "2", "3", "4", "5", "6", "6X", "S"}},
			{Group: "7", Path: "nyct%2Fgtfs-7", Routes: []string{"7", "7X"}},
			{Group: "ace", Path: "nyct%2Fgtfs-ace", Routes: []string{"A", "C", "E"}},
			{Group: "bdfm", Path: "nyct%2Fgtfs-bdfm", Routes: []string{"B", "D", "F", "M"}},
			{Group: "g", Path: "nyct%2Fgtfs-g", Routes: []string{"G"}},
			{Group: "jz", Path: "nyct%2Fgtfs-jz", Routes: []string{"J", "Z"}},
			{Group: "l", Path: "nyct%2Fgtfs-l", Routes: []string{"L"}},
			{Group: "nqrw", Path: "nyct%2Fgtfs-nqrw", Routes: []string{"N", "Q", "R", "W"}},
			{Group: "si", Path: "nyct%2Fgtfs-si", Routes: []string{"SI"}},
		},
		Trunks: []TrunkGroup{
			{Key: "seventh-av", Routes: []string{"1", "2", "3"}},
			{Key: "lexington-av", Routes: []string{"4", "5", "6"}},
			{Key: "flushing", Routes: []string{"7"}},
			{Key: "eighth-av", Routes: []string{"A", "C", "E"}},
			{Key: "sixth-av", Routes: []string{"B", "D", "F", "M"}},
			{Key: "crosstown", Routes: []string{"G"}},
			{Key: "nassau-st", Routes: []string{"J", "Z"}},
			{Key: "canarsie", Routes: []string{"L"}},
			{Key: "broadway", Routes: []string{"N", "Q", "R", "W"}},
		},
		RouteColors: map[string]string{
			"1": "#EE352E", "2": "#EE352E", "3": "#EE352E",
			"4": "#00933C", "5": "#00933C", "6": "#00933C", "6X": "#00933C",
			"7": "#B933AD", "7X": "#B933AD",
			"A": "#0039A6", "C": "#0039A6", "E": "#0039A6",
			"B": "#FF6319", "D": "#FF6319", "F": "#FF6319", "M": "#FF6319",
			"G": "#6CBE45",
			"J": "#996633", "Z": "#996633",
			"L": "#A7A9AC",
			"N": "#FCCC0A", "Q": "#FCCC0A", "R": "#FCCC0A", "W": "#FCCC0A",
			"S": "#808183", "SI": "#0039A6",
		},
		DisplayOrder: []string{
			"1", "2", "3", "4", "5", "6", "6X", "7", "7X",
			"A", "C", "E", "B", "D", "F", "M", "G", "J", "Z",
			"L", "N", "Q", "R", "W", "S", "SI",
		},
	}
}

// LoadTables returns the default tables, or the contents of the YAML
// file at path when one is given. Loaded tables are validated so a
// broken override fails at startup rather than at request time.
func LoadTables(path string) (*Tables, error) {
	if path == "" {
		return DefaultTables(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tables file: %w", err)
	}

	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing tables file: %w", err)
	}

	if err := validator.New().Struct(&t); err != nil {
		return nil, fmt.Errorf("validating tables file: %w", err)
	}

	return &t, nil
}

// AllRoutes returns every route id named by the feed group table,
// deduplicated, in table order.
func (t *Tables) AllRoutes() []string {
	seen := map[string]bool{}
	routes := []string{}
	for _, fg := range t.FeedGroups {
		for _, r := range fg.Routes {
			if !seen[r] {
				seen[r] = true
				routes = append(routes, r)
			}
		}
	}
	return routes
}

// ColorFor returns the display color for a route, falling back to the
// unknown-service gray.
func (t *Tables) ColorFor(routeID string) string {
	if c, ok := t.RouteColors[routeID]; ok {
		return c
	}
	return "#999999"
}
