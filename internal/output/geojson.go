package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mkueh/citibike-analyse/internal/models"
)

type geoJSONFeature struct {
	Type       string                 `json:"type"`
	Geometry   json.RawMessage        `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type geoJSONCollection struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

func polygonGeometry(ring []models.Location) (json.RawMessage, error) {
	coords := make([][]float64, 0, len(ring))
	for _, p := range ring {
		coords = append(coords, []float64{p.Lon, p.Lat})
	}
	return json.Marshal(map[string]interface{}{
		"type":        "Polygon",
		"coordinates": [][][]float64{coords},
	})
}

func lineGeometry(coords []models.Location) (json.RawMessage, error) {
	line := make([][]float64, 0, len(coords))
	for _, p := range coords {
		line = append(line, []float64{p.Lon, p.Lat})
	}
	return json.Marshal(map[string]interface{}{
		"type":        "LineString",
		"coordinates": line,
	})
}

// ClustersGeoJSON renders enriched crash clusters as a polygon FeatureCollection.
func ClustersGeoJSON(clusters []models.EnrichedCrashCluster, onlyIntersected bool) ([]byte, error) {
	col := geoJSONCollection{Type: "FeatureCollection", Features: []geoJSONFeature{}}
	for _, c := range clusters {
		if onlyIntersected && c.RideIntersections == 0 {
			continue
		}
		geom, err := polygonGeometry(c.Buffer)
		if err != nil {
			return nil, err
		}
		col.Features = append(col.Features, geoJSONFeature{
			Type:     "Feature",
			Geometry: geom,
			Properties: map[string]interface{}{
				"crash_count":        c.Count,
				"max_dist_m":         c.MaxDist,
				"ride_intersections": c.RideIntersections,
				"crash_per_rides":    c.CrashPerRides,
			},
		})
	}
	return json.MarshalIndent(col, "", "  ")
}

// RoutesGeoJSON renders precomputed routes as a LineString FeatureCollection.
func RoutesGeoJSON(rides []models.Ride, routes []models.Route) ([]byte, error) {
	col := geoJSONCollection{Type: "FeatureCollection", Features: []geoJSONFeature{}}
	for i := range routes {
		geom, err := lineGeometry(routes[i].Coords)
		if err != nil {
			return nil, err
		}
		props := map[string]interface{}{
			"length_m": routes[i].LengthM,
			"method":   routes[i].Method,
		}
		if i < len(rides) {
			props["ride_id"] = rides[i].RideID
			if d := rides[i].Duration(); d > 0 {
				props["duration_min"] = d.Minutes()
			}
		}
		col.Features = append(col.Features, geoJSONFeature{
			Type:       "Feature",
			Geometry:   geom,
			Properties: props,
		})
	}
	return json.MarshalIndent(col, "", "  ")
}

// WriteGeoJSON writes a FeatureCollection to <dir>/<name>.geojson.
func WriteGeoJSON(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating output folder: %w", err)
	}
	path := filepath.Join(dir, name+".geojson")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
