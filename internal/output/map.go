package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/mkueh/citibike-analyse/internal/models"
	"github.com/mkueh/citibike-analyse/internal/store"
)

const leafletTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8"/>
<meta name="viewport" content="width=device-width, initial-scale=1.0"/>
<title>{{.Title}}</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css"/>
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>
  html, body { margin: 0; height: 100%; }
  #map { height: 100%; }
</style>
</head>
<body>
<div id="map"></div>
<script>
  var map = L.map('map').setView([{{.CenterLat}}, {{.CenterLon}}], 12);
  L.tileLayer('https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png', {
    maxZoom: 19,
    attribution: '&copy; OpenStreetMap contributors'
  }).addTo(map);

  var clusters = {{.ClustersJSON}};
  L.geoJSON(clusters, {
    style: function () {
      return {color: '#d7301f', weight: 1, fillOpacity: 0.35};
    },
    onEachFeature: function (feature, layer) {
      var p = feature.properties;
      layer.bindPopup(
        'Crashes: ' + p.crash_count +
        '<br>Max dist: ' + p.max_dist_m.toFixed(1) + ' m' +
        '<br>Ride intersections: ' + p.ride_intersections +
        '<br>Crashes per ride: ' + p.crash_per_rides.toFixed(4)
      );
    }
  }).addTo(map);

  var routes = {{.RoutesJSON}};
  if (routes.features.length > 0) {
    var routeLayer = L.geoJSON(routes, {
      style: function (feature) {
        return {
          color: feature.properties.method === 'direct_fallback' ? '#969696' : '#2b8cbe',
          weight: 2,
          opacity: 0.7
        };
      },
      onEachFeature: function (feature, layer) {
        var p = feature.properties;
        var txt = 'Ride: ' + (p.ride_id || 'n/a') +
          '<br>Length: ' + (p.length_m / 1000).toFixed(2) + ' km' +
          '<br>Method: ' + p.method;
        if (p.duration_min) {
          txt += '<br>Duration: ' + p.duration_min.toFixed(1) + ' min';
          txt += '<br>Speed: ' + (p.length_m / 1000 / (p.duration_min / 60)).toFixed(1) + ' km/h';
        }
        layer.bindPopup(txt);
      }
    }).addTo(map);
    if ({{.ShowMarkers}}) {
      routes.features.forEach(function (feature) {
        var coords = feature.geometry.coordinates;
        if (coords.length < 2) { return; }
        var start = coords[0], end = coords[coords.length - 1];
        L.circleMarker([start[1], start[0]], {radius: 3, color: '#31a354'}).addTo(map);
        L.circleMarker([end[1], end[0]], {radius: 3, color: '#756bb1'}).addTo(map);
      });
    }
  }
</script>
</body>
</html>
`

var mapTmpl = template.Must(template.New("map").Parse(leafletTemplate))

type mapData struct {
	Title        string
	CenterLat    float64
	CenterLon    float64
	ClustersJSON template.JS
	RoutesJSON   template.JS
	ShowMarkers  bool
}

// MapOptions controls what the rendered map shows.
type MapOptions struct {
	Title           string
	IncludeRoutes   bool
	ShowMarkers     bool
	OnlyIntersected bool
}

// RenderMap builds a self-contained Leaflet HTML page for an analysis.
func RenderMap(a store.Analysis, opts MapOptions) ([]byte, error) {
	clustersJSON, err := ClustersGeoJSON(a.Clusters, opts.OnlyIntersected)
	if err != nil {
		return nil, fmt.Errorf("rendering clusters: %w", err)
	}
	routesJSON := []byte(`{"type":"FeatureCollection","features":[]}`)
	if opts.IncludeRoutes {
		routesJSON, err = RoutesGeoJSON(a.Rides, a.Routes)
		if err != nil {
			return nil, fmt.Errorf("rendering routes: %w", err)
		}
	}
	title := opts.Title
	if title == "" {
		title = "Crash cluster map"
	}
	lat, lon := mapCenter(a.BBox)
	data := mapData{
		Title:        title,
		CenterLat:    lat,
		CenterLon:    lon,
		ClustersJSON: template.JS(compactJSON(clustersJSON)),
		RoutesJSON:   template.JS(compactJSON(routesJSON)),
		ShowMarkers:  opts.ShowMarkers,
	}
	var buf bytes.Buffer
	if err := mapTmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteMap writes the rendered map to <dir>/<name>.html.
func WriteMap(dir, name string, a store.Analysis, opts MapOptions) (string, error) {
	html, err := RenderMap(a, opts)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating output folder: %w", err)
	}
	path := filepath.Join(dir, name+".html")
	if err := os.WriteFile(path, html, 0644); err != nil {
		return "", err
	}
	return path, nil
}

func mapCenter(b models.BBox) (float64, float64) {
	return (b.North + b.South) / 2, (b.East + b.West) / 2
}

func compactJSON(data []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return string(data)
	}
	return buf.String()
}
