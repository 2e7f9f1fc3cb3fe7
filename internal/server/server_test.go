package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mkueh/citibike-analyse/internal/geo"
	"github.com/mkueh/citibike-analyse/internal/models"
	"github.com/mkueh/citibike-analyse/internal/store"
)

func testAnalysis() store.Analysis {
	cx, cy := geo.MercatorForward(-74.0, 40.7)
	return store.Analysis{
		Clusters: []models.EnrichedCrashCluster{
			models.NewEnrichedCrashCluster(models.CrashCluster{
				Centroid: models.Location{Lat: 40.7, Lon: -74.0},
				Buffer:   geo.CircleBuffer(cx, cy, 50, geo.BufferSegments),
				Count:    3,
				MaxDist:  18,
			}, 1),
		},
		Rides: []models.Ride{{
			RideID:    "R1",
			StartedAt: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
			EndedAt:   time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC),
		}},
		Routes: []models.Route{{
			Coords: []models.Location{
				{Lat: 40.70, Lon: -74.00},
				{Lat: 40.72, Lon: -73.98},
			},
			LengthM: 3000,
			Method:  models.RouteMethodRouted,
		}},
		BBox:      models.BBox{North: 40.74, South: 40.68, East: -73.96, West: -74.02},
		CreatedAt: time.Now().UTC(),
	}
}

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	s := New(":0", testAnalysis(), false)
	srv := httptest.NewServer(s.httpServer.Handler)
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (int, string, http.Header) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return resp.StatusCode, string(body), resp.Header
}

func TestHealthz(t *testing.T) {
	srv := testServer(t)
	status, body, _ := get(t, srv.URL+"/healthz")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	var payload map[string]string
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if payload["status"] != "ok" {
		t.Errorf("status field = %q", payload["status"])
	}
}

func TestClustersEndpoint(t *testing.T) {
	srv := testServer(t)
	status, body, header := get(t, srv.URL+"/api/clusters")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if ct := header.Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("content type = %q", ct)
	}
	var col struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]interface{} `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal([]byte(body), &col); err != nil {
		t.Fatalf("invalid GeoJSON: %v", err)
	}
	if col.Type != "FeatureCollection" || len(col.Features) != 1 {
		t.Fatalf("unexpected collection: %+v", col)
	}
	if col.Features[0].Properties["crash_count"].(float64) != 3 {
		t.Errorf("crash_count = %v", col.Features[0].Properties["crash_count"])
	}
}

func TestRoutesEndpoint(t *testing.T) {
	srv := testServer(t)
	status, body, _ := get(t, srv.URL+"/api/routes")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if !strings.Contains(body, "\"ride_id\": \"R1\"") && !strings.Contains(body, "\"ride_id\":\"R1\"") {
		t.Errorf("routes response missing ride id: %s", body)
	}
}

func TestMapEndpoint(t *testing.T) {
	srv := testServer(t)
	status, body, header := get(t, srv.URL+"/")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if ct := header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(body, "leaflet") {
		t.Error("map page missing leaflet assets")
	}
}

func TestGracefulShutdown(t *testing.T) {
	s := New("127.0.0.1:0", testAnalysis(), false)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestOnlyIntersectedFilter(t *testing.T) {
	analysis := testAnalysis()
	cx, cy := geo.MercatorForward(-73.9, 40.75)
	analysis.Clusters = append(analysis.Clusters,
		models.NewEnrichedCrashCluster(models.CrashCluster{
			Centroid: models.Location{Lat: 40.75, Lon: -73.9},
			Buffer:   geo.CircleBuffer(cx, cy, 50, geo.BufferSegments),
			Count:    1,
		}, 0))

	s := New(":0", analysis, true)
	srv := httptest.NewServer(s.httpServer.Handler)
	defer srv.Close()

	_, body, _ := get(t, srv.URL+"/api/clusters")
	var col struct {
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal([]byte(body), &col); err != nil {
		t.Fatalf("invalid GeoJSON: %v", err)
	}
	if len(col.Features) != 1 {
		t.Errorf("got %d features, want only the intersected cluster", len(col.Features))
	}
}
