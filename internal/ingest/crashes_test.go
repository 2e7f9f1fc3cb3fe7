package ingest

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mkueh/citibike-analyse/internal/geo"
	"github.com/mkueh/citibike-analyse/internal/models"
)

const crashHeader = "CRASH DATE,CRASH TIME,BOROUGH,LATITUDE,LONGITUDE,NUMBER OF CYCLIST INJURED,NUMBER OF CYCLIST KILLED\n"

func writeCrashCSV(t *testing.T, dir, rows string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, crashFileName), []byte(crashHeader+rows), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadClustersFiltering(t *testing.T) {
	dir := t.TempDir()
	writeCrashCSV(t, dir,
		// kept: cyclist injured inside window
		"6/15/2024,14:30,BROOKLYN,40.70,-74.00,1,0\n"+
			// dropped: no cyclists involved
			"6/15/2024,15:00,BROOKLYN,40.70,-74.00,0,0\n"+
			// dropped: outside time window
			"6/15/2020,14:30,BROOKLYN,40.70,-74.00,1,0\n"+
			// kept: cyclist killed
			"7/1/2024,9:15,QUEENS,40.75,-73.90,0,1\n"+
			// dropped: missing coordinates
			"6/20/2024,12:00,BRONX,,,2,0\n")

	loader := NewCrashLoader(dir, 50, 10, 50)
	minTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	maxTime := time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC)

	clusters, err := loader.LoadClusters(minTime, maxTime, nil)
	if err != nil {
		t.Fatalf("LoadClusters: %v", err)
	}
	total := 0
	for _, c := range clusters {
		total += c.Count
	}
	if total != 2 {
		t.Errorf("kept %d crashes, want 2", total)
	}
}

func TestLoadClustersBBox(t *testing.T) {
	dir := t.TempDir()
	writeCrashCSV(t, dir,
		"6/15/2024,14:30,,40.70,-74.00,1,0\n"+
			"6/15/2024,15:00,,41.50,-74.00,1,0\n")

	loader := NewCrashLoader(dir, 50, 10, 50)
	minTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	maxTime := time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC)
	bbox := models.BBox{North: 40.8, South: 40.6, East: -73.9, West: -74.1}

	clusters, err := loader.LoadClusters(minTime, maxTime, &bbox)
	if err != nil {
		t.Fatalf("LoadClusters: %v", err)
	}
	if len(clusters) != 1 || clusters[0].Count != 1 {
		t.Fatalf("got %d clusters, want exactly one single-crash cluster", len(clusters))
	}
}

func TestLoadClustersMissingFile(t *testing.T) {
	loader := NewCrashLoader(t.TempDir(), 50, 10, 50)
	if _, err := loader.LoadClusters(time.Time{}, time.Now(), nil); err == nil {
		t.Fatal("expected error for missing crash CSV")
	}
}

func TestClusterPointsGreedy(t *testing.T) {
	loader := NewCrashLoader("", 50, 3, 50)

	base := projectedPoint{x: 0, y: 0}
	points := []projectedPoint{
		base,
		{x: 10, y: 0},
		{x: 0, y: 10},
		{x: 20, y: 20},  // still within 50 m of the seed
		{x: 500, y: 0},  // too far, seeds its own cluster
		{x: 510, y: 10}, // near the second seed
	}

	clusters := loader.clusterPoints(points)
	if len(clusters) != 3 {
		t.Fatalf("got %d clusters, want 3", len(clusters))
	}
	// MaxSize caps the first cluster at 3, pushing the fourth nearby point
	// into its own cluster.
	if clusters[0].Count != 3 {
		t.Errorf("first cluster size = %d, want 3", clusters[0].Count)
	}
	if clusters[1].Count != 1 {
		t.Errorf("second cluster size = %d, want 1", clusters[1].Count)
	}
	if clusters[2].Count != 2 {
		t.Errorf("third cluster size = %d, want 2", clusters[2].Count)
	}

	for i, c := range clusters {
		if len(c.Buffer) != geo.BufferSegments+1 {
			t.Errorf("cluster %d buffer has %d vertices", i, len(c.Buffer))
		}
		if c.MaxDist < 0 || c.MaxDist > 50 {
			t.Errorf("cluster %d max dist %.1f outside [0, 50]", i, c.MaxDist)
		}
	}
}

func TestClusterPointsCentroid(t *testing.T) {
	loader := NewCrashLoader("", 50, 10, 100)
	points := []projectedPoint{{x: 0, y: 0}, {x: 60, y: 0}}

	clusters := loader.clusterPoints(points)
	if len(clusters) != 1 {
		t.Fatalf("got %d clusters, want 1", len(clusters))
	}
	cx, _ := geo.MercatorForward(clusters[0].Centroid.Lon, clusters[0].Centroid.Lat)
	if math.Abs(cx-30) > 0.01 {
		t.Errorf("centroid x = %.2f, want 30", cx)
	}
	if math.Abs(clusters[0].MaxDist-30) > 0.01 {
		t.Errorf("max dist = %.2f, want 30", clusters[0].MaxDist)
	}
}

func TestParseCoord(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"40.7128", 40.7128, false},
		{"40,7128", 40.7128, false},
		{" 40.7128 ", 40.7128, false},
		{"", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := parseCoord(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseCoord(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseCoord(%q) = %g, want %g", tt.in, got, tt.want)
		}
	}
}

func TestCyclistInvolved(t *testing.T) {
	tests := []struct {
		injured, killed string
		want            bool
	}{
		{"1", "0", true},
		{"0", "1", true},
		{"0", "0", false},
		{"", "", false},
		{" 2 ", "0", true},
	}
	for _, tt := range tests {
		if got := cyclistInvolved(tt.injured, tt.killed); got != tt.want {
			t.Errorf("cyclistInvolved(%q, %q) = %v, want %v", tt.injured, tt.killed, got, tt.want)
		}
	}
}
