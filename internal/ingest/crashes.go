package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mkueh/citibike-analyse/internal/geo"
	"github.com/mkueh/citibike-analyse/internal/models"
)

const crashFileName = "Motor_Vehicle_Collisions_Crashes.csv"

const crashTimeLayout = "1/2/2006 15:04"

// CrashLoader loads cyclist-involved crash points and groups them into
// buffered clusters. Clustering runs in Web Mercator meters; results come
// back in WGS84.
type CrashLoader struct {
	dir      string
	BufferM  float64
	MaxSize  int
	MaxDistM float64
}

func NewCrashLoader(dir string, bufferM float64, maxSize int, maxDistM float64) *CrashLoader {
	return &CrashLoader{
		dir:      dir,
		BufferM:  bufferM,
		MaxSize:  maxSize,
		MaxDistM: maxDistM,
	}
}

type projectedPoint struct {
	x, y float64
}

// LoadClusters reads crashes inside the time window (inclusive) and optional
// bbox, keeps those with cyclists injured or killed, and clusters them.
func (l *CrashLoader) LoadClusters(minTime, maxTime time.Time, bbox *models.BBox) ([]models.CrashCluster, error) {
	path := filepath.Join(l.dir, crashFileName)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("crash data missing: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading crash header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"CRASH DATE", "CRASH TIME", "LATITUDE", "LONGITUDE"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("crash CSV missing column %q", required)
		}
	}

	var points []projectedPoint
	total := 0
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		get := func(name string) string {
			idx, ok := col[name]
			if !ok || idx >= len(fields) {
				return ""
			}
			return fields[idx]
		}

		when, err := time.Parse(crashTimeLayout, get("CRASH DATE")+" "+get("CRASH TIME"))
		if err != nil || when.Before(minTime) || when.After(maxTime) {
			continue
		}
		if !cyclistInvolved(get("NUMBER OF CYCLIST INJURED"), get("NUMBER OF CYCLIST KILLED")) {
			continue
		}
		lat, err1 := parseCoord(get("LATITUDE"))
		lon, err2 := parseCoord(get("LONGITUDE"))
		if err1 != nil || err2 != nil {
			continue
		}
		if bbox != nil && !bbox.ContainsPoint(lon, lat, 0) {
			continue
		}
		x, y := geo.MercatorForward(lon, lat)
		points = append(points, projectedPoint{x: x, y: y})
		total++
	}

	clusters := l.clusterPoints(points)
	log.Printf("Crash buffers: %d (r=%g m) from %d crashes", len(clusters), l.BufferM, total)
	return clusters, nil
}

// parseCoord handles the decimal-comma variants present in the export.
func parseCoord(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, fmt.Errorf("empty coordinate")
	}
	return strconv.ParseFloat(s, 64)
}

func cyclistInvolved(injured, killed string) bool {
	i, _ := strconv.Atoi(strings.TrimSpace(injured))
	k, _ := strconv.Atoi(strings.TrimSpace(killed))
	return i > 0 || k > 0
}

// clusterPoints groups points greedily: the lowest unassigned index seeds a
// cluster and collects unassigned points within MaxDistM of the seed until
// MaxSize is reached.
func (l *CrashLoader) clusterPoints(points []projectedPoint) []models.CrashCluster {
	assigned := make([]bool, len(points))
	var clusters []models.CrashCluster
	for seed := range points {
		if assigned[seed] {
			continue
		}
		assigned[seed] = true
		member := []int{seed}
		for idx := seed + 1; idx < len(points); idx++ {
			if len(member) >= l.MaxSize {
				break
			}
			if assigned[idx] {
				continue
			}
			if dist(points[seed], points[idx]) <= l.MaxDistM {
				member = append(member, idx)
				assigned[idx] = true
			}
		}

		var cx, cy float64
		for _, i := range member {
			cx += points[i].x
			cy += points[i].y
		}
		cx /= float64(len(member))
		cy /= float64(len(member))

		maxDist := 0.0
		for _, i := range member {
			if d := dist(projectedPoint{cx, cy}, points[i]); d > maxDist {
				maxDist = d
			}
		}

		lon, lat := geo.MercatorInverse(cx, cy)
		clusters = append(clusters, models.CrashCluster{
			Centroid: models.Location{Lat: lat, Lon: lon},
			Buffer:   geo.CircleBuffer(cx, cy, l.BufferM, geo.BufferSegments),
			Count:    len(member),
			MaxDist:  maxDist,
		})
	}
	return clusters
}

func dist(a, b projectedPoint) float64 {
	dx := a.x - b.x
	dy := a.y - b.y
	return math.Sqrt(dx*dx + dy*dy)
}
