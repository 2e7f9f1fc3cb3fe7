// Package ingest reads the raw Citi Bike trip CSVs and the NYPD crash CSV
// and turns them into domain records.
package ingest

import (
	"encoding/binary"
	"encoding/csv"
	"fmt"
	"hash/fnv"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/mkueh/citibike-analyse/internal/models"
)

var rideTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// RideLoader reads trip CSVs from <base>/<year>-citibike-tripdata folders.
type RideLoader struct {
	base  string
	years []int
}

func NewRideLoader(base string, years []int) *RideLoader {
	return &RideLoader{base: base, years: years}
}

func (l *RideLoader) files() ([]string, error) {
	var all []string
	for _, year := range l.years {
		dir := filepath.Join(l.base, fmt.Sprintf("%d-citibike-tripdata", year))
		matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
		if err != nil {
			return nil, err
		}
		sort.Strings(matches)
		all = append(all, matches...)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("no Citi Bike CSVs found under %s", l.base)
	}
	return all, nil
}

// Load reads rides with complete coordinates, up to maxRides rows
// (maxRides <= 0 means no limit).
func (l *RideLoader) Load(maxRides int) ([]models.Ride, error) {
	files, err := l.files()
	if err != nil {
		return nil, err
	}
	var rides []models.Ride
	for _, path := range files {
		if maxRides > 0 && len(rides) >= maxRides {
			break
		}
		if err := l.readFile(path, func(r models.Ride) bool {
			rides = append(rides, r)
			return maxRides <= 0 || len(rides) < maxRides
		}); err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}
	log.Printf("Loaded rides: %d", len(rides))
	return rides, nil
}

// Sample returns a deterministic pseudo-random sample of n rides. Rides are
// ordered by a seeded hash of their ride_id and the first n are taken, so the
// same seed always yields the same sample regardless of file order.
func (l *RideLoader) Sample(seed int64, n int) ([]models.Ride, error) {
	rides, err := l.Load(0)
	if err != nil {
		return nil, err
	}
	type keyed struct {
		key  uint64
		ride models.Ride
	}
	ordered := make([]keyed, 0, len(rides))
	for _, r := range rides {
		ordered = append(ordered, keyed{key: sampleKey(seed, r.RideID), ride: r})
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].key != ordered[j].key {
			return ordered[i].key < ordered[j].key
		}
		return ordered[i].ride.RideID < ordered[j].ride.RideID
	})
	if n > len(ordered) {
		n = len(ordered)
	}
	sample := make([]models.Ride, 0, n)
	for _, k := range ordered[:n] {
		sample = append(sample, k.ride)
	}
	log.Printf("Using rides sample: %d", len(sample))
	return sample, nil
}

func sampleKey(seed int64, rideID string) uint64 {
	h := fnv.New64a()
	var salt [8]byte
	binary.LittleEndian.PutUint64(salt[:], uint64(seed))
	h.Write(salt[:])
	h.Write([]byte(rideID))
	return h.Sum64()
}

// readFile streams one CSV, invoking emit per valid ride until emit returns
// false. Rows missing coordinates are skipped; rows with unparseable
// timestamps keep zero times.
func (l *RideLoader) readFile(path string, emit func(models.Ride) bool) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"ride_id", "start_lat", "start_lng", "end_lat", "end_lng"} {
		if _, ok := col[required]; !ok {
			return fmt.Errorf("missing column %q", required)
		}
	}

	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed row, keep going like the rest of the file parses.
			continue
		}
		ride, ok := parseRide(fields, col)
		if !ok {
			continue
		}
		if !emit(ride) {
			break
		}
	}
	return nil
}

func parseRide(fields []string, col map[string]int) (models.Ride, bool) {
	get := func(name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(fields) {
			return ""
		}
		return fields[idx]
	}
	startLat, err1 := strconv.ParseFloat(get("start_lat"), 64)
	startLng, err2 := strconv.ParseFloat(get("start_lng"), 64)
	endLat, err3 := strconv.ParseFloat(get("end_lat"), 64)
	endLng, err4 := strconv.ParseFloat(get("end_lng"), 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return models.Ride{}, false
	}
	return models.Ride{
		RideID:    get("ride_id"),
		StartedAt: parseRideTime(get("started_at")),
		EndedAt:   parseRideTime(get("ended_at")),
		Start:     models.Location{Lat: startLat, Lon: startLng},
		End:       models.Location{Lat: endLat, Lon: endLng},
	}, true
}

func parseRideTime(s string) time.Time {
	for _, layout := range rideTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
