package factories

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/jaswdr/faker"
	"github.com/lucsky/cuid"

	"github.com/mkueh/citibike-analyse/internal/models"
)

var fake = faker.New()

var tripdataHeader = []string{
	"ride_id", "rideable_type", "started_at", "ended_at",
	"start_station_name", "start_station_id",
	"end_station_name", "end_station_id",
	"start_lat", "start_lng", "end_lat", "end_lng", "member_casual",
}

var rideableTypes = []string{"classic_bike", "electric_bike"}

// RideFactory produces synthetic trips inside a bounding box, useful
// for exercising the pipeline without the real open-data dumps.
type RideFactory struct {
	rng *rand.Rand
}

func NewRideFactory(seed int64) *RideFactory {
	return &RideFactory{rng: rand.New(rand.NewSource(seed))}
}

func (rf *RideFactory) randomPoint(bbox models.BBox) models.Location {
	return models.Location{
		Lat: bbox.South + rf.rng.Float64()*(bbox.North-bbox.South),
		Lon: bbox.West + rf.rng.Float64()*(bbox.East-bbox.West),
	}
}

// CreateRide generates one trip starting within a day of start.
func (rf *RideFactory) CreateRide(bbox models.BBox, start time.Time) models.Ride {
	startedAt := start.Add(time.Duration(rf.rng.Intn(24*3600)) * time.Second)
	duration := time.Duration(3+rf.rng.Intn(57)) * time.Minute
	return models.Ride{
		RideID:    cuid.New(),
		StartedAt: startedAt,
		EndedAt:   startedAt.Add(duration),
		Start:     rf.randomPoint(bbox),
		End:       rf.randomPoint(bbox),
	}
}

// WriteTripdataCSV writes n synthetic rides in the open-data trip
// schema to <base>/<year>-citibike-tripdata/synthetic.csv so the
// regular loaders pick them up.
func (rf *RideFactory) WriteTripdataCSV(base string, year, n int, bbox models.BBox, start time.Time) (string, error) {
	if start.IsZero() {
		start = time.Date(year, time.June, 1, 0, 0, 0, 0, time.UTC)
	}
	dir := filepath.Join(base, fmt.Sprintf("%d-citibike-tripdata", year))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating tripdata folder: %w", err)
	}
	path := filepath.Join(dir, "synthetic.csv")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(tripdataHeader); err != nil {
		return "", err
	}
	for i := 0; i < n; i++ {
		ride := rf.CreateRide(bbox, start.AddDate(0, 0, rf.rng.Intn(28)))
		record := []string{
			ride.RideID,
			rideableTypes[rf.rng.Intn(len(rideableTypes))],
			ride.StartedAt.Format("2006-01-02 15:04:05"),
			ride.EndedAt.Format("2006-01-02 15:04:05"),
			fake.Address().StreetName(),
			fmt.Sprintf("%04d.%02d", rf.rng.Intn(9000)+1000, rf.rng.Intn(100)),
			fake.Address().StreetName(),
			fmt.Sprintf("%04d.%02d", rf.rng.Intn(9000)+1000, rf.rng.Intn(100)),
			fmt.Sprintf("%.6f", ride.Start.Lat),
			fmt.Sprintf("%.6f", ride.Start.Lon),
			fmt.Sprintf("%.6f", ride.End.Lat),
			fmt.Sprintf("%.6f", ride.End.Lon),
			memberCasual(rf.rng),
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return path, nil
}

func memberCasual(rng *rand.Rand) string {
	if rng.Float64() < 0.75 {
		return "member"
	}
	return "casual"
}
