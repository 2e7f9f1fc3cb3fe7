// Package output writes analysis results to files, Postgres, Kafka, and
// static HTML maps.
package output

import (
	"encoding/json"
	"fmt"

	"github.com/mkueh/citibike-analyse/internal/models"
)

const (
	TopicEnrichedClusters = "enriched_clusters"
	TopicRouteSummaries   = "route_summaries"
)

// ClusterRow is the flat record emitted per enriched crash cluster.
type ClusterRow struct {
	CentroidLat       float64 `json:"centroid_lat" parquet:"name=centroid_lat,type=DOUBLE"`
	CentroidLon       float64 `json:"centroid_lon" parquet:"name=centroid_lon,type=DOUBLE"`
	Count             int32   `json:"count" parquet:"name=count,type=INT32"`
	MaxDistM          float64 `json:"max_dist_m" parquet:"name=max_dist_m,type=DOUBLE"`
	RideIntersections int32   `json:"ride_intersections" parquet:"name=ride_intersections,type=INT32"`
	CrashPerRides     float64 `json:"crash_per_rides" parquet:"name=crash_per_rides,type=DOUBLE"`
}

// RouteRow is the flat record emitted per precomputed route.
type RouteRow struct {
	RideID      string  `json:"ride_id" parquet:"name=ride_id,type=BYTE_ARRAY,convertedtype=UTF8"`
	LengthM     float64 `json:"length_m" parquet:"name=length_m,type=DOUBLE"`
	Method      string  `json:"method" parquet:"name=method,type=BYTE_ARRAY,convertedtype=UTF8"`
	DurationMin float64 `json:"duration_min" parquet:"name=duration_min,type=DOUBLE"`
	SpeedKmh    float64 `json:"speed_kmh" parquet:"name=speed_kmh,type=DOUBLE"`
}

func NewClusterRow(c models.EnrichedCrashCluster) ClusterRow {
	return ClusterRow{
		CentroidLat:       c.Centroid.Lat,
		CentroidLon:       c.Centroid.Lon,
		Count:             int32(c.Count),
		MaxDistM:          c.MaxDist,
		RideIntersections: int32(c.RideIntersections),
		CrashPerRides:     c.CrashPerRides,
	}
}

func NewRouteRow(ride models.Ride, route models.Route) RouteRow {
	row := RouteRow{
		RideID:  ride.RideID,
		LengthM: route.LengthM,
		Method:  route.Method,
	}
	if d := ride.Duration(); d > 0 {
		row.DurationMin = d.Minutes()
		row.SpeedKmh = route.LengthM / 1000 / d.Hours()
	}
	return row
}

// EmitClusters writes one message per cluster. With onlyIntersected set,
// clusters no route touches are skipped.
func EmitClusters(sink Sink, clusters []models.EnrichedCrashCluster, onlyIntersected bool) error {
	for _, c := range clusters {
		if onlyIntersected && c.RideIntersections == 0 {
			continue
		}
		msg, err := json.Marshal(NewClusterRow(c))
		if err != nil {
			return err
		}
		if err := sink.Write(TopicEnrichedClusters, msg); err != nil {
			return fmt.Errorf("writing cluster row: %w", err)
		}
	}
	return nil
}

// EmitRouteSummaries writes one message per ride/route pair.
func EmitRouteSummaries(sink Sink, rides []models.Ride, routes []models.Route) error {
	for i := range rides {
		if i >= len(routes) {
			break
		}
		msg, err := json.Marshal(NewRouteRow(rides[i], routes[i]))
		if err != nil {
			return err
		}
		if err := sink.Write(TopicRouteSummaries, msg); err != nil {
			return fmt.Errorf("writing route row: %w", err)
		}
	}
	return nil
}
