package models

// CrashCluster is a geometric crash cluster: centroid, buffer polygon, member
// count, and the max member distance from the centroid in meters. Centroid and
// buffer are WGS84; distances were measured in projected meters.
type CrashCluster struct {
	Centroid Location   `json:"centroid"`
	Buffer   []Location `json:"buffer"`
	Count    int        `json:"count"`
	MaxDist  float64    `json:"max_dist"`
}

// EnrichedCrashCluster extends CrashCluster with the number of routes crossing
// its buffer and the resulting crash-per-ride ratio.
type EnrichedCrashCluster struct {
	CrashCluster
	RideIntersections int     `json:"ride_intersections"`
	CrashPerRides     float64 `json:"crash_per_rides"`
}

func NewEnrichedCrashCluster(c CrashCluster, rideIntersections int) EnrichedCrashCluster {
	e := EnrichedCrashCluster{
		CrashCluster:      c,
		RideIntersections: rideIntersections,
	}
	if rideIntersections > 0 {
		e.CrashPerRides = float64(c.Count) / float64(rideIntersections)
	}
	return e
}
