// Package geo holds the coordinate math shared by clustering, routing, and
// enrichment: great-circle distances, the WGS84/Web Mercator conversion, and
// polygon construction/intersection used for crash buffers.
package geo

import (
	"math"

	"github.com/mkueh/citibike-analyse/internal/models"
)

const (
	earthRadiusM    = 6371000.0
	mercatorRadiusM = 6378137.0
)

// HaversineM returns the great-circle distance between two points in meters.
func HaversineM(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dphi := (lat2 - lat1) * math.Pi / 180
	dlmb := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dphi/2)*math.Sin(dphi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dlmb/2)*math.Sin(dlmb/2)
	return 2 * earthRadiusM * math.Asin(math.Sqrt(a))
}

// PolylineLengthM sums haversine distances along a coordinate sequence.
func PolylineLengthM(coords []models.Location) float64 {
	total := 0.0
	for i := 1; i < len(coords); i++ {
		total += HaversineM(coords[i-1].Lat, coords[i-1].Lon, coords[i].Lat, coords[i].Lon)
	}
	return total
}

// MercatorForward projects WGS84 lon/lat to Web Mercator meters (EPSG:3857).
func MercatorForward(lon, lat float64) (x, y float64) {
	x = mercatorRadiusM * lon * math.Pi / 180
	y = mercatorRadiusM * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
	return x, y
}

// MercatorInverse converts Web Mercator meters back to WGS84 lon/lat.
func MercatorInverse(x, y float64) (lon, lat float64) {
	lon = x / mercatorRadiusM * 180 / math.Pi
	lat = (2*math.Atan(math.Exp(y/mercatorRadiusM)) - math.Pi/2) * 180 / math.Pi
	return lon, lat
}
