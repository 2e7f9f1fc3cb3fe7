package geo

import (
	"math"

	"github.com/mkueh/citibike-analyse/internal/models"
)

// BufferSegments is the vertex count used for circular crash buffers.
const BufferSegments = 32

// CircleBuffer builds a circular polygon of radiusM meters around a projected
// center and returns its vertices in WGS84. The ring is closed (first vertex
// repeated last).
func CircleBuffer(cx, cy, radiusM float64, segments int) []models.Location {
	if segments < 3 {
		segments = BufferSegments
	}
	ring := make([]models.Location, 0, segments+1)
	for i := 0; i <= segments; i++ {
		theta := 2 * math.Pi * float64(i) / float64(segments)
		lon, lat := MercatorInverse(cx+radiusM*math.Cos(theta), cy+radiusM*math.Sin(theta))
		ring = append(ring, models.Location{Lat: lat, Lon: lon})
	}
	return ring
}

// PolygonBounds returns the lon/lat bounding rectangle of a polygon.
func PolygonBounds(poly []models.Location) (minLon, minLat, maxLon, maxLat float64) {
	minLon, minLat = math.Inf(1), math.Inf(1)
	maxLon, maxLat = math.Inf(-1), math.Inf(-1)
	for _, p := range poly {
		minLon = math.Min(minLon, p.Lon)
		minLat = math.Min(minLat, p.Lat)
		maxLon = math.Max(maxLon, p.Lon)
		maxLat = math.Max(maxLat, p.Lat)
	}
	return minLon, minLat, maxLon, maxLat
}

// PointInPolygon reports whether a point lies inside a polygon ring
// (even-odd rule, boundary counts as outside).
func PointInPolygon(pt models.Location, poly []models.Location) bool {
	inside := false
	n := len(poly)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := poly[i], poly[j]
		if (pi.Lat > pt.Lat) != (pj.Lat > pt.Lat) {
			cross := (pj.Lon-pi.Lon)*(pt.Lat-pi.Lat)/(pj.Lat-pi.Lat) + pi.Lon
			if pt.Lon < cross {
				inside = !inside
			}
		}
	}
	return inside
}

// PolylineIntersectsPolygon reports whether any segment of the line crosses or
// lies within the polygon.
func PolylineIntersectsPolygon(line []models.Location, poly []models.Location) bool {
	if len(line) == 0 || len(poly) < 3 {
		return false
	}
	for _, p := range line {
		if PointInPolygon(p, poly) {
			return true
		}
	}
	for i := 1; i < len(line); i++ {
		if segmentIntersectsRing(line[i-1], line[i], poly) {
			return true
		}
	}
	return false
}

func segmentIntersectsRing(a, b models.Location, ring []models.Location) bool {
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		if segmentsCross(a, b, ring[j], ring[i]) {
			return true
		}
	}
	return false
}

func segmentsCross(p1, p2, q1, q2 models.Location) bool {
	d1 := orientation(q1, q2, p1)
	d2 := orientation(q1, q2, p2)
	d3 := orientation(p1, p2, q1)
	d4 := orientation(p1, p2, q2)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(q1, q2, p1)) ||
		(d2 == 0 && onSegment(q1, q2, p2)) ||
		(d3 == 0 && onSegment(p1, p2, q1)) ||
		(d4 == 0 && onSegment(p1, p2, q2))
}

func orientation(a, b, c models.Location) float64 {
	return (b.Lon-a.Lon)*(c.Lat-a.Lat) - (b.Lat-a.Lat)*(c.Lon-a.Lon)
}

func onSegment(a, b, p models.Location) bool {
	return math.Min(a.Lon, b.Lon) <= p.Lon && p.Lon <= math.Max(a.Lon, b.Lon) &&
		math.Min(a.Lat, b.Lat) <= p.Lat && p.Lat <= math.Max(a.Lat, b.Lat)
}
