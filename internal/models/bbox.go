package models

import (
	"fmt"
	"math"
)

// BBox is an axis-aligned bounding box in WGS84.
type BBox struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// BBoxFromRides computes the bounding box of all ride endpoints, padded by pad
// degrees on every side.
func BBoxFromRides(rides []Ride, pad float64) (BBox, error) {
	if len(rides) == 0 {
		return BBox{}, fmt.Errorf("cannot compute bbox from zero rides")
	}
	b := BBox{
		North: math.Inf(-1),
		South: math.Inf(1),
		East:  math.Inf(-1),
		West:  math.Inf(1),
	}
	for _, r := range rides {
		for _, loc := range []Location{r.Start, r.End} {
			b.North = math.Max(b.North, loc.Lat)
			b.South = math.Min(b.South, loc.Lat)
			b.East = math.Max(b.East, loc.Lon)
			b.West = math.Min(b.West, loc.Lon)
		}
	}
	return b.Pad(pad), nil
}

// Pad grows the box by d degrees on every side.
func (b BBox) Pad(d float64) BBox {
	return BBox{
		North: b.North + d,
		South: b.South - d,
		East:  b.East + d,
		West:  b.West - d,
	}
}

// Equals reports approximate equality, with tol allowed deviation per side.
func (b BBox) Equals(other BBox, tol float64) bool {
	return math.Abs(b.North-other.North) < tol &&
		math.Abs(b.South-other.South) < tol &&
		math.Abs(b.East-other.East) < tol &&
		math.Abs(b.West-other.West) < tol
}

// ContainsBBox reports whether other lies fully inside this box.
func (b BBox) ContainsBBox(other BBox, tol float64) bool {
	return b.West-tol <= other.West &&
		b.East+tol >= other.East &&
		b.South-tol <= other.South &&
		b.North+tol >= other.North
}

// ContainsPoint reports whether lon/lat lies inside or on the boundary.
func (b BBox) ContainsPoint(lon, lat, tol float64) bool {
	return b.West-tol <= lon && lon <= b.East+tol &&
		b.South-tol <= lat && lat <= b.North+tol
}

// Area returns the box area in degree², not projected.
func (b BBox) Area() float64 {
	return math.Abs((b.North - b.South) * (b.East - b.West))
}

func (b BBox) String() string {
	return fmt.Sprintf("BBox(north=%g, south=%g, east=%g, west=%g)", b.North, b.South, b.East, b.West)
}
