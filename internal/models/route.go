package models

const (
	RouteMethodRouted         = "routed"
	RouteMethodDirectFallback = "direct_fallback"
)

// Route is a computed route geometry for one ride. Coords are WGS84 in travel
// order; Method records whether the route was found on the street graph or
// degraded to a straight line.
type Route struct {
	Coords  []Location `json:"coords"`
	LengthM float64    `json:"length_m"`
	Method  string     `json:"method"`
}
