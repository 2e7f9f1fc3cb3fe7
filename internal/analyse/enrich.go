// Package analyse counts route/crash-buffer intersections and enriches crash
// clusters with per-ride crash ratios.
package analyse

import (
	"github.com/tidwall/rtree"

	"github.com/mkueh/citibike-analyse/internal/geo"
	"github.com/mkueh/citibike-analyse/internal/models"
)

// Enricher precomputes buffer/route intersections once, then attaches the
// counts to any cluster slice in input order.
type Enricher struct {
	hits map[int]int
}

// NewEnricher indexes the cluster buffers and counts, per buffer, how many
// routes intersect it. A route hits a buffer at most once.
func NewEnricher(clusters []models.CrashCluster, routes []models.Route) *Enricher {
	e := &Enricher{hits: make(map[int]int)}
	if len(clusters) == 0 || len(routes) == 0 {
		return e
	}

	var tree rtree.RTreeG[int]
	for i, cluster := range clusters {
		if len(cluster.Buffer) < 3 {
			continue
		}
		minLon, minLat, maxLon, maxLat := geo.PolygonBounds(cluster.Buffer)
		tree.Insert([2]float64{minLon, minLat}, [2]float64{maxLon, maxLat}, i)
	}

	for _, route := range routes {
		if len(route.Coords) < 2 {
			continue
		}
		minLon, minLat, maxLon, maxLat := geo.PolygonBounds(route.Coords)
		var candidates []int
		tree.Search(
			[2]float64{minLon, minLat},
			[2]float64{maxLon, maxLat},
			func(min, max [2]float64, idx int) bool {
				candidates = append(candidates, idx)
				return true
			},
		)
		for _, idx := range candidates {
			if geo.PolylineIntersectsPolygon(route.Coords, clusters[idx].Buffer) {
				e.hits[idx]++
			}
		}
	}
	return e
}

// Enrich wraps every cluster with its intersection count, preserving order.
func (e *Enricher) Enrich(clusters []models.CrashCluster) []models.EnrichedCrashCluster {
	enriched := make([]models.EnrichedCrashCluster, 0, len(clusters))
	for idx, cluster := range clusters {
		enriched = append(enriched, models.NewEnrichedCrashCluster(cluster, e.hits[idx]))
	}
	return enriched
}
