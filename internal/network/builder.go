package network

import (
	"context"
	"runtime"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/mkueh/citibike-analyse/internal/geo"
	"github.com/mkueh/citibike-analyse/internal/models"
)

// Builder computes shortest-path routes on a loaded graph. The component map
// is precomputed so unroutable endpoint pairs are rejected without running
// Dijkstra.
type Builder struct {
	graph      *Graph
	components map[int64]int
	index      *NodeIndex
}

func NewBuilder(graph *Graph) *Builder {
	return &Builder{
		graph:      graph,
		components: graph.Components(),
		index:      graph.BuildNodeIndex(),
	}
}

// BuildRoutes computes one route per ride with a bounded worker pool,
// preserving input order. Unroutable rides degrade to a straight line.
func (b *Builder) BuildRoutes(ctx context.Context, rides []models.Ride, workers int) ([]models.Route, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	routes := make([]models.Route, len(rides))
	jobs := make(chan int)
	bar := progressbar.Default(int64(len(rides)), "building routes")

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				routes[idx] = b.buildRoute(rides[idx])
				_ = bar.Add(1)
			}
		}()
	}

	var err error
feed:
	for idx := range rides {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		case jobs <- idx:
		}
	}
	close(jobs)
	wg.Wait()
	if err != nil {
		return nil, err
	}
	return routes, nil
}

func (b *Builder) buildRoute(ride models.Ride) models.Route {
	start, end := ride.Start, ride.End

	sNode, sErr := b.index.Nearest(start.Lon, start.Lat)
	eNode, eErr := b.index.Nearest(end.Lon, end.Lat)
	if sErr != nil || eErr != nil {
		return directFallback(start, end)
	}

	sComp, sOK := b.components[sNode]
	eComp, eOK := b.components[eNode]
	if !sOK || !eOK || sComp != eComp {
		return directFallback(start, end)
	}

	path, err := b.graph.ShortestPath(sNode, eNode)
	if err != nil {
		return directFallback(start, end)
	}
	coords, lengthM := b.graph.PathCoords(path)
	return models.Route{
		Coords:  coords,
		LengthM: lengthM,
		Method:  models.RouteMethodRouted,
	}
}

func directFallback(start, end models.Location) models.Route {
	return models.Route{
		Coords:  []models.Location{start, end},
		LengthM: geo.HaversineM(start.Lat, start.Lon, end.Lat, end.Lon),
		Method:  models.RouteMethodDirectFallback,
	}
}
