package network

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/mkueh/citibike-analyse/internal/models"
)

// Loader resolves bike street graphs for bounding boxes through the raw and
// processed caches, downloading from Overpass only on a full miss.
type Loader struct {
	raw       *GraphCache
	processed *GraphCache
	client    *OverpassClient
}

func NewLoader(cacheDir, overpassURL string, overpassTimeout time.Duration) (*Loader, error) {
	raw, err := NewGraphCache(filepath.Join(cacheDir, "raw"), StageRaw, RawCacheVersion)
	if err != nil {
		return nil, err
	}
	processed, err := NewGraphCache(filepath.Join(cacheDir, "processed"), StageProcessed, ProcessedCacheVersion)
	if err != nil {
		return nil, err
	}
	return &Loader{
		raw:       raw,
		processed: processed,
		client:    NewOverpassClient(overpassURL, overpassTimeout),
	}, nil
}

// BikeNetwork returns the processed bike graph for the bbox.
func (l *Loader) BikeNetwork(ctx context.Context, bbox models.BBox) (*Graph, error) {
	log.Printf("Loading graph for bbox %s", bbox)
	graph, err := l.processed.Fetch(bbox, "bike", "", func() (*Graph, error) {
		raw, err := l.rawGraph(ctx, bbox)
		if err != nil {
			return nil, err
		}
		return Postprocess(raw), nil
	}, CropAndPruneLargest)
	if err != nil {
		return nil, err
	}
	log.Printf("Loaded graph with %d nodes and %d edges", graph.NodeCount(), graph.EdgeCount())
	return graph, nil
}

func (l *Loader) rawGraph(ctx context.Context, bbox models.BBox) (*Graph, error) {
	return l.raw.Fetch(bbox, "bike", "", func() (*Graph, error) {
		return l.client.FetchBikeNetwork(ctx, bbox)
	}, CropToBBox)
}
