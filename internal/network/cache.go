package network

import (
	"crypto/md5"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mkueh/citibike-analyse/internal/models"
)

const (
	StageRaw       = "raw"
	StageProcessed = "processed"

	RawCacheVersion       = "1"
	ProcessedCacheVersion = "2"
)

// CacheEntry is the JSON sidecar describing one cached graph.
type CacheEntry struct {
	Stage        string      `json:"stage"`
	BBox         models.BBox `json:"bbox"`
	NetworkType  string      `json:"network_type"`
	CustomFilter string      `json:"custom_filter"`
	Version      string      `json:"version"`
	GraphPath    string      `json:"graph_path"`
}

type BuildFunc func() (*Graph, error)
type CropFunc func(*Graph, models.BBox) *Graph

// GraphCache stores gob-encoded graphs per stage and reuses a larger cached
// graph by cropping it down to a requested bbox.
type GraphCache struct {
	dir     string
	stage   string
	version string
	entries []CacheEntry
}

func NewGraphCache(dir, stage, version string) (*GraphCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	c := &GraphCache{dir: dir, stage: stage, version: version}
	c.loadEntries()
	return c, nil
}

// Fetch returns the cached graph for the key, cropping a covering entry or
// building from scratch when nothing fits. Cropped and fresh graphs are
// stored before being returned.
func (c *GraphCache) Fetch(bbox models.BBox, networkType, customFilter string, build BuildFunc, crop CropFunc) (*Graph, error) {
	if existing := c.findCoveringEntry(bbox, networkType, customFilter); existing != nil {
		graph, err := loadGraph(existing.GraphPath)
		if err != nil {
			log.Printf("Failed to load cached graph %s: %v", existing.GraphPath, err)
		} else {
			if existing.BBox.Equals(bbox, 1e-4) {
				log.Printf("Using cached %s graph for bbox %s", c.stage, bbox)
				return graph, nil
			}
			log.Printf("Using cached %s graph (bbox %s) and cropping to %s", c.stage, existing.BBox, bbox)
			cropped := crop(graph, bbox)
			if err := c.store(cropped, bbox, networkType, customFilter); err != nil {
				return nil, err
			}
			return cropped, nil
		}
	}

	graph, err := build()
	if err != nil {
		return nil, err
	}
	log.Printf("Caching new %s graph for bbox %s", c.stage, bbox)
	if err := c.store(graph, bbox, networkType, customFilter); err != nil {
		return nil, err
	}
	return graph, nil
}

func (c *GraphCache) store(graph *Graph, bbox models.BBox, networkType, customFilter string) error {
	key := fmt.Sprintf("%s_%s_%g_%g_%g_%g_%s_%s",
		c.stage, c.version, bbox.West, bbox.South, bbox.East, bbox.North, networkType, customFilter)
	hash := fmt.Sprintf("%x", md5.Sum([]byte(key)))
	graphPath := filepath.Join(c.dir, hash+".graph.gob")

	if err := saveGraph(graphPath, graph); err != nil {
		return fmt.Errorf("saving cached graph: %w", err)
	}
	entry := CacheEntry{
		Stage:        c.stage,
		BBox:         bbox,
		NetworkType:  networkType,
		CustomFilter: customFilter,
		Version:      c.version,
		GraphPath:    graphPath,
	}
	sidecar, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(c.dir, hash+".cacheinfo"), sidecar, 0o644); err != nil {
		return err
	}
	c.entries = append(c.entries, entry)
	return nil
}

// findCoveringEntry picks the smallest-area matching entry whose bbox
// contains the target.
func (c *GraphCache) findCoveringEntry(bbox models.BBox, networkType, customFilter string) *CacheEntry {
	var best *CacheEntry
	for i := range c.entries {
		e := &c.entries[i]
		if e.Stage != c.stage || e.Version != c.version {
			continue
		}
		if e.NetworkType != networkType || e.CustomFilter != customFilter {
			continue
		}
		if !e.BBox.ContainsBBox(bbox, 1e-9) {
			continue
		}
		if best == nil || e.BBox.Area() < best.BBox.Area() {
			best = e
		}
	}
	return best
}

func (c *GraphCache) loadEntries() {
	sidecars, err := filepath.Glob(filepath.Join(c.dir, "*.cacheinfo"))
	if err != nil {
		return
	}
	for _, path := range sidecars {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Printf("Failed to load cache entry %s: %v", path, err)
			continue
		}
		var entry CacheEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			log.Printf("Failed to load cache entry %s: %v", path, err)
			continue
		}
		if entry.Version != c.version || entry.Stage != c.stage {
			continue
		}
		c.entries = append(c.entries, entry)
	}
}

func saveGraph(path string, graph *Graph) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return gob.NewEncoder(file).Encode(graph)
}

func loadGraph(path string) (*Graph, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	var graph Graph
	if err := gob.NewDecoder(file).Decode(&graph); err != nil {
		return nil, err
	}
	return &graph, nil
}

// CropToBBox is the raw-stage crop.
func CropToBBox(g *Graph, bbox models.BBox) *Graph {
	return g.Crop(bbox)
}

// CropAndPruneLargest is the processed-stage crop: bbox crop plus largest
// component, so routing never lands on an island severed by the cut.
func CropAndPruneLargest(g *Graph, bbox models.BBox) *Graph {
	cropped := g.Crop(bbox)
	if cropped.NodeCount() == 0 {
		return cropped
	}
	return cropped.LargestComponent()
}
