package network

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mkueh/citibike-analyse/internal/geo"
	"github.com/mkueh/citibike-analyse/internal/models"
)

// OverpassClient downloads raw OSM street data for a bounding box.
type OverpassClient struct {
	endpoint string
	httpc    *http.Client
}

func NewOverpassClient(endpoint string, timeout time.Duration) *OverpassClient {
	return &OverpassClient{
		endpoint: endpoint,
		httpc:    &http.Client{Timeout: timeout},
	}
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type  string            `json:"type"`
	ID    int64             `json:"id"`
	Lat   float64           `json:"lat"`
	Lon   float64           `json:"lon"`
	Nodes []int64           `json:"nodes"`
	Tags  map[string]string `json:"tags"`
}

// bikeQuery selects every highway way plus ferry routes inside the bbox. The
// fine-grained bikeable filter runs later, in the processed stage.
func bikeQuery(bbox models.BBox, timeoutSec int) string {
	box := fmt.Sprintf("%f,%f,%f,%f", bbox.South, bbox.West, bbox.North, bbox.East)
	return fmt.Sprintf(`[out:json][timeout:%d];
(
  way["highway"](%s);
  way["route"="ferry"](%s);
);
out body;
>;
out skel qt;`, timeoutSec, box, box)
}

// FetchBikeNetwork downloads and assembles the raw graph for the bbox. Way
// segments become edges in both directions with haversine lengths; ferry ways
// are flagged.
func (c *OverpassClient) FetchBikeNetwork(ctx context.Context, bbox models.BBox) (*Graph, error) {
	query := bikeQuery(bbox, int(c.httpc.Timeout/time.Second))
	body := url.Values{"data": {query}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("overpass returned %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding overpass response: %w", err)
	}

	graph := buildRawGraph(decoded.Elements)
	log.Printf("Downloaded raw graph: %d nodes, %d edges", graph.NodeCount(), graph.EdgeCount())
	return graph, nil
}

func buildRawGraph(elements []overpassElement) *Graph {
	g := NewGraph()
	for _, el := range elements {
		if el.Type == "node" {
			g.AddNode(Node{ID: el.ID, Lat: el.Lat, Lon: el.Lon})
		}
	}
	for _, el := range elements {
		if el.Type != "way" || len(el.Nodes) < 2 {
			continue
		}
		ferry := el.Tags["route"] == "ferry"
		for i := 1; i < len(el.Nodes); i++ {
			u, okU := g.Nodes[el.Nodes[i-1]]
			v, okV := g.Nodes[el.Nodes[i]]
			if !okU || !okV {
				continue
			}
			length := geo.HaversineM(u.Lat, u.Lon, v.Lat, v.Lon)
			geom := []models.Location{
				{Lat: u.Lat, Lon: u.Lon},
				{Lat: v.Lat, Lon: v.Lon},
			}
			g.AddEdge(Edge{From: u.ID, To: v.ID, LengthM: length, Ferry: ferry, Tags: el.Tags, Geometry: geom})
			g.AddEdge(Edge{From: v.ID, To: u.ID, LengthM: length, Ferry: ferry, Tags: el.Tags, Geometry: reverseCoords(geom)})
		}
	}
	return g
}
