package network

import (
	"math"
	"reflect"
	"testing"

	"github.com/mkueh/citibike-analyse/internal/models"
)

// diamondGraph builds a small bidirectional graph:
//
//	1 --100-- 2 --100-- 4
//	 \                 /
//	  --150-- 3 --40--
//
// Shortest 1→4 goes via 3 (190 m) rather than via 2 (200 m).
func diamondGraph() *Graph {
	g := NewGraph()
	g.AddNode(Node{ID: 1, Lat: 40.70, Lon: -74.00})
	g.AddNode(Node{ID: 2, Lat: 40.71, Lon: -74.00})
	g.AddNode(Node{ID: 3, Lat: 40.70, Lon: -73.99})
	g.AddNode(Node{ID: 4, Lat: 40.71, Lon: -73.99})
	add := func(u, v int64, length float64) {
		g.AddEdge(Edge{From: u, To: v, LengthM: length})
		g.AddEdge(Edge{From: v, To: u, LengthM: length})
	}
	add(1, 2, 100)
	add(2, 4, 100)
	add(1, 3, 150)
	add(3, 4, 40)
	return g
}

func TestShortestPath(t *testing.T) {
	g := diamondGraph()
	path, err := g.ShortestPath(1, 4)
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	want := []int64{1, 3, 4}
	if !reflect.DeepEqual(path, want) {
		t.Errorf("path = %v, want %v", path, want)
	}
	coords, length := g.PathCoords(path)
	if math.Abs(length-190) > 1e-9 {
		t.Errorf("length = %g, want 190", length)
	}
	if len(coords) != 3 {
		t.Errorf("got %d coords, want 3", len(coords))
	}
}

func TestShortestPathNoRoute(t *testing.T) {
	g := diamondGraph()
	g.AddNode(Node{ID: 99, Lat: 41.0, Lon: -73.0})
	if _, err := g.ShortestPath(1, 99); err == nil {
		t.Fatal("expected no-path error for isolated node")
	}
	if _, err := g.ShortestPath(1, 12345); err == nil {
		t.Fatal("expected error for unknown node")
	}
}

func TestShortestPathTrivial(t *testing.T) {
	g := diamondGraph()
	path, err := g.ShortestPath(2, 2)
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	if !reflect.DeepEqual(path, []int64{2}) {
		t.Errorf("path = %v, want [2]", path)
	}
}

func TestPathCoordsParallelEdges(t *testing.T) {
	g := NewGraph()
	g.AddNode(Node{ID: 1, Lat: 40.70, Lon: -74.00})
	g.AddNode(Node{ID: 2, Lat: 40.71, Lon: -74.00})
	g.AddEdge(Edge{From: 1, To: 2, LengthM: 300})
	g.AddEdge(Edge{From: 1, To: 2, LengthM: 120, Geometry: []models.Location{
		{Lat: 40.70, Lon: -74.00},
		{Lat: 40.705, Lon: -74.001},
		{Lat: 40.71, Lon: -74.00},
	}})

	coords, length := g.PathCoords([]int64{1, 2})
	if length != 120 {
		t.Errorf("length = %g, want shortest parallel edge 120", length)
	}
	if len(coords) != 3 {
		t.Errorf("got %d coords, want geometry expansion to 3", len(coords))
	}
}

func TestCrop(t *testing.T) {
	g := diamondGraph()
	// Keep only the southern pair (nodes 1 and 3).
	bbox := models.BBox{North: 40.705, South: 40.69, East: -73.98, West: -74.01}
	cropped := g.Crop(bbox)

	if cropped.NodeCount() != 2 {
		t.Fatalf("cropped to %d nodes, want 2", cropped.NodeCount())
	}
	if _, ok := cropped.Nodes[1]; !ok {
		t.Error("node 1 should survive the crop")
	}
	if _, ok := cropped.Nodes[2]; ok {
		t.Error("node 2 should be cropped away")
	}
	// Edges to removed nodes must be gone too.
	for _, edges := range cropped.Adj {
		for _, e := range edges {
			if _, ok := cropped.Nodes[e.To]; !ok {
				t.Errorf("dangling edge to %d", e.To)
			}
		}
	}
}

func TestComponentsAndLargest(t *testing.T) {
	g := diamondGraph()
	// A disconnected pair.
	g.AddNode(Node{ID: 10, Lat: 41.0, Lon: -73.0})
	g.AddNode(Node{ID: 11, Lat: 41.0, Lon: -73.01})
	g.AddEdge(Edge{From: 10, To: 11, LengthM: 5})

	comp := g.Components()
	if comp[1] != comp[4] {
		t.Error("nodes 1 and 4 should share a component")
	}
	if comp[1] == comp[10] {
		t.Error("node 10 should be in a different component")
	}

	largest := g.LargestComponent()
	if largest.NodeCount() != 4 {
		t.Errorf("largest component has %d nodes, want 4", largest.NodeCount())
	}
	if _, ok := largest.Nodes[10]; ok {
		t.Error("small component should be dropped")
	}
}

func TestNodeIndexNearest(t *testing.T) {
	g := diamondGraph()
	idx := g.BuildNodeIndex()

	id, err := idx.Nearest(-74.0005, 40.7001)
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if id != 1 {
		t.Errorf("nearest = %d, want 1", id)
	}

	id, err = idx.Nearest(-73.989, 40.7105)
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if id != 4 {
		t.Errorf("nearest = %d, want 4", id)
	}

	// Query far outside the graph still resolves to the closest node.
	id, err = idx.Nearest(-70.0, 42.0)
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if id != 4 {
		t.Errorf("nearest for distant query = %d, want 4", id)
	}
}

func TestNodeIndexEmpty(t *testing.T) {
	idx := NewGraph().BuildNodeIndex()
	if _, err := idx.Nearest(0, 0); err == nil {
		t.Fatal("expected error for empty index")
	}
}
