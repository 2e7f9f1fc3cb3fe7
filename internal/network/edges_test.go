package network

import (
	"reflect"
	"testing"

	"github.com/mkueh/citibike-analyse/internal/models"
)

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"residential", []string{"residential"}},
		{"residential;cycleway", []string{"residential", "cycleway"}},
		{" residential ; ; cycleway ", []string{"residential", "cycleway"}},
	}
	for _, tt := range tests {
		if got := NormalizeTags(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("NormalizeTags(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestKeepEdge(t *testing.T) {
	tests := []struct {
		name string
		tags map[string]string
		want bool
	}{
		{"residential street", map[string]string{"highway": "residential"}, true},
		{"cycleway", map[string]string{"highway": "cycleway"}, true},
		{"no highway tag", map[string]string{}, false},
		{"motorway", map[string]string{"highway": "motorway"}, false},
		{"trunk link", map[string]string{"highway": "trunk_link"}, false},
		{"construction", map[string]string{"highway": "construction"}, false},
		{"footway only", map[string]string{"highway": "footway"}, false},
		{"steps only", map[string]string{"highway": "steps"}, false},
		{"footway and street", map[string]string{"highway": "footway;residential"}, true},
		{"bicycle forbidden", map[string]string{"highway": "residential", "bicycle": "no"}, false},
		{"railway", map[string]string{"railway": "subway", "highway": "residential"}, false},
		{"ferry route", map[string]string{"route": "ferry"}, true},
		{"ferry named", map[string]string{"highway": "service", "name": "Staten Island Ferry"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := keepEdge(Edge{Tags: tt.tags}); got != tt.want {
				t.Errorf("keepEdge(%v) = %v, want %v", tt.tags, got, tt.want)
			}
		})
	}
}

func TestIsFerryEdge(t *testing.T) {
	if !IsFerryEdge(Edge{Ferry: true}) {
		t.Error("explicit Ferry flag should count")
	}
	if !IsFerryEdge(Edge{Tags: map[string]string{"route": "ferry"}}) {
		t.Error("route=ferry should count")
	}
	if IsFerryEdge(Edge{Tags: map[string]string{"highway": "residential"}}) {
		t.Error("plain street is not a ferry")
	}
}

func TestFilterEdgesDropsOrphanNodes(t *testing.T) {
	g := NewGraph()
	g.AddNode(Node{ID: 1, Lat: 40.70, Lon: -74.00})
	g.AddNode(Node{ID: 2, Lat: 40.71, Lon: -74.00})
	g.AddNode(Node{ID: 3, Lat: 40.72, Lon: -74.00})
	g.AddEdge(Edge{From: 1, To: 2, LengthM: 100, Tags: map[string]string{"highway": "residential"}})
	g.AddEdge(Edge{From: 2, To: 3, LengthM: 100, Tags: map[string]string{"highway": "motorway"}})

	filtered := FilterEdges(g)
	if filtered.EdgeCount() != 1 {
		t.Fatalf("kept %d edges, want 1", filtered.EdgeCount())
	}
	if _, ok := filtered.Nodes[3]; ok {
		t.Error("node 3 lost its only edge and should be gone")
	}
	if _, ok := filtered.Nodes[1]; !ok {
		t.Error("node 1 should survive")
	}
}

func TestConnectFerryTerminals(t *testing.T) {
	g := NewGraph()
	// Two street nodes and a ferry crossing whose terminals sit just off
	// the street network.
	g.AddNode(Node{ID: 1, Lat: 40.7000, Lon: -74.0000})
	g.AddNode(Node{ID: 2, Lat: 40.7010, Lon: -74.0000})
	g.AddNode(Node{ID: 10, Lat: 40.7001, Lon: -74.0001}) // terminal near node 1
	g.AddNode(Node{ID: 11, Lat: 40.7011, Lon: -74.0001}) // terminal near node 2
	g.AddEdge(Edge{From: 1, To: 2, LengthM: 111, Tags: map[string]string{"highway": "residential"}})
	g.AddEdge(Edge{From: 10, To: 11, LengthM: 120, Ferry: true})

	ConnectFerryTerminals(g)

	linkCount := 0
	for _, edges := range g.Adj {
		for _, e := range edges {
			if e.Tags["highway"] == "ferry_link" {
				linkCount++
			}
		}
	}
	if linkCount != 4 {
		t.Errorf("got %d ferry_link edges, want 4 (two terminals, both directions)", linkCount)
	}
}

func TestConnectFerryTerminalsTooFar(t *testing.T) {
	g := NewGraph()
	g.AddNode(Node{ID: 1, Lat: 40.70, Lon: -74.00})
	g.AddNode(Node{ID: 2, Lat: 40.71, Lon: -74.00})
	// Terminal roughly 5 km away from any street.
	g.AddNode(Node{ID: 10, Lat: 40.745, Lon: -74.00})
	g.AddNode(Node{ID: 11, Lat: 40.75, Lon: -74.00})
	g.AddEdge(Edge{From: 1, To: 2, LengthM: 111, Tags: map[string]string{"highway": "residential"}})
	g.AddEdge(Edge{From: 10, To: 11, LengthM: 500, Ferry: true})

	ConnectFerryTerminals(g)

	for _, edges := range g.Adj {
		for _, e := range edges {
			if e.Tags["highway"] == "ferry_link" {
				t.Fatal("terminal beyond the snap radius must not be linked")
			}
		}
	}
}

func TestDissolveBidirectional(t *testing.T) {
	g := NewGraph()
	g.AddNode(Node{ID: 1, Lat: 40.70, Lon: -74.00})
	g.AddNode(Node{ID: 2, Lat: 40.71, Lon: -74.00})
	geomFwd := []models.Location{
		{Lat: 40.70, Lon: -74.00},
		{Lat: 40.705, Lon: -74.002},
		{Lat: 40.71, Lon: -74.00},
	}
	g.AddEdge(Edge{From: 1, To: 2, LengthM: 150, Geometry: geomFwd})
	g.AddEdge(Edge{From: 2, To: 1, LengthM: 180})

	dissolved := DissolveBidirectional(g)
	if dissolved.EdgeCount() != 2 {
		t.Fatalf("got %d directed edges, want 2 (one per direction)", dissolved.EdgeCount())
	}
	fwd, ok := dissolved.minEdge(1, 2)
	if !ok {
		t.Fatal("missing 1->2 edge")
	}
	back, ok := dissolved.minEdge(2, 1)
	if !ok {
		t.Fatal("missing 2->1 edge")
	}
	if fwd.LengthM != 150 || back.LengthM != 150 {
		t.Errorf("lengths = %g/%g, want shortest 150 both ways", fwd.LengthM, back.LengthM)
	}
	if len(back.Geometry) != 3 || back.Geometry[0].Lat != 40.71 {
		t.Error("reverse direction should carry the reversed geometry")
	}
}

func TestPostprocess(t *testing.T) {
	g := NewGraph()
	// Main street pair.
	g.AddNode(Node{ID: 1, Lat: 40.70, Lon: -74.00})
	g.AddNode(Node{ID: 2, Lat: 40.71, Lon: -74.00})
	g.AddEdge(Edge{From: 1, To: 2, LengthM: 111, Tags: map[string]string{"highway": "residential"}})
	g.AddEdge(Edge{From: 2, To: 1, LengthM: 111, Tags: map[string]string{"highway": "residential"}})
	// Disconnected island that loses its only edge to the filter.
	g.AddNode(Node{ID: 5, Lat: 40.90, Lon: -74.00})
	g.AddNode(Node{ID: 6, Lat: 40.91, Lon: -74.00})
	g.AddEdge(Edge{From: 5, To: 6, LengthM: 111, Tags: map[string]string{"highway": "motorway"}})
	// Disconnected but bikeable island, smaller than the main street.
	g.AddNode(Node{ID: 7, Lat: 41.00, Lon: -74.00})

	out := Postprocess(g)
	if out.NodeCount() != 2 {
		t.Fatalf("got %d nodes, want the 2-node main street", out.NodeCount())
	}
	if _, ok := out.Nodes[1]; !ok {
		t.Error("main street should survive postprocessing")
	}
}
