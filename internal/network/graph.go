// Package network loads, processes, caches, and routes over the OSM bike
// street graph.
package network

import (
	"container/heap"
	"fmt"
	"math"

	"github.com/tidwall/rtree"

	"github.com/mkueh/citibike-analyse/internal/models"
)

// Node is a street intersection (or ferry terminal) in WGS84.
type Node struct {
	ID  int64
	Lat float64
	Lon float64
}

// Edge is one directed street segment. Tags carry the raw OSM way tags until
// the processed stage strips what it no longer needs.
type Edge struct {
	From     int64
	To       int64
	LengthM  float64
	Ferry    bool
	Tags     map[string]string
	Geometry []models.Location
}

type Graph struct {
	Nodes map[int64]Node
	Adj   map[int64][]Edge
}

func NewGraph() *Graph {
	return &Graph{
		Nodes: make(map[int64]Node),
		Adj:   make(map[int64][]Edge),
	}
}

func (g *Graph) AddNode(n Node) {
	g.Nodes[n.ID] = n
}

func (g *Graph) AddEdge(e Edge) {
	g.Adj[e.From] = append(g.Adj[e.From], e)
}

func (g *Graph) NodeCount() int { return len(g.Nodes) }

func (g *Graph) EdgeCount() int {
	n := 0
	for _, edges := range g.Adj {
		n += len(edges)
	}
	return n
}

// Crop keeps only nodes inside the bbox and edges between surviving nodes.
func (g *Graph) Crop(bbox models.BBox) *Graph {
	out := NewGraph()
	for id, n := range g.Nodes {
		if bbox.ContainsPoint(n.Lon, n.Lat, 0) {
			out.Nodes[id] = n
		}
	}
	for from, edges := range g.Adj {
		if _, ok := out.Nodes[from]; !ok {
			continue
		}
		for _, e := range edges {
			if _, ok := out.Nodes[e.To]; ok {
				out.Adj[from] = append(out.Adj[from], e)
			}
		}
	}
	return out
}

// Components assigns every node a weakly connected component id, treating
// edges as undirected.
func (g *Graph) Components() map[int64]int {
	comp := make(map[int64]int, len(g.Nodes))
	undirected := make(map[int64][]int64, len(g.Nodes))
	for from, edges := range g.Adj {
		for _, e := range edges {
			undirected[from] = append(undirected[from], e.To)
			undirected[e.To] = append(undirected[e.To], from)
		}
	}
	next := 0
	for id := range g.Nodes {
		if _, seen := comp[id]; seen {
			continue
		}
		queue := []int64{id}
		comp[id] = next
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, nb := range undirected[cur] {
				if _, seen := comp[nb]; seen {
					continue
				}
				if _, ok := g.Nodes[nb]; !ok {
					continue
				}
				comp[nb] = next
				queue = append(queue, nb)
			}
		}
		next++
	}
	return comp
}

// LargestComponent returns the subgraph of the biggest weak component.
func (g *Graph) LargestComponent() *Graph {
	comp := g.Components()
	counts := make(map[int]int)
	for _, c := range comp {
		counts[c]++
	}
	best, bestSize := -1, 0
	for c, size := range counts {
		if size > bestSize {
			best, bestSize = c, size
		}
	}
	out := NewGraph()
	for id, n := range g.Nodes {
		if comp[id] == best {
			out.Nodes[id] = n
		}
	}
	for from, edges := range g.Adj {
		if _, ok := out.Nodes[from]; !ok {
			continue
		}
		for _, e := range edges {
			if _, ok := out.Nodes[e.To]; ok {
				out.Adj[from] = append(out.Adj[from], e)
			}
		}
	}
	return out
}

// NodeIndex answers nearest-node queries over the graph.
type NodeIndex struct {
	tree rtree.RTreeG[int64]
	size int
}

func (g *Graph) BuildNodeIndex() *NodeIndex {
	idx := &NodeIndex{}
	for id, n := range g.Nodes {
		pt := [2]float64{n.Lon, n.Lat}
		idx.tree.Insert(pt, pt, id)
		idx.size++
	}
	return idx
}

// Nearest returns the node id closest to lon/lat.
func (idx *NodeIndex) Nearest(lon, lat float64) (int64, error) {
	if idx.size == 0 {
		return 0, fmt.Errorf("empty node index")
	}
	target := [2]float64{lon, lat}
	var found bool
	var nearest int64
	idx.tree.Nearby(
		rtree.BoxDist[float64, int64](target, target, nil),
		func(min, max [2]float64, id int64, dist float64) bool {
			nearest = id
			found = true
			return false
		},
	)
	if !found {
		return 0, fmt.Errorf("no nearest node for (%g, %g)", lon, lat)
	}
	return nearest, nil
}

// ShortestPath runs Dijkstra by edge length and returns the node sequence.
func (g *Graph) ShortestPath(from, to int64) ([]int64, error) {
	if _, ok := g.Nodes[from]; !ok {
		return nil, fmt.Errorf("unknown start node %d", from)
	}
	if _, ok := g.Nodes[to]; !ok {
		return nil, fmt.Errorf("unknown end node %d", to)
	}

	distTo := map[int64]float64{from: 0}
	cameFrom := make(map[int64]int64)
	done := make(map[int64]bool)

	pq := &priorityQueue{}
	heap.Init(pq)
	heap.Push(pq, &pqItem{node: from, priority: 0})

	for pq.Len() > 0 {
		item := heap.Pop(pq).(*pqItem)
		current := item.node
		if current == to {
			return reconstructPath(cameFrom, current), nil
		}
		if done[current] {
			continue
		}
		done[current] = true

		for _, e := range g.Adj[current] {
			tentative := distTo[current] + e.LengthM
			if old, ok := distTo[e.To]; !ok || tentative < old {
				distTo[e.To] = tentative
				cameFrom[e.To] = current
				heap.Push(pq, &pqItem{node: e.To, priority: tentative})
			}
		}
	}
	return nil, fmt.Errorf("no path found from %d to %d", from, to)
}

// PathCoords expands a node path into WGS84 coordinates, following the
// shortest parallel edge between each pair, and returns the summed length.
func (g *Graph) PathCoords(path []int64) ([]models.Location, float64) {
	if len(path) == 0 {
		return nil, 0
	}
	start := g.Nodes[path[0]]
	coords := []models.Location{{Lat: start.Lat, Lon: start.Lon}}
	length := 0.0
	for i := 1; i < len(path); i++ {
		u, v := path[i-1], path[i]
		edge, ok := g.minEdge(u, v)
		if !ok {
			continue
		}
		length += edge.LengthM
		if len(edge.Geometry) > 1 {
			coords = append(coords, edge.Geometry[1:]...)
		} else {
			n := g.Nodes[v]
			coords = append(coords, models.Location{Lat: n.Lat, Lon: n.Lon})
		}
	}
	return coords, length
}

func (g *Graph) minEdge(u, v int64) (Edge, bool) {
	best := Edge{LengthM: math.Inf(1)}
	found := false
	for _, e := range g.Adj[u] {
		if e.To == v && e.LengthM < best.LengthM {
			best = e
			found = true
		}
	}
	return best, found
}

func reconstructPath(cameFrom map[int64]int64, current int64) []int64 {
	var path []int64
	for {
		path = append([]int64{current}, path...)
		prev, ok := cameFrom[current]
		if !ok {
			break
		}
		current = prev
	}
	return path
}

type pqItem struct {
	node     int64
	priority float64
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].priority < pq[j].priority }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x interface{}) { *pq = append(*pq, x.(*pqItem)) }

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}
