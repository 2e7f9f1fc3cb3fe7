package network

import (
	"log"
	"sort"
	"strings"

	"github.com/mkueh/citibike-analyse/internal/geo"
	"github.com/mkueh/citibike-analyse/internal/models"
)

var (
	footExclude = map[string]bool{
		"footway": true, "path": true, "steps": true, "pedestrian": true,
		"corridor": true, "escalator": true, "elevator": true,
		"bridleway": true, "subway": true,
	}
	motorwayExclude = map[string]bool{
		"motorway": true, "motorway_link": true, "trunk": true, "trunk_link": true,
	}
	miscExclude = map[string]bool{"construction": true}
)

// ferryLinkMaxDistM bounds how far a ferry terminal may be snapped to the
// street network.
const ferryLinkMaxDistM = 500.0

// NormalizeTags splits a raw OSM tag value into its parts. OSM packs
// multi-values with semicolons.
func NormalizeTags(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsFerryEdge reports whether an edge belongs to a ferry route.
func IsFerryEdge(e Edge) bool {
	if e.Ferry {
		return true
	}
	for _, tag := range NormalizeTags(e.Tags["route"]) {
		if strings.EqualFold(tag, "ferry") {
			return true
		}
	}
	for _, field := range []string{"highway", "service"} {
		for _, tag := range NormalizeTags(e.Tags[field]) {
			if strings.Contains(strings.ToLower(tag), "ferry") {
				return true
			}
		}
	}
	if name, ok := e.Tags["name"]; ok && strings.Contains(strings.ToLower(name), "ferry") {
		return true
	}
	return false
}

// keepEdge decides whether an edge survives the bikeable-street filter.
// Ferries always stay; sidewalk-like, motorway, construction, railway, and
// bicycle=no edges go.
func keepEdge(e Edge) bool {
	ferry := IsFerryEdge(e)
	if len(NormalizeTags(e.Tags["railway"])) > 0 && !ferry {
		return false
	}
	if ferry {
		return true
	}
	highway := NormalizeTags(e.Tags["highway"])
	if len(highway) == 0 {
		return false
	}
	allFoot := true
	for _, tag := range highway {
		if motorwayExclude[tag] || miscExclude[tag] {
			return false
		}
		if !footExclude[tag] {
			allFoot = false
		}
	}
	if allFoot {
		return false
	}
	for _, tag := range NormalizeTags(e.Tags["bicycle"]) {
		if tag == "no" {
			return false
		}
	}
	return true
}

// FilterEdges drops non-bikeable edges and any node left without edges.
func FilterEdges(g *Graph) *Graph {
	out := NewGraph()
	before := 0
	kept := 0
	used := make(map[int64]bool)
	for from, edges := range g.Adj {
		for _, e := range edges {
			before++
			if !keepEdge(e) {
				continue
			}
			out.Adj[from] = append(out.Adj[from], e)
			used[e.From] = true
			used[e.To] = true
			kept++
		}
	}
	for id := range used {
		if n, ok := g.Nodes[id]; ok {
			out.Nodes[id] = n
		}
	}
	if before != kept {
		log.Printf("Filtered non-street/bikeable edges: %d -> %d", before, kept)
	}
	return out
}

// ConnectFerryTerminals snaps every ferry endpoint to its nearest street
// node within ferryLinkMaxDistM, adding bidirectional ferry_link edges so the
// water crossings are reachable.
func ConnectFerryTerminals(g *Graph) {
	ferryNodes := make(map[int64]bool)
	for _, edges := range g.Adj {
		for _, e := range edges {
			if IsFerryEdge(e) {
				ferryNodes[e.From] = true
				ferryNodes[e.To] = true
			}
		}
	}
	if len(ferryNodes) == 0 {
		return
	}

	streetIndex := &NodeIndex{}
	for id, n := range g.Nodes {
		if ferryNodes[id] {
			continue
		}
		pt := [2]float64{n.Lon, n.Lat}
		streetIndex.tree.Insert(pt, pt, id)
		streetIndex.size++
	}
	if streetIndex.size == 0 {
		return
	}

	linked := 0
	for id := range ferryNodes {
		ferry := g.Nodes[id]
		streetID, err := streetIndex.Nearest(ferry.Lon, ferry.Lat)
		if err != nil {
			continue
		}
		street := g.Nodes[streetID]
		distM := geo.HaversineM(ferry.Lat, ferry.Lon, street.Lat, street.Lon)
		if distM > ferryLinkMaxDistM {
			continue
		}
		link := Edge{
			From:    id,
			To:      streetID,
			LengthM: distM,
			Ferry:   true,
			Tags:    map[string]string{"highway": "ferry_link"},
		}
		g.AddEdge(link)
		back := link
		back.From, back.To = link.To, link.From
		g.AddEdge(back)
		linked++
	}
	if linked > 0 {
		log.Printf("Connected ferry terminals: %d links", linked)
	}
}

// DissolveBidirectional collapses (u,v)/(v,u) duplicates into one undirected
// edge stored in both directions, keeping the shortest geometry and the ferry
// flag of either direction.
func DissolveBidirectional(g *Graph) *Graph {
	type key struct{ a, b int64 }
	merged := make(map[key]Edge)
	for _, edges := range g.Adj {
		for _, e := range edges {
			k := key{e.From, e.To}
			if k.a > k.b {
				k.a, k.b = k.b, k.a
			}
			existing, ok := merged[k]
			if !ok {
				merged[k] = e
				continue
			}
			if e.Ferry {
				existing.Ferry = true
			}
			if e.LengthM < existing.LengthM {
				existing.LengthM = e.LengthM
				existing.Geometry = e.Geometry
				existing.From, existing.To = e.From, e.To
			}
			merged[k] = existing
		}
	}

	out := NewGraph()
	for id, n := range g.Nodes {
		out.Nodes[id] = n
	}
	keys := make([]key, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].a != keys[j].a {
			return keys[i].a < keys[j].a
		}
		return keys[i].b < keys[j].b
	})
	for _, k := range keys {
		e := merged[k]
		out.AddEdge(e)
		back := e
		back.From, back.To = e.To, e.From
		back.Geometry = reverseCoords(e.Geometry)
		out.AddEdge(back)
	}
	return out
}

func reverseCoords(coords []models.Location) []models.Location {
	if len(coords) == 0 {
		return nil
	}
	out := make([]models.Location, len(coords))
	for i, c := range coords {
		out[len(coords)-1-i] = c
	}
	return out
}

// Postprocess runs the processed-stage pipeline: bikeable filter, ferry
// terminal stitching, bidirectional dissolve, largest component.
func Postprocess(g *Graph) *Graph {
	filtered := FilterEdges(g)
	ConnectFerryTerminals(filtered)
	dissolved := DissolveBidirectional(filtered)
	return dissolved.LargestComponent()
}
