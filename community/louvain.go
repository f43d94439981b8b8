// Package community assigns Entities to communities and derives per-entity
// centrality and bridge-node flags from the RELATED_TO subgraph (spec.md
// §4.6). Louvain modularity maximization has no grounded third-party
// implementation anywhere in the corpus (see DESIGN.md); it is hand-rolled
// here as Louvain's local-moving phase, without the aggregation phase.
package community

import (
	"context"
	"sort"

	"github.com/JasonAskew/knowledge-sub001/model"
	"github.com/JasonAskew/knowledge-sub001/store"
)

// DefaultResolution is the modularity resolution parameter (spec.md §4.6).
const DefaultResolution = 1.0

// graph is an adjacency-list view of the RELATED_TO subgraph, built once
// per detection run from store.AllEntitiesWithEdges + store.RelatedToEdges.
type graph struct {
	nodes   []string
	index   map[string]int
	weights map[int]map[int]float64
	degree  []float64
	total   float64
}

func buildGraph(entities []*model.Entity, edges []*model.Edge) *graph {
	g := &graph{
		index:   make(map[string]int, len(entities)),
		weights: make(map[int]map[int]float64, len(entities)),
	}
	for _, e := range entities {
		g.index[e.ID] = len(g.nodes)
		g.nodes = append(g.nodes, e.ID)
	}
	g.degree = make([]float64, len(g.nodes))

	for _, e := range edges {
		if e.Type != model.EdgeRelatedTo {
			continue
		}
		si, sok := g.index[e.SourceID]
		ti, tok := g.index[e.TargetID]
		if !sok || !tok || si == ti {
			continue
		}
		g.addEdge(si, ti, e.Weight)
	}
	return g
}

func (g *graph) addEdge(a, b int, w float64) {
	if g.weights[a] == nil {
		g.weights[a] = make(map[int]float64)
	}
	if g.weights[b] == nil {
		g.weights[b] = make(map[int]float64)
	}
	g.weights[a][b] += w
	g.weights[b][a] += w
	g.degree[a] += w
	g.degree[b] += w
	g.total += w
}

// Assignment is the outcome of running Detect: each entity's community,
// degree centrality within it, and bridge-node flag, plus per-community
// coherence (reported, not written back).
type Assignment struct {
	CommunityOf map[string]int
	Centrality  map[string]float64
	IsBridge    map[string]bool
	Coherence   map[int]float64
}

// Detect runs Louvain modularity maximization over every Entity that has
// at least one RELATED_TO edge, then the centrality/bridge/coherence post
// pass of spec.md §4.6.
func Detect(ctx context.Context, s store.Store, resolution float64) (*Assignment, error) {
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	entities, err := s.AllEntitiesWithEdges(ctx)
	if err != nil {
		return nil, err
	}
	edges, err := s.RelatedToEdges(ctx)
	if err != nil {
		return nil, err
	}
	g := buildGraph(entities, edges)
	communities := louvain(g, resolution)

	assignment := &Assignment{
		CommunityOf: make(map[string]int, len(g.nodes)),
		Centrality:  make(map[string]float64, len(g.nodes)),
		IsBridge:    make(map[string]bool, len(g.nodes)),
		Coherence:   make(map[int]float64),
	}
	for i, node := range g.nodes {
		assignment.CommunityOf[node] = communities[i]
	}

	computeCentrality(g, communities, assignment)
	computeBridgeNodes(g, communities, assignment)
	computeCoherence(g, communities, assignment)

	return assignment, nil
}

// louvain runs Louvain's local-moving phase only: each node in turn is
// scored against its own community (with itself taken out) and every
// neighboring community, and moves only to one with a strictly larger
// modularity gain, until a full pass moves no node (at most 100 passes). Communities are not
// aggregated into super-nodes. It returns one community id per node index
// in g.nodes.
func louvain(g *graph, resolution float64) []int {
	n := len(g.nodes)
	if n == 0 {
		return nil
	}
	community := make([]int, n)
	for i := range community {
		community[i] = i
	}
	if g.total == 0 {
		return community
	}

	improved := true
	for pass := 0; pass < 100 && improved; pass++ {
		improved = false
		for i := 0; i < n; i++ {
			best := community[i]
			current := community[i]

			neighborGains := make(map[int]float64)
			for j, w := range g.weights[i] {
				neighborGains[community[j]] += w
			}

			// Staying is scored like a move, with i taken out of its own
			// community, so leaving always has to beat staying.
			stayDegree := communityDegree(g, community, current) - g.degree[i]
			bestGain := neighborGains[current] - resolution*g.degree[i]*stayDegree/(2*g.total)

			for c, linkWeight := range neighborGains {
				if c == current {
					continue
				}
				gain := linkWeight - resolution*g.degree[i]*communityDegree(g, community, c)/(2*g.total)
				if gain > bestGain {
					bestGain = gain
					best = c
				}
			}

			if best != current {
				community[i] = best
				improved = true
			}
		}
	}

	return normalizeLabels(community)
}

func communityDegree(g *graph, community []int, c int) float64 {
	var sum float64
	for i, cc := range community {
		if cc == c {
			sum += g.degree[i]
		}
	}
	return sum
}

func normalizeLabels(community []int) []int {
	remap := make(map[int]int)
	out := make([]int, len(community))
	next := 0
	for i, c := range community {
		id, ok := remap[c]
		if !ok {
			id = next
			remap[c] = id
			next++
		}
		out[i] = id
	}
	return out
}

// computeCentrality sets degree_centrality (spec.md §4.6): sum of
// intra-community edge weights, normalized by the max such sum in the
// community, in [0,1].
func computeCentrality(g *graph, community []int, a *Assignment) {
	intraSum := make([]float64, len(g.nodes))
	for i := range g.nodes {
		for j, w := range g.weights[i] {
			if community[i] == community[j] {
				intraSum[i] += w
			}
		}
	}

	maxByCommunity := make(map[int]float64)
	for i, s := range intraSum {
		if s > maxByCommunity[community[i]] {
			maxByCommunity[community[i]] = s
		}
	}

	for i, node := range g.nodes {
		max := maxByCommunity[community[i]]
		if max == 0 {
			a.Centrality[node] = 0
			continue
		}
		a.Centrality[node] = intraSum[i] / max
	}
}

// computeBridgeNodes implements spec.md §4.6's deliberately strict
// definition: its RELATED_TO neighbors lie in ≥2 distinct communities (its
// own counts when a neighbor is in it) AND its cross-community weight ≥
// the median cross-community weight over all entities that have any
// cross-community edges at all.
func computeBridgeNodes(g *graph, community []int, a *Assignment) {
	crossWeight := make([]float64, len(g.nodes))
	neighborCommunities := make([]map[int]struct{}, len(g.nodes))

	for i := range g.nodes {
		neighborCommunities[i] = make(map[int]struct{})
		for j, w := range g.weights[i] {
			neighborCommunities[i][community[j]] = struct{}{}
			if community[i] != community[j] {
				crossWeight[i] += w
			}
		}
	}

	var nonZero []float64
	for _, w := range crossWeight {
		if w > 0 {
			nonZero = append(nonZero, w)
		}
	}
	median := medianOf(nonZero)

	for i, node := range g.nodes {
		a.IsBridge[node] = len(neighborCommunities[i]) >= 2 && crossWeight[i] >= median
	}
}

func medianOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// computeCoherence is the ratio of intra-community weight to total
// incident weight, summed over a community's entities (spec.md §4.6);
// reported, not persisted.
func computeCoherence(g *graph, community []int, a *Assignment) {
	intraByCommunity := make(map[int]float64)
	totalByCommunity := make(map[int]float64)

	for i := range g.nodes {
		c := community[i]
		for j, w := range g.weights[i] {
			totalByCommunity[c] += w
			if community[j] == c {
				intraByCommunity[c] += w
			}
		}
	}

	for c, total := range totalByCommunity {
		if total == 0 {
			a.Coherence[c] = 0
			continue
		}
		a.Coherence[c] = intraByCommunity[c] / total
	}
}
