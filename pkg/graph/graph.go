// Package graph talks to the upstream update-graph service. It models one
// fetched graph of releases and resolves the next release reachable from
// the node's current version.
package graph

import (
	"github.com/amazonlinux/bottlerocket/updatedog/pkg/release"
)

// Node is one release entry in a fetched graph.
type Node struct {
	Version  string            `json:"version"`
	Payload  string            `json:"payload"`
	Metadata map[string]string `json:"metadata"`
}

// Graph is the directed update graph returned by one fetch. Edges reference
// nodes by index, from -> to. A graph is scoped to a single
// request/response cycle and never persisted.
type Graph struct {
	Nodes []Node   `json:"nodes"`
	Edges [][2]int `json:"edges"`
}

// FindVersion locates the node carrying the given version string.
func (g *Graph) FindVersion(version string) (int, bool) {
	for i, node := range g.Nodes {
		if node.Version == version {
			return i, true
		}
	}
	return 0, false
}

// NextReleases enumerates the releases directly reachable from the node at
// the given index. Edges referencing out-of-range nodes are skipped.
func (g *Graph) NextReleases(from int) []release.Release {
	var nexts []release.Release
	for _, edge := range g.Edges {
		if edge[0] != from {
			continue
		}
		if edge[1] < 0 || edge[1] >= len(g.Nodes) {
			continue
		}
		target := g.Nodes[edge[1]]
		nexts = append(nexts, release.Release{
			Version: target.Version,
			Payload: target.Payload,
		})
	}
	return nexts
}
