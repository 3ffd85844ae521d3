package graph

import (
	"encoding/json"
	"testing"

	"gotest.tools/assert"
)

func TestGraphUnmarshal(t *testing.T) {
	var g Graph
	err := json.Unmarshal([]byte(sampleGraph), &g)
	assert.NilError(t, err)
	assert.Equal(t, len(g.Nodes), 3)
	assert.Equal(t, len(g.Edges), 3)
	assert.Equal(t, g.Nodes[1].Payload, "sha512-bbb")
}

func TestFindVersion(t *testing.T) {
	g := Graph{Nodes: []Node{{Version: "1.0.0"}, {Version: "1.1.0"}}}

	index, found := g.FindVersion("1.1.0")
	assert.Check(t, found)
	assert.Equal(t, index, 1)

	_, found = g.FindVersion("9.9.9")
	assert.Check(t, !found)
}

func TestNextReleases(t *testing.T) {
	g := Graph{
		Nodes: []Node{
			{Version: "1.0.0"},
			{Version: "1.1.0", Payload: "sha512-bbb"},
			{Version: "1.2.0"},
		},
		// One dangling edge target, which must be skipped.
		Edges: [][2]int{{0, 1}, {0, 7}, {1, 2}},
	}

	nexts := g.NextReleases(0)
	assert.Equal(t, len(nexts), 1)
	assert.Equal(t, nexts[0].Version, "1.1.0")
	assert.Equal(t, nexts[0].Payload, "sha512-bbb")

	assert.Equal(t, len(g.NextReleases(2)), 0)
}
