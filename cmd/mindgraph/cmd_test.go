package mindgraph

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/soundprediction/mindgraph"
	"github.com/soundprediction/mindgraph/pkg/types"
)

func TestInputKind(t *testing.T) {
	tests := []struct {
		flag, path string
		want       string
		wantErr    bool
	}{
		{"auto", "notes.txt", "text", false},
		{"auto", "graph.JSON", "concepts", false},
		{"", "-", "text", false},
		{"concepts", "data.txt", "concepts", false},
		{"pdf", "x", "", true},
	}
	for _, tt := range tests {
		got, err := inputKind(tt.flag, tt.path)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestWriteOutput(t *testing.T) {
	summary := types.GraphSummary{ID: "g1", NodeCount: 3, EdgeCount: 2}

	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, "yaml", summary))
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "g1", doc["id"])
	assert.Equal(t, 3, doc["node_count"])

	buf.Reset()
	require.NoError(t, writeOutput(&buf, "json", summary))
	assert.Contains(t, buf.String(), `"edge_count": 2`)

	assert.Error(t, writeOutput(&buf, "xml", summary))
}

func TestGraphTools(t *testing.T) {
	client, err := mindgraph.NewClient(nil, nil, nil, nil, nil)
	require.NoError(t, err)
	defer client.Close()

	tools := newGraphTools(client, nil)
	ctx := context.Background()

	resp := tools.buildGraph(ctx, &BuildGraphInput{})
	assert.False(t, resp.Success)

	resp = tools.buildGraph(ctx, &BuildGraphInput{
		Concepts: []types.Concept{
			{Label: "Rain", Importance: 0.9},
			{Label: "Flood", Importance: 0.8},
		},
		Relationships: []types.Relationship{
			{SourceLabel: "Rain", TargetLabel: "Flood", Type: "causes", Strength: 0.9},
		},
	})
	require.True(t, resp.Success, resp.Error)
	built := resp.Data.(*types.BuildResult)

	resp = tools.listGraphs(ctx)
	require.True(t, resp.Success)
	assert.Len(t, resp.Data.([]types.GraphSummary), 1)

	g, err := client.GetGraph(ctx, built.GraphID)
	require.NoError(t, err)
	ids := map[string]string{}
	for _, n := range g.Nodes {
		ids[n.Label] = n.ID
	}

	resp = tools.shortestPath(ctx, &PathInput{GraphID: built.GraphID, SourceID: ids["Rain"], TargetID: ids["Flood"]})
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, 1, resp.Data.(*types.Path).Length)

	resp = tools.expandNode(ctx, &NodeInput{GraphID: built.GraphID, NodeID: ids["Rain"]})
	require.True(t, resp.Success, resp.Error)
	assert.Len(t, resp.Data.(*types.Subgraph).Nodes, 2)

	resp = tools.summarize(ctx, &GraphInput{GraphID: built.GraphID})
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)

	resp = tools.answer(ctx, &QuestionInput{GraphID: built.GraphID})
	assert.False(t, resp.Success)
}
