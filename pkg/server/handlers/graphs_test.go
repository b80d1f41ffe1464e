package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/mindgraph"
	"github.com/soundprediction/mindgraph/pkg/extraction"
	"github.com/soundprediction/mindgraph/pkg/nlp"
	"github.com/soundprediction/mindgraph/pkg/server/dto"
	"github.com/soundprediction/mindgraph/pkg/types"
)

type stubExtractor struct{}

func (stubExtractor) ExtractConcepts(ctx context.Context, text string, opts extraction.Options) ([]types.Concept, error) {
	return []types.Concept{
		{Label: "Rain", Importance: 0.9},
		{Label: "Flood", Importance: 0.7},
	}, nil
}

func (stubExtractor) ExtractRelationships(ctx context.Context, text string, concepts []types.Concept, opts extraction.Options) ([]types.Relationship, error) {
	return []types.Relationship{{SourceLabel: "Rain", TargetLabel: "Flood", Type: "causes", Strength: 0.9}}, nil
}

func (stubExtractor) Close() error { return nil }

type stubModel struct{ reply string }

func (m stubModel) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	return &types.Response{Content: m.reply}, nil
}

func (m stubModel) ChatWithStructuredOutput(ctx context.Context, messages []types.Message, schema any) (*types.Response, error) {
	return m.Chat(ctx, messages)
}

func (stubModel) GetCapabilities() []nlp.TaskCapability {
	return []nlp.TaskCapability{nlp.TaskTextGeneration}
}

func (stubModel) Close() error { return nil }

// newRouter wires the graph and query handlers the way the server does.
func newRouter(t *testing.T, withModel bool) *gin.Engine {
	t.Helper()
	cfg := mindgraph.DefaultConfig()
	if withModel {
		cfg.LanguageModels.Explainer = stubModel{reply: "Rain causes Flood."}
	}
	client, err := mindgraph.NewClient(nil, stubExtractor{}, nil, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	graphs := NewGraphHandler(client)
	query := NewQueryHandler(client)

	r := gin.New()
	g := r.Group("/graphs")
	g.POST("", graphs.Build)
	g.POST("/text", graphs.BuildFromText)
	g.GET("", graphs.List)
	g.GET("/:graph_id", graphs.Get)
	g.DELETE("/:graph_id", graphs.Delete)
	g.POST("/:graph_id/concepts", graphs.AddConcepts)
	g.GET("/:graph_id/version", graphs.Version)
	g.GET("/:graph_id/clusters", graphs.Clusters)
	g.POST("/:graph_id/summary", graphs.Summarize)
	g.GET("/:graph_id/path", query.ShortestPath)
	g.POST("/:graph_id/explain", query.Explain)
	g.POST("/:graph_id/ask", query.Ask)
	n := g.Group("/:graph_id/nodes/:node_id")
	n.GET("", query.GetNode)
	n.DELETE("", query.DeleteNode)
	n.GET("/edges", query.Edges)
	n.GET("/neighbors", query.Neighbors)
	n.GET("/expand", query.Expand)
	n.GET("/similar", query.Similar)
	n.GET("/traverse", query.Traverse)
	n.GET("/paths", query.Paths)
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// buildChain creates A -> B -> C -> D and returns the graph id and node ids by label.
func buildChain(t *testing.T, r http.Handler) (string, map[string]string) {
	t.Helper()
	req := dto.BuildGraphRequest{}
	labels := []string{"A", "B", "C", "D"}
	for i, l := range labels {
		req.Concepts = append(req.Concepts, types.Concept{Label: l, Importance: 0.8})
		if i > 0 {
			req.Relationships = append(req.Relationships, types.Relationship{
				SourceLabel: labels[i-1], TargetLabel: l, Type: "leads to", Strength: 0.8,
			})
		}
	}
	w := do(t, r, http.MethodPost, "/graphs", req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	built := decode[types.BuildResult](t, w)

	w = do(t, r, http.MethodGet, "/graphs/"+built.GraphID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	g := decode[types.Graph](t, w)
	ids := make(map[string]string)
	for _, n := range g.Nodes {
		ids[n.Label] = n.ID
	}
	return built.GraphID, ids
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"graph not found", fmt.Errorf("%w: g", types.ErrGraphNotFound), http.StatusNotFound, "graph_not_found"},
		{"unknown graph", types.ErrUnknownGraph, http.StatusNotFound, "graph_not_found"},
		{"node not found", types.ErrNodeNotFound, http.StatusNotFound, "node_not_found"},
		{"no path", types.ErrNoPathFound, http.StatusNotFound, "no_path_found"},
		{"invalid input", types.ErrInvalidInput, http.StatusBadRequest, "invalid_request"},
		{"dimension mismatch", types.ErrDimensionMismatch, http.StatusBadRequest, "invalid_request"},
		{"insufficient concepts", types.NewInsufficientConceptsError(0, 1), http.StatusUnprocessableEntity, "insufficient_concepts"},
		{"collaborator", nlp.AsCollaboratorError("embedding", errors.New("boom")), http.StatusBadGateway, "collaborator_failed"},
		{"timeout", nlp.AsCollaboratorError("embedding", context.DeadlineExceeded), http.StatusGatewayTimeout, "collaborator_timeout"},
		{"no model", &types.CollaboratorError{Collaborator: "x", Err: mindgraph.ErrNoLanguageModel}, http.StatusServiceUnavailable, "no_language_model"},
		{"internal", &types.InvariantError{GraphID: "g", Detail: "bad"}, http.StatusInternalServerError, "internal_error"},
		{"unknown", errors.New("surprise"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := errorStatus(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestWriteErrorBody(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		retry   bool
		message string
	}{
		{"collaborator errors are retryable", nlp.AsCollaboratorError("embedding", errors.New("503")), true, ""},
		{"validation errors are not", types.ErrNodeNotFound, false, ""},
		{"missing model is not", &types.CollaboratorError{Collaborator: "x", Err: mindgraph.ErrNoLanguageModel}, false, ""},
		{"internal detail is withheld", errors.New("secret detail"), false, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/", func(c *gin.Context) { writeError(c, tt.err) })
			w := do(t, r, http.MethodGet, "/", nil)

			body := decode[dto.ErrorResponse](t, w)
			assert.Equal(t, tt.retry, body.Retry)
			assert.Equal(t, w.Code, body.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, body.Message)
			}
		})
	}
}

func TestBuildValidation(t *testing.T) {
	r := newRouter(t, false)

	tests := []struct {
		name string
		body any
	}{
		{"invalid json", "not json"},
		{"no concepts", dto.BuildGraphRequest{Concepts: []types.Concept{}}},
		{"empty label", dto.BuildGraphRequest{Concepts: []types.Concept{{Label: " "}}}},
		{"dangling relationship", dto.BuildGraphRequest{
			Concepts:      []types.Concept{{Label: "A"}},
			Relationships: []types.Relationship{{SourceLabel: "A"}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, "/graphs", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "invalid_request", decode[dto.ErrorResponse](t, w).Error)
		})
	}
}

func TestBuildFromText(t *testing.T) {
	r := newRouter(t, false)

	w := do(t, r, http.MethodPost, "/graphs/text", dto.BuildFromTextRequest{Text: "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	text := strings.Repeat("Heavy rain over several days can overwhelm rivers and cause floods. ", 3)
	w = do(t, r, http.MethodPost, "/graphs/text", dto.BuildFromTextRequest{Text: text})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	built := decode[types.BuildResult](t, w)
	assert.Equal(t, 2, built.Stats.NodeCount)
	assert.Equal(t, 1, built.Stats.EdgeCount)
}

func TestNodeEndpoints(t *testing.T) {
	r := newRouter(t, false)
	graphID, ids := buildChain(t, r)
	base := "/graphs/" + graphID + "/nodes/"

	t.Run("get node", func(t *testing.T) {
		w := do(t, r, http.MethodGet, base+ids["B"], nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "B", decode[types.Node](t, w).Label)

		w = do(t, r, http.MethodGet, base+"node_999", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "node_not_found", decode[dto.ErrorResponse](t, w).Error)
	})

	t.Run("neighbors", func(t *testing.T) {
		w := do(t, r, http.MethodGet, base+ids["B"]+"/neighbors?direction=both", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 2, decode[dto.NodesResponse](t, w).Total)

		w = do(t, r, http.MethodGet, base+ids["B"]+"/neighbors?direction=sideways", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("edges", func(t *testing.T) {
		w := do(t, r, http.MethodGet, base+ids["B"]+"/edges", nil)
		require.Equal(t, http.StatusOK, w.Code)
		edges := decode[dto.EdgesResponse](t, w)
		assert.Equal(t, 2, edges.Total)
		assert.Equal(t, "leads-to", edges.Edges[0].Type)
	})

	t.Run("expand", func(t *testing.T) {
		w := do(t, r, http.MethodGet, base+ids["A"]+"/expand?depth=2", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode[types.Subgraph](t, w).Nodes, 3)

		w = do(t, r, http.MethodGet, base+ids["A"]+"/expand?depth=abc", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = do(t, r, http.MethodGet, base+ids["A"]+"/expand?depth=6", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("traverse", func(t *testing.T) {
		w := do(t, r, http.MethodGet, base+ids["A"]+"/traverse?order=dfs", nil)
		require.Equal(t, http.StatusOK, w.Code)
		order := decode[dto.TraversalResponse](t, w)
		assert.Equal(t, []string{ids["A"], ids["B"], ids["C"], ids["D"]}, order.NodeIDs)

		w = do(t, r, http.MethodGet, base+ids["A"]+"/traverse?order=random", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("paths", func(t *testing.T) {
		w := do(t, r, http.MethodGet, base+ids["A"]+"/paths?max_hops=2", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 2, decode[dto.PathsResponse](t, w).Total)

		w = do(t, r, http.MethodGet, base+ids["A"]+"/paths?max_hops=10", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_request", decode[dto.ErrorResponse](t, w).Error)
	})

	t.Run("similar without embeddings", func(t *testing.T) {
		w := do(t, r, http.MethodGet, base+ids["A"]+"/similar", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 0, decode[dto.SimilarResponse](t, w).Total)
	})

	t.Run("shortest path", func(t *testing.T) {
		w := do(t, r, http.MethodGet, "/graphs/"+graphID+"/path?from="+ids["A"], nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("delete node", func(t *testing.T) {
		w := do(t, r, http.MethodDelete, base+ids["D"], nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode[dto.DeleteNodeResponse](t, w).RemovedEdges, 1)

		w = do(t, r, http.MethodGet, "/graphs/"+graphID+"/version", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 2, decode[dto.VersionResponse](t, w).Version)
	})
}

func TestAddConceptsEndpoint(t *testing.T) {
	r := newRouter(t, false)
	graphID, ids := buildChain(t, r)

	w := do(t, r, http.MethodPost, "/graphs/"+graphID+"/concepts", dto.AddConceptsRequest{
		ParentID: ids["D"],
		Concepts: []types.Concept{{Label: "E", Importance: 0.6}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 5, decode[types.BuildResult](t, w).Stats.NodeCount)

	w = do(t, r, http.MethodPost, "/graphs/graph_missing/concepts", dto.AddConceptsRequest{
		Concepts: []types.Concept{{Label: "E"}},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodPost, "/graphs/"+graphID+"/concepts", dto.AddConceptsRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReasoningEndpoints(t *testing.T) {
	t.Run("with a model", func(t *testing.T) {
		r := newRouter(t, true)
		graphID, ids := buildChain(t, r)

		w := do(t, r, http.MethodPost, "/graphs/"+graphID+"/explain", dto.ExplainRequest{SourceID: ids["A"], TargetID: ids["C"]})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		exp := decode[types.Explanation](t, w)
		require.Len(t, exp.Paths, 1)
		assert.Equal(t, "Rain causes Flood.", exp.Narrative)

		w = do(t, r, http.MethodPost, "/graphs/"+graphID+"/ask", dto.AskRequest{Question: "What does A lead to?"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "Rain causes Flood.", decode[types.Answer](t, w).Text)

		w = do(t, r, http.MethodPost, "/graphs/"+graphID+"/summary", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "Rain causes Flood.", decode[dto.SummaryResponse](t, w).Summary)

		w = do(t, r, http.MethodPost, "/graphs/"+graphID+"/ask", dto.AskRequest{Question: "  "})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("without a model", func(t *testing.T) {
		r := newRouter(t, false)
		graphID, _ := buildChain(t, r)

		w := do(t, r, http.MethodPost, "/graphs/"+graphID+"/summary", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		body := decode[dto.ErrorResponse](t, w)
		assert.Equal(t, "no_language_model", body.Error)
		assert.False(t, body.Retry)
	})
}

func TestClustersAndDelete(t *testing.T) {
	r := newRouter(t, false)
	graphID, _ := buildChain(t, r)

	w := do(t, r, http.MethodGet, "/graphs/"+graphID+"/clusters", nil)
	require.Equal(t, http.StatusOK, w.Code)
	clustering := decode[types.Clustering](t, w)
	assert.Equal(t, 1, clustering.ClusterCount)
	assert.Len(t, clustering.Assignments, 4)

	w = do(t, r, http.MethodDelete, "/graphs/"+graphID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, r, http.MethodDelete, "/graphs/"+graphID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodGet, "/graphs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[dto.GraphListResponse](t, w).Total)
}
