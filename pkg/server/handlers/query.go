package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/mindgraph"
	"github.com/soundprediction/mindgraph/pkg/search"
	"github.com/soundprediction/mindgraph/pkg/server/dto"
)

// QueryHandler handles node level reads, traversals and reasoning requests.
type QueryHandler struct {
	graphs mindgraph.MindGraph
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(g mindgraph.MindGraph) *QueryHandler {
	return &QueryHandler{graphs: g}
}

// direction parses the direction query parameter.
func direction(c *gin.Context) (search.Direction, bool) {
	dir, err := search.ParseDirection(c.Query("direction"))
	if err != nil {
		badRequest(c, err.Error())
		return "", false
	}
	return dir, true
}

// GetNode handles GET /graphs/:graph_id/nodes/:node_id
func (h *QueryHandler) GetNode(c *gin.Context) {
	node, err := h.graphs.GetNode(c.Request.Context(), c.Param("graph_id"), c.Param("node_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, node)
}

// DeleteNode handles DELETE /graphs/:graph_id/nodes/:node_id
func (h *QueryHandler) DeleteNode(c *gin.Context) {
	nodeID := c.Param("node_id")
	removed, err := h.graphs.DeleteNode(c.Request.Context(), c.Param("graph_id"), nodeID)
	if err != nil {
		writeError(c, err)
		return
	}
	if removed == nil {
		removed = []string{}
	}
	c.JSON(http.StatusOK, dto.DeleteNodeResponse{NodeID: nodeID, RemovedEdges: removed})
}

// Edges handles GET /graphs/:graph_id/nodes/:node_id/edges
func (h *QueryHandler) Edges(c *gin.Context) {
	edges, err := h.graphs.GetEdgesForNode(c.Request.Context(), c.Param("graph_id"), c.Param("node_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.EdgesResponse{Edges: edges, Total: len(edges)})
}

// Neighbors handles GET /graphs/:graph_id/nodes/:node_id/neighbors?direction=in|out|both
func (h *QueryHandler) Neighbors(c *gin.Context) {
	dir, ok := direction(c)
	if !ok {
		return
	}
	nodes, err := h.graphs.GetNeighbors(c.Request.Context(), c.Param("graph_id"), c.Param("node_id"), dir)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NodesResponse{Nodes: nodes, Total: len(nodes)})
}

// Expand handles GET /graphs/:graph_id/nodes/:node_id/expand?depth=n
func (h *QueryHandler) Expand(c *gin.Context) {
	depth, ok := intQuery(c, "depth", 1)
	if !ok {
		return
	}
	sub, err := h.graphs.ExpandNode(c.Request.Context(), c.Param("graph_id"), c.Param("node_id"), depth)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// Similar handles GET /graphs/:graph_id/nodes/:node_id/similar?k=n
func (h *QueryHandler) Similar(c *gin.Context) {
	k, ok := intQuery(c, "k", search.DefaultTopK)
	if !ok {
		return
	}
	hits, err := h.graphs.FindSimilarNodes(c.Request.Context(), c.Param("graph_id"), c.Param("node_id"), k)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SimilarResponse{Results: hits, Total: len(hits)})
}

// Traverse handles GET /graphs/:graph_id/nodes/:node_id/traverse?order=bfs|dfs&direction=
func (h *QueryHandler) Traverse(c *gin.Context) {
	dir, ok := direction(c)
	if !ok {
		return
	}
	graphID, start := c.Param("graph_id"), c.Param("node_id")

	var (
		order []string
		err   error
	)
	kind := c.DefaultQuery("order", "bfs")
	switch kind {
	case "bfs":
		order, err = h.graphs.BFS(c.Request.Context(), graphID, start, dir)
	case "dfs":
		order, err = h.graphs.DFS(c.Request.Context(), graphID, start, dir)
	default:
		badRequest(c, "order must be bfs or dfs")
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.TraversalResponse{Start: start, Order: kind, Direction: string(dir), NodeIDs: order})
}

// Paths handles GET /graphs/:graph_id/nodes/:node_id/paths?max_hops=n
func (h *QueryHandler) Paths(c *gin.Context) {
	maxHops, ok := intQuery(c, "max_hops", search.DefaultMaxHops)
	if !ok {
		return
	}
	paths, err := h.graphs.PathsWithinHops(c.Request.Context(), c.Param("graph_id"), c.Param("node_id"), maxHops)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.PathsResponse{Paths: paths, Total: len(paths)})
}

// ShortestPath handles GET /graphs/:graph_id/path?from=&to=
func (h *QueryHandler) ShortestPath(c *gin.Context) {
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		badRequest(c, "from and to are required")
		return
	}
	path, err := h.graphs.ShortestPath(c.Request.Context(), c.Param("graph_id"), from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, path)
}

// Explain handles POST /graphs/:graph_id/explain
func (h *QueryHandler) Explain(c *gin.Context) {
	var req dto.ExplainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(c, err.Error())
		return
	}

	exp, err := h.graphs.ExplainRelationship(c.Request.Context(), c.Param("graph_id"), req.SourceID, req.TargetID,
		&mindgraph.ExplainOptions{MaxHops: req.MaxHops, SkipNarrative: req.SkipNarrative})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, exp)
}

// Ask handles POST /graphs/:graph_id/ask
func (h *QueryHandler) Ask(c *gin.Context) {
	var req dto.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(c, err.Error())
		return
	}

	answer, err := h.graphs.AnswerQuestion(c.Request.Context(), c.Param("graph_id"), req.Question, req.History)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}
