package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/mindgraph"
	"github.com/soundprediction/mindgraph/pkg/server/dto"
)

// GraphHandler handles graph construction and graph level requests.
type GraphHandler struct {
	graphs mindgraph.MindGraph
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(g mindgraph.MindGraph) *GraphHandler {
	return &GraphHandler{graphs: g}
}

// Build handles POST /graphs
func (h *GraphHandler) Build(c *gin.Context) {
	var req dto.BuildGraphRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(c, err.Error())
		return
	}

	result, err := h.graphs.BuildGraph(c.Request.Context(), req.Concepts, req.Relationships)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// BuildFromText handles POST /graphs/text
func (h *GraphHandler) BuildFromText(c *gin.Context) {
	var req dto.BuildFromTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(c, err.Error())
		return
	}

	opts := &mindgraph.BuildOptions{
		MaxConcepts:   req.MaxConcepts,
		MinImportance: req.MinImportance,
		MinStrength:   req.MinStrength,
		RelationTypes: req.RelationTypes,
		Timeout:       time.Duration(req.TimeoutSeconds) * time.Second,
	}
	result, err := h.graphs.BuildGraphFromText(c.Request.Context(), req.Text, opts)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// List handles GET /graphs
func (h *GraphHandler) List(c *gin.Context) {
	graphs, err := h.graphs.ListGraphs(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.GraphListResponse{Graphs: graphs, Total: len(graphs)})
}

// Get handles GET /graphs/:graph_id
func (h *GraphHandler) Get(c *gin.Context) {
	g, err := h.graphs.GetGraph(c.Request.Context(), c.Param("graph_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// Delete handles DELETE /graphs/:graph_id
func (h *GraphHandler) Delete(c *gin.Context) {
	if err := h.graphs.DeleteGraph(c.Request.Context(), c.Param("graph_id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddConcepts handles POST /graphs/:graph_id/concepts
func (h *GraphHandler) AddConcepts(c *gin.Context) {
	var req dto.AddConceptsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(c, err.Error())
		return
	}

	result, err := h.graphs.AddConcepts(c.Request.Context(), c.Param("graph_id"), req.ParentID, req.Concepts, req.Relationships)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Version handles GET /graphs/:graph_id/version
func (h *GraphHandler) Version(c *gin.Context) {
	graphID := c.Param("graph_id")
	version, err := h.graphs.GraphVersion(c.Request.Context(), graphID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.VersionResponse{GraphID: graphID, Version: version})
}

// Clusters handles GET /graphs/:graph_id/clusters
func (h *GraphHandler) Clusters(c *gin.Context) {
	clustering, err := h.graphs.ClusterGraph(c.Request.Context(), c.Param("graph_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, clustering)
}

// Summarize handles POST /graphs/:graph_id/summary
func (h *GraphHandler) Summarize(c *gin.Context) {
	graphID := c.Param("graph_id")
	summary, err := h.graphs.SummarizeGraph(c.Request.Context(), graphID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SummaryResponse{GraphID: graphID, Summary: summary})
}
