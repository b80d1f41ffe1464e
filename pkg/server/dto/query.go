package dto

import (
	"fmt"
	"strings"

	"github.com/soundprediction/mindgraph/pkg/search"
	"github.com/soundprediction/mindgraph/pkg/types"
)

// ExplainRequest asks how two nodes are related. TargetID may be empty to list
// every path leaving SourceID.
type ExplainRequest struct {
	SourceID      string `json:"source_id" binding:"required"`
	TargetID      string `json:"target_id,omitempty"`
	MaxHops       int    `json:"max_hops,omitempty"`
	SkipNarrative bool   `json:"skip_narrative,omitempty"`
}

// Validate performs validation on ExplainRequest
func (r *ExplainRequest) Validate() error {
	if strings.TrimSpace(r.SourceID) == "" {
		return ErrEmptyNodeID
	}
	if r.MaxHops < 0 || r.MaxHops > search.DefaultMaxHops {
		return fmt.Errorf("max_hops must be between 0 and %d", search.DefaultMaxHops)
	}
	return nil
}

// AskRequest is a question about a graph with the preceding conversation.
type AskRequest struct {
	Question string           `json:"question" binding:"required"`
	History  []types.Exchange `json:"history,omitempty"`
}

// Validate performs validation on AskRequest
func (r *AskRequest) Validate() error {
	q := strings.TrimSpace(r.Question)
	if q == "" {
		return ErrEmptyQuestion
	}
	if len(q) > MaxQuestionLength {
		return ErrQuestionTooLong
	}
	if len(r.History) > MaxHistoryCount {
		return fmt.Errorf("history count exceeds maximum (%d)", MaxHistoryCount)
	}
	return nil
}

// TraversalResponse lists node ids in visit order.
type TraversalResponse struct {
	Start     string   `json:"start"`
	Order     string   `json:"order"`
	Direction string   `json:"direction"`
	NodeIDs   []string `json:"node_ids"`
}

// PathsResponse lists paths.
type PathsResponse struct {
	Paths []types.Path `json:"paths"`
	Total int          `json:"total"`
}

// NodesResponse lists nodes.
type NodesResponse struct {
	Nodes []*types.Node `json:"nodes"`
	Total int           `json:"total"`
}

// EdgesResponse lists edges.
type EdgesResponse struct {
	Edges []*types.Edge `json:"edges"`
	Total int           `json:"total"`
}

// SimilarResponse lists similarity hits.
type SimilarResponse struct {
	Results []types.SimilarNode `json:"results"`
	Total   int                 `json:"total"`
}

// DeleteNodeResponse reports the edges removed with a node.
type DeleteNodeResponse struct {
	NodeID       string   `json:"node_id"`
	RemovedEdges []string `json:"removed_edges"`
}
