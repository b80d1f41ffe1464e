package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/mindgraph"
	"github.com/soundprediction/mindgraph/pkg/server/dto"
	"github.com/soundprediction/mindgraph/pkg/types"
)

// errorStatus maps an engine error to an HTTP status and a stable error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, types.ErrGraphNotFound), errors.Is(err, types.ErrUnknownGraph):
		return http.StatusNotFound, "graph_not_found"
	case errors.Is(err, types.ErrNodeNotFound):
		return http.StatusNotFound, "node_not_found"
	case errors.Is(err, types.ErrNoPathFound):
		return http.StatusNotFound, "no_path_found"
	case errors.Is(err, mindgraph.ErrNoLanguageModel):
		return http.StatusServiceUnavailable, "no_language_model"
	case errors.Is(err, types.ErrCollaboratorTimeout):
		return http.StatusGatewayTimeout, "collaborator_timeout"
	}

	switch types.Classify(err) {
	case types.KindValidation:
		return http.StatusBadRequest, "invalid_request"
	case types.KindCollaborator:
		return http.StatusBadGateway, "collaborator_failed"
	case types.KindConstruction:
		return http.StatusUnprocessableEntity, "insufficient_concepts"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeError writes err as an ErrorResponse. Internal errors are logged and
// their detail is withheld from the client.
func writeError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	retry := types.Classify(err).Retryable() && !errors.Is(err, mindgraph.ErrNoLanguageModel)

	message := err.Error()
	if status == http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		message = "internal error"
	}
	c.AbortWithStatusJSON(status, dto.ErrorResponse{
		Error:   code,
		Message: message,
		Code:    status,
		Retry:   retry,
	})
}

// badRequest rejects a malformed request body or parameter.
func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   "invalid_request",
		Message: message,
		Code:    http.StatusBadRequest,
	})
}

// intQuery reads an optional integer query parameter.
func intQuery(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, name+" must be an integer")
		return 0, false
	}
	return v, true
}
