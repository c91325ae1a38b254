package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
	"github.com/yungbote/conceptdb/internal/http/response"
	"github.com/yungbote/conceptdb/internal/platform/logger"
	"github.com/yungbote/conceptdb/internal/services"
)

type AggregateHandler struct {
	log        *logger.Logger
	aggregates services.AggregateService
}

func NewAggregateHandler(log *logger.Logger, aggregates services.AggregateService) *AggregateHandler {
	return &AggregateHandler{log: log.With("handler", "AggregateHandler"), aggregates: aggregates}
}

// POST /api/aggregates/mapping
func (h *AggregateHandler) BuildByMapping(c *gin.Context) {
	var req domain.MappingBuildOptions
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.aggregates.BuildByMapping(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		response.RespondEngineError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"result": res})
}

type buildByNameRequest struct {
	Label string `json:"label"`
}

// POST /api/aggregates/names
func (h *AggregateHandler) BuildByName(c *gin.Context) {
	var req buildByNameRequest
	// An empty body selects the default concept label.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.aggregates.BuildByName(c.Request.Context(), req.Label)
	if err != nil {
		_ = c.Error(err)
		response.RespondEngineError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"result": res})
}

// DELETE /api/aggregates/:label
func (h *AggregateHandler) Delete(c *gin.Context) {
	deleted, err := h.aggregates.Delete(c.Request.Context(), c.Param("label"))
	if err != nil {
		_ = c.Error(err)
		response.RespondEngineError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": deleted})
}

// POST /api/aggregates/assemble
func (h *AggregateHandler) Assemble(c *gin.Context) {
	assembled, err := h.aggregates.Assemble(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		response.RespondEngineError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"assembled": assembled})
}
