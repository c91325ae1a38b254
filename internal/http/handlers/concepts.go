package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
	"github.com/yungbote/conceptdb/internal/http/response"
	"github.com/yungbote/conceptdb/internal/platform/logger"
	"github.com/yungbote/conceptdb/internal/services"
)

type ConceptHandler struct {
	log      *logger.Logger
	concepts services.ConceptService
}

func NewConceptHandler(log *logger.Logger, concepts services.ConceptService) *ConceptHandler {
	return &ConceptHandler{log: log.With("handler", "ConceptHandler"), concepts: concepts}
}

// POST /api/concepts
func (h *ConceptHandler) ImportConcepts(c *gin.Context) {
	var req domain.ImportConcepts
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.concepts.ImportConcepts(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		response.RespondEngineError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"result": res})
}

type insertMappingsRequest struct {
	Mappings []domain.IDMapping `json:"mappings"`
}

// POST /api/mappings
func (h *ConceptHandler) InsertMappings(c *gin.Context) {
	var req insertMappingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	created, err := h.concepts.InsertMappings(c.Request.Context(), req.Mappings)
	if err != nil {
		_ = c.Error(err)
		response.RespondEngineError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"created": created})
}

type addVariantsRequest struct {
	Variants []domain.ConceptVariants `json:"variants"`
}

// POST /api/variants
func (h *ConceptHandler) AddVariants(c *gin.Context) {
	var req addVariantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	updated, err := h.concepts.AddVariants(c.Request.Context(), req.Variants)
	if err != nil {
		_ = c.Error(err)
		response.RespondEngineError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"updated": updated})
}

// GET /api/concepts/lookup?sourceId=&source=&originalId=&originalSource=&uniqueSourceId=
func (h *ConceptHandler) Lookup(c *gin.Context) {
	coords := domain.Coordinates{
		SourceID:       c.Query("sourceId"),
		Source:         c.Query("source"),
		OriginalID:     c.Query("originalId"),
		OriginalSource: c.Query("originalSource"),
	}
	if raw := strings.TrimSpace(c.Query("uniqueSourceId")); raw != "" {
		unique, err := strconv.ParseBool(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_unique_source_id", err)
			return
		}
		coords.UniqueSourceID = unique
	}
	view, err := h.concepts.Lookup(c.Request.Context(), coords)
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}
	if view == nil {
		response.RespondEngineError(c, domain.NotFoundError("no concept matches "+coords.String()))
		return
	}
	response.RespondOK(c, gin.H{"concept": view})
}
