package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/conceptdb/internal/http/response"
	"github.com/yungbote/conceptdb/internal/services"
)

type ImportHandler struct {
	history services.ImportHistory
}

func NewImportHandler(history services.ImportHistory) *ImportHandler {
	return &ImportHandler{history: history}
}

// GET /api/imports?kind=&limit=
func (h *ImportHandler) ListImports(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err == nil && n <= 0 {
			err = fmt.Errorf("limit must be positive")
		}
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_limit", err)
			return
		}
		limit = n
	}
	runs, err := h.history.ListRecent(c.Request.Context(), c.Query("kind"), limit)
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"imports": runs})
}
