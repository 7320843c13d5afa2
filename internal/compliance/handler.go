package compliance

import (
	"docflow/internal/errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	analyzer Analyzer
}

func NewHandler(analyzer Analyzer) *Handler {
	return &Handler{analyzer: analyzer}
}

func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/compliance/check", h.Check)
}

// Check handles POST /compliance/check with a multipart file and instructions
func (h *Handler) Check(c *gin.Context) {
	query := strings.TrimSpace(c.PostForm("query"))
	if query == "" {
		c.Error(errors.BadRequest("Instructions are required", nil))
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.Error(errors.BadRequest("A document file is required", err))
		return
	}

	topK := DefaultTopK
	if raw := c.PostForm("top_k"); raw != "" {
		topK, err = strconv.Atoi(raw)
		if err != nil || topK <= 0 {
			c.Error(errors.BadRequest("top_k must be a positive integer", err))
			return
		}
	}

	file, err := header.Open()
	if err != nil {
		c.Error(errors.BadRequest("Unreadable document file", err))
		return
	}
	defer file.Close()

	report, err := h.analyzer.Analyze(c.Request.Context(), header.Filename, file, query, topK)
	if err != nil {
		c.Error(errors.Unavailable("Failed to generate compliance report", err))
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", report)
}
