package workflow

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/workflows", h.List)
	group.GET("/workflows/:id", h.Show)
}

func (h *Handler) List(c *gin.Context) {
	workflows, err := h.service.ListWorkflows(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, workflows)
}

func (h *Handler) Show(c *gin.Context) {
	workflow, err := h.service.GetWorkflow(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, workflow)
}
