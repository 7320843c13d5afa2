package document

import (
	"docflow/internal/domain"
	"docflow/internal/errors"
	"docflow/internal/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the document routes on group
func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/documents", h.List)
	group.GET("/documents/:id", h.Show)
	group.POST("/documents", h.Create)
	group.PUT("/documents", h.Update)
	group.DELETE("/documents/:id", h.Delete)
	group.POST("/documents/:id/assign", h.Assign)
	group.POST("/documents/:id/approve", h.Approve)
	group.POST("/documents/:id/reject", h.Reject)
	group.POST("/documents/:id/comments", h.AddComment)
	group.GET("/documents/:id/chat", h.ListChat)
	group.POST("/documents/:id/chat", h.AddChat)
}

func (h *Handler) List(c *gin.Context) {
	organization := c.Query("organization")
	email := c.Query("email")
	if organization == "" || email == "" {
		c.Error(errors.BadRequest("Organization and email are required", nil))
		return
	}
	if err := middleware.CheckCaller(c, organization, email); err != nil {
		c.Error(err)
		return
	}

	docs, err := h.service.ListDocuments(c.Request.Context(), organization, email)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, docs)
}

func (h *Handler) Show(c *gin.Context) {
	organization := c.Query("organization")
	if organization == "" {
		c.Error(errors.BadRequest("Organization is required", nil))
		return
	}
	if err := middleware.CheckOrganization(c, organization); err != nil {
		c.Error(err)
		return
	}

	doc, err := h.service.GetDocument(c.Request.Context(), c.Param("id"), organization)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *Handler) Create(c *gin.Context) {
	var form domain.CreateDocumentRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.BadRequest("Title, organization, and user email are required", err))
		return
	}
	if err := middleware.CheckCaller(c, form.Organization, form.Email); err != nil {
		c.Error(err)
		return
	}

	doc, err := h.service.CreateDocument(c.Request.Context(), form)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *Handler) Update(c *gin.Context) {
	var form domain.UpdateDocumentRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}
	if err := middleware.CheckOrganization(c, form.Organization); err != nil {
		c.Error(err)
		return
	}

	doc, err := h.service.UpdateDocument(c.Request.Context(), form)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *Handler) Delete(c *gin.Context) {
	var form domain.DeleteDocumentRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.BadRequest("Missing required fields", err))
		return
	}
	if err := middleware.CheckCaller(c, form.Organization, form.Email); err != nil {
		c.Error(err)
		return
	}

	if err := h.service.DeleteDocument(c.Request.Context(), c.Param("id"), form); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) Assign(c *gin.Context) {
	var form domain.AssignRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}
	if err := middleware.CheckOrganization(c, form.Organization); err != nil {
		c.Error(err)
		return
	}

	doc, err := h.service.AssignApprover(c.Request.Context(), c.Param("id"), form)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *Handler) Approve(c *gin.Context) {
	form, ok := h.bindDecision(c)
	if !ok {
		return
	}

	doc, err := h.service.Approve(c.Request.Context(), c.Param("id"), form)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *Handler) Reject(c *gin.Context) {
	form, ok := h.bindDecision(c)
	if !ok {
		return
	}

	doc, err := h.service.Reject(c.Request.Context(), c.Param("id"), form)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *Handler) bindDecision(c *gin.Context) (domain.DecisionRequest, bool) {
	var form domain.DecisionRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.BadRequest("Organization and email are required", err))
		return form, false
	}
	if err := middleware.CheckCaller(c, form.Organization, form.Email); err != nil {
		c.Error(err)
		return form, false
	}
	return form, true
}

func (h *Handler) AddComment(c *gin.Context) {
	form, ok := h.bindComment(c)
	if !ok {
		return
	}

	comment, err := h.service.AddComment(c.Request.Context(), c.Param("id"), form)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, comment)
}

func (h *Handler) ListChat(c *gin.Context) {
	organization := c.Query("organization")
	if organization == "" {
		c.Error(errors.BadRequest("Organization is required", nil))
		return
	}
	if err := middleware.CheckOrganization(c, organization); err != nil {
		c.Error(err)
		return
	}

	messages, err := h.service.ListChatMessages(c.Request.Context(), c.Param("id"), organization)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

func (h *Handler) AddChat(c *gin.Context) {
	form, ok := h.bindComment(c)
	if !ok {
		return
	}

	message, err := h.service.AddChatMessage(c.Request.Context(), c.Param("id"), form)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

func (h *Handler) bindComment(c *gin.Context) (domain.CommentRequest, bool) {
	var form domain.CommentRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return form, false
	}
	if err := middleware.CheckCaller(c, form.Organization, form.Email); err != nil {
		c.Error(err)
		return form, false
	}
	return form, true
}
