package user

import (
	"docflow/internal/domain"
	"docflow/internal/errors"
	"docflow/internal/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
)

// TokenIssuer signs session tokens for logged in users
type TokenIssuer interface {
	GenerateJWT(email, organization string) (string, error)
}

// Handler handles HTTP requests for users
type Handler struct {
	service Service
	tokens  TokenIssuer
}

// NewHandler creates a new user handler
func NewHandler(service Service, tokens TokenIssuer) *Handler {
	return &Handler{service: service, tokens: tokens}
}

// Login handles POST /auth. Unknown emails are registered on the fly.
func (h *Handler) Login(c *gin.Context) {
	var form domain.LoginRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.BadRequest("Invalid email address", err))
		return
	}

	user, err := h.service.Login(c.Request.Context(), form)
	if err != nil {
		c.Error(err)
		return
	}

	token, err := h.tokens.GenerateJWT(user.Email, user.Organization)
	if err != nil {
		c.Error(errors.Internal(err))
		return
	}

	c.JSON(http.StatusOK, domain.SessionView{
		Email:        user.Email,
		Username:     user.Username,
		Organization: user.Organization,
		Token:        token,
	})
}

// ListByOrganization handles GET /users?organization=
func (h *Handler) ListByOrganization(c *gin.Context) {
	organization := c.Query("organization")
	if organization == "" {
		c.Error(errors.BadRequest("Organization is required", nil))
		return
	}
	if err := middleware.CheckOrganization(c, organization); err != nil {
		c.Error(err)
		return
	}

	users, err := h.service.ListByOrganization(c.Request.Context(), organization)
	if err != nil {
		c.Error(err)
		return
	}

	views := make([]domain.UserView, 0, len(users))
	for _, u := range users {
		views = append(views, domain.NewUserView(u))
	}
	c.JSON(http.StatusOK, views)
}
