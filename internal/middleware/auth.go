package middleware

import (
	"docflow/internal/auth"
	"docflow/internal/errors"
	"docflow/internal/utils"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ContextEmail        = "email"
	ContextOrganization = "organization"
)

type TokenVerifier interface {
	VerifyJWT(token string) (*auth.Claims, error)
}

type Auth struct {
	Tokens TokenVerifier
}

func (m *Auth) AuthMiddleWare() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		var token string
		tokenQuery := ctx.Query("token")

		if authHeader != "" {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		} else if tokenQuery != "" {
			// browsers can't set headers on websocket upgrades
			token = tokenQuery
		} else {
			ctx.Error(errors.Unauthorized("Authorization is not found!", nil))
			ctx.Abort()
			return
		}

		claims, err := m.Tokens.VerifyJWT(token)
		if err != nil {
			ctx.Error(errors.Unauthorized("Invalid token!", err))
			ctx.Abort()
			return
		}

		ctx.Set(ContextEmail, claims.Email)
		ctx.Set(ContextOrganization, claims.Organization)
		ctx.Next()
	}
}

// Organization returns the organization of the authenticated caller
func Organization(c *gin.Context) (string, bool) {
	org := c.GetString(ContextOrganization)
	return org, org != ""
}

// CheckOrganization rejects requests acting on an organization other than
// the caller's. Routes mounted without the auth middleware are not checked.
func CheckOrganization(c *gin.Context, organization string) error {
	own, ok := Organization(c)
	if !ok {
		return nil
	}
	if own != organization {
		return errors.Forbidden("User does not belong to this organization", nil)
	}
	return nil
}

// CheckEmail rejects requests acting as a user other than the token's
// holder. Routes mounted without the auth middleware are not checked.
func CheckEmail(c *gin.Context, email string) error {
	own := c.GetString(ContextEmail)
	if own == "" {
		return nil
	}
	if utils.NormalizeEmail(own) != utils.NormalizeEmail(email) {
		return errors.Forbidden("Email does not match the signed in user", nil)
	}
	return nil
}

// CheckCaller runs CheckOrganization then CheckEmail
func CheckCaller(c *gin.Context, organization, email string) error {
	if err := CheckOrganization(c, organization); err != nil {
		return err
	}
	return CheckEmail(c, email)
}
