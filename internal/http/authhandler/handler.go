package authhandler

import (
	"errors"
	"net/http"
	"strings"

	"omnicom/internal/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc auth.IAuthService
}

func New(svc auth.IAuthService) *Handler { return &Handler{svc: svc} }

func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/api/register", h.register)
	r.POST("/api/login", h.login)
}

func (h *Handler) register(c *gin.Context) {
	var body CredentialsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	id, err := h.svc.Register(c.Request.Context(), body.Username, body.Password)
	if errors.Is(err, auth.ErrUsernameTaken) {
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, RegisterResponse{Ok: true, ID: id})
}

func (h *Handler) login(c *gin.Context) {
	var body CredentialsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	token, err := h.svc.Login(c.Request.Context(), body.Username, body.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, TokenResponse{Token: token})
}

// AuthRequired guards a route group behind a bearer token and stores
// the verified identity in the gin context.
func AuthRequired(svc auth.IAuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing token"})
			return
		}
		userID, username, err := svc.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
			return
		}
		c.Set("userID", userID)
		c.Set("username", username)
		c.Next()
	}
}
