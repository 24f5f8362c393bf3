package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/farmtrack/internal/server/models"
	"github.com/dmitrijs2005/farmtrack/internal/server/services"
	"github.com/gin-gonic/gin"
)

// AuthAPI is the service surface the handlers need.
type AuthAPI interface {
	Authenticator
	SignUp(ctx context.Context, in services.SignUpInput) (*services.ProfileSummary, error)
	SignIn(ctx context.Context, email, password string) (*services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context) (bool, error)
	RevokeToken(ctx context.Context, tokenID string) (bool, error)
	DeactivateProfile(ctx context.Context, profileID string) (bool, error)
	Me(ctx context.Context) (*services.ProfileSummary, error)
}

type signUpRequest struct {
	Login    string `json:"login" binding:"required,max=64"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=128"`
	Role     string `json:"role" binding:"omitempty,oneof=ADMIN USER"`
}

type signInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func (s *Server) signUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindError(c, err)
		return
	}

	profile, err := s.svc.SignUp(c.Request.Context(), services.SignUpInput{
		Login:    req.Login,
		Email:    req.Email,
		Password: req.Password,
		Role:     models.Role(req.Role),
	})
	s.metrics.observeAuth("sign_up", err)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, profile)
}

func (s *Server) signIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindError(c, err)
		return
	}

	pair, err := s.svc.SignIn(c.Request.Context(), req.Email, req.Password)
	s.metrics.observeAuth("sign_in", err)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, pair)
}

func (s *Server) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindError(c, err)
		return
	}

	pair, err := s.svc.Refresh(c.Request.Context(), req.RefreshToken)
	s.metrics.observeAuth("refresh", err)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, pair)
}

func (s *Server) logout(c *gin.Context) {
	ok, err := s.svc.Logout(c.Request.Context())
	s.metrics.observeAuth("logout", err)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok)
}

func (s *Server) revokeToken(c *gin.Context) {
	ok, err := s.svc.RevokeToken(c.Request.Context(), c.Param("id"))
	s.metrics.observeAuth("revoke", err)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok)
}

func (s *Server) deactivateProfile(c *gin.Context) {
	ok, err := s.svc.DeactivateProfile(c.Request.Context(), c.Param("id"))
	s.metrics.observeAuth("deactivate", err)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok)
}

func (s *Server) me(c *gin.Context) {
	profile, err := s.svc.Me(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) notFound(c *gin.Context) {
	abortWithCode(c, http.StatusNotFound, codeNotFound)
}
