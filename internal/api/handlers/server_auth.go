package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"dirsync.io/dirsync/internal/api/middleware"
	apperrors "dirsync.io/dirsync/internal/pkg/errors"
	"dirsync.io/dirsync/internal/pkg/logger"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /auth/login. Bad email and bad password produce the
// same response so the endpoint does not reveal which accounts exist.
func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, "email and password are required"))
		return
	}

	operator, err := s.operators.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		logger.Warn("login failed: unknown operator")
		_ = c.Error(apperrors.Unauthorized(apperrors.CodeAuthFailed, "invalid email or password"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(operator.PasswordHash), []byte(req.Password)); err != nil {
		logger.Warn("login failed: invalid credentials", zap.String("operator_id", operator.ID.String()))
		_ = c.Error(apperrors.Unauthorized(apperrors.CodeAuthFailed, "invalid email or password"))
		return
	}

	token, expiresAt, err := middleware.GenerateToken(s.jwtCfg, operator.ID.String(), operator.Email)
	if err != nil {
		logger.Error("failed to generate session token", zap.Error(err))
		_ = c.Error(apperrors.Internal(apperrors.CodeAuthFailed, "failed to create session"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"operator": gin.H{
			"id":         operator.ID,
			"email":      operator.Email,
			"name":       operator.Name,
			"created_at": operator.CreatedAt,
		},
	})
}
