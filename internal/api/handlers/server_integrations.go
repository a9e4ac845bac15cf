package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"dirsync.io/dirsync/internal/jobs"
	"dirsync.io/dirsync/internal/oauth"
	apperrors "dirsync.io/dirsync/internal/pkg/errors"
	"dirsync.io/dirsync/internal/pkg/logger"
)

type connectRequest struct {
	Type string `json:"type" binding:"required"`
	Name string `json:"name" binding:"required"`
}

// ConnectIntegration handles POST /integrations/connect. It returns the
// provider's authorization URL; the browser navigates there and the flow
// resumes at the callback. The PKCE verifier rides inside the state
// parameter, so no server-side session is held between the two requests.
func (s *Server) ConnectIntegration(c *gin.Context) {
	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, "type and name are required"))
		return
	}

	desc, ok := s.registry.Lookup(req.Type)
	if !ok || !desc.OAuthEnabled() {
		_ = c.Error(apperrors.ErrUnknownProvider(req.Type))
		return
	}

	pair, err := oauth.GeneratePair(oauth.DefaultVerifierLength)
	if err != nil {
		logger.Error("failed to generate pkce pair", zap.Error(err))
		_ = c.Error(apperrors.Internal(apperrors.CodeIntegrationCreateFailed, "failed to initiate authorization"))
		return
	}

	authorizeURL, err := desc.BuildAuthorizeURL(req.Name, pair)
	if err != nil {
		logger.Error("failed to build authorize url",
			zap.String("provider", desc.Type),
			zap.Error(err),
		)
		_ = c.Error(apperrors.Internal(apperrors.CodeIntegrationCreateFailed, "provider is not configured"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"authorize_url": authorizeURL})
}

// ListIntegrations handles GET /integrations.
func (s *Server) ListIntegrations(c *gin.Context) {
	integrations, err := s.integrations.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"integrations": integrations})
}

// DeleteIntegration handles DELETE /integrations/:id. Employees, groups,
// and sync logs owned by the integration cascade away with it.
func (s *Server) DeleteIntegration(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, "invalid integration id"))
		return
	}

	if err := s.integrations.Delete(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TriggerSync handles POST /integrations/:id/sync. The sync itself runs
// as a background job; the handler only validates that a run can succeed
// and enqueues it.
func (s *Server) TriggerSync(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, "invalid integration id"))
		return
	}

	integration, err := s.integrations.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	desc, ok := s.registry.Lookup(integration.Type)
	if !ok || !desc.OAuthEnabled() {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, "integration type does not support re-sync"))
		return
	}
	if integration.AccessToken == nil {
		_ = c.Error(apperrors.Conflict(apperrors.CodeTokenExpired, "integration has no stored access token; reconnect it"))
		return
	}
	// No refresh flow: an expired token means the operator must
	// re-authorize before another sync can run.
	if integration.TokenExpired(s.now()) {
		_ = c.Error(apperrors.Conflict(apperrors.CodeTokenExpired, "integration token has expired; reconnect it"))
		return
	}

	if _, err := s.jobs.Insert(c.Request.Context(), jobs.IntegrationSyncArgs{IntegrationID: integration.ID}, nil); err != nil {
		logger.Error("failed to enqueue sync job",
			zap.String("integration_id", integration.ID.String()),
			zap.Error(err),
		)
		_ = c.Error(apperrors.Internal(apperrors.CodeSyncEnqueueFailed, "failed to enqueue sync"))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"enqueued": true})
}

// ListSyncLogs handles GET /integrations/:id/sync-logs.
func (s *Server) ListSyncLogs(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, "invalid integration id"))
		return
	}

	if _, err := s.integrations.Get(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	logs, err := s.syncLogs.ListByIntegration(c.Request.Context(), id, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sync_logs": logs})
}
