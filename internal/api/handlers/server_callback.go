package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dirsync.io/dirsync/internal/oauth"
	"dirsync.io/dirsync/internal/pkg/logger"
	"dirsync.io/dirsync/internal/repository"
)

// Callback error codes surfaced to the dashboard banner. The browser only
// ever sees a redirect: these travel in the landing page's query string.
const (
	cbErrMissingCode       = "missing_authorization_code"
	cbErrMissingVerifier   = "missing_code_verifier"
	cbErrExchangeFailed    = "token_exchange_failed"
	cbErrIntegrationFailed = "integration_creation_failed"
	cbErrCallback          = "callback_error"
)

// landingURL builds the dashboard redirect the callback resolves to. The
// integrations page under the root renders the success and error banners,
// so redirects target that subpath rather than the bare root.
func (s *Server) landingURL(params url.Values) string {
	return s.rootURL + "/integrations?" + params.Encode()
}

func (s *Server) redirectError(c *gin.Context, code string) {
	c.Redirect(http.StatusFound, s.landingURL(url.Values{"error": {code}}))
}

// Callback handles GET /integrations/{provider}/callback, the provider's
// authorization-code redirect. Every outcome is a 302 to the dashboard:
// errors ride an `error` query parameter, success carries the new
// integration's name. The handler runs strictly sequentially: exchange,
// persist, sync users, sync groups.
func (s *Server) Callback(c *gin.Context) {
	// A panic anywhere below must still land the user back on the
	// dashboard rather than a blank 500.
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic in oauth callback", zap.Any("panic", r), zap.Stack("stack"))
			if !c.Writer.Written() {
				s.redirectError(c, cbErrCallback)
			}
		}
	}()

	// The route parameter is named :id because gin allows only one
	// wildcard name per path segment; here it carries the provider type.
	providerType := c.Param("id")
	desc, ok := s.registry.Lookup(providerType)
	if !ok || !desc.OAuthEnabled() {
		logger.Warn("callback for unknown or non-oauth provider", zap.String("provider", providerType))
		s.redirectError(c, cbErrCallback)
		return
	}

	// The provider reporting an error (e.g. access_denied) ends the flow;
	// the code is surfaced verbatim for the banner.
	if errParam := c.Query("error"); errParam != "" {
		logger.Warn("provider returned oauth error",
			zap.String("provider", desc.Type),
			zap.String("error", errParam),
		)
		s.redirectError(c, errParam)
		return
	}

	code := c.Query("code")
	if code == "" {
		s.redirectError(c, cbErrMissingCode)
		return
	}

	// State parse failures are non-fatal: an empty state simply fails the
	// verifier requirement below.
	state, err := oauth.DecodeState(c.Query("state"))
	if err != nil {
		logger.Warn("unparseable oauth state", zap.String("provider", desc.Type), zap.Error(err))
	}

	if desc.RequiresPKCE && state.CodeVerifier == "" {
		s.redirectError(c, cbErrMissingVerifier)
		return
	}

	req := oauth.ExchangeRequest{
		TokenURL:     desc.TokenURL,
		ClientID:     desc.Credentials.ClientID,
		Code:         code,
		RedirectURI:  desc.Credentials.RedirectURI,
		CodeVerifier: state.CodeVerifier,
	}
	if desc.UsesClientSecret {
		req.ClientSecret = desc.Credentials.ClientSecret
	}
	if desc.ScopeInTokenRequest {
		req.Scope = desc.ScopeString()
	}

	token, err := oauth.Exchange(c.Request.Context(), s.httpClient, req)
	if err != nil {
		var exchErr *oauth.ExchangeError
		if errors.As(err, &exchErr) && exchErr.Code != "" {
			logger.Warn("token exchange rejected",
				zap.String("provider", desc.Type),
				zap.String("oauth_error", exchErr.Code),
				zap.String("description", exchErr.Description),
			)
		} else {
			logger.Warn("token exchange failed", zap.String("provider", desc.Type), zap.Error(err))
		}
		s.redirectError(c, cbErrExchangeFailed)
		return
	}

	name := state.IntegrationName
	if name == "" {
		name = desc.DisplayName
	}

	params := repository.CreateIntegrationParams{
		Name:   name,
		Type:   desc.Type,
		Status: repository.IntegrationStatusActive,
		Config: &repository.IntegrationConfig{
			Scopes: desc.Scopes,
			Tenant: desc.Credentials.Tenant,
		},
		AccessToken: &token.AccessToken,
	}
	if token.RefreshToken != "" {
		params.RefreshToken = &token.RefreshToken
	}
	if token.TokenType != "" {
		params.TokenType = &token.TokenType
	}
	if !token.ExpiresAt.IsZero() {
		expiresAt := token.ExpiresAt
		params.TokenExpiresAt = &expiresAt
	}

	integration, err := s.integrations.Create(c.Request.Context(), params)
	if err != nil {
		logger.Error("failed to persist integration",
			zap.String("provider", desc.Type),
			zap.Error(err),
		)
		s.redirectError(c, cbErrIntegrationFailed)
		return
	}

	// The connection is committed at this point. The initial sync is
	// best-effort enrichment: its failures are recorded in sync_logs and
	// the response is still a success redirect.
	outcome := s.pipeline.Run(c.Request.Context(), integration.ID, desc, token.AccessToken)
	if outcome.Failed() {
		logger.Warn("initial sync finished with errors",
			zap.String("integration_id", integration.ID.String()),
			zap.String("users_error", outcome.Users.Error),
			zap.String("groups_error", outcome.Groups.Error),
		)
	}

	c.Redirect(http.StatusFound, s.landingURL(url.Values{
		"success":     {"true"},
		"integration": {integration.Name},
	}))
}
