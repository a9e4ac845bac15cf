package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TokenResponse is the provider's reply to the authorization-code exchange.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`

	// ExpiresAt is the absolute expiry computed at exchange time
	// (now + expires_in). Not part of the wire format.
	ExpiresAt time.Time `json:"-"`
}

// ExchangeError is a failed token exchange. Code carries the provider's
// structured OAuth error when the response body was parseable.
type ExchangeError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *ExchangeError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("token exchange failed (%d): %s: %s", e.StatusCode, e.Code, e.Description)
	}
	return fmt.Sprintf("token exchange failed with status %d", e.StatusCode)
}

// ExchangeRequest carries everything the token endpoint needs.
// ClientSecret and Scope are optional; CodeVerifier is included whenever
// the provider's flow uses PKCE.
type ExchangeRequest struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Code         string
	RedirectURI  string
	Scope        string
	CodeVerifier string
}

// Exchange redeems an authorization code for tokens via a single synchronous
// form-encoded POST. Authorization codes are single-use, so there is no
// retry: a failed exchange means the user must re-initiate the flow.
func Exchange(ctx context.Context, client *http.Client, req ExchangeRequest) (*TokenResponse, error) {
	if client == nil {
		client = http.DefaultClient
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", req.ClientID)
	form.Set("code", req.Code)
	form.Set("redirect_uri", req.RedirectURI)
	if req.ClientSecret != "" {
		form.Set("client_secret", req.ClientSecret)
	}
	if req.Scope != "" {
		form.Set("scope", req.Scope)
	}
	if req.CodeVerifier != "" {
		form.Set("code_verifier", req.CodeVerifier)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		exchErr := &ExchangeError{StatusCode: resp.StatusCode}
		var body struct {
			Error       string `json:"error"`
			Description string `json:"error_description"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&body); decodeErr == nil && body.Error != "" {
			exchErr.Code = body.Error
			exchErr.Description = body.Description
		}
		return nil, exchErr
	}

	var token TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if token.TokenType == "" {
		token.TokenType = "Bearer"
	}
	if token.ExpiresIn > 0 {
		token.ExpiresAt = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	}
	return &token, nil
}
