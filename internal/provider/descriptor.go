package provider

import (
	"encoding/json"
	"fmt"
	"net/url"

	"dirsync.io/dirsync/internal/config"
	"dirsync.io/dirsync/internal/oauth"
)

// PaginationStyle selects how a provider's list endpoints page.
type PaginationStyle int

const (
	// PageToken: maxResults + pageToken query parameters, nextPageToken in
	// the body (Google Admin SDK).
	PageToken PaginationStyle = iota
	// ODataNextLink: $top on the first request, absolute @odata.nextLink
	// URLs afterwards (Microsoft Graph).
	ODataNextLink
)

// Descriptor captures everything provider-specific: OAuth endpoints and
// requirements, directory list endpoints, page sizes, and normalization.
type Descriptor struct {
	Type        string
	DisplayName string

	AuthorizeURL string
	TokenURL     string
	Scopes       []string
	// ScopeInTokenRequest: Microsoft expects the scope repeated in the
	// token POST; Google does not.
	ScopeInTokenRequest bool
	// ExtraAuthParams are appended to the authorize URL verbatim.
	ExtraAuthParams map[string]string

	// RequiresPKCE marks flows whose callback must find a verifier in the
	// state envelope before attempting the exchange.
	RequiresPKCE bool
	// UsesClientSecret marks confidential-client flows.
	UsesClientSecret bool

	UsersURL      string
	GroupsURL     string
	UserPageSize  int
	GroupPageSize int
	Pagination    PaginationStyle
	// UsersField/GroupsField name the JSON array field in list responses.
	UsersField  string
	GroupsField string
	// ListParams are fixed query parameters on every list request
	// (e.g. Google's customer=my_customer).
	ListParams map[string]string

	NormalizeUser  func(raw json.RawMessage) (Employee, error)
	NormalizeGroup func(raw json.RawMessage) (Group, error)

	Credentials config.OAuthClientConfig
}

// OAuthEnabled reports whether this provider connects via the
// authorization-code flow (CSV does not).
func (d *Descriptor) OAuthEnabled() bool {
	return d.AuthorizeURL != ""
}

// ScopeString renders the scope list for URL and form parameters.
func (d *Descriptor) ScopeString() string {
	out := ""
	for i, s := range d.Scopes {
		if i > 0 {
			out += " "
		}
		out += s
	}
	return out
}

// BuildAuthorizeURL constructs the provider's authorization redirect URL.
// The state parameter is the JSON envelope carrying the integration name,
// type, and PKCE verifier across the redirect round-trip.
func (d *Descriptor) BuildAuthorizeURL(integrationName string, pair oauth.PKCEPair) (string, error) {
	if !d.OAuthEnabled() {
		return "", fmt.Errorf("provider %s does not use OAuth", d.Type)
	}
	if !d.Credentials.Configured() {
		return "", fmt.Errorf("provider %s is not configured: missing client_id or redirect_uri", d.Type)
	}

	state, err := oauth.State{
		IntegrationType: d.Type,
		IntegrationName: integrationName,
		CodeVerifier:    pair.Verifier,
	}.Encode()
	if err != nil {
		return "", fmt.Errorf("encode state: %w", err)
	}

	u, err := url.Parse(d.AuthorizeURL)
	if err != nil {
		return "", fmt.Errorf("parse authorize endpoint: %w", err)
	}

	q := u.Query()
	q.Set("client_id", d.Credentials.ClientID)
	q.Set("redirect_uri", d.Credentials.RedirectURI)
	q.Set("response_type", "code")
	q.Set("scope", d.ScopeString())
	q.Set("code_challenge", pair.Challenge)
	q.Set("code_challenge_method", "S256")
	q.Set("state", state)
	for k, v := range d.ExtraAuthParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Registry holds the configured provider descriptors.
type Registry struct {
	byType map[string]*Descriptor
}

// NewRegistry builds descriptors from configuration, applying catalog
// endpoint overrides when a catalog file is configured.
func NewRegistry(cfg config.ProvidersConfig) (*Registry, error) {
	descriptors := []*Descriptor{
		newGoogleDescriptor(cfg.Google),
		newMicrosoftDescriptor(cfg.Microsoft),
		newCSVDescriptor(),
	}

	if cfg.CatalogPath != "" {
		catalog, err := loadCatalog(cfg.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("load provider catalog: %w", err)
		}
		for _, d := range descriptors {
			catalog.apply(d)
		}
	}

	r := &Registry{byType: make(map[string]*Descriptor, len(descriptors))}
	for _, d := range descriptors {
		r.byType[d.Type] = d
	}
	return r, nil
}

// Lookup returns the descriptor for an integration type.
func (r *Registry) Lookup(integrationType string) (*Descriptor, bool) {
	d, ok := r.byType[integrationType]
	return d, ok
}

// All returns every registered descriptor.
func (r *Registry) All() []*Descriptor {
	out := make([]*Descriptor, 0, len(r.byType))
	for _, d := range r.byType {
		out = append(out, d)
	}
	return out
}
