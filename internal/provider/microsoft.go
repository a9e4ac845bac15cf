package provider

import (
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2/endpoints"

	"dirsync.io/dirsync/internal/config"
)

// Microsoft Graph directory endpoints. Graph pages with $top and absolute
// @odata.nextLink URLs; 999 is the documented maximum page size for users.
const (
	graphUsersURL     = "https://graph.microsoft.com/v1.0/users"
	graphGroupsURL    = "https://graph.microsoft.com/v1.0/groups"
	graphUserPageSize = 999
)

// graphUser is the subset of the Graph user resource we consume.
type graphUser struct {
	ID                string   `json:"id"`
	GivenName         string   `json:"givenName"`
	Surname           string   `json:"surname"`
	Mail              string   `json:"mail"`
	UserPrincipalName string   `json:"userPrincipalName"`
	JobTitle          string   `json:"jobTitle"`
	Department        string   `json:"department"`
	BusinessPhones    []string `json:"businessPhones"`
	MobilePhone       string   `json:"mobilePhone"`
	AccountEnabled    *bool    `json:"accountEnabled"`
}

type graphGroup struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
}

func normalizeGraphUser(raw json.RawMessage) (Employee, error) {
	var u graphUser
	if err := json.Unmarshal(raw, &u); err != nil {
		return Employee{}, fmt.Errorf("decode graph user: %w", err)
	}

	// Prefer the primary mail attribute; fall back to the principal name,
	// which is email-shaped for almost every tenant.
	email := u.Mail
	if email == "" {
		email = u.UserPrincipalName
	}

	emp := Employee{
		ExternalID: u.ID,
		FirstName:  u.GivenName,
		LastName:   u.Surname,
		Email:      email,
		EmployeeID: u.ID,
		JobTitle:   optional(u.JobTitle),
		Department: optional(u.Department),
		Status:     StatusActive,
	}
	if len(u.BusinessPhones) > 0 {
		emp.Phone = optional(u.BusinessPhones[0])
	} else {
		emp.Phone = optional(u.MobilePhone)
	}
	// Manager requires a per-user $expand; not fetched by this pipeline.
	if u.AccountEnabled != nil && !*u.AccountEnabled {
		emp.Status = StatusInactive
	}
	return emp, nil
}

func normalizeGraphGroup(raw json.RawMessage) (Group, error) {
	var g graphGroup
	if err := json.Unmarshal(raw, &g); err != nil {
		return Group{}, fmt.Errorf("decode graph group: %w", err)
	}
	name := g.DisplayName
	if name == "" {
		name = "Unnamed group"
	}
	return Group{
		ExternalID:  g.ID,
		Name:        name,
		Description: optional(g.Description),
	}, nil
}

// newMicrosoftDescriptor builds the Entra ID descriptor. Entra mandates
// PKCE for cross-origin authorization-code redemption, and this deployment
// registers a confidential client, so the exchange sends both the verifier
// and the client secret.
func newMicrosoftDescriptor(creds config.OAuthClientConfig) *Descriptor {
	tenant := creds.Tenant
	if tenant == "" {
		tenant = "organizations"
	}
	endpoint := endpoints.AzureAD(tenant)

	return &Descriptor{
		Type:                TypeMicrosoftEntra,
		DisplayName:         "Microsoft Entra ID",
		AuthorizeURL:        endpoint.AuthURL,
		TokenURL:            endpoint.TokenURL,
		Scopes:              []string{"User.Read.All", "Group.Read.All"},
		ScopeInTokenRequest: true,
		RequiresPKCE:        true,
		UsesClientSecret:    true,
		UsersURL:            graphUsersURL,
		GroupsURL:           graphGroupsURL,
		UserPageSize:        graphUserPageSize,
		GroupPageSize:       graphUserPageSize,
		Pagination:          ODataNextLink,
		UsersField:          "value",
		GroupsField:         "value",
		NormalizeUser:       normalizeGraphUser,
		NormalizeGroup:      normalizeGraphGroup,
		Credentials:         creds,
	}
}
