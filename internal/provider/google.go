package provider

import (
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2/endpoints"

	"dirsync.io/dirsync/internal/config"
)

// Google Admin SDK directory endpoints and page-size maxima.
const (
	googleUsersURL      = "https://admin.googleapis.com/admin/directory/v1/users"
	googleGroupsURL     = "https://admin.googleapis.com/admin/directory/v1/groups"
	googleUserPageSize  = 500
	googleGroupPageSize = 200
)

// googleUser is the subset of the Admin SDK user resource we consume.
type googleUser struct {
	ID           string `json:"id"`
	PrimaryEmail string `json:"primaryEmail"`
	Name         struct {
		GivenName  string `json:"givenName"`
		FamilyName string `json:"familyName"`
	} `json:"name"`
	Organizations []struct {
		Title      string `json:"title"`
		Department string `json:"department"`
	} `json:"organizations"`
	Phones []struct {
		Value string `json:"value"`
		Type  string `json:"type"`
	} `json:"phones"`
	Suspended bool `json:"suspended"`
}

type googleGroup struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func normalizeGoogleUser(raw json.RawMessage) (Employee, error) {
	var u googleUser
	if err := json.Unmarshal(raw, &u); err != nil {
		return Employee{}, fmt.Errorf("decode google user: %w", err)
	}

	emp := Employee{
		ExternalID: u.ID,
		FirstName:  u.Name.GivenName,
		LastName:   u.Name.FamilyName,
		Email:      u.PrimaryEmail,
		EmployeeID: u.ID,
		Status:     StatusActive,
	}
	if len(u.Organizations) > 0 {
		emp.JobTitle = optional(u.Organizations[0].Title)
		emp.Department = optional(u.Organizations[0].Department)
	}
	if len(u.Phones) > 0 {
		emp.Phone = optional(u.Phones[0].Value)
	}
	// The Admin SDK does not expose a manager email directly; left NULL.
	if u.Suspended {
		emp.Status = StatusInactive
	}
	return emp, nil
}

func normalizeGoogleGroup(raw json.RawMessage) (Group, error) {
	var g googleGroup
	if err := json.Unmarshal(raw, &g); err != nil {
		return Group{}, fmt.Errorf("decode google group: %w", err)
	}
	name := g.Name
	if name == "" {
		name = "Unnamed group"
	}
	return Group{
		ExternalID:  g.ID,
		Name:        name,
		Description: optional(g.Description),
	}, nil
}

func newGoogleDescriptor(creds config.OAuthClientConfig) *Descriptor {
	return &Descriptor{
		Type:         TypeGoogle,
		DisplayName:  "Google Workspace",
		AuthorizeURL: endpoints.Google.AuthURL,
		TokenURL:     endpoints.Google.TokenURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/admin.directory.user.readonly",
			"https://www.googleapis.com/auth/admin.directory.group.readonly",
		},
		// Offline access so the refresh token is stored with the
		// integration even though this core never redeems it.
		ExtraAuthParams: map[string]string{
			"access_type": "offline",
			"prompt":      "consent",
		},
		RequiresPKCE:     true,
		UsesClientSecret: true,
		UsersURL:         googleUsersURL,
		GroupsURL:        googleGroupsURL,
		UserPageSize:     googleUserPageSize,
		GroupPageSize:    googleGroupPageSize,
		Pagination:       PageToken,
		UsersField:       "users",
		GroupsField:      "groups",
		ListParams:       map[string]string{"customer": "my_customer"},
		NormalizeUser:    normalizeGoogleUser,
		NormalizeGroup:   normalizeGoogleGroup,
		Credentials:      creds,
	}
}
