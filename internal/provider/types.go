// Package provider describes the external directory providers and fetches
// their user/group listings. Each provider is a descriptor: endpoints,
// scopes, page sizes, pagination style, and normalization functions. The
// callback handler and sync pipeline are written once against the
// descriptor instead of once per provider.
package provider

// Integration type enum values, mirrored in the database schema.
const (
	TypeCSV            = "csv"
	TypeMicrosoftEntra = "microsoft_entra"
	TypeGoogle         = "google_workspace"
)

// Employee status values produced by normalization. Terminated never comes
// from the OAuth providers; it arrives via csv uploads and manual edits.
const (
	StatusActive     = "active"
	StatusInactive   = "inactive"
	StatusTerminated = "terminated"
)

// ValidEmployeeStatus reports whether s is one of the employee status
// values the employees table accepts.
func ValidEmployeeStatus(s string) bool {
	switch s {
	case StatusActive, StatusInactive, StatusTerminated:
		return true
	}
	return false
}

// Employee is a provider user normalized to the common shape the merge
// procedure consumes. Optional fields are pointers so absent values persist
// as NULL rather than empty strings.
type Employee struct {
	ExternalID   string  `json:"external_id"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	Email        string  `json:"email"`
	EmployeeID   string  `json:"employee_id"`
	JobTitle     *string `json:"job_title"`
	Department   *string `json:"department"`
	ManagerEmail *string `json:"manager_email"`
	Phone        *string `json:"phone"`
	Status       string  `json:"status"`
}

// Group is a provider group normalized for the bulk upsert keyed on
// (external_id, integration_id).
type Group struct {
	ExternalID  string  `json:"external_id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// optional returns nil for empty strings so normalization yields NULLs.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
