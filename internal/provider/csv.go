package provider

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// newCSVDescriptor registers the manual-upload variant. No OAuth, no
// directory endpoints: rows arrive in the upload body and go through the
// same normalize-and-merge path as the OAuth providers.
func newCSVDescriptor() *Descriptor {
	return &Descriptor{
		Type:        TypeCSV,
		DisplayName: "CSV Upload",
	}
}

// csvColumns maps recognized header names to employee fields. Headers are
// matched case-insensitively with spaces and underscores ignored.
var csvColumns = map[string]string{
	"externalid":   "external_id",
	"firstname":    "first_name",
	"lastname":     "last_name",
	"email":        "email",
	"employeeid":   "employee_id",
	"jobtitle":     "job_title",
	"department":   "department",
	"manageremail": "manager_email",
	"phone":        "phone",
	"status":       "status",
}

func canonicalHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, " ", "")
	h = strings.ReplaceAll(h, "_", "")
	return h
}

// ParseEmployeeCSV reads an uploaded employee CSV into normalized employee
// records. The first row is the header; first_name, last_name, and email
// are required per row, and status (when present) must be a known employee
// status. Invalid rows fail the whole parse so a partial file is never
// silently imported.
func ParseEmployeeCSV(r io.Reader) ([]Employee, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	fieldIdx := make(map[string]int, len(header))
	for i, h := range header {
		if field, ok := csvColumns[canonicalHeader(h)]; ok {
			fieldIdx[field] = i
		}
	}
	for _, required := range []string{"first_name", "last_name", "email"} {
		if _, ok := fieldIdx[required]; !ok {
			return nil, fmt.Errorf("csv header missing required column %q", required)
		}
	}

	get := func(record []string, field string) string {
		idx, ok := fieldIdx[field]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var employees []Employee
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		emp := Employee{
			ExternalID:   get(record, "external_id"),
			FirstName:    get(record, "first_name"),
			LastName:     get(record, "last_name"),
			Email:        get(record, "email"),
			EmployeeID:   get(record, "employee_id"),
			JobTitle:     optional(get(record, "job_title")),
			Department:   optional(get(record, "department")),
			ManagerEmail: optional(get(record, "manager_email")),
			Phone:        optional(get(record, "phone")),
			Status:       strings.ToLower(get(record, "status")),
		}
		if emp.FirstName == "" || emp.LastName == "" || emp.Email == "" {
			return nil, fmt.Errorf("csv line %d: first_name, last_name, and email are required", line)
		}
		if emp.Status == "" {
			emp.Status = StatusActive
		} else if !ValidEmployeeStatus(emp.Status) {
			return nil, fmt.Errorf("csv line %d: status must be active, inactive, or terminated", line)
		}
		if emp.ExternalID == "" {
			// The merge procedure keys on external_id; fall back to the
			// email, which is stable for re-imports of the same file.
			emp.ExternalID = emp.Email
		}
		if emp.EmployeeID == "" {
			emp.EmployeeID = emp.ExternalID
		}
		employees = append(employees, emp)
	}

	return employees, nil
}
