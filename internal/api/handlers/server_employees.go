package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "dirsync.io/dirsync/internal/pkg/errors"
	"dirsync.io/dirsync/internal/provider"
	"dirsync.io/dirsync/internal/repository"
)

// integrationFilter parses the optional ?integration_id query parameter.
func integrationFilter(c *gin.Context) (*uuid.UUID, error) {
	raw := c.Query("integration_id")
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidRequest, "invalid integration_id filter")
	}
	return &id, nil
}

// ListEmployees handles GET /employees.
func (s *Server) ListEmployees(c *gin.Context) {
	filter, err := integrationFilter(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	employees, err := s.employees.List(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"employees": employees})
}

type createEmployeeRequest struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	EmployeeID   string `json:"employee_id"`
	JobTitle     string `json:"job_title"`
	Department   string `json:"department"`
	ManagerEmail string `json:"manager_email"`
	Phone        string `json:"phone"`
	Status       string `json:"status"`
}

// CreateEmployee handles POST /employees for manual entries. Validation
// runs before anything touches the store.
func (s *Server) CreateEmployee(c *gin.Context) {
	var req createEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, "invalid request body"))
		return
	}

	var fieldErrors []apperrors.FieldError
	if strings.TrimSpace(req.FirstName) == "" {
		fieldErrors = append(fieldErrors, apperrors.FieldError{Field: "first_name", Code: "REQUIRED", Message: "first_name is required"})
	}
	if strings.TrimSpace(req.LastName) == "" {
		fieldErrors = append(fieldErrors, apperrors.FieldError{Field: "last_name", Code: "REQUIRED", Message: "last_name is required"})
	}
	if strings.TrimSpace(req.Email) == "" {
		fieldErrors = append(fieldErrors, apperrors.FieldError{Field: "email", Code: "REQUIRED", Message: "email is required"})
	}
	if req.Status != "" && !provider.ValidEmployeeStatus(req.Status) {
		fieldErrors = append(fieldErrors, apperrors.FieldError{Field: "status", Code: "INVALID", Message: "status must be active, inactive, or terminated"})
	}
	if len(fieldErrors) > 0 {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, "request validation failed").WithFieldErrors(fieldErrors))
		return
	}

	employeeID := strings.TrimSpace(req.EmployeeID)
	if employeeID == "" {
		employeeID = strings.TrimSpace(req.Email)
	}

	employee, err := s.employees.Create(c.Request.Context(), repository.CreateEmployeeParams{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        strings.TrimSpace(req.Email),
		EmployeeID:   employeeID,
		JobTitle:     optionalField(req.JobTitle),
		Department:   optionalField(req.Department),
		ManagerEmail: optionalField(req.ManagerEmail),
		Phone:        optionalField(req.Phone),
		Status:       req.Status,
	})
	if err != nil {
		_ = c.Error(apperrors.Wrap(err, apperrors.CodeEmployeeCreateFailed, "failed to create employee", http.StatusInternalServerError))
		return
	}

	c.JSON(http.StatusCreated, employee)
}

type createGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateGroup handles POST /groups for manual entries.
func (s *Server) CreateGroup(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, "invalid request body"))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		_ = c.Error(apperrors.ErrValidation("name", "name is required"))
		return
	}

	group, err := s.groups.Create(c.Request.Context(), strings.TrimSpace(req.Name), optionalField(req.Description))
	if err != nil {
		_ = c.Error(apperrors.Wrap(err, apperrors.CodeGroupCreateFailed, "failed to create group", http.StatusInternalServerError))
		return
	}
	c.JSON(http.StatusCreated, group)
}

// ListGroups handles GET /groups.
func (s *Server) ListGroups(c *gin.Context) {
	filter, err := integrationFilter(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	groups, err := s.groups.List(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

func optionalField(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
