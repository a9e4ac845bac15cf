package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"dirsync.io/dirsync/internal/jobs"
	"dirsync.io/dirsync/internal/provider"
	"dirsync.io/dirsync/internal/repository"
)

func TestLoginSuccess(t *testing.T) {
	env := newTestEnv(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	env.operators.byEmail["ops@example.com"] = &repository.Operator{
		ID:           uuid.New(),
		Email:        "ops@example.com",
		Name:         "Ops",
		PasswordHash: string(hash),
	}

	w := env.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "ops@example.com",
		"password": "hunter2",
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.NotEmpty(t, body["token"])
	operator, ok := body["operator"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ops@example.com", operator["email"])
}

func TestLoginBadPasswordAndUnknownEmailLookAlike(t *testing.T) {
	env := newTestEnv(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	env.operators.byEmail["ops@example.com"] = &repository.Operator{
		ID:           uuid.New(),
		Email:        "ops@example.com",
		PasswordHash: string(hash),
	}

	badPassword := env.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "ops@example.com",
		"password": "wrong",
	})
	unknownEmail := env.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "wrong",
	})

	assert.Equal(t, http.StatusUnauthorized, badPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.JSONEq(t, badPassword.Body.String(), unknownEmail.Body.String())
}

func TestConnectIntegrationReturnsAuthorizeURL(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/integrations/connect", map[string]string{
		"type": provider.TypeGoogle,
		"name": "Acme Google",
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	authorizeURL, _ := body["authorize_url"].(string)
	assert.Contains(t, authorizeURL, "code_challenge_method=S256")
	assert.Contains(t, authorizeURL, "client_id=google-client")
	assert.Contains(t, authorizeURL, "state=")
}

func TestConnectIntegrationUnknownType(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/integrations/connect", map[string]string{
		"type": "ldap",
		"name": "Legacy",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConnectIntegrationCSVNotOAuth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/integrations/connect", map[string]string{
		"type": provider.TypeCSV,
		"name": "Payroll export",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTriggerSyncEnqueuesJob(t *testing.T) {
	env := newTestEnv(t)
	token := "at-1"
	expires := time.Now().Add(time.Hour)
	row := env.integrations.add(&repository.Integration{
		Name:           "Acme Google",
		Type:           provider.TypeGoogle,
		Status:         provider.StatusActive,
		AccessToken:    &token,
		TokenExpiresAt: &expires,
	})

	w := env.do(t, http.MethodPost, "/api/v1/integrations/"+row.ID.String()+"/sync", nil)

	require.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, env.jobs.inserted, 1)
	args, ok := env.jobs.inserted[0].(jobs.IntegrationSyncArgs)
	require.True(t, ok)
	assert.Equal(t, row.ID, args.IntegrationID)
}

func TestTriggerSyncNotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/integrations/"+uuid.NewString()+"/sync", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, env.jobs.inserted)
}

func TestTriggerSyncExpiredTokenConflicts(t *testing.T) {
	env := newTestEnv(t)
	token := "at-1"
	expires := time.Now().Add(-time.Minute)
	row := env.integrations.add(&repository.Integration{
		Name:           "Acme Google",
		Type:           provider.TypeGoogle,
		AccessToken:    &token,
		TokenExpiresAt: &expires,
	})

	w := env.do(t, http.MethodPost, "/api/v1/integrations/"+row.ID.String()+"/sync", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "TOKEN_EXPIRED", body["code"])
	assert.Empty(t, env.jobs.inserted)
}

func TestTriggerSyncCSVUnsupported(t *testing.T) {
	env := newTestEnv(t)
	row := env.integrations.add(&repository.Integration{
		Name: "Payroll export",
		Type: provider.TypeCSV,
	})

	w := env.do(t, http.MethodPost, "/api/v1/integrations/"+row.ID.String()+"/sync", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListSyncLogsLimit(t *testing.T) {
	env := newTestEnv(t)
	row := env.integrations.add(&repository.Integration{Name: "Acme", Type: provider.TypeGoogle})
	env.syncLogs.rows = []*repository.SyncLog{
		{ID: uuid.New(), IntegrationID: row.ID, ResourceType: repository.ResourceUsers, Status: repository.SyncStatusCompleted},
	}

	w := env.do(t, http.MethodGet, "/api/v1/integrations/"+row.ID.String()+"/sync-logs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 50, env.syncLogs.lastLimit)

	w = env.do(t, http.MethodGet, "/api/v1/integrations/"+row.ID.String()+"/sync-logs?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, env.syncLogs.lastLimit)

	// Out-of-range limits fall back to the default.
	w = env.do(t, http.MethodGet, "/api/v1/integrations/"+row.ID.String()+"/sync-logs?limit=9999", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 50, env.syncLogs.lastLimit)
}

func TestListSyncLogsUnknownIntegration(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/integrations/"+uuid.NewString()+"/sync-logs", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteIntegration(t *testing.T) {
	env := newTestEnv(t)
	row := env.integrations.add(&repository.Integration{Name: "Acme", Type: provider.TypeGoogle})

	w := env.do(t, http.MethodDelete, "/api/v1/integrations/"+row.ID.String(), nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	_, err := env.integrations.Get(t.Context(), row.ID)
	assert.Error(t, err)
}

func TestCreateEmployeeValidation(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/employees", map[string]string{
		"first_name": "Ada",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "VALIDATION_FAILED", body["code"])
	fieldErrors, ok := body["field_errors"].([]any)
	require.True(t, ok)
	assert.Len(t, fieldErrors, 2)
	assert.Empty(t, env.employees.created)
}

func TestCreateEmployeeDefaults(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/employees", map[string]string{
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"email":      "ada@example.com",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, env.employees.created, 1)
	created := env.employees.created[0]
	assert.Equal(t, "ada@example.com", created.EmployeeID)
	assert.Nil(t, created.JobTitle)
}

func TestCreateEmployeeStatusValues(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/employees", map[string]string{
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"email":      "ada@example.com",
		"status":     "terminated",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, env.employees.created, 1)
	assert.Equal(t, "terminated", env.employees.created[0].Status)

	bad := env.do(t, http.MethodPost, "/api/v1/employees", map[string]string{
		"first_name": "Bram",
		"last_name":  "Moolenaar",
		"email":      "bram@example.com",
		"status":     "retired",
	})
	require.Equal(t, http.StatusBadRequest, bad.Code)
	body := decodeBody(t, bad)
	assert.Equal(t, "VALIDATION_FAILED", body["code"])
	assert.Len(t, env.employees.created, 1)
}

func TestListEmployeesFilter(t *testing.T) {
	env := newTestEnv(t)
	integrationID := uuid.New()
	env.employees.rows = []*repository.Employee{
		{ID: uuid.New(), Email: "a@example.com", IntegrationID: &integrationID},
		{ID: uuid.New(), Email: "b@example.com"},
	}

	all := env.do(t, http.MethodGet, "/api/v1/employees", nil)
	require.Equal(t, http.StatusOK, all.Code)
	assert.Len(t, decodeBody(t, all)["employees"], 2)

	filtered := env.do(t, http.MethodGet, "/api/v1/employees?integration_id="+integrationID.String(), nil)
	require.Equal(t, http.StatusOK, filtered.Code)
	assert.Len(t, decodeBody(t, filtered)["employees"], 1)

	bad := env.do(t, http.MethodGet, "/api/v1/employees?integration_id=not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestListGroupsFilter(t *testing.T) {
	env := newTestEnv(t)
	integrationID := uuid.New()
	otherID := uuid.New()
	g1 := "g1"
	g2 := "g2"
	env.groups.rows = []*repository.Group{
		{ID: uuid.New(), IntegrationID: &integrationID, ExternalID: &g1, Name: "Engineering"},
		{ID: uuid.New(), IntegrationID: &otherID, ExternalID: &g2, Name: "Sales"},
	}

	filtered := env.do(t, http.MethodGet, "/api/v1/groups?integration_id="+integrationID.String(), nil)
	require.Equal(t, http.StatusOK, filtered.Code)
	assert.Len(t, decodeBody(t, filtered)["groups"], 1)
}

func TestCreateGroup(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/groups", map[string]string{
		"name":        "Office Madrid",
		"description": "badge access",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, env.groups.created, 1)

	missing := env.do(t, http.MethodPost, "/api/v1/groups", map[string]string{
		"description": "no name",
	})
	assert.Equal(t, http.StatusBadRequest, missing.Code)
	assert.Len(t, env.groups.created, 1)
}

func TestGetStats(t *testing.T) {
	env := newTestEnv(t)
	env.stats.stats = repository.Stats{TotalIntegrations: 3, ActiveEmployees: 12}

	w := env.do(t, http.MethodGet, "/api/v1/stats", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(3), body["total_integrations"])
	assert.Equal(t, float64(12), body["active_employees"])
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/health", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeBody(t, w)["status"])

	w = env.do(t, http.MethodGet, "/api/v1/health/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthReadyFailsWithoutDatabase(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/health/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	env.stats.err = assert.AnError
	w = env.do(t, http.MethodGet, "/api/v1/health/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func csvUpload(t *testing.T, env *testEnv, name, csv string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if name != "" {
		require.NoError(t, mw.WriteField("name", name))
	}
	if csv != "" {
		part, err := mw.CreateFormFile("file", "employees.csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(csv))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/integrations/csv/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func TestUploadEmployeeCSV(t *testing.T) {
	env := newTestEnv(t)
	env.employees.mergeDone = make(chan struct{})

	w := csvUpload(t, env, "Payroll export", "first_name,last_name,email\nAda,Lovelace,ada@example.com\n")

	require.Equal(t, http.StatusAccepted, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(1), body["records"])
	require.Len(t, env.integrations.created, 1)
	assert.Equal(t, provider.TypeCSV, env.integrations.created[0].Type)

	select {
	case <-env.employees.mergeDone:
	case <-time.After(2 * time.Second):
		t.Fatal("merge never ran")
	}
}

func TestUploadEmployeeCSVMissingName(t *testing.T) {
	env := newTestEnv(t)

	w := csvUpload(t, env, "", "first_name,last_name,email\nAda,Lovelace,ada@example.com\n")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.integrations.created)
}

func TestUploadEmployeeCSVBadFileRejectedBeforePersist(t *testing.T) {
	env := newTestEnv(t)

	w := csvUpload(t, env, "Payroll export", "first_name,last_name\nAda,Lovelace\n")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "CSV_PARSE_FAILED", body["code"])
	assert.Empty(t, env.integrations.created)
}

func TestUploadEmployeeCSVUnknownStatusRejectedBeforePersist(t *testing.T) {
	env := newTestEnv(t)

	file := "first_name,last_name,email,status\nAda,Lovelace,ada@example.com,retired\n"
	w := csvUpload(t, env, "Payroll export", file)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "CSV_PARSE_FAILED", body["code"])
	assert.Empty(t, env.integrations.created)
	assert.Empty(t, env.employees.mergeCalls)
}
