package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/require"

	"dirsync.io/dirsync/internal/api/middleware"
	"dirsync.io/dirsync/internal/config"
	apperrors "dirsync.io/dirsync/internal/pkg/errors"
	"dirsync.io/dirsync/internal/pkg/logger"
	"dirsync.io/dirsync/internal/pkg/worker"
	"dirsync.io/dirsync/internal/provider"
	"dirsync.io/dirsync/internal/repository"
	syncpkg "dirsync.io/dirsync/internal/sync"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := logger.Init("error", "console"); err != nil {
		panic(err)
	}
	m.Run()
}

type fakeIntegrations struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]*repository.Integration
	created []repository.CreateIntegrationParams
	marked  map[uuid.UUID]time.Time

	createErr error
	listErr   error
	deleteErr error
}

func newFakeIntegrations() *fakeIntegrations {
	return &fakeIntegrations{
		rows:   make(map[uuid.UUID]*repository.Integration),
		marked: make(map[uuid.UUID]time.Time),
	}
}

func (f *fakeIntegrations) Create(_ context.Context, params repository.CreateIntegrationParams) (*repository.Integration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, params)
	row := &repository.Integration{
		ID:             uuid.New(),
		Name:           params.Name,
		Type:           params.Type,
		Status:         params.Status,
		AccessToken:    params.AccessToken,
		RefreshToken:   params.RefreshToken,
		TokenExpiresAt: params.TokenExpiresAt,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	f.rows[row.ID] = row
	return row, nil
}

func (f *fakeIntegrations) Get(_ context.Context, id uuid.UUID) (*repository.Integration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, apperrors.ErrIntegrationNotFound(id.String())
	}
	return row, nil
}

func (f *fakeIntegrations) List(context.Context) ([]*repository.Integration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*repository.Integration, 0, len(f.rows))
	for _, row := range f.rows {
		out = append(out, row)
	}
	return out, nil
}

func (f *fakeIntegrations) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeIntegrations) MarkSynced(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked[id] = at
	return nil
}

func (f *fakeIntegrations) add(row *repository.Integration) *repository.Integration {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	f.rows[row.ID] = row
	return row
}

type fakeEmployees struct {
	mu         sync.Mutex
	rows       []*repository.Employee
	created    []repository.CreateEmployeeParams
	mergeCalls []uuid.UUID
	mergeDone  chan struct{}

	createErr error
	mergeErr  error
}

func (f *fakeEmployees) Create(_ context.Context, params repository.CreateEmployeeParams) (*repository.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, params)
	status := params.Status
	if status == "" {
		status = provider.StatusActive
	}
	row := &repository.Employee{
		ID:         uuid.New(),
		FirstName:  params.FirstName,
		LastName:   params.LastName,
		Email:      params.Email,
		EmployeeID: params.EmployeeID,
		JobTitle:   params.JobTitle,
		Status:     status,
	}
	f.rows = append(f.rows, row)
	return row, nil
}

func (f *fakeEmployees) List(_ context.Context, integrationID *uuid.UUID) ([]*repository.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if integrationID == nil {
		return f.rows, nil
	}
	var out []*repository.Employee
	for _, row := range f.rows {
		if row.IntegrationID != nil && *row.IntegrationID == *integrationID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeEmployees) MergeFromIntegration(_ context.Context, integrationID uuid.UUID, batch []provider.Employee) (repository.MergeResult, error) {
	f.mu.Lock()
	f.mergeCalls = append(f.mergeCalls, integrationID)
	done := f.mergeDone
	err := f.mergeErr
	f.mu.Unlock()
	if done != nil {
		defer close(done)
	}
	if err != nil {
		return repository.MergeResult{}, err
	}
	return repository.MergeResult{Inserted: len(batch), Total: len(batch)}, nil
}

type fakeGroups struct {
	rows      []*repository.Group
	created   []string
	listErr   error
	createErr error
}

func (f *fakeGroups) Create(_ context.Context, name string, description *string) (*repository.Group, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, name)
	row := &repository.Group{ID: uuid.New(), Name: name, Description: description}
	f.rows = append(f.rows, row)
	return row, nil
}

func (f *fakeGroups) List(_ context.Context, integrationID *uuid.UUID) ([]*repository.Group, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if integrationID == nil {
		return f.rows, nil
	}
	var out []*repository.Group
	for _, row := range f.rows {
		if row.IntegrationID != nil && *row.IntegrationID == *integrationID {
			out = append(out, row)
		}
	}
	return out, nil
}

type fakeSyncLogs struct {
	rows      []*repository.SyncLog
	lastLimit int
}

func (f *fakeSyncLogs) ListByIntegration(_ context.Context, integrationID uuid.UUID, limit int) ([]*repository.SyncLog, error) {
	f.lastLimit = limit
	var out []*repository.SyncLog
	for _, row := range f.rows {
		if row.IntegrationID == integrationID {
			out = append(out, row)
		}
	}
	return out, nil
}

type fakeOperators struct {
	byEmail map[string]*repository.Operator
}

func (f *fakeOperators) GetByEmail(_ context.Context, email string) (*repository.Operator, error) {
	op, ok := f.byEmail[email]
	if !ok {
		return nil, apperrors.Unauthorized(apperrors.CodeAuthFailed, "invalid email or password")
	}
	return op, nil
}

type fakeStats struct {
	stats repository.Stats
	err   error
}

func (f *fakeStats) Stats(context.Context) (repository.Stats, error) {
	return f.stats, f.err
}

type fakeRunner struct {
	mu      sync.Mutex
	calls   []uuid.UUID
	tokens  []string
	outcome syncpkg.Outcome
}

func (f *fakeRunner) Run(_ context.Context, integrationID uuid.UUID, _ *provider.Descriptor, accessToken string) syncpkg.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, integrationID)
	f.tokens = append(f.tokens, accessToken)
	out := f.outcome
	out.IntegrationID = integrationID
	return out
}

type fakeJobs struct {
	inserted []river.JobArgs
	err      error
}

func (f *fakeJobs) Insert(_ context.Context, args river.JobArgs, _ *river.InsertOpts) (*rivertype.JobInsertResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inserted = append(f.inserted, args)
	return &rivertype.JobInsertResult{}, nil
}

// testEnv bundles a Server with its fakes and a wired router.
type testEnv struct {
	server       *Server
	router       *gin.Engine
	integrations *fakeIntegrations
	employees    *fakeEmployees
	groups       *fakeGroups
	syncLogs     *fakeSyncLogs
	operators    *fakeOperators
	stats        *fakeStats
	runner       *fakeRunner
	jobs         *fakeJobs
	registry     *provider.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	registry, err := provider.NewRegistry(config.ProvidersConfig{
		Google: config.OAuthClientConfig{
			ClientID:     "google-client",
			ClientSecret: "google-secret",
			RedirectURI:  "http://localhost:8080/api/v1/integrations/google_workspace/callback",
		},
		Microsoft: config.OAuthClientConfig{
			ClientID:    "ms-client",
			RedirectURI: "http://localhost:8080/api/v1/integrations/microsoft_entra/callback",
		},
	})
	require.NoError(t, err)

	pools, err := worker.NewPools(context.Background(), worker.PoolConfig{GeneralPoolSize: 2, ImportPoolSize: 2})
	require.NoError(t, err)
	t.Cleanup(pools.Shutdown)

	env := &testEnv{
		integrations: newFakeIntegrations(),
		employees:    &fakeEmployees{},
		groups:       &fakeGroups{},
		syncLogs:     &fakeSyncLogs{},
		operators:    &fakeOperators{byEmail: map[string]*repository.Operator{}},
		stats:        &fakeStats{},
		runner:       &fakeRunner{},
		jobs:         &fakeJobs{},
		registry:     registry,
	}

	env.server = NewServer(ServerDeps{
		Integrations: env.integrations,
		Employees:    env.employees,
		Groups:       env.groups,
		SyncLogs:     env.syncLogs,
		Operators:    env.operators,
		Stats:        env.stats,
		Registry:     registry,
		Pipeline:     env.runner,
		Jobs:         env.jobs,
		Pools:        pools,
		JWTCfg: middleware.JWTConfig{
			SigningKey: []byte("test-signing-key"),
			Issuer:     "dirsync-test",
			ExpiresIn:  time.Hour,
		},
		RootURL: "http://localhost:3000",
	})

	r := gin.New()
	r.Use(middleware.ErrorHandler())
	v1 := r.Group("/api/v1")
	v1.GET("/health", env.server.Health)
	v1.GET("/health/live", env.server.HealthLive)
	v1.GET("/health/ready", env.server.HealthReady)
	v1.POST("/auth/login", env.server.Login)
	v1.GET("/stats", env.server.GetStats)
	v1.GET("/employees", env.server.ListEmployees)
	v1.POST("/employees", env.server.CreateEmployee)
	v1.GET("/groups", env.server.ListGroups)
	v1.POST("/groups", env.server.CreateGroup)
	v1.GET("/integrations", env.server.ListIntegrations)
	v1.POST("/integrations/connect", env.server.ConnectIntegration)
	v1.POST("/integrations/csv/upload", env.server.UploadEmployeeCSV)
	v1.GET("/integrations/:id/callback", env.server.Callback)
	v1.DELETE("/integrations/:id", env.server.DeleteIntegration)
	v1.POST("/integrations/:id/sync", env.server.TriggerSync)
	v1.GET("/integrations/:id/sync-logs", env.server.ListSyncLogs)
	env.router = r
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}
