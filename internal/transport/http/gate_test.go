package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fosys/fosys/internal/audit"
	"github.com/fosys/fosys/internal/authn"
	"github.com/fosys/fosys/internal/authz"
	"github.com/fosys/fosys/internal/identity"
	"github.com/fosys/fosys/internal/idp"
	"github.com/fosys/fosys/internal/rbac"
	"github.com/fosys/fosys/internal/token"
	"github.com/fosys/fosys/internal/tracker"
)

// In-memory fakes. The gate only needs enough of the stores to resolve
// identities and move a task or two.

type memAssignments struct {
	mu   sync.RWMutex
	rows map[string]authz.Assignment
}

func newMemAssignments() *memAssignments {
	return &memAssignments{rows: make(map[string]authz.Assignment)}
}

func (m *memAssignments) Get(_ context.Context, subjectID string) (*authz.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.rows[subjectID]
	if !ok {
		return nil, authz.ErrAssignmentNotFound
	}
	return &a, nil
}

func (m *memAssignments) Upsert(_ context.Context, a *authz.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[a.SubjectID] = *a
	return nil
}

func (m *memAssignments) Delete(_ context.Context, subjectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[subjectID]; !ok {
		return authz.ErrAssignmentNotFound
	}
	delete(m.rows, subjectID)
	return nil
}

type memEmployees struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]*identity.Employee
}

func newMemEmployees() *memEmployees {
	return &memEmployees{nextID: 1, rows: make(map[int64]*identity.Employee)}
}

func (m *memEmployees) Create(_ context.Context, e *identity.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = m.nextID
	m.nextID++
	cp := *e
	m.rows[e.ID] = &cp
	return nil
}

func (m *memEmployees) GetByID(_ context.Context, id int64) (*identity.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.rows[id]
	if !ok {
		return nil, identity.ErrEmployeeNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memEmployees) GetByEmail(_ context.Context, email string) (*identity.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.rows {
		if e.Email == email {
			cp := *e
			return &cp, nil
		}
	}
	return nil, identity.ErrEmployeeNotFound
}

func (m *memEmployees) GetBySubjectID(_ context.Context, subjectID string) (*identity.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.rows {
		if e.SubjectID != nil && *e.SubjectID == subjectID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, identity.ErrEmployeeNotFound
}

func (m *memEmployees) UpdateRole(_ context.Context, id int64, legacyRole string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[id]
	if !ok {
		return identity.ErrEmployeeNotFound
	}
	e.Role = legacyRole
	return nil
}

func (m *memEmployees) LinkSubject(_ context.Context, id int64, subjectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[id]
	if !ok {
		return identity.ErrEmployeeNotFound
	}
	e.SubjectID = &subjectID
	return nil
}

func (m *memEmployees) List(_ context.Context) ([]*identity.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*identity.Employee, 0, len(m.rows))
	for _, e := range m.rows {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

// LegacyRoleBySubject implements authz.LegacyRoleSource.
func (m *memEmployees) LegacyRoleBySubject(ctx context.Context, subjectID string) (string, error) {
	e, err := m.GetBySubjectID(ctx, subjectID)
	if err != nil {
		return "", authz.ErrLegacyRoleNotFound
	}
	return e.Role, nil
}

// EmployeeBySubject implements authn.EmployeeDirectory.
func (m *memEmployees) EmployeeBySubject(ctx context.Context, subjectID string) (int64, string, error) {
	e, err := m.GetBySubjectID(ctx, subjectID)
	if err != nil {
		return 0, "", identity.ErrEmployeeNotLinked
	}
	return e.ID, e.Email, nil
}

type fakeProvider struct {
	identities map[string]*idp.Identity // access token -> identity
	down       bool
}

func (f *fakeProvider) ValidateToken(_ context.Context, accessToken string) (*idp.Identity, error) {
	if f.down {
		return nil, idp.ErrUnavailable
	}
	if ident, ok := f.identities[accessToken]; ok {
		return ident, nil
	}
	return nil, idp.ErrInvalidToken
}

func (f *fakeProvider) SignInWithPassword(_ context.Context, email, password string) (*idp.Session, error) {
	return nil, idp.ErrInvalidCredentials
}

func (f *fakeProvider) CreateUser(_ context.Context, email, password, name string) (*idp.Identity, error) {
	return &idp.Identity{SubjectID: "sub-" + email, Email: email}, nil
}

type memProjects struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*tracker.Project
}

func (m *memProjects) Create(_ context.Context, p *tracker.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	cp := *p
	m.rows[p.ID] = &cp
	return nil
}

func (m *memProjects) GetByID(_ context.Context, id int64) (*tracker.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, tracker.ErrProjectNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProjects) Update(_ context.Context, p *tracker.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[p.ID]; !ok {
		return tracker.ErrProjectNotFound
	}
	cp := *p
	m.rows[p.ID] = &cp
	return nil
}

func (m *memProjects) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return tracker.ErrProjectNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memProjects) List(_ context.Context) ([]*tracker.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*tracker.Project, 0, len(m.rows))
	for _, p := range m.rows {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

type memTasks struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*tracker.Task
}

func (m *memTasks) Create(_ context.Context, t *tracker.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t.ID = m.nextID
	cp := *t
	m.rows[t.ID] = &cp
	return nil
}

func (m *memTasks) GetByID(_ context.Context, id int64) (*tracker.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok {
		return nil, tracker.ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTasks) Update(_ context.Context, t *tracker.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[t.ID]; !ok {
		return tracker.ErrTaskNotFound
	}
	cp := *t
	m.rows[t.ID] = &cp
	return nil
}

func (m *memTasks) List(_ context.Context) ([]*tracker.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*tracker.Task, 0, len(m.rows))
	for _, t := range m.rows {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memTasks) ListByAssignee(_ context.Context, employeeID int64) ([]*tracker.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*tracker.Task
	for _, t := range m.rows {
		if t.AssignedTo != nil && *t.AssignedTo == employeeID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

type testEnv struct {
	server    *httptest.Server
	issuer    *token.Issuer
	employees *memEmployees
	tasks     *memTasks
	provider  *fakeProvider
	roles     *authz.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	issuer := token.NewIssuer([]byte("gate-test-secret"), "fosys", time.Hour)
	assignments := newMemAssignments()
	employees := newMemEmployees()
	provider := &fakeProvider{identities: make(map[string]*idp.Identity)}

	roles := authz.NewService(assignments, employees)
	resolver := authn.NewResolver(provider, issuer, roles, employees)
	identityService := identity.NewService(employees, provider, roles, issuer, audit.NewSlogLogger())

	projects := &memProjects{rows: make(map[int64]*tracker.Project)}
	tasks := &memTasks{rows: make(map[int64]*tracker.Task)}
	trackerService := tracker.NewService(projects, tasks)

	// Seed a project for task routes.
	require.NoError(t, projects.Create(context.Background(), &tracker.Project{Name: "seed"}))

	h := NewHandler(resolver, identityService, trackerService, audit.NewSlogLogger())
	server := httptest.NewServer(NewRouter(h, NewRateLimiter(1000, 1000)))
	t.Cleanup(server.Close)

	return &testEnv{
		server:    server,
		issuer:    issuer,
		employees: employees,
		tasks:     tasks,
		provider:  provider,
		roles:     roles,
	}
}

// localToken mints a legacy-path credential for an employee record.
func (e *testEnv) localToken(t *testing.T, legacyRole string) (string, int64) {
	t.Helper()
	emp := &identity.Employee{
		Name:  "Test " + legacyRole,
		Email: fmt.Sprintf("%s-%d@fosys.test", legacyRole, time.Now().UnixNano()),
		Role:  legacyRole,
	}
	require.NoError(t, e.employees.Create(context.Background(), emp))

	signed, err := e.issuer.Issue(emp.ID, legacyRole, "")
	require.NoError(t, err)
	return signed, emp.ID
}

func (e *testEnv) do(t *testing.T, method, path, bearer string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestGate_MissingCredential(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/v1/tasks", "", nil)
	body := decodeBody(t, resp)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "missing bearer token", body["error"])
}

func TestGate_ManagerAllowedOnManagerRoute(t *testing.T) {
	env := newTestEnv(t)
	bearer, _ := env.localToken(t, rbac.LegacyManager)

	resp := env.do(t, http.MethodPost, "/api/v1/projects", bearer,
		map[string]string{"name": "Apollo"})
	body := decodeBody(t, resp)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Project created successfully", body["message"])
}

func TestGate_InternDeniedWithNamedRoles(t *testing.T) {
	env := newTestEnv(t)
	bearer, _ := env.localToken(t, rbac.LegacyIntern)

	resp := env.do(t, http.MethodPost, "/api/v1/projects", bearer,
		map[string]string{"name": "Apollo"})
	body := decodeBody(t, resp)

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Access denied", body["error"])
	assert.Equal(t, "Required roles: admin, manager, User role: intern", body["message"])
}

func TestGate_ExpiredLocalToken(t *testing.T) {
	env := newTestEnv(t)

	shortIssuer := token.NewIssuer([]byte("gate-test-secret"), "fosys", time.Nanosecond)
	bearer, err := shortIssuer.Issue(1, rbac.LegacyManager, "")
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	resp := env.do(t, http.MethodGet, "/api/v1/tasks", bearer, nil)
	body := decodeBody(t, resp)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "token expired", body["error"])
}

func TestGate_ProviderTokenResolvesRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	subjectID := "11111111-2222-3333-4444-555555555555"
	env.provider.identities["provider-access-token"] = &idp.Identity{
		SubjectID: subjectID,
		Email:     "dev@fosys.test",
	}
	sid := subjectID
	require.NoError(t, env.employees.Create(ctx, &identity.Employee{
		Name: "Dev", Email: "dev@fosys.test", Role: rbac.LegacyEmployee, SubjectID: &sid,
	}))
	require.NoError(t, env.roles.Assign(ctx, subjectID, rbac.RoleDeveloper, "test"))

	resp := env.do(t, http.MethodGet, "/api/v1/auth/me", "provider-access-token", nil)
	body := decodeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "developer", body["role"])
	assert.Equal(t, subjectID, body["subject_id"])
	assert.NotZero(t, body["employee_id"])
}

func TestGate_ProviderTokenWithoutAnyRole(t *testing.T) {
	env := newTestEnv(t)

	env.provider.identities["orphan-token"] = &idp.Identity{
		SubjectID: "orphan-subject",
		Email:     "orphan@fosys.test",
	}

	resp := env.do(t, http.MethodGet, "/api/v1/auth/me", "orphan-token", nil)
	body := decodeBody(t, resp)

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "User role not found", body["error"])
}

func TestGate_ProviderOutageReturns503(t *testing.T) {
	env := newTestEnv(t)
	env.provider.down = true

	// Not a locally issued token, so the gate must consult the provider.
	resp := env.do(t, http.MethodGet, "/api/v1/auth/me", "opaque-provider-token", nil)
	body := decodeBody(t, resp)

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "identity provider unavailable", body["error"])
}

func TestGate_OwnershipScopedStatusUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bearer, empID := env.localToken(t, rbac.LegacyIntern)
	otherID := empID + 100

	ownTask := &tracker.Task{Title: "own", Status: tracker.StatusTodo, ProjectID: 1, AssignedTo: &empID}
	otherTask := &tracker.Task{Title: "other", Status: tracker.StatusTodo, ProjectID: 1, AssignedTo: &otherID}
	require.NoError(t, env.tasks.Create(ctx, ownTask))
	require.NoError(t, env.tasks.Create(ctx, otherTask))

	resp := env.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/tasks/%d/status", ownTask.ID), bearer,
		map[string]string{"status": tracker.StatusInProgress})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/tasks/%d/status", otherTask.ID), bearer,
		map[string]string{"status": tracker.StatusInProgress})
	body := decodeBody(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "You can only update tasks assigned to you", body["error"])
}

func TestGate_TaskVisibilityByRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	internBearer, internID := env.localToken(t, rbac.LegacyIntern)
	managerBearer, _ := env.localToken(t, rbac.LegacyManager)

	require.NoError(t, env.tasks.Create(ctx, &tracker.Task{Title: "mine", Status: tracker.StatusTodo, ProjectID: 1, AssignedTo: &internID}))
	require.NoError(t, env.tasks.Create(ctx, &tracker.Task{Title: "unassigned", Status: tracker.StatusTodo, ProjectID: 1}))

	resp := env.do(t, http.MethodGet, "/api/v1/tasks", internBearer, nil)
	body := decodeBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["tasks"], 1)

	resp = env.do(t, http.MethodGet, "/api/v1/tasks", managerBearer, nil)
	body = decodeBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["tasks"], 2)
}

func TestGate_AdminWildcardOnPermissionRoute(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bearer, _ := env.localToken(t, rbac.LegacyAdmin)
	task := &tracker.Task{Title: "any", Status: tracker.StatusTodo, ProjectID: 1}
	require.NoError(t, env.tasks.Create(ctx, task))

	// Unassigned task, but admin bypasses ownership entirely.
	resp := env.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/tasks/%d/status", task.ID), bearer,
		map[string]string{"status": tracker.StatusCompleted})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestGate_RoleChangeAdminOnly(t *testing.T) {
	env := newTestEnv(t)

	adminBearer, _ := env.localToken(t, rbac.LegacyAdmin)
	managerBearer, _ := env.localToken(t, rbac.LegacyManager)
	_, targetID := env.localToken(t, rbac.LegacyEmployee)

	resp := env.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/employees/%d/role", targetID), managerBearer,
		map[string]string{"role": "manager"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/employees/%d/role", targetID), adminBearer,
		map[string]string{"role": "manager"})
	body := decodeBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	employee := body["employee"].(map[string]any)
	assert.Equal(t, rbac.LegacyManager, employee["role"])

	resp = env.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/employees/%d/role", targetID), adminBearer,
		map[string]string{"role": "superuser"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestGate_RoleRevocationAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	adminBearer, _ := env.localToken(t, rbac.LegacyAdmin)
	managerBearer, _ := env.localToken(t, rbac.LegacyManager)

	subjectID := "aaaa1111-bbbb-2222-cccc-333344445555"
	sid := subjectID
	target := &identity.Employee{Name: "Target", Email: "target@fosys.test", Role: rbac.LegacyEmployee, SubjectID: &sid}
	require.NoError(t, env.employees.Create(ctx, target))
	require.NoError(t, env.roles.Assign(ctx, subjectID, rbac.RoleManager, "test"))

	path := fmt.Sprintf("/api/v1/employees/%d/role", target.ID)

	resp := env.do(t, http.MethodDelete, path, managerBearer, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodDelete, path, adminBearer, nil)
	body := decodeBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Role assignment revoked", body["message"])

	// The assignment is gone; the denormalized field still answers.
	role, err := env.roles.Role(ctx, subjectID)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleDeveloper, role)

	resp = env.do(t, http.MethodDelete, path, adminBearer, nil)
	body = decodeBody(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "no role assignment to revoke", body["error"])
}

func TestGate_HealthIsPublic(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/health", "", nil)
	body := decodeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
}

func TestRequirePermission_DeniesWithDiagnostics(t *testing.T) {
	ctx := context.Background()

	// No route pairs an intern with an action outside its set, so
	// exercise the catalog-backed gate directly.
	h := &Handler{auditLogger: audit.NewSlogLogger()}
	var called bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	gate := h.RequirePermission(rbac.ActionApprovePR)(next)

	req := httptest.NewRequest(http.MethodPost, "/prs/1/approve", nil)
	req = req.WithContext(withIdentity(ctx, &authn.Identity{EmployeeID: 1, Role: rbac.RoleIntern}))
	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, rbac.ActionApprovePR, body["required_action"])
	assert.Equal(t, "intern", body["user_role"])
}
