package tracker

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fosys/fosys/internal/rbac"
)

type memProjectRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*Project
}

func newMemProjectRepo() *memProjectRepo {
	return &memProjectRepo{nextID: 1, rows: make(map[int64]*Project)}
}

func (r *memProjectRepo) Create(_ context.Context, p *Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.nextID
	r.nextID++
	cp := *p
	r.rows[p.ID] = &cp
	return nil
}

func (r *memProjectRepo) GetByID(_ context.Context, id int64) (*Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return nil, ErrProjectNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memProjectRepo) Update(_ context.Context, p *Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[p.ID]; !ok {
		return ErrProjectNotFound
	}
	cp := *p
	r.rows[p.ID] = &cp
	return nil
}

func (r *memProjectRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return ErrProjectNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *memProjectRepo) List(_ context.Context) ([]*Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Project, 0, len(r.rows))
	for _, p := range r.rows {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

type memTaskRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*Task
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{nextID: 1, rows: make(map[int64]*Task)}
}

func (r *memTaskRepo) Create(_ context.Context, t *Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = r.nextID
	r.nextID++
	cp := *t
	r.rows[t.ID] = &cp
	return nil
}

func (r *memTaskRepo) GetByID(_ context.Context, id int64) (*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *memTaskRepo) Update(_ context.Context, t *Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[t.ID]; !ok {
		return ErrTaskNotFound
	}
	cp := *t
	r.rows[t.ID] = &cp
	return nil
}

func (r *memTaskRepo) List(_ context.Context) ([]*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Task, 0, len(r.rows))
	for _, t := range r.rows {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memTaskRepo) ListByAssignee(_ context.Context, employeeID int64) ([]*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Task
	for _, t := range r.rows {
		if t.AssignedTo != nil && *t.AssignedTo == employeeID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func newTestService(t *testing.T) (*Service, *Project) {
	t.Helper()
	svc := NewService(newMemProjectRepo(), newMemTaskRepo())
	project, err := svc.CreateProject(context.Background(), "FOSYS", nil)
	require.NoError(t, err)
	return svc, project
}

func ptr[T any](v T) *T { return &v }

func TestService_CreateTask(t *testing.T) {
	svc, project := newTestService(t)
	ctx := context.Background()

	t.Run("defaults status to To-Do", func(t *testing.T) {
		task, err := svc.CreateTask(ctx, TaskInput{Title: "wire auth", ProjectID: project.ID})
		require.NoError(t, err)
		assert.Equal(t, StatusTodo, task.Status)
		assert.Nil(t, task.AssignedTo)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		_, err := svc.CreateTask(ctx, TaskInput{Title: "x", ProjectID: project.ID, Status: "Done-ish"})
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})

	t.Run("rejects missing project", func(t *testing.T) {
		_, err := svc.CreateTask(ctx, TaskInput{Title: "x", ProjectID: 9999})
		assert.ErrorIs(t, err, ErrProjectNotFound)
	})
}

func TestService_UpdateTask_Ownership(t *testing.T) {
	svc, project := newTestService(t)
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, TaskInput{
		Title:      "fix login",
		ProjectID:  project.ID,
		AssignedTo: ptr(int64(7)),
	})
	require.NoError(t, err)

	t.Run("assignee can edit own task", func(t *testing.T) {
		got, err := svc.UpdateTask(ctx, rbac.RoleDeveloper, 7, task.ID, TaskUpdate{Title: ptr("fix login flow")})
		require.NoError(t, err)
		assert.Equal(t, "fix login flow", got.Title)
	})

	t.Run("other developer is denied", func(t *testing.T) {
		_, err := svc.UpdateTask(ctx, rbac.RoleDeveloper, 8, task.ID, TaskUpdate{Title: ptr("mine now")})
		assert.ErrorIs(t, err, ErrNotTaskOwner)
	})

	t.Run("manager edits any task", func(t *testing.T) {
		_, err := svc.UpdateTask(ctx, rbac.RoleManager, 99, task.ID, TaskUpdate{Status: ptr(StatusInProgress)})
		require.NoError(t, err)
	})

	t.Run("unassigned task denies non-managers", func(t *testing.T) {
		unassigned, err := svc.CreateTask(ctx, TaskInput{Title: "orphan", ProjectID: project.ID})
		require.NoError(t, err)
		_, err = svc.UpdateTask(ctx, rbac.RoleIntern, 7, unassigned.ID, TaskUpdate{Title: ptr("claimed")})
		assert.ErrorIs(t, err, ErrNotTaskOwner)
	})

	t.Run("invalid status rejected before write", func(t *testing.T) {
		_, err := svc.UpdateTask(ctx, rbac.RoleDeveloper, 7, task.ID, TaskUpdate{Status: ptr("nope")})
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})
}

func TestService_UpdateStatus(t *testing.T) {
	svc, project := newTestService(t)
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, TaskInput{
		Title:      "demo",
		ProjectID:  project.ID,
		AssignedTo: ptr(int64(3)),
	})
	require.NoError(t, err)

	got, err := svc.UpdateStatus(ctx, rbac.RoleIntern, 3, task.ID, StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)

	_, err = svc.UpdateStatus(ctx, rbac.RoleIntern, 4, task.ID, StatusTodo)
	assert.ErrorIs(t, err, ErrNotTaskOwner)
}

func TestService_ListTasks_Visibility(t *testing.T) {
	svc, project := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateTask(ctx, TaskInput{Title: "a", ProjectID: project.ID, AssignedTo: ptr(int64(1))})
	require.NoError(t, err)
	_, err = svc.CreateTask(ctx, TaskInput{Title: "b", ProjectID: project.ID, AssignedTo: ptr(int64(2))})
	require.NoError(t, err)
	_, err = svc.CreateTask(ctx, TaskInput{Title: "c", ProjectID: project.ID})
	require.NoError(t, err)

	all, err := svc.ListTasks(ctx, rbac.RoleManager, 99)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	own, err := svc.ListTasks(ctx, rbac.RoleDeveloper, 1)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "a", own[0].Title)
}

func TestService_GetTask_Visibility(t *testing.T) {
	svc, project := newTestService(t)
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, TaskInput{Title: "a", ProjectID: project.ID, AssignedTo: ptr(int64(1))})
	require.NoError(t, err)

	_, err = svc.GetTask(ctx, rbac.RoleDeveloper, 1, task.ID)
	assert.NoError(t, err)

	_, err = svc.GetTask(ctx, rbac.RoleIntern, 2, task.ID)
	assert.ErrorIs(t, err, ErrNotTaskOwner)

	_, err = svc.GetTask(ctx, rbac.RoleAdmin, 0, task.ID)
	assert.NoError(t, err)
}

func TestService_Projects(t *testing.T) {
	svc, project := newTestService(t)
	ctx := context.Background()

	updated, err := svc.UpdateProject(ctx, project.ID, ptr("FOSYS v2"), ptr("rewrite"))
	require.NoError(t, err)
	assert.Equal(t, "FOSYS v2", updated.Name)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "rewrite", *updated.Description)

	require.NoError(t, svc.DeleteProject(ctx, project.ID))
	err = svc.DeleteProject(ctx, project.ID)
	assert.ErrorIs(t, err, ErrProjectNotFound)
}
