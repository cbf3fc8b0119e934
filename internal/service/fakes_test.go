package service

import (
	"context"
	"sync"

	"github.com/noah-isme/cleanops-client/internal/dto"
	"github.com/noah-isme/cleanops-client/internal/models"
)

type fakeSessionAPI struct {
	mu        sync.Mutex
	loginResp *models.LoginResponse
	loginErr  error
	me        *models.User
	meErr     error
	loginCtx  context.Context
	meCalls   int
	meHook    func()
}

func (f *fakeSessionAPI) Login(ctx context.Context, _ models.LoginRequest) (*models.LoginResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCtx = ctx
	return f.loginResp, f.loginErr
}

func (f *fakeSessionAPI) Me(context.Context) (*models.User, error) {
	f.mu.Lock()
	f.meCalls++
	hook := f.meHook
	me, err := f.me, f.meErr
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return me, err
}

type memoryTokenRepo struct {
	mu      sync.Mutex
	token   string
	saveErr error
	saves   int
	deletes int
}

func (m *memoryTokenRepo) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *memoryTokenRepo) Save(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.token = token
	return nil
}

func (m *memoryTokenRepo) Delete(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	m.token = ""
	return nil
}

type fakeWorkflowAPI struct {
	mu sync.Mutex

	page      *models.Page[models.Assignment]
	listErr   error
	cleanErr  error
	reviewErr error

	calls       []string
	lastAssign  dto.AssignmentFilter
	lastReview  dto.ReviewFilter
	lastClean   dto.CleanRequest
	lastApprove dto.ApproveRequest
	lastReject  dto.RejectRequest
}

func (f *fakeWorkflowAPI) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeWorkflowAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeWorkflowAPI) ListMyAssignments(_ context.Context, filter dto.AssignmentFilter) (*models.Page[models.Assignment], error) {
	f.record("list_assignments")
	f.lastAssign = filter
	return f.page, f.listErr
}

func (f *fakeWorkflowAPI) MarkCleaned(_ context.Context, id string, req dto.CleanRequest) error {
	f.record("clean:" + id)
	f.lastClean = req
	return f.cleanErr
}

func (f *fakeWorkflowAPI) ListMyReviews(_ context.Context, filter dto.ReviewFilter) (*models.Page[models.Assignment], error) {
	f.record("list_reviews")
	f.lastReview = filter
	return f.page, f.listErr
}

func (f *fakeWorkflowAPI) Approve(_ context.Context, id string, req dto.ApproveRequest) error {
	f.record("approve:" + id)
	f.lastApprove = req
	return f.reviewErr
}

func (f *fakeWorkflowAPI) Reject(_ context.Context, id string, req dto.RejectRequest) error {
	f.record("reject:" + id)
	f.lastReject = req
	return f.reviewErr
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
