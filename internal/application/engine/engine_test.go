package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentoak/approval-engine/internal/application/chain"
	"github.com/talentoak/approval-engine/internal/application/port"
	"github.com/talentoak/approval-engine/internal/application/resolver"
	"github.com/talentoak/approval-engine/internal/application/selector"
	"github.com/talentoak/approval-engine/internal/domain/entity"
)

var testStart = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// memInstanceRepo is an in-memory InstanceRepository with the same version
// discipline the sqlite implementation has.
type memInstanceRepo struct {
	mu        sync.Mutex
	instances map[string]*entity.ApprovalInstance
	updateErr error // forced error for conflict tests
}

func newMemInstanceRepo() *memInstanceRepo {
	return &memInstanceRepo{instances: make(map[string]*entity.ApprovalInstance)}
}

func cloneInstance(in *entity.ApprovalInstance) *entity.ApprovalInstance {
	out := *in
	out.Chain = make([]*entity.ChainStep, len(in.Chain))
	for i, step := range in.Chain {
		s := *step
		if step.ActionAt != nil {
			at := *step.ActionAt
			s.ActionAt = &at
		}
		out.Chain[i] = &s
	}
	if in.SLA.CompletedAt != nil {
		at := *in.SLA.CompletedAt
		out.SLA.CompletedAt = &at
	}
	return &out
}

func (r *memInstanceRepo) Create(ctx context.Context, instance *entity.ApprovalInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[instance.ID] = cloneInstance(instance)
	return nil
}

func (r *memInstanceRepo) GetByID(ctx context.Context, id string) (*entity.ApprovalInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if in, ok := r.instances[id]; ok {
		return cloneInstance(in), nil
	}
	return nil, nil
}

func (r *memInstanceRepo) GetOpenByRequest(ctx context.Context, requestType, requestID string) (*entity.ApprovalInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, in := range r.instances {
		if in.RequestType == requestType && in.RequestID == requestID && in.IsOpen() {
			return cloneInstance(in), nil
		}
	}
	return nil, nil
}

func (r *memInstanceRepo) ListOpen(ctx context.Context, limit, offset int) ([]*entity.ApprovalInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var open []*entity.ApprovalInstance
	for _, in := range r.instances {
		if in.IsOpen() {
			open = append(open, cloneInstance(in))
		}
	}
	if offset >= len(open) {
		return nil, nil
	}
	open = open[offset:]
	if len(open) > limit {
		open = open[:limit]
	}
	return open, nil
}

func (r *memInstanceRepo) Update(ctx context.Context, instance *entity.ApprovalInstance, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	stored, ok := r.instances[instance.ID]
	if !ok {
		return errors.New("instance missing")
	}
	if stored.Version != expectedVersion {
		return port.ErrStaleVersion
	}
	instance.Version = expectedVersion + 1
	r.instances[instance.ID] = cloneInstance(instance)
	return nil
}

type memHistoryRepo struct {
	mu      sync.Mutex
	entries []*entity.HistoryEntry
}

func (r *memHistoryRepo) Append(ctx context.Context, entry *entity.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memHistoryRepo) ListByInstanceID(ctx context.Context, instanceID string) ([]*entity.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.HistoryEntry
	for _, e := range r.entries {
		if e.InstanceID == instanceID {
			out = append(out, e)
		}
	}
	return out, nil
}

type memNotifyLog struct {
	mu      sync.Mutex
	records []*entity.NotificationRecord
}

func (r *memNotifyLog) Append(ctx context.Context, record *entity.NotificationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

func (r *memNotifyLog) ListByInstanceID(ctx context.Context, instanceID string) ([]*entity.NotificationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.NotificationRecord
	for _, rec := range r.records {
		if rec.InstanceID == instanceID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type mockUserRepo struct {
	users map[string]*entity.User
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return m.users[id], nil
}

func (m *mockUserRepo) FirstActiveByRole(ctx context.Context, role string) (*entity.User, error) {
	var earliest *entity.User
	for _, u := range m.users {
		if u.Role != role || !u.Active {
			continue
		}
		if earliest == nil || u.CreatedAt.Before(earliest.CreatedAt) {
			earliest = u
		}
	}
	return earliest, nil
}

func (m *mockUserRepo) FirstActivePayrollManager(ctx context.Context) (*entity.User, error) {
	for _, u := range m.users {
		if u.Active && u.ManagesPayroll {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) DepartmentHead(ctx context.Context, department string) (*entity.User, error) {
	var earliest *entity.User
	for _, u := range m.users {
		if u.Role != "manager" || !u.Active || u.Department != department {
			continue
		}
		if earliest == nil || u.CreatedAt.Before(earliest.CreatedAt) {
			earliest = u
		}
	}
	return earliest, nil
}

type mockDefinitionRepo struct {
	defs []*entity.WorkflowDefinition
}

func (m *mockDefinitionRepo) ListActiveByRequestType(ctx context.Context, requestType string) ([]*entity.WorkflowDefinition, error) {
	var out []*entity.WorkflowDefinition
	for _, d := range m.defs {
		if d.RequestType == requestType && d.Active {
			out = append(out, d)
		}
	}
	return out, nil
}

type mockTxManager struct{}

func (mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockNotifier struct {
	mu      sync.Mutex
	intents []port.NotificationIntent
	err     error
}

func (m *mockNotifier) Notify(ctx context.Context, intent port.NotificationIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intents = append(m.intents, intent)
	return m.err
}

func (m *mockNotifier) kinds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.intents))
	for i, intent := range m.intents {
		out[i] = intent.Kind
	}
	return out
}

type mockOutcomeSink struct {
	mu       sync.Mutex
	outcomes []port.Outcome
	err      error
}

func (m *mockOutcomeSink) HandleOutcome(ctx context.Context, outcome port.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
	return m.err
}

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

type fixture struct {
	engine    *Engine
	clock     *fakeClock
	instances *memInstanceRepo
	history   *memHistoryRepo
	notifyLog *memNotifyLog
	notifier  *mockNotifier
	outcomes  *mockOutcomeSink
	users     *mockUserRepo
}

func testUsers() map[string]*entity.User {
	return map[string]*entity.User{
		"u-emp": {ID: "u-emp", Role: "employee", Department: "engineering", ManagerID: "mgr-1", Active: true, CreatedAt: testStart.Add(-400 * time.Hour)},
		"mgr-1": {ID: "mgr-1", Role: "manager", Department: "engineering", Active: true, CreatedAt: testStart.Add(-900 * time.Hour)},
		"adm-1": {ID: "adm-1", Role: "company_admin", Active: true, CreatedAt: testStart.Add(-800 * time.Hour)},
		"hr-1":  {ID: "hr-1", Role: "hr", Active: true, CreatedAt: testStart.Add(-700 * time.Hour)},
	}
}

func newFixture(t *testing.T, defs ...*entity.WorkflowDefinition) *fixture {
	t.Helper()

	if len(defs) == 0 {
		defs = []*entity.WorkflowDefinition{{
			ID:          "wf-onboarding",
			RequestType: "onboarding",
			Steps: []entity.StepDefinition{
				{Role: entity.RoleManager, SLAHours: 24},
				{Role: entity.RoleCompanyAdmin, SLAHours: 48},
			},
			Priority: 10,
			Active:   true,
		}}
	}

	f := &fixture{
		clock:     &fakeClock{t: testStart},
		instances: newMemInstanceRepo(),
		history:   &memHistoryRepo{},
		notifyLog: &memNotifyLog{},
		notifier:  &mockNotifier{},
		outcomes:  &mockOutcomeSink{},
		users:     &mockUserRepo{users: testUsers()},
	}

	sel := selector.New(&mockDefinitionRepo{defs: defs}, nopLogger{})
	res := resolver.New(f.users, nopLogger{})
	builder := chain.NewBuilder(res, nopLogger{})

	f.engine = New(
		sel, builder, f.users,
		f.instances, f.history, f.notifyLog,
		mockTxManager{}, f.notifier, f.outcomes,
		nopLogger{},
		WithNow(f.clock.Now),
	)
	return f
}

func TestCreateInstance(t *testing.T) {
	f := newFixture(t)

	instance, err := f.engine.CreateInstance(context.Background(), "onboarding", "onb-1", "u-emp", map[string]interface{}{"amount": 1000})
	require.NoError(t, err)

	assert.Equal(t, entity.InstanceStatusPending, instance.Status)
	assert.Equal(t, 1, instance.CurrentLevel)
	assert.Equal(t, 2, instance.TotalLevels)
	require.Len(t, instance.Chain, 2)
	assert.Equal(t, "mgr-1", instance.Chain[0].ApproverID)
	assert.Equal(t, "adm-1", instance.Chain[1].ApproverID)
	assert.Equal(t, testStart, instance.SLA.StartedAt)
	assert.Equal(t, testStart.Add(72*time.Hour), instance.SLA.ExpectedCompletionAt)

	history, err := f.engine.GetHistory(context.Background(), instance.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, entity.HistoryActionCreated, history[0].Action)
	assert.Equal(t, "u-emp", history[0].Actor)

	require.Len(t, f.notifier.intents, 1)
	assert.Equal(t, "mgr-1", f.notifier.intents[0].RecipientID)
	assert.Equal(t, entity.NotificationKindPending, f.notifier.intents[0].Kind)
}

func TestCreateInstance_DuplicatePendingRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.CreateInstance(context.Background(), "onboarding", "onb-1", "u-emp", nil)
	require.NoError(t, err)

	_, err = f.engine.CreateInstance(context.Background(), "onboarding", "onb-1", "u-emp", nil)
	assert.ErrorIs(t, err, ErrDuplicatePending)
}

func TestCreateInstance_NoApplicableWorkflow(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.CreateInstance(context.Background(), "expense", "exp-1", "u-emp", nil)
	assert.ErrorIs(t, err, selector.ErrNoApplicableWorkflow)
}

func TestCreateInstance_UnresolvedApproverBlocks(t *testing.T) {
	f := newFixture(t)
	f.users.users["u-emp"].ManagerID = ""

	_, err := f.engine.CreateInstance(context.Background(), "onboarding", "onb-1", "u-emp", nil)
	assert.ErrorIs(t, err, chain.ErrUnresolvedApprover)
}

func TestProcessApproval_WrongActor(t *testing.T) {
	f := newFixture(t)
	instance, err := f.engine.CreateInstance(context.Background(), "onboarding", "onb-1", "u-emp", nil)
	require.NoError(t, err)

	_, err = f.engine.ProcessApproval(context.Background(), instance.ID, "adm-1", entity.DecisionApprove, "")
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestProcessApproval_InvalidDecision(t *testing.T) {
	f := newFixture(t)
	instance, err := f.engine.CreateInstance(context.Background(), "onboarding", "onb-1", "u-emp", nil)
	require.NoError(t, err)

	_, err = f.engine.ProcessApproval(context.Background(), instance.ID, "mgr-1", "defer", "")
	assert.ErrorIs(t, err, ErrInvalidDecision)
}

func TestProcessApproval_AdvancesAndRebasesSLA(t *testing.T) {
	f := newFixture(t)
	instance, err := f.engine.CreateInstance(context.Background(), "onboarding", "onb-1", "u-emp", nil)
	require.NoError(t, err)

	f.clock.Advance(10 * time.Hour)
	updated, err := f.engine.ProcessApproval(context.Background(), instance.ID, "mgr-1", entity.DecisionApprove, "looks good")
	require.NoError(t, err)

	assert.Equal(t, entity.InstanceStatusPending, updated.Status)
	assert.Equal(t, 2, updated.CurrentLevel)
	assert.Equal(t, entity.StepStatusApproved, updated.Chain[0].Status)
	assert.Equal(t, "looks good", updated.Chain[0].Comment)
	require.NotNil(t, updated.Chain[0].ActionAt)

	// level 2's clock starts when it becomes current, not at creation
	levelTwoStart := testStart.Add(10 * time.Hour)
	assert.Equal(t, levelTwoStart.Add(48*time.Hour), updated.Chain[1].SLA.DueAt)

	require.Len(t, f.notifier.intents, 2)
	assert.Equal(t, "adm-1", f.notifier.intents[1].RecipientID)
	assert.Equal(t, entity.NotificationKindPending, f.notifier.intents[1].Kind)
}

func TestProcessApproval_RejectIsTerminalAndLeavesLaterLevelsUntouched(t *testing.T) {
	f := newFixture(t)
	instance, err := f.engine.CreateInstance(context.Background(), "onboarding", "onb-1", "u-emp", nil)
	require.NoError(t, err)

	updated, err := f.engine.ProcessApproval(context.Background(), instance.ID, "mgr-1", entity.DecisionReject, "not this quarter")
	require.NoError(t, err)

	assert.Equal(t, entity.InstanceStatusRejected, updated.Status)
	assert.Equal(t, 1, updated.CurrentLevel, "rejection must not advance the level")
	assert.Equal(t, entity.StepStatusRejected, updated.Chain[0].Status)
	assert.Equal(t, entity.StepStatusPending, updated.Chain[1].Status, "later levels are left untouched")
	require.NotNil(t, updated.SLA.CompletedAt)

	require.Len(t, f.outcomes.outcomes, 1)
	assert.Equal(t, entity.OutcomeRejected, f.outcomes.outcomes[0].Outcome)
	assert.Equal(t, "onb-1", f.outcomes.outcomes[0].RequestID)

	assert.Contains(t, f.notifier.kinds(), entity.NotificationKindRejected)
}

func TestProcessApproval_FinalApprovalFinalizesOnce(t *testing.T) {
	f := newFixture(t)
	instance, err := f.engine.CreateInstance(context.Background(), "onboarding", "onb-1", "u-emp", nil)
	require.NoError(t, err)

	_, err = f.engine.ProcessApproval(context.Background(), instance.ID, "mgr-1", entity.DecisionApprove, "")
	require.NoError(t, err)

	updated, err := f.engine.ProcessApproval(context.Background(), instance.ID, "adm-1", entity.DecisionApprove, "")
	require.NoError(t, err)

	assert.Equal(t, entity.InstanceStatusApproved, updated.Status)
	require.NotNil(t, updated.SLA.CompletedAt)

	require.Len(t, f.outcomes.outcomes, 1)
	assert.Equal(t, entity.OutcomeApproved, f.outcomes.outcomes[0].Outcome)

	// re-invoking on a terminal instance fails without touching history
	before, _ := f.engine.GetHistory(context.Background(), instance.ID)
	_, err = f.engine.ProcessApproval(context.Background(), instance.ID, "adm-1", entity.DecisionApprove, "")
	assert.ErrorIs(t, err, ErrNoPendingApprover)
	after, _ := f.engine.GetHistory(context.Background(), instance.ID)
	assert.Equal(t, len(before), len(after))
}

func TestProcessApproval_ThreeStepRoundTrip(t *testing.T) {
	def := &entity.WorkflowDefinition{
		ID:          "wf-3",
		RequestType: "onboarding",
		Steps: []entity.StepDefinition{
			{Role: entity.RoleManager},
			{Role: entity.RoleHR},
			{Role: entity.RoleCompanyAdmin},
		},
		Active: true,
	}
	f := newFixture(t, def)

	instance, err := f.engine.CreateInstance(context.Background(), "onboarding", "onb-1", "u-emp", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, instance.TotalLevels)

	_, err = f.engine.ProcessApproval(context.Background(), instance.ID, "mgr-1", entity.DecisionApprove, "")
	require.NoError(t, err)
	_, err = f.engine.ProcessApproval(context.Background(), instance.ID, "hr-1", entity.DecisionApprove, "")
	require.NoError(t, err)
	final, err := f.engine.ProcessApproval(context.Background(), instance.ID, "adm-1", entity.DecisionReject, "budget")
	require.NoError(t, err)

	assert.Equal(t, entity.InstanceStatusRejected, final.Status)
	assert.Equal(t, "budget", final.Chain[2].Comment)

	history, err := f.engine.GetHistory(context.Background(), instance.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, entity.HistoryActionCreated, history[0].Action)
	assert.Equal(t, entity.HistoryActionApproved, history[1].Action)
	assert.Equal(t, entity.HistoryActionApproved, history[2].Action)
	assert.Equal(t, entity.HistoryActionRejected, history[3].Action)
}

func TestProcessApproval_ExactlyOnePendingStepWhileOpen(t *testing.T) {
	f := newFixture(t)
	instance, err := f.engine.CreateInstance(context.Background(), "onboarding", "onb-1", "u-emp", nil)
	require.NoError(t, err)

	assertInvariant := func(in *entity.ApprovalInstance) {
		t.Helper()
		pending := 0
		for _, step := range in.Chain {
			if step.Status == entity.StepStatusPending {
				pending++
				assert.Equal(t, in.CurrentLevel, step.Level)
			}
		}
		assert.Equal(t, 1, pending)
	}

	assertInvariant(instance)
	mid, err := f.engine.ProcessApproval(context.Background(), instance.ID, "mgr-1", entity.DecisionApprove, "")
	require.NoError(t, err)
	assertInvariant(mid)
}

func TestProcessApproval_StaleVersionConflict(t *testing.T) {
	f := newFixture(t)
	instance, err := f.engine.CreateInstance(context.Background(), "onboarding", "onb-1", "u-emp", nil)
	require.NoError(t, err)

	f.instances.updateErr = port.ErrStaleVersion
	_, err = f.engine.ProcessApproval(context.Background(), instance.ID, "mgr-1", entity.DecisionApprove, "")
	assert.ErrorIs(t, err, ErrStaleInstanceState)
}

func TestProcessApproval_NotificationFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("smtp down")

	instance, err := f.engine.CreateInstance(context.Background(), "onboarding", "onb-1", "u-emp", nil)
	require.NoError(t, err)

	_, err = f.engine.ProcessApproval(context.Background(), instance.ID, "mgr-1", entity.DecisionApprove, "")
	require.NoError(t, err)

	records, err := f.notifyLog.ListByInstanceID(context.Background(), instance.ID)
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.Equal(t, "smtp down", records[0].Error)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	instance, err := f.engine.CreateInstance(context.Background(), "onboarding", "onb-1", "u-emp", nil)
	require.NoError(t, err)

	cancelled, err := f.engine.Cancel(context.Background(), instance.ID, "adm-1", "requisition withdrawn")
	require.NoError(t, err)
	assert.Equal(t, entity.InstanceStatusCancelled, cancelled.Status)

	_, err = f.engine.Cancel(context.Background(), instance.ID, "adm-1", "again")
	assert.ErrorIs(t, err, ErrNoPendingApprover)
}

func TestGetCurrentApprover(t *testing.T) {
	f := newFixture(t)
	instance, err := f.engine.CreateInstance(context.Background(), "onboarding", "onb-1", "u-emp", nil)
	require.NoError(t, err)

	step, err := f.engine.GetCurrentApprover(context.Background(), instance.ID)
	require.NoError(t, err)
	require.NotNil(t, step)
	assert.Equal(t, "mgr-1", step.ApproverID)

	_, err = f.engine.ProcessApproval(context.Background(), instance.ID, "mgr-1", entity.DecisionReject, "")
	require.NoError(t, err)

	step, err = f.engine.GetCurrentApprover(context.Background(), instance.ID)
	require.NoError(t, err)
	assert.Nil(t, step, "terminal instances have no current approver")
}

func TestGetInstance_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.GetInstance(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrInstanceNotFound)
}
