package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentoak/approval-engine/internal/domain/entity"
)

type mockUserRepo struct {
	getByIDFunc               func(ctx context.Context, id string) (*entity.User, error)
	firstActiveByRoleFunc     func(ctx context.Context, role string) (*entity.User, error)
	firstPayrollManagerFunc   func(ctx context.Context) (*entity.User, error)
	departmentHeadFunc        func(ctx context.Context, department string) (*entity.User, error)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FirstActiveByRole(ctx context.Context, role string) (*entity.User, error) {
	if m.firstActiveByRoleFunc != nil {
		return m.firstActiveByRoleFunc(ctx, role)
	}
	return nil, nil
}

func (m *mockUserRepo) FirstActivePayrollManager(ctx context.Context) (*entity.User, error) {
	if m.firstPayrollManagerFunc != nil {
		return m.firstPayrollManagerFunc(ctx)
	}
	return nil, nil
}

func (m *mockUserRepo) DepartmentHead(ctx context.Context, department string) (*entity.User, error) {
	if m.departmentHeadFunc != nil {
		return m.departmentHeadFunc(ctx, department)
	}
	return nil, nil
}

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

func TestResolve_Employee(t *testing.T) {
	requester := &entity.User{ID: "u1"}
	r := New(&mockUserRepo{}, nopLogger{})

	got, err := r.Resolve(context.Background(), entity.RoleEmployee, requester)
	require.NoError(t, err)
	assert.Same(t, requester, got)
}

func TestResolve_Manager(t *testing.T) {
	repo := &mockUserRepo{
		getByIDFunc: func(ctx context.Context, id string) (*entity.User, error) {
			assert.Equal(t, "mgr-1", id)
			return &entity.User{ID: "mgr-1", Role: "manager"}, nil
		},
	}
	r := New(repo, nopLogger{})

	got, err := r.Resolve(context.Background(), entity.RoleManager, &entity.User{ID: "u1", ManagerID: "mgr-1"})
	require.NoError(t, err)
	assert.Equal(t, "mgr-1", got.ID)
}

func TestResolve_ManagerAbsentIsNilNotError(t *testing.T) {
	r := New(&mockUserRepo{}, nopLogger{})

	got, err := r.Resolve(context.Background(), entity.RoleManager, &entity.User{ID: "u1"})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResolve_PrivilegedRoles(t *testing.T) {
	for _, role := range []string{entity.RoleHR, entity.RoleAdmin, entity.RoleCompanyAdmin, entity.RoleCEO} {
		t.Run(role, func(t *testing.T) {
			repo := &mockUserRepo{
				firstActiveByRoleFunc: func(ctx context.Context, r string) (*entity.User, error) {
					assert.Equal(t, role, r)
					return &entity.User{ID: "priv-1", Role: r}, nil
				},
			}
			got, err := New(repo, nopLogger{}).Resolve(context.Background(), role, &entity.User{ID: "u1"})
			require.NoError(t, err)
			assert.Equal(t, "priv-1", got.ID)
		})
	}
}

func TestResolve_FinanceRequiresPayrollCapability(t *testing.T) {
	called := false
	repo := &mockUserRepo{
		firstPayrollManagerFunc: func(ctx context.Context) (*entity.User, error) {
			called = true
			return &entity.User{ID: "fin-1", ManagesPayroll: true}, nil
		},
	}

	got, err := New(repo, nopLogger{}).Resolve(context.Background(), entity.RoleFinance, &entity.User{ID: "u1"})
	require.NoError(t, err)
	assert.True(t, called, "finance must resolve through the payroll capability lookup")
	assert.Equal(t, "fin-1", got.ID)
}

func TestResolve_DepartmentHead(t *testing.T) {
	repo := &mockUserRepo{
		departmentHeadFunc: func(ctx context.Context, department string) (*entity.User, error) {
			assert.Equal(t, "engineering", department)
			return &entity.User{ID: "head-1", Department: department}, nil
		},
	}

	got, err := New(repo, nopLogger{}).Resolve(context.Background(), entity.RoleDepartmentHead,
		&entity.User{ID: "u1", Department: "engineering"})
	require.NoError(t, err)
	assert.Equal(t, "head-1", got.ID)
}

func TestResolve_UnknownRole(t *testing.T) {
	_, err := New(&mockUserRepo{}, nopLogger{}).Resolve(context.Background(), "wizard", &entity.User{ID: "u1"})
	assert.Error(t, err)
}
