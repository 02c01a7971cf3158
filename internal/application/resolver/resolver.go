package resolver

import (
	"context"
	"fmt"

	"github.com/talentoak/approval-engine/internal/application/port"
	"github.com/talentoak/approval-engine/internal/domain/entity"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Resolver maps abstract approver roles to concrete identities relative to a
// requester. It is a pure lookup over the read-only identity directory.
type Resolver struct {
	users  port.UserRepository
	logger Logger
}

// New creates an identity resolver.
func New(users port.UserRepository, logger Logger) *Resolver {
	return &Resolver{
		users:  users,
		logger: logger,
	}
}

// Resolve returns the approver for the given abstract role, or (nil, nil)
// when nobody matches. A nil result is a valid outcome, not an error; the
// chain builder decides what an unresolved step means.
func (r *Resolver) Resolve(ctx context.Context, role string, requester *entity.User) (*entity.User, error) {
	switch role {
	case entity.RoleEmployee:
		return requester, nil

	case entity.RoleManager:
		if requester.ManagerID == "" {
			return nil, nil
		}
		return r.users.GetByID(ctx, requester.ManagerID)

	case entity.RoleHR, entity.RoleAdmin, entity.RoleCompanyAdmin, entity.RoleCEO:
		return r.users.FirstActiveByRole(ctx, role)

	case entity.RoleFinance:
		return r.users.FirstActivePayrollManager(ctx)

	case entity.RoleDepartmentHead:
		return r.users.DepartmentHead(ctx, requester.Department)

	default:
		return nil, fmt.Errorf("unknown approver role %q", role)
	}
}
