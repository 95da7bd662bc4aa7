package rbac

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/gatehouse/gatehouse/internal/shared"
)

// DefaultRoleName is the role attached to every new registration.
const DefaultRoleName = "User"

// Service orchestrates role and permission assignment.
type Service struct {
	repo  Repository
	group singleflight.Group
}

// NewService constructs a Service backed by the provided repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListRoles returns all roles with their permissions.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches a role by id.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// ListPermissions returns the seeded permission catalog.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// CreateRole creates a role with the given permission links. The name must
// be non-empty and every permission id must reference a seeded permission.
func (s *Service) CreateRole(ctx context.Context, name string, permissionIDs []int64) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", shared.ErrInvalidArgument)
	}
	if err := s.checkPermissionIDs(ctx, permissionIDs); err != nil {
		return Role{}, err
	}
	return s.repo.CreateRole(ctx, name, dedupeIDs(permissionIDs))
}

// UpdateRole renames the role and replaces its permission links with the new
// set. Not additive: permissions absent from the new set are detached.
func (s *Service) UpdateRole(ctx context.Context, id int64, name string, permissionIDs []int64) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", shared.ErrInvalidArgument)
	}
	if err := s.checkPermissionIDs(ctx, permissionIDs); err != nil {
		return Role{}, err
	}
	return s.repo.UpdateRole(ctx, id, name, dedupeIDs(permissionIDs))
}

// AssignRole links a role to a user after ordered existence and duplicate
// checks: role, then user, then the duplicate guard. Each check
// short-circuits. The storage layer's uniqueness constraint closes the
// remaining window between the duplicate check and the insert.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64) error {
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return err
	}
	exists, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("user %d: %w", userID, shared.ErrNotFound)
	}
	assigned, err := s.repo.IsRoleAssigned(ctx, userID, roleID)
	if err != nil {
		return err
	}
	if assigned {
		return shared.ErrAlreadyAssigned
	}
	return s.repo.AssignRoleToUser(ctx, userID, roleID)
}

// IsRoleAssigned reports role membership without side effects.
func (s *Service) IsRoleAssigned(ctx context.Context, userID, roleID int64) (bool, error) {
	return s.repo.IsRoleAssigned(ctx, userID, roleID)
}

// RolesForUser returns the user's hydrated role memberships.
func (s *Service) RolesForUser(ctx context.Context, userID int64) ([]Role, error) {
	return s.repo.RolesForUser(ctx, userID)
}

// EnsureRole returns the named role, creating it with no permissions when it
// does not exist. Concurrent callers within the process collapse into one
// flight; the repository upsert covers concurrent processes.
func (s *Service) EnsureRole(ctx context.Context, name string) (Role, error) {
	// The flight is shared, so it must not die with the leader's request.
	flightCtx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do("role:"+name, func() (any, error) {
		return s.repo.EnsureRole(flightCtx, name)
	})
	if err != nil {
		return Role{}, err
	}
	return v.(Role), nil
}

func (s *Service) checkPermissionIDs(ctx context.Context, ids []int64) error {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	count, err := s.repo.CountPermissions(ctx, ids)
	if err != nil {
		return err
	}
	if count != len(ids) {
		return fmt.Errorf("%w: unknown permission id", shared.ErrInvalidArgument)
	}
	return nil
}

func dedupeIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
