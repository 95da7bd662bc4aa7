package rbac

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/shared"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockRepository struct {
	mu sync.Mutex

	roles       map[int64]Role
	rolesByName map[string]int64
	permissions map[int64]Permission
	users       map[int64]struct{}
	assignments map[[2]int64]struct{}
	nextRoleID  int64
	nextPermID  int64

	ensureCalls int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		roles:       make(map[int64]Role),
		rolesByName: make(map[string]int64),
		permissions: make(map[int64]Permission),
		users:       make(map[int64]struct{}),
		assignments: make(map[[2]int64]struct{}),
		nextRoleID:  1,
		nextPermID:  1,
	}
}

func (m *mockRepository) addPermission(route string) Permission {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := Permission{ID: m.nextPermID, RouteName: route, Name: route, Category: "Test"}
	m.permissions[p.ID] = p
	m.nextPermID++
	return p
}

func (m *mockRepository) addUser(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = struct{}{}
}

func (m *mockRepository) ListRoles(ctx context.Context) ([]Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, r)
	}
	return out, nil
}

func (m *mockRepository) GetRole(ctx context.Context, id int64) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	return role, nil
}

func (m *mockRepository) EnsureRole(ctx context.Context, name string) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureCalls++
	if id, ok := m.rolesByName[name]; ok {
		return m.roles[id], nil
	}
	role := Role{ID: m.nextRoleID, Name: name}
	m.roles[role.ID] = role
	m.rolesByName[name] = role.ID
	m.nextRoleID++
	return role, nil
}

func (m *mockRepository) CreateRole(ctx context.Context, name string, permissionIDs []int64) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rolesByName[name]; ok {
		return Role{}, shared.ErrInvalidArgument
	}
	role := Role{ID: m.nextRoleID, Name: name}
	for _, id := range permissionIDs {
		role.Permissions = append(role.Permissions, m.permissions[id])
	}
	m.roles[role.ID] = role
	m.rolesByName[name] = role.ID
	m.nextRoleID++
	return role, nil
}

func (m *mockRepository) UpdateRole(ctx context.Context, id int64, name string, permissionIDs []int64) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	if takenBy, ok := m.rolesByName[name]; ok && takenBy != id {
		return Role{}, shared.ErrInvalidArgument
	}
	delete(m.rolesByName, role.Name)
	m.rolesByName[name] = id
	role.Name = name
	role.Permissions = nil
	for _, permID := range permissionIDs {
		role.Permissions = append(role.Permissions, m.permissions[permID])
	}
	m.roles[id] = role
	return role, nil
}

func (m *mockRepository) ListPermissions(ctx context.Context) ([]Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Permission, 0, len(m.permissions))
	for _, p := range m.permissions {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockRepository) CountPermissions(ctx context.Context, ids []int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, id := range ids {
		if _, ok := m.permissions[id]; ok {
			count++
		}
	}
	return count, nil
}

func (m *mockRepository) UpsertPermission(ctx context.Context, perm Permission) (Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.permissions {
		if existing.RouteName == perm.RouteName {
			perm.ID = existing.ID
			m.permissions[perm.ID] = perm
			return perm, nil
		}
	}
	perm.ID = m.nextPermID
	m.permissions[perm.ID] = perm
	m.nextPermID++
	return perm, nil
}

func (m *mockRepository) UserExists(ctx context.Context, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[userID]
	return ok, nil
}

func (m *mockRepository) AssignRoleToUser(ctx context.Context, userID, roleID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]int64{userID, roleID}
	if _, ok := m.assignments[key]; ok {
		return shared.ErrAlreadyAssigned
	}
	m.assignments[key] = struct{}{}
	return nil
}

func (m *mockRepository) IsRoleAssigned(ctx context.Context, userID, roleID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.assignments[[2]int64{userID, roleID}]
	return ok, nil
}

func (m *mockRepository) RolesForUser(ctx context.Context, userID int64) ([]Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Role
	for key := range m.assignments {
		if key[0] == userID {
			out = append(out, m.roles[key[1]])
		}
	}
	return out, nil
}

var _ Repository = (*mockRepository)(nil)

// ============================================================================
// TESTS
// ============================================================================

func TestCreateRoleRequiresName(t *testing.T) {
	svc := NewService(newMockRepository())
	_, err := svc.CreateRole(context.Background(), "   ", nil)
	assert.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestCreateRoleRejectsUnknownPermission(t *testing.T) {
	repo := newMockRepository()
	repo.addPermission("users.show")
	svc := NewService(repo)

	_, err := svc.CreateRole(context.Background(), "Support", []int64{1, 999})
	assert.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestCreateRoleHydratesPermissions(t *testing.T) {
	repo := newMockRepository()
	p := repo.addPermission("users.show")
	svc := NewService(repo)

	role, err := svc.CreateRole(context.Background(), "Support", []int64{p.ID})
	require.NoError(t, err)
	require.Len(t, role.Permissions, 1)
	assert.Equal(t, "users.show", role.Permissions[0].RouteName)
}

func TestUpdateRoleNotFound(t *testing.T) {
	svc := NewService(newMockRepository())
	_, err := svc.UpdateRole(context.Background(), 42, "Renamed", nil)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateRoleReplacesPermissionSet(t *testing.T) {
	repo := newMockRepository()
	a := repo.addPermission("a")
	b := repo.addPermission("b")
	svc := NewService(repo)

	role, err := svc.CreateRole(context.Background(), "Support", []int64{a.ID})
	require.NoError(t, err)

	updated, err := svc.UpdateRole(context.Background(), role.ID, "Support", []int64{b.ID})
	require.NoError(t, err)
	require.Len(t, updated.Permissions, 1)
	assert.Equal(t, "b", updated.Permissions[0].RouteName)
}

func TestUpdateRoleRenameToTakenNameIsInvalidArgument(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	_, err := svc.CreateRole(context.Background(), "Support", nil)
	require.NoError(t, err)
	role, err := svc.CreateRole(context.Background(), "Billing", nil)
	require.NoError(t, err)

	_, err = svc.UpdateRole(context.Background(), role.ID, "Support", nil)
	assert.ErrorIs(t, err, shared.ErrInvalidArgument)

	got, err := svc.GetRole(context.Background(), role.ID)
	require.NoError(t, err)
	assert.Equal(t, "Billing", got.Name)
}

func TestUpdateRoleKeepingOwnNameSucceeds(t *testing.T) {
	repo := newMockRepository()
	p := repo.addPermission("users.show")
	svc := NewService(repo)

	role, err := svc.CreateRole(context.Background(), "Support", nil)
	require.NoError(t, err)

	updated, err := svc.UpdateRole(context.Background(), role.ID, "Support", []int64{p.ID})
	require.NoError(t, err)
	assert.Equal(t, "Support", updated.Name)
	require.Len(t, updated.Permissions, 1)
}

func TestAssignRoleChecksRoleFirst(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(7)
	svc := NewService(repo)

	err := svc.AssignRole(context.Background(), 7, 99)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAssignRoleChecksUserSecond(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	role, err := svc.CreateRole(context.Background(), "Support", nil)
	require.NoError(t, err)

	err = svc.AssignRole(context.Background(), 404, role.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAssignRoleTwiceReturnsConflict(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(7)
	svc := NewService(repo)
	role, err := svc.CreateRole(context.Background(), "Support", nil)
	require.NoError(t, err)

	require.NoError(t, svc.AssignRole(context.Background(), 7, role.ID))
	err = svc.AssignRole(context.Background(), 7, role.ID)
	assert.ErrorIs(t, err, shared.ErrAlreadyAssigned)

	assigned, err := svc.IsRoleAssigned(context.Background(), 7, role.ID)
	require.NoError(t, err)
	assert.True(t, assigned)
}

func TestConcurrentAssignKeepsSingleLink(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(42)
	svc := NewService(repo)
	role, err := svc.CreateRole(context.Background(), "Support", nil)
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- svc.AssignRole(context.Background(), 42, role.ID)
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, shared.ErrAlreadyAssigned)
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestEnsureRoleReusesExisting(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	first, err := svc.EnsureRole(context.Background(), DefaultRoleName)
	require.NoError(t, err)
	second, err := svc.EnsureRole(context.Background(), DefaultRoleName)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Empty(t, first.Permissions)
}

type blockingEnsureRepo struct {
	*mockRepository
	entered chan struct{}
	release chan struct{}
}

func (r *blockingEnsureRepo) EnsureRole(ctx context.Context, name string) (Role, error) {
	r.entered <- struct{}{}
	<-r.release
	if err := ctx.Err(); err != nil {
		return Role{}, err
	}
	return r.mockRepository.EnsureRole(ctx, name)
}

func TestEnsureRoleSurvivesCallerCancellation(t *testing.T) {
	repo := &blockingEnsureRepo{
		mockRepository: newMockRepository(),
		entered:        make(chan struct{}, 2),
		release:        make(chan struct{}),
	}
	svc := NewService(repo)

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := svc.EnsureRole(leaderCtx, DefaultRoleName)
		leaderErr <- err
	}()
	<-repo.entered

	followerErr := make(chan error, 1)
	go func() {
		_, err := svc.EnsureRole(context.Background(), DefaultRoleName)
		followerErr <- err
	}()

	// Cancelling the first caller must not poison the shared flight.
	cancel()
	close(repo.release)

	assert.NoError(t, <-leaderErr)
	assert.NoError(t, <-followerErr)

	role, err := repo.mockRepository.EnsureRole(context.Background(), DefaultRoleName)
	require.NoError(t, err)
	assert.Equal(t, DefaultRoleName, role.Name)
}

func TestSeedIsIdempotent(t *testing.T) {
	repo := newMockRepository()

	require.NoError(t, Seed(context.Background(), repo))
	require.NoError(t, Seed(context.Background(), repo))

	perms, err := repo.ListPermissions(context.Background())
	require.NoError(t, err)
	assert.Len(t, perms, len(Catalog))
}
