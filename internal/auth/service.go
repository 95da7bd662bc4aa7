package auth

import (
	"context"
	"strings"

	"github.com/gatehouse/gatehouse/internal/rbac"
	"github.com/gatehouse/gatehouse/internal/shared"
)

// RoleDirectory is the slice of the rbac service the auth flows need.
type RoleDirectory interface {
	EnsureRole(ctx context.Context, name string) (rbac.Role, error)
	RolesForUser(ctx context.Context, userID int64) ([]rbac.Role, error)
}

// TokenIssuer signs identity plus authorization claims into a bearer token.
type TokenIssuer interface {
	Issue(userID int64, name string, roles, permissions []string) (string, error)
}

// Service wraps authentication business rules. Login and Register both end
// in token issuance: credentials are verified, the role graph is loaded,
// permissions are flattened, and the result is frozen into the token.
type Service struct {
	repo   Repository
	roles  RoleDirectory
	tokens TokenIssuer
}

// NewService constructs a new Service.
func NewService(repo Repository, roles RoleDirectory, tokens TokenIssuer) *Service {
	return &Service{repo: repo, roles: roles, tokens: tokens}
}

// RegisterInput carries the registration payload, already validated at the
// handler.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Password  string
}

// Login validates email/password credentials and issues a token. An unknown
// email surfaces as shared.ErrNotFound; a failed verify (wrong password or
// corrupt stored hash alike) as shared.ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return "", err
	}
	if !VerifyPassword(user.PasswordHash, password) {
		return "", shared.ErrInvalidCredentials
	}
	roles, err := s.roles.RolesForUser(ctx, user.ID)
	if err != nil {
		return "", err
	}
	return s.tokens.Issue(user.ID, user.FirstName, rbac.RoleNames(roles), rbac.ResolvePermissions(roles))
}

// Register creates the account, attaches the default role (created on first
// use with no permissions), and issues a token for the new user. Returns
// the token together with the effective permission route names.
func (s *Service) Register(ctx context.Context, input RegisterInput) (string, []string, error) {
	exists, err := s.repo.EmailOrPhoneExists(ctx, input.Email, input.Phone)
	if err != nil {
		return "", nil, err
	}
	if exists {
		return "", nil, shared.ErrUserExists
	}

	role, err := s.roles.EnsureRole(ctx, rbac.DefaultRoleName)
	if err != nil {
		return "", nil, err
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return "", nil, err
	}

	user, err := s.repo.CreateUser(ctx, User{
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        strings.TrimSpace(input.Email),
		Phone:        strings.TrimSpace(input.Phone),
		PasswordHash: hash,
	}, role.ID)
	if err != nil {
		return "", nil, err
	}

	perms := rbac.ResolvePermissions([]rbac.Role{role})
	tok, err := s.tokens.Issue(user.ID, user.FirstName, []string{role.Name}, perms)
	if err != nil {
		return "", nil, err
	}
	if perms == nil {
		perms = []string{}
	}
	return tok, perms, nil
}

// GetUser fetches the sanitized user together with its role memberships.
func (s *Service) GetUser(ctx context.Context, id int64) (*User, []rbac.Role, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	roles, err := s.roles.RolesForUser(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, roles, nil
}
