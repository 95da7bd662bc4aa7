package rbac

import "time"

// Role represents a named grouping of permissions. A role may carry zero
// permissions.
type Role struct {
	ID          int64
	Name        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Permissions []Permission
}

// Permission represents an atomic capability. RouteName is the authorization
// key compared at enforcement time; Name and Category are display metadata.
// The permission catalog is seeded at startup and immutable afterwards.
type Permission struct {
	ID        int64
	RouteName string
	Name      string
	Category  string
}
