package rbac

import (
	"context"
	"fmt"
)

// Catalog is the permission reference data seeded at process start. Route
// names are the stable authorization keys; display fields may change between
// releases without affecting issued tokens.
var Catalog = []Permission{
	{RouteName: "users.show", Name: "Show user", Category: "Users"},
	{RouteName: "roles.index", Name: "List roles", Category: "Roles"},
	{RouteName: "roles.show", Name: "Show role", Category: "Roles"},
	{RouteName: "roles.store", Name: "Create role", Category: "Roles"},
	{RouteName: "roles.update", Name: "Update role", Category: "Roles"},
	{RouteName: "roles.assign", Name: "Assign role", Category: "Roles"},
	{RouteName: "permissions.index", Name: "List permissions", Category: "Permissions"},
}

// Seed upserts the permission catalog. Idempotent; safe to run on every
// startup.
func Seed(ctx context.Context, repo Repository) error {
	for _, perm := range Catalog {
		if _, err := repo.UpsertPermission(ctx, perm); err != nil {
			return fmt.Errorf("rbac: seed permission %s: %w", perm.RouteName, err)
		}
	}
	return nil
}
