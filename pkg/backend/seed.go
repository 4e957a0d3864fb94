package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tendant/rbac-console/pkg/role"
	"github.com/tendant/rbac-console/pkg/store"
	"github.com/tendant/rbac-console/pkg/user"
)

// SeedData has the shape of a json-server db.json file.
type SeedData struct {
	Users []user.User `json:"users"`
	Roles []role.Role `json:"roles"`
}

// LoadSeedFile reads a db.json-shaped file.
func LoadSeedFile(path string) (SeedData, error) {
	var data SeedData
	raw, err := os.ReadFile(path)
	if err != nil {
		return data, fmt.Errorf("failed to read seed file: %w", err)
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	return data, nil
}

// Apply creates the seed records missing from the backend's repositories.
// Roles go first so users can be resolved against them.
func (d SeedData) Apply(ctx context.Context, b Backend) (roles, users int, err error) {
	roles, err = store.Seed(ctx, b.Roles, d.Roles)
	if err != nil {
		return roles, 0, fmt.Errorf("failed to seed roles: %w", err)
	}
	resolved := make([]user.User, 0, len(d.Users))
	for _, u := range d.Users {
		u, err = b.ResolveUserRole(ctx, u)
		if err != nil {
			return roles, 0, fmt.Errorf("failed to seed user %d: %w", u.ID, err)
		}
		resolved = append(resolved, u)
	}
	users, err = store.Seed(ctx, b.Users, resolved)
	if err != nil {
		return roles, users, fmt.Errorf("failed to seed users: %w", err)
	}
	return roles, users, nil
}
