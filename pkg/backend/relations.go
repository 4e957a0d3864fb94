package backend

import (
	"context"
	"fmt"

	"github.com/tendant/rbac-console/pkg/errors"
	"github.com/tendant/rbac-console/pkg/role"
	"github.com/tendant/rbac-console/pkg/user"
)

// ResolveUserRole checks that u references an existing role and copies the
// role's name onto u. RoleID wins over the name; records carrying only a name
// are matched against role names, lowest id first.
func (b Backend) ResolveUserRole(ctx context.Context, u user.User) (user.User, error) {
	if u.RoleID != 0 {
		r, err := b.Roles.Get(ctx, u.RoleID)
		if errors.IsCode(err, errors.ErrCodeNotFound) {
			return u, unknownRole(fmt.Sprintf("no role with id %d", u.RoleID))
		}
		if err != nil {
			return u, err
		}
		u.Role = r.Name
		return u, nil
	}

	if u.Role == "" {
		return u, unknownRole("a role is required")
	}
	roles, err := b.Roles.List(ctx)
	if err != nil {
		return u, err
	}
	var match *role.Role
	for i := range roles {
		if roles[i].Name == u.Role && (match == nil || roles[i].ID < match.ID) {
			match = &roles[i]
		}
	}
	if match == nil {
		return u, unknownRole(fmt.Sprintf("no role named %q", u.Role))
	}
	u.RoleID = match.ID
	return u, nil
}

// ensureRoleUnassigned refuses to delete a role that users still reference,
// by id or, for records without one, by name.
func (b Backend) ensureRoleUnassigned(ctx context.Context, id int) error {
	r, err := b.Roles.Get(ctx, id)
	if errors.IsCode(err, errors.ErrCodeNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	users, err := b.Users.List(ctx)
	if err != nil {
		return err
	}
	var assigned int
	for _, u := range users {
		if u.RoleID == id || (u.RoleID == 0 && u.Role == r.Name) {
			assigned++
		}
	}
	if assigned > 0 {
		return errors.Conflict(fmt.Sprintf("role %d is still assigned to %d user(s)", id, assigned))
	}
	return nil
}

// relabelUsers copies a renamed role's name onto the users referencing it.
func (b Backend) relabelUsers(ctx context.Context, r role.Role) error {
	users, err := b.Users.List(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.RoleID != r.ID || u.Role == r.Name {
			continue
		}
		u.Role = r.Name
		if _, err := b.Users.Update(ctx, u.ID, u); err != nil {
			return fmt.Errorf("failed to relabel user %d: %w", u.ID, err)
		}
	}
	return nil
}

func unknownRole(reason string) *errors.Error {
	return errors.New(errors.ErrCodeValidationFailed, "unknown role: "+reason).WithDetail("role", reason)
}
