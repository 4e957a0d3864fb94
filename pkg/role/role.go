package role

import "slices"

// DefaultPermissions is the checkbox vocabulary offered by the console.
var DefaultPermissions = []string{"Read", "Write", "Delete"}

// Role is the record stored under /roles.
type Role struct {
	ID          int      `json:"id"`
	Name        string   `json:"name" validate:"required"`
	Permissions []string `json:"permissions"`
}

func (r Role) RecordID() int { return r.ID }

func (r Role) WithID(id int) Role {
	r.ID = id
	return r
}

// Blank is the draft opened by the add dialog.
func Blank() Role {
	return Role{Permissions: []string{}}
}

// Has reports whether the role grants permission p.
func (r Role) Has(p string) bool {
	return slices.Contains(r.Permissions, p)
}

// TogglePermission returns a new list: perms without p when p is present,
// otherwise perms with p appended. perms is never modified.
func TogglePermission(perms []string, p string) []string {
	out := make([]string, 0, len(perms)+1)
	found := false
	for _, existing := range perms {
		if existing == p {
			found = true
			continue
		}
		out = append(out, existing)
	}
	if !found {
		out = append(out, p)
	}
	return out
}

// Names returns the role names in collection order.
func Names(roles []Role) []string {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return names
}
