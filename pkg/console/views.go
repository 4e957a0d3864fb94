package console

import (
	"slices"
	"strconv"

	"github.com/tendant/rbac-console/pkg/role"
	"github.com/tendant/rbac-console/pkg/screen"
	"github.com/tendant/rbac-console/pkg/user"
)

type page struct {
	Title  string
	Active string
	Notice string
	State  string
}

type rolesPage struct {
	page
	Rows   []role.Role
	Dialog *roleDialog
}

type roleDialog struct {
	Title   string
	Action  string
	Submit  string
	Draft   role.Role
	Options []checkbox
	Extra   []string
}

type checkbox struct {
	Value   string
	Checked bool
}

type usersPage struct {
	page
	Rows   []userRow
	Dialog *userDialog
}

type userRow struct {
	User     user.User
	RoleName string
	Orphan   bool
}

type userDialog struct {
	Title      string
	Action     string
	Submit     string
	Draft      user.User
	NameLocked bool
	Roles      []option
	Statuses   []option
}

type option struct {
	Value    string
	Label    string
	Selected bool
}

func newRolesPage(s *role.Screen, notice string) rolesPage {
	state, _ := s.State()
	p := rolesPage{
		page: page{Title: "Roles", Active: screenRoles, Notice: notice, State: state.String()},
		Rows: s.Records(),
	}

	mode, draft := s.Dialog()
	if mode == screen.DialogClosed {
		return p
	}
	d := &roleDialog{Draft: draft}
	if mode == screen.DialogAdd {
		d.Title, d.Action, d.Submit = "Add Role", "/roles/add", "Add"
	} else {
		d.Title, d.Action, d.Submit = "Edit Role", "/roles/edit", "Save"
	}
	vocabulary := s.Vocabulary()
	for _, perm := range vocabulary {
		d.Options = append(d.Options, checkbox{Value: perm, Checked: draft.Has(perm)})
	}
	for _, perm := range draft.Permissions {
		if !slices.Contains(vocabulary, perm) {
			d.Extra = append(d.Extra, perm)
		}
	}
	p.Dialog = d
	return p
}

func newUsersPage(s *user.Screen, notice string) usersPage {
	state, _ := s.State()
	p := usersPage{
		page: page{Title: "Users", Active: screenUsers, Notice: notice, State: state.String()},
	}

	orphans := make(map[int]bool)
	for _, u := range s.Orphans() {
		orphans[u.ID] = true
	}
	for _, u := range s.Records() {
		p.Rows = append(p.Rows, userRow{User: u, RoleName: s.RoleName(u), Orphan: orphans[u.ID]})
	}

	mode, draft := s.Dialog()
	if mode == screen.DialogClosed {
		return p
	}
	d := &userDialog{Draft: draft}
	if mode == screen.DialogAdd {
		d.Title, d.Action, d.Submit = "Add User", "/users/add", "Add"
	} else {
		d.Title, d.Action, d.Submit = "Edit User", "/users/edit", "Save"
		d.NameLocked = true
	}
	for _, opt := range s.RoleOptions() {
		d.Roles = append(d.Roles, option{Value: strconv.Itoa(opt.ID), Label: opt.Name, Selected: opt.ID == draft.RoleID})
	}
	for _, status := range user.Statuses {
		d.Statuses = append(d.Statuses, option{Value: string(status), Label: string(status), Selected: status == draft.Status})
	}
	p.Dialog = d
	return p
}
