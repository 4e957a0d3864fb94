package console

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/rbac-console/pkg/backend"
	"github.com/tendant/rbac-console/pkg/errors"
	"github.com/tendant/rbac-console/pkg/resource"
	"github.com/tendant/rbac-console/pkg/role"
	"github.com/tendant/rbac-console/pkg/user"
)

type testEnv struct {
	backend backend.Backend
	console *httptest.Server
	client  *http.Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	b := backend.NewInMemory()
	_, err := b.Roles.Create(ctx, role.Role{ID: 1, Name: "Admin", Permissions: []string{"Read", "Write"}})
	require.NoError(t, err)
	_, err = b.Users.Create(ctx, user.User{ID: 1, Name: "alice", RoleID: 1, Role: "Admin", Status: user.StatusActive})
	require.NoError(t, err)

	h, err := b.Handler(ctx, nil)
	require.NoError(t, err)
	api := httptest.NewServer(h)
	t.Cleanup(api.Close)

	return &testEnv{backend: b, console: newConsoleServer(t, api.URL), client: newBrowser(t)}
}

func newConsoleServer(t *testing.T, apiURL string) *httptest.Server {
	t.Helper()
	c, err := New(Config{
		Roles: resource.NewClient[role.Role](apiURL, "roles"),
		Users: resource.NewClient[user.User](apiURL, "users"),
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	c.Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func (e *testEnv) get(t *testing.T, path string) string {
	t.Helper()
	resp, err := e.client.Get(e.console.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func (e *testEnv) post(t *testing.T, path string, form url.Values) string {
	t.Helper()
	resp, err := e.client.PostForm(e.console.URL+path, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestConsole_RootRedirectsToUsers(t *testing.T) {
	env := newTestEnv(t)
	body := env.get(t, "/")
	assert.Contains(t, body, "User Management")
	assert.Contains(t, body, "<th>Name</th><th>Role</th><th>Status</th><th>Actions</th>")
	assert.Contains(t, body, "alice")
}

func TestConsole_RolesPage(t *testing.T) {
	env := newTestEnv(t)
	body := env.get(t, "/roles")

	assert.Contains(t, body, "RBAC UI")
	assert.Contains(t, body, "<th>Role Name</th><th>Permissions</th><th>Actions</th>")
	assert.Contains(t, body, "Read, Write")
	assert.NotContains(t, body, `role="dialog"`)
}

func TestConsole_AddRole(t *testing.T) {
	env := newTestEnv(t)
	env.get(t, "/roles")

	body := env.post(t, "/roles/add/open", nil)
	assert.Contains(t, body, "<h3>Add Role</h3>")
	assert.Contains(t, body, `value="Delete"`)

	body = env.post(t, "/roles/add", url.Values{"name": {"Viewer"}, "permissions": {"Read"}})
	assert.NotContains(t, body, `role="dialog"`)
	assert.Contains(t, body, "<td>Viewer</td>")

	stored, err := env.backend.Roles.Get(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, role.Role{ID: 2, Name: "Viewer", Permissions: []string{"Read"}}, stored)
}

func TestConsole_AddRoleWithoutNameKeepsDialog(t *testing.T) {
	env := newTestEnv(t)
	env.get(t, "/roles")
	env.post(t, "/roles/add/open", nil)

	body := env.post(t, "/roles/add", url.Values{"name": {""}, "permissions": {"Read"}})
	assert.Contains(t, body, "Please fill in valid values for: Name.")
	assert.Contains(t, body, "<h3>Add Role</h3>")

	list, err := env.backend.Roles.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestConsole_EditAndDeleteRole(t *testing.T) {
	env := newTestEnv(t)
	env.get(t, "/roles")

	body := env.post(t, "/roles/1/edit/open", nil)
	assert.Contains(t, body, "<h3>Edit Role</h3>")
	assert.Contains(t, body, `name="name" value="Admin"`)

	body = env.post(t, "/roles/edit", url.Values{"name": {"Administrators"}, "permissions": {"Read", "Delete"}})
	assert.Contains(t, body, "<td>Administrators</td>")
	assert.Contains(t, body, "Read, Delete")

	body = env.get(t, "/users")
	assert.Contains(t, body, "<td>Administrators</td>", "users follow the rename")

	env.get(t, "/roles")
	body = env.post(t, "/roles/1/delete", nil)
	assert.Contains(t, body, "The server refused the change: role 1 is still assigned to 1 user(s).")
	assert.Contains(t, body, "<td>Administrators</td>")

	env.get(t, "/users")
	env.post(t, "/users/1/delete", nil)
	env.get(t, "/roles")
	body = env.post(t, "/roles/1/delete", nil)
	assert.NotContains(t, body, "Administrators")
	_, err := env.backend.Roles.Get(context.Background(), 1)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
}

func TestConsole_CancelDialog(t *testing.T) {
	env := newTestEnv(t)
	env.get(t, "/roles")
	env.post(t, "/roles/1/edit/open", nil)

	body := env.post(t, "/roles/dialog/cancel", url.Values{"name": {"ignored"}})
	assert.NotContains(t, body, `role="dialog"`)
	assert.NotContains(t, body, "ignored")
}

func TestConsole_UserNameLockedOnEdit(t *testing.T) {
	env := newTestEnv(t)
	env.get(t, "/users")

	body := env.post(t, "/users/1/edit/open", nil)
	assert.Contains(t, body, "<h3>Edit User</h3>")
	assert.Contains(t, body, `value="alice" disabled`)

	body = env.post(t, "/users/edit", url.Values{"name": {"mallory"}, "role": {"1"}, "status": {"Inactive"}})
	assert.NotContains(t, body, `role="dialog"`)

	stored, err := env.backend.Users.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, user.User{ID: 1, Name: "alice", RoleID: 1, Role: "Admin", Status: user.StatusInactive}, stored)
}

func TestConsole_AddUser(t *testing.T) {
	env := newTestEnv(t)
	env.get(t, "/users")
	env.post(t, "/users/add/open", nil)

	body := env.post(t, "/users/add", url.Values{"name": {"bob"}, "role": {"1"}, "status": {"Active"}})
	assert.NotContains(t, body, `role="dialog"`)
	assert.Contains(t, body, "<td>bob</td>")

	stored, err := env.backend.Users.Get(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, user.User{ID: 2, Name: "bob", RoleID: 1, Role: "Admin", Status: user.StatusActive}, stored)
}

func TestConsole_AddUserBadRoleValue(t *testing.T) {
	env := newTestEnv(t)
	env.get(t, "/users")
	env.post(t, "/users/add/open", nil)

	body := env.post(t, "/users/add", url.Values{"name": {"bob"}, "role": {"Admin"}, "status": {"Active"}})
	assert.Contains(t, body, "invalid role: Admin is not a role id")
	assert.Contains(t, body, "<h3>Add User</h3>")
}

func TestConsole_RoleOptionsStaleUntilReload(t *testing.T) {
	env := newTestEnv(t)
	env.get(t, "/users")

	_, err := env.backend.Roles.Create(context.Background(), role.Role{ID: 2, Name: "Auditor", Permissions: []string{}})
	require.NoError(t, err)

	body := env.post(t, "/users/add/open", nil)
	assert.Contains(t, body, `<option value="1">Admin</option>`)
	assert.NotContains(t, body, "Auditor")

	body = env.get(t, "/users?reload=1")
	assert.NotContains(t, body, `role="dialog"`, "remount discards the open dialog")
	body = env.post(t, "/users/add/open", nil)
	assert.Contains(t, body, `<option value="2">Auditor</option>`)
}

func TestConsole_NavigationRemounts(t *testing.T) {
	env := newTestEnv(t)
	env.get(t, "/roles")
	env.post(t, "/roles/add/open", nil)

	env.get(t, "/users")
	body := env.get(t, "/roles")
	assert.NotContains(t, body, `role="dialog"`)

	// An action for a screen that is not mounted only mounts it.
	env.get(t, "/users")
	body = env.post(t, "/roles/1/delete", nil)
	assert.Contains(t, body, "<td>Admin</td>")
}

func TestConsole_OrphanedUserIsMarked(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.backend.Users.Create(context.Background(), user.User{ID: 2, Name: "bob", Role: "Legacy", Status: user.StatusActive})
	require.NoError(t, err)

	body := env.get(t, "/users")
	assert.Contains(t, body, `class="orphan" title="Role Legacy no longer exists"`)
}

func TestConsole_BackendDown(t *testing.T) {
	api := httptest.NewServer(http.NotFoundHandler())
	apiURL := api.URL
	api.Close()

	env := &testEnv{console: newConsoleServer(t, apiURL), client: newBrowser(t)}
	body := env.get(t, "/roles")
	assert.Contains(t, body, "Could not load roles: The server could not complete the request. Try again.")
	assert.True(t, strings.Contains(body, "<tbody>"))
}

func TestNoticeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"local validation", errors.ValidationFailed(map[string]interface{}{"Role": "required", "Name": "required"}), "Please fill in valid values for: Name, Role."},
		{"server validation", errors.New(errors.ErrCodeValidationFailed, "x").WithDetail("status", 400), "The server rejected the record as invalid."},
		{"not found", errors.NotFound("roles", "1"), "The record was not found on the server."},
		{"conflict", errors.Conflict("busy"), "The change conflicts with another one in progress or on the server."},
		{"server conflict", errors.Conflict("x").WithDetail("status", 409).WithDetail("message", "role 1 is still assigned to 2 user(s)"), "The server refused the change: role 1 is still assigned to 2 user(s)."},
		{"server validation with reason", errors.New(errors.ErrCodeValidationFailed, "x").WithDetail("status", 400).WithDetail("message", "unknown role: no role with id 9"), "The server rejected the record: unknown role: no role with id 9."},
		{"transport", errors.Transport(nil, "down"), "The server could not complete the request. Try again."},
		{"invalid input", errors.InvalidInput("id", "abc is not an integer"), "invalid id: abc is not an integer"},
		{"plain error", io.EOF, "Something went wrong."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, noticeFor(tt.err))
		})
	}
}

func TestConsole_FormForOtherDialogIsRejected(t *testing.T) {
	tests := []struct {
		name   string
		page   string
		open   string
		submit string
		form   url.Values
		title  string
	}{
		{"role edit while adding", "/roles", "/roles/add/open", "/roles/edit", url.Values{"name": {"Hijack"}, "permissions": {"Read"}}, "<h3>Add Role</h3>"},
		{"role add while editing", "/roles", "/roles/1/edit/open", "/roles/add", url.Values{"name": {"Hijack"}, "permissions": {"Read"}}, "<h3>Edit Role</h3>"},
		{"user edit while adding", "/users", "/users/add/open", "/users/edit", url.Values{"name": {"Hijack"}, "role": {"1"}, "status": {"Active"}}, "<h3>Add User</h3>"},
		{"user add while editing", "/users", "/users/1/edit/open", "/users/add", url.Values{"name": {"Hijack"}, "role": {"1"}, "status": {"Inactive"}}, "<h3>Edit User</h3>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.get(t, tt.page)
			env.post(t, tt.open, nil)

			body := env.post(t, tt.submit, tt.form)
			assert.Contains(t, body, "That action is not available right now.")
			assert.Contains(t, body, tt.title, "the open dialog stays open")
			assert.NotContains(t, body, "Hijack", "the draft is untouched")

			roles, err := env.backend.Roles.List(context.Background())
			require.NoError(t, err)
			assert.Len(t, roles, 1)
			stored, err := env.backend.Users.Get(context.Background(), 1)
			require.NoError(t, err)
			assert.Equal(t, user.StatusActive, stored.Status)
		})
	}
}
