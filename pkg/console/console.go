package console

import (
	"bytes"
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tendant/rbac-console/pkg/errors"
	"github.com/tendant/rbac-console/pkg/role"
	"github.com/tendant/rbac-console/pkg/screen"
	"github.com/tendant/rbac-console/pkg/user"
)

// Config wires the console to the REST backend.
type Config struct {
	Roles      screen.Client[role.Role]
	Users      screen.Client[user.User]
	Vocabulary []string
	SessionTTL time.Duration
	Logger     *slog.Logger
}

// Console serves the Users and Roles pages.
type Console struct {
	roles      screen.Client[role.Role]
	users      screen.Client[user.User]
	vocabulary []string
	sessions   *SessionStore
	pages      map[string]*template.Template
	logger     *slog.Logger
}

func New(cfg Config) (*Console, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pages, err := parsePages(screenRoles, screenUsers)
	if err != nil {
		return nil, errors.InternalWrap(err, "parse console templates")
	}
	return &Console{
		roles:      cfg.Roles,
		users:      cfg.Users,
		vocabulary: cfg.Vocabulary,
		sessions:   NewSessionStore(cfg.SessionTTL, logger),
		pages:      pages,
		logger:     logger,
	}, nil
}

// Sessions exposes the session store so the caller can run its sweeper.
func (c *Console) Sessions() *SessionStore {
	return c.sessions
}

// Routes mounts the console pages and form actions on r.
func (c *Console) Routes(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/users", http.StatusFound)
	})

	r.Route("/roles", func(r chi.Router) {
		r.Get("/", c.RolesPage)
		r.Post("/add/open", c.roleAction(func(_ *http.Request, s *role.Screen) error {
			s.OpenAdd()
			return nil
		}))
		r.Post("/{id}/edit/open", c.roleAction(func(r *http.Request, s *role.Screen) error {
			id, err := pathID(r)
			if err != nil {
				return err
			}
			return s.OpenEdit(id)
		}))
		r.Post("/dialog/cancel", c.roleAction(func(_ *http.Request, s *role.Screen) error {
			s.Cancel()
			return nil
		}))
		r.Post("/add", c.roleAction(func(r *http.Request, s *role.Screen) error {
			if err := expectDialog(s.Dialog, screen.DialogAdd); err != nil {
				return err
			}
			if err := applyRoleForm(r, s); err != nil {
				return err
			}
			_, err := s.SubmitAdd(backendContext(r))
			return err
		}))
		r.Post("/edit", c.roleAction(func(r *http.Request, s *role.Screen) error {
			if err := expectDialog(s.Dialog, screen.DialogEdit); err != nil {
				return err
			}
			if err := applyRoleForm(r, s); err != nil {
				return err
			}
			_, err := s.SubmitEdit(backendContext(r))
			return err
		}))
		r.Post("/{id}/delete", c.roleAction(func(r *http.Request, s *role.Screen) error {
			id, err := pathID(r)
			if err != nil {
				return err
			}
			return s.DeleteRecord(backendContext(r), id)
		}))
	})

	r.Route("/users", func(r chi.Router) {
		r.Get("/", c.UsersPage)
		r.Post("/add/open", c.userAction(func(_ *http.Request, s *user.Screen) error {
			s.OpenAdd()
			return nil
		}))
		r.Post("/{id}/edit/open", c.userAction(func(r *http.Request, s *user.Screen) error {
			id, err := pathID(r)
			if err != nil {
				return err
			}
			return s.OpenEdit(id)
		}))
		r.Post("/dialog/cancel", c.userAction(func(_ *http.Request, s *user.Screen) error {
			s.Cancel()
			return nil
		}))
		r.Post("/add", c.userAction(func(r *http.Request, s *user.Screen) error {
			if err := expectDialog(s.Dialog, screen.DialogAdd); err != nil {
				return err
			}
			if err := applyUserForm(r, s, true); err != nil {
				return err
			}
			_, err := s.SubmitAdd(backendContext(r))
			return err
		}))
		r.Post("/edit", c.userAction(func(r *http.Request, s *user.Screen) error {
			if err := expectDialog(s.Dialog, screen.DialogEdit); err != nil {
				return err
			}
			if err := applyUserForm(r, s, false); err != nil {
				return err
			}
			_, err := s.SubmitEdit(backendContext(r))
			return err
		}))
		r.Post("/{id}/delete", c.userAction(func(r *http.Request, s *user.Screen) error {
			id, err := pathID(r)
			if err != nil {
				return err
			}
			return s.DeleteRecord(backendContext(r), id)
		}))
	})
}

// RolesPage mounts the Role screen when it is not the active one (or ?reload=1) and renders it.
func (c *Console) RolesPage(w http.ResponseWriter, r *http.Request) {
	sess := c.sessions.Get(w, r)
	s, mounted := sess.mountRoles(r.URL.Query().Get("reload") == "1", c.newRoleScreen)
	if mounted {
		if err := s.Load(backendContext(r)); err != nil {
			sess.SetNotice("Could not load roles: " + noticeFor(err))
		}
	}
	c.render(w, r, screenRoles, newRolesPage(s, sess.TakeNotice()))
}

// UsersPage mounts the User screen when it is not the active one (or ?reload=1) and renders it.
func (c *Console) UsersPage(w http.ResponseWriter, r *http.Request) {
	sess := c.sessions.Get(w, r)
	s, mounted := sess.mountUsers(r.URL.Query().Get("reload") == "1", c.newUserScreen)
	if mounted {
		if err := s.Load(backendContext(r)); err != nil {
			if state, _ := s.State(); state == screen.StateFailed {
				sess.SetNotice("Could not load users: " + noticeFor(err))
			} else {
				sess.SetNotice("Could not load role options: " + noticeFor(err))
			}
		}
	}
	c.render(w, r, screenUsers, newUsersPage(s, sess.TakeNotice()))
}

func (c *Console) newRoleScreen() *role.Screen {
	return role.NewScreen(c.roles, role.WithLogger(c.logger), role.WithVocabulary(c.vocabulary))
}

func (c *Console) newUserScreen() *user.Screen {
	return user.NewScreen(c.users, c.roles, c.logger)
}

// roleAction runs fn against the mounted Role screen and redirects back to the page.
// A form posted while the Role screen is not mounted only mounts it.
func (c *Console) roleAction(fn func(*http.Request, *role.Screen) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := c.sessions.Get(w, r)
		if s := sess.RoleScreen(); s != nil {
			if err := fn(r, s); err != nil {
				sess.SetNotice(noticeFor(err))
			}
		}
		http.Redirect(w, r, "/roles", http.StatusSeeOther)
	}
}

func (c *Console) userAction(fn func(*http.Request, *user.Screen) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := c.sessions.Get(w, r)
		if s := sess.UserScreen(); s != nil {
			if err := fn(r, s); err != nil {
				sess.SetNotice(noticeFor(err))
			}
		}
		http.Redirect(w, r, "/users", http.StatusSeeOther)
	}
}

func (c *Console) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := c.pages[name].ExecuteTemplate(&buf, "base", data); err != nil {
		c.logger.ErrorContext(r.Context(), "Failed to render page", "page", name, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// expectDialog fails unless the dialog open on the screen is want, so a form
// posted for one dialog never lands in the other's draft.
func expectDialog[T any](dialog func() (screen.DialogMode, T), want screen.DialogMode) error {
	if mode, _ := dialog(); mode != want {
		return errors.Newf(errors.ErrCodeInvalidState, "%s dialog is not open", want)
	}
	return nil
}

func applyRoleForm(r *http.Request, s *role.Screen) error {
	if err := r.ParseForm(); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid form")
	}
	if err := s.SetName(r.PostForm.Get("name")); err != nil {
		return err
	}
	return s.SetChecked(r.PostForm["permissions"])
}

func applyUserForm(r *http.Request, s *user.Screen, adding bool) error {
	if err := r.ParseForm(); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid form")
	}
	if adding {
		if err := s.SetName(r.PostForm.Get("name")); err != nil {
			return err
		}
	}
	roleID, err := formID(r.PostForm.Get("role"))
	if err != nil {
		return err
	}
	if err := s.SetRole(roleID); err != nil {
		return err
	}
	return s.SetStatus(user.Status(r.PostForm.Get("status")))
}

// backendContext detaches backend calls from the browser request.
// The resource client's timeout bounds them.
func backendContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func pathID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.InvalidInput("id", raw+" is not an integer")
	}
	return id, nil
}

// formID parses a select value. The empty placeholder is 0.
func formID(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.InvalidInput("role", raw+" is not a role id")
	}
	return id, nil
}

// noticeFor turns an error into the message shown above the table.
func noticeFor(err error) string {
	switch errors.GetCode(err) {
	case errors.ErrCodeValidationFailed, errors.ErrCodeMissingRequired:
		details := errors.GetDetails(err)
		if _, fromServer := details["status"]; fromServer || len(details) == 0 {
			if msg := serverMessage(details); msg != "" {
				return "The server rejected the record: " + msg + "."
			}
			return "The server rejected the record as invalid."
		}
		fields := make([]string, 0, len(details))
		for field := range details {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		return "Please fill in valid values for: " + strings.Join(fields, ", ") + "."
	case errors.ErrCodeNotFound:
		return "The record was not found on the server."
	case errors.ErrCodeConflict, errors.ErrCodeAlreadyExists:
		if msg := serverMessage(errors.GetDetails(err)); msg != "" {
			return "The server refused the change: " + msg + "."
		}
		return "The change conflicts with another one in progress or on the server."
	case errors.ErrCodeTransport:
		return "The server could not complete the request. Try again."
	case errors.ErrCodeInvalidState:
		return "That action is not available right now."
	case errors.ErrCodeInvalidInput:
		var e *errors.Error
		if errors.As(err, &e) {
			return e.Message
		}
		return err.Error()
	default:
		return "Something went wrong."
	}
}

func serverMessage(details map[string]interface{}) string {
	msg, _ := details["message"].(string)
	return msg
}
