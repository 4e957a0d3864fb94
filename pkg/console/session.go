package console

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/rbac-console/pkg/role"
	"github.com/tendant/rbac-console/pkg/user"
)

// SessionCookie carries the browser's session id.
const SessionCookie = "rbac_console_session"

const (
	screenRoles = "roles"
	screenUsers = "users"
)

// Session is one browser's console state: the screen currently mounted and a one-shot notice.
// Only one screen is mounted at a time; navigating to the other screen unmounts it.
type Session struct {
	ID string

	mu       sync.Mutex
	active   string
	roles    *role.Screen
	users    *user.Screen
	notice   string
	lastSeen time.Time
}

// Active returns the name of the mounted screen, or "".
func (s *Session) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// RoleScreen returns the mounted Role screen, or nil when it is not mounted.
func (s *Session) RoleScreen() *role.Screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != screenRoles {
		return nil
	}
	return s.roles
}

// UserScreen returns the mounted User screen, or nil when it is not mounted.
func (s *Session) UserScreen() *user.Screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != screenUsers {
		return nil
	}
	return s.users
}

// mountRoles returns the mounted Role screen, replacing it with a fresh one built by
// newScreen when another screen is active or remount is set. The bool reports a new mount.
func (s *Session) mountRoles(remount bool, newScreen func() *role.Screen) (*role.Screen, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == screenRoles && s.roles != nil && !remount {
		return s.roles, false
	}
	s.active = screenRoles
	s.roles = newScreen()
	s.users = nil
	return s.roles, true
}

func (s *Session) mountUsers(remount bool, newScreen func() *user.Screen) (*user.Screen, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == screenUsers && s.users != nil && !remount {
		return s.users, false
	}
	s.active = screenUsers
	s.users = newScreen()
	s.roles = nil
	return s.users, true
}

// SetNotice stores a message shown on the next page render.
func (s *Session) SetNotice(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = msg
}

// TakeNotice returns and clears the pending notice.
func (s *Session) TakeNotice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := s.notice
	s.notice = ""
	return msg
}

// SessionStore keeps sessions in memory and expires idle ones.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

func NewSessionStore(ttl time.Duration, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

// Get returns the request's session, starting a new one (and setting the cookie) when the
// cookie is missing, unknown or expired.
func (st *SessionStore) Get(w http.ResponseWriter, r *http.Request) *Session {
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	if c, err := r.Cookie(SessionCookie); err == nil {
		if sess, ok := st.sessions[c.Value]; ok {
			sess.mu.Lock()
			expired := st.ttl > 0 && now.Sub(sess.lastSeen) > st.ttl
			if !expired {
				sess.lastSeen = now
			}
			sess.mu.Unlock()
			if !expired {
				return sess
			}
			delete(st.sessions, c.Value)
		}
	}

	sess := &Session{ID: uuid.NewString(), lastSeen: now}
	st.sessions[sess.ID] = sess
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	st.logger.Debug("Started console session", "session", sess.ID)
	return sess
}

// Sweep drops sessions idle for longer than the TTL and returns how many were dropped.
func (st *SessionStore) Sweep() int {
	if st.ttl <= 0 {
		return 0
	}
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()
	dropped := 0
	for id, sess := range st.sessions {
		sess.mu.Lock()
		idle := now.Sub(sess.lastSeen)
		sess.mu.Unlock()
		if idle > st.ttl {
			delete(st.sessions, id)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (st *SessionStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.Sweep(); n > 0 {
				st.logger.Info("Expired console sessions", "count", n)
			}
		}
	}
}
