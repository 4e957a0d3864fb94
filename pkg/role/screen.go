package role

import (
	"log/slog"
	"slices"

	"github.com/tendant/rbac-console/pkg/errors"
	"github.com/tendant/rbac-console/pkg/screen"
)

// Screen is the Role table screen.
type Screen struct {
	*screen.Screen[Role]
	vocabulary []string
}

type screenOptions struct {
	logger     *slog.Logger
	vocabulary []string
}

// Option configures a role Screen
type Option func(*screenOptions)

// WithLogger sets the logger failures are written to.
func WithLogger(logger *slog.Logger) Option {
	return func(o *screenOptions) {
		o.logger = logger
	}
}

// WithVocabulary replaces DefaultPermissions as the checkbox vocabulary.
func WithVocabulary(perms []string) Option {
	return func(o *screenOptions) {
		if len(perms) > 0 {
			o.vocabulary = slices.Clone(perms)
		}
	}
}

// NewScreen mounts a Role screen backed by client.
func NewScreen(client screen.Client[Role], opts ...Option) *Screen {
	o := screenOptions{vocabulary: slices.Clone(DefaultPermissions)}
	for _, opt := range opts {
		opt(&o)
	}
	return &Screen{
		Screen: screen.New(screen.Config[Role]{
			Resource: "roles",
			Client:   client,
			Blank:    Blank,
			Logger:   o.logger,
		}),
		vocabulary: o.vocabulary,
	}
}

// Vocabulary returns the permissions offered as checkboxes.
func (s *Screen) Vocabulary() []string {
	return slices.Clone(s.vocabulary)
}

// SetName sets the draft name. Role names stay editable on edit.
func (s *Screen) SetName(name string) error {
	return s.EditDraft(func(_ screen.DialogMode, d Role) Role {
		d.Name = name
		return d
	})
}

// TogglePermission flips one vocabulary permission on the draft.
func (s *Screen) TogglePermission(p string) error {
	if !slices.Contains(s.vocabulary, p) {
		return errors.InvalidInput("permission", p+" is not a selectable permission")
	}
	return s.EditDraft(func(_ screen.DialogMode, d Role) Role {
		d.Permissions = TogglePermission(d.Permissions, p)
		return d
	})
}

// SetChecked makes the draft's vocabulary permissions match checked by toggling each
// one that differs. Permissions outside the vocabulary are left in place.
func (s *Screen) SetChecked(checked []string) error {
	return s.EditDraft(func(_ screen.DialogMode, d Role) Role {
		for _, p := range s.vocabulary {
			if d.Has(p) != slices.Contains(checked, p) {
				d.Permissions = TogglePermission(d.Permissions, p)
			}
		}
		return d
	})
}
