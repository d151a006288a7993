// Package integrity keeps the denormalized cross-references between
// events, guests, tasks, expenses, feedbacks and invitations consistent.
//
// Every operation that touches more than one collection Begins its
// batches in the order documented on store.Stores.
package integrity

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/planner/internal/model"
	"github.com/dukerupert/planner/internal/store"
)

var (
	ErrEventNotFound      = fmt.Errorf("event %w", model.ErrNotFound)
	ErrTaskNotFound       = fmt.Errorf("task %w", model.ErrNotFound)
	ErrInvitationNotFound = fmt.Errorf("invitation %w", model.ErrNotFound)
	ErrEventCancelled     = fmt.Errorf("%w: event is cancelled", model.ErrStateConflict)
	ErrInvalidEmail       = fmt.Errorf("%w: invalid email", model.ErrValidation)
	ErrNotOrganizer       = fmt.Errorf("%w: only organizers can create events", model.ErrForbidden)
)

// Attachment identifies the guest and invitation linking an email to an event.
type Attachment struct {
	GuestID      int64 `json:"guestId"`
	InvitationID int64 `json:"invitationId"`
}

type Manager struct {
	stores   *store.Stores
	validate *validator.Validate
	now      func() time.Time
	logger   *slog.Logger
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func NewManager(stores *store.Stores, opts ...Option) *Manager {
	m := &Manager{
		stores:   stores,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NormalizeEmail trims and lower-cases an address for comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (m *Manager) checkEmail(email string) (string, error) {
	email = NormalizeEmail(email)
	if err := m.validate.Var(email, "required,email"); err != nil {
		return "", fmt.Errorf("%w %q", ErrInvalidEmail, email)
	}
	return email, nil
}

// checkEmails validates and de-duplicates a guest list, preserving order.
func (m *Manager) checkEmails(emails []string) ([]string, error) {
	seen := make(map[string]bool, len(emails))
	out := make([]string, 0, len(emails))
	for _, raw := range emails {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		email, err := m.checkEmail(raw)
		if err != nil {
			return nil, err
		}
		if seen[email] {
			continue
		}
		seen[email] = true
		out = append(out, email)
	}
	return out, nil
}

// SplitEmails splits a comma separated guest list as typed into the event form.
func SplitEmails(list string) []string {
	var out []string
	for _, part := range strings.Split(list, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func validationError(err error) error {
	return fmt.Errorf("%w: %v", model.ErrValidation, err)
}
