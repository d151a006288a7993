package integrity

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/planner/internal/model"
	"github.com/dukerupert/planner/internal/status"
)

// NewEvent is the organizer's event form.
type NewEvent struct {
	Name        string `validate:"required"`
	Description string
	Category    string
	Location    string
	Image       string `validate:"omitempty,uri"`
	StartDate   *time.Time
	EndDate     *time.Time
	Budget      decimal.Decimal
}

// CreateEvent creates an event owned by the acting organizer and attaches
// every email in guestEmails. The initial status is derived from the dates.
func (m *Manager) CreateEvent(ctx context.Context, actor model.Actor, in NewEvent, guestEmails []string) (model.Event, []Attachment, error) {
	if actor.Role != model.RoleOrganizer {
		return model.Event{}, nil, ErrNotOrganizer
	}
	if err := m.validate.Struct(in); err != nil {
		return model.Event{}, nil, validationError(err)
	}
	rec := model.Event{
		Name:        in.Name,
		Description: in.Description,
		Category:    in.Category,
		Location:    in.Location,
		Image:       in.Image,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		CreatedBy:   actor.UserID,
		Guests:      []int64{},
		Tasks:       []int64{},
		Expenses:    []int64{},
		Feedbacks:   []int64{},
		Status:      status.ComputeStatus(in.StartDate, in.EndDate, m.now()),
		Budget:      in.Budget,
	}
	if err := rec.Validate(); err != nil {
		return model.Event{}, nil, err
	}
	emails, err := m.checkEmails(guestEmails)
	if err != nil {
		return model.Event{}, nil, err
	}

	eb := m.stores.Events.Begin(ctx)
	defer eb.Release()
	gb := m.stores.Guests.Begin(ctx)
	defer gb.Release()
	ib := m.stores.Invitations.Begin(ctx)
	defer ib.Release()

	event, err := eb.Insert(rec, 0)
	if err != nil {
		return model.Event{}, nil, fmt.Errorf("create event: %w", err)
	}

	atts := make([]Attachment, 0, len(emails))
	for _, email := range emails {
		att, err := m.attach(eb, gb, ib, event.ID, email)
		if err != nil {
			return model.Event{}, nil, err
		}
		atts = append(atts, att)
	}
	if err := commitInvites(ctx, eb, gb, ib); err != nil {
		return model.Event{}, nil, err
	}

	event, _ = eb.Find(event.ID)
	m.logger.Info("event created", "event_id", event.ID, "organizer_id", actor.UserID, "guests", len(atts))
	return event, atts, nil
}

// DeleteEvent removes the event and every task and expense it owns.
// Guests, feedbacks and invitations that reference the event are kept and
// become dangling references. Deleting a missing event is a logged no-op.
func (m *Manager) DeleteEvent(ctx context.Context, eventID int64) error {
	eb := m.stores.Events.Begin(ctx)
	defer eb.Release()
	tb := m.stores.Tasks.Begin(ctx)
	defer tb.Release()
	xb := m.stores.Expenses.Begin(ctx)
	defer xb.Release()

	if !eb.Delete(eventID) {
		m.logger.Info("delete event skipped, not found", "event_id", eventID)
	}
	tasks := tb.DeleteWhere(func(t model.Task) bool { return t.EventID == eventID })
	expenses := xb.DeleteWhere(func(x model.Expense) bool { return x.EventID == eventID })

	// Owned records go first so a failed event write can be retried.
	if err := tb.Commit(ctx); err != nil {
		return fmt.Errorf("delete event %d tasks: %w", eventID, err)
	}
	if err := xb.Commit(ctx); err != nil {
		return fmt.Errorf("delete event %d expenses: %w", eventID, err)
	}
	if err := eb.Commit(ctx); err != nil {
		return fmt.Errorf("delete event %d: %w", eventID, err)
	}

	m.logger.Info("event deleted", "event_id", eventID, "tasks", len(tasks), "expenses", len(expenses))
	return nil
}

// CancelEvent moves the event to the terminal Cancelled status, which the
// reconciler never overwrites.
func (m *Manager) CancelEvent(ctx context.Context, eventID int64) error {
	ok, err := m.stores.Events.Update(ctx, eventID, func(e *model.Event) {
		e.Status = model.EventCancelled
	})
	if err != nil {
		return fmt.Errorf("cancel event %d: %w", eventID, err)
	}
	if !ok {
		return fmt.Errorf("cancel event %d: %w", eventID, ErrEventNotFound)
	}
	return nil
}
