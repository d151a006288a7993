// Package feedback enforces who may rate an event: one feedback per guest
// per completed event the guest was invited to.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/dukerupert/planner/internal/metrics"
	"github.com/dukerupert/planner/internal/model"
	"github.com/dukerupert/planner/internal/store"
)

// State of a (guest, event) pair.
type State string

const (
	NotEligible State = "NotEligible"
	Eligible    State = "Eligible"
	Submitted   State = "Submitted"
)

var (
	ErrGuestNotFound     = fmt.Errorf("guest %w", model.ErrNotFound)
	ErrEventNotFound     = fmt.Errorf("event %w", model.ErrNotFound)
	ErrNotAssociated     = fmt.Errorf("%w: guest not associated with this event", model.ErrStateConflict)
	ErrEventNotCompleted = fmt.Errorf("%w: feedback allowed only for completed events", model.ErrStateConflict)
	ErrAlreadySubmitted  = fmt.Errorf("%w: guest has already submitted feedback", model.ErrStateConflict)
	ErrInvalidRating     = fmt.Errorf("%w: rating must be between %d and %d", model.ErrValidation, model.MinRating, model.MaxRating)
)

type Payload struct {
	GuestID int64  `json:"guestId"`
	EventID int64  `json:"eventId"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

type Gate struct {
	stores *store.Stores
	logger *slog.Logger
}

type Option func(*Gate)

func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) { g.logger = l }
}

func NewGate(stores *store.Stores, opts ...Option) *Gate {
	g := &Gate{stores: stores, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Eligibility reports the pair's state. When the state is not Eligible
// the error says why.
func (g *Gate) Eligibility(ctx context.Context, guestID, eventID int64) (State, error) {
	eb := g.stores.Events.Begin(ctx)
	defer eb.Release()
	gb := g.stores.Guests.Begin(ctx)
	defer gb.Release()
	fb := g.stores.Feedbacks.Begin(ctx)
	defer fb.Release()
	ib := g.stores.Invitations.Begin(ctx)
	defer ib.Release()

	return evaluate(eb, gb, fb, ib, guestID, eventID)
}

func evaluate(eb *store.EventBatch, gb *store.GuestBatch, fb *store.FeedbackBatch, ib *store.InvitationBatch, guestID, eventID int64) (State, error) {
	guest, ok := gb.Find(guestID)
	if !ok {
		return NotEligible, ErrGuestNotFound
	}
	event, ok := eb.Find(eventID)
	if !ok {
		return NotEligible, ErrEventNotFound
	}

	_, invited := ib.FindFunc(func(i model.Invitation) bool {
		return i.EventID == eventID && i.GuestID == guestID
	})
	if !invited && !guest.InvitedTo(eventID) && !model.ContainsID(event.Guests, guestID) {
		return NotEligible, ErrNotAssociated
	}

	if _, done := fb.FindFunc(func(f model.Feedback) bool {
		return f.GuestID == guestID && f.EventID == eventID
	}); done {
		return Submitted, ErrAlreadySubmitted
	}

	if event.Status != model.EventCompleted {
		return NotEligible, ErrEventNotCompleted
	}
	return Eligible, nil
}

// Submit records the guest's feedback if the pair is Eligible. On success
// the feedback id is appended to the event and, if the guest has none yet,
// stored on the guest.
func (g *Gate) Submit(ctx context.Context, p Payload) (model.Feedback, error) {
	fbk, err := g.submit(ctx, p)
	result := "ok"
	if err != nil {
		result = resultLabel(err)
		g.logger.Info("feedback rejected", "guest_id", p.GuestID, "event_id", p.EventID, "reason", err)
	}
	metrics.FeedbackSubmission(result)
	return fbk, err
}

func (g *Gate) submit(ctx context.Context, p Payload) (model.Feedback, error) {
	if p.Rating < model.MinRating || p.Rating > model.MaxRating {
		return model.Feedback{}, ErrInvalidRating
	}

	eb := g.stores.Events.Begin(ctx)
	defer eb.Release()
	gb := g.stores.Guests.Begin(ctx)
	defer gb.Release()
	fb := g.stores.Feedbacks.Begin(ctx)
	defer fb.Release()
	ib := g.stores.Invitations.Begin(ctx)
	defer ib.Release()

	if state, err := evaluate(eb, gb, fb, ib, p.GuestID, p.EventID); state != Eligible {
		return model.Feedback{}, err
	}

	created, err := fb.Insert(model.Feedback{
		GuestID: p.GuestID,
		EventID: p.EventID,
		Rating:  p.Rating,
		Comment: strings.TrimSpace(p.Comment),
	}, 0)
	if err != nil {
		return model.Feedback{}, fmt.Errorf("insert feedback: %w", err)
	}
	gb.Update(p.GuestID, func(gu *model.Guest) {
		if gu.FeedbackID == nil {
			id := created.ID
			gu.FeedbackID = &id
		}
	})
	eb.Update(p.EventID, func(e *model.Event) {
		e.Feedbacks, _ = model.AppendID(e.Feedbacks, created.ID)
	})

	if err := fb.Commit(ctx); err != nil {
		return model.Feedback{}, err
	}
	if err := gb.Commit(ctx); err != nil {
		return model.Feedback{}, err
	}
	if err := eb.Commit(ctx); err != nil {
		return model.Feedback{}, err
	}
	return created, nil
}

// ForEvent lists the event's feedback, newest first.
func (g *Gate) ForEvent(ctx context.Context, eventID int64) []model.Feedback {
	var out []model.Feedback
	for _, f := range g.stores.Feedbacks.List(ctx) {
		if f.EventID == eventID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrAlreadySubmitted):
		return "already_submitted"
	case errors.Is(err, ErrEventNotCompleted):
		return "event_not_completed"
	case errors.Is(err, ErrNotAssociated):
		return "not_associated"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
