package stats

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/planner/internal/model"
)

type Kind string

const (
	KindEventsByStatus     Kind = "eventsByStatus"
	KindGuestsForOrganizer Kind = "guestsForOrganizer"
	KindExpensesByCategory Kind = "expensesByCategory"
	KindEventsByMonth      Kind = "eventsByMonth"
	KindTaskProgress       Kind = "taskProgress"
	KindAverageRating      Kind = "averageRating"
	KindDashboard          Kind = "dashboard"
)

var ErrUnknownQuery = fmt.Errorf("%w: unknown aggregation", model.ErrValidation)

// Query selects one aggregation. Fields a kind does not use are ignored.
type Query struct {
	Kind        Kind   `json:"kind"`
	OrganizerID int64  `json:"organizerId,omitempty"`
	EventID     *int64 `json:"eventId,omitempty"`
	Year        int    `json:"year,omitempty"`
}

// Result carries the output of exactly one aggregation, named by Kind.
type Result struct {
	Kind           Kind                      `json:"kind"`
	EventsByStatus map[model.EventStatus]int `json:"eventsByStatus,omitempty"`
	GuestCount     int                       `json:"guestCount,omitempty"`
	Expenses       *ExpenseBreakdown         `json:"expenses,omitempty"`
	Months         []int                     `json:"months,omitempty"`
	Tasks          *TaskProgress             `json:"tasks,omitempty"`
	AverageRating  decimal.Decimal           `json:"averageRating"`
	Dashboard      *Dashboard                `json:"dashboard,omitempty"`
}

func (e *Engine) Aggregate(ctx context.Context, q Query) (Result, error) {
	r := Result{Kind: q.Kind, AverageRating: decimal.Zero}
	switch q.Kind {
	case KindEventsByStatus:
		r.EventsByStatus = e.EventsByStatus(ctx)
	case KindGuestsForOrganizer:
		r.GuestCount = e.GuestsForOrganizer(ctx, q.OrganizerID)
	case KindExpensesByCategory:
		b := e.ExpensesByCategory(ctx, q.EventID)
		r.Expenses = &b
	case KindEventsByMonth:
		r.Months = e.EventsByMonth(ctx, q.Year)
	case KindTaskProgress:
		if q.EventID == nil {
			return Result{}, fmt.Errorf("%w: task progress needs an event id", model.ErrValidation)
		}
		p := e.TaskProgress(ctx, *q.EventID)
		r.Tasks = &p
	case KindAverageRating:
		r.AverageRating = e.AverageRating(ctx, q.EventID)
	case KindDashboard:
		d := e.Dashboard(ctx, q.OrganizerID)
		r.Dashboard = &d
	default:
		return Result{}, fmt.Errorf("aggregate %q: %w", q.Kind, ErrUnknownQuery)
	}
	return r, nil
}
