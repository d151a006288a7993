// Package stats computes read-only views over the planner collections.
// Every aggregation returns a zeroed value for empty input.
package stats

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/planner/internal/model"
	"github.com/dukerupert/planner/internal/store"
)

var hundred = decimal.NewFromInt(100)

type Engine struct {
	stores *store.Stores
}

func NewEngine(stores *store.Stores) *Engine {
	return &Engine{stores: stores}
}

// EventsByStatus counts events per status. All statuses are present and
// events with an unset or unknown status are not counted.
func (e *Engine) EventsByStatus(ctx context.Context) map[model.EventStatus]int {
	counts := make(map[model.EventStatus]int, len(model.EventStatuses))
	for _, s := range model.EventStatuses {
		counts[s] = 0
	}
	for _, ev := range e.stores.Events.List(ctx) {
		if _, ok := counts[ev.Status]; ok {
			counts[ev.Status]++
		}
	}
	return counts
}

// GuestsForOrganizer counts distinct existing guests linked to any event the
// organizer created. Links from either side are honored.
func (e *Engine) GuestsForOrganizer(ctx context.Context, organizerID int64) int {
	owned := make(map[int64]bool)
	linked := make(map[int64]bool)
	for _, ev := range e.stores.Events.List(ctx) {
		if ev.CreatedBy != organizerID {
			continue
		}
		owned[ev.ID] = true
		for _, id := range ev.Guests {
			linked[id] = true
		}
	}

	n := 0
	for _, g := range e.stores.Guests.List(ctx) {
		if linked[g.ID] {
			n++
			continue
		}
		for _, id := range g.EventIDs {
			if owned[id] {
				n++
				break
			}
		}
	}
	return n
}

type CategoryTotal struct {
	Category model.ExpenseCategory `json:"category"`
	Total    decimal.Decimal       `json:"total"`
	Percent  decimal.Decimal       `json:"percent"`
}

type ExpenseBreakdown struct {
	Total      decimal.Decimal `json:"total"`
	Categories []CategoryTotal `json:"categories"`
}

// ExpensesByCategory totals expenses per category, for one event when
// eventID is set and across all events otherwise. Percentages are rounded
// to two places and are zero when the overall total is zero.
func (e *Engine) ExpensesByCategory(ctx context.Context, eventID *int64) ExpenseBreakdown {
	sums := make(map[model.ExpenseCategory]decimal.Decimal)
	total := decimal.Zero
	for _, x := range e.stores.Expenses.List(ctx) {
		if eventID != nil && x.EventID != *eventID {
			continue
		}
		sums[x.Category] = sums[x.Category].Add(x.Amount)
		total = total.Add(x.Amount)
	}

	out := ExpenseBreakdown{Total: total, Categories: make([]CategoryTotal, 0, len(model.ExpenseCategories))}
	for _, c := range model.ExpenseCategories {
		ct := CategoryTotal{Category: c, Total: sums[c], Percent: decimal.Zero}
		if !total.IsZero() {
			ct.Percent = ct.Total.Div(total).Mul(hundred).Round(2)
		}
		out.Categories = append(out.Categories, ct)
	}
	return out
}

// EventsByMonth buckets the year's events by start month. Index 0 is January.
func (e *Engine) EventsByMonth(ctx context.Context, year int) []int {
	months := make([]int, 12)
	for _, ev := range e.stores.Events.List(ctx) {
		if ev.StartDate == nil || ev.StartDate.Year() != year {
			continue
		}
		months[ev.StartDate.Month()-1]++
	}
	return months
}

type TaskProgress struct {
	Total   int                      `json:"total"`
	Counts  map[model.TaskStatus]int `json:"counts"`
	Percent decimal.Decimal          `json:"percentComplete"`
}

func (e *Engine) TaskProgress(ctx context.Context, eventID int64) TaskProgress {
	p := TaskProgress{Counts: make(map[model.TaskStatus]int, len(model.TaskStatuses)), Percent: decimal.Zero}
	for _, s := range model.TaskStatuses {
		p.Counts[s] = 0
	}
	for _, t := range e.stores.Tasks.List(ctx) {
		if t.EventID != eventID {
			continue
		}
		p.Counts[t.Status]++
		p.Total++
	}
	if p.Total > 0 {
		done := decimal.NewFromInt(int64(p.Counts[model.TaskCompleted]))
		p.Percent = done.Div(decimal.NewFromInt(int64(p.Total))).Mul(hundred).Round(2)
	}
	return p
}

// AverageRating is the mean feedback rating rounded to two places, or zero
// when there is no feedback.
func (e *Engine) AverageRating(ctx context.Context, eventID *int64) decimal.Decimal {
	sum, n := 0, 0
	for _, f := range e.stores.Feedbacks.List(ctx) {
		if eventID != nil && f.EventID != *eventID {
			continue
		}
		sum += f.Rating
		n++
	}
	if n == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(sum)).Div(decimal.NewFromInt(int64(n))).Round(2)
}

type Dashboard struct {
	TotalEvents     int `json:"totalEvents"`
	UpcomingEvents  int `json:"upcomingEvents"`
	CompletedEvents int `json:"completedEvents"`
	TotalGuests     int `json:"totalGuests"`
}

// Dashboard summarizes the organizer's events.
func (e *Engine) Dashboard(ctx context.Context, organizerID int64) Dashboard {
	var d Dashboard
	for _, ev := range e.stores.Events.List(ctx) {
		if ev.CreatedBy != organizerID {
			continue
		}
		d.TotalEvents++
		switch ev.Status {
		case model.EventUpcoming:
			d.UpcomingEvents++
		case model.EventCompleted:
			d.CompletedEvents++
		}
	}
	d.TotalGuests = e.GuestsForOrganizer(ctx, organizerID)
	return d
}
