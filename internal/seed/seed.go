// Package seed fills an empty planner with deterministic demo data. All
// records go through the integrity and feedback APIs, so the generated
// data obeys the same link rules as user input.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/planner/internal/feedback"
	"github.com/dukerupert/planner/internal/integrity"
	"github.com/dukerupert/planner/internal/model"
	"github.com/dukerupert/planner/internal/store"
)

var (
	categories = []string{"Conference", "Meeting", "Workshop", "Webinar", "Party"}
	locations  = []string{"Main Hall", "Rooftop Terrace", "Riverside Pavilion", "Online", "Garden Room"}
	taskTitles = []string{"Book venue", "Confirm catering", "Send reminders", "Arrange sound", "Print badges", "Order flowers"}
	comments   = []string{"", "Great event!", "Well organized.", "Venue was too small.", "Loved the music.", "Would come again."}
)

type Options struct {
	Seed               uint64
	Organizers         int
	EventsPerOrganizer int
	Guests             int
	Now                time.Time
	Logger             *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Organizers <= 0 {
		o.Organizers = 4
	}
	if o.EventsPerOrganizer <= 0 {
		o.EventsPerOrganizer = 3
	}
	if o.Guests <= 0 {
		o.Guests = 20
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

type Summary struct {
	Events    int
	Guests    int
	Tasks     int
	Expenses  int
	Feedbacks int
}

// Empty reports whether no events have been stored yet.
func Empty(ctx context.Context, stores *store.Stores) bool {
	return len(stores.Events.List(ctx)) == 0
}

// Generate creates demo events around opts.Now: earlier events finish in
// the past and later ones start in the future. The same Seed yields the
// same data.
func Generate(ctx context.Context, stores *store.Stores, mgr *integrity.Manager, gate *feedback.Gate, opts Options) (Summary, error) {
	opts = opts.withDefaults()
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	emails := make([]string, opts.Guests)
	for i := range emails {
		emails[i] = fmt.Sprintf("guest%02d@example.com", i+1)
	}

	var sum Summary
	total := opts.Organizers * opts.EventsPerOrganizer
	day := opts.Now.Truncate(24 * time.Hour)
	for i := 0; i < total; i++ {
		organizer := model.Actor{UserID: int64(i%opts.Organizers + 1), Role: model.RoleOrganizer}

		start := day.AddDate(0, 0, i-total/2).Add(time.Duration(9+i%6) * time.Hour)
		end := start.AddDate(0, 0, rng.IntN(3)).Add(8 * time.Hour)
		in := integrity.NewEvent{
			Name:        fmt.Sprintf("%s #%d", categories[i%len(categories)], i+1),
			Description: "Demo event",
			Category:    categories[i%len(categories)],
			Location:    locations[rng.IntN(len(locations))],
			StartDate:   &start,
			EndDate:     &end,
			Budget:      decimal.NewFromInt(int64(500 + rng.IntN(20)*250)),
		}

		invited := pick(rng, emails, 2+rng.IntN(4))
		ev, att, err := mgr.CreateEvent(ctx, organizer, in, invited)
		if err != nil {
			return sum, fmt.Errorf("seed event %d: %w", i+1, err)
		}
		sum.Events++

		for n := 1 + rng.IntN(4); n > 0; n-- {
			t := model.Task{
				EventID:  ev.ID,
				Title:    taskTitles[rng.IntN(len(taskTitles))],
				Priority: []model.Priority{model.PriorityLow, model.PriorityMedium, model.PriorityHigh, model.PriorityCritical}[rng.IntN(4)],
				Status:   model.TaskStatuses[rng.IntN(len(model.TaskStatuses))],
				Deadline: start.AddDate(0, 0, -rng.IntN(10)),
			}
			if len(att) > 0 {
				id := att[rng.IntN(len(att))].GuestID
				t.AssignedTo = &id
			}
			if _, err := mgr.AddTask(ctx, t); err != nil {
				return sum, fmt.Errorf("seed task: %w", err)
			}
			sum.Tasks++
		}

		for n := 1 + rng.IntN(6); n > 0; n-- {
			cat := model.ExpenseCategories[rng.IntN(len(model.ExpenseCategories))]
			x := model.Expense{
				EventID:  ev.ID,
				Name:     string(cat) + " costs",
				Amount:   decimal.New(int64(1000+rng.IntN(50000)), -2),
				Category: cat,
				Date:     start.AddDate(0, 0, -rng.IntN(30)),
			}
			if _, err := mgr.AddExpense(ctx, x); err != nil {
				return sum, fmt.Errorf("seed expense: %w", err)
			}
			sum.Expenses++
		}

		switch {
		case ev.Status == model.EventCompleted:
			for _, a := range att {
				if rng.IntN(3) == 0 {
					continue
				}
				_, err := gate.Submit(ctx, feedback.Payload{
					GuestID: a.GuestID,
					EventID: ev.ID,
					Rating:  model.MinRating + rng.IntN(model.MaxRating),
					Comment: comments[rng.IntN(len(comments))],
				})
				if err != nil {
					return sum, fmt.Errorf("seed feedback: %w", err)
				}
				sum.Feedbacks++
			}
		case ev.Status == model.EventUpcoming && i%7 == 6:
			if err := mgr.CancelEvent(ctx, ev.ID); err != nil {
				return sum, fmt.Errorf("seed cancel: %w", err)
			}
		}
	}

	sum.Guests = len(stores.Guests.List(ctx))
	opts.Logger.Info("demo data generated",
		"events", sum.Events, "guests", sum.Guests, "tasks", sum.Tasks,
		"expenses", sum.Expenses, "feedbacks", sum.Feedbacks)
	return sum, nil
}

// pick returns n distinct entries of src in random order.
func pick(rng *rand.Rand, src []string, n int) []string {
	if n > len(src) {
		n = len(src)
	}
	idx := rng.Perm(len(src))[:n]
	out := make([]string, n)
	for i, j := range idx {
		out[i] = src[j]
	}
	return out
}
