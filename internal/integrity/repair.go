package integrity

import (
	"context"
	"fmt"

	"github.com/dukerupert/planner/internal/model"
)

// RepairReport counts what Repair changed or found.
type RepairReport struct {
	EventLinksDropped   int `json:"eventLinksDropped"`
	GuestLinksDropped   int `json:"guestLinksDropped"`
	LinksRestored       int `json:"linksRestored"`
	OrphanTasks         int `json:"orphanTasks"`
	OrphanExpenses      int `json:"orphanExpenses"`
	FeedbackIDsCleared  int `json:"feedbackIdsCleared"`
	DanglingFeedbacks   int `json:"danglingFeedbacks"`
	DanglingInvitations int `json:"danglingInvitations"`
}

// Changed reports whether Repair rewrote anything.
func (r RepairReport) Changed() bool {
	return r.EventLinksDropped+r.GuestLinksDropped+r.LinksRestored+r.OrphanTasks+r.OrphanExpenses+r.FeedbackIDsCleared > 0
}

// Repair is opt-in maintenance over every collection. It drops ids that no
// longer resolve from event and guest lists, restores one-sided
// guest-event links, clears stale Guest.FeedbackID values and removes
// tasks and expenses whose event is gone. Feedbacks and invitations whose
// event is gone are only counted, never deleted.
func (m *Manager) Repair(ctx context.Context) (RepairReport, error) {
	var rep RepairReport

	eb := m.stores.Events.Begin(ctx)
	defer eb.Release()
	gb := m.stores.Guests.Begin(ctx)
	defer gb.Release()
	tb := m.stores.Tasks.Begin(ctx)
	defer tb.Release()
	xb := m.stores.Expenses.Begin(ctx)
	defer xb.Release()
	fb := m.stores.Feedbacks.Begin(ctx)
	defer fb.Release()
	ib := m.stores.Invitations.Begin(ctx)
	defer ib.Release()

	events := idSet(eb.Items(), func(e model.Event) int64 { return e.ID })
	guests := idSet(gb.Items(), func(g model.Guest) int64 { return g.ID })
	feedbacks := idSet(fb.Items(), func(f model.Feedback) int64 { return f.ID })

	rep.OrphanTasks = len(tb.DeleteWhere(func(t model.Task) bool { return !events[t.EventID] }))
	rep.OrphanExpenses = len(xb.DeleteWhere(func(x model.Expense) bool { return !events[x.EventID] }))

	taskOwner := make(map[int64]int64, len(tb.Items()))
	for _, t := range tb.Items() {
		taskOwner[t.ID] = t.EventID
	}
	expenseOwner := make(map[int64]int64, len(xb.Items()))
	for _, x := range xb.Items() {
		expenseOwner[x.ID] = x.EventID
	}
	feedbackEvent := make(map[int64]int64, len(fb.Items()))
	for _, f := range fb.Items() {
		feedbackEvent[f.ID] = f.EventID
	}

	// Event side: drop unresolvable ids.
	for _, e := range eb.Items() {
		keepGuests := filterIDs(e.Guests, func(id int64) bool { return guests[id] })
		keepTasks := filterIDs(e.Tasks, func(id int64) bool { return taskOwner[id] == e.ID })
		keepExpenses := filterIDs(e.Expenses, func(id int64) bool { return expenseOwner[id] == e.ID })
		keepFeedbacks := filterIDs(e.Feedbacks, func(id int64) bool { return feedbackEvent[id] == e.ID })

		dropped := len(e.Guests) - len(keepGuests) + len(e.Tasks) - len(keepTasks) +
			len(e.Expenses) - len(keepExpenses) + len(e.Feedbacks) - len(keepFeedbacks)
		if dropped == 0 {
			continue
		}
		rep.EventLinksDropped += dropped
		eb.Update(e.ID, func(e *model.Event) {
			e.Guests, e.Tasks, e.Expenses, e.Feedbacks = keepGuests, keepTasks, keepExpenses, keepFeedbacks
			e.GuestCount = len(e.Guests)
		})
	}

	// Guest side: drop unresolvable events and stale feedback ids.
	for _, g := range gb.Items() {
		keep := filterIDs(g.EventIDs, func(id int64) bool { return events[id] })
		staleFeedback := g.FeedbackID != nil && !feedbacks[*g.FeedbackID]
		if len(keep) == len(g.EventIDs) && !staleFeedback {
			continue
		}
		rep.GuestLinksDropped += len(g.EventIDs) - len(keep)
		if staleFeedback {
			rep.FeedbackIDsCleared++
		}
		gb.Update(g.ID, func(g *model.Guest) {
			g.EventIDs = keep
			if staleFeedback {
				g.FeedbackID = nil
			}
		})
	}

	// Restore one-sided links in both directions.
	for _, e := range eb.Items() {
		for _, gid := range e.Guests {
			if g, ok := gb.Find(gid); ok && !g.InvitedTo(e.ID) {
				eventID := e.ID
				gb.Update(gid, func(g *model.Guest) { g.EventIDs, _ = model.AppendID(g.EventIDs, eventID) })
				rep.LinksRestored++
			}
		}
	}
	for _, g := range gb.Items() {
		for _, eid := range g.EventIDs {
			if e, ok := eb.Find(eid); ok && !model.ContainsID(e.Guests, g.ID) {
				guestID := g.ID
				eb.Update(eid, func(e *model.Event) {
					e.Guests, _ = model.AppendID(e.Guests, guestID)
					e.GuestCount = len(e.Guests)
				})
				rep.LinksRestored++
			}
		}
	}

	for _, f := range fb.Items() {
		if !events[f.EventID] || !guests[f.GuestID] {
			rep.DanglingFeedbacks++
		}
	}
	for _, inv := range ib.Items() {
		if !events[inv.EventID] || !guests[inv.GuestID] {
			rep.DanglingInvitations++
		}
	}

	if err := gb.Commit(ctx); err != nil {
		return rep, fmt.Errorf("repair guests: %w", err)
	}
	if err := tb.Commit(ctx); err != nil {
		return rep, fmt.Errorf("repair tasks: %w", err)
	}
	if err := xb.Commit(ctx); err != nil {
		return rep, fmt.Errorf("repair expenses: %w", err)
	}
	if err := eb.Commit(ctx); err != nil {
		return rep, fmt.Errorf("repair events: %w", err)
	}

	if rep.Changed() {
		m.logger.Info("repaired references", "report", rep)
	}
	return rep, nil
}

func idSet[T any](items []T, id func(T) int64) map[int64]bool {
	set := make(map[int64]bool, len(items))
	for _, it := range items {
		set[id(it)] = true
	}
	return set
}

func filterIDs(ids []int64, keep func(int64) bool) []int64 {
	out := ids[:0:0]
	for _, id := range ids {
		if keep(id) {
			out = append(out, id)
		}
	}
	return out
}
