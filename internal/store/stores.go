package store

import (
	"github.com/dukerupert/planner/internal/kv"
	"github.com/dukerupert/planner/internal/model"
)

// Well-known keys of the persisted collections.
const (
	KeyEvents      = "events"
	KeyGuests      = "guests"
	KeyTasks       = "tasks"
	KeyExpenses    = "expenses"
	KeyFeedbacks   = "feedbacks"
	KeyInvitations = "invitations"
)

type (
	EventRepository      = Repository[model.Event, *model.Event]
	GuestRepository      = Repository[model.Guest, *model.Guest]
	TaskRepository       = Repository[model.Task, *model.Task]
	ExpenseRepository    = Repository[model.Expense, *model.Expense]
	FeedbackRepository   = Repository[model.Feedback, *model.Feedback]
	InvitationRepository = Repository[model.Invitation, *model.Invitation]

	EventBatch      = Batch[model.Event, *model.Event]
	GuestBatch      = Batch[model.Guest, *model.Guest]
	TaskBatch       = Batch[model.Task, *model.Task]
	ExpenseBatch    = Batch[model.Expense, *model.Expense]
	FeedbackBatch   = Batch[model.Feedback, *model.Feedback]
	InvitationBatch = Batch[model.Invitation, *model.Invitation]
)

// Stores bundles the six repositories over one kv.Store.
//
// Code that holds more than one Batch at a time must Begin them in field
// order: Events, Guests, Tasks, Expenses, Feedbacks, Invitations.
type Stores struct {
	Events      *EventRepository
	Guests      *GuestRepository
	Tasks       *TaskRepository
	Expenses    *ExpenseRepository
	Feedbacks   *FeedbackRepository
	Invitations *InvitationRepository

	KV kv.Store
}

func New(store kv.Store, opts Options) *Stores {
	opts = opts.withDefaults()
	return &Stores{
		Events:      NewRepository[model.Event](store, KeyEvents, opts),
		Guests:      NewRepository[model.Guest](store, KeyGuests, opts),
		Tasks:       NewRepository[model.Task](store, KeyTasks, opts),
		Expenses:    NewRepository[model.Expense](store, KeyExpenses, opts),
		Feedbacks:   NewRepository[model.Feedback](store, KeyFeedbacks, opts),
		Invitations: NewRepository[model.Invitation](store, KeyInvitations, opts),
		KV:          store,
	}
}
