package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Persisted collections store money as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

type EventStatus string

const (
	EventUpcoming   EventStatus = "Upcoming"
	EventInProgress EventStatus = "InProgress"
	EventCompleted  EventStatus = "Completed"
	EventCancelled  EventStatus = "Cancelled"
)

func (s EventStatus) Valid() bool {
	switch s {
	case EventUpcoming, EventInProgress, EventCompleted, EventCancelled:
		return true
	}
	return false
}

// EventStatuses lists every status in display order.
var EventStatuses = []EventStatus{EventUpcoming, EventInProgress, EventCompleted, EventCancelled}

type Event struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Location    string          `json:"location"`
	Image       string          `json:"image,omitempty"`
	StartDate   *time.Time      `json:"startDate,omitempty"`
	EndDate     *time.Time      `json:"endDate,omitempty"`
	CreatedBy   int64           `json:"createdBy"`
	GuestCount  int             `json:"guestCount"`
	Guests      []int64         `json:"guests"`
	Tasks       []int64         `json:"tasks"`
	Expenses    []int64         `json:"expenses"`
	Feedbacks   []int64         `json:"feedbacks"`
	Status      EventStatus     `json:"status"`
	Budget      decimal.Decimal `json:"budget"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (e *Event) GetID() int64   { return e.ID }
func (e *Event) SetID(id int64) { e.ID = id }

// Stamp sets CreatedAt on first write and UpdatedAt on every write.
func (e *Event) Stamp(now time.Time) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
}
