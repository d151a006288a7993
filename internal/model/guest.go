package model

import (
	"encoding/json"
	"time"
)

type GuestStatus string

const (
	GuestInvited  GuestStatus = "Invited"
	GuestAccepted GuestStatus = "Accepted"
	GuestDeclined GuestStatus = "Declined"
	GuestPending  GuestStatus = "Pending"
)

func (s GuestStatus) Valid() bool {
	switch s {
	case GuestInvited, GuestAccepted, GuestDeclined, GuestPending:
		return true
	}
	return false
}

type Guest struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	Email      string      `json:"email"`
	Phone      string      `json:"phone,omitempty"`
	Status     GuestStatus `json:"status"`
	EventIDs   []int64     `json:"eventIds"`
	FeedbackID *int64      `json:"feedbackId,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
}

func (g *Guest) GetID() int64   { return g.ID }
func (g *Guest) SetID(id int64) { g.ID = id }

func (g *Guest) Stamp(now time.Time) {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
}

// UnmarshalJSON accepts the legacy singular eventId and folds it into
// EventIDs. Records are always written back with eventIds only.
func (g *Guest) UnmarshalJSON(data []byte) error {
	type plain Guest
	aux := struct {
		*plain
		EventID *int64 `json:"eventId"`
	}{plain: (*plain)(g)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(g.EventIDs) == 0 && aux.EventID != nil && *aux.EventID > 0 {
		g.EventIDs = []int64{*aux.EventID}
	}
	return nil
}

// InvitedTo reports whether the guest lists the event.
func (g *Guest) InvitedTo(eventID int64) bool {
	return ContainsID(g.EventIDs, eventID)
}
