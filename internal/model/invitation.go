package model

import "time"

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "Pending"
	InvitationAccepted InvitationStatus = "Accepted"
	InvitationRefused  InvitationStatus = "Refused"
)

func (s InvitationStatus) Valid() bool {
	switch s {
	case InvitationPending, InvitationAccepted, InvitationRefused:
		return true
	}
	return false
}

type Invitation struct {
	ID        int64            `json:"id"`
	EventID   int64            `json:"eventId"`
	GuestID   int64            `json:"guestId"`
	Email     string           `json:"email,omitempty"`
	Status    InvitationStatus `json:"status"`
	CreatedAt time.Time        `json:"createdAt"`
}

func (i *Invitation) GetID() int64   { return i.ID }
func (i *Invitation) SetID(id int64) { i.ID = id }

func (i *Invitation) Stamp(now time.Time) {
	if i.CreatedAt.IsZero() {
		i.CreatedAt = now
	}
}
