package model

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

type Feedback struct {
	ID        int64     `json:"id"`
	GuestID   int64     `json:"guestId"`
	EventID   int64     `json:"eventId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (f *Feedback) GetID() int64   { return f.ID }
func (f *Feedback) SetID(id int64) { f.ID = id }

func (f *Feedback) Stamp(now time.Time) {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
}
