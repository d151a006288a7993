package integrity

import (
	"context"
	"fmt"
	"strings"

	"github.com/dukerupert/planner/internal/model"
	"github.com/dukerupert/planner/internal/store"
)

// AttachGuestToEvent looks up the guest by email, creating a Pending guest
// if none exists, links guest and event in both directions and ensures
// exactly one invitation exists for the pair. Repeating the call changes
// nothing.
func (m *Manager) AttachGuestToEvent(ctx context.Context, eventID int64, email string) (Attachment, error) {
	email, err := m.checkEmail(email)
	if err != nil {
		return Attachment{}, err
	}

	eb := m.stores.Events.Begin(ctx)
	defer eb.Release()
	gb := m.stores.Guests.Begin(ctx)
	defer gb.Release()
	ib := m.stores.Invitations.Begin(ctx)
	defer ib.Release()

	event, ok := eb.Find(eventID)
	if !ok {
		return Attachment{}, fmt.Errorf("attach %s to event %d: %w", email, eventID, ErrEventNotFound)
	}
	if event.Status == model.EventCancelled {
		return Attachment{}, fmt.Errorf("attach %s to event %d: %w", email, eventID, ErrEventCancelled)
	}

	att, err := m.attach(eb, gb, ib, eventID, email)
	if err != nil {
		return Attachment{}, err
	}
	if err := commitInvites(ctx, eb, gb, ib); err != nil {
		return Attachment{}, err
	}
	return att, nil
}

// attach performs the lookup-or-create and linking on already locked
// batches. email must be normalized.
func (m *Manager) attach(eb *store.EventBatch, gb *store.GuestBatch, ib *store.InvitationBatch, eventID int64, email string) (Attachment, error) {
	guest, found := gb.FindFunc(func(g model.Guest) bool {
		return NormalizeEmail(g.Email) == email
	})
	if !found {
		created, err := gb.Insert(model.Guest{
			Name:     localPart(email),
			Email:    email,
			Status:   model.GuestPending,
			EventIDs: []int64{eventID},
		}, 0)
		if err != nil {
			return Attachment{}, fmt.Errorf("create guest %s: %w", email, err)
		}
		guest = created
	} else if !guest.InvitedTo(eventID) {
		gb.Update(guest.ID, func(g *model.Guest) {
			g.EventIDs, _ = model.AppendID(g.EventIDs, eventID)
		})
	}

	if event, ok := eb.Find(eventID); ok && !model.ContainsID(event.Guests, guest.ID) {
		eb.Update(eventID, func(e *model.Event) {
			e.Guests, _ = model.AppendID(e.Guests, guest.ID)
			e.GuestCount = len(e.Guests)
		})
	}

	inv, found := ib.FindFunc(func(i model.Invitation) bool {
		return i.EventID == eventID && i.GuestID == guest.ID
	})
	if !found {
		created, err := ib.Insert(model.Invitation{
			EventID: eventID,
			GuestID: guest.ID,
			Email:   email,
			Status:  model.InvitationPending,
		}, 0)
		if err != nil {
			return Attachment{}, fmt.Errorf("create invitation for guest %d: %w", guest.ID, err)
		}
		inv = created
	}

	return Attachment{GuestID: guest.ID, InvitationID: inv.ID}, nil
}

// commitInvites persists guests and invitations before the event so a
// failed event write never leaves the event pointing at unsaved guests.
func commitInvites(ctx context.Context, eb *store.EventBatch, gb *store.GuestBatch, ib *store.InvitationBatch) error {
	if err := gb.Commit(ctx); err != nil {
		return err
	}
	if err := ib.Commit(ctx); err != nil {
		return err
	}
	return eb.Commit(ctx)
}

// SyncGuestList is the re-invite flow: emails not already on the event's
// guest list are attached, everything else is left alone. Guests are never
// removed. It returns the attachments that were added.
func (m *Manager) SyncGuestList(ctx context.Context, eventID int64, emails []string) ([]Attachment, error) {
	wanted, err := m.checkEmails(emails)
	if err != nil {
		return nil, err
	}

	eb := m.stores.Events.Begin(ctx)
	defer eb.Release()
	gb := m.stores.Guests.Begin(ctx)
	defer gb.Release()
	ib := m.stores.Invitations.Begin(ctx)
	defer ib.Release()

	event, ok := eb.Find(eventID)
	if !ok {
		return nil, fmt.Errorf("sync guests of event %d: %w", eventID, ErrEventNotFound)
	}
	if event.Status == model.EventCancelled {
		return nil, fmt.Errorf("sync guests of event %d: %w", eventID, ErrEventCancelled)
	}

	current := make(map[string]bool)
	for _, g := range gb.Items() {
		if model.ContainsID(event.Guests, g.ID) {
			current[NormalizeEmail(g.Email)] = true
		}
	}

	var added []Attachment
	for _, email := range wanted {
		if current[email] {
			continue
		}
		att, err := m.attach(eb, gb, ib, eventID, email)
		if err != nil {
			return nil, err
		}
		added = append(added, att)
	}

	if err := commitInvites(ctx, eb, gb, ib); err != nil {
		return nil, err
	}
	if len(added) > 0 {
		m.logger.Info("guests invited", "event_id", eventID, "added", len(added))
	}
	return added, nil
}

// RespondToInvitation records a guest's answer on the invitation and
// mirrors it onto the guest's status.
func (m *Manager) RespondToInvitation(ctx context.Context, invitationID int64, accept bool) error {
	gb := m.stores.Guests.Begin(ctx)
	defer gb.Release()
	ib := m.stores.Invitations.Begin(ctx)
	defer ib.Release()

	inv, ok := ib.Find(invitationID)
	if !ok {
		return fmt.Errorf("respond to invitation %d: %w", invitationID, ErrInvitationNotFound)
	}

	invStatus, guestStatus := model.InvitationRefused, model.GuestDeclined
	if accept {
		invStatus, guestStatus = model.InvitationAccepted, model.GuestAccepted
	}
	if inv.Status != invStatus {
		ib.Update(invitationID, func(i *model.Invitation) { i.Status = invStatus })
	}
	if g, ok := gb.Find(inv.GuestID); ok && g.Status != guestStatus {
		gb.Update(g.ID, func(g *model.Guest) { g.Status = guestStatus })
	}

	if err := gb.Commit(ctx); err != nil {
		return err
	}
	return ib.Commit(ctx)
}

// InvitationsForGuest lists a guest's invitations, skipping those whose
// event no longer exists.
func (m *Manager) InvitationsForGuest(ctx context.Context, guestID int64) []model.Invitation {
	events := m.stores.Events.List(ctx)
	exists := make(map[int64]bool, len(events))
	for _, e := range events {
		exists[e.ID] = true
	}

	var out []model.Invitation
	for _, inv := range m.stores.Invitations.List(ctx) {
		if inv.GuestID == guestID && exists[inv.EventID] {
			out = append(out, inv)
		}
	}
	return out
}

// GuestsForEvent returns the guests linked to the event from either side,
// ignoring ids that no longer resolve.
func (m *Manager) GuestsForEvent(ctx context.Context, eventID int64) []model.Guest {
	event, ok := m.stores.Events.GetByID(ctx, eventID)
	if !ok {
		return nil
	}
	var out []model.Guest
	for _, g := range m.stores.Guests.List(ctx) {
		if g.InvitedTo(eventID) || model.ContainsID(event.Guests, g.ID) {
			out = append(out, g)
		}
	}
	return out
}

func localPart(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}
