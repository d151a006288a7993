package model

import "fmt"

// Validate methods check the per-record rules that hold for every write.
// Empty enum values mean "unset" and are accepted; the owning flows fill in
// defaults.

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

func (e *Event) Validate() error {
	if e.Status != "" && !e.Status.Valid() {
		return invalid("unknown event status %q", e.Status)
	}
	if e.StartDate != nil && e.EndDate != nil && e.EndDate.Before(*e.StartDate) {
		return invalid("end date before start date")
	}
	if e.Budget.IsNegative() {
		return invalid("negative budget")
	}
	return nil
}

func (g *Guest) Validate() error {
	if g.Status != "" && !g.Status.Valid() {
		return invalid("unknown guest status %q", g.Status)
	}
	return nil
}

func (t *Task) Validate() error {
	if t.Priority != "" && !t.Priority.Valid() {
		return invalid("unknown priority %q", t.Priority)
	}
	if t.Status != "" && !t.Status.Valid() {
		return invalid("unknown task status %q", t.Status)
	}
	return nil
}

func (x *Expense) Validate() error {
	if x.Amount.IsNegative() {
		return invalid("expense amount must not be negative")
	}
	if !x.Category.Valid() {
		return invalid("unknown expense category %q", x.Category)
	}
	return nil
}

func (f *Feedback) Validate() error {
	if f.Rating < MinRating || f.Rating > MaxRating {
		return invalid("rating must be between %d and %d, got %d", MinRating, MaxRating, f.Rating)
	}
	return nil
}

func (i *Invitation) Validate() error {
	if i.Status != "" && !i.Status.Valid() {
		return invalid("unknown invitation status %q", i.Status)
	}
	return nil
}
