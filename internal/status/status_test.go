package status

import (
	"testing"
	"time"

	"github.com/dukerupert/planner/internal/model"
)

func ptr(t time.Time) *time.Time { return &t }

var now = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func TestComputeStatus(t *testing.T) {
	day := 24 * time.Hour
	tests := []struct {
		name       string
		start, end *time.Time
		want       model.EventStatus
	}{
		{"ended", ptr(now.Add(-3 * day)), ptr(now.Add(-day)), model.EventCompleted},
		{"only end, past", nil, ptr(now.Add(-time.Minute)), model.EventCompleted},
		{"not started", ptr(now.Add(day)), ptr(now.Add(2 * day)), model.EventUpcoming},
		{"running", ptr(now.Add(-day)), ptr(now.Add(day)), model.EventInProgress},
		{"starts exactly now", ptr(now), ptr(now.Add(day)), model.EventInProgress},
		{"ends exactly now", ptr(now.Add(-day)), ptr(now), model.EventInProgress},
		{"only start, past", ptr(now.Add(-day)), nil, model.EventInProgress},
		{"only start, future", ptr(now.Add(day)), nil, model.EventUpcoming},
		{"only end, future", nil, ptr(now.Add(day)), model.EventUpcoming},
		{"no dates", nil, nil, model.EventUpcoming},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeStatus(tt.start, tt.end, now)
			if got != tt.want {
				t.Errorf("ComputeStatus = %q, want %q", got, tt.want)
			}
			if again := ComputeStatus(tt.start, tt.end, now); again != got {
				t.Errorf("second call = %q, first = %q", again, got)
			}
		})
	}
}

func TestComputeStatusNeverCancelled(t *testing.T) {
	base := now.Add(-48 * time.Hour)
	for i := 0; i < 96; i++ {
		start := base.Add(time.Duration(i) * time.Hour)
		end := start.Add(6 * time.Hour)
		for _, s := range []*time.Time{nil, &start} {
			for _, e := range []*time.Time{nil, &end} {
				got := ComputeStatus(s, e, now)
				switch got {
				case model.EventUpcoming, model.EventInProgress, model.EventCompleted:
				default:
					t.Fatalf("unexpected status %q", got)
				}
			}
		}
	}
}

func TestNextKeepsCancelled(t *testing.T) {
	e := model.Event{
		Status:    model.EventCancelled,
		StartDate: ptr(now.Add(-48 * time.Hour)),
		EndDate:   ptr(now.Add(-24 * time.Hour)),
	}
	got, changed := Next(e, now)
	if changed || got != model.EventCancelled {
		t.Errorf("Next = %q, %v; want Cancelled, false", got, changed)
	}
}

func TestNextReportsDrift(t *testing.T) {
	e := model.Event{
		Status:    model.EventUpcoming,
		StartDate: ptr(now.Add(-time.Hour)),
		EndDate:   ptr(now.Add(time.Hour)),
	}
	got, changed := Next(e, now)
	if !changed || got != model.EventInProgress {
		t.Errorf("Next = %q, %v; want InProgress, true", got, changed)
	}
}
