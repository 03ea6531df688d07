package testutils

import (
	"context"
	"sync"

	"github.com/aretw0/tripflow/pkg/domain"
)

// Recorder is a ports.Reporter that keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

// Track implements ports.Reporter.
func (r *Recorder) Track(_ context.Context, event domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Event(nil), r.events...)
}

// Named returns the recorded events with the given name.
func (r *Recorder) Named(name string) []domain.Event {
	var out []domain.Event
	for _, e := range r.Events() {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// FullBooking is a pre-filled booking with definite dates.
func FullBooking() domain.BookingSession {
	return domain.BookingSession{
		Origin:      "paris",
		Destination: "berlin",
		StartDate:   "2024-05-03",
		EndDate:     "2024-05-10",
		Budget:      "500",
	}
}
