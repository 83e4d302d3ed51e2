// Package calendar abstracts the meeting-scheduling collaborator.
// Calls are best-effort from the orchestrator's perspective: a failure
// here never rolls back a payment or a booking.
package calendar

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/otomatiktech/consult-booking/internal/model"
)

// EventService creates and removes calendar events for bookings.
type EventService interface {
	// CreateEvent schedules a meeting for the booking and returns its link.
	CreateEvent(ctx context.Context, b *model.Booking) (string, error)
	// DeleteEvent removes a previously created event, identified by its link.
	DeleteEvent(ctx context.Context, eventRef string) error
}

// LogService is the default EventService: it fabricates a meeting link
// and logs the call.  Deployments with a real calendar integration
// replace it at wiring time.
type LogService struct{}

func NewLogService() *LogService { return &LogService{} }

func (s *LogService) CreateEvent(_ context.Context, b *model.Booking) (string, error) {
	link := fmt.Sprintf("https://meet.example.com/%s", uuid.NewString())
	log.Printf("calendar: created event for booking %d on %s %s -> %s", b.ID, b.Date, b.Time, link)
	return link, nil
}

func (s *LogService) DeleteEvent(_ context.Context, eventRef string) error {
	log.Printf("calendar: deleted event %s", eventRef)
	return nil
}
