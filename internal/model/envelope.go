package model

import "time"

const TopicBookingCreated = "booking.created"

// BookingCreated is the outbox payload consumed by the notifier worker.
type BookingCreated struct {
	EventID     string    `json:"event_id"`
	BookingID   int64     `json:"booking_id"`
	BookingCode string    `json:"booking_code"`
	Name        string    `json:"name"`
	PhoneE164   string    `json:"phone"`
	CreatedAt   time.Time `json:"created_at"`
}
