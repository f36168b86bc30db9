package model

import (
	"strings"
	"time"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
)

// MaxStatusLen matches the width of bookings.status.
const MaxStatusLen = 20

func (s BookingStatus) String() string { return string(s) }

// ParseBookingStatus normalizes an admin-supplied label. The set of labels is
// open; any lowercase word of letters and underscores up to MaxStatusLen is accepted.
func ParseBookingStatus(raw string) (BookingStatus, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" || len(s) > MaxStatusLen {
		return "", false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && r != '_' {
			return "", false
		}
	}
	return BookingStatus(s), true
}

// Booking is the DB entity persisted in the bookings table.
// BookingCode and CreatedAt never change after insert.
type Booking struct {
	ID           int64         `db:"id"            json:"id"`
	BookingCode  string        `db:"booking_code"  json:"book_number"`
	CustomerName string        `db:"customer_name" json:"name"`
	PhoneE164    string        `db:"phone_e164"    json:"phone"`
	Message      string        `db:"message"       json:"message"`
	Status       BookingStatus `db:"status"        json:"status"`
	CreatedAt    time.Time     `db:"created_at"    json:"created_at"`
}
