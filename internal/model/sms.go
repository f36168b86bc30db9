package model

import "time"

// SMS is what a provider is asked to deliver.
type SMS struct {
	Phone string `json:"phone"`
	Text  string `json:"text"`
}

type NotificationStatus string

const (
	NotificationSent   NotificationStatus = "sent"
	NotificationFailed NotificationStatus = "failed"
)

func (s NotificationStatus) String() string { return string(s) }

// BookingNotification records the outcome of the confirmation SMS for one booking.
type BookingNotification struct {
	BookingCode string             `db:"booking_code"`
	PhoneE164   string             `db:"phone_e164"`
	Status      NotificationStatus `db:"status"`
	Attempts    int                `db:"attempts"`
	UpdatedAt   time.Time          `db:"updated_at"`
}
