package repository

import (
	"context"
	"strings"

	"github.com/jmehdipour/rh-booking/internal/model"
	"github.com/jmoiron/sqlx"
)

// NotificationsRepository records confirmation SMS outcomes.
type NotificationsRepository interface {
	UpsertBatch(ctx context.Context, tx *sqlx.Tx, rows []model.BookingNotification) error
}

type notificationsRepo struct{}

func NewNotificationsRepository() NotificationsRepository { return &notificationsRepo{} }

// UpsertBatch is idempotent per booking code: a redelivered event bumps
// attempts and overwrites the status instead of adding a row.
func (r *notificationsRepo) UpsertBatch(ctx context.Context, tx *sqlx.Tx, rows []model.BookingNotification) error {
	if len(rows) == 0 {
		return nil
	}

	var sb strings.Builder
	args := make([]any, 0, len(rows)*4)

	sb.WriteString(`INSERT INTO booking_notifications (booking_code, phone_e164, status, attempts, updated_at) VALUES `)
	for i, n := range rows {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?, 1, ?)")
		args = append(args, n.BookingCode, n.PhoneE164, n.Status.String(), n.UpdatedAt)
	}
	sb.WriteString(`
		ON DUPLICATE KEY UPDATE
		    status     = VALUES(status),
		    attempts   = attempts + 1,
		    updated_at = VALUES(updated_at)`)

	_, err := tx.ExecContext(ctx, sb.String(), args...)
	return err
}
