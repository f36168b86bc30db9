package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmehdipour/rh-booking/internal/model"
	"github.com/jmehdipour/rh-booking/internal/util"
	"github.com/jmoiron/sqlx"
)

// OutboxRepository defines persistence methods for the outbox table.
type OutboxRepository interface {
	// Insert writes a single outbox event inside tx. Debezium's outbox SMT
	// picks it up and publishes to Kafka based on the `topic` column.
	Insert(ctx context.Context, tx *sqlx.Tx, ev model.OutboxEvent) error
}

type OutboxRepositoryImpl struct{}

func NewOutboxRepository() *OutboxRepositoryImpl { return &OutboxRepositoryImpl{} }

func (r *OutboxRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, ev model.OutboxEvent) error {
	const q = `
		INSERT INTO outbox (id, aggregate, aggregate_id, topic, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := tx.ExecContext(ctx, q, ev.ID, ev.Aggregate, ev.AggregateID, ev.Topic, ev.Payload, ev.CreatedAt)
	return err
}

// NewBookingCreatedEvent builds the outbox row announcing a committed booking.
func NewBookingCreatedEvent(b *model.Booking, now time.Time) (model.OutboxEvent, error) {
	id := util.NewULID(now)
	payload, err := json.Marshal(model.BookingCreated{
		EventID:     id,
		BookingID:   b.ID,
		BookingCode: b.BookingCode,
		Name:        b.CustomerName,
		PhoneE164:   b.PhoneE164,
		CreatedAt:   b.CreatedAt,
	})
	if err != nil {
		return model.OutboxEvent{}, fmt.Errorf("marshal booking created: %w", err)
	}
	return model.OutboxEvent{
		ID:          id,
		Aggregate:   "booking",
		AggregateID: b.BookingCode,
		Topic:       model.TopicBookingCreated,
		Payload:     payload,
		CreatedAt:   now,
	}, nil
}
