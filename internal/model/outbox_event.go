package model

import "time"

// OutboxEvent is a row of the transactional outbox; Debezium's outbox SMT
// routes it to the Kafka topic named in Topic.
type OutboxEvent struct {
	ID          string    `db:"id"`
	Aggregate   string    `db:"aggregate"`    // "booking"
	AggregateID string    `db:"aggregate_id"` // booking code
	Topic       string    `db:"topic"`
	Payload     []byte    `db:"payload"`
	CreatedAt   time.Time `db:"created_at"`
}
