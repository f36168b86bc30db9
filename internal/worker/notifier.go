package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jmehdipour/rh-booking/internal/kafka"
	"github.com/jmehdipour/rh-booking/internal/metrics"
	"github.com/jmehdipour/rh-booking/internal/model"
	"github.com/jmehdipour/rh-booking/internal/repository"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Sender delivers one SMS; *dispatcher.Dispatcher satisfies it.
type Sender interface {
	Send(ctx context.Context, sms model.SMS) error
}

// Notifier:
// - fetches booking.created events from Kafka,
// - sends the confirmation SMS through the dispatcher,
// - batches delivery results into booking_notifications.
type Notifier struct {
	// Dependencies
	DB            *sqlx.DB
	Consumer      kafka.Fetcher
	Notifications repository.NotificationsRepository
	Dispatch      Sender
	Log           *zap.Logger

	// Behavior
	Template  string        // {code} and {name} are substituted
	Workers   int           // number of goroutines processing messages
	BatchSize int           // max buffered results per flush
	BatchWait time.Duration // max time to wait before flush

	now func() time.Time
}

func NewNotifier(
	db *sqlx.DB,
	consumer kafka.Fetcher,
	notifications repository.NotificationsRepository,
	dispatch Sender,
	log *zap.Logger,
) *Notifier {
	return &Notifier{
		DB:            db,
		Consumer:      consumer,
		Notifications: notifications,
		Dispatch:      dispatch,
		Log:           log,
		Template:      "Booking {code} received. We will contact you soon.",
		Workers:       8,
		BatchSize:     100,
		BatchWait:     500 * time.Millisecond,
		now:           time.Now,
	}
}

// result is one consumed message and, unless the event was skipped, the
// notification row it produced.
type result struct {
	msg kafka.Message
	row *model.BookingNotification
}

// Run blocks until ctx is cancelled. Offsets are committed only after the
// batch holding their rows is written, so a failed write leaves them for
// redelivery.
func (w *Notifier) Run(ctx context.Context) error {
	if w.Consumer == nil || w.Dispatch == nil || w.DB == nil {
		return errors.New("notifier: missing dependency")
	}
	if w.Workers <= 0 {
		w.Workers = 8
	}
	if w.BatchSize <= 0 {
		w.BatchSize = 100
	}
	if w.BatchWait <= 0 {
		w.BatchWait = 500 * time.Millisecond
	}
	if w.Log == nil {
		w.Log = zap.NewNop()
	}
	if w.now == nil {
		w.now = time.Now
	}

	results := make(chan result, w.BatchSize*2)
	msgCh := make(chan kafka.Message, w.Workers*2)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		w.runBatchWriter(ctx, results)
	}()

	// Fetcher goroutine
	go func() {
		defer close(msgCh)
		for {
			m, err := w.Consumer.Fetch(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				w.Log.Warn("kafka fetch failed", zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(200 * time.Millisecond):
				}
				continue
			}
			select {
			case msgCh <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < w.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range msgCh {
				r := w.processOne(ctx, m)
				select {
				case results <- r:
				case <-ctx.Done():
					// uncommitted; redelivered after restart
					return
				}
			}
		}()
	}

	wg.Wait()
	close(results)
	<-writerDone
	return nil
}

// decodeEvent accepts the payload as a JSON object or, as Debezium's outbox
// router emits it by default, as a JSON string holding the object.
func decodeEvent(v []byte) (model.BookingCreated, error) {
	var ev model.BookingCreated
	trimmed := strings.TrimSpace(string(v))
	if strings.HasPrefix(trimmed, `"`) {
		var inner string
		if err := json.Unmarshal(v, &inner); err != nil {
			return ev, err
		}
		v = []byte(inner)
	}
	if err := json.Unmarshal(v, &ev); err != nil {
		return ev, err
	}
	if ev.BookingCode == "" || ev.PhoneE164 == "" {
		return ev, errors.New("event missing booking code or phone")
	}
	return ev, nil
}

func (w *Notifier) render(ev model.BookingCreated) string {
	return strings.NewReplacer("{code}", ev.BookingCode, "{name}", ev.Name).Replace(w.Template)
}

func (w *Notifier) processOne(ctx context.Context, m kafka.Message) result {
	ev, err := decodeEvent(m.Value)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("poison").Inc()
		w.Log.Warn("skipping bad event", zap.Int64("offset", m.Offset), zap.Error(err))
		return result{msg: m} // poison → commit with the batch, skip
	}

	status := model.NotificationSent
	if err := w.Dispatch.Send(ctx, model.SMS{Phone: ev.PhoneE164, Text: w.render(ev)}); err != nil {
		status = model.NotificationFailed
		w.Log.Warn("confirmation sms failed", zap.String("code", ev.BookingCode), zap.Error(err))
	}
	metrics.NotificationsTotal.WithLabelValues(status.String()).Inc()

	return result{msg: m, row: &model.BookingNotification{
		BookingCode: ev.BookingCode,
		PhoneE164:   ev.PhoneE164,
		Status:      status,
		UpdatedAt:   w.now().UTC(),
	}}
}

// runBatchWriter does size/time-based flushes until in is closed. A full
// batch that cannot be written is retried every BatchWait and stops intake
// until it succeeds or ctx is cancelled.
func (w *Notifier) runBatchWriter(ctx context.Context, in <-chan result) {
	tick := time.NewTicker(w.BatchWait)
	defer tick.Stop()

	pending := make([]result, 0, w.BatchSize)

	flush := func() bool {
		if len(pending) == 0 {
			return true
		}
		if err := w.flush(pending); err != nil {
			w.Log.Error("notification batch write failed", zap.Int("pending", len(pending)), zap.Error(err))
			return false
		}
		pending = pending[:0]
		return true
	}

	for {
		select {
		case r, ok := <-in:
			if !ok {
				if !flush() {
					w.Log.Warn("shutdown with unwritten notifications, offsets left uncommitted", zap.Int("pending", len(pending)))
				}
				return
			}
			pending = append(pending, r)
			for len(pending) >= w.BatchSize && !flush() {
				select {
				case <-ctx.Done():
					w.Log.Warn("shutdown with unwritten notifications, offsets left uncommitted", zap.Int("pending", len(pending)))
					return
				case <-tick.C:
				}
			}
		case <-tick.C:
			flush()
		}
	}
}

// flush writes the rows of batch and then commits every offset in it.
func (w *Notifier) flush(batch []result) error {
	// detached from the run context so the final flush survives shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rows := make([]model.BookingNotification, 0, len(batch))
	msgs := make([]kafka.Message, 0, len(batch))
	for _, r := range batch {
		if r.row != nil {
			rows = append(rows, *r.row)
		}
		msgs = append(msgs, r.msg)
	}

	if len(rows) > 0 {
		if err := w.writeBatch(ctx, rows); err != nil {
			return err
		}
	}
	// the rows are durable; a failed commit only means redelivery
	if err := w.Consumer.Commit(ctx, msgs...); err != nil {
		w.Log.Warn("kafka commit failed", zap.Error(err))
	}
	w.Log.Debug("notifications flushed", zap.Int("rows", len(rows)), zap.Int("offsets", len(msgs)))
	return nil
}

func (w *Notifier) writeBatch(ctx context.Context, rows []model.BookingNotification) error {
	tx, err := w.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := w.Notifications.UpsertBatch(ctx, tx, rows); err != nil {
		return err
	}
	return tx.Commit()
}
