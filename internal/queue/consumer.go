package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ActivityConsumer drains every queue in Queues and appends one line per
// event to <Dir>/activity.log.
type ActivityConsumer struct {
	URL string
	Dir string
	Log *zap.Logger

	mu sync.Mutex
}

// Run connects to the broker and consumes until ctx is cancelled,
// reconnecting with exponential backoff (capped at 30s).  Undecodable
// messages are rejected without requeue.
func (ac *ActivityConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(ac.URL)
		if err != nil {
			ac.Log.Warn("activity-consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = ac.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		ac.Log.Warn("activity-consumer: consume loop ended; reconnecting", zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func (ac *ActivityConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		ac.Log.Warn("activity-consumer: set QoS failed", zap.Error(err))
	}

	type delivery struct {
		queue string
		d     amqp.Delivery
	}
	merged := make(chan delivery)
	var wg sync.WaitGroup
	for _, q := range Queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
		msgs, err := ch.Consume(q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", q, err)
		}
		wg.Add(1)
		go func(q string, msgs <-chan amqp.Delivery) {
			defer wg.Done()
			for d := range msgs {
				select {
				case merged <- delivery{queue: q, d: d}:
				case <-ctx.Done():
					return
				}
			}
		}(q, msgs)
	}
	go func() {
		wg.Wait()
		close(merged)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-merged:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := ac.Handle(m.queue, m.d.Body); err != nil {
				ac.Log.Warn("activity-consumer: handle message failed", zap.String("queue", m.queue), zap.Error(err))
				_ = m.d.Nack(false, false)
				continue
			}
			_ = m.d.Ack(false)
		}
	}
}

// Handle decodes one message of queue and appends its activity line.
func (ac *ActivityConsumer) Handle(queue string, body []byte) error {
	line, err := FormatActivity(queue, body)
	if err != nil {
		return err
	}
	ac.mu.Lock()
	defer ac.mu.Unlock()

	if err := os.MkdirAll(ac.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(ac.Dir, "activity.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	_, err = io.WriteString(f, line)
	return err
}

// FormatActivity renders the single-line log entry for a message.
func FormatActivity(queue string, body []byte) (string, error) {
	switch queue {
	case BookingCreatedQueue:
		var ev BookingCreatedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Booking created | booking_id=%d | user_id=%d | expedition_id=%d | expedition=%q | people=%d | total=%d cents\n",
			ev.CreatedAt, ev.BookingID, ev.UserID, ev.ExpeditionID, ev.ExpeditionTitle, ev.NumberOfPeople, ev.TotalAmountCents), nil
	case CertificateIssuedQueue:
		var ev CertificateIssuedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Certificate issued | certificate_id=%d | user_id=%d | peak=%q | altitude=%dm | code=%s\n",
			ev.IssuedAt, ev.CertificateID, ev.UserID, ev.PeakName, ev.Altitude, ev.VerificationCode), nil
	case PostCreatedQueue:
		var ev PostCreatedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Post created | post_id=%d | user_id=%d | title=%q | published=%t\n",
			ev.CreatedAt, ev.PostID, ev.UserID, ev.Title, ev.IsPublished), nil
	}
	return "", fmt.Errorf("unknown queue %q", queue)
}
