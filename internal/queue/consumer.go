package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// LogFile is the file name the consumer appends to inside its log directory.
const LogFile = "booking.log"

// StartBookingConsumer consumes one booking queue and appends each event to
// <logDir>/booking.log as a single line.  It reconnects with exponential
// backoff and only returns when ctx is cancelled.  Undecodable messages are
// rejected without requeue so the loop never spins on them.
func StartBookingConsumer(ctx context.Context, url, queueName, logDir string) error {
	if url == "" {
		url = DefaultURL
	}
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("booking-consumer: queue=%s failed to dial broker: %v; retrying in %s", queueName, err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, queueName, logDir)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("booking-consumer: queue=%s consume loop ended: %v; reconnecting", queueName, err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queueName, logDir string) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("booking-consumer: set QoS failed: %v", err)
	}
	if err := declare(ch, queueName); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleMessage(logDir, d.Body); err != nil {
				log.Printf("booking-consumer: queue=%s handle message failed: %v", queueName, err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleMessage(logDir string, body []byte) error {
	var ev BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Kind == "" || ev.BookingID == 0 {
		return errors.New("event without kind or booking id")
	}
	if logDir == "" {
		logDir = "logs"
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", logDir, err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, LogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// formatLine renders ev in the booking log format.
func formatLine(ev BookingEvent) string {
	seats := "[" + strings.Join(ev.SeatLabels, ",") + "]"
	return fmt.Sprintf("[%s] Booking %s | booking_id=%d | payment_id=%d | user_id=%d | showtime_id=%d | status=%s | cinema=%q | room=%q | movie=%q | starts_at=%s | total=%s | seats=%s\n",
		ev.OccurredAt, ev.Kind, ev.BookingID, ev.PaymentID, ev.UserID, ev.ShowtimeID, ev.BookingStatus,
		ev.CinemaName, ev.RoomName, ev.MovieTitle, ev.StartsAt, ev.TotalAmount, seats)
}
