package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() BookingEvent {
	return BookingEvent{
		EventID:       "5f0c6f6e-3c57-4d1c-9a8e-0d2f3c1b7a10",
		Kind:          EventConfirmed,
		BookingID:     42,
		PaymentID:     43,
		UserID:        7,
		ShowtimeID:    10,
		BookingStatus: "confirmed",
		PaymentStatus: "completed",
		CinemaName:    "Downtown",
		RoomName:      "Hall 1",
		MovieTitle:    "Arrival",
		StartsAt:      "2026-03-01T20:00:00Z",
		SeatLabels:    []string{"A1", "A2"},
		TotalAmount:   "17.50",
		OccurredAt:    "2026-03-01T18:00:00Z",
	}
}

func TestQueueNames(t *testing.T) {
	got := make([]string, 0, len(Kinds))
	for _, k := range Kinds {
		got = append(got, QueueName(k))
	}
	assert.Equal(t, []string{"booking.reserved", "booking.confirmed", "booking.cancelled", "booking.refunded"}, got)
}

func TestPublishingIsPersistentJSON(t *testing.T) {
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	pub, err := publishing(sampleEvent(), now)
	require.NoError(t, err)
	assert.Equal(t, amqp.Persistent, pub.DeliveryMode)
	assert.Equal(t, "application/json", pub.ContentType)
	assert.Equal(t, "booking.confirmed", pub.Type)
	assert.Equal(t, now, pub.Timestamp)

	var back BookingEvent
	require.NoError(t, json.Unmarshal(pub.Body, &back))
	assert.Equal(t, sampleEvent(), back)
}

func TestHandleMessageAppendsLine(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	body, err := json.Marshal(sampleEvent())
	require.NoError(t, err)

	require.NoError(t, handleMessage(dir, body))
	require.NoError(t, handleMessage(dir, body))

	data, err := os.ReadFile(filepath.Join(dir, LogFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t,
		`[2026-03-01T18:00:00Z] Booking confirmed | booking_id=42 | payment_id=43 | user_id=7 | showtime_id=10 | status=confirmed | cinema="Downtown" | room="Hall 1" | movie="Arrival" | starts_at=2026-03-01T20:00:00Z | total=17.50 | seats=[A1,A2]`,
		lines[0])
}

func TestHandleMessageRejectsBadPayloads(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, handleMessage(dir, []byte("{")))
	assert.Error(t, handleMessage(dir, []byte(`{"kind":"confirmed"}`)))

	_, err := os.Stat(filepath.Join(dir, LogFile))
	assert.True(t, os.IsNotExist(err))
}
