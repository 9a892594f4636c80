package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFormatActivity(t *testing.T) {
	body, err := json.Marshal(BookingCreatedEvent{
		BookingID: 7, UserID: 3, ExpeditionID: 1, ExpeditionTitle: "K2 Base Camp Trek",
		NumberOfPeople: 2, TotalAmountCents: 500000, CreatedAt: "2024-06-01T10:00:00Z",
	})
	require.NoError(t, err)

	line, err := FormatActivity(BookingCreatedQueue, body)
	require.NoError(t, err)
	assert.Equal(t,
		"[2024-06-01T10:00:00Z] Booking created | booking_id=7 | user_id=3 | expedition_id=1 | expedition=\"K2 Base Camp Trek\" | people=2 | total=500000 cents\n",
		line)

	_, err = FormatActivity("nope", body)
	assert.Error(t, err)
	_, err = FormatActivity(PostCreatedQueue, []byte("{"))
	assert.Error(t, err)
}

func TestHandleAppendsLines(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	ac := &ActivityConsumer{Dir: dir, Log: zap.NewNop()}

	cert, _ := json.Marshal(CertificateIssuedEvent{CertificateID: 1, UserID: 2, PeakName: "K2", Altitude: 8611, VerificationCode: "abc"})
	post, _ := json.Marshal(PostCreatedEvent{PostID: 4, UserID: 2, Title: "Summit day"})
	require.NoError(t, ac.Handle(CertificateIssuedQueue, cert))
	require.NoError(t, ac.Handle(PostCreatedQueue, post))
	assert.Error(t, ac.Handle(BookingCreatedQueue, []byte("not json")))

	data, err := os.ReadFile(filepath.Join(dir, "activity.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Certificate issued | certificate_id=1")
	assert.Contains(t, lines[0], "altitude=8611m")
	assert.Contains(t, lines[1], "Post created | post_id=4")
	assert.Contains(t, lines[1], "published=false")
}
