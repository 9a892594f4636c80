// Package queue defines the events exchanged over the message broker and
// the consumer that records them.
package queue

// Queue names.  Each event type has its own durable queue.
const (
	BookingCreatedQueue    = "booking.created"
	CertificateIssuedQueue = "certificate.issued"
	PostCreatedQueue       = "community.post_created"
)

// Queues lists every queue the consumer drains.
var Queues = []string{BookingCreatedQueue, CertificateIssuedQueue, PostCreatedQueue}

// BookingCreatedEvent is published after a booking is stored.  It carries
// enough for downstream consumers to log or notify without querying the
// database.
type BookingCreatedEvent struct {
	BookingID        uint64 `json:"booking_id"`
	UserID           uint64 `json:"user_id"`
	ExpeditionID     uint64 `json:"expedition_id"`
	ExpeditionTitle  string `json:"expedition_title"`
	NumberOfPeople   int    `json:"number_of_people"`
	TotalAmountCents uint64 `json:"total_amount_cents"`
	CreatedAt        string `json:"created_at"`
}

// CertificateIssuedEvent is published after a certificate is issued.
type CertificateIssuedEvent struct {
	CertificateID    uint64 `json:"certificate_id"`
	UserID           uint64 `json:"user_id"`
	PeakName         string `json:"peak_name"`
	Altitude         int    `json:"altitude"`
	VerificationCode string `json:"verification_code"`
	IssuedAt         string `json:"issued_at"`
}

// PostCreatedEvent is published after a community post is created.
type PostCreatedEvent struct {
	PostID      uint64 `json:"post_id"`
	UserID      uint64 `json:"user_id"`
	Title       string `json:"title"`
	IsPublished bool   `json:"is_published"`
	CreatedAt   string `json:"created_at"`
}
