package model

import "time"

// Booking lifecycle and payment states.  Transitions are not validated; an
// admin update overwrites whatever is stored.
const (
	BookingPending   = "PENDING"
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
	BookingCompleted = "COMPLETED"

	PaymentPending  = "PENDING"
	PaymentPaid     = "PAID"
	PaymentRefunded = "REFUNDED"
)

// Booking records a user's reservation of an expedition for
// NumberOfPeople climbers.  TotalAmountCents is fixed at creation as the
// expedition's base price times the party size.
type Booking struct {
	ID               uint64         `json:"id"`
	UserID           uint64         `json:"userId"`
	ExpeditionID     uint64         `json:"expeditionId"`
	NumberOfPeople   int            `json:"numberOfPeople"`
	TotalAmountCents uint64         `json:"totalAmountCents"`
	Status           string         `json:"status"`
	PaymentStatus    string         `json:"paymentStatus"`
	SpecialRequests  *string        `json:"specialRequests"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
	Expedition       *ExpeditionRef `json:"expedition,omitempty"`
	User             *UserSummary   `json:"user,omitempty"`
}
