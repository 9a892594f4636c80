package model

import "time"

// Summit attempt outcomes.
const (
	SummitSuccessful = "SUCCESSFUL"
	SummitAttempted  = "ATTEMPTED"
	SummitFailed     = "FAILED"
)

// SummitRecord is the outcome of one attempt by a user on an expedition.
type SummitRecord struct {
	ID           uint64         `json:"id"`
	UserID       uint64         `json:"userId"`
	ExpeditionID uint64         `json:"expeditionId"`
	Status       string         `json:"status"`
	SummitDate   time.Time      `json:"summitDate"`
	Altitude     *int           `json:"altitude"`
	Notes        *string        `json:"notes"`
	Photos       StringList     `json:"photos"`
	CreatedAt    time.Time      `json:"createdAt"`
	Expedition   *ExpeditionRef `json:"expedition,omitempty"`
	User         *UserSummary   `json:"user,omitempty"`
}

// Certificate is the immutable proof of a summit.  VerificationCode is 32
// lowercase hex characters, globally unique, and is the public lookup key.
type Certificate struct {
	ID               uint64       `json:"id"`
	UserID           uint64       `json:"userId"`
	ExpeditionID     *uint64      `json:"expeditionId"`
	SummitRecordID   *uint64      `json:"summitRecordId"`
	ExpeditionTitle  string       `json:"expeditionTitle"`
	PeakName         string       `json:"peakName"`
	Altitude         int          `json:"altitude"`
	SummitDate       time.Time    `json:"summitDate"`
	VerificationCode string       `json:"verificationCode"`
	PDFURL           *string      `json:"pdfUrl"`
	QRCodeURL        *string      `json:"qrCodeUrl"`
	CreatedAt        time.Time    `json:"createdAt"`
	User             *UserSummary `json:"user,omitempty"`
}
