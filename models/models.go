package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role enumerations for persistence.
const (
	RoleCompany  = "company"
	RoleVerifier = "verifier"
	RoleAdmin    = "admin"
)

// VerificationStatus tracks the review state of a mirror row. Rejection is a
// distinct state so a rejected record never reads as "not yet reviewed".
type VerificationStatus string

// All verification states.
const (
	StatusPending  VerificationStatus = "PENDING"
	StatusApproved VerificationStatus = "APPROVED"
	StatusRejected VerificationStatus = "REJECTED"
)

// Participant is an off-chain identity with a ledger account. The
// LedgerRegistered flag is a cache of the on-ledger registration and may lag
// it, never lead it.
type Participant struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email            string    `gorm:"uniqueIndex;size:255" json:"email"`
	PasswordHash     string    `gorm:"size:128" json:"-"`
	CompanyName      string    `gorm:"size:255" json:"companyName"`
	WalletAddress    string    `gorm:"uniqueIndex;size:42" json:"walletAddress"`
	RegistrationID   string    `gorm:"size:128" json:"registrationId"`
	Role             string    `gorm:"size:16;index" json:"role"`
	LedgerRegistered bool      `gorm:"index" json:"ledgerRegistered"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// SubmissionRecord mirrors one on-ledger ESG record. It is created only after
// the ledger transaction is confirmed and the record id extracted; the ledger
// record id and transaction hash are immutable once set.
type SubmissionRecord struct {
	ID             uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	ParticipantID  uuid.UUID          `gorm:"type:uuid;index" json:"participantId"`
	WalletAddress  string             `gorm:"size:42;index" json:"walletAddress"`
	LedgerRecordID string             `gorm:"uniqueIndex;size:78" json:"ledgerRecordId"`
	TxHash         string             `gorm:"size:66" json:"transactionHash"`
	DataType       string             `gorm:"size:64;index" json:"dataType"`
	Value          string             `gorm:"size:128" json:"value"`
	Unit           string             `gorm:"size:64" json:"unit"`
	DocumentHash   string             `gorm:"size:66" json:"documentHash"`
	Comments       string             `gorm:"size:512" json:"comments"`
	PeriodStart    *time.Time         `json:"periodStart,omitempty"`
	PeriodEnd      *time.Time         `json:"periodEnd,omitempty"`
	Status         VerificationStatus `gorm:"size:16;index" json:"status"`
	VerifierID     *uuid.UUID         `gorm:"type:uuid" json:"verifierId,omitempty"`
	VerifiedAt     *time.Time         `json:"verifiedAt,omitempty"`
	SubmittedAt    time.Time          `gorm:"index" json:"submittedAt"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`

	Participant *Participant `gorm:"foreignKey:ParticipantID" json:"participant,omitempty"`
	Verifier    *Participant `gorm:"foreignKey:VerifierID" json:"verifier,omitempty"`
}

// Verified reports whether the record passed review.
func (r SubmissionRecord) Verified() bool {
	return r.Status == StatusApproved
}

// ValidRole reports whether the role is one the gateway accepts.
func ValidRole(role string) bool {
	switch role {
	case RoleCompany, RoleVerifier, RoleAdmin:
		return true
	}
	return false
}

// AutoMigrate performs all schema migrations for the service.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Participant{},
		&SubmissionRecord{},
	)
}
