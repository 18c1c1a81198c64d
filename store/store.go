// Package store keeps the off-chain mirror of ledger facts and merges mirror
// rows with their on-ledger projections.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"esgledger/models"
)

// ErrNotFound reports a missing mirror row or participant.
var ErrNotFound = errors.New("store: not found")

// ErrDuplicate reports a unique-constraint violation on insert.
var ErrDuplicate = errors.New("store: duplicate")

// Store is the gorm-backed reconciliation store.
type Store struct {
	db *gorm.DB
}

// New wraps a gorm handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// CreateParticipant inserts a new off-chain identity. Wallet addresses are
// stored lower-cased.
func (s *Store) CreateParticipant(ctx context.Context, p *models.Participant) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.WalletAddress = strings.ToLower(strings.TrimSpace(p.WalletAddress))
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("create participant: %w", ErrDuplicate)
		}
		return fmt.Errorf("create participant: %w", err)
	}
	return nil
}

// ParticipantByID fetches a participant by primary key.
func (s *Store) ParticipantByID(ctx context.Context, id uuid.UUID) (*models.Participant, error) {
	var p models.Participant
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, wrapLookup("participant", err)
	}
	return &p, nil
}

// ParticipantByEmail fetches a participant by login email.
func (s *Store) ParticipantByEmail(ctx context.Context, email string) (*models.Participant, error) {
	var p models.Participant
	if err := s.db.WithContext(ctx).First(&p, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error; err != nil {
		return nil, wrapLookup("participant", err)
	}
	return &p, nil
}

// ParticipantByAddress fetches the participant controlling a wallet address.
func (s *Store) ParticipantByAddress(ctx context.Context, address string) (*models.Participant, error) {
	var p models.Participant
	if err := s.db.WithContext(ctx).First(&p, "wallet_address = ?", strings.ToLower(strings.TrimSpace(address))).Error; err != nil {
		return nil, wrapLookup("participant", err)
	}
	return &p, nil
}

// SetLedgerRegistered flips the registration cache flag for a participant.
// Callers only set it true after the ledger itself confirms registration.
func (s *Store) SetLedgerRegistered(ctx context.Context, id uuid.UUID, registered bool) error {
	result := s.db.WithContext(ctx).Model(&models.Participant{}).
		Where("id = ?", id).
		Update("ledger_registered", registered)
	if result.Error != nil {
		return fmt.Errorf("set ledger registered: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateSubmission persists a mirror row for a confirmed ledger record.
func (s *Store) CreateSubmission(ctx context.Context, record *models.SubmissionRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Status == "" {
		record.Status = models.StatusPending
	}
	record.WalletAddress = strings.ToLower(strings.TrimSpace(record.WalletAddress))
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("create submission: %w", ErrDuplicate)
		}
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// SubmissionByLedgerID fetches a mirror row by its ledger-assigned identifier.
func (s *Store) SubmissionByLedgerID(ctx context.Context, ledgerID string) (*models.SubmissionRecord, error) {
	var record models.SubmissionRecord
	err := s.db.WithContext(ctx).
		Preload("Participant").
		Preload("Verifier").
		First(&record, "ledger_record_id = ?", strings.TrimSpace(ledgerID)).Error
	if err != nil {
		return nil, wrapLookup("submission", err)
	}
	return &record, nil
}

// ListByOwner returns a participant's mirror rows, newest submission first.
func (s *Store) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.SubmissionRecord, error) {
	var records []models.SubmissionRecord
	err := s.db.WithContext(ctx).
		Where("participant_id = ?", ownerID).
		Order("submitted_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list by owner: %w", err)
	}
	return records, nil
}

// ListPendingVerification returns all rows still awaiting review, newest first.
func (s *Store) ListPendingVerification(ctx context.Context) ([]models.SubmissionRecord, error) {
	var records []models.SubmissionRecord
	err := s.db.WithContext(ctx).
		Preload("Participant").
		Where("status = ?", models.StatusPending).
		Order("submitted_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	return records, nil
}

// ListAll returns the most recent mirror rows with owner and verifier
// references populated.
func (s *Store) ListAll(ctx context.Context, limit int) ([]models.SubmissionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var records []models.SubmissionRecord
	err := s.db.WithContext(ctx).
		Preload("Participant").
		Preload("Verifier").
		Order("submitted_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list all: %w", err)
	}
	return records, nil
}

// MarkVerified records the declared outcome of a verification transaction on
// the mirror row. The ledger record id and tx hash are never touched.
func (s *Store) MarkVerified(ctx context.Context, ledgerID string, status models.VerificationStatus, verifierID uuid.UUID, at time.Time) error {
	result := s.db.WithContext(ctx).Model(&models.SubmissionRecord{}).
		Where("ledger_record_id = ?", strings.TrimSpace(ledgerID)).
		Updates(map[string]interface{}{
			"status":      status,
			"verifier_id": verifierID,
			"verified_at": at,
		})
	if result.Error != nil {
		return fmt.Errorf("mark verified: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats summarises the mirror store for dashboards.
type Stats struct {
	TotalRecords    int64 `json:"totalRecords"`
	VerifiedRecords int64 `json:"verifiedRecords"`
	PendingRecords  int64 `json:"pendingRecords"`
	RejectedRecords int64 `json:"rejectedRecords"`
	TotalCompanies  int64 `json:"totalCompanies"`
	TotalVerifiers  int64 `json:"totalVerifiers"`
}

// CountStats computes the mirror-side verification statistics.
func (s *Store) CountStats(ctx context.Context) (*Stats, error) {
	db := s.db.WithContext(ctx)
	stats := &Stats{}
	counts := []struct {
		dst   *int64
		query *gorm.DB
	}{
		{&stats.TotalRecords, db.Model(&models.SubmissionRecord{})},
		{&stats.VerifiedRecords, db.Model(&models.SubmissionRecord{}).Where("status = ?", models.StatusApproved)},
		{&stats.PendingRecords, db.Model(&models.SubmissionRecord{}).Where("status = ?", models.StatusPending)},
		{&stats.RejectedRecords, db.Model(&models.SubmissionRecord{}).Where("status = ?", models.StatusRejected)},
		{&stats.TotalCompanies, db.Model(&models.Participant{}).Where("role = ? AND ledger_registered = ?", models.RoleCompany, true)},
		{&stats.TotalVerifiers, db.Model(&models.Participant{}).Where("role = ?", models.RoleVerifier)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dst).Error; err != nil {
			return nil, fmt.Errorf("count stats: %w", err)
		}
	}
	return stats, nil
}

// RegisteredParticipants lists every participant whose registration flag is
// set; the recon scanner walks their ledger records.
func (s *Store) RegisteredParticipants(ctx context.Context) ([]models.Participant, error) {
	var participants []models.Participant
	err := s.db.WithContext(ctx).
		Where("ledger_registered = ?", true).
		Find(&participants).Error
	if err != nil {
		return nil, fmt.Errorf("list registered: %w", err)
	}
	return participants, nil
}

// isDuplicate recognises unique-constraint violations across the drivers in
// use: gorm's translated error, postgres ("duplicate key value violates
// unique constraint") and sqlite ("UNIQUE constraint failed").
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func wrapLookup(entity string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", entity, ErrNotFound)
	}
	return fmt.Errorf("lookup %s: %w", entity, err)
}
