package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"esgledger/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	return db
}

func seedParticipant(t *testing.T, s *Store, role string, registered bool) *models.Participant {
	t.Helper()
	p := &models.Participant{
		Email:            fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		CompanyName:      "Acme Carbon",
		WalletAddress:    "0x00000000" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Role:             role,
		LedgerRegistered: registered,
	}
	require.NoError(t, s.CreateParticipant(context.Background(), p))
	return p
}

func seedSubmission(t *testing.T, s *Store, owner *models.Participant, ledgerID string, submittedAt time.Time) *models.SubmissionRecord {
	t.Helper()
	record := &models.SubmissionRecord{
		ParticipantID:  owner.ID,
		WalletAddress:  owner.WalletAddress,
		LedgerRecordID: ledgerID,
		TxHash:         "0xfeed" + ledgerID,
		DataType:       "carbon_emissions",
		Value:          "1000",
		Unit:           "tonnes CO2",
		DocumentHash:   "0xhash" + ledgerID,
		SubmittedAt:    submittedAt,
	}
	require.NoError(t, s.CreateSubmission(context.Background(), record))
	return record
}

func TestParticipantLookups(t *testing.T) {
	s := New(setupTestDB(t))
	ctx := context.Background()
	p := seedParticipant(t, s, models.RoleCompany, false)

	byID, err := s.ParticipantByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, p.Email, byID.Email)

	byEmail, err := s.ParticipantByEmail(ctx, p.Email)
	require.NoError(t, err)
	require.Equal(t, p.ID, byEmail.ID)

	byAddress, err := s.ParticipantByAddress(ctx, p.WalletAddress)
	require.NoError(t, err)
	require.Equal(t, p.ID, byAddress.ID)

	_, err = s.ParticipantByID(ctx, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSetLedgerRegistered(t *testing.T) {
	s := New(setupTestDB(t))
	ctx := context.Background()
	p := seedParticipant(t, s, models.RoleCompany, false)

	require.NoError(t, s.SetLedgerRegistered(ctx, p.ID, true))
	updated, err := s.ParticipantByID(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, updated.LedgerRegistered)

	require.ErrorIs(t, s.SetLedgerRegistered(ctx, uuid.New(), true), ErrNotFound)
}

func TestListByOwnerOrdersNewestFirst(t *testing.T) {
	s := New(setupTestDB(t))
	ctx := context.Background()
	owner := seedParticipant(t, s, models.RoleCompany, true)

	base := time.Now().UTC().Truncate(time.Second)
	seedSubmission(t, s, owner, "1", base.Add(-2*time.Hour))
	seedSubmission(t, s, owner, "2", base.Add(-time.Hour))
	seedSubmission(t, s, owner, "3", base)

	rows, err := s.ListByOwner(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "3", rows[0].LedgerRecordID)
	require.Equal(t, "2", rows[1].LedgerRecordID)
	require.Equal(t, "1", rows[2].LedgerRecordID)
}

func TestLedgerRecordIDIsUnique(t *testing.T) {
	s := New(setupTestDB(t))
	owner := seedParticipant(t, s, models.RoleCompany, true)
	seedSubmission(t, s, owner, "9", time.Now())

	dup := &models.SubmissionRecord{
		ParticipantID:  owner.ID,
		WalletAddress:  owner.WalletAddress,
		LedgerRecordID: "9",
		TxHash:         "0xother",
		DataType:       "water_usage",
		Value:          "5",
		SubmittedAt:    time.Now(),
	}
	require.ErrorIs(t, s.CreateSubmission(context.Background(), dup), ErrDuplicate)
}

func TestCreateParticipantReportsDuplicates(t *testing.T) {
	s := New(setupTestDB(t))
	ctx := context.Background()
	p := seedParticipant(t, s, models.RoleCompany, false)

	sameEmail := &models.Participant{
		Email:         p.Email,
		CompanyName:   "Other Corp",
		WalletAddress: "0x00000000" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Role:          models.RoleCompany,
	}
	require.ErrorIs(t, s.CreateParticipant(ctx, sameEmail), ErrDuplicate)

	sameAddress := &models.Participant{
		Email:         fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		CompanyName:   "Other Corp",
		WalletAddress: p.WalletAddress,
		Role:          models.RoleCompany,
	}
	require.ErrorIs(t, s.CreateParticipant(ctx, sameAddress), ErrDuplicate)
}

func TestMarkVerifiedTransitions(t *testing.T) {
	s := New(setupTestDB(t))
	ctx := context.Background()
	owner := seedParticipant(t, s, models.RoleCompany, true)
	verifier := seedParticipant(t, s, models.RoleVerifier, false)
	seedSubmission(t, s, owner, "4", time.Now())

	pending, err := s.ListPendingVerification(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.MarkVerified(ctx, "4", models.StatusRejected, verifier.ID, now))

	row, err := s.SubmissionByLedgerID(ctx, "4")
	require.NoError(t, err)
	require.Equal(t, models.StatusRejected, row.Status)
	require.False(t, row.Verified())
	require.NotNil(t, row.VerifierID)
	require.Equal(t, verifier.ID, *row.VerifierID)

	// rejected rows are reviewed, not pending
	pending, err = s.ListPendingVerification(ctx)
	require.NoError(t, err)
	require.Empty(t, pending)

	require.ErrorIs(t, s.MarkVerified(ctx, "404", models.StatusApproved, verifier.ID, now), ErrNotFound)
}

func TestCountStats(t *testing.T) {
	s := New(setupTestDB(t))
	ctx := context.Background()
	owner := seedParticipant(t, s, models.RoleCompany, true)
	verifier := seedParticipant(t, s, models.RoleVerifier, false)

	seedSubmission(t, s, owner, "10", time.Now())
	seedSubmission(t, s, owner, "11", time.Now())
	require.NoError(t, s.MarkVerified(ctx, "11", models.StatusApproved, verifier.ID, time.Now()))

	stats, err := s.CountStats(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.TotalRecords)
	require.Equal(t, int64(1), stats.VerifiedRecords)
	require.Equal(t, int64(1), stats.PendingRecords)
	require.Equal(t, int64(0), stats.RejectedRecords)
	require.Equal(t, int64(1), stats.TotalCompanies)
	require.Equal(t, int64(1), stats.TotalVerifiers)
}
