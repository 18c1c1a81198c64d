package pipeline

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"esgledger/ledger"
	"esgledger/store"
)

// OwnerRecords lists a participant's mirror rows merged with their ledger
// projections. Per-row ledger reads fan out with independent timeouts; a
// failed read nils that row's projection only.
func (s *Service) OwnerRecords(ctx context.Context, participantID uuid.UUID) ([]store.MergedRecord, error) {
	rows, err := s.store.ListByOwner(ctx, participantID)
	if err != nil {
		return nil, err
	}
	return store.Merge(ctx, rows, s.ledger, s.rowTimeout), nil
}

// PendingRecords lists all rows still awaiting review, merged with ledger
// projections.
func (s *Service) PendingRecords(ctx context.Context) ([]store.MergedRecord, error) {
	rows, err := s.store.ListPendingVerification(ctx)
	if err != nil {
		return nil, err
	}
	return store.Merge(ctx, rows, s.ledger, s.rowTimeout), nil
}

// AllRecords lists the most recent mirror rows, merged with ledger
// projections.
func (s *Service) AllRecords(ctx context.Context) ([]store.MergedRecord, error) {
	rows, err := s.store.ListAll(ctx, 100)
	if err != nil {
		return nil, err
	}
	return store.Merge(ctx, rows, s.ledger, s.rowTimeout), nil
}

// RecordView pairs the two projections of one record for presentation.
type RecordView struct {
	Ledger *ledger.Record      `json:"ledger"`
	Mirror *store.MergedRecord `json:"mirror"`
}

// RecordByLedgerID fetches one record from both stores. A missing mirror row
// is not an error: the ledger is the system of record and the row may not
// have been written yet (or was lost to a mirror write failure).
func (s *Service) RecordByLedgerID(ctx context.Context, ledgerRecordID string) (*RecordView, error) {
	ledgerRecord, err := s.ledger.GetRecord(ctx, ledgerRecordID)
	if err != nil {
		return nil, err
	}
	view := &RecordView{Ledger: ledgerRecord}
	row, err := s.store.SubmissionByLedgerID(ctx, ledgerRecordID)
	switch {
	case err == nil:
		view.Mirror = &store.MergedRecord{SubmissionRecord: *row, Ledger: ledgerRecord}
	case errors.Is(err, store.ErrNotFound):
		// ledger-only view
	default:
		return nil, err
	}
	return view, nil
}

// CompanyInfo reads a participant's on-ledger registration.
func (s *Service) CompanyInfo(ctx context.Context, participantID uuid.UUID) (*ledger.Company, error) {
	participant, err := s.store.ParticipantByID(ctx, participantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ledger.Errorf(ledger.KindNotFound, "participant not found")
		}
		return nil, err
	}
	return s.ledger.GetCompany(ctx, participant.WalletAddress)
}

// StatsView merges mirror-side counts with ledger-wide totals. Ledger totals
// degrade to empty strings when the node is unreachable; the mirror counts
// still stand.
type StatsView struct {
	Mirror               *store.Stats `json:"mirror"`
	LedgerTotalCompanies string       `json:"ledgerTotalCompanies,omitempty"`
	LedgerTotalRecords   string       `json:"ledgerTotalRecords,omitempty"`
}

// Stats assembles the dashboard statistics.
func (s *Service) Stats(ctx context.Context) (*StatsView, error) {
	mirror, err := s.store.CountStats(ctx)
	if err != nil {
		return nil, err
	}
	view := &StatsView{Mirror: mirror}
	if total, err := s.ledger.TotalCompanies(ctx); err == nil {
		view.LedgerTotalCompanies = total
	} else {
		s.logger.Warn("ledger participant total unavailable", "err", err)
	}
	if total, err := s.ledger.TotalRecords(ctx); err == nil {
		view.LedgerTotalRecords = total
	} else {
		s.logger.Warn("ledger record total unavailable", "err", err)
	}
	return view, nil
}
