package pipeline

import (
	"context"
	"errors"
	"math/big"
	"strings"

	"github.com/google/uuid"

	"esgledger/ledger"
	"esgledger/models"
	"esgledger/store"
)

// VerifyResult reports the declared outcome of a verification transaction.
type VerifyResult struct {
	RecordID    string `json:"recordId"`
	Approved    bool   `json:"approved"`
	TxHash      string `json:"transactionHash"`
	BlockNumber string `json:"blockNumber"`
	GasUsed     string `json:"gasUsed"`
}

// VerifyRecord attests to a mirror row's ledger record. The off-chain
// precondition (row exists, still pending) is checked before any ledger call;
// a row already reviewed is refused without submitting. The mirror is updated
// to the declared outcome of the confirmed transaction: approval and
// rejection are distinct terminal states.
func (s *Service) VerifyRecord(ctx context.Context, verifierID uuid.UUID, ledgerRecordID string, approved bool, comments string) (*VerifyResult, error) {
	verifier, err := s.store.ParticipantByID(ctx, verifierID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ledger.Errorf(ledger.KindNotFound, "verifier not found")
		}
		return nil, err
	}
	if verifier.Role != models.RoleVerifier && verifier.Role != models.RoleAdmin {
		return nil, ledger.Errorf(ledger.KindPrecondition, "only authorized verifiers can verify ESG data")
	}

	record, err := s.store.SubmissionByLedgerID(ctx, ledgerRecordID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ledger.Errorf(ledger.KindNotFound, "record not found")
		}
		return nil, err
	}
	if record.Status != models.StatusPending {
		return nil, ledger.Errorf(ledger.KindPrecondition, "record already reviewed")
	}

	recordID, ok := new(big.Int).SetString(strings.TrimSpace(ledgerRecordID), 10)
	if !ok || recordID.Sign() < 0 {
		return nil, ledger.Errorf(ledger.KindValidation, "invalid record id %q", ledgerRecordID)
	}

	result, err := s.orch.Execute(ctx, ledger.Intent{
		Method: ledger.MethodVerifyESGData,
		Sender: strings.ToLower(verifier.WalletAddress),
		Args:   []interface{}{recordID, approved, comments},
	})
	if err != nil {
		return nil, err
	}

	status := models.StatusRejected
	if approved {
		status = models.StatusApproved
	}
	if err := s.store.MarkVerified(ctx, record.LedgerRecordID, status, verifierID, s.now()); err != nil {
		s.logger.Error("mirror update failed after confirmed verification",
			"ledger_record_id", record.LedgerRecordID, "tx", result.TxHash, "err", err)
		return nil, ledger.NewError(ledger.KindMirrorWriteFailure,
			"verification anchored on ledger but mirror update failed", err)
	}

	s.logger.Info("esg record reviewed",
		"ledger_record_id", record.LedgerRecordID, "approved", approved,
		"verifier", verifierID, "tx", result.TxHash)

	return &VerifyResult{
		RecordID:    record.LedgerRecordID,
		Approved:    approved,
		TxHash:      result.TxHash,
		BlockNumber: result.BlockNumber,
		GasUsed:     result.GasUsed,
	}, nil
}
