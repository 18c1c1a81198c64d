package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"esgledger/ledger"
	"esgledger/store"
)

// RegistrationResult reports a confirmed on-ledger company registration.
type RegistrationResult struct {
	TxHash      string `json:"transactionHash"`
	BlockNumber string `json:"blockNumber"`
	GasUsed     string `json:"gasUsed"`
}

// RegisterCompany moves a participant from Unregistered to Registered on the
// ledger. The mirror flag is only flipped after the ledger confirms; any
// failure leaves it untouched. The cache may be stale, so the ledger itself
// is consulted before submitting: an already-registered address short-circuits
// with the cache repaired and a precondition error, never a duplicate submit.
func (s *Service) RegisterCompany(ctx context.Context, participantID uuid.UUID) (*RegistrationResult, error) {
	participant, err := s.store.ParticipantByID(ctx, participantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ledger.Errorf(ledger.KindNotFound, "participant not found")
		}
		return nil, err
	}
	if participant.LedgerRegistered {
		return nil, ledger.Errorf(ledger.KindPrecondition, "company already registered on ledger")
	}

	address := strings.ToLower(participant.WalletAddress)
	registered, err := s.ledger.IsRegistered(ctx, address)
	if err != nil {
		return nil, err
	}
	if registered {
		if err := s.store.SetLedgerRegistered(ctx, participantID, true); err != nil {
			s.logger.Error("cache repair failed after stale registration flag",
				"participant", participantID, "err", err)
		}
		return nil, ledger.Errorf(ledger.KindPrecondition, "company already registered on ledger")
	}

	registrationID := strings.TrimSpace(participant.RegistrationID)
	if registrationID == "" {
		registrationID = "N/A"
	}
	result, err := s.orch.Execute(ctx, ledger.Intent{
		Method: ledger.MethodRegisterCompany,
		Sender: address,
		Args:   []interface{}{participant.CompanyName, registrationID},
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.SetLedgerRegistered(ctx, participantID, true); err != nil {
		// The ledger now holds a registration the mirror does not reflect;
		// the recon scanner will repair the flag on its next pass.
		s.logger.Error("mirror flag update failed after confirmed registration",
			"participant", participantID, "tx", result.TxHash, "err", err)
		return nil, ledger.NewError(ledger.KindMirrorWriteFailure,
			"registration confirmed on ledger but mirror update failed", err)
	}

	s.logger.Info("company registered on ledger",
		"participant", participantID, "address", address,
		"tx", result.TxHash, "block", result.BlockNumber)

	return &RegistrationResult{
		TxHash:      result.TxHash,
		BlockNumber: result.BlockNumber,
		GasUsed:     result.GasUsed,
	}, nil
}
