package pipeline

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"esgledger/ledger"
	"esgledger/models"
	"esgledger/store"
)

// DataTypes the registry accepts, matching the contract's reporting taxonomy.
var DataTypes = []string{
	"carbon_emissions",
	"energy_consumption",
	"water_usage",
	"waste_generation",
	"renewable_energy",
	"employee_satisfaction",
	"safety_incidents",
	"diversity_ratio",
	"supply_chain_ethics",
	"other",
}

var dataTypeSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(DataTypes))
	for _, dt := range DataTypes {
		set[dt] = struct{}{}
	}
	return set
}()

// SubmitInput is one metric submission intent.
type SubmitInput struct {
	DataType    string     `json:"dataType"`
	Value       string     `json:"value"`
	Unit        string     `json:"unit"`
	Comments    string     `json:"comments"`
	PeriodStart *time.Time `json:"periodStart,omitempty"`
	PeriodEnd   *time.Time `json:"periodEnd,omitempty"`
}

// SubmitResult reports a confirmed submission and its mirror row.
type SubmitResult struct {
	Record      *models.SubmissionRecord `json:"submission"`
	RecordID    string                   `json:"recordId"`
	TxHash      string                   `json:"transactionHash"`
	BlockNumber string                   `json:"blockNumber"`
	GasUsed     string                   `json:"gasUsed"`
}

func (in *SubmitInput) validate() error {
	in.DataType = strings.TrimSpace(in.DataType)
	in.Value = strings.TrimSpace(in.Value)
	in.Unit = strings.TrimSpace(in.Unit)
	if in.DataType == "" || in.Value == "" {
		return ledger.Errorf(ledger.KindValidation, "data type and value are required")
	}
	if _, ok := dataTypeSet[in.DataType]; !ok {
		return ledger.Errorf(ledger.KindValidation, "unknown data type %q", in.DataType)
	}
	// The value stays a string end to end; it is only parsed to check that it
	// is a positive number, with arbitrary precision.
	value, ok := new(big.Rat).SetString(in.Value)
	if !ok || value.Sign() <= 0 {
		return ledger.Errorf(ledger.KindValidation, "value must be a positive number")
	}
	if in.PeriodStart != nil && in.PeriodEnd != nil && in.PeriodEnd.Before(*in.PeriodStart) {
		return ledger.Errorf(ledger.KindValidation, "reporting period end precedes start")
	}
	return nil
}

// SubmitRecord validates the intent, anchors it on the ledger, and mirrors
// the confirmed record. The mirror row is written only after the ledger
// transaction succeeds and the record id is extracted from the ESGDataSubmitted
// event, never speculatively.
func (s *Service) SubmitRecord(ctx context.Context, participantID uuid.UUID, input SubmitInput) (*SubmitResult, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	participant, err := s.store.ParticipantByID(ctx, participantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ledger.Errorf(ledger.KindNotFound, "participant not found")
		}
		return nil, err
	}

	address := strings.ToLower(participant.WalletAddress)
	registered, err := s.ledger.IsRegistered(ctx, address)
	if err != nil {
		return nil, err
	}
	if !registered {
		return nil, ledger.Errorf(ledger.KindPrecondition, "company not registered on ledger; register first")
	}

	submittedAt := s.now().Truncate(time.Second)
	documentHash, err := Commitment(participant.CompanyName, input.DataType, input.Value, input.Unit, submittedAt)
	if err != nil {
		return nil, ledger.NewError(ledger.KindInternal, "canonicalize submission payload", err)
	}

	result, err := s.orch.Execute(ctx, ledger.Intent{
		Method:      ledger.MethodSubmitESGData,
		Sender:      address,
		Args:        []interface{}{input.DataType, input.Value, input.Unit, [32]byte(documentHash), input.Comments},
		ExpectEvent: ledger.EventESGDataSubmitted,
		ExpectField: ledger.FieldRecordID,
	})
	if err != nil {
		return nil, err
	}

	record := &models.SubmissionRecord{
		ParticipantID:  participantID,
		WalletAddress:  address,
		LedgerRecordID: result.EventValue,
		TxHash:         result.TxHash,
		DataType:       input.DataType,
		Value:          input.Value,
		Unit:           input.Unit,
		DocumentHash:   documentHash.Hex(),
		Comments:       input.Comments,
		PeriodStart:    input.PeriodStart,
		PeriodEnd:      input.PeriodEnd,
		Status:         models.StatusPending,
		SubmittedAt:    submittedAt,
	}
	if err := s.store.CreateSubmission(ctx, record); err != nil {
		// The ledger holds a record the mirror does not. Logged with enough
		// context for the recon scanner and operators to repair.
		s.logger.Error("mirror write failed after confirmed submission",
			"participant", participantID, "ledger_record_id", result.EventValue,
			"tx", result.TxHash, "err", err)
		return nil, ledger.NewError(ledger.KindMirrorWriteFailure,
			"record anchored on ledger but mirror write failed", err)
	}

	s.logger.Info("esg record submitted",
		"participant", participantID, "ledger_record_id", result.EventValue,
		"data_type", input.DataType, "tx", result.TxHash, "block", result.BlockNumber)

	return &SubmitResult{
		Record:      record,
		RecordID:    record.LedgerRecordID,
		TxHash:      result.TxHash,
		BlockNumber: result.BlockNumber,
		GasUsed:     result.GasUsed,
	}, nil
}
