package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"esgledger/ledger"
	"esgledger/models"
)

func TestSubmitRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.seedParticipant(t, models.RoleCompany, true)

	result, err := h.svc.SubmitRecord(ctx, p.ID, SubmitInput{
		DataType: "carbon_emissions",
		Value:    "1000.5",
		Unit:     "tonnes CO2",
		Comments: "Q1 reporting",
	})
	require.NoError(t, err)
	require.Equal(t, "7", result.RecordID, "record id comes from the decoded event")
	require.Equal(t, "0xabc123", result.TxHash)

	require.Len(t, h.orch.intents, 1)
	intent := h.orch.intents[0]
	require.Equal(t, ledger.MethodSubmitESGData, intent.Method)
	require.Equal(t, ledger.EventESGDataSubmitted, intent.ExpectEvent)
	require.Equal(t, ledger.FieldRecordID, intent.ExpectField)

	// the mirror row is written only after the ledger confirms
	row, err := h.store.SubmissionByLedgerID(ctx, "7")
	require.NoError(t, err)
	require.Equal(t, p.ID, row.ParticipantID)
	require.Equal(t, "1000.5", row.Value)
	require.Equal(t, models.StatusPending, row.Status)
	require.Equal(t, h.now.Unix(), row.SubmittedAt.Unix())

	// the persisted row carries everything needed to recompute the commitment
	recomputed, err := Commitment(p.CompanyName, row.DataType, row.Value, row.Unit, row.SubmittedAt)
	require.NoError(t, err)
	require.Equal(t, recomputed.Hex(), row.DocumentHash)
}

func TestSubmitRecordValidation(t *testing.T) {
	h := newHarness(t)
	p := h.seedParticipant(t, models.RoleCompany, true)
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(-24 * time.Hour)

	cases := []struct {
		name  string
		input SubmitInput
	}{
		{"missing data type", SubmitInput{Value: "10", Unit: "t"}},
		{"missing value", SubmitInput{DataType: "water_usage", Unit: "m3"}},
		{"unknown data type", SubmitInput{DataType: "vibes", Value: "10"}},
		{"non-numeric value", SubmitInput{DataType: "water_usage", Value: "ten"}},
		{"zero value", SubmitInput{DataType: "water_usage", Value: "0"}},
		{"negative value", SubmitInput{DataType: "water_usage", Value: "-3"}},
		{"period end before start", SubmitInput{DataType: "water_usage", Value: "3", PeriodStart: &start, PeriodEnd: &end}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.svc.SubmitRecord(context.Background(), p.ID, tc.input)
			require.Equal(t, ledger.KindValidation, ledger.KindOf(err))
		})
	}
	require.Empty(t, h.orch.intents, "invalid input never reaches the ledger")
}

func TestSubmitRecordUnregisteredCompany(t *testing.T) {
	h := newHarness(t)
	p := h.seedParticipant(t, models.RoleCompany, false)

	_, err := h.svc.SubmitRecord(context.Background(), p.ID, SubmitInput{
		DataType: "carbon_emissions", Value: "10", Unit: "t",
	})
	require.Equal(t, ledger.KindPrecondition, ledger.KindOf(err))
	require.Empty(t, h.orch.intents)
}

func TestSubmitRecordLedgerFailureWritesNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.seedParticipant(t, models.RoleCompany, true)
	h.orch.err = ledger.Errorf(ledger.KindLedgerUnavailable, "node timeout")

	_, err := h.svc.SubmitRecord(ctx, p.ID, SubmitInput{
		DataType: "carbon_emissions", Value: "10", Unit: "t",
	})
	require.Equal(t, ledger.KindLedgerUnavailable, ledger.KindOf(err))

	rows, err := h.store.ListByOwner(ctx, p.ID)
	require.NoError(t, err)
	require.Empty(t, rows, "no speculative mirror row on ledger failure")
}

func TestSubmitRecordMirrorWriteFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.seedParticipant(t, models.RoleCompany, true)
	// occupy the ledger record id so the confirmed submission's mirror insert
	// collides on the unique index
	h.seedSubmission(t, p, "7")

	_, err := h.svc.SubmitRecord(ctx, p.ID, SubmitInput{
		DataType: "energy_consumption", Value: "55", Unit: "MWh",
	})
	require.Equal(t, ledger.KindMirrorWriteFailure, ledger.KindOf(err))
	require.Len(t, h.orch.intents, 1, "the ledger transaction did run")
}
