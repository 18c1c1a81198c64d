package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"esgledger/ledger"
	"esgledger/models"
	"esgledger/store"
)

// fakeOrchestrator records every intent and replies from a canned script.
type fakeOrchestrator struct {
	intents []ledger.Intent
	result  *ledger.TxResult
	err     error
	// execHook, when set, runs after the intent is recorded and before the
	// canned reply, so tests can fail the mirror mid-flight.
	execHook func(intent ledger.Intent)
}

func (f *fakeOrchestrator) Execute(ctx context.Context, intent ledger.Intent) (*ledger.TxResult, error) {
	f.intents = append(f.intents, intent)
	if f.execHook != nil {
		f.execHook(intent)
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &ledger.TxResult{
		TxHash:      "0xabc123",
		BlockNumber: "42",
		GasUsed:     "52340",
		EventValue:  "7",
	}, nil
}

// fakeLedger serves contract reads from in-memory state.
type fakeLedger struct {
	registered map[string]bool
	records    map[string]*ledger.Record
	byOwner    map[string][]string
	companies  map[string]*ledger.Company
	readErr    error

	totalCompanies string
	totalRecords   string
	totalsErr      error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		registered:     make(map[string]bool),
		records:        make(map[string]*ledger.Record),
		byOwner:        make(map[string][]string),
		companies:      make(map[string]*ledger.Company),
		totalCompanies: "0",
		totalRecords:   "0",
	}
}

func (f *fakeLedger) IsRegistered(ctx context.Context, address string) (bool, error) {
	if f.readErr != nil {
		return false, f.readErr
	}
	return f.registered[strings.ToLower(address)], nil
}

func (f *fakeLedger) GetRecord(ctx context.Context, recordID string) (*ledger.Record, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	record, ok := f.records[recordID]
	if !ok {
		return nil, ledger.Errorf(ledger.KindNotFound, "record %s not found", recordID)
	}
	return record, nil
}

func (f *fakeLedger) GetRecordsByOwner(ctx context.Context, address string) ([]string, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.byOwner[strings.ToLower(address)], nil
}

func (f *fakeLedger) GetCompany(ctx context.Context, address string) (*ledger.Company, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	company, ok := f.companies[strings.ToLower(address)]
	if !ok {
		return nil, ledger.Errorf(ledger.KindNotFound, "company %s not registered", address)
	}
	return company, nil
}

func (f *fakeLedger) TotalCompanies(ctx context.Context) (string, error) {
	if f.totalsErr != nil {
		return "", f.totalsErr
	}
	return f.totalCompanies, nil
}

func (f *fakeLedger) TotalRecords(ctx context.Context) (string, error) {
	if f.totalsErr != nil {
		return "", f.totalsErr
	}
	return f.totalRecords, nil
}

type testHarness struct {
	svc    *Service
	store  *store.Store
	orch   *fakeOrchestrator
	ledger *fakeLedger
	now    time.Time
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))

	h := &testHarness{
		store:  store.New(db),
		orch:   &fakeOrchestrator{},
		ledger: newFakeLedger(),
		now:    time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC),
	}
	h.svc = New(Config{
		Store:        h.store,
		Orchestrator: h.orch,
		Ledger:       h.ledger,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:          func() time.Time { return h.now },
	})
	return h
}

func (h *testHarness) seedParticipant(t *testing.T, role string, registered bool) *models.Participant {
	t.Helper()
	p := &models.Participant{
		Email:            fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		CompanyName:      "Acme Carbon",
		WalletAddress:    "0x00000000" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		RegistrationID:   "REG-7781",
		Role:             role,
		LedgerRegistered: registered,
	}
	require.NoError(t, h.store.CreateParticipant(context.Background(), p))
	if registered {
		h.ledger.registered[p.WalletAddress] = true
	}
	return p
}

func (h *testHarness) seedSubmission(t *testing.T, owner *models.Participant, ledgerID string) *models.SubmissionRecord {
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
		SubmittedAt:    h.now,
	}
	require.NoError(t, h.store.CreateSubmission(context.Background(), record))
	return record
}
