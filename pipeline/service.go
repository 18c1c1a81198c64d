// Package pipeline implements the domain workflows that sit between a user
// intent and the ledger: company registration, ESG submission, and record
// verification, each keeping the mirror store consistent with the ledger.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"esgledger/ledger"
	"esgledger/store"
)

// Orchestrator executes one priced ledger call per intent.
type Orchestrator interface {
	Execute(ctx context.Context, intent ledger.Intent) (*ledger.TxResult, error)
}

// LedgerReads covers the side-effect-free contract reads the pipelines and
// query paths depend on.
type LedgerReads interface {
	IsRegistered(ctx context.Context, address string) (bool, error)
	GetRecord(ctx context.Context, recordID string) (*ledger.Record, error)
	GetRecordsByOwner(ctx context.Context, address string) ([]string, error)
	GetCompany(ctx context.Context, address string) (*ledger.Company, error)
	TotalCompanies(ctx context.Context) (string, error)
	TotalRecords(ctx context.Context) (string, error)
}

// Config bundles the dependencies for constructing a Service.
type Config struct {
	Store        *store.Store
	Orchestrator Orchestrator
	Ledger       LedgerReads
	Logger       *slog.Logger
	RowTimeout   time.Duration
	Now          func() time.Time
}

// Service hosts the three pipelines. Each run is an independent unit of work;
// the only shared state is the two stores.
type Service struct {
	store      *store.Store
	orch       Orchestrator
	ledger     LedgerReads
	logger     *slog.Logger
	rowTimeout time.Duration
	now        func() time.Time
}

// New constructs a Service.
func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rowTimeout := cfg.RowTimeout
	if rowTimeout <= 0 {
		rowTimeout = store.DefaultRowTimeout
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		store:      cfg.Store,
		orch:       cfg.Orchestrator,
		ledger:     cfg.Ledger,
		logger:     logger,
		rowTimeout: rowTimeout,
		now:        now,
	}
}
