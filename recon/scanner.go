// Package recon detects divergence between the ledger and the mirror store:
// ledger records with no mirror row (the trace a mirror write failure leaves
// behind) and mirror rows whose core fields disagree with the ledger.
package recon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/google/uuid"

	"esgledger/ledger"
	"esgledger/observability/metrics"
	"esgledger/store"
)

// Anomaly types emitted by the scanner.
const (
	AnomalyMissingMirror = "missing_mirror"
	AnomalyFieldMismatch = "field_mismatch"
	AnomalyStaleFlag     = "stale_registration_flag"
)

// Anomaly captures one divergence requiring operator review.
type Anomaly struct {
	Type           string
	ParticipantID  uuid.UUID
	LedgerRecordID string
	Details        string
}

// AlertFunc is invoked for every anomaly detected during a scan.
type AlertFunc func(ctx context.Context, anomaly Anomaly) error

// LedgerSource covers the contract reads the scanner needs.
type LedgerSource interface {
	GetRecordsByOwner(ctx context.Context, address string) ([]string, error)
	GetRecord(ctx context.Context, recordID string) (*ledger.Record, error)
	IsRegistered(ctx context.Context, address string) (bool, error)
	TotalRecords(ctx context.Context) (string, error)
}

// Config captures the dependencies required to construct a Scanner. Reports
// is optional; without it scan results are not persisted to disk.
type Config struct {
	Store   *store.Store
	Ledger  LedgerSource
	Logger  *slog.Logger
	Alert   AlertFunc
	Reports *ReportWriter
}

// Scanner walks registered participants and reconciles their ledger records
// against mirror rows.
type Scanner struct {
	store   *store.Store
	ledger  LedgerSource
	logger  *slog.Logger
	alert   AlertFunc
	reports *ReportWriter
}

// Result summarises one scan.
type Result struct {
	Participants int
	Records      int
	Anomalies    []Anomaly
}

// NewScanner builds a configured scanner.
func NewScanner(cfg Config) (*Scanner, error) {
	if cfg.Store == nil {
		return nil, errors.New("recon: store is required")
	}
	if cfg.Ledger == nil {
		return nil, errors.New("recon: ledger source is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	alert := cfg.Alert
	if alert == nil {
		alert = func(ctx context.Context, anomaly Anomaly) error { return nil }
	}
	return &Scanner{store: cfg.Store, ledger: cfg.Ledger, logger: logger, alert: alert, reports: cfg.Reports}, nil
}

// Run executes one full reconciliation pass.
func (s *Scanner) Run(ctx context.Context) (*Result, error) {
	participants, err := s.store.RegisteredParticipants(ctx)
	if err != nil {
		return nil, fmt.Errorf("recon: load participants: %w", err)
	}

	result := &Result{Participants: len(participants)}
	for _, participant := range participants {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		registered, err := s.ledger.IsRegistered(ctx, participant.WalletAddress)
		if err == nil && !registered {
			// The flag must never lead the ledger. A confirmed registration
			// cannot be un-done, so this points at a bad flag flip.
			result.Anomalies = append(result.Anomalies, s.raise(ctx, Anomaly{
				Type:          AnomalyStaleFlag,
				ParticipantID: participant.ID,
				Details:       fmt.Sprintf("mirror flags %s registered but ledger disagrees", participant.WalletAddress),
			}))
		}

		ids, err := s.ledger.GetRecordsByOwner(ctx, participant.WalletAddress)
		if err != nil {
			s.logger.Warn("recon: ledger record listing failed",
				"participant", participant.ID, "err", err)
			continue
		}
		result.Records += len(ids)

		for _, id := range ids {
			row, err := s.store.SubmissionByLedgerID(ctx, id)
			if errors.Is(err, store.ErrNotFound) {
				result.Anomalies = append(result.Anomalies, s.raise(ctx, Anomaly{
					Type:           AnomalyMissingMirror,
					ParticipantID:  participant.ID,
					LedgerRecordID: id,
					Details:        "ledger record has no mirror row",
				}))
				continue
			}
			if err != nil {
				s.logger.Warn("recon: mirror lookup failed", "ledger_record_id", id, "err", err)
				continue
			}

			record, err := s.ledger.GetRecord(ctx, id)
			if err != nil {
				s.logger.Warn("recon: ledger record fetch failed", "ledger_record_id", id, "err", err)
				continue
			}
			if mismatch := fieldMismatch(row.DataType, row.Value, row.Unit, record); mismatch != "" {
				result.Anomalies = append(result.Anomalies, s.raise(ctx, Anomaly{
					Type:           AnomalyFieldMismatch,
					ParticipantID:  participant.ID,
					LedgerRecordID: id,
					Details:        mismatch,
				}))
			}
		}
	}

	// Records submitted by addresses with no registered mirror participant are
	// invisible to the per-participant walk; the aggregate count surfaces them.
	if total, err := s.ledger.TotalRecords(ctx); err == nil {
		if ledgerTotal, ok := new(big.Int).SetString(total, 10); ok && ledgerTotal.IsInt64() && ledgerTotal.Int64() > int64(result.Records) {
			s.logger.Warn("ledger holds records outside the scanned participant set",
				"ledger_total", total, "scanned", result.Records)
		}
	}

	if s.reports != nil {
		file, err := s.reports.Write(result)
		if err != nil {
			return result, fmt.Errorf("recon: persist report: %w", err)
		}
		s.logger.Info("recon report written",
			"csv", file.CSVPath, "parquet", file.ParquetPath, "rows", file.Count)
	}

	s.logger.Info("recon scan complete",
		"participants", result.Participants,
		"records", result.Records,
		"anomalies", len(result.Anomalies))
	return result, nil
}

func (s *Scanner) raise(ctx context.Context, anomaly Anomaly) Anomaly {
	metrics.ReconAnomalies.WithLabelValues(anomaly.Type).Inc()
	s.logger.Error("recon anomaly",
		"type", anomaly.Type,
		"participant", anomaly.ParticipantID,
		"ledger_record_id", anomaly.LedgerRecordID,
		"details", anomaly.Details)
	if err := s.alert(ctx, anomaly); err != nil {
		s.logger.Warn("recon alert delivery failed", "err", err)
	}
	return anomaly
}

func fieldMismatch(dataType, value, unit string, record *ledger.Record) string {
	switch {
	case record.DataType != dataType:
		return fmt.Sprintf("data type mirror=%q ledger=%q", dataType, record.DataType)
	case record.Value != value:
		return fmt.Sprintf("value mirror=%q ledger=%q", value, record.Value)
	case record.Unit != unit:
		return fmt.Sprintf("unit mirror=%q ledger=%q", unit, record.Unit)
	}
	return ""
}
