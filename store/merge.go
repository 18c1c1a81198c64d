package store

import (
	"context"
	"sync"
	"time"

	"esgledger/ledger"
	"esgledger/models"
)

// LedgerReader fetches the on-ledger projection for one record id.
type LedgerReader interface {
	GetRecord(ctx context.Context, recordID string) (*ledger.Record, error)
}

// MergedRecord pairs a mirror row with its ledger projection. Ledger is nil
// when the per-row ledger read failed; the mirror data still stands.
type MergedRecord struct {
	models.SubmissionRecord
	Ledger *ledger.Record `json:"ledger"`
}

// DefaultRowTimeout bounds each per-row ledger read inside Merge so one slow
// row cannot stall the batch.
const DefaultRowTimeout = 5 * time.Second

// Merge fetches the ledger projection for every mirror row concurrently.
// Each read is fault-isolated: a failure nils that row's projection only.
// Results preserve the input (mirror) ordering.
func Merge(ctx context.Context, rows []models.SubmissionRecord, reader LedgerReader, rowTimeout time.Duration) []MergedRecord {
	if rowTimeout <= 0 {
		rowTimeout = DefaultRowTimeout
	}
	merged := make([]MergedRecord, len(rows))
	var wg sync.WaitGroup
	for i := range rows {
		merged[i].SubmissionRecord = rows[i]
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rowCtx, cancel := context.WithTimeout(ctx, rowTimeout)
			defer cancel()
			record, err := reader.GetRecord(rowCtx, rows[i].LedgerRecordID)
			if err != nil {
				return
			}
			merged[i].Ledger = record
		}(i)
	}
	wg.Wait()
	return merged
}
