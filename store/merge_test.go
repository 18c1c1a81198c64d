package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"esgledger/ledger"
	"esgledger/models"
)

type mapReader struct {
	mu      sync.Mutex
	records map[string]*ledger.Record
	fail    map[string]bool
	slow    map[string]time.Duration
}

func (m *mapReader) GetRecord(ctx context.Context, recordID string) (*ledger.Record, error) {
	m.mu.Lock()
	delay := m.slow[recordID]
	fail := m.fail[recordID]
	record := m.records[recordID]
	m.mu.Unlock()
	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if fail {
		return nil, errors.New("ledger read failed")
	}
	if record == nil {
		return nil, errors.New("not found")
	}
	return record, nil
}

func mirrorRows(ids ...string) []models.SubmissionRecord {
	rows := make([]models.SubmissionRecord, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, models.SubmissionRecord{LedgerRecordID: id, DataType: "carbon_emissions"})
	}
	return rows
}

func TestMergeFaultIsolation(t *testing.T) {
	reader := &mapReader{
		records: map[string]*ledger.Record{
			"1": {ID: "1", Value: "10"},
			"2": {ID: "2", Value: "20"},
			"3": {ID: "3", Value: "30"},
		},
		fail: map[string]bool{"2": true},
	}

	merged := Merge(context.Background(), mirrorRows("1", "2", "3"), reader, time.Second)
	require.Len(t, merged, 3)
	require.NotNil(t, merged[0].Ledger)
	require.Nil(t, merged[1].Ledger)
	require.NotNil(t, merged[2].Ledger)
}

func TestMergePreservesMirrorOrdering(t *testing.T) {
	reader := &mapReader{records: map[string]*ledger.Record{
		"5": {ID: "5"}, "6": {ID: "6"}, "7": {ID: "7"},
	}}

	merged := Merge(context.Background(), mirrorRows("7", "5", "6"), reader, time.Second)
	require.Equal(t, "7", merged[0].LedgerRecordID)
	require.Equal(t, "5", merged[1].LedgerRecordID)
	require.Equal(t, "6", merged[2].LedgerRecordID)
}

func TestMergeSlowRowDoesNotStallBatch(t *testing.T) {
	reader := &mapReader{
		records: map[string]*ledger.Record{"1": {ID: "1"}, "2": {ID: "2"}},
		slow:    map[string]time.Duration{"2": 5 * time.Second},
	}

	start := time.Now()
	merged := Merge(context.Background(), mirrorRows("1", "2"), reader, 100*time.Millisecond)
	require.Less(t, time.Since(start), 2*time.Second)
	require.NotNil(t, merged[0].Ledger)
	require.Nil(t, merged[1].Ledger)
}

func TestMergeEmptyInput(t *testing.T) {
	merged := Merge(context.Background(), nil, &mapReader{}, time.Second)
	require.Empty(t, merged)
}
