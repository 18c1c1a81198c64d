package recon

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"esgledger/ledger"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReportWriterWritesCSVAndParquet(t *testing.T) {
	dir := t.TempDir()
	w := NewReportWriter(dir, discardLogger())
	at := time.Date(2026, 3, 15, 2, 30, 0, 0, time.UTC)
	w.now = func() time.Time { return at }

	participant := uuid.New()
	file, err := w.Write(&Result{
		Participants: 1,
		Records:      2,
		Anomalies: []Anomaly{{
			Type:           AnomalyMissingMirror,
			ParticipantID:  participant,
			LedgerRecordID: "7",
			Details:        "ledger record has no mirror row",
		}},
	})
	require.NoError(t, err)
	require.Equal(t, 1, file.Count)
	require.Equal(t, filepath.Join(dir, "20260315_023000", "anomalies.csv"), file.CSVPath)

	raw, err := os.Open(file.CSVPath)
	require.NoError(t, err)
	defer raw.Close()
	rows, err := csv.NewReader(raw).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, []string{"scanned_at", "type", "participant_id", "ledger_record_id", "details"}, rows[0])
	require.Equal(t, at.Format(time.RFC3339), rows[1][0])
	require.Equal(t, AnomalyMissingMirror, rows[1][1])
	require.Equal(t, participant.String(), rows[1][2])
	require.Equal(t, "7", rows[1][3])

	info, err := os.Stat(file.ParquetPath)
	require.NoError(t, err)
	require.Positive(t, info.Size())
}

func TestReportWriterWritesEmptyScan(t *testing.T) {
	dir := t.TempDir()
	w := NewReportWriter(dir, discardLogger())

	file, err := w.Write(&Result{Participants: 3})
	require.NoError(t, err)
	require.Zero(t, file.Count)
	require.FileExists(t, file.CSVPath)
	require.FileExists(t, file.ParquetPath)
}

func TestReportWriterPrunesExpiredRuns(t *testing.T) {
	dir := t.TempDir()
	w := NewReportWriter(dir, discardLogger())
	at := time.Date(2026, 3, 15, 2, 30, 0, 0, time.UTC)
	w.now = func() time.Time { return at }

	expired := filepath.Join(dir, at.AddDate(0, 0, -ReportRetentionDays-1).Format("20060102_150405"))
	recent := filepath.Join(dir, at.AddDate(0, 0, -1).Format("20060102_150405"))
	foreign := filepath.Join(dir, "notes")
	for _, d := range []string{expired, recent, foreign} {
		require.NoError(t, os.MkdirAll(d, 0o755))
	}

	_, err := w.Write(&Result{})
	require.NoError(t, err)

	require.NoDirExists(t, expired)
	require.DirExists(t, recent)
	require.DirExists(t, foreign)
}

func TestScanPersistsReport(t *testing.T) {
	s, source := setupScanTest(t)
	p := seedRegistered(t, s, source)
	source.byOwner[p.WalletAddress] = []string{"1"}
	source.records["1"] = &ledger.Record{ID: "1", DataType: "carbon_emissions", Value: "1000", Unit: "t"}
	// no mirror row: the scan raises an anomaly the report must carry

	dir := t.TempDir()
	scanner, err := NewScanner(Config{
		Store:   s,
		Ledger:  source,
		Logger:  discardLogger(),
		Reports: NewReportWriter(dir, discardLogger()),
	})
	require.NoError(t, err)

	result, err := scanner.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Anomalies, 1)

	runs, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.FileExists(t, filepath.Join(dir, runs[0].Name(), "anomalies.csv"))
	require.FileExists(t, filepath.Join(dir, runs[0].Name(), "anomalies.parquet"))
}
