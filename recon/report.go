package recon

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// ReportRetentionDays specifies how long generated scan reports remain on
// disk.
const ReportRetentionDays = 545 // 18 months

// ReportFile references the CSV and Parquet artefacts generated for one scan.
type ReportFile struct {
	CSVPath     string
	ParquetPath string
	Count       int
}

// ReportWriter persists scan results under a dated directory per run and
// prunes runs older than the retention window.
type ReportWriter struct {
	dir    string
	now    func() time.Time
	logger *slog.Logger
}

// NewReportWriter builds a writer rooted at dir.
func NewReportWriter(dir string, logger *slog.Logger) *ReportWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportWriter{dir: dir, now: func() time.Time { return time.Now().UTC() }, logger: logger}
}

// Write materialises one scan result as CSV and Parquet files. A scan with no
// anomalies still produces files; an empty report is the evidence the scan
// ran clean.
func (w *ReportWriter) Write(result *Result) (*ReportFile, error) {
	now := w.now()
	runDir := filepath.Join(w.dir, now.Format("20060102_150405"))
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("recon: ensure report dir: %w", err)
	}
	csvPath := filepath.Join(runDir, "anomalies.csv")
	if err := writeAnomalyCSV(csvPath, now, result.Anomalies); err != nil {
		return nil, err
	}
	parquetPath := filepath.Join(runDir, "anomalies.parquet")
	if err := writeAnomalyParquet(parquetPath, now, result.Anomalies); err != nil {
		return nil, err
	}
	w.prune(now)
	return &ReportFile{CSVPath: csvPath, ParquetPath: parquetPath, Count: len(result.Anomalies)}, nil
}

// prune removes run directories older than the retention window.
func (w *ReportWriter) prune(now time.Time) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("recon: report dir listing failed", "err", err)
		return
	}
	cutoff := now.AddDate(0, 0, -ReportRetentionDays)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		stamp, err := time.Parse("20060102_150405", entry.Name())
		if err != nil {
			continue
		}
		if stamp.Before(cutoff) {
			if err := os.RemoveAll(filepath.Join(w.dir, entry.Name())); err != nil {
				w.logger.Warn("recon: report prune failed", "dir", entry.Name(), "err", err)
			}
		}
	}
}

func writeAnomalyCSV(path string, scannedAt time.Time, anomalies []Anomaly) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("recon: create csv: %w", err)
	}
	defer file.Close()
	cw := csv.NewWriter(file)
	header := []string{"scanned_at", "type", "participant_id", "ledger_record_id", "details"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("recon: write csv header: %w", err)
	}
	for _, anomaly := range anomalies {
		record := []string{
			scannedAt.Format(time.RFC3339),
			anomaly.Type,
			anomaly.ParticipantID.String(),
			anomaly.LedgerRecordID,
			anomaly.Details,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("recon: write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("recon: flush csv: %w", err)
	}
	return nil
}

type anomalyRow struct {
	ScannedAt      string `parquet:"name=scanned_at, type=BYTE_ARRAY, convertedtype=UTF8"`
	Type           string `parquet:"name=type, type=BYTE_ARRAY, convertedtype=UTF8"`
	ParticipantID  string `parquet:"name=participant_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	LedgerRecordID string `parquet:"name=ledger_record_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Details        string `parquet:"name=details, type=BYTE_ARRAY, convertedtype=UTF8"`
}

func writeAnomalyParquet(path string, scannedAt time.Time, anomalies []Anomaly) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("recon: create parquet: %w", err)
	}
	fw := writerfile.NewWriterFile(file)
	pw, err := writer.NewParquetWriter(fw, new(anomalyRow), 1)
	if err != nil {
		file.Close()
		return fmt.Errorf("recon: parquet schema: %w", err)
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, anomaly := range anomalies {
		row := &anomalyRow{
			ScannedAt:      scannedAt.Format(time.RFC3339),
			Type:           anomaly.Type,
			ParticipantID:  anomaly.ParticipantID.String(),
			LedgerRecordID: anomaly.LedgerRecordID,
			Details:        anomaly.Details,
		}
		if err := pw.Write(row); err != nil {
			pw.WriteStop()
			file.Close()
			return fmt.Errorf("recon: parquet write: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		file.Close()
		return fmt.Errorf("recon: parquet flush: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("recon: close parquet file: %w", err)
	}
	return nil
}
