// Package storage persists collected market data as flat files.
package storage

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/johan/polymarket-history/internal/collector"
	"github.com/johan/polymarket-history/internal/data"
)

const timestampLayout = "2006-01-02T15:04:05Z"

// FileWriter writes per-market CSV and JSON files under a run directory,
// one subdirectory per event.
type FileWriter struct {
	baseDir string
	log     logrus.FieldLogger
}

// NewFileWriter creates a file writer rooted at baseDir.
func NewFileWriter(baseDir string, log logrus.FieldLogger) *FileWriter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &FileWriter{baseDir: baseDir, log: log}
}

// WritePrices writes a joined price table to CSV. Column set follows which
// sides carried data.
func (w *FileWriter) WritePrices(eventSlug, marketSlug string, table *collector.PriceTable) error {
	if table == nil || len(table.Rows) == 0 {
		return nil
	}

	header := []string{"timestamp_utc"}
	if table.HasYes {
		header = append(header, "price_yes")
	}
	if table.HasNo {
		header = append(header, "price_no")
	}

	records := make([][]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		rec := []string{row.Timestamp.UTC().Format(timestampLayout)}
		if table.HasYes {
			rec = append(rec, formatOptional(row.Yes))
		}
		if table.HasNo {
			rec = append(rec, formatOptional(row.No))
		}
		records = append(records, rec)
	}

	path, err := w.writeCSV(eventSlug, marketSlug, "prices.csv", header, records)
	if err != nil {
		return err
	}
	w.log.WithFields(logrus.Fields{"file": path, "rows": len(records)}).Info("prices written")
	return nil
}

// WriteTrades writes one outcome's trade history to CSV.
func (w *FileWriter) WriteTrades(eventSlug, marketSlug, outcome string, trades []data.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	header := []string{
		"timestamp_utc", "side", "price", "size", "asset",
		"outcome", "condition_id", "transaction_hash", "proxy_wallet",
	}
	records := make([][]string, 0, len(trades))
	for _, tr := range trades {
		records = append(records, []string{
			time.Unix(tr.Timestamp, 0).UTC().Format(timestampLayout),
			tr.Side,
			tr.Price.String(),
			tr.Size.String(),
			tr.Asset,
			outcome,
			tr.ConditionID,
			tr.TransactionHash,
			tr.ProxyWallet,
		})
	}

	name := fmt.Sprintf("trades_%s.csv", strings.ToLower(outcome))
	path, err := w.writeCSV(eventSlug, marketSlug, name, header, records)
	if err != nil {
		return err
	}
	w.log.WithFields(logrus.Fields{"file": path, "rows": len(records), "outcome": outcome}).Info("trades written")
	return nil
}

// WriteOrderBook writes one outcome's exploded book snapshot to CSV.
func (w *FileWriter) WriteOrderBook(eventSlug, marketSlug string, table *collector.BookTable) error {
	if table == nil || len(table.Rows) == 0 {
		return nil
	}

	header := []string{"timestamp_utc", "side", "level", "price", "size", "outcome"}
	records := make([][]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		records = append(records, []string{
			row.Timestamp.UTC().Format(timestampLayout),
			row.Side,
			strconv.Itoa(row.Level),
			row.Price.String(),
			row.Size.String(),
			table.Outcome,
		})
	}

	name := fmt.Sprintf("orderbook_%s.csv", strings.ToLower(table.Outcome))
	path, err := w.writeCSV(eventSlug, marketSlug, name, header, records)
	if err != nil {
		return err
	}
	w.log.WithFields(logrus.Fields{"file": path, "rows": len(records), "outcome": table.Outcome}).Info("order book written")
	return nil
}

// WriteMetadata writes the raw market metadata as indented JSON.
func (w *FileWriter) WriteMetadata(eventSlug, marketSlug string, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("indenting metadata: %w", err)
	}
	buf.WriteByte('\n')

	path, err := w.filePath(eventSlug, marketSlug, "metadata.json")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	w.log.WithField("file", path).Info("metadata written")
	return nil
}

// writeCSV writes a header plus records to the named per-market file.
func (w *FileWriter) writeCSV(eventSlug, marketSlug, name string, header []string, records [][]string) (string, error) {
	path, err := w.filePath(eventSlug, marketSlug, name)
	if err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return "", fmt.Errorf("writing header: %w", err)
	}
	if err := cw.WriteAll(records); err != nil {
		return "", fmt.Errorf("writing rows: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("flushing %s: %w", path, err)
	}
	return path, nil
}

// filePath builds <base>/<event>/<event>-<market>-<name>, creating the
// event directory on first use.
func (w *FileWriter) filePath(eventSlug, marketSlug, name string) (string, error) {
	dir := filepath.Join(w.baseDir, eventSlug)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating event directory: %w", err)
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%s-%s", eventSlug, marketSlug, name)), nil
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}
