package import_pkg

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/referral-labels/internal/model"
	"github.com/referral-labels/internal/store"
)

const batchSize = 500

// Summary counts the outcome of one import.
type Summary struct {
	Imported int
	Errors   int
}

// Header maps lower-cased column names to their index.
type Header map[string]int

// Get returns the trimmed value of column name, or "" when the column is
// absent or the record is short.
func (h Header) Get(record []string, name string) string {
	i, ok := h[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// MapFunc turns one CSV record into an office.
type MapFunc func(record []string, header Header) (*model.RawOfficeRecord, error)

// CSVImporter loads office CSV files into a store
type CSVImporter struct {
	store  store.Store
	logger *zap.Logger
}

// NewCSVImporter creates a new CSV importer
func NewCSVImporter(s store.Store, logger *zap.Logger) *CSVImporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVImporter{store: s, logger: logger}
}

// ImportFile opens filename and runs ImportCSV on it.
func (ci *CSVImporter) ImportFile(ctx context.Context, filename, layout string, mapFunc MapFunc) (Summary, error) {
	file, err := os.Open(filename)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to open file %s: %w", filename, err)
	}
	defer file.Close()
	return ci.ImportCSV(ctx, file, layout, mapFunc)
}

// ImportCSV reads a CSV with a header row and upserts the mapped offices in
// batches. Bad rows are logged and counted, not fatal.
func (ci *CSVImporter) ImportCSV(ctx context.Context, r io.Reader, layout string, mapFunc MapFunc) (Summary, error) {
	ci.logger.Info("Importing offices", zap.String("layout", layout))

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	first, err := reader.Read()
	if err != nil {
		return Summary{}, fmt.Errorf("failed to read header: %w", err)
	}
	header := make(Header, len(first))
	for i, name := range first {
		header[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}

	var (
		summary Summary
		batch   []model.RawOfficeRecord
		line    = 1
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := ci.store.UpsertOffices(ctx, batch)
		if err != nil {
			return fmt.Errorf("failed to store batch ending at line %d: %w", line, err)
		}
		summary.Imported += n
		batch = batch[:0]
		return nil
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			ci.logger.Warn("Error reading CSV record", zap.Int("line", line), zap.Error(err))
			summary.Errors++
			continue
		}

		office, err := mapFunc(record, header)
		if err != nil {
			ci.logger.Warn("Error mapping record", zap.Int("line", line), zap.Error(err))
			summary.Errors++
			continue
		}

		batch = append(batch, *office)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return summary, err
			}
			ci.logger.Info("Imported offices", zap.Int("count", summary.Imported))
		}
	}
	if err := flush(); err != nil {
		return summary, err
	}

	ci.logger.Info("Import complete",
		zap.String("layout", layout),
		zap.Int("imported", summary.Imported),
		zap.Int("errors", summary.Errors))
	return summary, nil
}

func optionalAddress(s string) *string {
	if s == "" {
		return nil
	}
	return model.StringPtr(s)
}
