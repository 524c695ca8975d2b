// Package ledger persists one row per completed test to an append-only CSV
// file consumed by external reporting collaborators.
package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/hypernym-ai/modelprint/pkg/models"
)

// columns is the full current schema. The schema only grows: new columns are
// appended here, and files created by older versions keep their narrower
// header.
var columns = []string{
	"timestamp",
	"run_id",
	"model",
	"provider",
	"test_class",
	"request_index",
	"input_text",
	"additional_payload",
	"response",
	"similarity",
	"response_length",
	"is_reasoning",
	"status",
	"error",
}

// truncateAt matches how prompt inputs are shortened before persisting.
// Responses are stored in full.
const truncateAt = 100

// Writer appends result records to a CSV file. A single Writer serializes
// all appends; workers hand completed responses to it rather than writing
// concurrently.
type Writer struct {
	path string
	mu   sync.Mutex
}

// NewWriter creates a Writer for the ledger at path.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Append writes one row per record. A new file gets the full current
// header; rows appended to an existing file are projected onto that file's
// header so older files keep a consistent schema.
func (w *Writer) Append(records []models.ResultRecord) error {
	if len(records) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	header, fresh, err := fileHeader(w.path)
	if err != nil {
		return err
	}
	if fresh {
		header = columns
	}

	f, err := os.OpenFile(w.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if fresh {
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("write ledger header: %w", err)
		}
	}
	for _, rec := range records {
		row := make([]string, len(header))
		for i, col := range header {
			row[i] = fieldValue(rec, col)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write ledger row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush ledger: %w", err)
	}
	return nil
}

// fileHeader returns the existing header of the ledger file, or fresh=true
// when the file is absent or empty.
func fileHeader(path string) (header []string, fresh bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err = r.Read()
	if err == io.EOF {
		return nil, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read ledger header: %w", err)
	}
	return header, false, nil
}

func truncate(s string) string {
	if len(s) <= truncateAt {
		return s
	}
	return s[:truncateAt] + "..."
}

func fieldValue(rec models.ResultRecord, col string) string {
	switch col {
	case "timestamp":
		return rec.Timestamp.Format(time.RFC3339)
	case "run_id":
		return rec.RunID
	case "model":
		return rec.Model
	case "provider":
		return rec.Provider
	case "test_class":
		return rec.TestClass
	case "request_index":
		return strconv.Itoa(rec.RequestIndex)
	case "input_text":
		return truncate(rec.InputText)
	case "additional_payload":
		return truncate(rec.Payload)
	case "response":
		return rec.Response
	case "similarity":
		return strconv.FormatFloat(rec.Similarity, 'f', -1, 64)
	case "response_length":
		return strconv.Itoa(rec.ResponseLength)
	case "is_reasoning":
		return strconv.FormatBool(rec.IsReasoning)
	case "status":
		return rec.Status
	case "error":
		return rec.Error
	}
	// Unknown column from a future schema: leave it empty.
	return ""
}

// Read parses the ledger at path. Columns absent from the file's header
// yield zero values; unknown columns are ignored. Rows never fail parsing
// because of a missing optional column.
func Read(path string) ([]models.ResultRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[col] = i
	}

	var records []models.ResultRecord
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read ledger row: %w", err)
		}
		records = append(records, parseRow(index, row))
	}
	return records, nil
}

func parseRow(index map[string]int, row []string) models.ResultRecord {
	get := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var rec models.ResultRecord
	rec.Timestamp, _ = time.Parse(time.RFC3339, get("timestamp"))
	rec.RunID = get("run_id")
	rec.Model = get("model")
	rec.Provider = get("provider")
	rec.TestClass = get("test_class")
	rec.RequestIndex, _ = strconv.Atoi(get("request_index"))
	rec.InputText = get("input_text")
	rec.Payload = get("additional_payload")
	rec.Response = get("response")
	rec.Similarity, _ = strconv.ParseFloat(get("similarity"), 64)
	rec.ResponseLength, _ = strconv.Atoi(get("response_length"))
	rec.IsReasoning, _ = strconv.ParseBool(get("is_reasoning"))
	rec.Status = get("status")
	rec.Error = get("error")
	if rec.Status == "" {
		// Rows from schema versions before the status column were only
		// written for successful responses.
		rec.Status = models.StatusSuccess
	}
	return rec
}
