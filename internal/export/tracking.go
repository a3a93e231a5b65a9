// Package export produces the files handed to operators and carriers after
// ingestion: per-client tracking reports and ClickDrop bulk-import workbooks.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"labelops/internal/fsutil"
	"labelops/internal/ingest"
)

const (
	TrackingDir     = "TRACKING_OUT"
	PendingTracking = "PENDING"
	reportDayLayout = "2006-01-02"
)

var (
	ErrInvalidClientID = errors.New("invalid client id")
	ErrMalformedInput  = errors.New("malformed tracking input")

	trackingHeader = []string{"order_reference", "postcode", "service", "tracking_number", "created_at"}
)

type TrackingRecord struct {
	OrderReference string
	Postcode       string
	Service        string
	// TrackingNumber is empty until the carrier assigns one.
	TrackingNumber string
	CreatedAt      string
}

// NewBatchID returns an 8 character lowercase hex id.
func NewBatchID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// TrackingReportPath is where ExportTrackingReport writes for the given day and batch.
func TrackingReportPath(baseDir, clientID string, reportDate time.Time, batchID string) string {
	name := fmt.Sprintf("tracking_%s_%s.csv", reportDate.Format(reportDayLayout), batchID)
	return filepath.Join(baseDir, ingest.ClientsDir, clientID, TrackingDir, name)
}

// ExportTrackingReport writes records as CSV under the client's TRACKING_OUT
// directory and returns the file path. An empty batchID gets a random one.
func ExportTrackingReport(baseDir, clientID string, records []TrackingRecord, reportDate time.Time, batchID string) (string, error) {
	if !ingest.ValidClientID(clientID) {
		return "", fmt.Errorf("%w: %q", ErrInvalidClientID, clientID)
	}
	if batchID == "" {
		batchID = NewBatchID()
	}

	var buf bytes.Buffer
	if err := WriteTrackingCSV(&buf, records); err != nil {
		return "", err
	}
	path := TrackingReportPath(baseDir, clientID, reportDate, batchID)
	if err := fsutil.WriteAtomic(path, buf.Bytes(), fsutil.FileOptions{}); err != nil {
		return "", fmt.Errorf("write tracking report: %w", err)
	}
	return path, nil
}

// WriteTrackingCSV writes the header and one row per record. A missing
// tracking number is written as PENDING.
func WriteTrackingCSV(w io.Writer, records []TrackingRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(trackingHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		tracking := r.TrackingNumber
		if strings.TrimSpace(tracking) == "" {
			tracking = PendingTracking
		}
		if err := cw.Write([]string{r.OrderReference, r.Postcode, r.Service, tracking, r.CreatedAt}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// ReadTrackingRecords parses CSV carrying the tracking report header. Column
// order is taken from the header; unknown columns are ignored.
func ReadTrackingRecords(r io.Reader) ([]TrackingRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	if _, ok := idx["order_reference"]; !ok {
		return nil, fmt.Errorf("%w: missing order_reference column", ErrMalformedInput)
	}
	field := func(row []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []TrackingRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedInput, line, err)
		}
		out = append(out, TrackingRecord{
			OrderReference: field(row, "order_reference"),
			Postcode:       field(row, "postcode"),
			Service:        field(row, "service"),
			TrackingNumber: field(row, "tracking_number"),
			CreatedAt:      field(row, "created_at"),
		})
	}
	return out, nil
}
