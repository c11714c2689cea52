package artifact

import (
	"bufio"
	"fmt"
	"io"
)

// ReadScan reads a whole scan artifact. Malformed lines are reported to warn
// and skipped; only an I/O failure is returned as an error.
func ReadScan(r io.Reader, warn WarnFunc) ([]Record, error) {
	var records []Record
	err := readLines(r, 3, warn, func(parts []string) error {
		kind, id, name, err := parseHead(parts)
		if err != nil {
			return err
		}
		records = append(records, Record{Kind: kind, OldID: id, Name: name})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read scan artifact: %w", err)
	}
	return records, nil
}

// RecordWriter accepts scan records as they are found.
type RecordWriter interface {
	Write(rec Record) error
}

// ScanWriter streams records to a scan artifact, flushing each line so an
// interrupted scan leaves every completed line on disk.
type ScanWriter struct {
	w     *bufio.Writer
	count int
}

// NewScanWriter wraps w.
func NewScanWriter(w io.Writer) *ScanWriter {
	return &ScanWriter{w: bufio.NewWriter(w)}
}

// Write appends one record.
func (sw *ScanWriter) Write(rec Record) error {
	if err := ValidateName(rec.Name); err != nil {
		return fmt.Errorf("record %s %d: %w", rec.Kind, rec.OldID, err)
	}
	if _, err := fmt.Fprintln(sw.w, rec.String()); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := sw.w.Flush(); err != nil {
		return fmt.Errorf("flush record: %w", err)
	}
	sw.count++
	return nil
}

// Count returns the number of records written.
func (sw *ScanWriter) Count() int {
	return sw.count
}
