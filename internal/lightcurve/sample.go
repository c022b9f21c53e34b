// Package lightcurve turns uploaded flux tables into the tensors the
// transit classifiers consume.
package lightcurve

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Length is the number of flux measurements per light curve the models
// were trained on.
const Length = 3197

// RawSample is one light curve as read from a single CSV row.
type RawSample []float64

// ParseCSV reads a headerless CSV of flux rows. Only the first row is
// classified; extra reports how many further rows were present so the
// caller can surface them.
func ParseCSV(r io.Reader) (sample RawSample, extra int, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	record, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, &MalformedInputError{Row: 1, Reason: "file contains no rows"}
	}
	if err != nil {
		return nil, 0, &MalformedInputError{Row: 1, Reason: fmt.Sprintf("invalid csv: %v", err)}
	}

	// Spreadsheet exports may start with a UTF-8 byte order mark.
	if len(record) > 0 {
		record[0] = strings.TrimPrefix(record[0], "\ufeff")
	}

	sample, err = parseRecord(record, 1)
	if err != nil {
		return nil, 0, err
	}

	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Rows after the first are not classified; a broken tail
			// does not invalidate the sample we already have.
			break
		}
		if isBlank(rec) {
			continue
		}
		extra++
	}

	return sample, extra, nil
}

func parseRecord(record []string, row int) (RawSample, error) {
	if len(record) != Length {
		return nil, &MalformedInputError{
			Row:    row,
			Reason: fmt.Sprintf("file must contain %d flux columns, got %d", Length, len(record)),
		}
	}

	sample := make(RawSample, len(record))
	for i, cell := range record {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			return nil, &MalformedInputError{Row: row, Column: i + 1, Reason: "missing value"}
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, &MalformedInputError{Row: row, Column: i + 1, Reason: fmt.Sprintf("not a number: %q", cell)}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &MalformedInputError{Row: row, Column: i + 1, Reason: fmt.Sprintf("non-finite value: %q", cell)}
		}
		sample[i] = v
	}
	return sample, nil
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
