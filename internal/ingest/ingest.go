// Package ingest extracts track numbers from uploaded files. Supported
// formats are xlsx, csv, and plain text with one number per line.
package ingest

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "cargotrack/internal/errors"
)

// TrackNumbers parses the upload named filename and returns the
// contained track numbers, upper-cased, in file order, de-duplicated.
func TrackNumbers(r io.Reader, filename string) ([]string, error) {
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".xlsx"):
		return fromExcel(r)
	case strings.HasSuffix(name, ".csv"):
		return fromCSV(r)
	default:
		return fromText(r)
	}
}

func fromExcel(r io.Reader) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "could not read the Excel file")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "the Excel file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "could not read the Excel sheet")
	}

	var raw []string
	for _, row := range rows {
		if len(row) > 0 {
			raw = append(raw, row[0])
		}
	}
	return clean(raw), nil
}

func fromCSV(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var raw []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "could not read the CSV file")
		}
		if len(record) > 0 {
			raw = append(raw, record[0])
		}
	}
	return clean(raw), nil
}

func fromText(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "could not read the file")
	}
	return clean(strings.Split(string(data), "\n")), nil
}

// clean normalizes candidates and drops empties, header-like noise, and
// duplicates while preserving order.
func clean(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	var out []string
	for _, v := range raw {
		tn := strings.ToUpper(strings.TrimSpace(strings.Trim(v, "\r")))
		if tn == "" || tn == "NAN" || tn == "TRACK" || tn == "TRACK_NUMBER" {
			continue
		}
		if seen[tn] {
			continue
		}
		seen[tn] = true
		out = append(out, tn)
	}
	return out
}
