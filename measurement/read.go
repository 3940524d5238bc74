package measurement

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"cloud.google.com/go/storage"
	"github.com/araddon/dateparse"
	"github.com/carbocation/pfx"
	"github.com/carbocation/rtorder"
	"github.com/gocarina/gocsv"
)

// Column names of the raw dataset export.
const (
	ColSystem     = "system"
	ColRecordedRT = "recorded_rt"
	ColSuspect    = "suspect"
	ColDateAdded  = "date.added"
	ColInChI      = "inchi"
)

// RequiredColumns must all be present in the header of a raw dataset.
var RequiredColumns = []string{ColSystem, ColRecordedRT, ColSuspect, ColDateAdded, ColInChI}

// rawRow mirrors the raw export. Everything is decoded as text so that parse
// failures can be reported with their line.
type rawRow struct {
	System     string `csv:"system"`
	RecordedRT string `csv:"recorded_rt"`
	Suspect    string `csv:"suspect"`
	DateAdded  string `csv:"date.added"`
	InChI      string `csv:"inchi"`
}

// OpenRaw reads a raw dataset from a local path or, given a storage client, a
// gs:// path. Compressed inputs are detected by their signature.
func OpenRaw(ctx context.Context, path string, client *storage.Client) ([]Measurement, error) {
	rc, err := rtorder.OpenInput(ctx, path, client)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	out, err := ReadRaw(rc)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return out, nil
}

// ReadRaw parses a raw dataset. The delimiter is sniffed and defaults to ';'.
// Columns beyond RequiredColumns are ignored, and their order is free.
func ReadRaw(r io.Reader) ([]Measurement, error) {
	delim, full, err := rtorder.DelimitedReader(r, ';')
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(full)
	cr.Comma = delim
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("no header found")
	}

	if err := checkHeader(rows[0]); err != nil {
		return nil, err
	}

	raw := []*rawRow{}
	if err := gocsv.UnmarshalCSV(&sliceReader{rows: rows}, &raw); err != nil {
		return nil, err
	}

	out := make([]Measurement, 0, len(raw))
	for i, v := range raw {
		// Header is line 1
		m, err := v.parse(i + 2)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}

	return out, nil
}

func checkHeader(header []string) error {
	seen := make(map[string]struct{}, len(header))
	for _, v := range header {
		seen[strings.TrimSpace(v)] = struct{}{}
	}

	missing := []string{}
	for _, v := range RequiredColumns {
		if _, exists := seen[v]; !exists {
			missing = append(missing, v)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("Expected to find header columns %v, but %v were missing", RequiredColumns, missing)
	}

	return nil
}

func (r rawRow) parse(line int) (Measurement, error) {
	m := Measurement{
		InChI:  strings.TrimSpace(r.InChI),
		System: strings.TrimSpace(r.System),
		Line:   line,
	}

	rt := strings.TrimSpace(r.RecordedRT)
	if rt == "" {
		return m, fmt.Errorf("line %d: empty %s", line, ColRecordedRT)
	}
	val, err := strconv.ParseFloat(rt, 64)
	if err != nil {
		return m, fmt.Errorf("line %d: %s: %w", line, ColRecordedRT, err)
	}
	m.RecordedRT = val

	m.Suspect, err = ParseSuspect(r.Suspect)
	if err != nil {
		return m, fmt.Errorf("line %d: %s: %w", line, ColSuspect, err)
	}

	m.DateAdded, err = ParseDate(r.DateAdded)
	if err != nil {
		return m, fmt.Errorf("line %d: %s: %w", line, ColDateAdded, err)
	}

	return m, nil
}

// ParseSuspect accepts the boolean spellings emitted by R and spreadsheets. An
// empty value is not suspect.
func ParseSuspect(s string) (bool, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "NA") {
		return false, nil
	}

	return strconv.ParseBool(s)
}

// ParseDate returns the calendar date of a timestamp. An empty value yields
// the zero civil.Date, which is not Valid.
func ParseDate(s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "NA") {
		return civil.Date{}, nil
	}

	res, err := dateparse.ParseAny(s)
	if err == nil {
		return civil.DateOf(res), nil
	}

	// Try some known values that dateparse fails to understand
	res, err = time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return civil.Date{}, err
	}

	return civil.DateOf(res), nil
}

// sliceReader satisfies gocsv.CSVReader over rows that were already read, so
// the header can be checked before decoding.
type sliceReader struct {
	rows [][]string
	pos  int
}

func (s *sliceReader) Read() ([]string, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	s.pos++

	return s.rows[s.pos-1], nil
}

func (s *sliceReader) ReadAll() ([][]string, error) {
	out := s.rows[s.pos:]
	s.pos = len(s.rows)

	return out, nil
}
