package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// Format names a dump layout.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSONL Format = "jsonl"
)

// Columns is the field order of a headerless CSV dump.
var Columns = []string{
	"id", "title", "author", "publisher", "extension",
	"filesize", "language", "year", "pages", "isbn", "ipfs_cid",
}

var numericColumns = map[string]bool{"id": true, "filesize": true, "year": true, "pages": true}

// RecordReader yields raw records. Next returns io.EOF after the last one.
// A *RecordError is returned for a record that could not be decoded; the
// reader stays usable.
type RecordReader interface {
	Next() (map[string]any, error)
}

// RecordError reports a malformed record at a line of the input.
type RecordError struct {
	Line int
	Err  error
}

func (e *RecordError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }
func (e *RecordError) Unwrap() error { return e.Err }

// ParseFormat accepts "csv", "jsonl" or "ndjson".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "csv":
		return FormatCSV, nil
	case "jsonl", "ndjson":
		return FormatJSONL, nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// Decode wraps r so that it yields UTF-8 from the named charset.
// Empty or utf-8 returns r unchanged.
func Decode(r io.Reader, charset string) (io.Reader, error) {
	if charset == "" || strings.EqualFold(charset, "utf-8") || strings.EqualFold(charset, "utf8") {
		return r, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("charset %q: %w", charset, err)
	}
	return enc.NewDecoder().Reader(r), nil
}

// NewReader returns a RecordReader for the given format.
func NewReader(r io.Reader, f Format) (RecordReader, error) {
	switch f {
	case FormatCSV:
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.LazyQuotes = true
		cr.ReuseRecord = true
		return &csvReader{r: cr}, nil
	case FormatJSONL:
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
		return &jsonlReader{sc: sc}, nil
	}
	return nil, fmt.Errorf("unknown format %q", f)
}

type csvReader struct {
	r       *csv.Reader
	header  []string
	started bool
}

func (c *csvReader) Next() (map[string]any, error) {
	for {
		row, err := c.r.Read()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, &RecordError{Line: pe.Line, Err: pe.Err}
			}
			return nil, err
		}

		if !c.started {
			c.started = true
			if len(row) > 0 && strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(row[0], "\ufeff")), "id") {
				c.header = make([]string, len(row))
				for i, h := range row {
					c.header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
				}
				continue
			}
			c.header = Columns
		}

		if len(row) > len(c.header) {
			line, _ := c.r.FieldPos(0)
			return nil, &RecordError{Line: line, Err: fmt.Errorf("%d fields, want at most %d", len(row), len(c.header))}
		}
		rec := make(map[string]any, len(row))
		for i, v := range row {
			rec[c.header[i]] = csvValue(c.header[i], v)
		}
		return rec, nil
	}
}

// csvValue turns numeric columns into numbers. Empty numeric cells become 0;
// unparsable ones stay strings so validation rejects them.
func csvValue(col, v string) any {
	v = strings.TrimSpace(v)
	if !numericColumns[col] {
		return v
	}
	if v == "" {
		return uint64(0)
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return v
	}
	return n
}

type jsonlReader struct {
	sc   *bufio.Scanner
	line int
}

func (j *jsonlReader) Next() (map[string]any, error) {
	for j.sc.Scan() {
		j.line++
		raw := bytes.TrimSpace(j.sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var rec map[string]any
		if err := dec.Decode(&rec); err != nil {
			return nil, &RecordError{Line: j.line, Err: err}
		}
		return rec, nil
	}
	if err := j.sc.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}
