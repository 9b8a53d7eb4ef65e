package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"

	"zlibsearch/internal/search"
)

// ErrInvalidRecord marks records rejected by validation.
var ErrInvalidRecord = errors.New("invalid record")

// DefaultBatchSize is the number of books written per transaction.
const DefaultBatchSize = 5000

// Sink receives validated books in batches.
type Sink interface {
	Upsert(ctx context.Context, books []search.Book) error
}

// Observer is notified about ingest progress; used for metrics.
type Observer interface {
	ObserveRecord(status string)
	ObserveBatch(n int, took time.Duration)
}

// Record statuses reported to the Observer.
const (
	StatusIndexed   = "indexed"
	StatusInvalid   = "invalid"
	StatusMalformed = "malformed"
)

// Options configure a Run.
type Options struct {
	Format    Format
	Charset   string
	BatchSize int
	Observer  Observer
	Log       *logrus.Logger
}

// Stats summarizes a Run.
type Stats struct {
	Read      int
	Indexed   int
	Invalid   int
	Malformed int
}

var policy = bluemonday.StrictPolicy()

// Run reads every record from r, validates it and writes the valid ones to
// sink. Bad records are counted and skipped; read or write failures abort.
func Run(ctx context.Context, r io.Reader, sink Sink, opts Options) (Stats, error) {
	var st Stats

	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	size := opts.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	src, err := Decode(r, opts.Charset)
	if err != nil {
		return st, err
	}
	rr, err := NewReader(src, opts.Format)
	if err != nil {
		return st, err
	}

	batch := make([]search.Book, 0, size)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		start := time.Now()
		if err := sink.Upsert(ctx, batch); err != nil {
			return fmt.Errorf("write batch: %w", err)
		}
		if opts.Observer != nil {
			opts.Observer.ObserveBatch(len(batch), time.Since(start))
			for range batch {
				opts.Observer.ObserveRecord(StatusIndexed)
			}
		}
		st.Indexed += len(batch)
		batch = batch[:0]
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return st, err
		}

		rec, err := rr.Next()
		if err == io.EOF {
			break
		}
		var re *RecordError
		if errors.As(err, &re) {
			st.Malformed++
			observe(opts.Observer, StatusMalformed)
			log.WithError(re).Warn("ingest.record.malformed")
			continue
		}
		if err != nil {
			return st, fmt.Errorf("read input: %w", err)
		}
		st.Read++

		if err := Validate(rec); err != nil {
			st.Invalid++
			observe(opts.Observer, StatusInvalid)
			log.WithError(err).WithField("id", rec["id"]).Debug("ingest.record.invalid")
			continue
		}

		batch = append(batch, ToBook(rec))
		if len(batch) == size {
			if err := flush(); err != nil {
				return st, err
			}
		}
	}

	if err := flush(); err != nil {
		return st, err
	}
	return st, nil
}

func observe(o Observer, status string) {
	if o != nil {
		o.ObserveRecord(status)
	}
}

// ToBook converts a validated record. Text fields are stripped of markup.
func ToBook(rec map[string]any) search.Book {
	return search.Book{
		ID:        number(rec["id"]),
		Title:     text(rec["title"]),
		Author:    text(rec["author"]),
		Publisher: text(rec["publisher"]),
		Extension: strings.ToLower(text(rec["extension"])),
		Filesize:  number(rec["filesize"]),
		Language:  strings.ToLower(text(rec["language"])),
		Year:      number(rec["year"]),
		Pages:     number(rec["pages"]),
		ISBN:      text(rec["isbn"]),
		IPFSCID:   text(rec["ipfs_cid"]),
	}
}

// Clean strips HTML from s and collapses whitespace.
func Clean(s string) string {
	s = html.UnescapeString(policy.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

func text(v any) string {
	s, _ := v.(string)
	return Clean(s)
}

func number(v any) uint64 {
	switch n := v.(type) {
	case uint64:
		return n
	case json.Number:
		u, err := strconv.ParseUint(n.String(), 10, 64)
		if err == nil {
			return u
		}
		f, err := n.Float64()
		if err == nil && f >= 0 {
			return uint64(f)
		}
	case float64:
		if n >= 0 {
			return uint64(n)
		}
	case int:
		if n >= 0 {
			return uint64(n)
		}
	}
	return 0
}
