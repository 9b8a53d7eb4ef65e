package ingest

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// recordSchema describes one catalogue record of the dump. Numbers are
// capped at MaxInt64, the largest value an SQLite INTEGER holds.
const recordSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "title"],
  "properties": {
    "id":        {"type": "integer", "minimum": 1, "maximum": 9223372036854775807},
    "title":     {"type": "string", "minLength": 1},
    "author":    {"type": "string"},
    "publisher": {"type": "string"},
    "extension": {"type": "string", "maxLength": 16},
    "filesize":  {"type": "integer", "minimum": 0, "maximum": 9223372036854775807},
    "language":  {"type": "string"},
    "year":      {"type": "integer", "minimum": 0, "maximum": 9223372036854775807},
    "pages":     {"type": "integer", "minimum": 0, "maximum": 9223372036854775807},
    "isbn":      {"type": "string"},
    "ipfs_cid":  {"type": "string"}
  }
}`

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(recordSchema))
	})
	return schema, schemaErr
}

// Validate checks a raw record against the record schema.
func Validate(rec map[string]any) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	res, err := s.Validate(gojsonschema.NewGoLoader(rec))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidRecord, strings.Join(msgs, "; "))
}
