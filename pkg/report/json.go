package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/matzehuels/iterenrich/pkg/enrichment"
	"github.com/matzehuels/iterenrich/pkg/errors"
	"github.com/matzehuels/iterenrich/pkg/iterative"
)

// WriteEnrichmentJSON writes ranked records as an indented JSON array.
// Keys appear in a fixed order.
func WriteEnrichmentJSON(w io.Writer, records []enrichment.Record) error {
	return writeJSON(w, nonNil(records))
}

// ReadEnrichmentJSON decodes records written by WriteEnrichmentJSON.
func ReadEnrichmentJSON(r io.Reader) ([]enrichment.Record, error) {
	var records []enrichment.Record
	if err := readJSON(r, &records); err != nil {
		return nil, err
	}
	return nonNil(records), nil
}

// WriteIterationJSON writes iteration records as an indented JSON array.
func WriteIterationJSON(w io.Writer, records []iterative.Record) error {
	return writeJSON(w, nonNil(records))
}

// ReadIterationJSON decodes records written by WriteIterationJSON.
func ReadIterationJSON(r io.Reader) ([]iterative.Record, error) {
	var records []iterative.Record
	if err := readJSON(r, &records); err != nil {
		return nil, err
	}
	return nonNil(records), nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func readJSON(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode")
	}
	return nil
}
