// Package output serializes search responses to the supported wire
// formats.
package output

import (
	"fmt"
	"io"
)

// Format selects the serialization applied to results.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatJSONL, FormatYAML:
		return Format(s), nil
	}
	return "", fmt.Errorf("unsupported output format: %q", s)
}

// Writer serializes documents to an underlying stream. A single buffered
// document is emitted bare rather than wrapped in a one-element sequence.
type Writer interface {
	Write(doc any) error
	Flush() error
}

// NewWriter creates a writer for the given format. pretty only affects
// the JSON format.
func NewWriter(w io.Writer, format Format, pretty bool) (Writer, error) {
	switch format {
	case FormatJSON:
		return newJSONWriter(w, pretty), nil
	case FormatJSONL:
		return newJSONLWriter(w), nil
	case FormatYAML:
		return newYAMLWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %q", format)
	}
}
