package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

type testDoc struct {
	Query   string   `json:"query" yaml:"query"`
	Results []string `json:"results" yaml:"results"`
}

// --- Factory Tests ---

func TestParseFormat(t *testing.T) {
	for _, valid := range []string{"json", "jsonl", "yaml"} {
		if _, err := ParseFormat(valid); err != nil {
			t.Errorf("ParseFormat(%q) error = %v", valid, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestNewWriter_UnsupportedFormat(t *testing.T) {
	if _, err := NewWriter(&bytes.Buffer{}, Format("csv"), true); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

// --- JSON Tests ---

func TestJSONWriter_SingleDocumentIsBare(t *testing.T) {
	buf := &bytes.Buffer{}
	w, err := NewWriter(buf, FormatJSON, true)
	if err != nil {
		t.Fatal(err)
	}

	doc := testDoc{Query: "q", Results: []string{"a", "b"}}
	if err := w.Write(doc); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	var got testDoc
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not a bare object: %v\n%s", err, buf.String())
	}
	if got.Query != "q" || len(got.Results) != 2 {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestJSONWriter_MultipleDocumentsAreArray(t *testing.T) {
	buf := &bytes.Buffer{}
	w, _ := NewWriter(buf, FormatJSON, false)

	_ = w.Write(testDoc{Query: "one"})
	_ = w.Write(testDoc{Query: "two"})
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	var got []testDoc
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not an array: %v\n%s", err, buf.String())
	}
	if len(got) != 2 {
		t.Errorf("got %d documents, want 2", len(got))
	}
}

// --- JSONL Tests ---

func TestJSONLWriter_OneLinePerDocument(t *testing.T) {
	buf := &bytes.Buffer{}
	w, _ := NewWriter(buf, FormatJSONL, true)

	_ = w.Write(testDoc{Query: "one"})
	_ = w.Write(testDoc{Query: "two"})
	_ = w.Flush()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), buf.String())
	}
	for i, line := range lines {
		var got testDoc
		if err := json.Unmarshal([]byte(line), &got); err != nil {
			t.Errorf("line %d is not valid JSON: %v", i+1, err)
		}
	}
}

// --- YAML Tests ---

func TestYAMLWriter_RoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	w, _ := NewWriter(buf, FormatYAML, true)

	doc := testDoc{Query: "q", Results: []string{"a"}}
	_ = w.Write(doc)
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	var got testDoc
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid YAML: %v\n%s", err, buf.String())
	}
	if got.Query != "q" || len(got.Results) != 1 {
		t.Errorf("round trip mismatch: %+v", got)
	}
}
