package output

import (
	"bufio"
	"encoding/json"
	"io"
)

type jsonWriter struct {
	w      *bufio.Writer
	pretty bool
	docs   []any
}

func newJSONWriter(w io.Writer, pretty bool) *jsonWriter {
	return &jsonWriter{w: bufio.NewWriter(w), pretty: pretty}
}

func (j *jsonWriter) Write(doc any) error {
	j.docs = append(j.docs, doc)
	return nil
}

func (j *jsonWriter) Flush() error {
	var payload any = j.docs
	if len(j.docs) == 1 {
		payload = j.docs[0]
	}

	var (
		data []byte
		err  error
	)
	if j.pretty {
		data, err = json.MarshalIndent(payload, "", "  ")
	} else {
		data, err = json.Marshal(payload)
	}
	if err != nil {
		return err
	}

	if _, err := j.w.Write(data); err != nil {
		return err
	}
	if err := j.w.WriteByte('\n'); err != nil {
		return err
	}
	return j.w.Flush()
}

// jsonlWriter streams one document per line, flushing as it goes so
// long-running callers see results immediately.
type jsonlWriter struct {
	w *bufio.Writer
}

func newJSONLWriter(w io.Writer) *jsonlWriter {
	return &jsonlWriter{w: bufio.NewWriter(w)}
}

func (j *jsonlWriter) Write(doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if _, err := j.w.Write(data); err != nil {
		return err
	}
	if err := j.w.WriteByte('\n'); err != nil {
		return err
	}
	return j.w.Flush()
}

func (j *jsonlWriter) Flush() error {
	return j.w.Flush()
}
