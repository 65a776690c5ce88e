package output

import (
	"bufio"
	"io"

	"gopkg.in/yaml.v3"
)

type yamlWriter struct {
	w    *bufio.Writer
	docs []any
}

func newYAMLWriter(w io.Writer) *yamlWriter {
	return &yamlWriter{w: bufio.NewWriter(w)}
}

func (y *yamlWriter) Write(doc any) error {
	y.docs = append(y.docs, doc)
	return nil
}

func (y *yamlWriter) Flush() error {
	var payload any = y.docs
	if len(y.docs) == 1 {
		payload = y.docs[0]
	}

	enc := yaml.NewEncoder(y.w)
	enc.SetIndent(2)
	if err := enc.Encode(payload); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return y.w.Flush()
}
