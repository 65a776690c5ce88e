package browser

import (
	"errors"
	"fmt"
	"testing"
)

func TestExpectedTeardownError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"broken pipe", errors.New("write |1: broken pipe"), true},
		{"bad descriptor", errors.New("read /dev/stdout: bad file descriptor"), true},
		{"connection reset", errors.New("read tcp 127.0.0.1:9222: connection reset by peer"), true},
		{"file closed", errors.New("close |0: file already closed"), true},
		{"process finished", errors.New("os: process already finished"), true},
		{"websocket close", errors.New("websocket: close 1006 (abnormal closure)"), true},
		{"context canceled", errors.New("context canceled"), true},
		{"uppercase", errors.New("Broken Pipe"), true},
		{"wrapped", fmt.Errorf("shutting down: %w", errors.New("broken pipe")), true},
		{"real failure", errors.New("page crashed"), false},
		{"timeout", errors.New("context deadline exceeded"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpectedTeardownError(tt.err); got != tt.want {
				t.Errorf("ExpectedTeardownError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
