package log

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestToFields(t *testing.T) {
	err := errors.New("port busy")

	tests := []struct {
		name     string
		input    []any
		wantKeys []string
	}{
		{"empty input", []any{}, nil},
		{"string-int-bool", []any{"port", "/dev/ttyUSB0", "baud", 9600, "open", true}, []string{"port", "baud", "open"}},
		{"voltage float", []any{"voltage", 12.4}, []string{"voltage"}},
		{"duration", []any{"warmup", 2 * time.Second}, []string{"warmup"}},
		{"raw line bytes", []any{"line", []byte("12.3")}, []string{"line"}},
		{"error only", []any{err}, []string{"error"}},
		{"zap field passthrough", []any{"cmd", "S50", zap.String("action", "speed_up")}, []string{"cmd", "action"}},
		{"odd number of args", []any{"cmd", "0", "dangling"}, []string{"cmd", "arg#2"}},
		{"non-string key", []any{42, "value"}, []string{"invalid_key_1"}},
		{"nil value", []any{"sent", nil}, []string{"sent"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := toFields(tt.input...)

			if len(fields) != len(tt.wantKeys) {
				t.Fatalf("got %d fields, want %d: %+v", len(fields), len(tt.wantKeys), fields)
			}
			for i, f := range fields {
				if f.Key != tt.wantKeys[i] {
					t.Errorf("field %d key = %q, want %q", i, f.Key, tt.wantKeys[i])
				}
			}
		})
	}
}

func TestSetLevelOnNopLogger(t *testing.T) {
	// Must not panic before Init.
	SetLevel("debug")
	SetLevel("bogus")
}
