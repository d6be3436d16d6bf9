package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	log := New()
	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected logger to be enabled")
	}
}

func TestNewWithLevel(t *testing.T) {
	tests := []struct {
		level   string
		format  string
		want    zerolog.Level
		wantErr bool
	}{
		{level: "debug", format: "console", want: zerolog.DebugLevel},
		{level: "WARN", format: "json", want: zerolog.WarnLevel},
		{level: "", format: "", want: zerolog.InfoLevel},
		{level: "loud", format: "json", wantErr: true},
		{level: "info", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			log, err := NewWithLevel(tt.level, tt.format)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if log.GetLevel() != tt.want {
				t.Errorf("Expected level %v, got %v", tt.want, log.GetLevel())
			}
		})
	}
}

func TestNop(t *testing.T) {
	if Nop().GetLevel() != zerolog.Disabled {
		t.Error("Expected nop logger to be disabled")
	}
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Msg("settlement parsed")

	output := buf.String()
	if !strings.Contains(output, "settlement parsed") {
		t.Errorf("Expected output to contain 'settlement parsed', got: %s", output)
	}
}

func TestWithContext(t *testing.T) {
	ctx := WithContext(context.Background(), New())

	if ctx.Value(LoggerKey) == nil {
		t.Error("Expected logger in context, got nil")
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	log := FromContext(ctx)
	log.Info().Msg("test")

	if buf.Len() == 0 {
		t.Error("Expected log output from retrieved logger")
	}
}

func TestFromContext_DefaultLogger(t *testing.T) {
	log := FromContext(context.Background())

	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected default logger to be enabled")
	}
}

func TestWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := WithFields(NewWithWriter(buf), map[string]interface{}{
		"import_id": "imp-123",
		"year":      2024,
	})

	log.Info().Msg("header located")

	output := buf.String()
	if !strings.Contains(output, `"import_id":"imp-123"`) {
		t.Errorf("Expected output to contain import_id field, got: %s", output)
	}
	if !strings.Contains(output, `"year":2024`) {
		t.Errorf("Expected output to contain year field, got: %s", output)
	}
}
