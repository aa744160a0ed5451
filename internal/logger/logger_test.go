package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf)

	log.Info().Str("key", "value").Msg("test message")

	out := buf.String()
	if !strings.Contains(out, "test message") {
		t.Errorf("log output missing message: %s", out)
	}
	if !strings.Contains(out, `"key":"value"`) {
		t.Errorf("log output missing field: %s", out)
	}
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf)

	ctx := WithContext(context.Background(), log)
	got := FromContext(ctx)

	got.Info().Msg("from context")
	if !strings.Contains(buf.String(), "from context") {
		t.Errorf("logger from context did not write to original writer: %s", buf.String())
	}
}

func TestFromContextMissing(t *testing.T) {
	// Should not panic when no logger was attached.
	log := FromContext(context.Background())
	log.Debug().Msg("default logger")
}
