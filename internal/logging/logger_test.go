package logging_test

import (
	"bytes"
	"strings"
	"testing"

	"ingot/internal/logging"
)

func TestConsoleHandlerFormatsComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger = logging.NewComponentLogger(logger, "orchestrator")
	logger.Info("batch started", logging.String(logging.FieldBatch, "BATCH000001"))

	line := buf.String()
	if !strings.Contains(line, "INFO orchestrator: batch started") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "batch_id=BATCH000001") {
		t.Fatalf("expected batch attr in line: %q", line)
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "warn", Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("suppressed")
	if buf.Len() != 0 {
		t.Fatalf("expected info record suppressed, got %q", buf.String())
	}
	logger.Warn("kept")
	if !strings.Contains(buf.String(), "WARN kept") {
		t.Fatalf("expected warn record, got %q", buf.String())
	}
}

func TestUnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	if _, err := logging.New(logging.Options{Format: "yaml", Output: &buf}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := logging.WithClient(t.Context(), "acme")
	ctx = logging.WithStage(ctx, "convert")
	logging.WithContext(ctx, logger).Info("hello")

	line := buf.String()
	if !strings.Contains(line, "client=acme") || !strings.Contains(line, "stage=convert") {
		t.Fatalf("expected context fields in line: %q", line)
	}
}
