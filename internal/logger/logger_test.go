package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func newBufferLogger(buf *bytes.Buffer, level Level) *Logger {
	return New(Config{
		Level:  level,
		Pretty: false,
		Output: buf,
	})
}

func TestNew(t *testing.T) {
	l := New(DefaultConfig())

	if l == nil {
		t.Fatal("New() returned nil")
	}
}

func TestNewDefault(t *testing.T) {
	if NewDefault() == nil {
		t.Fatal("NewDefault() returned nil")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != InfoLevel {
		t.Errorf("Level = %v, want InfoLevel", cfg.Level)
	}
	if !cfg.Pretty {
		t.Error("Pretty should be true by default")
	}
	if cfg.Output == nil {
		t.Error("Output should not be nil")
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("discarded")
	l.WithComponent("x").Error("discarded")
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}

	var buf bytes.Buffer
	l := newBufferLogger(&buf, InfoLevel)
	if OrNop(l) != l {
		t.Error("OrNop should return the given logger")
	}
}

func TestLogger_WithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, InfoLevel).WithComponent("pattern")
	l.Info("test message")

	if !strings.Contains(buf.String(), `"component":"pattern"`) {
		t.Errorf("Output should contain component: %s", buf.String())
	}
}

func TestLogger_WithField(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, InfoLevel).WithField("custom_field", "custom_value")
	l.Info("test message")

	output := buf.String()
	if !strings.Contains(output, "custom_field") || !strings.Contains(output, "custom_value") {
		t.Errorf("Output should contain custom field: %s", output)
	}
}

func TestLogger_WithRun(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, InfoLevel).WithRun("run-1", "app.js")
	l.Info("analyzing")

	output := buf.String()
	if !strings.Contains(output, `"run_id":"run-1"`) {
		t.Errorf("Output should contain run_id: %s", output)
	}
	if !strings.Contains(output, `"source":"app.js"`) {
		t.Errorf("Output should contain source: %s", output)
	}
}

func TestLogger_WithChunk(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, InfoLevel).WithChunk(3, 120)
	l.Info("chunk done")

	output := buf.String()
	if !strings.Contains(output, `"chunk":3`) || !strings.Contains(output, `"start_line":120`) {
		t.Errorf("Output should contain chunk fields: %s", output)
	}
}

func TestLogger_Formatted(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, DebugLevel)

	l.Debugf("found %d endpoints", 3)

	if !strings.Contains(buf.String(), "found 3 endpoints") {
		t.Errorf("Output should contain formatted message: %s", buf.String())
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, WarnLevel)

	l.Debug("debug-msg")
	l.Info("info-msg")
	l.Warn("warn-msg")
	l.Error("error-msg")

	output := buf.String()
	if strings.Contains(output, "debug-msg") {
		t.Error("Debug should be filtered")
	}
	if strings.Contains(output, "info-msg") {
		t.Error("Info should be filtered")
	}
	if !strings.Contains(output, "warn-msg") {
		t.Error("Warning should be present")
	}
	if !strings.Contains(output, "error-msg") {
		t.Error("Error should be present")
	}
}

func TestLogger_ChunkEvent(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, InfoLevel)

	l.ChunkEvent(InfoLevel, 2, 41, 2999).Msg("chunk analyzed")

	output := buf.String()
	for _, want := range []string{`"chunk":2`, `"start_line":41`, `"size":2999`, "chunk analyzed"} {
		if !strings.Contains(output, want) {
			t.Errorf("Output should contain %s: %s", want, output)
		}
	}
}

func TestLogger_DetectionEvent(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, DebugLevel)

	l.DetectionEvent("regex", "POST", "/api/login", 12)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Output should be JSON: %v", err)
	}
	if entry["detector"] != "regex" {
		t.Errorf("detector = %v, want regex", entry["detector"])
	}
	if entry["path"] != "/api/login" {
		t.Errorf("path = %v, want /api/login", entry["path"])
	}
	if entry["line"] != float64(12) {
		t.Errorf("line = %v, want 12", entry["line"])
	}
}

func TestLogger_DetectionEvent_FilteredAtInfo(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, InfoLevel)

	l.DetectionEvent("llm", "GET", "/api/users", 1)

	if buf.Len() != 0 {
		t.Errorf("DetectionEvent should be debug level, got: %s", buf.String())
	}
}

func TestLogger_ErrorEvent(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, InfoLevel)

	l.ErrorEvent(errors.New("read failed"), "bundle.js", "load")

	output := buf.String()
	for _, want := range []string{"read failed", "bundle.js", "load"} {
		if !strings.Contains(output, want) {
			t.Errorf("Output should contain %s: %s", want, output)
		}
	}
}

func TestLogger_StatsEvent(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, InfoLevel)

	l.StatsEvent(map[string]interface{}{
		"total_endpoints": 4,
		"failed_chunks":   1,
	})

	output := buf.String()
	if !strings.Contains(output, "total_endpoints") || !strings.Contains(output, "failed_chunks") {
		t.Errorf("Output should contain stats: %s", output)
	}
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, InfoLevel)

	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatal("Debug should be filtered at info level")
	}

	l.SetLevel(DebugLevel)
	l.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Error("Debug should be visible after SetLevel")
	}
}

func TestNewNamed(t *testing.T) {
	var buf bytes.Buffer
	NewNamed("warn", false, &buf).Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("Info should be filtered at warn: %s", buf.String())
	}

	NewNamed("loud", false, &buf).Info("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Error("Unknown level should fall back to info")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"info", InfoLevel, false},
		{"warn", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"", InfoLevel, false},
		{"verbose", InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
