package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// newBufferLogger 建立寫入 buffer 的 logger，測試結束時自動關閉
func newBufferLogger(t *testing.T, level Level, format Format) (*SlogLogger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	l, err := NewSlogLogger(Config{
		Level:   level,
		Format:  format,
		Outputs: []OutputConfig{{Type: OutputStderr, Writer: buf}},
	})
	if err != nil {
		t.Fatalf("NewSlogLogger() error = %v", err)
	}
	t.Cleanup(func() { l.Shutdown() })
	return l, buf
}

func TestSlogLogger_PluginAttribute(t *testing.T) {
	l, buf := newBufferLogger(t, LevelInfo, FormatText)

	l.Info("copy started", "files", 3)

	output := buf.String()
	for _, want := range []string{"copy started", "files=3", "plugin=xrootd"} {
		if !strings.Contains(output, want) {
			t.Errorf("log output missing %q: %s", want, output)
		}
	}
}

func TestSlogLogger_Levels(t *testing.T) {
	tests := []struct {
		name      string
		level     Level
		log       func(Logger)
		shouldLog bool
	}{
		{"debug at debug level", LevelDebug, func(l Logger) { l.Debug("m") }, true},
		{"debug at info level", LevelInfo, func(l Logger) { l.Debug("m") }, false},
		{"info at warn level", LevelWarn, func(l Logger) { l.Info("m") }, false},
		{"warn at warn level", LevelWarn, func(l Logger) { l.Warn("m") }, true},
		{"error at warn level", LevelWarn, func(l Logger) { l.Error("m") }, true},
		{"child debug at error level", LevelError, func(l Logger) { l.With("op", "Stat").Debug("m") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, buf := newBufferLogger(t, tt.level, FormatText)
			tt.log(l)

			if hasLog := buf.Len() > 0; hasLog != tt.shouldLog {
				t.Errorf("shouldLog=%v, got output %q", tt.shouldLog, buf.String())
			}
		})
	}
}

func TestSlogLogger_JSONFormat(t *testing.T) {
	l, buf := newBufferLogger(t, LevelInfo, FormatJSON)

	l.Error("operation failed", "op", "Rmdir", "errno", 39)

	output := buf.String()
	for _, want := range []string{`"msg":"operation failed"`, `"op":"Rmdir"`, `"errno":39`, `"plugin":"xrootd"`} {
		if !strings.Contains(output, want) {
			t.Errorf("JSON output missing %s: %s", want, output)
		}
	}
}

func TestSlogLogger_WithNests(t *testing.T) {
	l, buf := newBufferLogger(t, LevelInfo, FormatText)

	child := l.With("batch_id", "b1").With("job", 2)
	child.Info("job finished")

	output := buf.String()
	if !strings.Contains(output, "batch_id=b1") || !strings.Contains(output, "job=2") {
		t.Errorf("child logger output missing context: %s", output)
	}
	if err := child.Shutdown(); err != nil {
		t.Errorf("child Shutdown() error = %v", err)
	}
}

func TestSlogLogger_SanitizesCredentials(t *testing.T) {
	l, buf := newBufferLogger(t, LevelInfo, FormatText)

	l.Info("open root://xrd.example.org//data/f?authz=tok123", "password", "secret123")
	l.With("url", "root://xrd.example.org//f?xrd.gsiusrpxy=/tmp/x509up_u1000").Info("stat")

	output := buf.String()
	for _, leaked := range []string{"tok123", "secret123", "x509up_u1000"} {
		if strings.Contains(output, leaked) {
			t.Errorf("log output leaks %q: %s", leaked, output)
		}
	}
}

func TestSlogLogger_FileOutput(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "xrdgate.log")

	l, err := NewSlogLogger(Config{
		Level: LevelInfo,
		File: FileConfig{
			Enabled:    true,
			Path:       logPath,
			MaxSizeMB:  1,
			MaxAgeDays: 7,
			MaxBackups: 3,
		},
		Outputs: []OutputConfig{{Type: OutputFile}},
	})
	if err != nil {
		t.Fatalf("NewSlogLogger() error = %v", err)
	}

	l.Info("test file logging")
	if err := l.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), "test file logging") {
		t.Errorf("log file missing message: %s", content)
	}
}

func TestSlogLogger_FileOutputNeedsPath(t *testing.T) {
	_, err := NewSlogLogger(Config{
		File:    FileConfig{Enabled: true},
		Outputs: []OutputConfig{{Type: OutputFile}},
	})
	if err == nil {
		t.Fatal("expected error for empty log file path")
	}
}

func TestSlogLogger_MultipleOutputs(t *testing.T) {
	buf1, buf2 := &bytes.Buffer{}, &bytes.Buffer{}

	l, err := NewSlogLogger(Config{
		Level: LevelInfo,
		Outputs: []OutputConfig{
			{Type: OutputStdout, Writer: buf1},
			{Type: OutputStderr, Writer: buf2},
		},
	})
	if err != nil {
		t.Fatalf("NewSlogLogger() error = %v", err)
	}
	defer l.Shutdown()

	l.Info("test multi-output")

	if !strings.Contains(buf1.String(), "test multi-output") || !strings.Contains(buf2.String(), "test multi-output") {
		t.Errorf("message missing from an output: %q / %q", buf1.String(), buf2.String())
	}
}

func TestConsoleWriter(t *testing.T) {
	if w, c := consoleWriter(OutputConfig{Type: OutputStderr}); w != os.Stderr || c != nil {
		t.Errorf("stderr default: got %v, closer %v", w, c)
	}
	if w, c := consoleWriter(OutputConfig{Type: OutputStdout}); w != os.Stdout || c != nil {
		t.Errorf("stdout default: got %v, closer %v", w, c)
	}
	if _, c := consoleWriter(OutputConfig{Type: OutputStderr, Writer: os.Stderr}); c != nil {
		t.Error("standard stream must not be closed")
	}
}
