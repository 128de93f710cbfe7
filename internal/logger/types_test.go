package logger

import (
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"Dump", LevelDebug},
		{" INFO ", LevelInfo},
		{"Warning", LevelWarn},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseLevel_ClientLogLevelRoundTrip(t *testing.T) {
	for _, l := range []Level{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		if got := ParseLevel(ClientLogLevel(l)); got != l {
			t.Errorf("ParseLevel(ClientLogLevel(%v)) = %v", l, got)
		}
	}
}

func TestLevel_Unknown(t *testing.T) {
	l := Level(42)
	if l.String() != "unknown" {
		t.Errorf("String() = %q, want unknown", l.String())
	}
	if l.spec().slog != slog.LevelInfo {
		t.Errorf("slog level = %v, want info", l.spec().slog)
	}
	if ClientVerbosity(l) != 0 || ClientLogLevel(l) != "Error" {
		t.Errorf("client settings = %d/%s, want 0/Error", ClientVerbosity(l), ClientLogLevel(l))
	}
}

func TestParseFormat(t *testing.T) {
	if ParseFormat("JSON") != FormatJSON {
		t.Error("JSON should parse as FormatJSON")
	}
	for _, s := range []string{"text", "", "yaml"} {
		if ParseFormat(s) != FormatText {
			t.Errorf("ParseFormat(%q) should be FormatText", s)
		}
	}
	if FormatJSON.String() != "json" || FormatText.String() != "text" {
		t.Errorf("String() = %s/%s", FormatJSON, FormatText)
	}
}
