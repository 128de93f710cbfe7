package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLegacyLogger_LevelsAndAttrs(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewLegacyLogger()
	l.out = buf
	l.SetLevel(LevelWarn)

	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level: %q", buf.String())
	}

	child := l.With("batch_id", "b-1")
	child.Warn("copy failed", "url", "root://h//f?authz=secret")

	out := buf.String()
	if !strings.HasPrefix(out, "[warn] copy failed") {
		t.Errorf("unexpected prefix: %q", out)
	}
	if !strings.Contains(out, "b-1") {
		t.Errorf("child attrs missing: %q", out)
	}
	if strings.Contains(out, "secret") {
		t.Errorf("credential leaked: %q", out)
	}
}
