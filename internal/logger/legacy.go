package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// LegacyLogger 舊版 logger（使用 fmt.Fprint*，用於回退）
// All output goes to stderr: stdout carries file contents for cat.
type LegacyLogger struct {
	level     Level
	mu        sync.RWMutex
	out       io.Writer
	sanitizer *Sanitizer
	attrs     []any
}

// NewLegacyLogger 建立 legacy logger
func NewLegacyLogger() *LegacyLogger {
	return &LegacyLogger{
		level:     LevelInfo,
		out:       os.Stderr,
		sanitizer: NewSanitizer(),
	}
}

// SetLevel 設定日誌級別
func (l *LegacyLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// shouldLog 判斷是否應該記錄
func (l *LegacyLogger) shouldLog(level Level) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return level >= l.level
}

func (l *LegacyLogger) print(level Level, msg string, args []any) {
	if !l.shouldLog(level) {
		return
	}
	all := append(append([]any{}, l.attrs...), args...)
	line := fmt.Sprintf("[%s] %s %v", level, msg, l.sanitizer.SanitizeArgs(all))
	fmt.Fprintln(l.out, l.sanitizer.Sanitize(line))
}

// Debug 記錄 debug 級別日誌
func (l *LegacyLogger) Debug(msg string, args ...any) { l.print(LevelDebug, msg, args) }

// Info 記錄 info 級別日誌
func (l *LegacyLogger) Info(msg string, args ...any) { l.print(LevelInfo, msg, args) }

// Warn 記錄 warn 級別日誌
func (l *LegacyLogger) Warn(msg string, args ...any) { l.print(LevelWarn, msg, args) }

// Error 記錄 error 級別日誌
func (l *LegacyLogger) Error(msg string, args ...any) { l.print(LevelError, msg, args) }

// With 建立帶 context 的子 logger；attrs 會加在每一行前面
func (l *LegacyLogger) With(args ...any) Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return &LegacyLogger{
		level:     l.level,
		out:       l.out,
		sanitizer: l.sanitizer,
		attrs:     append(append([]any{}, l.attrs...), args...),
	}
}

// Sync 強制 flush
func (l *LegacyLogger) Sync() error {
	return nil
}

// Shutdown 優雅關閉
func (l *LegacyLogger) Shutdown() error {
	return nil
}
