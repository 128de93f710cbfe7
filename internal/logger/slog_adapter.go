package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// SlogLogger slog 實作，擁有並負責關閉檔案 writers
type SlogLogger struct {
	sink
	writers []io.WriteCloser
}

// sink 共用的輸出核心：先清理訊息與參數，再交給 slog
type sink struct {
	logger    *slog.Logger
	sanitizer *Sanitizer
}

// NewSlogLogger 建立新的 slog logger
func NewSlogLogger(config Config) (*SlogLogger, error) {
	writers, closers, err := buildWriters(config)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: config.Level.spec().slog}
	out := io.MultiWriter(writers...)

	var handler slog.Handler
	if config.Format == FormatJSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return &SlogLogger{
		sink: sink{
			logger:    slog.New(handler).With(PluginAttr, PluginName),
			sanitizer: NewSanitizer(),
		},
		writers: closers,
	}, nil
}

// buildWriters 依配置建立輸出目標；沒有任何輸出時寫到 stderr
func buildWriters(config Config) ([]io.Writer, []io.WriteCloser, error) {
	var writers []io.Writer
	var closers []io.WriteCloser

	for _, output := range config.Outputs {
		switch output.Type {
		case OutputStdout, OutputStderr:
			w, closer := consoleWriter(output)
			writers = append(writers, w)
			if closer != nil {
				closers = append(closers, closer)
			}
		case OutputFile:
			if !config.File.Enabled {
				continue
			}
			fw, err := createFileWriter(config.File)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to create file writer: %w", err)
			}
			writers = append(writers, fw)
			closers = append(closers, fw)
		}
	}

	if len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}
	return writers, closers, nil
}

// consoleWriter 回傳標準輸出或測試用 writer；標準串流不需關閉
func consoleWriter(output OutputConfig) (io.Writer, io.WriteCloser) {
	if output.Writer == nil {
		if output.Type == OutputStdout {
			return os.Stdout, nil
		}
		return os.Stderr, nil
	}
	if wc, ok := output.Writer.(io.WriteCloser); ok {
		if wc != os.Stdout && wc != os.Stderr && wc != os.Stdin {
			return output.Writer, wc
		}
	}
	return output.Writer, nil
}

// createFileWriter 建立檔案 writer（使用 lumberjack 支援 rotation）
func createFileWriter(config FileConfig) (io.WriteCloser, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("log file path cannot be empty")
	}

	// 確保目錄存在
	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   config.Path,
		MaxSize:    config.MaxSizeMB,
		MaxAge:     config.MaxAgeDays,
		MaxBackups: config.MaxBackups,
		Compress:   config.Compress,
	}, nil
}

func (s sink) log(level slog.Level, msg string, args []any) {
	if !s.logger.Enabled(context.Background(), level) {
		return
	}
	s.logger.Log(context.Background(), level, s.sanitizer.Sanitize(msg), s.sanitizer.SanitizeArgs(args)...)
}

func (s sink) Debug(msg string, args ...any) { s.log(slog.LevelDebug, msg, args) }
func (s sink) Info(msg string, args ...any)  { s.log(slog.LevelInfo, msg, args) }
func (s sink) Warn(msg string, args ...any)  { s.log(slog.LevelWarn, msg, args) }
func (s sink) Error(msg string, args ...any) { s.log(slog.LevelError, msg, args) }

// With 建立帶 context 的子 logger
// 子 logger 不擁有 writers，避免重複關閉
func (s sink) With(args ...any) Logger {
	return &childLogger{sink{
		logger:    s.logger.With(s.sanitizer.SanitizeArgs(args)...),
		sanitizer: s.sanitizer,
	}}
}

// Sync slog 沒有緩衝；lumberjack 每次寫入即落盤
func (s sink) Sync() error {
	return nil
}

// Shutdown 關閉所有 writers
func (l *SlogLogger) Shutdown() error {
	var lastErr error
	for _, w := range l.writers {
		if err := w.Close(); err != nil {
			lastErr = err
		}
	}
	l.writers = nil
	return lastErr
}

// childLogger 子 logger，不擁有 writers
type childLogger struct {
	sink
}

func (c *childLogger) Shutdown() error {
	return nil
}
