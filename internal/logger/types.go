package logger

import (
	"io"
	"log/slog"
	"strings"
)

// 每筆記錄都帶上 plugin=xrootd，方便在混合日誌中過濾
const (
	PluginAttr = "plugin"
	PluginName = "xrootd"
)

// Logger 統一日誌介面；args 為 key/value 對，輸出前會先清除憑證
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	Sync() error
	Shutdown() error
}

// Level 日誌級別，同時決定 xrdcp 與 XRootD client 的詳細程度
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// levelSpec 一個級別在各處的對應值
type levelSpec struct {
	name      string
	slog      slog.Level
	verbosity int    // xrdcp 的 debug level：0 靜默、1 info、2 debug、3 dump
	xrdLevel  string // XRD_LOGLEVEL
}

var levels = map[Level]levelSpec{
	LevelDebug: {"debug", slog.LevelDebug, 2, "Debug"},
	LevelInfo:  {"info", slog.LevelInfo, 0, "Info"},
	LevelWarn:  {"warn", slog.LevelWarn, 0, "Warning"},
	LevelError: {"error", slog.LevelError, 0, "Error"},
}

func (l Level) spec() levelSpec {
	if s, ok := levels[l]; ok {
		return s
	}
	return levelSpec{"unknown", slog.LevelInfo, 0, "Error"}
}

func (l Level) String() string {
	return l.spec().name
}

// ClientVerbosity is the xrdcp debug level for level
func ClientVerbosity(level Level) int {
	return level.spec().verbosity
}

// ClientLogLevel is the XRD_LOGLEVEL value matching level
func ClientLogLevel(level Level) string {
	return level.spec().xrdLevel
}

// ParseLevel accepts our names and the XRD_LOGLEVEL spellings ("Dump",
// "Warning"). Anything else is info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "dump":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Format 日誌格式
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "text"
}

// ParseFormat returns FormatJSON for "json" and FormatText otherwise
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), "json") {
		return FormatJSON
	}
	return FormatText
}

// Output 日誌輸出目標
type Output int

const (
	OutputStdout Output = iota
	OutputStderr
	OutputFile
)

// Config 對應設定檔 logging 區段
type Config struct {
	Level   Level
	Format  Format
	Outputs []OutputConfig
	File    FileConfig
}

// OutputConfig 單一輸出；Writer 非 nil 時取代標準串流（測試用）
type OutputConfig struct {
	Type   Output
	Writer io.Writer
}

// FileConfig 檔案日誌，由 lumberjack 依大小與天數輪替
type FileConfig struct {
	Enabled    bool
	Path       string
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
	Compress   bool
}
