package progress

import (
	"fmt"
	"io"
)

// Reader wraps an io.Reader and reports the running byte count
type Reader struct {
	reader      io.Reader
	onUpdate    func(transferred int64)
	transferred int64
}

// NewReader creates a progress-tracking reader. onUpdate may be nil.
func NewReader(r io.Reader, onUpdate func(transferred int64)) *Reader {
	return &Reader{
		reader:   r,
		onUpdate: onUpdate,
	}
}

// Read implements io.Reader
func (pr *Reader) Read(p []byte) (n int, err error) {
	n, err = pr.reader.Read(p)
	if n > 0 {
		pr.transferred += int64(n)
		if pr.onUpdate != nil {
			pr.onUpdate(pr.transferred)
		}
	}
	return n, err
}

// Transferred returns the bytes read so far
func (pr *Reader) Transferred() int64 {
	return pr.transferred
}

// FormatBytes formats bytes into human-readable string
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatSpeed formats bytes per second into human-readable string
func FormatSpeed(bytesPerSecond float64) string {
	return FormatBytes(int64(bytesPerSecond)) + "/s"
}

// FormatProgress returns a progress bar string
func FormatProgress(current, total uint64, width int) string {
	if total == 0 {
		return ""
	}

	percent := float64(current) / float64(total)
	filled := int(percent * float64(width))
	if filled > width {
		filled = width
	}

	bar := make([]byte, width)
	for i := 0; i < width; i++ {
		switch {
		case i < filled:
			bar[i] = '='
		case i == filled:
			bar[i] = '>'
		default:
			bar[i] = ' '
		}
	}

	return fmt.Sprintf("[%s] %5.1f%%", string(bar), percent*100)
}

// FormatSnapshot renders one monitor line for the CLI
func FormatSnapshot(s Snapshot) string {
	return fmt.Sprintf("%s %s/%s avg %s inst %s",
		FormatProgress(s.BytesTransferred, s.BytesTotal, 20),
		FormatBytes(int64(s.BytesTransferred)),
		FormatBytes(int64(s.BytesTotal)),
		FormatSpeed(s.AverageRate),
		FormatSpeed(s.InstantRate))
}
