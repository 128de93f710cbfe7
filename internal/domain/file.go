package domain

import (
	"os"
	"time"
)

// FileType represents the type of a filesystem entry
type FileType int

const (
	FileTypeRegular FileType = iota
	FileTypeDirectory
	FileTypeOther
)

// FileInfo represents metadata about a file or directory on the storage endpoint
type FileInfo struct {
	// Name is the last path element
	Name string

	// Type indicates if this is a file or directory
	Type FileType

	// Size in bytes
	Size int64

	// ModTime is the last modification time
	ModTime time.Time

	// Mode holds permission bits and os.ModeDir for directories
	Mode os.FileMode
}

// IsDir returns true if this is a directory
func (f FileInfo) IsDir() bool {
	return f.Type == FileTypeDirectory
}

// IsFile returns true if this is a regular file
func (f FileInfo) IsFile() bool {
	return f.Type == FileTypeRegular
}

// StatFlags are the independent attributes a listing or stat reply carries
type StatFlags struct {
	IsDir      bool
	Readable   bool
	Writable   bool
	Executable bool
}

// Mode assembles POSIX mode bits from the flags. Each permission flag
// applies uniformly to owner, group and other.
func (s StatFlags) Mode() os.FileMode {
	var mode os.FileMode
	if s.IsDir {
		mode |= os.ModeDir
	}
	if s.Readable {
		mode |= 0444
	}
	if s.Writable {
		mode |= 0222
	}
	if s.Executable {
		mode |= 0111
	}
	return mode
}

// DirEntry is one record returned by a directory cursor
type DirEntry struct {
	Name string
	Type FileType
}

// EntryStat is a listing entry as returned by the server.
// Flags, Size and ModTime are only meaningful when HasStat is set.
type EntryStat struct {
	Name    string
	HasStat bool
	Flags   StatFlags
	Size    int64
	ModTime time.Time
}

// FileInfo converts the inline metadata of e
func (e EntryStat) FileInfo() FileInfo {
	fileType := FileTypeRegular
	if e.Flags.IsDir {
		fileType = FileTypeDirectory
	}
	return FileInfo{
		Name:    e.Name,
		Type:    fileType,
		Size:    e.Size,
		ModTime: e.ModTime,
		Mode:    e.Flags.Mode(),
	}
}
