package domain

import "errors"

// Adapter errors - 儲存適配器層錯誤
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrPermissionDenied indicates insufficient permissions
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotDirectory indicates expected a directory but got a file
	ErrNotDirectory = errors.New("not a directory")

	// ErrNotFile indicates expected a file but got a directory
	ErrNotFile = errors.New("not a file")

	// ErrBadHandle indicates a nil or already closed file or directory handle
	ErrBadHandle = errors.New("bad handle")

	// ErrNotSupported indicates the protocol cannot serve the request
	ErrNotSupported = errors.New("operation not supported")

	// ErrNetworkError indicates a network-related failure
	ErrNetworkError = errors.New("network error")

	// ErrTimeout indicates operation timed out
	ErrTimeout = errors.New("operation timed out")
)

// Transfer errors - 第三方複製層錯誤
var (
	// ErrEmptyBatch indicates a bulk copy with no files
	ErrEmptyBatch = errors.New("empty copy batch")

	// ErrBatchPrepare indicates the engine rejected the batch before running it
	ErrBatchPrepare = errors.New("copy batch rejected")

	// ErrTransferFailed indicates a single file transfer failed
	ErrTransferFailed = errors.New("transfer failed")

	// ErrCanceled indicates the host requested cancellation
	ErrCanceled = errors.New("transfer canceled")

	// ErrInvalidChecksum indicates a malformed or oversized checksum specification
	ErrInvalidChecksum = errors.New("invalid checksum specification")

	// ErrChecksumMismatch indicates the server reported a different checksum type
	ErrChecksumMismatch = errors.New("checksum type mismatch")
)

// Config errors - 設定檔錯誤
var (
	// ErrConfigNotFound indicates config file not found
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigInvalid indicates config file is malformed
	ErrConfigInvalid = errors.New("invalid config")

	// ErrConfigKeyNotFound indicates a required option has no value
	ErrConfigKeyNotFound = errors.New("config key not found")
)
