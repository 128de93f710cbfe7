// Package tpc builds third-party copy jobs and runs them as a batch through
// a native copy engine, reconciling per-job outcomes into a partial-failure
// result.
package tpc

import (
	"context"
	"time"

	"github.com/Ning0612/xrdgate/internal/domain"
	"github.com/Ning0612/xrdgate/internal/progress"
)

// Engine is one copy process: jobs are added, the batch is prepared, then run.
// An Engine is used for a single batch.
type Engine interface {
	// AddJob queues job; the engine fills result while running it
	AddJob(job Job, result *domain.JobResult)

	// Prepare validates and queues every added job
	Prepare(ctx context.Context) domain.Status

	// Run executes the prepared batch, blocking until it finishes or
	// h asks for cancellation
	Run(ctx context.Context, h Handler) domain.Status
}

// Configurable is implemented by engines that accept a parallelism degree
type Configurable interface {
	SetParallel(n int)
}

// Handler receives job callbacks from the engine's own goroutines.
// Callbacks for different jobs may run concurrently.
type Handler interface {
	BeginJob(jobNum, jobTotal int, src, dst string)
	JobProgress(jobNum int, processed, total uint64)
	EndJob(jobNum int, result *domain.JobResult)
	ShouldCancel() bool
}

// EngineFactory returns a fresh engine for each batch
type EngineFactory func() Engine

// TransferParams are the options shared by every file of a copy call
type TransferParams struct {
	ReplaceExisting bool

	SourceSpaceToken string
	DestSpaceToken   string

	// ChecksumCheck enables verification
	ChecksumCheck bool

	// ChecksumType and ChecksumValue are the user-defined checksum of a single copy
	ChecksumType  string
	ChecksumValue string

	// Timeout bounds each third-party copy, zero means engine default
	Timeout time.Duration

	// Monitor receives live progress, may be nil
	Monitor progress.MonitorFunc

	// Events receives lifecycle events, may be nil
	Events progress.EventSink
}

// ParamsFromRequest builds the batch options carried by a CopyRequest
func ParamsFromRequest(req domain.CopyRequest) *TransferParams {
	return &TransferParams{
		ReplaceExisting:  req.Replace,
		SourceSpaceToken: req.SourceSpaceToken,
		DestSpaceToken:   req.DestSpaceToken,
		ChecksumCheck:    req.VerifyChecksum,
		Timeout:          req.Timeout,
	}
}
