package tpc

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"github.com/google/uuid"

	"github.com/Ning0612/xrdgate/internal/config"
	"github.com/Ning0612/xrdgate/internal/core/checksum"
	"github.com/Ning0612/xrdgate/internal/domain"
	"github.com/Ning0612/xrdgate/internal/logger"
	"github.com/Ning0612/xrdgate/internal/progress"
)

const (
	opCopy     = "Copy"
	opCopyBulk = "CopyBulk"
)

// BulkResult is the outcome of a batch that ran
type BulkResult struct {
	BatchID string

	// Failed is the number of files that did not copy
	Failed int

	// Errors has one slot per input file, nil for successes
	Errors []error

	Outcomes []domain.CopyOutcome
}

// Code returns the negative failure count, 0 when every file copied
func (r *BulkResult) Code() int {
	return -r.Failed
}

// Copier runs copy batches through engines created by its factory
type Copier struct {
	newEngine EngineFactory
	builder   *Builder
	opts      config.Options
}

// NewCopier creates a copier
func NewCopier(newEngine EngineFactory, opts config.Options) *Copier {
	return &Copier{
		newEngine: newEngine,
		builder:   NewBuilder(opts),
		opts:      opts,
	}
}

// CopyBulk copies srcs[i] to dsts[i]. checksums[i] is an optional "TYPE:value"
// spec; checksums may be nil.
//
// A non-nil error means the batch never ran (or, for one file, that the run
// failed) and no per-file outcome exists. Otherwise the result holds one
// error slot per file.
func (c *Copier) CopyBulk(ctx context.Context, params *TransferParams, srcs, dsts, checksums []string) (*BulkResult, error) {
	n := len(srcs)
	if n == 0 || len(dsts) != n || (checksums != nil && len(checksums) != n) {
		return nil, domain.Wrap(domain.ErrEmptyBatch, syscall.EINVAL, opCopyBulk,
			"need matching sources and destinations, got %d and %d", n, len(dsts))
	}
	if params == nil {
		params = &TransferParams{}
	}

	batchID := uuid.NewString()
	log := logger.With("batch_id", batchID)
	log.Debug("building copy batch", "files", n, "checksum", params.ChecksumCheck)

	engine := c.newEngine()
	results := make([]*domain.JobResult, n)
	for i := 0; i < n; i++ {
		var raw string
		if checksums != nil {
			raw = checksums[i]
		}
		spec, err := checksum.Parse(raw)
		if err != nil {
			return nil, domain.Wrap(err, domain.Errno(err), opCopyBulk, "%s", err.Error())
		}

		job, err := c.builder.Build(srcs[i], dsts[i], params, spec)
		if err != nil {
			log.Error("failed to build copy job", "index", i, "error", err)
			return nil, domain.Wrap(err, domain.Errno(err), opCopyBulk, "%s", err.Error())
		}

		results[i] = &domain.JobResult{}
		engine.AddJob(job, results[i])
	}

	if cfg, ok := engine.(Configurable); ok {
		cfg.SetParallel(c.opts.IntDefault(config.Group, config.KeyParallelCopies, config.DefaultParallelCopies))
	}

	status := engine.Prepare(ctx)
	if !status.OK {
		log.Error("copy batch rejected", "status", status.String())
		return nil, domain.Wrap(domain.ErrBatchPrepare, status.Errno(), opCopyBulk,
			"Error on CopyProcess::Prepare(): %s", status)
	}

	feedback := progress.NewFeedback(ctx, params.Monitor, params.Events)
	status = engine.Run(ctx, feedback)

	// a single job has no bulk coordination: the run status is its status
	if n == 1 && !status.OK {
		log.Error("copy failed", "source", srcs[0], "status", status.String())
		return nil, runError(status)
	}

	res := &BulkResult{
		BatchID:  batchID,
		Errors:   make([]error, n),
		Outcomes: make([]domain.CopyOutcome, n),
	}
	for i, r := range results {
		st := r.Status
		res.Outcomes[i] = domain.CopyOutcome{
			Index:       i,
			Source:      srcs[i],
			Destination: dsts[i],
			OK:          st.OK,
			ErrNo:       int(st.Errno()),
			Message:     st.Message,
		}
		if !st.OK {
			res.Errors[i] = runError(st)
			res.Failed++
		}
	}

	if res.Failed > 0 {
		log.Warn("copy batch finished with failures", "failed", res.Failed, "files", n)
	} else {
		log.Info("copy batch finished", "files", n)
	}
	return res, nil
}

func runError(st domain.Status) *domain.Error {
	return domain.Wrap(domain.ErrTransferFailed, st.Errno(), opCopyBulk,
		"Error on CopyProcess::Run(): %s", st)
}

// Copy copies one file using the user-defined checksum in params.
// Errors carry the Copy operation as prefix.
func (c *Copier) Copy(ctx context.Context, params *TransferParams, src, dst string) error {
	if params == nil {
		params = &TransferParams{}
	}
	spec, err := checksum.New(params.ChecksumType, params.ChecksumValue)
	if err != nil {
		return domain.Wrap(err, domain.Errno(err), opCopy, "%s", err.Error())
	}

	res, err := c.CopyBulk(ctx, params, []string{src}, []string{dst}, []string{spec.String()})
	if err != nil {
		return prefixed(err)
	}
	if res.Failed > 0 {
		return prefixed(res.Errors[0])
	}
	return nil
}

func prefixed(err error) error {
	var e *domain.Error
	if errors.As(err, &e) {
		return e.Prefixed(opCopy)
	}
	return domain.Wrap(err, domain.Errno(err), opCopy, "%s", fmt.Sprint(err))
}
