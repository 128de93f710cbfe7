package tpc

import (
	"context"
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ning0612/xrdgate/internal/config"
	"github.com/Ning0612/xrdgate/internal/domain"
	"github.com/Ning0612/xrdgate/internal/progress"
)

// fakeEngine records jobs and replays scripted statuses
type fakeEngine struct {
	jobs     []Job
	results  []*domain.JobResult
	parallel int

	prepare domain.Status
	run     domain.Status

	// perJob is copied into each result during Run, by index
	perJob []domain.Status

	prepared bool
	ran      bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{prepare: domain.StatusOK, run: domain.StatusOK}
}

func (e *fakeEngine) AddJob(job Job, result *domain.JobResult) {
	e.jobs = append(e.jobs, job)
	e.results = append(e.results, result)
}

func (e *fakeEngine) SetParallel(n int) { e.parallel = n }

func (e *fakeEngine) Prepare(ctx context.Context) domain.Status {
	e.prepared = true
	return e.prepare
}

func (e *fakeEngine) Run(ctx context.Context, h Handler) domain.Status {
	e.ran = true
	for i, job := range e.jobs {
		h.BeginJob(i+1, len(e.jobs), job.Source, job.Target)
		h.JobProgress(i+1, 10, 10)
		st := domain.StatusOK
		if i < len(e.perJob) {
			st = e.perJob[i]
		}
		e.results[i].Status = st
		h.EndJob(i+1, e.results[i])
	}
	return e.run
}

func newTestCopier(t *testing.T, engine *fakeEngine, cfg *config.Config) *Copier {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	return NewCopier(func() Engine { return engine }, cfg.Options())
}

func TestCopyBulk_AllSucceed(t *testing.T) {
	engine := newFakeEngine()
	c := newTestCopier(t, engine, nil)

	var events []progress.Event
	params := &TransferParams{Events: func(ev progress.Event) { events = append(events, ev) }}

	res, err := c.CopyBulk(context.Background(), params,
		[]string{"root://a//f1", "root://a//f2"},
		[]string{"root://b//f1", "root://b//f2"}, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Code())
	assert.Equal(t, []error{nil, nil}, res.Errors)
	assert.NotEmpty(t, res.BatchID)
	assert.Equal(t, config.DefaultParallelCopies, engine.parallel)
	assert.Len(t, events, 4)

	for _, job := range engine.jobs {
		assert.True(t, job.POSC)
		assert.Equal(t, ThirdPartyOnly, job.ThirdParty)
		assert.False(t, job.VerifiesChecksum())
	}
}

// TestCopyBulk_PartialFailure: the batch-level run failure is ignored when N > 1
func TestCopyBulk_PartialFailure(t *testing.T) {
	engine := newFakeEngine()
	engine.run = domain.Status{ErrNo: domain.XrdServerError, Message: "one or more jobs failed"}
	engine.perJob = []domain.Status{
		domain.StatusOK,
		{ErrNo: domain.XrdNotFound, Message: "No such file or directory"},
		domain.StatusOK,
		{ErrNo: int(syscall.EACCES), Message: "Permission denied"},
	}
	c := newTestCopier(t, engine, nil)

	srcs := []string{"root://a//1", "root://a//2", "root://a//3", "root://a//4"}
	dsts := []string{"root://b//1", "root://b//2", "root://b//3", "root://b//4"}
	res, err := c.CopyBulk(context.Background(), nil, srcs, dsts, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, -2, res.Code())
	assert.Nil(t, res.Errors[0])
	assert.Nil(t, res.Errors[2])
	require.Error(t, res.Errors[1])
	require.Error(t, res.Errors[3])

	assert.ErrorIs(t, res.Errors[1], syscall.ENOENT)
	assert.ErrorIs(t, res.Errors[3], syscall.EACCES)
	assert.Contains(t, res.Errors[1].Error(), "Error on CopyProcess::Run(): [ERROR] No such file or directory")

	assert.False(t, res.Outcomes[1].OK)
	assert.Equal(t, int(syscall.ENOENT), res.Outcomes[1].ErrNo)
	assert.True(t, res.Outcomes[2].OK)
}

// TestCopyBulk_SingletonEquivalence: for one file, a run failure and a job
// failure with the same status are indistinguishable to the caller.
func TestCopyBulk_SingletonEquivalence(t *testing.T) {
	failure := domain.Status{ErrNo: domain.XrdNoSpace, Message: "No space left on device"}

	runFails := newFakeEngine()
	runFails.run = failure
	runFails.perJob = []domain.Status{failure}
	_, batchErr := newTestCopier(t, runFails, nil).CopyBulk(context.Background(), nil,
		[]string{"root://a//f"}, []string{"root://b//f"}, nil)
	require.Error(t, batchErr)

	jobFails := newFakeEngine()
	jobFails.perJob = []domain.Status{failure}
	res, err := newTestCopier(t, jobFails, nil).CopyBulk(context.Background(), nil,
		[]string{"root://a//f"}, []string{"root://b//f"}, nil)
	require.NoError(t, err)
	require.Error(t, res.Errors[0])

	assert.Equal(t, batchErr.Error(), res.Errors[0].Error())
	assert.Equal(t, domain.Errno(batchErr), domain.Errno(res.Errors[0]))
	assert.Equal(t, syscall.ENOSPC, domain.Errno(batchErr))
}

func TestCopyBulk_PrepareFailure(t *testing.T) {
	engine := newFakeEngine()
	engine.prepare = domain.Status{ErrNo: domain.XrdArgInvalid, Message: "invalid url"}
	c := newTestCopier(t, engine, nil)

	res, err := c.CopyBulk(context.Background(), nil,
		[]string{"root://a//1", "root://a//2"}, []string{"root://b//1", "root://b//2"}, nil)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.False(t, engine.ran)
	assert.ErrorIs(t, err, domain.ErrBatchPrepare)
	assert.ErrorIs(t, err, syscall.EINVAL)
	assert.Contains(t, err.Error(), "Error on CopyProcess::Prepare()")
}

// TestCopyBulk_MissingDefaultChecksum aborts before anything is submitted
func TestCopyBulk_MissingDefaultChecksum(t *testing.T) {
	engine := newFakeEngine()
	c := newTestCopier(t, engine, nil)

	_, err := c.CopyBulk(context.Background(), &TransferParams{ChecksumCheck: true},
		[]string{"root://a//1", "root://a//2"}, []string{"root://b//1", "root://b//2"},
		[]string{"md5:abc", ""})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfigKeyNotFound)
	assert.False(t, engine.prepared)
}

func TestCopyBulk_MismatchedInput(t *testing.T) {
	c := newTestCopier(t, newFakeEngine(), nil)

	_, err := c.CopyBulk(context.Background(), nil, []string{"root://a//1"}, nil, nil)
	assert.ErrorIs(t, err, domain.ErrEmptyBatch)

	_, err = c.CopyBulk(context.Background(), nil, nil, nil, nil)
	assert.ErrorIs(t, err, syscall.EINVAL)
}

func TestCopyBulk_ParallelFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Xrootd.ParallelCopies = 3
	engine := newFakeEngine()

	_, err := newTestCopier(t, engine, cfg).CopyBulk(context.Background(), nil,
		[]string{"root://a//1"}, []string{"root://b//1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, engine.parallel)
}

func TestCopy_PrefixesErrors(t *testing.T) {
	engine := newFakeEngine()
	engine.run = domain.Status{ErrNo: domain.XrdNotFound, Message: "source missing"}
	c := newTestCopier(t, engine, nil)

	err := c.Copy(context.Background(), nil, "root://a//f", "root://b//f")
	require.Error(t, err)

	var e *domain.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "Copy][CopyBulk", e.Op)
	assert.Equal(t, domain.ErrorDomain, e.Domain)
	assert.ErrorIs(t, err, syscall.ENOENT)
	assert.ErrorIs(t, err, domain.ErrTransferFailed)
}

func TestCopy_UserDefinedChecksum(t *testing.T) {
	engine := newFakeEngine()
	c := newTestCopier(t, engine, nil)

	err := c.Copy(context.Background(), &TransferParams{
		ChecksumCheck: true,
		ChecksumType:  "MD5",
		ChecksumValue: "AbC123",
	}, "root://a//f", "root://b//f")
	require.NoError(t, err)

	require.Len(t, engine.jobs, 1)
	assert.Equal(t, "md5", engine.jobs[0].ChecksumType)
	assert.Equal(t, "AbC123", engine.jobs[0].ChecksumPreset)
}

func TestCopy_Success(t *testing.T) {
	engine := newFakeEngine()
	err := newTestCopier(t, engine, nil).Copy(context.Background(), nil, "root://a//f", "root://b//f")
	assert.NoError(t, err)
}
