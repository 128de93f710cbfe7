// Package xrdcp is the native third-party copy engine. Each job runs one
// xrdcp process; progress is sampled from the destination's size.
package xrdcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Ning0612/xrdgate/internal/domain"
	"github.com/Ning0612/xrdgate/internal/logger"
	"github.com/Ning0612/xrdgate/internal/tpc"
	"github.com/Ning0612/xrdgate/internal/xrdurl"
)

// Engine protocol generations
const (
	ProtocolV4     = "v4"
	ProtocolLegacy = "legacy"
)

// Stater reports the size of a remote file. Used for progress and totals.
type Stater interface {
	Stat(ctx context.Context, url string) (domain.FileInfo, error)
}

// Options configures the engine
type Options struct {
	// Binary is the xrdcp executable
	Binary string

	// Protocol is ProtocolV4 or ProtocolLegacy
	Protocol string

	// Verbosity is passed as --debug when positive
	Verbosity int

	// LogLevel is exported as XRD_LOGLEVEL when set
	LogLevel string

	// PollInterval is the progress and cancellation sampling period
	PollInterval time.Duration

	// Stater samples sizes; nil disables progress reporting
	Stater Stater

	// BaseArgs are passed before the job's own arguments
	BaseArgs []string

	// Env is appended to the process environment
	Env []string
}

var (
	// "[3011] No such file or directory" as printed in xrdcp's error line
	errCodeRe = regexp.MustCompile(`\[(\d{4})\]\s*([^\r\n]*)`)
	// redirection reported with --debug
	redirectRe = regexp.MustCompile(`(?i)redirect(?:ed)?\s+to:?\s+(root://\S+)`)
)

type entry struct {
	job    tpc.Job
	result *domain.JobResult
	args   []string
	env    []string
}

// engine holds what both protocol generations share
type engine struct {
	opts     Options
	entries  []*entry
	prepared bool
	log      logger.Logger
}

// v4Engine runs jobs in parallel and reports progress with a job index
type v4Engine struct {
	engine
	parallel int
}

// legacyEngine runs jobs one after another. Its native progress hook has no
// job index; it is adapted to the Handler internally.
type legacyEngine struct {
	engine
}

// New returns an engine of the configured protocol
func New(opts Options) tpc.Engine {
	if opts.Binary == "" {
		opts.Binary = "xrdcp"
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	base := engine{opts: opts, log: logger.With("engine", "xrdcp", "protocol", opts.Protocol)}
	if strings.EqualFold(opts.Protocol, ProtocolLegacy) {
		return &legacyEngine{engine: base}
	}
	return &v4Engine{engine: base, parallel: 1}
}

// Factory returns a tpc.EngineFactory creating engines with opts
func Factory(opts Options) tpc.EngineFactory {
	return func() tpc.Engine {
		return New(opts)
	}
}

func (e *engine) AddJob(job tpc.Job, result *domain.JobResult) {
	e.entries = append(e.entries, &entry{job: job, result: result})
}

// SetParallel sets the number of concurrent jobs
func (e *v4Engine) SetParallel(n int) {
	if n < 1 {
		n = 1
	}
	e.parallel = n
}

func (e *v4Engine) Prepare(ctx context.Context) domain.Status {
	return e.prepare(e.v4Args)
}

func (e *legacyEngine) Prepare(ctx context.Context) domain.Status {
	return e.prepare(e.legacyArgs)
}

// prepare validates every job and renders its command line
func (e *engine) prepare(render func(tpc.Job) ([]string, []string)) domain.Status {
	if len(e.entries) == 0 {
		return domain.Status{ErrNo: domain.XrdArgMissing, Message: "no jobs to run"}
	}
	if _, err := exec.LookPath(e.opts.Binary); err != nil {
		return domain.Status{ErrNo: int(syscall.ENOENT), Message: fmt.Sprintf("copy engine unavailable: %v", err)}
	}
	for i, en := range e.entries {
		if !xrdurl.IsXrootd(en.job.Source) || !xrdurl.IsXrootd(en.job.Target) {
			return domain.Status{
				ErrNo:   domain.XrdArgInvalid,
				Message: fmt.Sprintf("job %d: third-party copy needs root:// on both ends", i+1),
			}
		}
		en.args, en.env = render(en.job)
	}
	e.prepared = true
	return domain.StatusOK
}

func (e *engine) commonArgs(job tpc.Job) []string {
	args := append([]string{}, e.opts.BaseArgs...)
	args = append(args, "--nopbar", "--tpc", job.ThirdParty)
	if job.POSC {
		args = append(args, "--posc")
	}
	if job.Force {
		args = append(args, "--force")
	}
	if e.opts.Verbosity > 0 {
		args = append(args, "--debug", strconv.Itoa(e.opts.Verbosity))
	}
	return args
}

func (e *engine) commonEnv() []string {
	env := append([]string{}, e.opts.Env...)
	if e.opts.LogLevel != "" {
		env = append(env, "XRD_LOGLEVEL="+e.opts.LogLevel)
	}
	return env
}

func (e *v4Engine) v4Args(job tpc.Job) ([]string, []string) {
	args := e.commonArgs(job)
	if job.VerifiesChecksum() {
		args = append(args, "--cksum", cksumArg(job.ChecksumType, job.ChecksumPreset, job.ChecksumMode))
	}
	args = append(args, job.Source, job.Target)

	env := e.commonEnv()
	if job.Timeout > 0 {
		env = append(env, fmt.Sprintf("XRD_CPTPCTIMEOUT=%d", int(job.Timeout.Seconds())))
	}
	return args, env
}

// legacyArgs has no checksum mode and no third-party timeout
func (e *legacyEngine) legacyArgs(job tpc.Job) ([]string, []string) {
	args := e.commonArgs(job)
	if job.VerifiesChecksum() {
		args = append(args, "--cksum", cksumArg(job.ChecksumType, job.ChecksumPreset, ""))
	}
	args = append(args, job.Source, job.Target)
	return args, e.commonEnv()
}

// cksumArg renders --cksum: a preset value wins, otherwise the mode
// decides where the reference checksum comes from
func cksumArg(typ, preset, mode string) string {
	switch {
	case preset != "":
		return typ + ":" + preset
	case mode == "target":
		return typ + ":print"
	default:
		return typ + ":source"
	}
}

func (e *v4Engine) Run(ctx context.Context, h tpc.Handler) domain.Status {
	if !e.prepared {
		return domain.Status{ErrNo: domain.XrdInvalidRequest, Message: "batch not prepared"}
	}
	runCtx, stop := e.watchCancel(ctx, h)
	defer stop()

	total := len(e.entries)
	g := new(errgroup.Group)
	g.SetLimit(e.parallel)
	for i, en := range e.entries {
		jobNum := i + 1
		g.Go(func() error {
			e.runJob(runCtx, jobNum, total, en, h, func(processed, size uint64) {
				h.JobProgress(jobNum, processed, size)
			})
			return nil
		})
	}
	_ = g.Wait()

	return e.batchStatus(runCtx)
}

func (e *legacyEngine) Run(ctx context.Context, h tpc.Handler) domain.Status {
	if !e.prepared {
		return domain.Status{ErrNo: domain.XrdInvalidRequest, Message: "batch not prepared"}
	}
	runCtx, stop := e.watchCancel(ctx, h)
	defer stop()

	total := len(e.entries)
	for i, en := range e.entries {
		bridge := &legacyProgress{h: h, jobNum: i + 1}
		e.runJob(runCtx, i+1, total, en, h, bridge.JobProgress)
	}
	return e.batchStatus(runCtx)
}

// legacyProgress carries the job index the legacy hook does not pass
type legacyProgress struct {
	h      tpc.Handler
	jobNum int
}

func (p *legacyProgress) JobProgress(processed, total uint64) {
	p.h.JobProgress(p.jobNum, processed, total)
}

// watchCancel polls h.ShouldCancel and cancels the returned context once
// the host asks for it
func (e *engine) watchCancel(ctx context.Context, h tpc.Handler) (context.Context, func()) {
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(e.opts.PollInterval)
		defer ticker.Stop()
		for {
			if h.ShouldCancel() {
				e.log.Info("cancellation requested")
				cancel()
				return
			}
			select {
			case <-done:
				return
			case <-runCtx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return runCtx, func() {
		close(done)
		cancel()
	}
}

// batchStatus is the first failed job's status, or a cancellation
func (e *engine) batchStatus(runCtx context.Context) domain.Status {
	if runCtx.Err() != nil {
		return domain.Status{ErrNo: int(syscall.ECANCELED), Message: "operation canceled"}
	}
	for _, en := range e.entries {
		if !en.result.Status.OK {
			return en.result.Status
		}
	}
	return domain.StatusOK
}

// runJob executes one job and fills its result
func (e *engine) runJob(ctx context.Context, jobNum, jobTotal int, en *entry, h tpc.Handler, progress func(processed, total uint64)) {
	if ctx.Err() != nil {
		en.result.Status = domain.Status{ErrNo: int(syscall.ECANCELED), Message: "operation canceled"}
		return
	}

	h.BeginJob(jobNum, jobTotal, en.job.Source, en.job.Target)

	var size uint64
	if e.opts.Stater != nil {
		if fi, err := e.opts.Stater.Stat(ctx, en.job.Source); err == nil {
			size = uint64(fi.Size)
		}
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.opts.Binary, en.args...)
	cmd.Env = append(os.Environ(), en.env...)
	cmd.Stderr = &stderr

	e.log.Debug("starting copy", "job", jobNum, "source", en.job.Source, "target", en.job.Target)
	err := cmd.Start()
	if err == nil {
		stopPoll := e.pollProgress(ctx, en.job.Target, size, progress)
		err = cmd.Wait()
		stopPoll()
	}

	switch {
	case err == nil:
		if size > 0 {
			progress(size, size)
		}
		en.result.Status = domain.StatusOK
	case ctx.Err() != nil:
		en.result.Status = domain.Status{ErrNo: int(syscall.ECANCELED), Message: "operation canceled"}
	default:
		en.result.Status = statusFromOutput(err, stderr.String())
	}
	if m := redirectRe.FindStringSubmatch(stderr.String()); m != nil {
		en.result.RealTarget = m[1]
	}

	if !en.result.Status.OK {
		e.log.Error("copy job failed", "job", jobNum, "source", en.job.Source,
			"errno", en.result.Status.ErrNo, "error", en.result.Status.Message)
	}
	h.EndJob(jobNum, en.result)
}

// pollProgress samples the target size until the returned func is called
func (e *engine) pollProgress(ctx context.Context, target string, size uint64, progress func(processed, total uint64)) func() {
	if e.opts.Stater == nil {
		return func() {}
	}
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(e.opts.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				fi, err := e.opts.Stater.Stat(ctx, target)
				if err != nil {
					continue
				}
				progress(uint64(fi.Size), size)
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}

// statusFromOutput takes the last "[code] message" xrdcp printed, falling
// back to the last stderr line
func statusFromOutput(err error, stderr string) domain.Status {
	if m := errCodeRe.FindAllStringSubmatch(stderr, -1); len(m) > 0 {
		last := m[len(m)-1]
		code, _ := strconv.Atoi(last[1])
		return domain.Status{ErrNo: code, Message: strings.TrimSpace(last[2])}
	}

	msg := lastLine(stderr)
	if msg == "" {
		msg = err.Error()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return domain.Status{Message: msg}
	}
	return domain.Status{ErrNo: int(syscall.ENOEXEC), Message: msg}
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
