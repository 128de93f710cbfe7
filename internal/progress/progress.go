// Package progress bridges the copy engine's job callbacks to the host:
// rate snapshots for the monitor, lifecycle events and cancellation polling.
package progress

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Ning0612/xrdgate/internal/domain"
)

// Snapshot is the progress of one job at one callback
type Snapshot struct {
	JobNum           int
	BytesTransferred uint64
	BytesTotal       uint64
	Elapsed          time.Duration

	// AverageRate is bytes per second since the job began
	AverageRate float64

	// InstantRate is bytes per second since the previous callback of the job
	InstantRate float64
}

// MonitorFunc receives live progress for a transfer
type MonitorFunc func(s Snapshot, src, dst string)

// EventStage marks the lifecycle point of an Event
type EventStage int

const (
	EventEnter EventStage = iota
	EventExit
)

func (s EventStage) String() string {
	switch s {
	case EventEnter:
		return "TRANSFER:ENTER"
	case EventExit:
		return "TRANSFER:EXIT"
	}
	return "UNKNOWN"
}

// Event is a lifecycle notification, independent of the progress stream
type Event struct {
	Domain  string
	Stage   EventStage
	JobNum  int
	Message string
}

// EventSink receives lifecycle events
type EventSink func(Event)

// job holds the state of one running job. Parallel jobs never share one.
type job struct {
	src, dst  string
	start     time.Time
	lastAt    time.Time
	lastBytes uint64
	sampled   bool
	snap      Snapshot
}

// Feedback implements the engine's job callbacks for one batch
type Feedback struct {
	ctx     context.Context
	monitor MonitorFunc
	events  EventSink
	now     func() time.Time

	mu   sync.Mutex
	jobs map[int]*job
}

// Option configures a Feedback
type Option func(*Feedback)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(f *Feedback) {
		f.now = now
	}
}

// NewFeedback creates the callback sink for one batch run. ctx is the host's
// cancellation flag; monitor and events may be nil.
func NewFeedback(ctx context.Context, monitor MonitorFunc, events EventSink, opts ...Option) *Feedback {
	f := &Feedback{
		ctx:     ctx,
		monitor: monitor,
		events:  events,
		now:     time.Now,
		jobs:    make(map[int]*job),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// BeginJob records the start of a job and emits the enter event
func (f *Feedback) BeginJob(jobNum, jobTotal int, src, dst string) {
	f.mu.Lock()
	f.jobs[jobNum] = &job{
		src:   src,
		dst:   dst,
		start: f.now(),
		snap:  Snapshot{JobNum: jobNum},
	}
	f.mu.Unlock()

	f.emit(Event{
		Domain:  domain.ErrorDomain,
		Stage:   EventEnter,
		JobNum:  jobNum,
		Message: fmt.Sprintf("%s => %s", src, dst),
	})
}

// JobProgress updates the job's snapshot and hands it to the monitor.
// Bursts are delivered as they come.
func (f *Feedback) JobProgress(jobNum int, processed, total uint64) {
	if f.monitor == nil {
		return
	}

	f.mu.Lock()
	j, ok := f.jobs[jobNum]
	if !ok {
		f.mu.Unlock()
		return
	}

	now := f.now()
	elapsed := now.Sub(j.start)
	j.snap.Elapsed = elapsed
	j.snap.BytesTransferred = processed
	j.snap.BytesTotal = total

	// zero elapsed keeps the previous rate
	if elapsed > 0 {
		j.snap.AverageRate = float64(processed) / elapsed.Seconds()
	}

	if !j.sampled {
		j.snap.InstantRate = j.snap.AverageRate
	} else if dt := now.Sub(j.lastAt); dt > 0 {
		var delta uint64
		if processed > j.lastBytes {
			delta = processed - j.lastBytes
		}
		j.snap.InstantRate = float64(delta) / dt.Seconds()
	}
	j.sampled = true
	j.lastAt = now
	j.lastBytes = processed

	snap, src, dst := j.snap, j.src, j.dst
	monitor := f.monitor
	f.mu.Unlock()

	// Call monitor outside lock to prevent deadlock
	monitor(snap, src, dst)
}

// EndJob emits the exit event with the job's final status
func (f *Feedback) EndJob(jobNum int, result *domain.JobResult) {
	f.mu.Lock()
	delete(f.jobs, jobNum)
	f.mu.Unlock()

	status := domain.Status{Message: "no result"}
	var realTarget string
	if result != nil {
		status, realTarget = result.Status, result.RealTarget
	}

	msg := "Job finished, " + status.String()
	if realTarget != "" {
		msg += ", Real target: " + realTarget
	}
	f.emit(Event{
		Domain:  domain.ErrorDomain,
		Stage:   EventExit,
		JobNum:  jobNum,
		Message: msg,
	})
}

// ShouldCancel reports whether the host cancelled the batch
func (f *Feedback) ShouldCancel() bool {
	return f.ctx != nil && f.ctx.Err() != nil
}

// Snapshot returns the latest snapshot of a running job
func (f *Feedback) Snapshot(jobNum int) (Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[jobNum]
	if !ok {
		return Snapshot{}, false
	}
	return j.snap, true
}

func (f *Feedback) emit(ev Event) {
	if f.events != nil {
		f.events(ev)
	}
}
