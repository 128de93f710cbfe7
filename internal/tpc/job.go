package tpc

import (
	"fmt"
	"time"

	"github.com/Ning0612/xrdgate/internal/config"
	"github.com/Ning0612/xrdgate/internal/core/checksum"
	"github.com/Ning0612/xrdgate/internal/xrdurl"
)

// ThirdPartyOnly forbids falling back to a pull/push data path
const ThirdPartyOnly = "only"

// Job is the engine's description of one source to target copy
type Job struct {
	Source string
	Target string

	// Force overwrites an existing target
	Force bool

	// POSC removes the target unless it was closed successfully
	POSC bool

	ThirdParty string
	Timeout    time.Duration

	// Checksum fields stay empty when no verification is requested
	ChecksumMode   string
	ChecksumType   string
	ChecksumPreset string
}

// VerifiesChecksum reports whether the engine checks the copy
func (j Job) VerifiesChecksum() bool {
	return j.ChecksumType != ""
}

// Builder turns copy requests into engine jobs
type Builder struct {
	opts config.Options
}

// NewBuilder creates a builder reading defaults from opts
func NewBuilder(opts config.Options) *Builder {
	return &Builder{opts: opts}
}

// Build describes the copy of src to dst. A missing default checksum type
// is a configuration error. Build makes no network call.
func (b *Builder) Build(src, dst string, params *TransferParams, spec checksum.Spec) (Job, error) {
	source, err := xrdurl.WithSpaceToken(src, params.SourceSpaceToken)
	if err != nil {
		return Job{}, fmt.Errorf("source: %w", err)
	}
	target, err := xrdurl.WithSpaceToken(dst, params.DestSpaceToken)
	if err != nil {
		return Job{}, fmt.Errorf("destination: %w", err)
	}

	job := Job{
		Source:     source,
		Target:     target,
		Force:      params.ReplaceExisting,
		POSC:       true,
		ThirdParty: ThirdPartyOnly,
		Timeout:    params.Timeout,
	}

	if !params.ChecksumCheck {
		return job, nil
	}

	typ := spec.Type
	if typ == "" {
		typ, err = b.opts.String(config.Group, config.KeyChecksumType)
		if err != nil {
			return Job{}, err
		}
	}
	job.ChecksumMode = b.opts.StringDefault(config.Group, config.KeyChecksumMode, config.DefaultChecksumMode)
	job.ChecksumType = checksum.NormalizeType(typ)
	job.ChecksumPreset = spec.Value

	return job, nil
}
