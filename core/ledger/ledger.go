// Package ledger decides, per build target, whether work is needed and
// keeps the run-scoped counters. A Ledger lives for exactly one pass; the
// count pass and the execute pass each get their own.
package ledger

import (
	"sync"
	"sync/atomic"

	"traylib/core/determinism"
	"traylib/core/target"
	"traylib/internal/errors"
)

// State is where a target stands in a pass.
type State string

const (
	NotSeen        State = "NOT_SEEN"
	Duplicate      State = "DUPLICATE"
	AlreadyCurrent State = "ALREADY_CURRENT"
	NeedsRender    State = "NEEDS_RENDER"
	Rendered       State = "RENDERED"
	RenderFailed   State = "RENDER_FAILED"
	NeedsSlice     State = "NEEDS_SLICE"
	SliceSkipped   State = "SLICE_SKIPPED"
	Sliced         State = "SLICED"
	SliceFailed    State = "SLICE_FAILED"
)

// Policy holds the run flags that affect staleness.
type Policy struct {
	Regen   bool
	Reslice bool
	Slice   bool
}

// Artifacts answers whether an output file is already on disk.
type Artifacts interface {
	Exists(path string) bool
}

// Decision is the ledger's verdict for one target.
type Decision struct {
	State  State
	Render bool
	// Slice is true when the target will be sliced: either forced by a
	// render in this pass, or because the g-code is stale.
	Slice bool
}

// Counts is a snapshot of the ledger counters.
type Counts struct {
	Declared     int64 `json:"declared"`
	ToGenerate   int64 `json:"to_generate"`
	ToSlice      int64 `json:"to_slice"`
	Generated    int64 `json:"generated"`
	Sliced       int64 `json:"sliced"`
	RenderFailed int64 `json:"render_failed"`
	SliceFailed  int64 `json:"slice_failed"`
	Duplicates   int64 `json:"duplicates"`
}

// Existing is the number of declared targets whose model was already present.
func (c Counts) Existing() int64 {
	return c.Declared - c.ToGenerate
}

// Idle reports whether nothing needs rendering or slicing.
func (c Counts) Idle() bool {
	return c.ToGenerate == 0 && c.ToSlice == 0
}

// Ledger tracks issued commands and counters for one pass. Safe for
// concurrent use.
type Ledger struct {
	policy    Policy
	artifacts Artifacts

	mu     sync.Mutex
	issued map[determinism.StableID]struct{}
	paths  map[string]determinism.StableID

	declared     atomic.Int64
	toGenerate   atomic.Int64
	toSlice      atomic.Int64
	generated    atomic.Int64
	sliced       atomic.Int64
	renderFailed atomic.Int64
	sliceFailed  atomic.Int64
	duplicates   atomic.Int64
}

// New creates an empty ledger.
func New(policy Policy, artifacts Artifacts) *Ledger {
	return &Ledger{
		policy:    policy,
		artifacts: artifacts,
		issued:    make(map[determinism.StableID]struct{}),
		paths:     make(map[string]determinism.StableID),
	}
}

// Plan registers t and decides what to do with it. A command that was
// already issued in this pass yields a Duplicate decision and changes no
// counters. A model path already claimed by a different command is a
// configuration error.
func (l *Ledger) Plan(t target.BuildTarget) (Decision, error) {
	key := t.Command.Key()

	l.mu.Lock()
	if _, ok := l.issued[key]; ok {
		l.mu.Unlock()
		l.duplicates.Add(1)
		return Decision{State: Duplicate}, nil
	}
	if owner, ok := l.paths[t.ModelPath]; ok && owner != key {
		l.mu.Unlock()
		return Decision{}, errors.Configf("two different targets resolve to %s", t.ModelPath).
			WithContext("descriptor", t.Descriptor.String())
	}
	l.issued[key] = struct{}{}
	l.paths[t.ModelPath] = key
	l.mu.Unlock()

	l.declared.Add(1)

	if l.policy.Regen || !l.artifacts.Exists(t.ModelPath) {
		l.toGenerate.Add(1)
		d := Decision{State: NeedsRender, Render: true, Slice: l.policy.Slice}
		if d.Slice {
			l.toSlice.Add(1)
		}
		return d, nil
	}

	if l.sliceStale(t) {
		l.toSlice.Add(1)
		return Decision{State: NeedsSlice, Slice: true}, nil
	}
	return Decision{State: AlreadyCurrent}, nil
}

func (l *Ledger) sliceStale(t target.BuildTarget) bool {
	return l.policy.Slice &&
		l.artifacts.Exists(t.ModelPath) &&
		(l.policy.Reslice || !l.artifacts.Exists(t.GcodePath))
}

// RecordRender books the outcome of a render.
func (l *Ledger) RecordRender(err error) State {
	if err != nil {
		l.renderFailed.Add(1)
		return RenderFailed
	}
	l.generated.Add(1)
	return Rendered
}

// RecordSlice books the outcome of a slice.
func (l *Ledger) RecordSlice(err error) State {
	if err != nil {
		l.sliceFailed.Add(1)
		return SliceFailed
	}
	l.sliced.Add(1)
	return Sliced
}

// Generated returns the running number of successful renders.
func (l *Ledger) Generated() int64 {
	return l.generated.Load()
}

// Counts returns a snapshot of all counters.
func (l *Ledger) Counts() Counts {
	return Counts{
		Declared:     l.declared.Load(),
		ToGenerate:   l.toGenerate.Load(),
		ToSlice:      l.toSlice.Load(),
		Generated:    l.generated.Load(),
		Sliced:       l.sliced.Load(),
		RenderFailed: l.renderFailed.Load(),
		SliceFailed:  l.sliceFailed.Load(),
		Duplicates:   l.duplicates.Load(),
	}
}
