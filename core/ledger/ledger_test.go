package ledger

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traylib/core/target"
	terrors "traylib/internal/errors"
)

type fakeDisk map[string]bool

func (f fakeDisk) Exists(path string) bool { return f[path] }

func tgt(name string) target.BuildTarget {
	return target.BuildTarget{
		ModelPath: name + ".3mf",
		GcodePath: name + ".gcode",
		Command:   target.Command{"openscad", "-o", name + ".3mf", "tray.scad"},
	}
}

func TestPlanStaleness(t *testing.T) {
	tests := []struct {
		name      string
		policy    Policy
		disk      fakeDisk
		wantState State
		render    bool
		slice     bool
	}{
		{
			name:      "missing model renders",
			disk:      fakeDisk{},
			wantState: NeedsRender, render: true,
		},
		{
			name:      "missing model renders and force slices",
			policy:    Policy{Slice: true},
			disk:      fakeDisk{},
			wantState: NeedsRender, render: true, slice: true,
		},
		{
			name:      "present model is current",
			disk:      fakeDisk{"a.3mf": true},
			wantState: AlreadyCurrent,
		},
		{
			name:      "regen forces render over present model",
			policy:    Policy{Regen: true},
			disk:      fakeDisk{"a.3mf": true},
			wantState: NeedsRender, render: true,
		},
		{
			name:      "present model without gcode slices",
			policy:    Policy{Slice: true},
			disk:      fakeDisk{"a.3mf": true},
			wantState: NeedsSlice, slice: true,
		},
		{
			name:      "present model and gcode is current",
			policy:    Policy{Slice: true},
			disk:      fakeDisk{"a.3mf": true, "a.gcode": true},
			wantState: AlreadyCurrent,
		},
		{
			name:      "reslice forces slice",
			policy:    Policy{Slice: true, Reslice: true},
			disk:      fakeDisk{"a.3mf": true, "a.gcode": true},
			wantState: NeedsSlice, slice: true,
		},
		{
			name:      "reslice without slicing does nothing",
			policy:    Policy{Reslice: true},
			disk:      fakeDisk{"a.3mf": true},
			wantState: AlreadyCurrent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(tt.policy, tt.disk)
			d, err := l.Plan(tgt("a"))
			require.NoError(t, err)

			assert.Equal(t, tt.wantState, d.State)
			assert.Equal(t, tt.render, d.Render)
			assert.Equal(t, tt.slice, d.Slice)

			c := l.Counts()
			assert.Equal(t, int64(1), c.Declared)
			assert.Equal(t, b2i(tt.render), c.ToGenerate)
			assert.Equal(t, b2i(tt.slice), c.ToSlice)
		})
	}
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func TestPlanDeduplicatesCommands(t *testing.T) {
	l := New(Policy{Slice: true}, fakeDisk{})

	first, err := l.Plan(tgt("a"))
	require.NoError(t, err)
	second, err := l.Plan(tgt("a"))
	require.NoError(t, err)

	assert.True(t, first.Render)
	assert.Equal(t, Duplicate, second.State)
	assert.False(t, second.Render)
	assert.False(t, second.Slice)

	c := l.Counts()
	assert.Equal(t, int64(1), c.Declared)
	assert.Equal(t, int64(1), c.ToGenerate)
	assert.Equal(t, int64(1), c.ToSlice)
	assert.Equal(t, int64(1), c.Duplicates)
}

func TestPlanRejectsPathCollision(t *testing.T) {
	l := New(Policy{}, fakeDisk{})
	a := tgt("a")
	b := tgt("a")
	b.Command = append(target.Command{}, a.Command...)
	b.Command[0] = "other-openscad"

	_, err := l.Plan(a)
	require.NoError(t, err)
	_, err = l.Plan(b)
	require.Error(t, err)
	assert.True(t, terrors.IsType(err, terrors.TypeConfig))
}

func TestRecordOutcomes(t *testing.T) {
	l := New(Policy{}, fakeDisk{})

	assert.Equal(t, Rendered, l.RecordRender(nil))
	assert.Equal(t, RenderFailed, l.RecordRender(errors.New("exit 1")))
	assert.Equal(t, Sliced, l.RecordSlice(nil))
	assert.Equal(t, SliceFailed, l.RecordSlice(errors.New("exit 1")))

	c := l.Counts()
	assert.Equal(t, int64(1), c.Generated)
	assert.Equal(t, int64(1), c.RenderFailed)
	assert.Equal(t, int64(1), c.Sliced)
	assert.Equal(t, int64(1), c.SliceFailed)
	assert.Equal(t, int64(1), l.Generated())
}

func TestPlanIsAtomicUnderConcurrency(t *testing.T) {
	l := New(Policy{}, fakeDisk{})

	var wg sync.WaitGroup
	renders := make(chan bool, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := l.Plan(tgt("same"))
			if err == nil && d.Render {
				renders <- true
			}
		}()
	}
	wg.Wait()
	close(renders)

	assert.Len(t, renders, 1)
	assert.Equal(t, int64(1), l.Counts().Declared)
	assert.Equal(t, int64(63), l.Counts().Duplicates)
}

func TestCountsExisting(t *testing.T) {
	c := Counts{Declared: 10, ToGenerate: 3}
	assert.Equal(t, int64(7), c.Existing())
	assert.False(t, c.Idle())
	assert.True(t, Counts{Declared: 4}.Idle())
}
