// Package engine - Build orchestrator
// ENFORCES the two-pass execution flow:
// 1. Plan (enumerate dimensions and variants, resolve targets once)
// 2. Count (fresh ledger, read-only existence checks)
// 3. Confirm (unless dry run or doit)
// 4. Execute (fresh ledger, renders and slices through the worker pool)
package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"traylib/adapters/artifacts"
	"traylib/adapters/tables"
	"traylib/adapters/toolrunner"
	"traylib/core/dimension"
	"traylib/core/executor"
	"traylib/core/ledger"
	"traylib/core/target"
	"traylib/core/ui"
	"traylib/core/variant"
	"traylib/internal/config"
	"traylib/internal/errors"
	"traylib/internal/logging"
)

// ErrDeclined is returned when the user answers no at the confirmation
// prompt. It ends the run cleanly.
var ErrDeclined = stderrors.New("run declined at confirmation prompt")

const emptyGuidance = `This probably wasn't what you were expecting!
You probably need to specify dimensions of the tray(s) you want to create using
--dimensions/--heights, or --lengths, --widths, and --heights.
For instance, try "--dimensions 2x4x1"
Use "-h" to get more help.`

// Phase represents execution phases
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhasePlanned             // targets resolved
	PhaseCounted             // count pass done
	PhaseExecuted            // execute pass done
)

// String returns the phase name
func (p Phase) String() string {
	names := []string{"uninitialized", "planned", "counted", "executed"}
	if int(p) < len(names) {
		return names[p]
	}
	return "unknown"
}

// PhaseOrderError indicates phases executed out of order
type PhaseOrderError struct {
	Required Phase
	Current  Phase
}

func (e *PhaseOrderError) Error() string {
	return fmt.Sprintf("phase %s required, but current phase is %s", e.Required, e.Current)
}

// Confirmer asks the user whether to go ahead.
type Confirmer interface {
	Confirm(question string) (bool, error)
}

// Deps are the collaborators of an orchestrator.
type Deps struct {
	Store     artifacts.Store
	Runner    toolrunner.Runner
	UI        *ui.Writer
	Confirmer Confirmer
}

// Outcome describes how a run ended
type Outcome string

const (
	OutcomeCountOnly Outcome = "count_only"
	OutcomeUpToDate  Outcome = "up_to_date"
	OutcomeDeclined  Outcome = "declined"
	OutcomeCompleted Outcome = "completed"
)

// Failure is one failed render or slice
type Failure struct {
	Model string
	Stage string
	Err   error
}

// Summary is the result of a run
type Summary struct {
	RunID   string
	Outcome Outcome
	// Count holds the count pass counters, Result the execute pass ones.
	Count    ledger.Counts
	Result   ledger.Counts
	Models   []string
	Slices   []string
	Failures []Failure
	Warnings []error
	Duration time.Duration
}

// PlanEntry is a resolved target with the decision the count pass made.
type PlanEntry struct {
	Target   target.BuildTarget
	Decision ledger.Decision
}

// Orchestrator runs one tray library build
type Orchestrator struct {
	settings *config.Settings
	deps     Deps
	runID    string
	log      *zap.Logger

	phase    Phase
	targets  []target.BuildTarget
	warnings []error
	counts   ledger.Counts
}

// New creates an orchestrator for one run
func New(settings *config.Settings, deps Deps) *Orchestrator {
	if deps.Store == nil {
		deps.Store = artifacts.NewFileStore()
	}
	if deps.UI == nil {
		deps.UI = ui.NewWriter(nil, false)
	}
	runID := uuid.NewString()
	return &Orchestrator{
		settings: settings,
		deps:     deps,
		runID:    runID,
		log:      logging.ForRun(runID),
	}
}

// RunID returns the identifier tagged on every log line of this run
func (o *Orchestrator) RunID() string {
	return o.runID
}

// Warnings returns the non-fatal problems collected while planning
func (o *Orchestrator) Warnings() []error {
	return o.warnings
}

// PhaseGuard ensures a phase has been completed
func (o *Orchestrator) PhaseGuard(required Phase) error {
	if o.phase < required {
		return &PhaseOrderError{Required: required, Current: o.phase}
	}
	return nil
}

func (o *Orchestrator) policy() ledger.Policy {
	return ledger.Policy{
		Regen:   o.settings.Regen,
		Reslice: o.settings.Reslice,
		Slice:   o.settings.Slice,
	}
}

// Plan enumerates and resolves every target once. The returned list is
// iterated by both passes.
func (o *Orchestrator) Plan() ([]target.BuildTarget, error) {
	if o.phase >= PhasePlanned {
		return o.targets, nil
	}
	s := o.settings
	o.warnings = append(o.warnings, s.Warnings...)

	opts := variant.Options{
		SquareCups:       s.SquareCups,
		CupSizes:         s.CupSizes,
		Divisions:        s.Divisions,
		LengthDivMinimum: s.LengthDivMinimum,
		WidthDivMinimum:  s.WidthDivMinimum,
		LengthSkipDivs:   s.LengthSkipDivs,
		WidthSkipDivs:    s.WidthSkipDivs,
		Lids:             s.Lids,
		LidStyles:        s.LidStyles,
		LayoutNames:      s.LayoutNames,
		LayoutSource:     s.LayoutsFile,
		PresetNames:      s.PresetNames,
		PresetSource:     s.PresetsFile,
	}

	if s.PresetsFile != "" {
		presets, err := tables.LoadPresets(s.PresetsFile)
		if err != nil {
			return nil, err
		}
		opts.Presets = presets.Names
	} else if len(s.PresetNames) > 0 {
		opts.PresetNames = nil
		o.warnings = append(o.warnings, errors.New(errors.TypeResolution,
			"presets were named, but no preset file was specified"))
	}

	if s.LayoutsFile != "" {
		layouts, err := tables.LoadLayouts(s.LayoutsFile)
		if err != nil {
			return nil, err
		}
		opts.Layouts = layouts
	} else if len(s.LayoutNames) > 0 {
		opts.LayoutNames = nil
		o.warnings = append(o.warnings, errors.New(errors.TypeResolution,
			"custom layouts were named, but no custom layout file was specified"))
	}

	set, err := dimension.Enumerate(s.Dimensions)
	if err != nil {
		return nil, err
	}

	enum := variant.NewEnumerator(opts)
	resolver := target.NewResolver(s.TargetConfig())
	descriptors := enum.All(set)
	o.warnings = append(o.warnings, enum.Warnings()...)

	o.targets = make([]target.BuildTarget, 0, len(descriptors))
	for _, d := range descriptors {
		o.targets = append(o.targets, resolver.Resolve(d))
	}
	o.phase = PhasePlanned

	o.log.Info("plan complete",
		zap.Int("dimensions", set.Len()),
		zap.Int("targets", len(o.targets)),
		zap.Int("warnings", len(o.warnings)),
	)
	return o.targets, nil
}

// Count runs the count pass: a fresh ledger, existence checks only.
func (o *Orchestrator) Count() (ledger.Counts, error) {
	if _, err := o.Inspect(); err != nil {
		return ledger.Counts{}, err
	}
	return o.counts, nil
}

// Inspect runs the count pass and returns every target with its decision.
func (o *Orchestrator) Inspect() ([]PlanEntry, error) {
	if err := o.PhaseGuard(PhasePlanned); err != nil {
		return nil, err
	}

	l := ledger.New(o.policy(), o.deps.Store)
	entries := make([]PlanEntry, 0, len(o.targets))
	for _, t := range o.targets {
		d, err := l.Plan(t)
		if err != nil {
			return nil, err
		}
		entries = append(entries, PlanEntry{Target: t, Decision: d})
	}

	o.counts = l.Counts()
	if o.phase < PhaseCounted {
		o.phase = PhaseCounted
	}
	o.log.Debug("count pass complete",
		zap.Int64("declared", o.counts.Declared),
		zap.Int64("to_generate", o.counts.ToGenerate),
		zap.Int64("to_slice", o.counts.ToSlice),
	)
	return entries, nil
}

// Counts returns the counters of the latest count pass.
func (o *Orchestrator) Counts() ledger.Counts {
	return o.counts
}

// execution is the mutable state of one execute pass
type execution struct {
	mu       sync.Mutex
	models   []string
	slices   []string
	failures []Failure
	started  atomic.Int64
}

func (x *execution) model(path string) {
	x.mu.Lock()
	x.models = append(x.models, path)
	x.mu.Unlock()
}

func (x *execution) slice(path string) {
	x.mu.Lock()
	x.slices = append(x.slices, path)
	x.mu.Unlock()
}

func (x *execution) fail(model, stage string, err error) {
	x.mu.Lock()
	x.failures = append(x.failures, Failure{Model: model, Stage: stage, Err: err})
	x.mu.Unlock()
}

// Execute runs the execute pass over the planned targets with a fresh
// ledger. In a dry run it only reports what would happen.
func (o *Orchestrator) Execute(ctx context.Context, summary *Summary) error {
	if err := o.PhaseGuard(PhaseCounted); err != nil {
		return err
	}

	l := ledger.New(o.policy(), o.deps.Store)
	x := &execution{}
	total := o.counts.ToGenerate
	var jobs []executor.Job

	for _, t := range o.targets {
		d, err := l.Plan(t)
		if err != nil {
			return err
		}
		if !d.Render && !d.Slice {
			continue
		}
		if o.settings.DryRun {
			o.report(x, t, d, total)
			if d.Render {
				x.model(t.ModelPath)
			}
			if d.Slice {
				x.slice(t.GcodePath)
			}
			continue
		}
		jobs = append(jobs, o.job(l, x, t, d, total))
	}

	pool := executor.NewPool(o.settings.Jobs)
	var bar *ui.ProgressBar
	if pool.Workers() > 1 && len(jobs) > 0 {
		bar = o.deps.UI.NewProgressBar(len(jobs), "Building")
		pool.OnProgress(func(p executor.Progress) {
			bar.Update(int(p.Completed + p.Failed))
		})
	}
	err := pool.Run(ctx, jobs)
	if bar != nil {
		bar.Done()
	}

	stats := pool.Stats()
	for _, f := range pool.Failures() {
		o.log.Debug("job failed", zap.Int("job", f.Index), zap.Duration("duration", f.Duration), zap.Error(f.Cause))
	}
	o.log.Info("execute pass complete",
		zap.Int64("jobs", stats.Total),
		zap.Int64("generated", l.Generated()),
		zap.Int64("failed", stats.Failed),
		zap.Int64("skipped", stats.Skipped),
		zap.Duration("average", stats.AverageDuration),
	)

	o.phase = PhaseExecuted
	summary.Result = l.Counts()
	summary.Models = x.models
	summary.Slices = x.slices
	summary.Failures = x.failures
	return err
}

// report prints the per-target progress lines. Suppressed when the progress
// bar is active.
func (o *Orchestrator) report(x *execution, t target.BuildTarget, d ledger.Decision, total int64) {
	w := o.deps.UI
	if o.settings.Jobs > 1 && !o.settings.DryRun {
		return
	}
	if d.Render {
		n := x.started.Add(1)
		w.Println("Generating: (%d of %d):", n, total)
		w.Println("     Rendering: %s", t.ModelPath)
		w.Debug("%s", t.Command.String())
	}
	if d.Slice {
		w.Println("     Slicing: %s", t.ModelPath)
	}
}

func (o *Orchestrator) job(l *ledger.Ledger, x *execution, t target.BuildTarget, d ledger.Decision, total int64) executor.Job {
	return func(ctx context.Context) error {
		o.report(x, t, d, total)

		if d.Render {
			if err := o.deps.Store.EnsureFolder(t.FolderPath); err != nil {
				l.RecordRender(err)
				x.fail(t.ModelPath, "render", err)
				return err
			}
			err := o.run(ctx, "render", t.ModelPath, t.Command)
			l.RecordRender(err)
			if err != nil {
				x.fail(t.ModelPath, "render", err)
				o.deps.UI.Error("Error! Aborting this object... (%s)", t.ModelPath)
				return err
			}
			x.model(t.ModelPath)
		}

		if d.Slice {
			err := o.run(ctx, "slice", t.ModelPath, toolrunner.SlicerCommand(o.settings.SlicerCommand, t.ModelPath))
			l.RecordSlice(err)
			if err != nil {
				x.fail(t.ModelPath, "slice", err)
				o.deps.UI.Error("Slicing failed for %s", t.ModelPath)
				return err
			}
			x.slice(t.GcodePath)
		}
		return nil
	}
}

func (o *Orchestrator) run(ctx context.Context, stage, model string, argv []string) error {
	log := logging.ForStage(o.log, stage, model)
	log.Debug("subprocess starting")

	res, err := o.deps.Runner.Run(ctx, argv)
	if o.settings.ShowOutput || err != nil {
		o.deps.UI.Raw(res.Stdout)
		o.deps.UI.Raw(res.Stderr)
	}
	if err != nil {
		log.Warn("subprocess failed", zap.Int("exit_code", res.ExitCode), zap.Error(err))
		return err
	}
	log.Debug("subprocess finished", zap.Duration("duration", res.Duration))
	return nil
}

// CountSummary converts ledger counters for display.
func CountSummary(c ledger.Counts) ui.CountSummary {
	return ui.CountSummary{
		Declared:   c.Declared,
		Existing:   c.Existing(),
		ToGenerate: c.ToGenerate,
		ToSlice:    c.ToSlice,
	}
}

// Run performs the whole two-pass build.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	w := o.deps.UI
	summary := &Summary{RunID: o.runID}
	defer func() { summary.Duration = time.Since(start) }()

	w.Println("Accumulating work units...")
	if _, err := o.Plan(); err != nil {
		return summary, err
	}
	summary.Warnings = o.warnings
	for _, warn := range o.warnings {
		w.Warning("%s", errors.MessageOf(warn))
	}

	counts, err := o.Count()
	if err != nil {
		return summary, err
	}
	summary.Count = counts

	if o.settings.CountOnly {
		w.Summary("Count Summary:", CountSummary(counts))
		summary.Outcome = OutcomeCountOnly
		return summary, nil
	}

	if counts.Declared == 0 {
		w.Summary("", CountSummary(counts))
		return summary, errors.EnumerationEmpty(emptyGuidance)
	}

	if counts.Idle() {
		w.Success("All your work is already done!")
		w.Println("Use --regen and/or --reslice if you need to.")
		w.Summary("", CountSummary(counts))
		summary.Outcome = OutcomeUpToDate
		return summary, nil
	}

	if !o.settings.DryRun && !o.settings.DoIt && o.deps.Confirmer != nil {
		w.Println("This is what is going to happen:")
		w.Summary("", CountSummary(counts))
		w.Println(`You can disable this prompt with "--doit"`)
		ok, err := o.deps.Confirmer.Confirm("Are you ready to do this?")
		if err != nil {
			return summary, errors.Wrap(errors.TypeInternal, "failed to read confirmation", err)
		}
		if !ok {
			w.Println("OK, maybe next time...")
			summary.Outcome = OutcomeDeclined
			return summary, ErrDeclined
		}
	}

	err = o.Execute(ctx, summary)
	summary.Outcome = OutcomeCompleted

	w.Println("")
	w.Summary("Summary:", CountSummary(summary.Result))
	if len(summary.Models)+len(summary.Slices) > 0 && !o.settings.DryRun {
		w.Success("Rendered %d, sliced %d", len(summary.Models), len(summary.Slices))
	}
	if len(summary.Failures) > 0 {
		w.Warning("%d render and %d slice failures", summary.Result.RenderFailed, summary.Result.SliceFailed)
	}
	return summary, err
}
