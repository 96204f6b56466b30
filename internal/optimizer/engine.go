package optimizer

import (
	"cmp"
	"io"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
)

// PressureEstimator annotates stages with an informational feed pressure in Pa.
type PressureEstimator interface {
	FeedPressure(salinityPPM, stageRecovery float64, membrane string) (float64, error)
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithTuning replaces the default search parameters.
func WithTuning(t Tuning) Option {
	return func(o *Optimizer) { o.tuning = t }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *logrus.Entry) Option {
	return func(o *Optimizer) { o.log = l }
}

// WithPressureEstimator enables feed-pressure annotation of returned stages.
func WithPressureEstimator(p PressureEstimator) Option {
	return func(o *Optimizer) { o.pressure = p }
}

// Optimizer searches vessel arrays for one SystemSpec.
type Optimizer struct {
	spec     SystemSpec
	tuning   Tuning
	search   vesselSearch
	log      *logrus.Entry
	pressure PressureEstimator

	diag diagnostics
}

// diagnostics tracks the closest miss for NoFeasibleConfigurationError.
type diagnostics struct {
	bestBelow       float64
	bestBelowStages int
	hasBelow        bool
	bestOver        float64
	bestOverStages  int
	hasOver         bool
}

func (d *diagnostics) below(recovery float64, stages int) {
	if !d.hasBelow || recovery > d.bestBelow {
		d.bestBelow, d.bestBelowStages, d.hasBelow = recovery, stages, true
	}
}

func (d *diagnostics) over(recovery float64, stages int) {
	if !d.hasOver || recovery < d.bestOver {
		d.bestOver, d.bestOverStages, d.hasOver = recovery, stages, true
	}
}

func (d *diagnostics) merge(o diagnostics) {
	if o.hasBelow {
		d.below(o.bestBelow, o.bestBelowStages)
	}
	if o.hasOver {
		d.over(o.bestOver, o.bestOverStages)
	}
}

// NewOptimizer creates an optimizer for the spec. The spec is completed with
// membrane defaults; validation happens in Optimize.
func NewOptimizer(spec SystemSpec, opts ...Option) *Optimizer {
	if full, err := spec.WithDefaults(); err == nil {
		spec = full
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	o := &Optimizer{
		spec:   spec,
		tuning: DefaultTuning(),
		log:    logrus.NewEntry(discard),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.search = newVesselSearch(o.spec, o.tuning)
	return o
}

// Spec returns the completed spec the optimizer runs against.
func (o *Optimizer) Spec() SystemSpec { return o.spec }

// child returns an optimizer for an inner array design of the recycle loop.
// It shares nothing mutable with its parent.
func (o *Optimizer) child(feed, recovery float64) *Optimizer {
	c := &Optimizer{
		spec:   o.spec.withFeed(feed, recovery),
		tuning: o.tuning,
		log:    o.log,
	}
	c.search = newVesselSearch(c.spec, c.tuning)
	return c
}

// ── Main entry point ────────────────────────────────────────────────

// Optimize returns every viable configuration, sorted by recovery error,
// then stage count, then vessel count. It fails with InvalidInputError before
// searching, or NoFeasibleConfigurationError when no branch reaches target.
func (o *Optimizer) Optimize() ([]Configuration, error) {
	if _, err := DefaultsFor(o.spec.Membrane); err != nil {
		return nil, err
	}
	if err := o.spec.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	o.diag = diagnostics{}

	o.log.WithFields(logrus.Fields{
		"feed":       o.spec.FeedFlow,
		"target":     o.spec.TargetRecovery,
		"max_stages": o.spec.MaxStages,
		"recycle":    o.spec.AllowRecycle,
	}).Info("[init] designing RO array")

	configs := o.designArrays()
	o.log.WithField("configurations", len(configs)).Debug("[arrays] plain arrays done")

	if o.spec.AllowRecycle {
		solutions := o.optimizeWithRecycle()
		for _, sol := range solutions {
			configs = append(configs, o.recycleConfiguration(sol))
		}
		o.log.WithField("solutions", len(solutions)).Debug("[recycle] merged")
	}

	if len(configs) == 0 {
		err := o.noFeasible()
		o.log.WithError(err).Warn("[done] no feasible configuration")
		return nil, err
	}

	for i := range configs {
		o.annotate(&configs[i])
	}
	sortConfigurations(configs)

	o.log.WithFields(logrus.Fields{
		"configurations": len(configs),
		"best":           configs[0].ArrayNotation,
		"elapsed":        time.Since(start),
	}).Info("[done] design complete")
	return configs, nil
}

func (o *Optimizer) noFeasible() error {
	e := NoFeasibleConfigurationError{TargetRecovery: o.spec.TargetRecovery}
	switch {
	case o.diag.hasBelow:
		e.BestRecovery, e.BestStages = o.diag.bestBelow, o.diag.bestBelowStages
		e.Binding = ConstraintConcentrateFloor
	case o.diag.hasOver:
		e.BestRecovery, e.BestStages = o.diag.bestOver, o.diag.bestOverStages
		e.Binding = ConstraintFluxFloor
	default:
		e.Binding = ConstraintConcentrateFloor
	}
	return e
}

// ── Plain (non-recycle) arrays ──────────────────────────────────────

// designArrays tries 1..MaxStages stages and keeps every accepted attempt,
// one per distinct array notation.
func (o *Optimizer) designArrays() []Configuration {
	var out []Configuration
	for n := 1; n <= o.spec.MaxStages; n++ {
		stages, truncated := o.buildStages(n, true)
		if cfg, ok := o.accept(stages, false); ok {
			out = appendUnique(out, cfg)
		}
		if truncated && n > 1 {
			// leading stages already overshoot; finish the array and let the
			// tuner spread the excess over all n stages. The completed array
			// is accepted only inside [target, target+tol], never by the
			// overshoot rule that applies to attempts built as sized.
			full, _ := o.buildStages(n, false)
			if len(full) == n {
				if cfg, ok := o.accept(full, true); ok {
					out = appendUnique(out, cfg)
				}
			}
		}
	}
	return out
}

// buildStages sizes up to n stages, each fed by the previous concentrate.
// With earlyStop it stops adding stages once cumulative recovery passes
// target+tol and reports truncated.
func (o *Optimizer) buildStages(n int, earlyStop bool) (stages []StageResult, truncated bool) {
	feed := o.spec.FeedFlow
	permeate := 0.0
	mode := modeFor(n)
	for i := 0; i < n; i++ {
		st, ok := o.sizeStage(feed, i, mode)
		if !ok {
			break
		}
		stages = append(stages, st)
		permeate += st.PermeateFlow
		feed = st.ConcentrateFlow
		if earlyStop && i < n-1 && permeate/o.spec.FeedFlow > o.spec.TargetRecovery+o.spec.RecoveryTolerance {
			truncated = true
			break
		}
	}
	return stages, truncated
}

// accept applies the recovery rules to an attempt. Overshooting attempts are
// rebalanced first. strict additionally requires the tuned result to land in
// the target band.
func (o *Optimizer) accept(stages []StageResult, strict bool) (Configuration, bool) {
	if len(stages) == 0 {
		o.diag.below(0, 0)
		return Configuration{}, false
	}
	target, tol := o.spec.TargetRecovery, o.spec.RecoveryTolerance
	rec := stagesRecovery(stages, o.spec.FeedFlow)
	if rec > target+tol {
		stages, _ = o.tuneFlux(stages, o.spec.FeedFlow)
		rec = stagesRecovery(stages, o.spec.FeedFlow)
	}
	fields := logrus.Fields{"array": arrayNotation(stages), "recovery": rec}
	if rec < target-recoveryEps {
		o.diag.below(rec, len(stages))
		o.log.WithFields(fields).Debug("[attempt] infeasible branch: below target")
		return Configuration{}, false
	}
	if strict && rec > target+tol+recoveryEps {
		o.diag.over(rec, len(stages))
		o.log.WithFields(fields).Debug("[attempt] infeasible branch: flux floor reached above target band")
		return Configuration{}, false
	}
	o.log.WithFields(fields).Debug("[attempt] accepted")
	return newConfiguration(stages, o.spec), true
}

// appendUnique keeps one configuration per array notation, preferring the
// smaller recovery error.
func appendUnique(out []Configuration, cfg Configuration) []Configuration {
	for i := range out {
		if out[i].ArrayNotation == cfg.ArrayNotation && (out[i].Recycle == nil) == (cfg.Recycle == nil) {
			if absf(cfg.RecoveryError) < absf(out[i].RecoveryError) {
				out[i] = cfg
			}
			return out
		}
	}
	return append(out, cfg)
}

// ── Output ──────────────────────────────────────────────────────────

// annotate fills per-stage feed salinity and the optional feed pressure.
func (o *Optimizer) annotate(cfg *Configuration) {
	salinity := o.spec.FeedSalinity
	if cfg.Recycle != nil {
		salinity = cfg.Recycle.EffectiveFeedSalinity
	}
	stages := append([]StageResult(nil), cfg.Stages...)
	for i := range stages {
		st := stages[i]
		st.FeedSalinity = salinity
		st.FeedPressureBar = nil
		if o.pressure != nil && salinity > 0 {
			if pa, err := o.pressure.FeedPressure(salinity, st.StageRecovery, string(o.spec.Membrane)); err == nil {
				bar := pa / 1e5
				st.FeedPressureBar = &bar
			} else {
				o.log.WithError(err).WithField("stage", st.StageNumber).Debug("[annotate] feed pressure skipped")
			}
		}
		stages[i] = st
		if st.StageRecovery < 1 {
			salinity /= 1 - st.StageRecovery
		}
	}
	cfg.Stages = stages
}

// sortConfigurations orders by recovery error, stage count, vessel count,
// then plain arrays before recycle ones and by notation, so the order never
// depends on worker completion.
func sortConfigurations(configs []Configuration) {
	slices.SortStableFunc(configs, func(a, b Configuration) int {
		if c := cmp.Compare(absf(a.RecoveryError), absf(b.RecoveryError)); c != 0 {
			return c
		}
		if c := cmp.Compare(a.NStages, b.NStages); c != 0 {
			return c
		}
		if c := cmp.Compare(a.TotalVessels, b.TotalVessels); c != 0 {
			return c
		}
		ar, br := a.Recycle != nil, b.Recycle != nil
		if ar != br {
			if !ar {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.ArrayNotation, b.ArrayNotation)
	})
}
