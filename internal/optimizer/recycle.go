package optimizer

import (
	"cmp"
	"runtime"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"
)

// RecycleSolution is one candidate of the recycle mass-balance search.
type RecycleSolution struct {
	EffectiveRecovery       float64
	EffectiveFeed           float64
	RecycleFlow             float64
	DisposalFlow            float64
	SplitRatio              float64
	ActualRecoveryFromFresh float64
	RecoveryError           float64
	EffectiveSalinity       float64
	Iteration               int
	Converged               bool
	GridIndex               int
	Config                  Configuration
}

// betterSolution orders candidates by recovery error, then fewer vessels,
// then array notation and grid position.
func betterSolution(a, b RecycleSolution) int {
	if c := cmp.Compare(a.RecoveryError, b.RecoveryError); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Config.TotalVessels, b.Config.TotalVessels); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Config.ArrayNotation, b.Config.ArrayNotation); c != 0 {
		return c
	}
	if c := cmp.Compare(a.GridIndex, b.GridIndex); c != 0 {
		return c
	}
	return cmp.Compare(a.Iteration, b.Iteration)
}

// ── Recycle search ──────────────────────────────────────────────────

// optimizeWithRecycle sweeps effective recoveries, solves the recycle mass
// balance for each by fixed-point iteration and returns at most one
// solution per stage count.
func (o *Optimizer) optimizeWithRecycle() []RecycleSolution {
	grid := linspace(o.tuning.RecycleGridMin, o.tuning.RecycleGridMax, o.tuning.RecycleGridPoints)
	if len(grid) == 0 {
		return nil
	}

	numWorkers := o.tuning.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers > len(grid) {
		numWorkers = len(grid)
	}

	type result struct {
		idx        int
		candidates []RecycleSolution
		diag       diagnostics
	}
	jobs := make(chan int, len(grid))
	for i := range grid {
		jobs <- i
	}
	close(jobs)
	resultCh := make(chan result, len(grid))

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				cands, d := o.solveRecycleAt(idx, grid[idx])
				resultCh <- result{idx: idx, candidates: cands, diag: d}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	byIdx := make([][]RecycleSolution, len(grid))
	diags := make([]diagnostics, len(grid))
	for r := range resultCh {
		byIdx[r.idx] = r.candidates
		diags[r.idx] = r.diag
	}

	var all []RecycleSolution
	for i := range byIdx {
		all = append(all, byIdx[i]...)
		o.diag.merge(diags[i])
	}
	selected := o.selectRecycle(all)
	o.log.WithFields(logrus.Fields{
		"grid":       len(grid),
		"candidates": len(all),
		"selected":   len(selected),
	}).Debug("[recycle] sweep done")
	return selected
}

// solveRecycleAt runs the fixed point for one effective recovery. Every
// intermediate candidate that respects the split limit is returned. The
// diagnostics only hold recoveries measured against the fresh feed.
func (o *Optimizer) solveRecycleAt(idx int, effRecovery float64) ([]RecycleSolution, diagnostics) {
	fresh := o.spec.FeedFlow
	target := o.spec.TargetRecovery
	requiredPermeate := fresh * target
	requiredDisposal := fresh * (1 - target)
	log := o.log.WithFields(logrus.Fields{"grid": idx, "effective_recovery": effRecovery})

	var out []RecycleSolution
	var diag diagnostics
	effFeed := requiredPermeate / effRecovery
	for k := 0; k < o.tuning.MaxFixedPointIterations; k++ {
		inner := o.child(effFeed, effRecovery)
		configs := inner.designArrays()
		if len(configs) == 0 {
			log.WithField("effective_feed", effFeed).Debug("[recycle] infeasible branch: no inner array")
			break
		}

		var driver RecycleSolution
		haveDriver := false
		for _, cfg := range configs {
			recycle := cfg.FinalConcentrate - requiredDisposal
			if recycle < 0 {
				continue
			}
			actual := cfg.TotalPermeate / fresh
			sol := RecycleSolution{
				EffectiveRecovery:       effRecovery,
				EffectiveFeed:           effFeed,
				RecycleFlow:             recycle,
				DisposalFlow:            requiredDisposal,
				SplitRatio:              recycle / cfg.FinalConcentrate,
				ActualRecoveryFromFresh: actual,
				RecoveryError:           absf(actual - target),
				EffectiveSalinity:       blendedSalinity(fresh, o.spec.FeedSalinity, recycle, effRecovery),
				Iteration:               k,
				GridIndex:               idx,
				Config:                  cfg,
			}
			sol.Converged = absf(fresh+recycle-effFeed) < o.tuning.FixedPointTolerance
			if !haveDriver || betterSolution(sol, driver) < 0 {
				driver, haveDriver = sol, true
			}
			if sol.SplitRatio <= o.spec.MaxRecycleRatio {
				out = append(out, sol)
				if actual < target-recoveryEps {
					diag.below(actual, cfg.NStages)
				}
			}
		}
		if !haveDriver {
			log.WithField("effective_feed", effFeed).Debug("[recycle] infeasible branch: concentrate below disposal")
			break
		}
		next := fresh + driver.RecycleFlow
		if absf(next-effFeed) < o.tuning.FixedPointTolerance {
			break
		}
		effFeed = next
	}
	return out, diag
}

// blendedSalinity mixes fresh feed with recycled concentrate whose salinity
// is estimated by the concentration factor 1/(1-r). This ignores actual salt
// passage and is only an approximation.
func blendedSalinity(fresh, salinity, recycle, effRecovery float64) float64 {
	if fresh+recycle <= 0 || effRecovery >= 1 {
		return salinity
	}
	concentrate := salinity / (1 - effRecovery)
	return (fresh*salinity + recycle*concentrate) / (fresh + recycle)
}

// selectRecycle keeps, per stage count, the best candidate inside
// [target, target+tol], falling back to [target, target+2·tol].
func (o *Optimizer) selectRecycle(all []RecycleSolution) []RecycleSolution {
	target, tol := o.spec.TargetRecovery, o.spec.RecoveryTolerance
	best := func(stages int, band float64) (RecycleSolution, bool) {
		var pick RecycleSolution
		found := false
		for _, s := range all {
			if s.Config.NStages != stages || !withinBand(s.ActualRecoveryFromFresh, target, band) {
				continue
			}
			if !found || betterSolution(s, pick) < 0 {
				pick, found = s, true
			}
		}
		return pick, found
	}

	var out []RecycleSolution
	for n := 1; n <= o.spec.MaxStages; n++ {
		if s, ok := best(n, tol); ok {
			out = append(out, s)
		} else if s, ok := best(n, 2*tol); ok {
			o.log.WithField("stages", n).Debug("[recycle] relaxed tolerance to 2x")
			out = append(out, s)
		}
	}
	slices.SortStableFunc(out, betterSolution)
	return out
}

// recycleConfiguration turns a solution into an output configuration
// measured against the fresh feed.
func (o *Optimizer) recycleConfiguration(sol RecycleSolution) Configuration {
	cfg := sol.Config
	cfg.Stages = append([]StageResult(nil), sol.Config.Stages...)
	cfg.FeedFlow = o.spec.FeedFlow
	cfg.TotalRecovery = sol.ActualRecoveryFromFresh
	cfg.RecoveryError = sol.ActualRecoveryFromFresh - o.spec.TargetRecovery
	cfg.MeetsTarget = withinBand(cfg.TotalRecovery, o.spec.TargetRecovery, o.spec.RecoveryTolerance)
	cfg.Recycle = &RecycleBlock{
		RecycleRatio:          sol.RecycleFlow / o.spec.FeedFlow,
		RecycleFlow:           sol.RecycleFlow,
		SplitRatio:            sol.SplitRatio,
		DisposalFlow:          sol.DisposalFlow,
		EffectiveFeedFlow:     sol.EffectiveFeed,
		EffectiveFeedSalinity: sol.EffectiveSalinity,
		EffectiveRecovery:     sol.EffectiveRecovery,
		SalinityEstimate:      "concentration-factor",
		Iteration:             sol.Iteration,
		Converged:             sol.Converged,
	}
	return cfg
}
