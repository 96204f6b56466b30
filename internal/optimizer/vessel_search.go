package optimizer

import "math"

type searchMode int

const (
	// modeMaximize takes the largest feasible stage recovery.
	modeMaximize searchMode = iota
	// modeTarget lands the stage recovery inside [target, target+tol].
	modeTarget
)

func (m searchMode) String() string {
	if m == modeTarget {
		return "target"
	}
	return "maximize"
}

// stageCandidate is one feasible (vessel count, flux) point for a stage.
type stageCandidate struct {
	nVessels    int
	flux        float64
	feed        float64
	permeate    float64
	concentrate float64
	recovery    float64
}

// betterMax orders candidates for maximize mode: higher recovery, then fewer vessels.
func betterMax(a, b stageCandidate) bool {
	if a.recovery != b.recovery {
		return a.recovery > b.recovery
	}
	return a.nVessels < b.nVessels
}

// closerTo orders candidates by distance to target, then fewer vessels.
func closerTo(a, b stageCandidate, target float64) bool {
	da, db := absf(a.recovery-target), absf(b.recovery-target)
	if da != db {
		return da < db
	}
	return a.nVessels < b.nVessels
}

// vesselSearch finds vessel counts for one stage at one flux target.
type vesselSearch struct {
	vesselArea      float64
	upper, lower    float64
	scanPoints      int
	exhaustiveLimit int
	refineSamples   int
}

func newVesselSearch(spec SystemSpec, t Tuning) vesselSearch {
	return vesselSearch{
		vesselArea:      spec.VesselArea(),
		upper:           spec.upperLimit(),
		lower:           spec.lowerLimit(),
		scanPoints:      t.FluxScanPoints,
		exhaustiveLimit: t.ExhaustiveLimit,
		refineSamples:   t.RefineSamples,
	}
}

// evaluate checks one vessel count at one flux (LMH) against the stage feed.
func (s vesselSearch) evaluate(n int, flux, feed, minConc float64) (stageCandidate, bool) {
	if n < 1 || !(flux > 0) {
		return stageCandidate{}, false
	}
	permeate := float64(n) * s.vesselArea * flux / 1000
	if permeate >= feed {
		return stageCandidate{}, false
	}
	concentrate := feed - permeate
	if concentrate/float64(n) < minConc {
		return stageCandidate{}, false
	}
	return stageCandidate{
		nVessels:    n,
		flux:        flux,
		feed:        feed,
		permeate:    permeate,
		concentrate: concentrate,
		recovery:    permeate / feed,
	}, true
}

// fluxScan lists the flux values tried per vessel count, highest first.
func (s vesselSearch) fluxScan(fluxTarget float64) []float64 {
	return linspace(fluxTarget*s.upper, fluxTarget*s.lower, s.scanPoints)
}

// maxAt returns the feasible flux with the highest recovery for n vessels.
func (s vesselSearch) maxAt(n int, feed, fluxTarget, minConc float64) (stageCandidate, bool) {
	var best stageCandidate
	found := false
	for _, f := range s.fluxScan(fluxTarget) {
		c, ok := s.evaluate(n, f, feed, minConc)
		if !ok {
			continue
		}
		if !found || betterMax(c, best) {
			best, found = c, true
		}
	}
	return best, found
}

// targetAt returns the first flux, scanning down, whose recovery lands in
// [target, target+tol]. closest is the feasible point nearest target either way.
func (s vesselSearch) targetAt(n int, feed, fluxTarget, minConc, target, tol float64) (hit, closest stageCandidate, inWindow, feasible bool) {
	for _, f := range s.fluxScan(fluxTarget) {
		c, ok := s.evaluate(n, f, feed, minConc)
		if !ok {
			continue
		}
		if !feasible || closerTo(c, closest, target) {
			closest, feasible = c, true
		}
		if !inWindow && withinBand(c.recovery, target, tol) {
			hit, inWindow = c, true
		}
	}
	return hit, closest, inWindow, feasible
}

// search picks a vessel count for the stage. Ranges up to exhaustiveLimit are
// scanned one by one; larger ranges use binary search in target mode and a
// geometric scan with bracket refinement in maximize mode.
func (s vesselSearch) search(feed, fluxTarget, minConc float64, mode searchMode, target, tol float64) (stageCandidate, bool) {
	if !(feed > 0) || !(minConc > 0) {
		return stageCandidate{}, false
	}
	maxN := int(math.Floor(feed / minConc))
	if maxN <= 0 {
		return stageCandidate{}, false
	}
	switch {
	case maxN <= s.exhaustiveLimit && mode == modeTarget:
		return s.exhaustiveTarget(maxN, feed, fluxTarget, minConc, target, tol)
	case maxN <= s.exhaustiveLimit:
		return s.exhaustiveMax(maxN, feed, fluxTarget, minConc)
	case mode == modeTarget:
		return s.binaryTarget(maxN, feed, fluxTarget, minConc, target, tol)
	default:
		return s.geometricMax(maxN, feed, fluxTarget, minConc)
	}
}

func (s vesselSearch) exhaustiveMax(maxN int, feed, fluxTarget, minConc float64) (stageCandidate, bool) {
	var best stageCandidate
	found := false
	for n := 1; n <= maxN; n++ {
		c, ok := s.maxAt(n, feed, fluxTarget, minConc)
		if ok && (!found || betterMax(c, best)) {
			best, found = c, true
		}
	}
	return best, found
}

func (s vesselSearch) exhaustiveTarget(maxN int, feed, fluxTarget, minConc, target, tol float64) (stageCandidate, bool) {
	var hit, near stageCandidate
	hitFound, nearFound := false, false
	for n := 1; n <= maxN; n++ {
		h, c, in, ok := s.targetAt(n, feed, fluxTarget, minConc, target, tol)
		if in && (!hitFound || closerTo(h, hit, target)) {
			hit, hitFound = h, true
		}
		if ok && (!nearFound || closerTo(c, near, target)) {
			near, nearFound = c, true
		}
	}
	if hitFound {
		return hit, true
	}
	return near, nearFound
}

// binaryTarget relies on recovery growing with vessel count up to the
// concentrate limit; past it the count is infeasible and the search moves down.
func (s vesselSearch) binaryTarget(maxN int, feed, fluxTarget, minConc, target, tol float64) (stageCandidate, bool) {
	var best stageCandidate
	found := false
	lo, hi := 1, maxN
	for lo <= hi {
		mid := lo + (hi-lo)/2
		h, c, in, ok := s.targetAt(mid, feed, fluxTarget, minConc, target, tol)
		if in {
			return h, true
		}
		if ok && c.recovery <= target+tol && (!found || closerTo(c, best, target)) {
			best, found = c, true
		}
		m, feasible := s.maxAt(mid, feed, fluxTarget, minConc)
		if !feasible || m.recovery >= target {
			hi = mid - 1
		} else {
			lo = mid + 1
		}
	}
	return best, found
}

// geometricMax samples 1, 2, 4, ... maxN, then refines between the
// neighbours of the best coarse point.
func (s vesselSearch) geometricMax(maxN int, feed, fluxTarget, minConc float64) (stageCandidate, bool) {
	var coarse []int
	for n := 1; n < maxN; n *= 2 {
		coarse = append(coarse, n)
	}
	coarse = append(coarse, maxN)

	var best stageCandidate
	bestIdx := -1
	for i, n := range coarse {
		c, ok := s.maxAt(n, feed, fluxTarget, minConc)
		if ok && (bestIdx < 0 || betterMax(c, best)) {
			best, bestIdx = c, i
		}
	}
	if bestIdx < 0 {
		return stageCandidate{}, false
	}

	lo, hi := coarse[bestIdx], coarse[bestIdx]
	if bestIdx > 0 {
		lo = coarse[bestIdx-1]
	}
	if bestIdx < len(coarse)-1 {
		hi = coarse[bestIdx+1]
	}
	samples := s.refineSamples
	if span := hi - lo + 1; span < samples {
		samples = span
	}
	seen := make(map[int]bool, samples)
	for _, x := range linspace(float64(lo), float64(hi), samples) {
		n := int(math.Round(x))
		if seen[n] {
			continue
		}
		seen[n] = true
		c, ok := s.maxAt(n, feed, fluxTarget, minConc)
		if ok && betterMax(c, best) {
			best = c
		}
	}
	return best, true
}
