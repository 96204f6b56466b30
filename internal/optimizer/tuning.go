package optimizer

// Tuning holds the search knobs. Adjust these to trade speed for resolution.
type Tuning struct {
	// FluxScanPoints is the number of flux values tried per vessel count.
	FluxScanPoints int `json:"flux_scan_points" yaml:"flux_scan_points"`
	// ExhaustiveLimit is the largest vessel-count range scanned one by one.
	ExhaustiveLimit int `json:"exhaustive_limit" yaml:"exhaustive_limit"`
	// RefineSamples caps the samples taken inside the best geometric bracket.
	RefineSamples int `json:"refine_samples" yaml:"refine_samples"`
	// MaxTuneIterations bounds the global flux rebalancing loop.
	MaxTuneIterations int `json:"max_tune_iterations" yaml:"max_tune_iterations"`
	// DampingOver is applied to flux steps while the error is outside tolerance.
	DampingOver float64 `json:"damping_over" yaml:"damping_over"`
	// DampingNear is applied once the error is inside tolerance.
	DampingNear float64 `json:"damping_near" yaml:"damping_near"`
	// EmergencyFloor is the lowest flux ratio the tuner may use while far off target.
	EmergencyFloor float64 `json:"emergency_floor" yaml:"emergency_floor"`
	// RecycleGridMin and RecycleGridMax bound the effective-recovery sweep.
	RecycleGridMin float64 `json:"recycle_grid_min" yaml:"recycle_grid_min"`
	RecycleGridMax float64 `json:"recycle_grid_max" yaml:"recycle_grid_max"`
	// RecycleGridPoints is the number of effective recoveries tried.
	RecycleGridPoints int `json:"recycle_grid_points" yaml:"recycle_grid_points"`
	// MaxFixedPointIterations bounds the recycle mass-balance loop per grid point.
	MaxFixedPointIterations int `json:"max_fixed_point_iterations" yaml:"max_fixed_point_iterations"`
	// FixedPointTolerance is the effective-feed change (m3/h) that counts as converged.
	FixedPointTolerance float64 `json:"fixed_point_tolerance" yaml:"fixed_point_tolerance"`
	// Workers caps the recycle sweep worker pool; 0 means GOMAXPROCS.
	Workers int `json:"workers" yaml:"workers"`
}

// DefaultTuning returns the standard search parameters.
func DefaultTuning() Tuning {
	return Tuning{
		FluxScanPoints:          10,
		ExhaustiveLimit:         100,
		RefineSamples:           10,
		MaxTuneIterations:       30,
		DampingOver:             0.9,
		DampingNear:             0.7,
		EmergencyFloor:          0.7,
		RecycleGridMin:          0.5,
		RecycleGridMax:          0.9,
		RecycleGridPoints:       100,
		MaxFixedPointIterations: 5,
		FixedPointTolerance:     0.01,
	}
}

// Merge returns t with every non-zero field of o applied on top.
func (t Tuning) Merge(o Tuning) Tuning {
	if o.FluxScanPoints > 0 {
		t.FluxScanPoints = o.FluxScanPoints
	}
	if o.ExhaustiveLimit > 0 {
		t.ExhaustiveLimit = o.ExhaustiveLimit
	}
	if o.RefineSamples > 0 {
		t.RefineSamples = o.RefineSamples
	}
	if o.MaxTuneIterations > 0 {
		t.MaxTuneIterations = o.MaxTuneIterations
	}
	if o.DampingOver > 0 {
		t.DampingOver = o.DampingOver
	}
	if o.DampingNear > 0 {
		t.DampingNear = o.DampingNear
	}
	if o.EmergencyFloor > 0 {
		t.EmergencyFloor = o.EmergencyFloor
	}
	if o.RecycleGridMin > 0 {
		t.RecycleGridMin = o.RecycleGridMin
	}
	if o.RecycleGridMax > 0 {
		t.RecycleGridMax = o.RecycleGridMax
	}
	if o.RecycleGridPoints > 0 {
		t.RecycleGridPoints = o.RecycleGridPoints
	}
	if o.MaxFixedPointIterations > 0 {
		t.MaxFixedPointIterations = o.MaxFixedPointIterations
	}
	if o.FixedPointTolerance > 0 {
		t.FixedPointTolerance = o.FixedPointTolerance
	}
	if o.Workers > 0 {
		t.Workers = o.Workers
	}
	return t
}
