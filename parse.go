package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	goerrors "github.com/go-errors/errors"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"ro-array-designer/internal/optimizer"
)

// NamedSpec is one entry of a batch file.
type NamedSpec struct {
	Name string               `json:"name" yaml:"name"`
	Spec optimizer.SystemSpec `json:"spec" yaml:"spec"`
}

// LoadSpec reads a single SystemSpec from a .json, .yaml or .yml file.
func LoadSpec(path string) (optimizer.SystemSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return optimizer.SystemSpec{}, goerrors.Wrap(err, 0)
	}
	if isYAML(path) {
		return parseSpecYAML(raw)
	}
	return parseSpecJSON(string(raw))
}

// LoadBatch reads a list of named specs. JSON batches are either a bare
// array or an object with a "specs" array.
func LoadBatch(path string) ([]NamedSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, goerrors.Wrap(err, 0)
	}
	if isYAML(path) {
		var out []NamedSpec
		if err := yaml.Unmarshal(raw, &out); err != nil {
			return nil, goerrors.WrapPrefix(err, "parse "+path, 0)
		}
		for i := range out {
			if out[i].Name == "" {
				out[i].Name = fmt.Sprintf("spec-%d", i+1)
			}
		}
		return out, nil
	}
	return parseBatchJSON(string(raw))
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func parseSpecYAML(raw []byte) (optimizer.SystemSpec, error) {
	var s optimizer.SystemSpec
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return s, goerrors.WrapPrefix(err, "parse spec", 0)
	}
	return s, nil
}

func parseBatchJSON(body string) ([]NamedSpec, error) {
	if !gjson.Valid(body) {
		return nil, goerrors.Errorf("batch is not valid JSON")
	}
	list := gjson.Parse(body)
	if !list.IsArray() {
		list = list.Get("specs")
	}
	if !list.IsArray() {
		return nil, goerrors.Errorf("batch must be an array or an object with a specs array")
	}
	var out []NamedSpec
	var firstErr error
	list.ForEach(func(_, v gjson.Result) bool {
		name := v.Get("name").String()
		if name == "" {
			name = fmt.Sprintf("spec-%d", len(out)+1)
		}
		fields := v.Get("spec")
		if !fields.Exists() {
			fields = v
		}
		spec, err := specFromResult(fields)
		if err != nil {
			firstErr = goerrors.WrapPrefix(err, name, 0)
			return false
		}
		out = append(out, NamedSpec{Name: name, Spec: spec})
		return true
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// parseSpecJSON decodes a SystemSpec. Missing keys stay zero and take the
// membrane defaults later; keys of the wrong type are InvalidInputError.
func parseSpecJSON(body string) (optimizer.SystemSpec, error) {
	if !gjson.Valid(body) {
		return optimizer.SystemSpec{}, goerrors.Errorf("spec is not valid JSON")
	}
	root := gjson.Parse(body)
	if !root.IsObject() {
		return optimizer.SystemSpec{}, goerrors.Errorf("spec must be a JSON object")
	}
	return specFromResult(root)
}

func specFromResult(v gjson.Result) (optimizer.SystemSpec, error) {
	var s optimizer.SystemSpec
	p := specParser{v: v}
	s.FeedFlow = p.number("feed_flow_m3h")
	s.TargetRecovery = p.number("target_recovery")
	s.FeedSalinity = p.number("feed_salinity_ppm")
	s.FluxTargets = p.numbers("flux_targets_lmh")
	s.FluxTolerance = p.number("flux_tolerance")
	s.MinConcentrate = p.numbers("min_concentrate_flow_m3h")
	s.ElementArea = p.number("element_area_m2")
	s.ElementsPerVessel = int(p.number("elements_per_vessel"))
	s.MaxStages = int(p.number("max_stages"))
	s.AllowRecycle = p.boolean("allow_recycle")
	s.MaxRecycleRatio = p.number("max_recycle_ratio")
	s.RecoveryTolerance = p.number("recovery_tolerance")
	s.Membrane = optimizer.MembraneType(p.str("membrane_type"))
	return s, p.err
}

// specParser keeps the first type error so field reads stay one-liners.
type specParser struct {
	v   gjson.Result
	err error
}

func (p *specParser) fail(key, want string) {
	if p.err == nil {
		p.err = optimizer.InvalidInputError{Field: key, Reason: "must be " + want}
	}
}

func (p *specParser) number(key string) float64 {
	r := p.v.Get(key)
	switch {
	case !r.Exists() || r.Type == gjson.Null:
		return 0
	case r.Type != gjson.Number:
		p.fail(key, "a number")
		return 0
	}
	return r.Float()
}

func (p *specParser) numbers(key string) []float64 {
	r := p.v.Get(key)
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}
	if r.Type == gjson.Number {
		return []float64{r.Float()}
	}
	if !r.IsArray() {
		p.fail(key, "a number or a list of numbers")
		return nil
	}
	var out []float64
	r.ForEach(func(_, e gjson.Result) bool {
		if e.Type != gjson.Number {
			p.fail(key, "a list of numbers")
			return false
		}
		out = append(out, e.Float())
		return true
	})
	return out
}

func (p *specParser) boolean(key string) bool {
	r := p.v.Get(key)
	switch {
	case !r.Exists() || r.Type == gjson.Null:
		return false
	case r.Type != gjson.True && r.Type != gjson.False:
		p.fail(key, "true or false")
		return false
	}
	return r.Bool()
}

func (p *specParser) str(key string) string {
	r := p.v.Get(key)
	switch {
	case !r.Exists() || r.Type == gjson.Null:
		return ""
	case r.Type != gjson.String:
		p.fail(key, "a string")
		return ""
	}
	return r.String()
}
