// Package config holds the immutable run configuration. It is built
// once at startup and passed explicitly to each component; nothing in
// the pipeline reads ambient global state.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/sensedrift/pkg/sensedrift/internalerr"
)

// Run describes one batch analysis run.
type Run struct {
	Reference string `yaml:"reference"` // reference corpus path
	Focus     string `yaml:"focus"`     // focus corpus path, optional
	Output    string `yaml:"output"`    // snapshot directory, for callers that build a store from it

	Floor      int     `yaml:"floor"`       // minimum occurrences to keep a word
	WindowSize int     `yaml:"window_size"` // co-occurrence window
	Alpha      float64 `yaml:"alpha"`       // CRP/HDP concentration
	Gamma      float64 `yaml:"gamma"`       // HDP top-level concentration
	Eta        float64 `yaml:"eta"`         // HDP topic smoothing
	MaxIters   int     `yaml:"max_iters"`   // sampling sweeps
	SaveEvery  int     `yaml:"save_every"`  // snapshot interval in sweeps
	Seed       int64   `yaml:"seed"`        // base seed for partition draws
	TopK       int     `yaml:"top_k"`       // ranking size

	Stem     bool   `yaml:"stem"`     // snowball-stem tokens
	Stoplist string `yaml:"stoplist"` // extra stopwords, YAML, optional
	Targets  string `yaml:"targets"`  // target words file; enables SemEval mode
}

// Default returns the documented defaults of the original pipeline.
func Default() Run {
	return Run{
		Floor:      1,
		WindowSize: 10,
		Alpha:      1.0,
		Gamma:      1.0,
		Eta:        0.1,
		MaxIters:   25,
		SaveEvery:  5,
		Seed:       1,
		TopK:       50,
	}
}

// LoadRun reads a run configuration from a YAML file, applied on top of
// the defaults.
func LoadRun(path string) (Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Run{}, err
	}
	r := Default()
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Run{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return r, nil
}

// Validate checks the configuration before the run starts.
func (r Run) Validate() error {
	var problems []string
	if r.Reference == "" {
		problems = append(problems, "reference corpus path required")
	}
	if r.Floor < 0 {
		problems = append(problems, "floor must be >= 0")
	}
	if r.WindowSize <= 0 {
		problems = append(problems, "window_size must be > 0")
	}
	if r.Alpha <= 0 {
		problems = append(problems, "alpha must be > 0")
	}
	if r.Gamma <= 0 {
		problems = append(problems, "gamma must be > 0")
	}
	if r.Eta <= 0 {
		problems = append(problems, "eta must be > 0")
	}
	if r.MaxIters <= 0 {
		problems = append(problems, "max_iters must be > 0")
	}
	if r.SaveEvery <= 0 {
		problems = append(problems, "save_every must be > 0")
	}
	if r.TopK <= 0 {
		problems = append(problems, "top_k must be > 0")
	}
	if r.Targets != "" && r.Focus == "" {
		problems = append(problems, "targets require a focus corpus")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", internalerr.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Stoplist is the stopword list configuration.
type Stoplist struct {
	Terms []string `yaml:"terms"`
}

// LoadStoplist loads extra stopwords from a YAML file.
func LoadStoplist(path string) (*Stoplist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sl Stoplist
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &sl, nil
}

// LoadTargets loads SemEval target words, one per line; blank lines and
// #-comments are skipped.
func LoadTargets(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var targets []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, line)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("%s: no target words", path)
	}
	return targets, nil
}
