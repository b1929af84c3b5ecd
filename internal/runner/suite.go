// Package runner executes YAML test suites against a browser and collects
// the per-case outcomes.
package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/verity-cli/internal/verr"
)

// Step kinds accepted in suite files.
const (
	StepNavigate    = "navigate"
	StepClick       = "click"
	StepFill        = "fill"
	StepWaitVisible = "wait_visible"
	StepAssertText  = "assert_text"
	StepAssertTitle = "assert_title"
	StepSleep       = "sleep"
)

var knownSteps = map[string]bool{
	StepNavigate:    true,
	StepClick:       true,
	StepFill:        true,
	StepWaitVisible: true,
	StepAssertText:  true,
	StepAssertTitle: true,
	StepSleep:       true,
}

// Duration decodes "100ms"-style strings, which yaml.v3 does not do for
// time.Duration on its own.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Step is one action or verification within a case.
type Step struct {
	Type     string   `yaml:"type"`
	URL      string   `yaml:"url,omitempty"`
	Locator  string   `yaml:"locator,omitempty"`
	Value    string   `yaml:"value,omitempty"`
	Expected string   `yaml:"expected,omitempty"`
	Duration Duration `yaml:"duration,omitempty"`
	// Soft downgrades an assertion step to record-and-continue.
	Soft bool `yaml:"soft,omitempty"`
}

// Case is one test: a named sequence of steps.
type Case struct {
	Name    string   `yaml:"name"`
	Markers []string `yaml:"markers,omitempty"`
	Steps   []Step   `yaml:"steps"`
}

// Suite is one YAML file of cases sharing a base URL.
type Suite struct {
	Name    string   `yaml:"name"`
	BaseURL string   `yaml:"base_url,omitempty"`
	Markers []string `yaml:"markers,omitempty"`
	Cases   []Case   `yaml:"cases"`
}

// LoadSuite parses and validates one suite file.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, verr.Config("reading suite file", err).With("path", path)
	}

	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, verr.Config("parsing suite file", err).With("path", path)
	}
	if suite.Name == "" {
		suite.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := suite.validate(); err != nil {
		return nil, verr.Wrap(verr.KindConfig, "invalid suite", err).With("path", path)
	}
	return &suite, nil
}

// LoadSuites loads every .yaml/.yml file under path. A single file loads
// just that file. Suites come back sorted by filename for a stable order.
func LoadSuites(path string) ([]*Suite, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, verr.Config("locating suites", err).With("path", path)
	}

	if !info.IsDir() {
		suite, err := LoadSuite(path)
		if err != nil {
			return nil, err
		}
		return []*Suite{suite}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, verr.Config("reading suite directory", err).With("path", path)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var suites []*Suite
	for _, name := range names {
		suite, err := LoadSuite(filepath.Join(path, name))
		if err != nil {
			return nil, err
		}
		suites = append(suites, suite)
	}
	if len(suites) == 0 {
		return nil, verr.New(verr.KindConfig, "no suite files found").With("path", path)
	}
	return suites, nil
}

func (s *Suite) validate() error {
	if len(s.Cases) == 0 {
		return fmt.Errorf("suite %q has no cases", s.Name)
	}
	seen := make(map[string]bool)
	for i, c := range s.Cases {
		if c.Name == "" {
			return fmt.Errorf("case %d has no name", i)
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate case name %q", c.Name)
		}
		seen[c.Name] = true
		if len(c.Steps) == 0 {
			return fmt.Errorf("case %q has no steps", c.Name)
		}
		for j, step := range c.Steps {
			if err := validateStep(step); err != nil {
				return fmt.Errorf("case %q step %d: %w", c.Name, j, err)
			}
		}
	}
	return nil
}

func validateStep(step Step) error {
	if !knownSteps[step.Type] {
		return fmt.Errorf("unknown step type %q", step.Type)
	}
	switch step.Type {
	case StepNavigate:
		if step.URL == "" {
			return fmt.Errorf("navigate needs a url")
		}
	case StepClick, StepWaitVisible:
		if step.Locator == "" {
			return fmt.Errorf("%s needs a locator", step.Type)
		}
	case StepFill:
		if step.Locator == "" {
			return fmt.Errorf("fill needs a locator")
		}
	case StepAssertText:
		if step.Locator == "" {
			return fmt.Errorf("assert_text needs a locator")
		}
	case StepAssertTitle:
		if step.Expected == "" {
			return fmt.Errorf("assert_title needs an expected value")
		}
	case StepSleep:
		if step.Duration <= 0 {
			return fmt.Errorf("sleep needs a positive duration")
		}
	}
	return nil
}

// effectiveMarkers merges suite-level markers into each case.
func (s *Suite) effectiveMarkers(c Case) []string {
	if len(s.Markers) == 0 {
		return c.Markers
	}
	merged := make([]string, 0, len(s.Markers)+len(c.Markers))
	merged = append(merged, s.Markers...)
	merged = append(merged, c.Markers...)
	return merged
}
