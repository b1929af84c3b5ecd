// Package codegen turns captured page structure into page objects and
// suite skeletons so new tests start from real selectors instead of a
// blank file.
package codegen

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/verity-cli/internal/locator"
	"github.com/xkilldash9x/verity-cli/internal/verr"
)

// Element kinds drive which accessors the page object gets.
const (
	KindButton = "button"
	KindInput  = "input"
	KindLink   = "link"
	KindText   = "text"
)

// Element is one named locator on a page.
type Element struct {
	Name    string `yaml:"name"`
	Locator string `yaml:"locator"`
	Kind    string `yaml:"kind"`
}

// PageDefinition is the YAML description codegen consumes and produces.
type PageDefinition struct {
	Page     string    `yaml:"page"`
	URL      string    `yaml:"url,omitempty"`
	Elements []Element `yaml:"elements"`
}

// LoadDefinition reads and validates a page definition file.
func LoadDefinition(path string) (*PageDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, verr.Config("reading page definition", err).With("path", path)
	}

	var def PageDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, verr.Config("parsing page definition", err).With("path", path)
	}
	if err := def.validate(); err != nil {
		return nil, verr.Wrap(verr.KindConfig, "invalid page definition", err).With("path", path)
	}
	return &def, nil
}

func (d *PageDefinition) validate() error {
	if d.Page == "" {
		return fmt.Errorf("definition has no page name")
	}
	if len(d.Elements) == 0 {
		return fmt.Errorf("page %q has no elements", d.Page)
	}
	seen := make(map[string]bool)
	for _, e := range d.Elements {
		if e.Name == "" {
			return fmt.Errorf("element with locator %q has no name", e.Locator)
		}
		if seen[e.Name] {
			return fmt.Errorf("duplicate element name %q", e.Name)
		}
		seen[e.Name] = true
		if _, err := locator.Parse(e.Locator, nil); err != nil {
			return fmt.Errorf("element %q: %w", e.Name, err)
		}
		switch e.Kind {
		case KindButton, KindInput, KindLink, KindText:
		default:
			return fmt.Errorf("element %q has unknown kind %q", e.Name, e.Kind)
		}
	}
	return nil
}

// WriteDefinition renders the definition as YAML.
func WriteDefinition(def *PageDefinition, w io.Writer) error {
	if err := def.validate(); err != nil {
		return verr.Wrap(verr.KindConfig, "invalid page definition", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(def); err != nil {
		return fmt.Errorf("failed to encode page definition: %w", err)
	}
	return enc.Close()
}

// sortedElements returns the elements ordered by name so generated output
// is stable across runs.
func (d *PageDefinition) sortedElements() []Element {
	out := make([]Element, len(d.Elements))
	copy(out, d.Elements)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
