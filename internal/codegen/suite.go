package codegen

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/verity-cli/internal/runner"
	"github.com/xkilldash9x/verity-cli/internal/verr"
)

// GenerateSuite emits a runner suite skeleton covering the definition: one
// case that opens the page, waits for each element, and leaves assertion
// stubs for text elements. The output parses as a valid suite file and is
// meant to be edited before it runs.
func GenerateSuite(def *PageDefinition, w io.Writer) error {
	if err := def.validate(); err != nil {
		return verr.Wrap(verr.KindConfig, "invalid page definition", err)
	}

	steps := []runner.Step{}
	if def.URL != "" {
		steps = append(steps, runner.Step{Type: runner.StepNavigate, URL: def.URL})
	}
	for _, e := range def.sortedElements() {
		steps = append(steps, runner.Step{Type: runner.StepWaitVisible, Locator: e.Locator})
		if e.Kind == KindText {
			steps = append(steps, runner.Step{
				Type:     runner.StepAssertText,
				Locator:  e.Locator,
				Expected: "TODO",
				Soft:     true,
			})
		}
	}

	suite := runner.Suite{
		Name:    def.Page,
		BaseURL: def.URL,
		Cases: []runner.Case{{
			Name:  fmt.Sprintf("%s renders", def.Page),
			Steps: steps,
		}},
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&suite); err != nil {
		return fmt.Errorf("failed to encode suite skeleton: %w", err)
	}
	return enc.Close()
}
