// Package locator normalizes the "strategy=value" locator strings used by
// suites and page objects, and converts between selector strategies.
package locator

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/verity-cli/internal/verr"
)

// Strategy identifies how a locator value finds an element.
type Strategy string

const (
	StrategyCSS       Strategy = "css"
	StrategyXPath     Strategy = "xpath"
	StrategyText      Strategy = "text"
	StrategyRole      Strategy = "role"
	StrategyID        Strategy = "id"
	StrategyClass     Strategy = "class"
	StrategyAttribute Strategy = "attribute"
	StrategyTestID    Strategy = "test-id"
)

var knownStrategies = map[Strategy]bool{
	StrategyCSS:       true,
	StrategyXPath:     true,
	StrategyText:      true,
	StrategyRole:      true,
	StrategyID:        true,
	StrategyClass:     true,
	StrategyAttribute: true,
	StrategyTestID:    true,
}

// Locator is a parsed strategy/value pair.
type Locator struct {
	Strategy Strategy
	Value    string
}

// String renders the canonical "strategy=value" form.
func (l Locator) String() string {
	return fmt.Sprintf("%s=%s", l.Strategy, l.Value)
}

// Parse splits a raw locator on the first '='. A recognized strategy prefix
// is preserved; anything else is treated as a bare CSS selector with a
// logged warning. A recognized prefix with an empty value is a hard error.
func Parse(raw string, logger *zap.Logger) (Locator, error) {
	if strings.TrimSpace(raw) == "" {
		return Locator{}, verr.New(verr.KindConfig, "empty locator")
	}

	prefix, value, found := strings.Cut(raw, "=")
	if found && knownStrategies[Strategy(prefix)] {
		if value == "" {
			return Locator{}, verr.New(verr.KindConfig, "locator has empty value").With("strategy", prefix)
		}
		return Locator{Strategy: Strategy(prefix), Value: value}, nil
	}

	if logger != nil {
		logger.Warn("Unrecognized locator strategy, defaulting to CSS", zap.String("locator", raw))
	}
	return Locator{Strategy: StrategyCSS, Value: raw}, nil
}

// Selector resolves the locator to an engine-ready selector: a CSS selector
// for CSS-expressible strategies, an XPath expression otherwise. The second
// return reports whether the selector is XPath.
func (l Locator) Selector() (string, bool) {
	switch l.Strategy {
	case StrategyCSS:
		return l.Value, false
	case StrategyID:
		return "#" + l.Value, false
	case StrategyClass:
		return "." + l.Value, false
	case StrategyTestID:
		return fmt.Sprintf("[data-testid='%s']", l.Value), false
	case StrategyRole:
		return fmt.Sprintf("[role='%s']", l.Value), false
	case StrategyAttribute:
		name, val, found := strings.Cut(l.Value, "=")
		if !found {
			return fmt.Sprintf("[%s]", l.Value), false
		}
		return fmt.Sprintf("[%s='%s']", name, strings.Trim(val, `'"`)), false
	case StrategyXPath:
		return l.Value, true
	case StrategyText:
		return fmt.Sprintf("//*[contains(normalize-space(.), '%s')]", escapeXPathLiteral(l.Value)), true
	default:
		return l.Value, false
	}
}

// Convert rewrites the locator into the target strategy. Conversion is a
// fixed best-effort rule table, not a full selector compiler; unsupported
// pairs return an error rather than guessing.
func Convert(l Locator, target Strategy) (Locator, error) {
	if l.Strategy == target {
		return l, nil
	}

	switch {
	case target == StrategyCSS:
		switch l.Strategy {
		case StrategyID:
			return Locator{Strategy: StrategyCSS, Value: "#" + l.Value}, nil
		case StrategyClass:
			return Locator{Strategy: StrategyCSS, Value: "." + l.Value}, nil
		case StrategyTestID:
			return Locator{Strategy: StrategyCSS, Value: fmt.Sprintf("[data-testid='%s']", l.Value)}, nil
		case StrategyRole:
			return Locator{Strategy: StrategyCSS, Value: fmt.Sprintf("[role='%s']", l.Value)}, nil
		case StrategyAttribute:
			sel, _ := l.Selector()
			return Locator{Strategy: StrategyCSS, Value: sel}, nil
		}
	case target == StrategyXPath:
		switch l.Strategy {
		case StrategyCSS:
			xpath, err := CSSToXPath(l.Value)
			if err != nil {
				return Locator{}, err
			}
			return Locator{Strategy: StrategyXPath, Value: xpath}, nil
		case StrategyID, StrategyClass, StrategyTestID, StrategyRole, StrategyAttribute:
			sel, _ := l.Selector()
			xpath, err := CSSToXPath(sel)
			if err != nil {
				return Locator{}, err
			}
			return Locator{Strategy: StrategyXPath, Value: xpath}, nil
		}
	}

	return Locator{}, verr.New(verr.KindConfig, "unsupported locator conversion").
		With("from", string(l.Strategy)).
		With("to", string(target))
}

// ForTestID builds a test-id locator.
func ForTestID(value string) Locator {
	return Locator{Strategy: StrategyTestID, Value: value}
}

// ForRole builds a role locator, optionally narrowed by accessible name.
func ForRole(role, name string) Locator {
	if name == "" {
		return Locator{Strategy: StrategyRole, Value: role}
	}
	return Locator{
		Strategy: StrategyCSS,
		Value:    fmt.Sprintf("[role='%s'][aria-label='%s']", role, name),
	}
}

func escapeXPathLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
