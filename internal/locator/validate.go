package locator

import (
	"strings"

	"github.com/xkilldash9x/verity-cli/internal/verr"
)

// Validate performs structural checks on a locator: non-empty value,
// balanced brackets and quotes, and a plausible first character for the
// strategy. It does not parse with a real selector engine.
func Validate(l Locator) error {
	if strings.TrimSpace(l.Value) == "" {
		return verr.New(verr.KindConfig, "locator value is empty").With("strategy", string(l.Strategy))
	}
	if err := checkBalanced(l.Value); err != nil {
		return err
	}

	switch l.Strategy {
	case StrategyXPath:
		if !strings.HasPrefix(l.Value, "/") && !strings.HasPrefix(l.Value, "(") && !strings.HasPrefix(l.Value, ".") {
			return verr.New(verr.KindConfig, "xpath must start with '/', '(' or '.'").With("value", l.Value)
		}
	case StrategyID, StrategyClass, StrategyTestID, StrategyRole:
		if strings.ContainsAny(l.Value, " \t") {
			return verr.New(verr.KindConfig, "strategy value must not contain whitespace").
				With("strategy", string(l.Strategy)).
				With("value", l.Value)
		}
	case StrategyAttribute:
		if strings.HasPrefix(l.Value, "=") {
			return verr.New(verr.KindConfig, "attribute locator missing name").With("value", l.Value)
		}
	}
	return nil
}

// checkBalanced verifies bracket and quote pairing. Quotes toggle a string
// state in which brackets are ignored, which is enough structure for the
// selector shapes the framework emits.
func checkBalanced(s string) error {
	var stack []rune
	var quote rune

	for _, r := range s {
		if quote != 0 {
			if r == quote {
				quote = 0
			}
			continue
		}
		switch r {
		case '\'', '"':
			quote = r
		case '(', '[', '{':
			stack = append(stack, r)
		case ')', ']', '}':
			if len(stack) == 0 || !matches(stack[len(stack)-1], r) {
				return verr.New(verr.KindConfig, "unbalanced brackets in locator").With("value", s)
			}
			stack = stack[:len(stack)-1]
		}
	}

	if quote != 0 {
		return verr.New(verr.KindConfig, "unterminated quote in locator").With("value", s)
	}
	if len(stack) != 0 {
		return verr.New(verr.KindConfig, "unbalanced brackets in locator").With("value", s)
	}
	return nil
}

func matches(open, close rune) bool {
	switch open {
	case '(':
		return close == ')'
	case '[':
		return close == ']'
	case '{':
		return close == '}'
	}
	return false
}
