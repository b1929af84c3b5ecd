package runner

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/verity-cli/internal/verr"
)

// MarkerExpr selects cases by their markers. The grammar is the familiar
// boolean one: names, "not", "and", "or", and parentheses, with not binding
// tightest and or loosest.
type MarkerExpr interface {
	Matches(markers []string) bool
}

type markerName string

func (m markerName) Matches(markers []string) bool {
	for _, have := range markers {
		if have == string(m) {
			return true
		}
	}
	return false
}

type markerNot struct{ inner MarkerExpr }

func (m markerNot) Matches(markers []string) bool { return !m.inner.Matches(markers) }

type markerAnd struct{ left, right MarkerExpr }

func (m markerAnd) Matches(markers []string) bool {
	return m.left.Matches(markers) && m.right.Matches(markers)
}

type markerOr struct{ left, right MarkerExpr }

func (m markerOr) Matches(markers []string) bool {
	return m.left.Matches(markers) || m.right.Matches(markers)
}

// matchAll is the empty expression: every case matches.
type matchAll struct{}

func (matchAll) Matches([]string) bool { return true }

// ParseMarkerExpr compiles a marker filter expression. An empty expression
// matches everything.
func ParseMarkerExpr(expr string) (MarkerExpr, error) {
	if strings.TrimSpace(expr) == "" {
		return matchAll{}, nil
	}

	p := &markerParser{tokens: tokenizeMarkers(expr)}
	parsed, err := p.parseOr()
	if err != nil {
		return nil, verr.Wrap(verr.KindConfig, "invalid marker expression", err).With("expression", expr)
	}
	if p.pos != len(p.tokens) {
		return nil, verr.New(verr.KindConfig, "invalid marker expression").
			With("expression", expr).
			With("unexpected", p.tokens[p.pos])
	}
	return parsed, nil
}

func tokenizeMarkers(expr string) []string {
	expr = strings.ReplaceAll(expr, "(", " ( ")
	expr = strings.ReplaceAll(expr, ")", " ) ")
	return strings.Fields(expr)
}

type markerParser struct {
	tokens []string
	pos    int
}

func (p *markerParser) peek() string {
	if p.pos >= len(p.tokens) {
		return ""
	}
	return p.tokens[p.pos]
}

func (p *markerParser) next() string {
	tok := p.peek()
	p.pos++
	return tok
}

func (p *markerParser) parseOr() (MarkerExpr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek() == "or" {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = markerOr{left, right}
	}
	return left, nil
}

func (p *markerParser) parseAnd() (MarkerExpr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek() == "and" {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = markerAnd{left, right}
	}
	return left, nil
}

func (p *markerParser) parseUnary() (MarkerExpr, error) {
	switch tok := p.peek(); tok {
	case "not":
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return markerNot{inner}, nil
	case "(":
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.next() != ")" {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		return inner, nil
	case "", ")", "and", "or":
		return nil, fmt.Errorf("expected a marker name, got %q", tok)
	default:
		p.next()
		return markerName(tok), nil
	}
}
