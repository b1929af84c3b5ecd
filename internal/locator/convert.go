package locator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xkilldash9x/verity-cli/internal/verr"
)

// The CSS-to-XPath rule table covers the simple selector shapes that
// generated suites actually use. Anything outside it is rejected.
var (
	reTag       = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9-]*$`)
	reID        = regexp.MustCompile(`^#([\w-]+)$`)
	reClass     = regexp.MustCompile(`^\.([\w-]+)$`)
	reAttr      = regexp.MustCompile(`^\[([\w-]+)(?:=['"]?([^'"\]]*)['"]?)?\]$`)
	reTagID     = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9-]*)#([\w-]+)$`)
	reTagClass  = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9-]*)\.([\w-]+)$`)
	reTagAttr   = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9-]*)\[([\w-]+)(?:=['"]?([^'"\]]*)['"]?)?\]$`)
	reCombinator = regexp.MustCompile(`\s*>\s*|\s+`)
)

// CSSToXPath converts a simple CSS selector to an equivalent XPath
// expression. Supported per compound: tag, #id, .class, [attr], [attr=v],
// and tag-qualified forms; combinators: descendant (whitespace) maps to //
// and child (>) maps to /.
func CSSToXPath(css string) (string, error) {
	css = strings.TrimSpace(css)
	if css == "" {
		return "", verr.New(verr.KindConfig, "empty CSS selector")
	}

	// Split into compound selectors while remembering each combinator.
	parts, combinators, err := splitCombinators(css)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i, part := range parts {
		axis := "//"
		if i > 0 && combinators[i-1] == ">" {
			axis = "/"
		}
		step, err := compoundToXPath(part)
		if err != nil {
			return "", err
		}
		b.WriteString(axis)
		b.WriteString(step)
	}
	return b.String(), nil
}

func splitCombinators(css string) (parts []string, combinators []string, err error) {
	matches := reCombinator.FindAllStringIndex(css, -1)
	last := 0
	for _, m := range matches {
		part := css[last:m[0]]
		if part == "" {
			return nil, nil, verr.New(verr.KindConfig, "malformed CSS selector").With("selector", css)
		}
		parts = append(parts, part)
		if strings.Contains(css[m[0]:m[1]], ">") {
			combinators = append(combinators, ">")
		} else {
			combinators = append(combinators, " ")
		}
		last = m[1]
	}
	tail := css[last:]
	if tail == "" {
		return nil, nil, verr.New(verr.KindConfig, "malformed CSS selector").With("selector", css)
	}
	parts = append(parts, tail)
	return parts, combinators, nil
}

func compoundToXPath(sel string) (string, error) {
	switch {
	case reID.MatchString(sel):
		m := reID.FindStringSubmatch(sel)
		return fmt.Sprintf("*[@id='%s']", m[1]), nil
	case reClass.MatchString(sel):
		m := reClass.FindStringSubmatch(sel)
		return fmt.Sprintf("*[contains(@class,'%s')]", m[1]), nil
	case reTag.MatchString(sel):
		return sel, nil
	case reAttr.MatchString(sel):
		m := reAttr.FindStringSubmatch(sel)
		if m[2] == "" && !strings.Contains(sel, "=") {
			return fmt.Sprintf("*[@%s]", m[1]), nil
		}
		return fmt.Sprintf("*[@%s='%s']", m[1], m[2]), nil
	case reTagID.MatchString(sel):
		m := reTagID.FindStringSubmatch(sel)
		return fmt.Sprintf("%s[@id='%s']", m[1], m[2]), nil
	case reTagClass.MatchString(sel):
		m := reTagClass.FindStringSubmatch(sel)
		return fmt.Sprintf("%s[contains(@class,'%s')]", m[1], m[2]), nil
	case reTagAttr.MatchString(sel):
		m := reTagAttr.FindStringSubmatch(sel)
		if m[3] == "" && !strings.Contains(sel, "=") {
			return fmt.Sprintf("%s[@%s]", m[1], m[2]), nil
		}
		return fmt.Sprintf("%s[@%s='%s']", m[1], m[2], m[3]), nil
	default:
		return "", verr.New(verr.KindConfig, "CSS selector outside the conversion rule table").With("selector", sel)
	}
}
