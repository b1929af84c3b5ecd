package codegen

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/verity-cli/internal/verr"
)

// ScanHTML walks a document and proposes elements worth naming: anything
// with a data-testid or id, plus buttons, inputs, and links. Elements come
// back sorted by name, deduplicated by locator.
func ScanHTML(r io.Reader, pageName string) (*PageDefinition, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, verr.Config("parsing html", err)
	}

	byLocator := make(map[string]Element)
	names := make(map[string]int)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if e, ok := candidateElement(n); ok {
				e.Name = uniqueName(names, e.Name)
				if _, dup := byLocator[e.Locator]; !dup {
					byLocator[e.Locator] = e
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if len(byLocator) == 0 {
		return nil, verr.New(verr.KindConfig, "no candidate elements found").With("page", pageName)
	}

	def := &PageDefinition{Page: pageName}
	for _, e := range byLocator {
		def.Elements = append(def.Elements, e)
	}
	sort.Slice(def.Elements, func(i, j int) bool { return def.Elements[i].Name < def.Elements[j].Name })
	return def, nil
}

// candidateElement decides whether a node is worth exposing and builds its
// locator. data-testid beats id beats tag-specific fallbacks, mirroring
// locator stability in practice.
func candidateElement(n *html.Node) (Element, bool) {
	attrs := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		attrs[a.Key] = a.Val
	}

	kind := kindForNode(n, attrs)

	if testID := attrs["data-testid"]; testID != "" {
		return Element{Name: testID, Locator: "test-id=" + testID, Kind: kind}, true
	}
	if id := attrs["id"]; id != "" {
		return Element{Name: id, Locator: "id=" + id, Kind: kind}, true
	}

	// Without a stable hook, only named form controls are worth guessing.
	if name := attrs["name"]; name != "" && (kind == KindInput || kind == KindButton) {
		return Element{
			Name:    name,
			Locator: fmt.Sprintf("css=%s[name='%s']", n.Data, name),
			Kind:    kind,
		}, true
	}
	return Element{}, false
}

func kindForNode(n *html.Node, attrs map[string]string) string {
	switch n.Data {
	case "button":
		return KindButton
	case "a":
		return KindLink
	case "input":
		switch attrs["type"] {
		case "button", "submit", "reset":
			return KindButton
		default:
			return KindInput
		}
	case "textarea", "select":
		return KindInput
	default:
		return KindText
	}
}

// uniqueName suffixes repeated names so the definition validates.
func uniqueName(seen map[string]int, name string) string {
	name = strings.TrimSpace(name)
	seen[name]++
	if seen[name] == 1 {
		return name
	}
	return fmt.Sprintf("%s-%d", name, seen[name])
}
