package codegen

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"unicode"

	"github.com/xkilldash9x/verity-cli/internal/verr"
)

// pageObjectTemplate emits a Go file with one typed accessor per element.
// Buttons and links click, inputs fill, text elements read.
const pageObjectTemplate = `// Code generated by verity generate page-object; DO NOT EDIT.

package {{.Package}}

import (
	"context"

	"github.com/xkilldash9x/verity-cli/internal/browser"
)

// {{.Type}} wraps the {{.Page}} page.
type {{.Type}} struct {
	page *browser.Page
}

// New{{.Type}} binds the page object to an open page.
func New{{.Type}}(page *browser.Page) *{{.Type}} {
	return &{{.Type}}{page: page}
}
{{if .URL}}
// Open navigates to the page.
func (p *{{.Type}}) Open(ctx context.Context) error {
	return p.page.Navigate(ctx, {{printf "%q" .URL}})
}
{{end}}{{range .Elements}}
{{- if eq .Kind "button" "link"}}
// Click{{.Method}} clicks {{.Name}}.
func (p *{{$.Type}}) Click{{.Method}}(ctx context.Context) error {
	return p.page.Click(ctx, {{printf "%q" .Locator}})
}
{{else if eq .Kind "input"}}
// Fill{{.Method}} types into {{.Name}}.
func (p *{{$.Type}}) Fill{{.Method}}(ctx context.Context, value string) error {
	return p.page.Fill(ctx, {{printf "%q" .Locator}}, value)
}
{{else}}
// {{.Method}}Text reads {{.Name}}.
func (p *{{$.Type}}) {{.Method}}Text(ctx context.Context) (string, error) {
	return p.page.Text(ctx, {{printf "%q" .Locator}})
}
{{end}}
// Wait{{.Method}} waits until {{.Name}} is visible.
func (p *{{$.Type}}) Wait{{.Method}}(ctx context.Context) error {
	return p.page.WaitVisible(ctx, {{printf "%q" .Locator}})
}
{{end}}`

type pageObjectData struct {
	Package  string
	Page     string
	Type     string
	URL      string
	Elements []pageObjectElement
}

type pageObjectElement struct {
	Element
	Method string
}

// GeneratePageObject renders the Go page object for the definition.
// Elements come out sorted by name so regeneration is diff-stable.
func GeneratePageObject(def *PageDefinition, pkg string, w io.Writer) error {
	if err := def.validate(); err != nil {
		return verr.Wrap(verr.KindConfig, "invalid page definition", err)
	}
	if pkg == "" {
		pkg = "pages"
	}

	data := pageObjectData{
		Package: pkg,
		Page:    def.Page,
		Type:    exportedIdent(def.Page) + "Page",
		URL:     def.URL,
	}
	for _, e := range def.sortedElements() {
		data.Elements = append(data.Elements, pageObjectElement{
			Element: e,
			Method:  exportedIdent(e.Name),
		})
	}

	tmpl := template.Must(template.New("pageobject").Parse(pageObjectTemplate))
	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render page object: %w", err)
	}
	return nil
}

// exportedIdent converts "login button" or "login-button" into
// "LoginButton". Characters that cannot start or continue a Go identifier
// are dropped.
func exportedIdent(name string) string {
	var b strings.Builder
	upperNext := true
	for _, r := range name {
		switch {
		case unicode.IsLetter(r):
			if upperNext {
				b.WriteRune(unicode.ToUpper(r))
				upperNext = false
			} else {
				b.WriteRune(r)
			}
		case unicode.IsDigit(r) && b.Len() > 0:
			b.WriteRune(r)
			upperNext = true
		default:
			upperNext = true
		}
	}
	return b.String()
}
