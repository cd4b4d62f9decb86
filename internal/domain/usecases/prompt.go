package usecases

import (
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/0xcro3dile/versecraft/internal/domain/entities"
)

// DefaultPromptTemplate asks for the poem and lists the retrieved excerpts.
const DefaultPromptTemplate = `Create a poem on the theme '{{.Theme}}', in {{.Style}} style, with a {{.Length}} length.
{{- if .Fragments}}

Use these excerpts from existing poems as inspiration. Do not copy them.
{{- range $i, $f := .Fragments}}

[{{inc $i}}]
{{$f}}
{{- end}}
{{- end}}
`

// PromptData is what a prompt template sees.
type PromptData struct {
	Theme     string
	Style     string
	Length    string
	Fragments []string
}

// PromptBuilder renders generation prompts from a text/template.
// Render is pure: same inputs, same output.
type PromptBuilder struct {
	tmpl *template.Template
}

// NewPromptBuilder parses the given template; empty text selects the default.
func NewPromptBuilder(text string) (*PromptBuilder, error) {
	if strings.TrimSpace(text) == "" {
		text = DefaultPromptTemplate
	}
	tmpl, err := template.New("prompt").
		Option("missingkey=error").
		Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
		Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing prompt template: %w", err)
	}
	return &PromptBuilder{tmpl: tmpl}, nil
}

// NewPromptBuilderFromFile loads a template file; empty path selects the default.
func NewPromptBuilderFromFile(path string) (*PromptBuilder, error) {
	if path == "" {
		return NewPromptBuilder("")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompt template: %w", err)
	}
	return NewPromptBuilder(string(data))
}

// Render fills the template. User fields are inserted verbatim.
func (b *PromptBuilder) Render(theme string, style entities.Style, length entities.Length, fragments []string) (string, error) {
	var sb strings.Builder
	err := b.tmpl.Execute(&sb, PromptData{
		Theme:     theme,
		Style:     style.Label(entities.LocaleEN),
		Length:    length.Label(entities.LocaleEN),
		Fragments: fragments,
	})
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return sb.String(), nil
}
