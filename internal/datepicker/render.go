package datepicker

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

var selectorTemplate = template.Must(template.ParseFS(templateFS, "templates/selector.html"))

// Renderer applies a View to the host container, replacing whatever it held
type Renderer interface {
	Render(v View) error
}

// HTMLRenderer keeps the markup of the last rendered View.
// Buttons submit to Action + "/toggle", "/prev" and so on; an empty Action
// renders inert markup.
type HTMLRenderer struct {
	Action string
	html   template.HTML
}

// NewHTMLRenderer creates an HTMLRenderer posting to action
func NewHTMLRenderer(action string) *HTMLRenderer {
	return &HTMLRenderer{Action: action}
}

// Render executes the selector template and swaps the stored markup
func (r *HTMLRenderer) Render(v View) error {
	var buf bytes.Buffer
	data := struct {
		View   View
		Action string
	}{v, r.Action}

	if err := selectorTemplate.ExecuteTemplate(&buf, "selector", data); err != nil {
		return fmt.Errorf("failed to render selector %s: %w", v.ContainerID, err)
	}

	// Output of html/template is already escaped.
	r.html = template.HTML(buf.String())
	return nil
}

// HTML returns the markup of the last Render call
func (r *HTMLRenderer) HTML() template.HTML {
	return r.html
}

// TextRenderer draws the grid for terminals.
//
//	     Febrero 2024
//	 Dom Lun Mar Mié Jue Vie Sáb
//	  28. 29. 30. 31.  1   2*  3-
//
// Markers after the day number: '*' selected, '-' disabled, '!' holiday,
// '.' outside the visible month.
type TextRenderer struct {
	text string
}

// Render formats v and swaps the stored text
func (r *TextRenderer) Render(v View) error {
	var b strings.Builder

	header := make([]string, 0, len(v.DayNames))
	for _, name := range v.DayNames {
		header = append(header, fmt.Sprintf("%4s", name))
	}
	row := strings.Join(header, "")
	width := len([]rune(row))
	title := v.Title
	if pad := (width - len([]rune(title))) / 2; pad > 0 {
		title = strings.Repeat(" ", pad) + title
	}

	b.WriteString(title)
	b.WriteByte('\n')
	b.WriteString(row)
	b.WriteByte('\n')

	for _, week := range v.Weeks() {
		for _, c := range week {
			fmt.Fprintf(&b, " %2d%c", c.Day, marker(c))
		}
		b.WriteByte('\n')
	}
	b.WriteString(v.SelectedText)
	b.WriteByte('\n')

	r.text = b.String()
	return nil
}

// String returns the output of the last Render call
func (r *TextRenderer) String() string {
	return r.text
}

func marker(c Cell) byte {
	switch {
	case c.Selected:
		return '*'
	case c.Disabled:
		return '-'
	case c.Holiday:
		return '!'
	case !c.InMonth:
		return '.'
	default:
		return ' '
	}
}
