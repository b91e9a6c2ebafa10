package render

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/pseudomuto/schemalens/pkg/relational"
)

// Options controls rendering.
type Options struct {
	// NoColor disables ANSI styling of headers and labels.
	NoColor bool
}

// Defaults styles output whenever the terminal supports it.
var Defaults = Options{}

// Renderer writes objects as plain text.
type Renderer struct {
	heading *color.Color
	label   *color.Color
	rule    *color.Color
}

// New returns a Renderer configured by opts.
func New(opts Options) *Renderer {
	r := &Renderer{
		heading: color.New(color.Bold, color.FgCyan),
		label:   color.New(color.FgCyan),
		rule:    color.New(color.FgHiBlack),
	}

	if opts.NoColor {
		for _, c := range []*color.Color{r.heading, r.label, r.rule} {
			c.DisableColor()
		}
	}

	return r
}

// List writes one row per object with its kind, name, and a short summary.
func List(w io.Writer, opts Options, objs ...relational.Object) error {
	return New(opts).List(w, objs...)
}

// Object writes a detailed description of obj.
func Object(w io.Writer, opts Options, obj relational.Object) error {
	return New(opts).Object(w, obj)
}

// List writes one row per object with its kind, name, and a short summary. Nothing is
// written when objs is empty.
func (r *Renderer) List(w io.Writer, objs ...relational.Object) error {
	if len(objs) == 0 {
		return nil
	}

	t := table{headers: []string{"KIND", "NAME", "DETAIL"}}
	for _, obj := range objs {
		t.rows = append(t.rows, []string{obj.Kind().String(), obj.ObjectName().String(), summary(obj)})
	}

	p := &printer{w: w}
	r.table(p, t)
	return p.err
}

// Object writes a detailed description of obj. Column tables and definitions are only
// written for objects that have them.
func (r *Renderer) Object(w io.Writer, obj relational.Object) error {
	p := &printer{w: w}

	title := obj.Kind().String() + " " + obj.ObjectName().String()
	p.line(r.heading, title)
	p.line(r.rule, strings.Repeat("─", width(title)))

	var (
		props      []property
		columns    []relational.Column
		definition string
	)

	switch o := obj.(type) {
	case *relational.Table:
		props = appendIf(props, "comment", o.Comment)
		props = appendIf(props, "engine", o.Engine)
		props = appendIf(props, "primary key", strings.Join(o.PrimaryKey, ", "))
		columns = o.Columns
	case *relational.View:
		props = append(props, property{"materialized", yesNo(o.Materialized)})
		columns = o.Columns
		definition = o.Definition
	case *relational.Sequence:
		props = append(props,
			property{"data type", o.DataType},
			property{"start", fmt.Sprint(o.Start)},
			property{"increment", fmt.Sprint(o.Increment)},
			property{"min value", optional(o.Min)},
			property{"max value", optional(o.Max)},
			property{"cycle", yesNo(o.Cycle)},
		)
	case *relational.Synonym:
		props = append(props, property{"target", o.Target.String()})
	case *relational.Trigger:
		props = append(props,
			property{"table", o.Table.String()},
			property{"timing", o.Timing},
			property{"events", strings.Join(o.Events, " OR ")},
		)
		definition = o.Definition
	default:
		return errors.Errorf("cannot render %T", obj)
	}

	r.properties(p, props)

	if len(columns) > 0 {
		p.line(nil, "")
		r.table(p, columnTable(columns))
	}

	if definition != "" {
		p.line(nil, "")
		p.line(r.label, "definition:")
		for _, l := range strings.Split(strings.TrimRight(definition, "\n"), "\n") {
			p.line(nil, strings.TrimRight("  "+l, " \t"))
		}
	}

	return p.err
}

func summary(obj relational.Object) string {
	switch o := obj.(type) {
	case *relational.Table:
		parts := []string{count(len(o.Columns), "column")}
		if o.Engine != "" {
			parts = append(parts, "engine "+o.Engine)
		}
		return strings.Join(parts, ", ")
	case *relational.View:
		var parts []string
		if len(o.Columns) > 0 {
			parts = append(parts, count(len(o.Columns), "column"))
		}
		if o.Materialized {
			parts = append(parts, "materialized")
		}
		return strings.Join(parts, ", ")
	case *relational.Sequence:
		s := fmt.Sprintf("%s start %d increment %d", o.DataType, o.Start, o.Increment)
		if o.Cycle {
			s += " cycle"
		}
		return s
	case *relational.Synonym:
		return "-> " + o.Target.String()
	case *relational.Trigger:
		return fmt.Sprintf("%s %s ON %s", o.Timing, strings.Join(o.Events, " OR "), o.Table)
	default:
		return ""
	}
}

func columnTable(cols []relational.Column) table {
	t := table{headers: []string{"COLUMN", "TYPE", "NULLABLE", "DEFAULT", "COMMENT"}}
	for _, c := range cols {
		t.rows = append(t.rows, []string{c.Name, c.Type, yesNo(c.Nullable), optional(c.Default, ""), c.Comment})
	}

	return t
}

type property struct {
	key   string
	value string
}

func appendIf(props []property, key, value string) []property {
	if value == "" {
		return props
	}

	return append(props, property{key, value})
}

func (r *Renderer) properties(p *printer, props []property) {
	keyWidth := 0
	for _, prop := range props {
		keyWidth = max(keyWidth, width(prop.key)+1)
	}

	for _, prop := range props {
		p.print(r.label, pad(prop.key+":", keyWidth))
		p.line(nil, strings.TrimRight(" "+prop.value, " "))
	}
}

type table struct {
	headers []string
	rows    [][]string
}

func (r *Renderer) table(p *printer, t table) {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], width(cell))
		}
	}

	rules := make([]string, len(widths))
	for i, n := range widths {
		rules[i] = strings.Repeat("─", n)
	}

	p.line(r.heading, joinRow(t.headers, widths))
	p.line(r.rule, joinRow(rules, widths))
	for _, row := range t.rows {
		p.line(nil, joinRow(row, widths))
	}
}

// joinRow pads every cell but the last and trims trailing blanks so empty cells at the end
// of a row leave no whitespace behind.
func joinRow(cells []string, widths []int) string {
	var b strings.Builder
	for i, cell := range cells {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(pad(cell, widths[i]))
	}

	return strings.TrimRight(b.String(), " ")
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) print(c *color.Color, s string) {
	if p.err != nil {
		return
	}

	if c != nil && s != "" {
		s = c.Sprint(s)
	}

	_, p.err = io.WriteString(p.w, s)
}

func (p *printer) line(c *color.Color, s string) {
	p.print(c, s)
	p.print(nil, "\n")
}

func pad(s string, n int) string {
	if w := width(s); w < n {
		return s + strings.Repeat(" ", n-w)
	}

	return s
}

func width(s string) int { return utf8.RuneCountInString(s) }

func yesNo(b bool) string {
	if b {
		return "yes"
	}

	return "no"
}

func count(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}

	return fmt.Sprintf("%d %ss", n, noun)
}

func optional[T any](v *T, none ...string) string {
	if v != nil {
		return fmt.Sprint(*v)
	}

	if len(none) > 0 {
		return none[0]
	}

	return "none"
}
