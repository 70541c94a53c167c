package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound              = errors.New("tool not found")
	ErrUnresolvedPlaceholder = errors.New("unresolved placeholder")
)

type OutputKind string

const (
	OutputText  OutputKind = "text"
	OutputImage OutputKind = "image"
	OutputVideo OutputKind = "video"
)

type InputKind string

const (
	ShortText     InputKind = "short-text"
	MultiLineText InputKind = "multi-line-text"
	SingleSelect  InputKind = "single-select"
)

// ContextPlaceholder resolves to the typed main input, or the uploaded file text when that is empty.
const ContextPlaceholder = "CONTEXT"

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type InputSpec struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Kind        InputKind `json:"kind"`
	Placeholder string    `json:"placeholder,omitempty"`
	Options     []Option  `json:"options,omitempty"`
	Required    bool      `json:"required"`
	// AcceptsUpload marks the input an uploaded file can stand in for.
	AcceptsUpload bool   `json:"accepts_upload,omitempty"`
	Default       string `json:"default,omitempty"`
}

func (s InputSpec) HasOption(v string) bool {
	for _, o := range s.Options {
		if o.Value == v {
			return true
		}
	}
	return false
}

// Fields maps input ids to submitted values.
type Fields map[string]string

// Has reports whether id holds a non-blank value.
func (f Fields) Has(id string) bool {
	return strings.TrimSpace(f[id]) != ""
}

// TemplateFunc builds a prompt from fields and optional uploaded text.
type TemplateFunc func(f Fields, uploaded string) string

// Template is either a substitution string with {{FIELD}} tokens or a function.
type Template struct {
	Text string
	Func TemplateFunc
}

func (t Template) IsFunc() bool { return t.Func != nil }

// Produce renders the prompt. context is the resolved text for {{CONTEXT}}: the typed main input
// when present, otherwise the uploaded file text. Substitution is single-pass, so values that
// themselves contain braces are never expanded.
func (t Template) Produce(f Fields, context string) (string, error) {
	if t.Func != nil {
		return t.Func(f, context), nil
	}
	var b strings.Builder
	b.Grow(len(t.Text))
	s := t.Text
	for {
		i := strings.Index(s, "{{")
		if i < 0 {
			b.WriteString(s)
			return b.String(), nil
		}
		j := strings.Index(s[i+2:], "}}")
		if j < 0 {
			b.WriteString(s)
			return b.String(), nil
		}
		b.WriteString(s[:i])
		name := strings.TrimSpace(s[i+2 : i+2+j])
		switch v, ok := f[name]; {
		case name == ContextPlaceholder:
			b.WriteString(context)
		case ok:
			b.WriteString(v)
		default:
			return "", fmt.Errorf("%w: {{%s}}", ErrUnresolvedPlaceholder, name)
		}
		s = s[i+2+j+2:]
	}
}

type ToolDefinition struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Icon        string      `json:"icon,omitempty"`
	Output      OutputKind  `json:"output"`
	FileUpload  bool        `json:"file_upload"`
	Inputs      []InputSpec `json:"inputs"`
	Template    Template    `json:"-"`
}

func (d *ToolDefinition) Input(id string) (InputSpec, bool) {
	for _, in := range d.Inputs {
		if in.ID == id {
			return in, true
		}
	}
	return InputSpec{}, false
}

// ContextInput returns the input that an uploaded file can stand in for.
func (d *ToolDefinition) ContextInput() (InputSpec, bool) {
	for _, in := range d.Inputs {
		if in.AcceptsUpload {
			return in, true
		}
	}
	return InputSpec{}, false
}

// Catalog is read-only after construction.
type Catalog struct {
	order      []*ToolDefinition
	byID       map[string]*ToolDefinition
	categories []string
}

func newCatalog(defs []*ToolDefinition) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]*ToolDefinition, len(defs))}
	seenCat := map[string]bool{}
	for _, d := range defs {
		if err := checkDefinition(d); err != nil {
			return nil, err
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate tool id %q", d.ID)
		}
		c.byID[d.ID] = d
		c.order = append(c.order, d)
		if !seenCat[d.Category] {
			seenCat[d.Category] = true
			c.categories = append(c.categories, d.Category)
		}
	}
	return c, nil
}

func (c *Catalog) Get(id string) (*ToolDefinition, error) {
	d, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return d, nil
}

// List returns tools in catalog order, optionally filtered by category (case-insensitive).
func (c *Catalog) List(category string) []*ToolDefinition {
	category = strings.TrimSpace(category)
	out := make([]*ToolDefinition, 0, len(c.order))
	for _, d := range c.order {
		if category != "" && !strings.EqualFold(d.Category, category) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func (c *Catalog) Categories() []string {
	return append([]string(nil), c.categories...)
}

func (c *Catalog) Len() int { return len(c.order) }

func checkDefinition(d *ToolDefinition) error {
	if d == nil || strings.TrimSpace(d.ID) == "" {
		return errors.New("tool id is required")
	}
	switch d.Output {
	case OutputText, OutputImage, OutputVideo:
	default:
		return fmt.Errorf("tool %q: invalid output kind %q", d.ID, d.Output)
	}
	if len(d.Inputs) == 0 {
		return fmt.Errorf("tool %q: no inputs", d.ID)
	}
	ids := map[string]bool{}
	uploads := 0
	for _, in := range d.Inputs {
		if in.ID == "" {
			return fmt.Errorf("tool %q: input id is required", d.ID)
		}
		if ids[in.ID] {
			return fmt.Errorf("tool %q: duplicate input %q", d.ID, in.ID)
		}
		ids[in.ID] = true
		if in.Kind == SingleSelect && len(in.Options) == 0 {
			return fmt.Errorf("tool %q: select input %q has no options", d.ID, in.ID)
		}
		if in.Default != "" && in.Kind == SingleSelect && !in.HasOption(in.Default) {
			return fmt.Errorf("tool %q: default %q is not an option of %q", d.ID, in.Default, in.ID)
		}
		if in.AcceptsUpload {
			uploads++
		}
	}
	if uploads > 1 {
		return fmt.Errorf("tool %q: more than one input accepts uploads", d.ID)
	}
	if d.Template.IsFunc() {
		return nil
	}
	if strings.TrimSpace(d.Template.Text) == "" {
		return fmt.Errorf("tool %q: template is empty", d.ID)
	}
	var unknown []string
	for _, name := range Placeholders(d.Template.Text) {
		if name == ContextPlaceholder {
			if uploads == 0 {
				return fmt.Errorf("tool %q: {{%s}} used without an upload input", d.ID, ContextPlaceholder)
			}
			continue
		}
		if !ids[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("tool %q: template references undeclared fields %v", d.ID, unknown)
	}
	return nil
}

// Placeholders lists the distinct {{NAME}} tokens in s, in order of first appearance.
func Placeholders(s string) []string {
	var out []string
	seen := map[string]bool{}
	for {
		i := strings.Index(s, "{{")
		if i < 0 {
			return out
		}
		rest := s[i+2:]
		j := strings.Index(rest, "}}")
		if j < 0 {
			return out
		}
		name := strings.TrimSpace(rest[:j])
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
		s = rest[j+2:]
	}
}
