package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed tools.yaml
var toolsYAML []byte

type toolFile struct {
	Tools []toolEntry `yaml:"tools"`
}

type toolEntry struct {
	ID          string       `yaml:"id"`
	Title       string       `yaml:"title"`
	Description string       `yaml:"description"`
	Category    string       `yaml:"category"`
	Icon        string       `yaml:"icon"`
	Output      string       `yaml:"output"`
	Upload      bool         `yaml:"upload"`
	GradeLevel  bool         `yaml:"grade_level"`
	NGSS        bool         `yaml:"ngss"`
	Inputs      []inputEntry `yaml:"inputs"`
	Template    string       `yaml:"template"`
}

type inputEntry struct {
	ID            string   `yaml:"id"`
	Label         string   `yaml:"label"`
	Kind          string   `yaml:"kind"`
	Placeholder   string   `yaml:"placeholder"`
	Options       []string `yaml:"options"`
	Optional      bool     `yaml:"optional"`
	AcceptsUpload bool     `yaml:"accepts_upload"`
	Default       string   `yaml:"default"`
}

// Load builds the catalog from the embedded tool file.
func Load() (*Catalog, error) {
	return parse(toolsYAML, funcTemplates)
}

func parse(raw []byte, funcs map[string]TemplateFunc) (*Catalog, error) {
	var f toolFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse tool catalog: %w", err)
	}
	defs := make([]*ToolDefinition, 0, len(f.Tools))
	for _, t := range f.Tools {
		d, err := t.definition(funcs)
		if err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	return newCatalog(defs)
}

func (t toolEntry) definition(funcs map[string]TemplateFunc) (*ToolDefinition, error) {
	d := &ToolDefinition{
		ID:          strings.TrimSpace(t.ID),
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category,
		Icon:        t.Icon,
		Output:      OutputKind(strings.ToLower(strings.TrimSpace(t.Output))),
		FileUpload:  t.Upload,
	}
	for _, in := range t.Inputs {
		spec := InputSpec{
			ID:            strings.TrimSpace(in.ID),
			Label:         in.Label,
			Kind:          InputKind(strings.TrimSpace(in.Kind)),
			Placeholder:   in.Placeholder,
			Options:       stringOptions(in.Options),
			Required:      !in.Optional,
			AcceptsUpload: in.AcceptsUpload,
			Default:       in.Default,
		}
		switch spec.Kind {
		case ShortText, MultiLineText, SingleSelect:
		case "":
			spec.Kind = ShortText
		default:
			return nil, fmt.Errorf("tool %q: input %q has unknown kind %q", d.ID, spec.ID, spec.Kind)
		}
		if len(spec.Options) == 0 {
			spec.Options = nil
		}
		if spec.AcceptsUpload && !d.FileUpload {
			return nil, fmt.Errorf("tool %q: input %q accepts uploads but the tool has none", d.ID, spec.ID)
		}
		d.Inputs = append(d.Inputs, spec)
	}
	if t.GradeLevel {
		d.Inputs = append(d.Inputs, gradeLevelInput())
	}
	if t.NGSS {
		d.Inputs = append(d.Inputs, ngssInput())
	}

	fn, hasFunc := funcs[d.ID]
	switch {
	case hasFunc && strings.TrimSpace(t.Template) != "":
		return nil, fmt.Errorf("tool %q has both a template and a template function", d.ID)
	case hasFunc:
		d.Template = Template{Func: fn}
	default:
		d.Template = Template{Text: t.Template}
	}
	return d, nil
}
