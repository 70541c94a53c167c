// Package prompt turns submitted form values into the request text sent to a generation backend.
package prompt

import (
	"fmt"
	"strings"

	"github.com/yungbote/edutools-backend/internal/catalog"
)

var ErrUnresolvedPlaceholder = catalog.ErrUnresolvedPlaceholder

// ValidationError names the first input that blocked a submit.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Fields returns the submitted values with defaults applied for every declared input.
// Undeclared keys are dropped.
func Fields(def *catalog.ToolDefinition, values map[string]string) catalog.Fields {
	out := make(catalog.Fields, len(def.Inputs))
	for _, in := range def.Inputs {
		v := values[in.ID]
		if strings.TrimSpace(v) == "" && in.Default != "" {
			v = in.Default
		}
		out[in.ID] = v
	}
	return out
}

// Validate rejects a submit when a required input is blank after trimming or a select value is
// not one of its options. An input that accepts uploads is satisfied by uploaded text.
func Validate(def *catalog.ToolDefinition, values map[string]string, uploaded string) error {
	f := Fields(def, values)
	hasUpload := def.FileUpload && strings.TrimSpace(uploaded) != ""
	for _, in := range def.Inputs {
		if in.Kind == catalog.SingleSelect && f.Has(in.ID) && !in.HasOption(f[in.ID]) {
			return &ValidationError{
				Field:   in.ID,
				Message: fmt.Sprintf("%s: %q is not a valid option", in.Label, f[in.ID]),
			}
		}
		if !in.Required || f.Has(in.ID) {
			continue
		}
		if in.AcceptsUpload && hasUpload {
			continue
		}
		msg := fmt.Sprintf("%s is required", in.Label)
		if in.AcceptsUpload {
			msg = fmt.Sprintf("%s is required: enter text or upload a file", in.Label)
		}
		return &ValidationError{Field: in.ID, Message: msg}
	}
	return nil
}

// Build assembles the prompt for def. Callers run Validate first.
func Build(def *catalog.ToolDefinition, values map[string]string, uploaded string) (string, error) {
	if !def.FileUpload {
		uploaded = ""
	}
	f := Fields(def, values)
	context := uploaded
	if in, ok := def.ContextInput(); ok && f.Has(in.ID) {
		context = f[in.ID]
	}
	p, err := def.Template.Produce(f, context)
	if err != nil {
		return "", fmt.Errorf("build prompt for %s: %w", def.ID, err)
	}
	return p, nil
}
