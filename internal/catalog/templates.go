package catalog

import (
	"strings"
)

// funcTemplates holds the tools whose prompt branches on optional fields.
var funcTemplates = map[string]TemplateFunc{
	"lesson-plan":    lessonPlan,
	"unit-plan":      unitPlan,
	"quiz-generator": quiz,
	"code-explainer": codeExplainer,
}

func lessonPlan(f Fields, uploaded string) string {
	var b strings.Builder
	b.WriteString("As an expert instructional designer, create a detailed lesson plan for a ")
	b.WriteString(f[GradeLevelInputID])
	b.WriteString(" class on the topic of \"")
	b.WriteString(f["topic"])
	b.WriteString("\".")
	if f.Has(NGSSInputID) {
		b.WriteString(" The lesson plan should be aligned with the following NGSS standard: ")
		b.WriteString(f[NGSSInputID])
		b.WriteString(".")
	}
	if f.Has("objectives") {
		b.WriteString("\n\nThe specific learning objectives are: ")
		b.WriteString(f["objectives"])
		b.WriteString(".")
	}
	writeReference(&b, uploaded)
	b.WriteString(`

The plan should include:
- A clear and engaging introduction/hook.
- Direct instruction content.
- A guided practice activity.
- An independent practice activity.
- An assessment method (e.g., exit ticket, quiz).
- Differentiation strategies for diverse learners.
- Estimated timings for each section.
Format the output professionally using markdown.`)
	return b.String()
}

func unitPlan(f Fields, uploaded string) string {
	var b strings.Builder
	b.WriteString("As an expert curriculum developer, generate a comprehensive unit plan for a ")
	b.WriteString(f[GradeLevelInputID])
	b.WriteString(" class covering the topic \"")
	b.WriteString(f["topic"])
	b.WriteString("\" over a duration of ")
	b.WriteString(f["duration"])
	b.WriteString(".")
	if f.Has(NGSSInputID) {
		b.WriteString("\nThe unit must be aligned with NGSS standard: ")
		b.WriteString(f[NGSSInputID])
		b.WriteString(".")
	}
	writeReference(&b, uploaded)
	b.WriteString(`
The plan should include:
- Overarching unit goals and essential questions.
- A sequence of 5-7 lesson titles with brief descriptions.
- Key vocabulary terms.
- Project-based learning or summative assessment ideas.
- Necessary materials and resources.
Format the output professionally using markdown tables where appropriate.`)
	return b.String()
}

func quiz(f Fields, uploaded string) string {
	var b strings.Builder
	b.WriteString("Generate a ")
	b.WriteString(f["questions"])
	b.WriteString("-question multiple-choice quiz for ")
	b.WriteString(f[GradeLevelInputID])
	b.WriteString(" students on the topic of \"")
	b.WriteString(f["topic"])
	b.WriteString("\".")
	if strings.TrimSpace(uploaded) != "" {
		b.WriteString("\nBase the quiz on the following context:\n")
		b.WriteString(uploaded)
	}
	b.WriteString(`
For each question, provide 4 answer choices with one clear correct answer.
After all the questions, provide a separate answer key.`)
	return b.String()
}

func codeExplainer(f Fields, _ string) string {
	lang := strings.TrimSpace(f["language"])
	var b strings.Builder
	b.WriteString("Explain the following ")
	b.WriteString(lang)
	b.WriteString(" code snippet line-by-line, as if you were explaining it to a beginner.\n\nCode:\n```")
	b.WriteString(strings.ToLower(lang))
	b.WriteString("\n")
	b.WriteString(f["codeSnippet"])
	b.WriteString("\n```\n")
	return b.String()
}

func writeReference(b *strings.Builder, uploaded string) {
	if strings.TrimSpace(uploaded) == "" {
		return
	}
	b.WriteString("\n\nUse the following material as reference:\n---\n")
	b.WriteString(uploaded)
	b.WriteString("\n---")
}
