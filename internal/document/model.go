// Package document parses generated Markdown into the block model the export renderers consume.
package document

type Kind string

const (
	KindHeading   Kind = "heading"
	KindParagraph Kind = "paragraph"
	KindList      Kind = "list"
	KindTable     Kind = "table"
	KindSpacer    Kind = "spacer"
)

type Table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Block is one top-level element. Which fields are set depends on Kind.
type Block struct {
	Kind    Kind     `json:"kind"`
	Text    string   `json:"text,omitempty"`
	Level   int      `json:"level,omitempty"`
	Ordered bool     `json:"ordered,omitempty"`
	Start   int      `json:"start,omitempty"`
	Items   []string `json:"items,omitempty"`
	Table   *Table   `json:"table,omitempty"`
}

type Model struct {
	Blocks []Block `json:"blocks"`
}

// Headings returns the heading blocks in source order.
func (m Model) Headings() []Block {
	var out []Block
	for _, b := range m.Blocks {
		if b.Kind == KindHeading {
			out = append(out, b)
		}
	}
	return out
}

// FirstTable returns the first table block.
func FirstTable(m Model) (*Table, bool) {
	for _, b := range m.Blocks {
		if b.Kind == KindTable && b.Table != nil {
			return b.Table, true
		}
	}
	return nil, false
}
