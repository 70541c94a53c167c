package document

import (
	"bytes"
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// Parse builds the block model for src. Code blocks, HTML and block quotes are dropped.
// A spacer marks a thematic break or two or more blank lines between blocks.
func Parse(src string) Model {
	source := []byte(src)
	root := md.Parser().Parse(text.NewReader(source))
	lines := newLineIndex(source)

	var m Model
	prevEnd := -1
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		start, end, ok := lines.span(n, source)
		if ok && prevEnd >= 0 && start-prevEnd-1 >= 2 {
			m.Blocks = append(m.Blocks, Block{Kind: KindSpacer})
		}
		if ok {
			prevEnd = end
		} else {
			prevEnd = -1
		}

		switch v := n.(type) {
		case *ast.Heading:
			m.Blocks = append(m.Blocks, Block{Kind: KindHeading, Level: v.Level, Text: inlineText(v, source)})
		case *ast.Paragraph, *ast.TextBlock:
			if t := inlineText(v, source); t != "" {
				m.Blocks = append(m.Blocks, Block{Kind: KindParagraph, Text: t})
			}
		case *ast.List:
			b := Block{Kind: KindList, Ordered: v.IsOrdered()}
			if b.Ordered {
				b.Start = v.Start
			}
			b.Items = listItems(v, source, nil)
			m.Blocks = append(m.Blocks, b)
		case *east.Table:
			m.Blocks = append(m.Blocks, Block{Kind: KindTable, Table: table(v, source)})
		case *ast.ThematicBreak:
			m.Blocks = append(m.Blocks, Block{Kind: KindSpacer})
		}
	}
	return m
}

// Nested lists are flattened into their parent, after the item that holds them.
func listItems(l *ast.List, source []byte, out []string) []string {
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		var parts []string
		var nested []*ast.List
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if sub, ok := c.(*ast.List); ok {
				nested = append(nested, sub)
				continue
			}
			if t := inlineText(c, source); t != "" {
				parts = append(parts, t)
			}
		}
		out = append(out, strings.Join(parts, " "))
		for _, sub := range nested {
			out = listItems(sub, source, out)
		}
	}
	return out
}

func table(t *east.Table, source []byte) *Table {
	out := &Table{}
	for r := t.FirstChild(); r != nil; r = r.NextSibling() {
		var cells []string
		for c := r.FirstChild(); c != nil; c = c.NextSibling() {
			cells = append(cells, inlineText(c, source))
		}
		if _, ok := r.(*east.TableHeader); ok {
			out.Header = cells
			continue
		}
		out.Rows = append(out.Rows, cells)
	}
	return out
}

// inlineText flattens the inline content under n, dropping emphasis markers and link targets.
func inlineText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := c.(type) {
		case *ast.Text:
			b.Write(v.Value(source))
			switch {
			case v.HardLineBreak():
				b.WriteByte('\n')
			case v.SoftLineBreak():
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		case *ast.AutoLink:
			b.Write(v.Label(source))
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.List:
			if c != n {
				return ast.WalkSkipChildren, nil
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

type lineIndex struct {
	source   []byte
	newlines []int
}

func newLineIndex(source []byte) lineIndex {
	var nl []int
	for i, c := range source {
		if c == '\n' {
			nl = append(nl, i)
		}
	}
	return lineIndex{source: source, newlines: nl}
}

func (li lineIndex) line(pos int) int {
	return sort.SearchInts(li.newlines, pos)
}

// span returns the first and last source line of a top-level block. Fence and setext
// underline lines are not part of a block's content lines, so they are added back here.
func (li lineIndex) span(n ast.Node, source []byte) (int, int, bool) {
	lo, hi := -1, -1
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := c.(*ast.Text); ok {
			lo, hi = widen(lo, hi, t.Segment.Start, t.Segment.Stop)
			return ast.WalkContinue, nil
		}
		if c.Type() != ast.TypeBlock {
			return ast.WalkContinue, nil
		}
		ls := c.Lines()
		if ls.Len() > 0 {
			lo, hi = widen(lo, hi, ls.At(0).Start, ls.At(ls.Len()-1).Stop)
		}
		return ast.WalkContinue, nil
	})
	if lo < 0 {
		return 0, 0, false
	}
	first := li.line(lo)
	last := li.line(li.lastContent(lo, hi))
	switch n.(type) {
	case *ast.FencedCodeBlock:
		first--
		if li.isFence(last + 1) {
			last++
		}
	case *ast.Heading:
		if li.isSetextUnderline(last + 1) {
			last++
		}
	}
	return first, last, true
}

func widen(lo, hi, start, stop int) (int, int) {
	if lo < 0 || start < lo {
		lo = start
	}
	if stop > hi {
		hi = stop
	}
	return lo, hi
}

func (li lineIndex) lastContent(lo, hi int) int {
	p := hi - 1
	if p < lo {
		return lo
	}
	for p > lo && (li.source[p] == '\n' || li.source[p] == '\r' || li.source[p] == ' ' || li.source[p] == '\t') {
		p--
	}
	return p
}

func (li lineIndex) lineText(n int) []byte {
	if n < 0 || n > len(li.newlines) {
		return nil
	}
	start := 0
	if n > 0 {
		start = li.newlines[n-1] + 1
	}
	end := len(li.source)
	if n < len(li.newlines) {
		end = li.newlines[n]
	}
	return bytes.TrimSpace(li.source[start:end])
}

func (li lineIndex) isFence(n int) bool {
	l := li.lineText(n)
	return bytes.HasPrefix(l, []byte("```")) || bytes.HasPrefix(l, []byte("~~~"))
}

func (li lineIndex) isSetextUnderline(n int) bool {
	l := li.lineText(n)
	return len(l) > 0 && (len(bytes.Trim(l, "=")) == 0 || len(bytes.Trim(l, "-")) == 0)
}

var separatorRow = regexp.MustCompile(`^\s*\|?\s*:?-+:?\s*(\|\s*:?-+:?\s*)*\|?\s*$`)

// HasTable reports whether text holds a pipe-delimited row immediately followed by a
// separator row of dashes.
func HasTable(text string) bool {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i := 1; i < len(lines); i++ {
		sep := lines[i]
		if !strings.Contains(sep, "|") || !separatorRow.MatchString(sep) {
			continue
		}
		if row := strings.TrimSpace(lines[i-1]); strings.Contains(row, "|") && !separatorRow.MatchString(row) {
			return true
		}
	}
	return false
}
