package document

import (
	"reflect"
	"testing"
)

func TestParseHeadingParagraphTable(t *testing.T) {
	m := Parse("# Title\n\nSome text\n\n| a | b |\n|---|---|\n| 1 | 2 |\n")
	want := []Block{
		{Kind: KindHeading, Level: 1, Text: "Title"},
		{Kind: KindParagraph, Text: "Some text"},
		{Kind: KindTable, Table: &Table{Header: []string{"a", "b"}, Rows: [][]string{{"1", "2"}}}},
	}
	if !reflect.DeepEqual(m.Blocks, want) {
		t.Fatalf("got %#v", m.Blocks)
	}
}

func TestParseListsAndInline(t *testing.T) {
	src := "## Steps\n\n3. **Mix** the `flour`\n4. Bake at [350F](http://x.test)\n\n- one\n- two\n  - nested\n"
	m := Parse(src)
	if len(m.Blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %#v", m.Blocks)
	}
	ol := m.Blocks[1]
	if ol.Kind != KindList || !ol.Ordered || ol.Start != 3 {
		t.Fatalf("unexpected ordered list: %#v", ol)
	}
	if !reflect.DeepEqual(ol.Items, []string{"Mix the flour", "Bake at 350F"}) {
		t.Fatalf("ordered items: %#v", ol.Items)
	}
	ul := m.Blocks[2]
	if ul.Ordered || !reflect.DeepEqual(ul.Items, []string{"one", "two", "nested"}) {
		t.Fatalf("unordered list: %#v", ul)
	}
}

func TestParseSpacers(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want []Kind
	}{
		{name: "single blank line", src: "a\n\nb\n", want: []Kind{KindParagraph, KindParagraph}},
		{name: "two blank lines", src: "a\n\n\nb\n", want: []Kind{KindParagraph, KindSpacer, KindParagraph}},
		{name: "thematic break", src: "a\n\n---\n\nb\n", want: []Kind{KindParagraph, KindSpacer, KindParagraph}},
		{name: "setext heading", src: "Title\n=====\n\nbody\n", want: []Kind{KindHeading, KindParagraph}},
		{name: "code dropped", src: "a\n\n```go\nx := 1\n```\n\nb\n", want: []Kind{KindParagraph, KindParagraph}},
		{name: "quote dropped", src: "> quoted\n\nafter\n", want: []Kind{KindParagraph}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := Parse(tc.src)
			var got []Kind
			for _, b := range m.Blocks {
				got = append(got, b.Kind)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestHasTable(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"a|b\n-|-\n1|2", true},
		{"plain text", false},
		{"| a | b |\r\n|:---|---:|\r\n| 1 | 2 |", true},
		{"a | b\n\n---|---", false},
		{"just a | pipe\n-----", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := HasTable(tc.in); got != tc.want {
			t.Fatalf("HasTable(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFirstTable(t *testing.T) {
	m := Parse("intro\n\n| x |\n|---|\n| 1 |\n\n| y |\n|---|\n")
	tbl, ok := FirstTable(m)
	if !ok || !reflect.DeepEqual(tbl.Header, []string{"x"}) {
		t.Fatalf("unexpected table: %#v", tbl)
	}
	if _, ok := FirstTable(Parse("no tables here")); ok {
		t.Fatalf("expected no table")
	}
	if hs := Parse("# a\ntext\n## b").Headings(); len(hs) != 2 || hs[1].Level != 2 {
		t.Fatalf("unexpected headings: %#v", hs)
	}
}
