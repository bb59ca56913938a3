package caption

import (
	"math"
	"testing"
)

const sample = `1
00:00:00,000 --> 00:00:02,000
Hello

2
00:00:02,000 --> 00:00:04,500
Happy birthday
from all of us

3
01:02:03,004 --> 01:02:05,000
Last line
`

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestParseWellFormed(t *testing.T) {
	tl := Parse(sample)
	want := []Span{
		{Start: 0, End: 2, Text: "Hello"},
		{Start: 2, End: 4.5, Text: "Happy birthday\nfrom all of us"},
		{Start: 3723.004, End: 3725, Text: "Last line"},
	}
	if len(tl) != len(want) {
		t.Fatalf("got %d spans, want %d: %#v", len(tl), len(want), tl)
	}
	for i, s := range tl {
		if !approx(s.Start, want[i].Start) || !approx(s.End, want[i].End) || s.Text != want[i].Text {
			t.Errorf("span %d = %#v, want %#v", i, s, want[i])
		}
		if s.Start >= s.End {
			t.Errorf("span %d: start %v not before end %v", i, s.Start, s.End)
		}
		if i > 0 && tl[i-1].Start > s.Start {
			t.Errorf("span %d out of document order", i)
		}
	}
}

func TestParseLineEndings(t *testing.T) {
	crlf := "1\r\n00:00:01,000 --> 00:00:02,000\r\nA\r\nB\r\n\r\n2\r\n00:00:03,000 --> 00:00:04,000\r\nC"
	tl := Parse(crlf)
	if len(tl) != 2 {
		t.Fatalf("got %d spans, want 2", len(tl))
	}
	if tl[0].Text != "A\nB" {
		t.Errorf("text = %q, want %q", tl[0].Text, "A\nB")
	}
	if tl[1].Text != "C" {
		t.Errorf("text = %q, want %q", tl[1].Text, "C")
	}
}

func TestParseByteOrderMark(t *testing.T) {
	tl := Parse("\ufeff1\n00:00:00,000 --> 00:00:01,000\na\n\n2\n00:00:01,000 --> 00:00:02,000\nb\n")
	if len(tl) != 2 {
		t.Fatalf("got %d spans, want 2: %#v", len(tl), tl)
	}
	if tl[0].Text != "a" || !approx(tl[0].Start, 0) || !approx(tl[0].End, 1) {
		t.Errorf("first span = %#v", tl[0])
	}

	tl = Parse("\ufeff1\r\n00:00:00,000 --> 00:00:01,000\r\na\r\n")
	if len(tl) != 1 || tl[0].Text != "a" {
		t.Errorf("CRLF with BOM = %#v", tl)
	}
}

func TestParseMalformedBlocks(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		texts []string
	}{
		{
			name:  "corrupted timestamp in middle block",
			in:    "1\n00:00:00,000 --> 00:00:01,000\na\n\n2\n00:00:0x,000 --> 00:00:02,000\nb\n\n3\n00:00:02,000 --> 00:00:03,000\nc\n",
			texts: []string{"a", "c"},
		},
		{
			name:  "bad index",
			in:    "x1\n00:00:00,000 --> 00:00:01,000\na\n\n2\n00:00:01,000 --> 00:00:02,000\nb\n",
			texts: []string{"b"},
		},
		{
			name:  "no blank line at end of input",
			in:    "1\n00:00:00,000 --> 00:00:01,000\na",
			texts: []string{"a"},
		},
		{
			name:  "index at end of input",
			in:    "1\n00:00:00,000 --> 00:00:01,000\na\n\n2\n",
			texts: []string{"a"},
		},
		{
			name:  "missing text",
			in:    "1\n00:00:00,000 --> 00:00:01,000\n\n2\n00:00:01,000 --> 00:00:02,000\nb\n",
			texts: []string{"", "b"},
		},
		{
			name:  "junk before time range",
			in:    "1\nx00:00:05,000 --> 00:00:06,000garbage\na\n\n2\n00:00:06,000 --> 00:00:07,000 X1:10 X2:20\nb\n",
			texts: []string{"b"},
		},
		{
			name:  "dot separator is rejected",
			in:    "1\n00:00:00.000 --> 00:00:01.000\na\n",
			texts: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tl := Parse(tc.in)
			if len(tl) != len(tc.texts) {
				t.Fatalf("got %d spans, want %d: %#v", len(tl), len(tc.texts), tl)
			}
			for i, s := range tl {
				if s.Text != tc.texts[i] {
					t.Errorf("span %d text = %q, want %q", i, s.Text, tc.texts[i])
				}
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\n"} {
		tl := Parse(in)
		if tl == nil || len(tl) != 0 {
			t.Errorf("Parse(%q) = %#v, want empty timeline", in, tl)
		}
	}
}

func TestParseKeepsDocumentOrder(t *testing.T) {
	in := "1\n00:00:05,000 --> 00:00:06,000\nlate\n\n2\n00:00:01,000 --> 00:00:02,000\nearly\n"
	tl := Parse(in)
	if len(tl) != 2 || tl[0].Text != "late" || tl[1].Text != "early" {
		t.Fatalf("expected document order to be preserved, got %#v", tl)
	}
}

func TestActiveText(t *testing.T) {
	tl := Timeline{
		{Start: 0, End: 2, Text: "a"},
		{Start: 2, End: 4, Text: "b"},
	}
	tests := []struct {
		at   float64
		want string
	}{
		{0, "a"},
		{1.999, "a"},
		{2.0, "b"},
		{3.5, "b"},
		{4, ""},
		{5, ""},
		{-1, ""},
	}
	for _, tc := range tests {
		if got := tl.ActiveText(tc.at); got != tc.want {
			t.Errorf("ActiveText(%v) = %q, want %q", tc.at, got, tc.want)
		}
	}
}

func TestTimelineEnd(t *testing.T) {
	if got := (Timeline{}).End(); got != 0 {
		t.Errorf("empty End() = %v, want 0", got)
	}
	tl := Parse(sample)
	if got := tl.End(); !approx(got, 3725) {
		t.Errorf("End() = %v, want 3725", got)
	}
}
