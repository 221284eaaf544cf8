package proxy

import (
	"strings"
	"unicode/utf8"

	"github.com/minios-linux/nameproxy/dict"
)

// DefaultJoinMarker joins two names into one compound span (katakana middle
// dot, U+30FB).
const DefaultJoinMarker = "・"

// Shape is the structure of a matched span. Larger values win ties.
type Shape int

const (
	ShapeSolo Shape = iota
	ShapeSoloSuffix
	ShapeCompound
	ShapeCompoundSuffix
)

func (s Shape) String() string {
	switch s {
	case ShapeSolo:
		return "solo"
	case ShapeSoloSuffix:
		return "solo+suffix"
	case ShapeCompound:
		return "compound"
	case ShapeCompoundSuffix:
		return "compound+suffix"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (s Shape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Span is one matched region of the (normalized) input.
type Span struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
	Shape Shape  `json:"shape"`
	// Names holds one entry for solo shapes, two for compounds.
	Names  []dict.Entry `json:"names"`
	Suffix *dict.Entry  `json:"suffix,omitempty"`
}

// Role is the role that picks the span's proxy: the first name's role.
func (s Span) Role() dict.Role {
	if len(s.Names) == 0 {
		return dict.RoleNeutral
	}
	return s.Names[0].Role
}

// Rendered is the target-language text that replaces the span's proxy in
// the translated sentence.
func (s Span) Rendered() string {
	var b strings.Builder
	for i, n := range s.Names {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(n.Target)
	}
	if s.Suffix != nil {
		b.WriteString(s.Suffix.Target)
	}
	return b.String()
}

// Matcher finds non-overlapping name spans in text using one context's index.
type Matcher struct {
	idx  *dict.Index
	join string
}

// NewMatcher returns a matcher over idx. An empty join uses
// DefaultJoinMarker.
func NewMatcher(idx *dict.Index, join string) *Matcher {
	if join == "" {
		join = DefaultJoinMarker
	}
	return &Matcher{idx: idx, join: join}
}

// Match scans text left to right and returns spans in order of occurrence.
// text should already be NFC-normalized.
func (m *Matcher) Match(text string) []Span {
	if m.idx.Len() == 0 {
		return nil
	}
	var spans []Span
	for pos := 0; pos < len(text); {
		if c, ok := m.matchAt(text, pos); ok {
			spans = append(spans, c.span(text, pos))
			pos = c.end
			continue
		}
		_, size := utf8.DecodeRuneInString(text[pos:])
		pos += size
	}
	return spans
}

type candidate struct {
	shape    Shape
	end      int
	firstLen int
	names    []dict.Entry
	suffix   *dict.Entry
}

// beats orders candidates at one position: longer total match, then longer
// first name, then shape priority.
func (c candidate) beats(o candidate) bool {
	if c.end != o.end {
		return c.end > o.end
	}
	if c.firstLen != o.firstLen {
		return c.firstLen > o.firstLen
	}
	return c.shape > o.shape
}

func (c candidate) span(text string, start int) Span {
	return Span{
		Start:  start,
		End:    c.end,
		Text:   text[start:c.end],
		Shape:  c.shape,
		Names:  c.names,
		Suffix: c.suffix,
	}
}

func (m *Matcher) matchAt(text string, pos int) (candidate, bool) {
	var (
		best  candidate
		found bool
	)
	consider := func(c candidate) {
		if !found || c.beats(best) {
			best, found = c, true
		}
	}

	for _, n := range m.idx.NameLengths() {
		end := pos + n
		if end > len(text) {
			continue
		}
		firsts := m.idx.Names(text[pos:end])
		if len(firsts) == 0 {
			continue
		}
		first := firsts[0]

		consider(candidate{shape: ShapeSolo, end: end, firstLen: n, names: []dict.Entry{first}})
		if sfx, sEnd, ok := m.suffixAt(text, end); ok {
			consider(candidate{shape: ShapeSoloSuffix, end: sEnd, firstLen: n, names: []dict.Entry{first}, suffix: sfx})
		}

		if !strings.HasPrefix(text[end:], m.join) {
			continue
		}
		after := end + len(m.join)
		for _, n2 := range m.idx.NameLengths() {
			end2 := after + n2
			if end2 > len(text) {
				continue
			}
			seconds := m.idx.Names(text[after:end2])
			if len(seconds) == 0 {
				continue
			}
			pair := []dict.Entry{first, seconds[0]}
			consider(candidate{shape: ShapeCompound, end: end2, firstLen: n, names: pair})
			if sfx, sEnd, ok := m.suffixAt(text, end2); ok {
				consider(candidate{shape: ShapeCompoundSuffix, end: sEnd, firstLen: n, names: pair, suffix: sfx})
			}
		}
	}
	return best, found
}

// suffixAt returns the longest suffix starting exactly at pos.
func (m *Matcher) suffixAt(text string, pos int) (*dict.Entry, int, bool) {
	for _, n := range m.idx.SuffixLengths() {
		end := pos + n
		if end > len(text) {
			continue
		}
		if sfx := m.idx.Suffixes(text[pos:end]); len(sfx) > 0 {
			e := sfx[0]
			return &e, end, true
		}
	}
	return nil, 0, false
}
