package proxy

import (
	"sort"
	"strings"
)

// claim is one occurrence of an expected form in the translator output that
// will be replaced by rendered text.
type claim struct {
	start, end int
	text       string
}

type claims []claim

func (cs claims) overlapping(start, end int) (claim, bool) {
	for _, c := range cs {
		if start < c.end && c.start < end {
			return c, true
		}
	}
	return claim{}, false
}

// find returns the first occurrence of s at or after from that does not
// overlap an existing claim, or -1.
func (cs claims) find(text, s string, from int) int {
	for from <= len(text) {
		i := strings.Index(text[from:], s)
		if i < 0 {
			return -1
		}
		start := from + i
		c, taken := cs.overlapping(start, start+len(s))
		if !taken {
			return start
		}
		from = c.end
	}
	return -1
}

// reverseMap locates every proxy's expected form in translated, left to
// right in assignment order, and replaces it with the span's rendering.
// Missing occurrences produce warnings; the affected text is left as the
// translator wrote it.
func reverseMap(translated string, a *assignment) (string, map[int]*ReverseMappingNotFound) {
	var (
		cs       claims
		cursor   int
		warnings = make(map[int]*ReverseMappingNotFound)
	)
	for _, g := range a.groups {
		expected := g.proxy.Expected
		rendered := g.span.Rendered()

		found := 0
		from := cursor
		for found < g.positions {
			start := cs.find(translated, expected, from)
			if start < 0 {
				break
			}
			end := start + len(expected)
			cs = append(cs, claim{start: start, end: end, text: rendered})
			if found == 0 {
				cursor = end
			}
			from = end
			found++
		}
		if found < g.positions {
			warnings[g.proxy.ID] = &ReverseMappingNotFound{
				ProxyID:  g.proxy.ID,
				Expected: expected,
				Wanted:   g.positions,
				Found:    found,
				Partial:  found > 0,
			}
		}
	}

	if len(cs) == 0 {
		return translated, warnings
	}
	sort.Slice(cs, func(i, j int) bool { return cs[i].start < cs[j].start })
	var b strings.Builder
	last := 0
	for _, c := range cs {
		b.WriteString(translated[last:c.start])
		b.WriteString(c.text)
		last = c.end
	}
	b.WriteString(translated[last:])
	return b.String(), warnings
}
