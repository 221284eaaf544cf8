package proxy

import (
	"strings"

	"github.com/minios-linux/nameproxy/dict"
)

// Proxy is a placeholder bound to one distinct span text within a call.
type Proxy struct {
	// ID is the position in assignment order, starting at 0.
	ID int `json:"id"`
	Placeholder
}

// group is one distinct span text and every position it occurred at.
type group struct {
	proxy     Proxy
	span      Span
	positions int
}

// assignment maps distinct span text to its proxy for a single call.
type assignment struct {
	groups []*group
	byText map[string]*group
}

// assign walks spans in scan order and binds each distinct text to the next
// unused placeholder of its role.
func assign(spans []Span, pool *Pool) (*assignment, error) {
	a := &assignment{byText: make(map[string]*group, len(spans))}
	next := make(map[dict.Role]int)
	for _, sp := range spans {
		if g, ok := a.byText[sp.Text]; ok {
			g.positions++
			continue
		}
		role := sp.Role()
		ph, ok := pool.at(role, next[role])
		if !ok {
			return nil, &PoolExhaustedError{Role: role, Size: pool.Size(role)}
		}
		next[role]++
		g := &group{
			proxy:     Proxy{ID: len(a.groups), Placeholder: ph},
			span:      sp,
			positions: 1,
		}
		a.groups = append(a.groups, g)
		a.byText[sp.Text] = g
	}
	return a, nil
}

// substitute replaces each span's byte range with its proxy's source form.
func (a *assignment) substitute(text string, spans []Span) string {
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, sp := range spans {
		b.WriteString(text[last:sp.Start])
		b.WriteString(a.byText[sp.Text].proxy.Source)
		last = sp.End
	}
	b.WriteString(text[last:])
	return b.String()
}

func (a *assignment) proxies() []Proxy {
	out := make([]Proxy, len(a.groups))
	for i, g := range a.groups {
		out[i] = g.proxy
	}
	return out
}
