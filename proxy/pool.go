package proxy

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/minios-linux/nameproxy/dict"
)

// Placeholder is one safe name from the pool.
type Placeholder struct {
	// Source is inserted into the sentence sent to the translator.
	Source string `json:"source"`
	// Expected is the form the translator reliably produces for Source.
	Expected string `json:"expected"`
	// Role is the gender/position the placeholder stands in for.
	Role dict.Role `json:"role"`
}

// Pool is the ordered, role-partitioned set of placeholders. It is fixed
// configuration: assignment state lives in each call, never in the pool.
type Pool struct {
	all    []Placeholder
	byRole map[dict.Role][]Placeholder
}

// NewPool validates the placeholders and partitions them by role, keeping
// their order within each role. Source and Expected forms must be unique
// across the whole pool, and no Expected form may contain another.
func NewPool(placeholders []Placeholder) (*Pool, error) {
	p := &Pool{byRole: make(map[dict.Role][]Placeholder)}
	sources := make(map[string]bool, len(placeholders))
	expected := make(map[string]bool, len(placeholders))
	for i, ph := range placeholders {
		if ph.Source == "" || ph.Expected == "" {
			return nil, fmt.Errorf("placeholder #%d: source and expected are required", i+1)
		}
		if sources[ph.Source] {
			return nil, fmt.Errorf("placeholder #%d: duplicate source %q", i+1, ph.Source)
		}
		if expected[ph.Expected] {
			return nil, fmt.Errorf("placeholder #%d: duplicate expected form %q", i+1, ph.Expected)
		}
		for _, prev := range p.all {
			if strings.Contains(ph.Expected, prev.Expected) || strings.Contains(prev.Expected, ph.Expected) {
				return nil, fmt.Errorf("placeholder #%d: expected form %q overlaps %q", i+1, ph.Expected, prev.Expected)
			}
		}
		sources[ph.Source] = true
		expected[ph.Expected] = true
		p.all = append(p.all, ph)
		p.byRole[ph.Role] = append(p.byRole[ph.Role], ph)
	}
	return p, nil
}

// MustPool is NewPool that panics on invalid input. Meant for tests and
// package-level literals.
func MustPool(placeholders []Placeholder) *Pool {
	p, err := NewPool(placeholders)
	if err != nil {
		panic(err)
	}
	return p
}

// Size returns the number of placeholders available for role.
func (p *Pool) Size(role dict.Role) int {
	if p == nil {
		return 0
	}
	return len(p.byRole[role])
}

// Len returns the total number of placeholders.
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.all)
}

// Placeholders returns a copy of the pool in configuration order.
func (p *Pool) Placeholders() []Placeholder {
	if p == nil {
		return nil
	}
	return append([]Placeholder(nil), p.all...)
}

func (p *Pool) at(role dict.Role, i int) (Placeholder, bool) {
	if p == nil || i >= len(p.byRole[role]) {
		return Placeholder{}, false
	}
	return p.byRole[role][i], true
}

// ---------------------------------------------------------------------------
// Pool files
// ---------------------------------------------------------------------------

// PoolEntry is the on-disk form of a placeholder.
type PoolEntry struct {
	Source   string `yaml:"source" mapstructure:"source"`
	Expected string `yaml:"expected" mapstructure:"expected"`
	Role     string `yaml:"role" mapstructure:"role"`
}

// PoolFromEntries parses roles and builds a pool.
func PoolFromEntries(entries []PoolEntry) (*Pool, error) {
	placeholders := make([]Placeholder, 0, len(entries))
	for i, e := range entries {
		role, err := dict.ParseRole(e.Role)
		if err != nil {
			return nil, fmt.Errorf("placeholder #%d: %w", i+1, err)
		}
		placeholders = append(placeholders, Placeholder{
			Source:   strings.TrimSpace(e.Source),
			Expected: strings.TrimSpace(e.Expected),
			Role:     role,
		})
	}
	return NewPool(placeholders)
}

// LoadPool reads a YAML pool file:
//
//	pool:
//	  - {source: 太郎, expected: Taro, role: main-male}
//	  - {source: 花子, expected: Hanako, role: main-female}
func LoadPool(path string) (*Pool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pool file: %w", err)
	}
	var f struct {
		Pool []PoolEntry `yaml:"pool"`
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing pool file %s: %w", path, err)
	}
	pool, err := PoolFromEntries(f.Pool)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pool, nil
}
