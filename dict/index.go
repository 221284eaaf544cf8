package dict

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText returns the canonical (NFC) form used for index keys.
// Matching runs on NFC input, so composed and decomposed kana or accented
// Latin letters hit the same entry.
func NormalizeText(s string) string {
	return norm.NFC.String(s)
}

// Index is the read-only, per-context lookup table over name and suffix
// entries. It is built once and may be shared by any number of goroutines.
type Index struct {
	context  string
	names    map[string][]Entry
	suffixes map[string][]Entry

	// Distinct key lengths in bytes, longest first.
	nameLens   []int
	suffixLens []int
	size       int
}

// NewIndex builds the index for one context. Entries from other contexts
// are ignored. Candidates sharing a source text keep their input order.
func NewIndex(contextID string, entries []Entry) *Index {
	idx := &Index{
		context:  contextID,
		names:    make(map[string][]Entry),
		suffixes: make(map[string][]Entry),
	}
	for _, e := range entries {
		if e.Context != contextID || e.Source == "" {
			continue
		}
		e.Source = NormalizeText(e.Source)
		switch e.Kind {
		case KindName:
			idx.names[e.Source] = append(idx.names[e.Source], e)
		case KindSuffix:
			idx.suffixes[e.Source] = append(idx.suffixes[e.Source], e)
		default:
			continue
		}
		idx.size++
	}
	idx.nameLens = keyLengths(idx.names)
	idx.suffixLens = keyLengths(idx.suffixes)
	return idx
}

func keyLengths(m map[string][]Entry) []int {
	seen := make(map[int]bool, len(m))
	var lens []int
	for k := range m {
		if !seen[len(k)] {
			seen[len(k)] = true
			lens = append(lens, len(k))
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(lens)))
	return lens
}

// Context returns the context the index was built for.
func (idx *Index) Context() string {
	if idx == nil {
		return ""
	}
	return idx.context
}

// Len returns the number of indexed entries.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return idx.size
}

// Names returns the name candidates for an exact source text.
func (idx *Index) Names(text string) []Entry {
	if idx == nil {
		return nil
	}
	return idx.names[text]
}

// Suffixes returns the suffix candidates for an exact source text.
func (idx *Index) Suffixes(text string) []Entry {
	if idx == nil {
		return nil
	}
	return idx.suffixes[text]
}

// Lookup returns every candidate (names first, then suffixes) for text.
// The text is normalized before lookup.
func (idx *Index) Lookup(text string) []Entry {
	if idx == nil {
		return nil
	}
	key := NormalizeText(text)
	names, suffixes := idx.names[key], idx.suffixes[key]
	out := make([]Entry, 0, len(names)+len(suffixes))
	out = append(out, names...)
	return append(out, suffixes...)
}

// NameLengths returns the distinct byte lengths of name keys, longest first.
// The slice must not be modified.
func (idx *Index) NameLengths() []int {
	if idx == nil {
		return nil
	}
	return idx.nameLens
}

// SuffixLengths returns the distinct byte lengths of suffix keys, longest
// first. The slice must not be modified.
func (idx *Index) SuffixLengths() []int {
	if idx == nil {
		return nil
	}
	return idx.suffixLens
}

// ---------------------------------------------------------------------------
// Sources
// ---------------------------------------------------------------------------

// Source resolves the index of a context.
type Source interface {
	Index(ctx context.Context, contextID string) (*Index, error)
}

// ErrUnknownContext is returned by a strict Catalog for contexts it does not
// hold.
var ErrUnknownContext = errors.New("unknown dictionary context")

// Catalog is an in-memory Source. All indexes are built up front and never
// change afterwards.
type Catalog struct {
	indexes map[string]*Index
	strict  bool
}

// NewCatalog groups the Name and Suffix records by context and builds one
// index per context. Term records are skipped.
func NewCatalog(records []Record) *Catalog {
	byContext := make(map[string][]Entry)
	for _, r := range records {
		e, ok := r.Entry()
		if !ok {
			continue
		}
		byContext[e.Context] = append(byContext[e.Context], e)
	}
	c := &Catalog{indexes: make(map[string]*Index, len(byContext))}
	for id, entries := range byContext {
		c.indexes[id] = NewIndex(id, entries)
	}
	return c
}

// Strict makes Index fail with ErrUnknownContext for missing contexts
// instead of returning an empty index.
func (c *Catalog) Strict() *Catalog {
	c.strict = true
	return c
}

// Index implements Source.
func (c *Catalog) Index(_ context.Context, contextID string) (*Index, error) {
	if idx, ok := c.indexes[contextID]; ok {
		return idx, nil
	}
	if c.strict {
		return nil, fmt.Errorf("%w: %q", ErrUnknownContext, contextID)
	}
	return NewIndex(contextID, nil), nil
}

// Contexts returns the context IDs held by the catalog, sorted.
func (c *Catalog) Contexts() []string {
	ids := make([]string, 0, len(c.indexes))
	for id := range c.indexes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
