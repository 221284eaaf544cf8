package dict

import (
	"fmt"
	"strings"
)

// RecordKind tags the variant of a dictionary record.
type RecordKind int

const (
	RecordName RecordKind = iota
	RecordSuffix
	// RecordTerm is a plain glossary term. It is stored and listed but
	// never substituted by the proxy engine.
	RecordTerm
)

func (k RecordKind) String() string {
	switch k {
	case RecordName:
		return "name"
	case RecordSuffix:
		return "suffix"
	case RecordTerm:
		return "term"
	}
	return fmt.Sprintf("record(%d)", int(k))
}

// ParseRecordKind parses "name", "suffix" or "term" (case-insensitive).
// An empty kind defaults to name.
func ParseRecordKind(s string) (RecordKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "name":
		return RecordName, nil
	case "suffix", "honorific":
		return RecordSuffix, nil
	case "term":
		return RecordTerm, nil
	}
	return RecordName, fmt.Errorf("unknown record kind %q (valid: name, suffix, term)", s)
}

// RawRecord is a dictionary row as read from any on-disk format, before
// validation. All fields are untrimmed strings.
type RawRecord struct {
	Context string `yaml:"context"`
	Kind    string `yaml:"kind"`
	Source  string `yaml:"source"`
	Target  string `yaml:"target"`
	Role    string `yaml:"role"`
}

// Record is a validated dictionary row. Kind selects the variant; Role is
// set only for RecordName.
type Record struct {
	Kind    RecordKind
	Context string
	Source  string
	Target  string
	Role    Role
}

// Normalize validates a raw row and turns it into a Record. It is the only
// place where rows from every loader are interpreted.
func Normalize(raw RawRecord) (Record, error) {
	kind, err := ParseRecordKind(raw.Kind)
	if err != nil {
		return Record{}, err
	}
	rec := Record{
		Kind:    kind,
		Context: strings.TrimSpace(raw.Context),
		Source:  NormalizeText(strings.TrimSpace(raw.Source)),
		Target:  strings.TrimSpace(raw.Target),
	}
	if rec.Context == "" {
		return Record{}, fmt.Errorf("%s %q: missing context", kind, raw.Source)
	}
	if rec.Source == "" {
		return Record{}, fmt.Errorf("%s in context %q: missing source text", kind, rec.Context)
	}
	if rec.Target == "" {
		return Record{}, fmt.Errorf("%s %q: missing target text", kind, rec.Source)
	}

	switch kind {
	case RecordName:
		role, err := ParseRole(raw.Role)
		if err != nil {
			return Record{}, fmt.Errorf("name %q: %w", rec.Source, err)
		}
		rec.Role = role
	case RecordSuffix:
		if strings.TrimSpace(raw.Role) != "" {
			return Record{}, fmt.Errorf("suffix %q: suffixes cannot carry a role", rec.Source)
		}
	}
	return rec, nil
}

// Entry converts a Name or Suffix record into an index entry. Terms have
// no entry form.
func (r Record) Entry() (Entry, bool) {
	switch r.Kind {
	case RecordName:
		return Entry{Source: r.Source, Target: r.Target, Role: r.Role, Context: r.Context, Kind: KindName}, true
	case RecordSuffix:
		return Entry{Source: r.Source, Target: r.Target, Context: r.Context, Kind: KindSuffix}, true
	}
	return Entry{}, false
}

// NormalizeAll normalizes every raw row, reporting the first failure with its
// 1-based row number.
func NormalizeAll(raws []RawRecord) ([]Record, error) {
	out := make([]Record, 0, len(raws))
	for i, raw := range raws {
		rec, err := Normalize(raw)
		if err != nil {
			return nil, fmt.Errorf("record #%d: %w", i+1, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
