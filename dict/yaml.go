package dict

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// File is the top-level structure of a YAML dictionary file.
type File struct {
	Contexts []FileContext `yaml:"contexts"`
}

// FileContext groups the rows of one context. Rows may omit their own
// context field; it is inherited from the group.
type FileContext struct {
	ID      string      `yaml:"id"`
	Entries []RawRecord `yaml:"entries"`
}

// ParseYAML parses a YAML dictionary and normalizes every row.
func ParseYAML(data []byte) ([]Record, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing dictionary: %w", err)
	}

	var records []Record
	for i, c := range f.Contexts {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			return nil, fmt.Errorf("context #%d has no id", i+1)
		}
		for j, raw := range c.Entries {
			if strings.TrimSpace(raw.Context) == "" {
				raw.Context = id
			}
			rec, err := Normalize(raw)
			if err != nil {
				return nil, fmt.Errorf("context %q entry #%d: %w", id, j+1, err)
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

// LoadFile reads a dictionary file. Files ending in .tsv or .txt are read as
// dumps, everything else as YAML.
func LoadFile(path string) ([]Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()
		records, err := ReadDump(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return records, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	records, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// LoadFiles loads several dictionary files and concatenates their records in
// argument order.
func LoadFiles(paths ...string) ([]Record, error) {
	var all []Record
	for _, p := range paths {
		records, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	return all, nil
}
