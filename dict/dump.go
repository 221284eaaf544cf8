package dict

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Dump format: tab-separated text, one record per line. The first
// non-comment line is the header naming the columns; columns may come in any
// order. Blank lines and lines starting with '#' are skipped.
//
//	context	kind	source	target	role
//	game-1	name	拓也	Takuya	main-male
//	game-1	suffix	さん	-san

var dumpColumns = []string{"context", "kind", "source", "target", "role"}

// header maps a column name to its field position within one dump.
type header map[string]int

// parseHeader builds the column map for a single dump. The map belongs to the
// caller's parse; nothing is cached between dumps.
func parseHeader(line string) (header, error) {
	h := make(header)
	for i, col := range strings.Split(line, "\t") {
		name := strings.ToLower(strings.TrimSpace(col))
		if name == "" {
			continue
		}
		if _, dup := h[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		h[name] = i
	}
	for _, required := range []string{"context", "source", "target"} {
		if _, ok := h[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}
	return h, nil
}

func (h header) field(fields []string, name string) string {
	i, ok := h[name]
	if !ok || i >= len(fields) {
		return ""
	}
	return fields[i]
}

// ReadDump reads a TSV dump and normalizes its rows.
func ReadDump(r io.Reader) ([]Record, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		h       header
		records []Record
		lineNo  int
	)
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if h == nil {
			parsed, err := parseHeader(strings.TrimPrefix(line, "\ufeff"))
			if err != nil {
				return nil, fmt.Errorf("line %d: header: %w", lineNo, err)
			}
			h = parsed
			continue
		}

		fields := strings.Split(line, "\t")
		raw := RawRecord{
			Context: h.field(fields, dumpColumns[0]),
			Kind:    h.field(fields, dumpColumns[1]),
			Source:  h.field(fields, dumpColumns[2]),
			Target:  h.field(fields, dumpColumns[3]),
			Role:    h.field(fields, dumpColumns[4]),
		}
		rec, err := Normalize(raw)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading dump: %w", err)
	}
	if h == nil {
		return nil, fmt.Errorf("empty dump: no header line")
	}
	return records, nil
}
