package dict

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Roles and normalization
// ---------------------------------------------------------------------------

func TestParseRole(t *testing.T) {
	cases := []struct {
		in   string
		want Role
	}{
		{"main-male", RoleMainMale},
		{"MainFemale", RoleMainFemale},
		{"sub_male", RoleSubMale},
		{" Sub Female ", RoleSubFemale},
		{"", RoleNeutral},
		{"neutral", RoleNeutral},
	}
	for _, tc := range cases {
		got, err := ParseRole(tc.in)
		if err != nil {
			t.Fatalf("ParseRole(%q) error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseRole(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	if _, err := ParseRole("villain"); err == nil {
		t.Fatal("ParseRole(villain) expected error")
	}
}

func TestNormalize(t *testing.T) {
	t.Run("name with role", func(t *testing.T) {
		rec, err := Normalize(RawRecord{Context: "g1", Source: " 拓也 ", Target: "Takuya", Role: "main-male"})
		if err != nil {
			t.Fatalf("Normalize error: %v", err)
		}
		if rec.Kind != RecordName || rec.Source != "拓也" || rec.Role != RoleMainMale {
			t.Fatalf("unexpected record: %#v", rec)
		}
		e, ok := rec.Entry()
		if !ok || e.Kind != KindName || e.Context != "g1" {
			t.Fatalf("Entry() = %#v, %v", e, ok)
		}
	})

	t.Run("suffix rejects role", func(t *testing.T) {
		_, err := Normalize(RawRecord{Context: "g1", Kind: "suffix", Source: "さん", Target: "-san", Role: "main-male"})
		if err == nil {
			t.Fatal("expected error for suffix with role")
		}
	})

	t.Run("term has no entry", func(t *testing.T) {
		rec, err := Normalize(RawRecord{Context: "g1", Kind: "term", Source: "魔法", Target: "magic"})
		if err != nil {
			t.Fatalf("Normalize error: %v", err)
		}
		if _, ok := rec.Entry(); ok {
			t.Fatal("term record must not produce an index entry")
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		for _, raw := range []RawRecord{
			{Source: "a", Target: "b"},
			{Context: "g", Target: "b"},
			{Context: "g", Source: "a"},
			{Context: "g", Source: "a", Target: "b", Kind: "verb"},
		} {
			if _, err := Normalize(raw); err == nil {
				t.Fatalf("Normalize(%#v) expected error", raw)
			}
		}
	})

	t.Run("decomposed source is composed", func(t *testing.T) {
		rec, err := Normalize(RawRecord{Context: "g", Source: "\u304b\u3099", Target: "ga"})
		if err != nil {
			t.Fatalf("Normalize error: %v", err)
		}
		if rec.Source != "\u304c" {
			t.Fatalf("Source = %q, want composed \u304c", rec.Source)
		}
	})
}

// ---------------------------------------------------------------------------
// Index
// ---------------------------------------------------------------------------

func TestIndexLookup(t *testing.T) {
	entries := []Entry{
		{Source: "拓也", Target: "Takuya", Role: RoleMainMale, Context: "g1", Kind: KindName},
		{Source: "拓也", Target: "Takuya2", Role: RoleSubMale, Context: "g1", Kind: KindName},
		{Source: "拓", Target: "Taku", Role: RoleSubMale, Context: "g1", Kind: KindName},
		{Source: "さん", Target: "-san", Context: "g1", Kind: KindSuffix},
		{Source: "他", Target: "Other", Context: "g2", Kind: KindName},
	}
	idx := NewIndex("g1", entries)

	if idx.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", idx.Len())
	}
	names := idx.Names("拓也")
	if len(names) != 2 || names[0].Target != "Takuya" {
		t.Fatalf("Names(拓也) = %#v, want insertion order", names)
	}
	if got := idx.Names("他"); got != nil {
		t.Fatalf("entry from another context leaked: %#v", got)
	}
	if got := idx.Suffixes("さん"); len(got) != 1 {
		t.Fatalf("Suffixes(さん) = %#v", got)
	}
	if got := idx.Lookup("さん"); len(got) != 1 || got[0].Kind != KindSuffix {
		t.Fatalf("Lookup(さん) = %#v", got)
	}
	if got := idx.Lookup("拓"); len(got) != 1 {
		t.Fatalf("Lookup(拓) = %#v", got)
	}
	if got := idx.NameLengths(); !reflect.DeepEqual(got, []int{len("拓也"), len("拓")}) {
		t.Fatalf("NameLengths() = %v", got)
	}
}

func TestNilAndEmptyIndex(t *testing.T) {
	var nilIdx *Index
	if nilIdx.Len() != 0 || nilIdx.Names("a") != nil || nilIdx.Lookup("a") != nil {
		t.Fatal("nil index must behave as empty")
	}
	empty := NewIndex("g", nil)
	if empty.Len() != 0 || len(empty.NameLengths()) != 0 {
		t.Fatal("empty index must have no keys")
	}
}

func TestCatalog(t *testing.T) {
	records := []Record{
		{Kind: RecordName, Context: "g1", Source: "拓也", Target: "Takuya", Role: RoleMainMale},
		{Kind: RecordSuffix, Context: "g1", Source: "さん", Target: "-san"},
		{Kind: RecordTerm, Context: "g2", Source: "魔法", Target: "magic"},
	}
	c := NewCatalog(records)
	if got := c.Contexts(); !reflect.DeepEqual(got, []string{"g1"}) {
		t.Fatalf("Contexts() = %v, want [g1]", got)
	}

	idx, err := c.Index(context.Background(), "g1")
	if err != nil || idx.Len() != 2 {
		t.Fatalf("Index(g1) = %v, %v", idx, err)
	}

	idx, err = c.Index(context.Background(), "missing")
	if err != nil || idx.Len() != 0 {
		t.Fatalf("lenient Index(missing) = %v, %v", idx, err)
	}

	_, err = c.Strict().Index(context.Background(), "missing")
	if !errors.Is(err, ErrUnknownContext) {
		t.Fatalf("strict Index(missing) error = %v, want ErrUnknownContext", err)
	}
}

// ---------------------------------------------------------------------------
// Loaders
// ---------------------------------------------------------------------------

func TestParseYAML(t *testing.T) {
	data := "contexts:\n" +
		"  - id: game-1\n" +
		"    entries:\n" +
		"      - {source: 拓也, target: Takuya, role: main-male}\n" +
		"      - {kind: suffix, source: さん, target: -san}\n" +
		"      - {kind: term, source: 魔法, target: magic}\n" +
		"  - id: game-2\n" +
		"    entries:\n" +
		"      - {context: override, source: 花子, target: Hanako, role: main-female}\n"

	records, err := ParseYAML([]byte(data))
	if err != nil {
		t.Fatalf("ParseYAML error: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("got %d records, want 4", len(records))
	}
	if records[0].Context != "game-1" || records[0].Role != RoleMainMale {
		t.Fatalf("records[0] = %#v", records[0])
	}
	if records[1].Kind != RecordSuffix || records[2].Kind != RecordTerm {
		t.Fatalf("kinds: %v %v", records[1].Kind, records[2].Kind)
	}
	if records[3].Context != "override" {
		t.Fatalf("row context should win over group id, got %q", records[3].Context)
	}

	if _, err := ParseYAML([]byte("contexts:\n  - entries: []\n")); err == nil {
		t.Fatal("expected error for context without id")
	}
}

func TestReadDump(t *testing.T) {
	t.Run("columns in any order", func(t *testing.T) {
		dump := "# exported\n" +
			"Source\tTarget\tKind\tContext\tRole\n" +
			"拓也\tTakuya\tname\tg1\tmain-male\n" +
			"\n" +
			"さん\t-san\tsuffix\tg1\t\n"
		records, err := ReadDump(strings.NewReader(dump))
		if err != nil {
			t.Fatalf("ReadDump error: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("got %d records, want 2", len(records))
		}
		if records[0].Source != "拓也" || records[0].Role != RoleMainMale {
			t.Fatalf("records[0] = %#v", records[0])
		}
		if records[1].Kind != RecordSuffix {
			t.Fatalf("records[1] = %#v", records[1])
		}
	})

	t.Run("each dump has its own header", func(t *testing.T) {
		first := "context\tsource\ttarget\ng1\tA\tAlpha\n"
		second := "target\tsource\tcontext\nBeta\tB\tg2\n"
		a, err := ReadDump(strings.NewReader(first))
		if err != nil {
			t.Fatalf("first dump: %v", err)
		}
		b, err := ReadDump(strings.NewReader(second))
		if err != nil {
			t.Fatalf("second dump: %v", err)
		}
		if a[0].Target != "Alpha" || b[0].Target != "Beta" || b[0].Context != "g2" {
			t.Fatalf("headers leaked between dumps: %#v %#v", a[0], b[0])
		}
	})

	t.Run("header errors", func(t *testing.T) {
		for _, dump := range []string{
			"",
			"context\tsource\n",
			"context\tsource\ttarget\tsource\n",
		} {
			if _, err := ReadDump(strings.NewReader(dump)); err == nil {
				t.Fatalf("ReadDump(%q) expected error", dump)
			}
		}
	})

	t.Run("bad row reports line", func(t *testing.T) {
		dump := "context\tsource\ttarget\trole\ng1\tA\tAlpha\thero\n"
		_, err := ReadDump(strings.NewReader(dump))
		if err == nil || !strings.Contains(err.Error(), "line 2") {
			t.Fatalf("error = %v, want line 2", err)
		}
	})
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "names.yaml")
	tsvPath := filepath.Join(dir, "extra.tsv")
	if err := os.WriteFile(yamlPath, []byte("contexts:\n  - id: g1\n    entries:\n      - {source: 拓也, target: Takuya}\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(tsvPath, []byte("context\tkind\tsource\ttarget\ng1\tsuffix\tさん\t-san\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	records, err := LoadFiles(yamlPath, tsvPath)
	if err != nil {
		t.Fatalf("LoadFiles error: %v", err)
	}
	if len(records) != 2 || records[0].Kind != RecordName || records[1].Kind != RecordSuffix {
		t.Fatalf("records = %#v", records)
	}

	if _, err := LoadFiles(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
