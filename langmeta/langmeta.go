// Package langmeta resolves display metadata (native name, English name and
// emoji flag) for the language tags used in configuration and CLI output.
package langmeta

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Meta describes language display metadata.
type Meta struct {
	// Tag is the canonical BCP 47 form, e.g. "pt-BR".
	Tag string
	// Name is the language's name in itself, e.g. "日本語".
	Name string
	// English is the English name, e.g. "Japanese".
	English string
	Flag    string
}

func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// Parse accepts codes like ja, pt_BR and EN-us and returns the tag.
func Parse(lang string) (language.Tag, error) {
	return language.Parse(canonicalize(lang))
}

// Resolve returns best-effort metadata for a language code. Unknown codes
// come back with the input as their name and no flag.
func Resolve(lang string) Meta {
	tag, err := Parse(lang)
	if err != nil || tag == language.Und {
		return Meta{Tag: lang, Name: lang, English: lang}
	}

	m := Meta{
		Tag:     tag.String(),
		Name:    display.Self.Name(tag),
		English: display.English.Tags().Name(tag),
	}
	if m.Name == "" {
		m.Name = lang
	}
	if m.English == "" {
		m.English = m.Name
	}
	if region, conf := tag.Region(); conf != language.No && region.IsCountry() {
		m.Flag = flag(region.String())
	}
	return m
}

// flag turns a two-letter region code into its regional-indicator pair.
func flag(region string) string {
	if len(region) != 2 {
		return ""
	}
	var b strings.Builder
	for _, c := range strings.ToUpper(region) {
		if c < 'A' || c > 'Z' {
			return ""
		}
		b.WriteRune(0x1F1E6 + (c - 'A'))
	}
	return b.String()
}
