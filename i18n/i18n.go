// Package i18n localizes nameproxy's own command-line messages.
//
// Catalogs are gettext .po files embedded under locales/<lang>/LC_MESSAGES.
// Call Init once at startup, then wrap user-facing strings in T or N:
//
//	i18n.Init("")
//	logSuccess("%s", i18n.T("Translation complete!"))
//	logInfo(i18n.N("%s: %d entry", "%s: %d entries", n), path, n)
//
// Strings without a translation are returned unchanged.
package i18n

import (
	"embed"
	"io/fs"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
	"golang.org/x/text/language"
)

//go:embed all:locales
var locales embed.FS

const domain = "nameproxy"

var po *gotext.Locale

// localeVars are consulted in GNU gettext order.
var localeVars = []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"}

// Init loads the catalog closest to lang, or to the environment locale when
// lang is empty.
func Init(lang string) {
	if lang == "" {
		lang = detectLanguage()
	}
	po = gotext.NewLocaleFSWithPath(catalogFor(lang), locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// T translates msgid.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N translates a message with plural forms chosen by n.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// Languages lists the embedded catalogs.
func Languages() []string {
	entries, err := fs.ReadDir(locales, "locales")
	if err != nil {
		return nil
	}
	var langs []string
	for _, e := range entries {
		if e.IsDir() {
			langs = append(langs, e.Name())
		}
	}
	return langs
}

// catalogFor maps a POSIX locale such as ru_RU or pt-BR onto the embedded
// catalog that serves it. Locales no catalog serves are returned as given,
// which leaves every message untranslated.
func catalogFor(lang string) string {
	langs := Languages()
	if len(langs) == 0 {
		return lang
	}
	tag, err := language.Parse(strings.ReplaceAll(lang, "_", "-"))
	if err != nil {
		return lang
	}
	supported := make([]language.Tag, len(langs))
	for i, l := range langs {
		supported[i] = language.Make(l)
	}
	_, idx, conf := language.NewMatcher(supported).Match(tag)
	if conf < language.High {
		return lang
	}
	return langs[idx]
}

// detectLanguage returns the first usable locale from the environment
// without its encoding suffix, or "en". LANGUAGE may hold a colon-separated
// list; its entries are tried in order.
func detectLanguage() string {
	for _, env := range localeVars {
		val := os.Getenv(env)
		values := []string{val}
		if env == "LANGUAGE" {
			values = strings.Split(val, ":")
		}
		for _, v := range values {
			if i := strings.IndexByte(v, '.'); i >= 0 {
				v = v[:i]
			}
			if v != "" && v != "C" && v != "POSIX" {
				return v
			}
		}
	}
	return "en"
}
