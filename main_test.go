package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/minios-linux/nameproxy/config"
	"github.com/minios-linux/nameproxy/dict"
	"github.com/minios-linux/nameproxy/proxy"
	"github.com/minios-linux/nameproxy/settings"
	"github.com/minios-linux/nameproxy/translate"
)

const namesYAML = `contexts:
  - id: game-1
    entries:
      - {kind: name, source: 拓也, target: Takuya, role: main-male}
      - {kind: suffix, source: さん, target: -san}
      - {kind: term, source: 魔法, target: magic}
`

const poolYAML = `pool:
  - {source: ジョン, expected: John, role: main-male}
`

// newProject writes a dictionary and the given config into a temp dir and
// isolates the user data directory.
func newProject(t *testing.T, cfg string) string {
	t.Helper()
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv(settings.EnvAPIKey, "")

	dir := t.TempDir()
	write := func(name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("names.yaml", namesYAML)
	write("pool.yaml", poolYAML)
	write(config.FileName, cfg)
	return dir
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// libreServer answers LibreTranslate requests with a fixed word mapping.
func libreServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/translate" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Q      string `json:"q"`
			Source string `json:"source"`
			Target string `json:"target"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		calls.Add(1)
		out := strings.NewReplacer("ジョン", "John", "が来た", " came").Replace(req.Q)
		_ = json.NewEncoder(w).Encode(map[string]string{"translatedText": out})
	}))
	t.Cleanup(ts.Close)
	return ts
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "", "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "nameproxy version "+version) {
		t.Fatalf("output = %q", out)
	}
}

func TestMatchCmd(t *testing.T) {
	dir := newProject(t, `
context: game-1
dictionaries: [names.yaml]
pool_file: pool.yaml
`)
	out, err := execute(t, "", "match", "--root", dir, "拓也さんが来た")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"SPAN", "拓也さん", "ジョン → John", "Sentence: ジョンが来た"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestMatchRequiresContext(t *testing.T) {
	dir := newProject(t, `
dictionaries: [names.yaml]
pool_file: pool.yaml
`)
	if _, err := execute(t, "", "match", "--root", dir, "拓也"); err == nil || !strings.Contains(err.Error(), "--context") {
		t.Fatalf("err = %v, want context error", err)
	}
	// The flag satisfies it.
	if _, err := execute(t, "", "match", "--root", dir, "--context", "game-1", "拓也"); err != nil {
		t.Fatal(err)
	}
}

func TestTranslateCmdLibre(t *testing.T) {
	var calls atomic.Int32
	ts := libreServer(t, &calls)
	dir := newProject(t, `
context: game-1
dictionaries: [names.yaml]
pool_file: pool.yaml
provider:
  id: libre
`)

	out, err := execute(t, "", "translate", "--root", dir, "--base-url", ts.URL, "拓也さんが来た")
	if err != nil {
		t.Fatal(err)
	}
	if out != "Takuya-san came\n" {
		t.Fatalf("output = %q", out)
	}

	out, err = execute(t, "拓也さんが来た\n", "translate", "--root", dir, "--base-url", ts.URL, "--json")
	if err != nil {
		t.Fatal(err)
	}
	var res proxy.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if res.Output != "Takuya-san came" || res.Sentence != "ジョンが来た" || len(res.ProxiesUsed) != 1 {
		t.Fatalf("result = %+v", res)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

func TestTranslateCmdWithoutProvider(t *testing.T) {
	dir := newProject(t, `
context: game-1
dictionaries: [names.yaml]
pool_file: pool.yaml
`)
	_, err := execute(t, "", "translate", "--root", dir, "拓也")
	if !errors.Is(err, errNoProvider) {
		t.Fatalf("err = %v, want errNoProvider", err)
	}
}

func TestBatchCmd(t *testing.T) {
	var calls atomic.Int32
	ts := libreServer(t, &calls)
	dir := newProject(t, `
context: game-1
dictionaries: [names.yaml]
pool_file: pool.yaml
provider:
  id: libre
`)
	in := filepath.Join(dir, "script.txt")
	if err := os.WriteFile(in, []byte("拓也さんが来た\n\nこんにちは\n"), 0644); err != nil {
		t.Fatal(err)
	}
	outPath := filepath.Join(dir, "script.en.txt")

	if _, err := execute(t, "", "batch", in, "--root", dir, "--base-url", ts.URL,
		"--no-progress", "--max-concurrent", "2", "-o", outPath); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "Takuya-san came\n\nこんにちは\n" {
		t.Fatalf("output = %q", got)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2 (blank line skipped)", calls.Load())
	}
}

func TestDictCommands(t *testing.T) {
	dir := newProject(t, `
context: game-1
dictionaries: [names.yaml]
database: np.db
`)

	if _, err := execute(t, "", "dict", "import", "--root", dir); err != nil {
		t.Fatalf("import: %v", err)
	}
	// Importing again upserts instead of duplicating.
	if _, err := execute(t, "", "dict", "import", "--root", dir, filepath.Join(dir, "names.yaml")); err != nil {
		t.Fatalf("re-import: %v", err)
	}

	out, err := execute(t, "", "dict", "list", "--root", dir, "--json")
	if err != nil {
		t.Fatal(err)
	}
	var rows []recordJSON
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0] != (recordJSON{Context: "game-1", Kind: "name", Source: "拓也", Target: "Takuya", Role: "main-male"}) {
		t.Fatalf("rows[0] = %+v", rows[0])
	}

	out, err = execute(t, "", "dict", "contexts", "--root", dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "game-1") || !strings.Contains(out, "TERMS") {
		t.Fatalf("contexts output = %q", out)
	}

	if _, err := execute(t, "", "dict", "remove", "--root", dir, "game-1"); err != nil {
		t.Fatal(err)
	}
	out, err = execute(t, "", "dict", "list", "--root", dir, "--json")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Fatalf("after remove = %q", out)
	}
}

func TestDictImportRequiresFiles(t *testing.T) {
	dir := newProject(t, "context: game-1\n")
	if _, err := execute(t, "", "dict", "import", "--root", dir); err == nil {
		t.Fatal("expected error without files")
	}
}

func TestCachedTranslateAndPurge(t *testing.T) {
	var calls atomic.Int32
	ts := libreServer(t, &calls)
	dir := newProject(t, `
context: game-1
dictionaries: [names.yaml]
database: np.db
pool_file: pool.yaml
cache: true
provider:
  id: libre
`)
	if _, err := execute(t, "", "dict", "import", "--root", dir); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		out, err := execute(t, "", "translate", "--root", dir, "--base-url", ts.URL, "拓也さんが来た")
		if err != nil {
			t.Fatal(err)
		}
		if out != "Takuya-san came\n" {
			t.Fatalf("run %d output = %q", i, out)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}

	// Another endpoint does not reuse the first endpoint's translations.
	var otherCalls atomic.Int32
	other := libreServer(t, &otherCalls)
	if _, err := execute(t, "", "translate", "--root", dir, "--base-url", other.URL, "拓也さんが来た"); err != nil {
		t.Fatal(err)
	}
	if otherCalls.Load() != 1 {
		t.Fatalf("other endpoint calls = %d, want 1", otherCalls.Load())
	}

	if _, err := execute(t, "", "cache", "purge", "--root", dir, "--base-url", ts.URL); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "", "translate", "--root", dir, "--base-url", ts.URL, "拓也さんが来た"); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls after purge = %d, want 2", calls.Load())
	}
}

func TestAuthLoginLogout(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	if _, err := execute(t, "gsk_test_key_1234\n", "auth", "login", "--provider", "groq"); err != nil {
		t.Fatal(err)
	}
	if got := settings.GetAPIKey("groq"); got != "gsk_test_key_1234" {
		t.Fatalf("stored key = %q", got)
	}

	// Menu choice by name, endpoint then empty key.
	if _, err := execute(t, "libre\nhttp://mt.local:5000\n\n", "auth", "login"); err != nil {
		t.Fatal(err)
	}
	if got := settings.GetBaseURL("libre"); got != "http://mt.local:5000" {
		t.Fatalf("libre base URL = %q", got)
	}

	if _, err := execute(t, "", "auth", "logout", "--provider", "groq"); err != nil {
		t.Fatal(err)
	}
	if got := settings.GetAPIKey("groq"); got != "" {
		t.Fatalf("key after logout = %q", got)
	}
	if _, err := execute(t, "", "auth", "logout", "--provider", "ollama"); err == nil {
		t.Fatal("expected error for provider without credentials")
	}
}

func TestAuthLoginRequiresKey(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	if _, err := execute(t, "\n", "auth", "login", "--provider", "anthropic"); err == nil {
		t.Fatal("expected error for empty key")
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func TestChooseProvider(t *testing.T) {
	tests := []struct {
		choice string
		want   string
		ok     bool
	}{
		{"1", translate.ProviderGoogle, true},
		{" groq ", translate.ProviderGroq, true},
		{"6", translate.ProviderLibre, true},
		{"7", "", false},
		{"ollama", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		got, ok := chooseProvider(tc.choice)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("chooseProvider(%q) = %q, %v; want %q, %v", tc.choice, got, ok, tc.want, tc.ok)
		}
	}
}

func TestResolveProvider(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	p := resolveProvider("groq", "", "key", "llama-3.3-70b-versatile", "", 0)
	if p.ID != translate.ProviderGroq || p.BaseURL != "https://api.groq.com/openai/v1" || p.Timeout != 30*time.Second {
		t.Fatalf("groq = %+v", p)
	}

	p = resolveProvider("LIBRE", "http://mt.local", "", "", "http://proxy:3128", 5*time.Second)
	if p.ID != translate.ProviderLibre || p.BaseURL != "http://mt.local" || p.Proxy != "http://proxy:3128" || p.Timeout != 5*time.Second {
		t.Fatalf("libre = %+v", p)
	}

	p = resolveProvider("https://llm.example.com/v1", "", "", "m", "", 0)
	if p.ID != translate.ProviderCustomOpenAI || p.BaseURL != "https://llm.example.com/v1" {
		t.Fatalf("url provider = %+v", p)
	}
}

func TestValidateProvider(t *testing.T) {
	defaults := translate.DefaultProviders()

	groq := defaults[translate.ProviderGroq]
	if err := validateProvider(groq, ""); err == nil || !strings.Contains(err.Error(), "--model") {
		t.Fatalf("missing model: %v", err)
	}
	groq.Model = "llama-3.3-70b-versatile"
	if err := validateProvider(groq, ""); err == nil || !strings.Contains(err.Error(), "API key") {
		t.Fatalf("missing key: %v", err)
	}
	if err := validateProvider(groq, "k"); err != nil {
		t.Fatal(err)
	}

	custom := defaults[translate.ProviderCustomOpenAI]
	custom.Model = "gpt-4o"
	if err := validateProvider(custom, ""); err == nil {
		t.Fatal("custom-openai without base URL should fail")
	}

	if err := validateProvider(defaults[translate.ProviderLibre], ""); err != nil {
		t.Fatalf("libre: %v", err)
	}
}

func TestReadInput(t *testing.T) {
	got, err := readInput(strings.NewReader("ignored"), []string{"拓也さん", "が来た"})
	if err != nil || got != "拓也さん が来た" {
		t.Fatalf("args: %q, %v", got, err)
	}
	got, err = readInput(strings.NewReader("拓也さんが来た\r\n"), nil)
	if err != nil || got != "拓也さんが来た" {
		t.Fatalf("stdin: %q, %v", got, err)
	}
	if _, err := readInput(strings.NewReader(" \n"), nil); err == nil {
		t.Fatal("expected error for blank input")
	}
}

func TestReadLines(t *testing.T) {
	lines, err := readLines(strings.NewReader("a\r\n\nb\n"), "-")
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 3 || lines[0] != "a" || lines[1] != "" || lines[2] != "b" {
		t.Fatalf("lines = %q", lines)
	}
	if _, err := readLines(nil, filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestWriteBatch(t *testing.T) {
	results := []batchResult{
		{Line: 1, Input: "拓也さん", Output: "Takuya-san"},
		{Line: 2, Input: "", Output: ""},
		{Line: 3, Input: "花", Error: "boom"},
	}

	var plain bytes.Buffer
	if err := writeBatch(&plain, "", results, false); err != nil {
		t.Fatal(err)
	}
	if plain.String() != "Takuya-san\n\n\n" {
		t.Fatalf("plain = %q", plain.String())
	}

	var jsonl bytes.Buffer
	if err := writeBatch(&jsonl, "", results, true); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(jsonl.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("jsonl lines = %d", len(lines))
	}
	var last batchResult
	if err := json.Unmarshal([]byte(lines[2]), &last); err != nil {
		t.Fatal(err)
	}
	if last.Line != 3 || last.Error != "boom" {
		t.Fatalf("last = %+v", last)
	}
	if !strings.Contains(lines[0], `"input":"拓也さん"`) {
		t.Fatalf("HTML escaping or field name changed: %s", lines[0])
	}
}

func TestPrintPlanNoNames(t *testing.T) {
	var out bytes.Buffer
	if err := printPlan(&out, &proxy.Plan{Input: "こんにちは", Sentence: "こんにちは"}, false); err != nil {
		t.Fatal(err)
	}
	if out.String() != "No names found.\n" {
		t.Fatalf("output = %q", out.String())
	}
}

func TestExplain(t *testing.T) {
	exhausted := &proxy.PoolExhaustedError{Role: dict.RoleSubFemale, Size: 1}
	err := explain(exhausted)
	if !errors.As(err, new(*proxy.PoolExhaustedError)) || !strings.Contains(err.Error(), "pool_file") {
		t.Fatalf("explain(pool) = %v", err)
	}

	quota := &translate.Failure{Kind: translate.ErrQuotaExceeded, Provider: "groq", Status: 429}
	if err := explain(quota); !errors.Is(err, translate.ErrQuotaExceeded) || !strings.Contains(err.Error(), "retry") {
		t.Fatalf("explain(quota) = %v", err)
	}

	if err := explain(proxy.ErrNoTranslatorConfigured); !errors.Is(err, errNoProvider) {
		t.Fatalf("explain(no translator) = %v", err)
	}

	plain := errors.New("other")
	if explain(plain) != plain {
		t.Fatal("unrelated errors pass through")
	}
}

func TestRecordContexts(t *testing.T) {
	records := []dict.Record{{Context: "b"}, {Context: "a"}, {Context: "b"}}
	got := recordContexts(records)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("recordContexts = %q", got)
	}
}
