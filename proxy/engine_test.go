package proxy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/minios-linux/nameproxy/dict"
)

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

const ctxID = "game-1"

func testCatalog() *dict.Catalog {
	return dict.NewCatalog([]dict.Record{
		{Kind: dict.RecordName, Context: ctxID, Source: "拓也", Target: "Takuya", Role: dict.RoleMainMale},
		{Kind: dict.RecordName, Context: ctxID, Source: "モーガン", Target: "Morgan", Role: dict.RoleMainMale},
		{Kind: dict.RecordName, Context: ctxID, Source: "健", Target: "Ken", Role: dict.RoleMainMale},
		{Kind: dict.RecordName, Context: ctxID, Source: "花", Target: "Hana", Role: dict.RoleMainFemale},
		{Kind: dict.RecordSuffix, Context: ctxID, Source: "さん", Target: "-san"},
		{Kind: dict.RecordSuffix, Context: ctxID, Source: "くん", Target: "-kun"},
	})
}

func testPool() *Pool {
	return MustPool([]Placeholder{
		{Source: "太郎", Expected: "Taro", Role: dict.RoleMainMale},
		{Source: "次郎", Expected: "Jiro", Role: dict.RoleMainMale},
		{Source: "三郎", Expected: "Saburo", Role: dict.RoleMainMale},
		{Source: "桜", Expected: "Sakura", Role: dict.RoleMainFemale},
	})
}

// scripted returns a translator that answers known sentences and fails the
// test on anything else. It records every sentence it receives.
type scripted struct {
	t       *testing.T
	answers map[string]string
	mu      sync.Mutex
	seen    []string
}

func script(t *testing.T, answers map[string]string) *scripted {
	return &scripted{t: t, answers: answers}
}

func (s *scripted) Translate(_ context.Context, sentence string) (string, error) {
	s.mu.Lock()
	s.seen = append(s.seen, sentence)
	s.mu.Unlock()
	out, ok := s.answers[sentence]
	if !ok {
		s.t.Errorf("unexpected sentence sent to translator: %q", sentence)
	}
	return out, nil
}

func totalCount(res *Result) int {
	n := 0
	for _, u := range res.ProxiesUsed {
		n += u.Count
	}
	return n
}

func mustTranslate(t *testing.T, e *Engine, input string) *Result {
	t.Helper()
	res, err := e.Translate(context.Background(), ctxID, input, true)
	if err != nil {
		t.Fatalf("Translate(%q) error: %v", input, err)
	}
	return res
}

// ---------------------------------------------------------------------------
// Scenarios
// ---------------------------------------------------------------------------

func TestTranslateScenarios(t *testing.T) {
	cases := []struct {
		name      string
		input     string
		sentence  string
		reply     string
		wantOut   string
		wantCount int
	}{
		{
			name:      "single suffixed name",
			input:     "私は拓也さんです。",
			sentence:  "私は太郎です。",
			reply:     "I am Taro.",
			wantOut:   "I am Takuya-san.",
			wantCount: 1,
		},
		{
			name:      "identical span twice",
			input:     "拓也さんと拓也さん",
			sentence:  "太郎と太郎",
			reply:     "Taro and Taro",
			wantOut:   "Takuya-san and Takuya-san",
			wantCount: 1,
		},
		{
			name:      "same name different suffix",
			input:     "拓也さんと拓也くん",
			sentence:  "太郎と次郎",
			reply:     "Taro and Jiro",
			wantOut:   "Takuya-san and Takuya-kun",
			wantCount: 2,
		},
		{
			name:      "compound with suffix",
			input:     "拓也・モーガンさんが来た。",
			sentence:  "太郎が来た。",
			reply:     "Taro came.",
			wantOut:   "Takuya Morgan-san came.",
			wantCount: 1,
		},
		{
			name:      "compounds with different partners",
			input:     "拓也・モーガンと拓也・健",
			sentence:  "太郎と次郎",
			reply:     "Taro and Jiro",
			wantOut:   "Takuya Morgan and Takuya Ken",
			wantCount: 2,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := script(t, map[string]string{tc.sentence: tc.reply})
			e := New(testCatalog(), testPool(), tr)
			res := mustTranslate(t, e, tc.input)
			if res.Output != tc.wantOut {
				t.Fatalf("Output = %q, want %q", res.Output, tc.wantOut)
			}
			if got := totalCount(res); got != tc.wantCount {
				t.Fatalf("sum(Count) = %d, want %d", got, tc.wantCount)
			}
			if res.Sentence != tc.sentence {
				t.Fatalf("Sentence = %q, want %q", res.Sentence, tc.sentence)
			}
			if len(res.Warnings) != 0 {
				t.Fatalf("unexpected warnings: %v", res.Warnings)
			}
		})
	}
}

func TestTranslateWithoutProxies(t *testing.T) {
	// Decomposed input must reach the translator untouched.
	input := "拓也さんか\u3099"
	tr := script(t, map[string]string{input: "verbatim reply"})
	e := New(testCatalog(), testPool(), tr)

	res, err := e.Translate(context.Background(), ctxID, input, false)
	if err != nil {
		t.Fatalf("Translate error: %v", err)
	}
	if res.Output != "verbatim reply" {
		t.Fatalf("Output = %q", res.Output)
	}
	if res.ProxiesUsed == nil || len(res.ProxiesUsed) != 0 {
		t.Fatalf("ProxiesUsed = %#v, want empty", res.ProxiesUsed)
	}
	if res.Primary != nil {
		t.Fatalf("Primary = %#v, want nil", res.Primary)
	}
	if len(tr.seen) != 1 || tr.seen[0] != input {
		t.Fatalf("translator saw %q", tr.seen)
	}
}

// ---------------------------------------------------------------------------
// Properties
// ---------------------------------------------------------------------------

func TestUsagesDescribeAssignment(t *testing.T) {
	tr := script(t, map[string]string{"太郎、次郎、太郎、桜": "Taro, Jiro, Taro, Sakura"})
	e := New(testCatalog(), testPool(), tr)
	res := mustTranslate(t, e, "拓也さん、モーガン、拓也さん、花")

	if res.Output != "Takuya-san, Morgan, Takuya-san, Hana" {
		t.Fatalf("Output = %q", res.Output)
	}
	if len(res.ProxiesUsed) != 3 {
		t.Fatalf("got %d usages, want 3", len(res.ProxiesUsed))
	}
	first := res.ProxiesUsed[0]
	if first.Proxy.ID != 0 || first.Proxy.Expected != "Taro" || first.Count != 1 || first.Occurrences != 2 {
		t.Fatalf("first usage = %#v", first)
	}
	if first.Source != "拓也さん" || first.Rendered != "Takuya-san" {
		t.Fatalf("first usage text = %q -> %q", first.Source, first.Rendered)
	}
	if res.ProxiesUsed[2].Proxy.Role != dict.RoleMainFemale {
		t.Fatalf("female name got proxy %#v", res.ProxiesUsed[2].Proxy)
	}
	if res.Primary == nil || res.Primary.ID != 0 {
		t.Fatalf("Primary = %#v, want proxy 0", res.Primary)
	}
}

func TestDistinctTextsNeverShareProxy(t *testing.T) {
	e := New(testCatalog(), testPool(), nil)
	plan, err := e.Prepare(context.Background(), ctxID, "拓也、拓也さん、拓也くん、拓也さん")
	if err != nil {
		t.Fatalf("Prepare error: %v", err)
	}
	if len(plan.Spans) != 4 || len(plan.Proxies) != 3 {
		t.Fatalf("spans=%d proxies=%d, want 4 and 3", len(plan.Spans), len(plan.Proxies))
	}
	byText := make(map[string]int)
	seen := make(map[int]string)
	for _, sp := range plan.Spans {
		id := plan.assignment.byText[sp.Text].proxy.ID
		if prev, ok := byText[sp.Text]; ok && prev != id {
			t.Fatalf("text %q got proxies %d and %d", sp.Text, prev, id)
		}
		if other, ok := seen[id]; ok && other != sp.Text {
			t.Fatalf("proxy %d shared by %q and %q", id, other, sp.Text)
		}
		byText[sp.Text] = id
		seen[id] = sp.Text
	}
	if plan.Sentence != "太郎、次郎、三郎、次郎" {
		t.Fatalf("Sentence = %q", plan.Sentence)
	}
}

func TestInputIsNormalizedBeforeMatching(t *testing.T) {
	cat := dict.NewCatalog([]dict.Record{
		{Kind: dict.RecordName, Context: ctxID, Source: "\u304cく", Target: "Gaku", Role: dict.RoleMainMale},
	})
	tr := script(t, map[string]string{"太郎!": "Taro!"})
	e := New(cat, testPool(), tr)
	res := mustTranslate(t, e, "\u304b\u3099く!")
	if res.Output != "Gaku!" {
		t.Fatalf("Output = %q, want Gaku!", res.Output)
	}
}

// ---------------------------------------------------------------------------
// Reverse mapping
// ---------------------------------------------------------------------------

func TestReverseMappingNotFound(t *testing.T) {
	tr := script(t, map[string]string{"太郎が来た": "Somebody came"})
	e := New(testCatalog(), testPool(), tr)
	res := mustTranslate(t, e, "拓也が来た")

	if res.Output != "Somebody came" {
		t.Fatalf("Output = %q, want translator text untouched", res.Output)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("Warnings = %v, want 1", res.Warnings)
	}
	w := res.Warnings[0]
	if !errors.Is(w, ErrReverseMappingNotFound) || w.Partial || w.Found != 0 || w.ProxyID != 0 {
		t.Fatalf("warning = %#v", w)
	}
	if res.ProxiesUsed[0].Warning != w {
		t.Fatal("usage must carry the same warning")
	}
	if !res.Degraded() {
		t.Fatal("Degraded() = false")
	}
}

func TestReverseMappingPartial(t *testing.T) {
	tr := script(t, map[string]string{"太郎と太郎": "Taro and him"})
	e := New(testCatalog(), testPool(), tr)
	res := mustTranslate(t, e, "拓也と拓也")

	if res.Output != "Takuya and him" {
		t.Fatalf("Output = %q", res.Output)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("Warnings = %v", res.Warnings)
	}
	w := res.Warnings[0]
	if !w.Partial || w.Found != 1 || w.Wanted != 2 {
		t.Fatalf("warning = %#v", w)
	}
}

func TestReverseMappingReorderIsReported(t *testing.T) {
	tr := script(t, map[string]string{"太郎と次郎": "Jiro and Taro"})
	e := New(testCatalog(), testPool(), tr)
	res := mustTranslate(t, e, "拓也とモーガン")

	if res.Output != "Jiro and Takuya" {
		t.Fatalf("Output = %q", res.Output)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].ProxyID != 1 {
		t.Fatalf("Warnings = %v, want one for proxy 1", res.Warnings)
	}
}

func TestRepeatedOccurrencesDoNotMoveCursor(t *testing.T) {
	tr := script(t, map[string]string{"太郎、次郎、太郎": "Taro, Jiro, Taro"})
	e := New(testCatalog(), testPool(), tr)
	res := mustTranslate(t, e, "拓也さん、モーガン、拓也さん")

	if res.Output != "Takuya-san, Morgan, Takuya-san" {
		t.Fatalf("Output = %q", res.Output)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("Warnings = %v", res.Warnings)
	}
}

func TestRenderedTextIsNotRematched(t *testing.T) {
	cat := dict.NewCatalog([]dict.Record{
		{Kind: dict.RecordName, Context: ctxID, Source: "甲", Target: "Jiro", Role: dict.RoleMainMale},
		{Kind: dict.RecordName, Context: ctxID, Source: "乙", Target: "Otsu", Role: dict.RoleMainMale},
	})
	tr := script(t, map[string]string{"太郎と次郎": "Taro and Jiro"})
	e := New(cat, testPool(), tr)
	res := mustTranslate(t, e, "甲と乙")

	if res.Output != "Jiro and Otsu" {
		t.Fatalf("Output = %q, want Jiro and Otsu", res.Output)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("Warnings = %v", res.Warnings)
	}
}

// ---------------------------------------------------------------------------
// Failures
// ---------------------------------------------------------------------------

func TestNoTranslatorConfigured(t *testing.T) {
	e := New(testCatalog(), testPool(), nil)
	for _, useProxies := range []bool{true, false} {
		res, err := e.Translate(context.Background(), ctxID, "拓也", useProxies)
		if !errors.Is(err, ErrNoTranslatorConfigured) || res != nil {
			t.Fatalf("useProxies=%v: res=%v err=%v", useProxies, res, err)
		}
	}
}

func TestTranslatorFailure(t *testing.T) {
	calls := 0
	tr := TranslatorFunc(func(context.Context, string) (string, error) {
		calls++
		return "", errors.New("quota exceeded")
	})
	e := New(testCatalog(), testPool(), tr)
	res, err := e.Translate(context.Background(), ctxID, "拓也さん", true)
	if res != nil || !errors.Is(err, ErrTranslatorFailure) {
		t.Fatalf("res=%v err=%v", res, err)
	}
	var te *TranslatorError
	if !errors.As(err, &te) || te.Message != "quota exceeded" {
		t.Fatalf("err = %#v", err)
	}
	if calls != 1 {
		t.Fatalf("translator called %d times, want exactly 1", calls)
	}
}

func TestTranslatorFailureKeepsCause(t *testing.T) {
	tr := TranslatorFunc(func(ctx context.Context, _ string) (string, error) {
		return "", ctx.Err()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(nil, nil, tr).Translate(ctx, ctxID, "text", false)
	if !errors.Is(err, ErrTranslatorFailure) || !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestPoolExhausted(t *testing.T) {
	tr := TranslatorFunc(func(context.Context, string) (string, error) {
		t.Fatal("translator must not be called")
		return "", nil
	})
	pool := MustPool([]Placeholder{{Source: "太郎", Expected: "Taro", Role: dict.RoleMainMale}})
	e := New(testCatalog(), pool, tr)

	res, err := e.Translate(context.Background(), ctxID, "拓也とモーガン", true)
	if res != nil || !errors.Is(err, ErrProxyPoolExhausted) {
		t.Fatalf("res=%v err=%v", res, err)
	}
	var pe *PoolExhaustedError
	if !errors.As(err, &pe) || pe.Role != dict.RoleMainMale || pe.Size != 1 {
		t.Fatalf("err = %#v", err)
	}

	// A role with no placeholders at all.
	_, err = e.Translate(context.Background(), ctxID, "花", true)
	if !errors.As(err, &pe) || pe.Role != dict.RoleMainFemale || pe.Size != 0 {
		t.Fatalf("err = %#v", err)
	}
}

func TestSourceErrorAborts(t *testing.T) {
	e := New(testCatalog().Strict(), testPool(), script(t, nil))
	_, err := e.Translate(context.Background(), "unknown", "拓也", true)
	if !errors.Is(err, dict.ErrUnknownContext) {
		t.Fatalf("err = %v, want ErrUnknownContext", err)
	}
}

func TestEmptyDictionaryPassesThrough(t *testing.T) {
	tr := script(t, map[string]string{"拓也です": "It is Takuya"})
	for name, e := range map[string]*Engine{
		"nil source":      New(nil, testPool(), tr),
		"unknown context": New(testCatalog(), testPool(), tr),
	} {
		res, err := e.Translate(context.Background(), "other", "拓也です", true)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if res.Output != "It is Takuya" || len(res.ProxiesUsed) != 0 || res.Primary != nil {
			t.Fatalf("%s: result = %#v", name, res)
		}
	}
}

// ---------------------------------------------------------------------------
// Concurrency
// ---------------------------------------------------------------------------

func TestConcurrentTranslate(t *testing.T) {
	tr := script(t, map[string]string{
		"太郎と次郎": "Taro and Jiro",
		"桜":     "Sakura",
	})
	e := New(testCatalog(), testPool(), tr)

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			res, err := e.Translate(context.Background(), ctxID, "拓也とモーガン", true)
			if err == nil && res.Output != "Takuya and Morgan" {
				err = errors.New("bad output: " + res.Output)
			}
			errs <- err
		}()
		go func() {
			defer wg.Done()
			res, err := e.Translate(context.Background(), ctxID, "花", true)
			if err == nil && res.Output != "Hana" {
				err = errors.New("bad output: " + res.Output)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}
}

// ---------------------------------------------------------------------------
// Pool
// ---------------------------------------------------------------------------

func TestNewPoolValidation(t *testing.T) {
	bad := [][]Placeholder{
		{{Source: "", Expected: "A"}},
		{{Source: "a", Expected: ""}},
		{{Source: "a", Expected: "A"}, {Source: "a", Expected: "B"}},
		{{Source: "a", Expected: "A"}, {Source: "b", Expected: "A"}},
		{{Source: "健", Expected: "Ken"}, {Source: "健二", Expected: "Kenji"}},
		{{Source: "健二", Expected: "Kenji"}, {Source: "健", Expected: "Ken"}},
	}
	for _, phs := range bad {
		if _, err := NewPool(phs); err == nil {
			t.Fatalf("NewPool(%v) expected error", phs)
		}
	}

	p := testPool()
	if p.Len() != 4 || p.Size(dict.RoleMainMale) != 3 || p.Size(dict.RoleSubFemale) != 0 {
		t.Fatalf("pool sizes: len=%d male=%d", p.Len(), p.Size(dict.RoleMainMale))
	}
	var nilPool *Pool
	if nilPool.Len() != 0 || nilPool.Size(dict.RoleNeutral) != 0 {
		t.Fatal("nil pool must be empty")
	}
}

func TestLoadPool(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pool.yaml")
	data := "pool:\n" +
		"  - {source: 太郎, expected: Taro, role: main-male}\n" +
		"  - {source: 桜, expected: Sakura, role: MainFemale}\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	p, err := LoadPool(path)
	if err != nil {
		t.Fatalf("LoadPool error: %v", err)
	}
	phs := p.Placeholders()
	if len(phs) != 2 || phs[1].Role != dict.RoleMainFemale || phs[1].Expected != "Sakura" {
		t.Fatalf("placeholders = %#v", phs)
	}

	if err := os.WriteFile(path, []byte("pool:\n  - {source: x, expected: X, role: villain}\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadPool(path); err == nil || !strings.Contains(err.Error(), "placeholder #1") {
		t.Fatalf("LoadPool error = %v", err)
	}
}
