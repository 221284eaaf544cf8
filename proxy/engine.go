// Package proxy implements name-preserving translation: known names are
// swapped for placeholder names the translator handles predictably, and the
// true target-language names are restored in the translated output.
package proxy

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/minios-linux/nameproxy/dict"
)

// Translator is the external machine-translation capability.
type Translator interface {
	Translate(ctx context.Context, sentence string) (string, error)
}

// TranslatorFunc adapts a function to Translator.
type TranslatorFunc func(ctx context.Context, sentence string) (string, error)

func (f TranslatorFunc) Translate(ctx context.Context, sentence string) (string, error) {
	return f(ctx, sentence)
}

// Usage describes one assigned proxy in a result.
type Usage struct {
	Proxy Proxy `json:"proxy"`
	// Count is the number of distinct span texts that resolved to Proxy.
	Count int `json:"count"`
	// Occurrences is the number of source positions, for diagnostics.
	Occurrences int                     `json:"occurrences"`
	Source      string                  `json:"source"`
	Rendered    string                  `json:"rendered"`
	Warning     *ReverseMappingNotFound `json:"warning,omitempty"`
}

// Result is the outcome of one translate call.
type Result struct {
	Output string `json:"output"`
	// Sentence is what was sent to the translator.
	Sentence    string                    `json:"sentence"`
	ProxiesUsed []Usage                   `json:"proxies_used"`
	Warnings    []*ReverseMappingNotFound `json:"warnings,omitempty"`
	// Primary is the proxy of the first span in the input, if any.
	Primary *Proxy `json:"primary,omitempty"`
}

// Degraded reports whether any name may be garbled in Output.
func (r *Result) Degraded() bool { return len(r.Warnings) > 0 }

// Plan is the translator-independent part of a call: the spans found, the
// proxies bound to them, and the sentence that would be sent.
type Plan struct {
	Input    string  `json:"input"`
	Sentence string  `json:"sentence"`
	Spans    []Span  `json:"spans"`
	Proxies  []Proxy `json:"proxies"`

	assignment *assignment
}

// ProxyFor returns the proxy bound to a span text of the plan.
func (p *Plan) ProxyFor(text string) (Proxy, bool) {
	if p.assignment == nil {
		return Proxy{}, false
	}
	g, ok := p.assignment.byText[text]
	if !ok {
		return Proxy{}, false
	}
	return g.proxy, true
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithJoinMarker overrides the glyph joining two names into a compound.
func WithJoinMarker(join string) Option {
	return func(e *Engine) {
		if join != "" {
			e.join = join
		}
	}
}

// Engine runs the match, assign, translate, reverse pipeline. It holds no
// per-call state and is safe for concurrent use.
type Engine struct {
	source     dict.Source
	pool       *Pool
	translator Translator
	join       string
	log        *zap.Logger
}

// New returns an engine. source and pool may be nil (no names are ever
// matched, and any match would exhaust the pool). translator may be nil, in
// which case Translate fails with ErrNoTranslatorConfigured.
func New(source dict.Source, pool *Pool, translator Translator, opts ...Option) *Engine {
	e := &Engine{
		source:     source,
		pool:       pool,
		translator: translator,
		join:       DefaultJoinMarker,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) index(ctx context.Context, contextID string) (*dict.Index, error) {
	if e.source == nil {
		return nil, nil
	}
	idx, err := e.source.Index(ctx, contextID)
	if err != nil {
		return nil, fmt.Errorf("loading index for context %q: %w", contextID, err)
	}
	return idx, nil
}

// Prepare matches input against the context's dictionary and assigns
// proxies without calling the translator.
func (e *Engine) Prepare(ctx context.Context, contextID, input string) (*Plan, error) {
	idx, err := e.index(ctx, contextID)
	if err != nil {
		return nil, err
	}
	text := dict.NormalizeText(input)
	spans := NewMatcher(idx, e.join).Match(text)
	a, err := assign(spans, e.pool)
	if err != nil {
		return nil, err
	}
	return &Plan{
		Input:      text,
		Sentence:   a.substitute(text, spans),
		Spans:      spans,
		Proxies:    a.proxies(),
		assignment: a,
	}, nil
}

// Translate translates input within contextID. With useProxies false the
// input is sent to the translator unchanged and no names are restored.
//
// NoTranslatorConfigured, TranslatorFailure and ProxyPoolExhausted abort the
// call with a nil result. Reverse-mapping problems are attached to the
// result as warnings.
func (e *Engine) Translate(ctx context.Context, contextID, input string, useProxies bool) (*Result, error) {
	if e.translator == nil {
		return nil, ErrNoTranslatorConfigured
	}

	if !useProxies {
		out, err := e.call(ctx, input)
		if err != nil {
			return nil, err
		}
		return &Result{Output: out, Sentence: input, ProxiesUsed: []Usage{}}, nil
	}

	plan, err := e.Prepare(ctx, contextID, input)
	if err != nil {
		return nil, err
	}
	e.log.Debug("proxy sentence prepared",
		zap.String("context", contextID),
		zap.Int("spans", len(plan.Spans)),
		zap.Int("proxies", len(plan.Proxies)),
		zap.String("sentence", plan.Sentence),
	)

	translated, err := e.call(ctx, plan.Sentence)
	if err != nil {
		return nil, err
	}

	output, warnings := reverseMap(translated, plan.assignment)
	res := assemble(plan, output, warnings)
	for _, w := range res.Warnings {
		e.log.Warn("reverse mapping incomplete",
			zap.String("context", contextID),
			zap.Int("proxy", w.ProxyID),
			zap.String("expected", w.Expected),
			zap.Int("wanted", w.Wanted),
			zap.Int("found", w.Found),
		)
	}
	return res, nil
}

// call performs exactly one translator attempt.
func (e *Engine) call(ctx context.Context, sentence string) (string, error) {
	out, err := e.translator.Translate(ctx, sentence)
	if err != nil {
		return "", &TranslatorError{Message: err.Error(), Err: err}
	}
	return out, nil
}

// assemble builds the result: one usage per distinct proxy in assignment
// order.
func assemble(plan *Plan, output string, warnings map[int]*ReverseMappingNotFound) *Result {
	a := plan.assignment
	counts := make(map[int]int, len(a.groups))
	for _, g := range a.groups {
		counts[g.proxy.ID]++
	}

	res := &Result{
		Output:      output,
		Sentence:    plan.Sentence,
		ProxiesUsed: make([]Usage, 0, len(a.groups)),
	}
	for _, g := range a.groups {
		w := warnings[g.proxy.ID]
		res.ProxiesUsed = append(res.ProxiesUsed, Usage{
			Proxy:       g.proxy,
			Count:       counts[g.proxy.ID],
			Occurrences: g.positions,
			Source:      g.span.Text,
			Rendered:    g.span.Rendered(),
			Warning:     w,
		})
		if w != nil {
			res.Warnings = append(res.Warnings, w)
		}
	}
	if len(a.groups) > 0 {
		p := a.groups[0].proxy
		res.Primary = &p
	}
	return res
}
