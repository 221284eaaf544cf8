// Package translate is the machine-translation side of nameproxy: one
// sentence in, one translated sentence out, over HTTP API-based providers
// (Google AI, Groq, OpenCode, Anthropic, Custom OpenAI, Ollama and
// LibreTranslate-compatible servers).
//
// A Bridge makes exactly one request per call. Retries, backoff and rate
// limiting are the caller's concern.
package translate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/minios-linux/nameproxy/langmeta"
)

// ---------------------------------------------------------------------------
// Provider IDs
// ---------------------------------------------------------------------------

const (
	ProviderGoogle       = "google"
	ProviderGroq         = "groq"
	ProviderOpenCode     = "opencode"
	ProviderAnthropic    = "anthropic"
	ProviderCustomOpenAI = "custom-openai"
	ProviderOllama       = "ollama"
	ProviderLibre        = "libre"
)

// ---------------------------------------------------------------------------
// Provider configuration
// ---------------------------------------------------------------------------

// Provider holds the configuration for a translation service.
type Provider struct {
	// ID is the provider identifier (google, groq, opencode, etc.).
	ID string
	// Name is the display name.
	Name string
	// BaseURL is the API base URL.
	BaseURL string
	// APIKey is the authentication key (empty for local services).
	APIKey string
	// Model is the model identifier. LibreTranslate has none.
	Model string
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
	// Timeout is the request timeout.
	Timeout time.Duration
}

// NeedsModel reports whether the provider requires a model name.
func (p Provider) NeedsModel() bool {
	return p.ID != ProviderLibre
}

// NeedsAPIKey reports whether the provider cannot work without a key.
func (p Provider) NeedsAPIKey() bool {
	switch p.ID {
	case ProviderGoogle, ProviderGroq, ProviderOpenCode, ProviderAnthropic:
		return true
	}
	return false
}

// DefaultProviders returns the pre-configured provider definitions.
func DefaultProviders() map[string]Provider {
	return map[string]Provider{
		ProviderGoogle: {
			ID:      ProviderGoogle,
			Name:    "Google AI (Gemini)",
			BaseURL: "https://generativelanguage.googleapis.com",
			Timeout: 60 * time.Second,
		},
		ProviderGroq: {
			ID:      ProviderGroq,
			Name:    "Groq",
			BaseURL: "https://api.groq.com/openai/v1",
			Timeout: 30 * time.Second,
		},
		ProviderOpenCode: {
			ID:      ProviderOpenCode,
			Name:    "OpenCode",
			BaseURL: "https://opencode.ai/zen/v1",
			Timeout: 60 * time.Second,
		},
		ProviderAnthropic: {
			ID:      ProviderAnthropic,
			Name:    "Anthropic",
			BaseURL: "https://api.anthropic.com/v1",
			Timeout: 60 * time.Second,
		},
		ProviderCustomOpenAI: {
			ID:      ProviderCustomOpenAI,
			Name:    "Custom OpenAI",
			Timeout: 60 * time.Second,
		},
		ProviderOllama: {
			ID:      ProviderOllama,
			Name:    "Ollama",
			BaseURL: "http://localhost:11434/v1",
			Timeout: 120 * time.Second,
		},
		ProviderLibre: {
			ID:      ProviderLibre,
			Name:    "LibreTranslate",
			BaseURL: "http://localhost:5000",
			Timeout: 30 * time.Second,
		},
	}
}

// ---------------------------------------------------------------------------
// Failures
// ---------------------------------------------------------------------------

// Failure kinds. Every error returned by Bridge.Translate is a *Failure
// matching exactly one of these with errors.Is.
var (
	ErrNetwork           = errors.New("network error")
	ErrQuotaExceeded     = errors.New("quota exceeded")
	ErrMalformedResponse = errors.New("malformed response")
	ErrProviderStatus    = errors.New("provider error")
)

// Failure describes why a single translation request failed.
type Failure struct {
	Kind     error
	Provider string
	// Status is the HTTP status code, 0 when no response was received.
	Status int
	Detail string
	Err    error
}

func (f *Failure) Error() string {
	var b strings.Builder
	b.WriteString(f.Provider)
	b.WriteString(": ")
	b.WriteString(f.Kind.Error())
	if f.Status != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", f.Status)
	}
	if f.Detail != "" {
		b.WriteString(": ")
		b.WriteString(f.Detail)
	}
	return b.String()
}

func (f *Failure) Is(target error) bool { return target == f.Kind }

func (f *Failure) Unwrap() error { return f.Err }

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// Options controls a Bridge.
type Options struct {
	// Provider is the translation service configuration.
	Provider Provider
	// SourceLang and TargetLang are BCP 47 codes (e.g. "ja", "en").
	SourceLang string
	TargetLang string
	// SystemPrompt overrides the prompt for LLM providers. It may contain
	// {{sourceLang}} and {{targetLang}}.
	SystemPrompt string
	// PromptType selects a prompt from Prompts; empty means "sentence".
	PromptType string
	// Prompts supplies user-customized prompts; nil uses the built-ins.
	Prompts *PromptsConfig
	// Timeout overrides the provider timeout if set.
	Timeout time.Duration
	// Logger receives request diagnostics. Nil discards them.
	Logger *zap.Logger
}

func (o *Options) effectiveTimeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	if o.Provider.Timeout > 0 {
		return o.Provider.Timeout
	}
	return 60 * time.Second
}

// resolvedPrompt returns the system prompt with language placeholders
// filled in with English language names.
func (o *Options) resolvedPrompt() string {
	prompt := o.SystemPrompt
	if prompt == "" {
		promptType := o.PromptType
		if promptType == "" {
			promptType = PromptSentence
		}
		prompt = o.Prompts.Get(promptType)
	}
	r := strings.NewReplacer(
		"{{sourceLang}}", langmeta.Resolve(o.SourceLang).English,
		"{{targetLang}}", langmeta.Resolve(o.TargetLang).English,
	)
	return r.Replace(prompt)
}

// ---------------------------------------------------------------------------
// Bridge
// ---------------------------------------------------------------------------

// Bridge sends sentences to one provider. It is safe for concurrent use.
type Bridge struct {
	opts   Options
	prompt string
	client *http.Client
	log    *zap.Logger
}

// NewBridge validates opts and returns a ready bridge.
func NewBridge(opts Options) (*Bridge, error) {
	prov := opts.Provider
	if prov.ID == "" {
		return nil, errors.New("provider is required")
	}
	if strings.TrimSpace(prov.BaseURL) == "" {
		return nil, fmt.Errorf("provider %q has no base URL", prov.ID)
	}
	if prov.NeedsModel() && prov.Model == "" {
		return nil, fmt.Errorf("provider %q requires a model", prov.ID)
	}
	if prov.NeedsAPIKey() && prov.APIKey == "" {
		return nil, fmt.Errorf("provider %q requires an API key", prov.ID)
	}
	if opts.TargetLang == "" {
		return nil, errors.New("target language is required")
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{
		opts:   opts,
		prompt: opts.resolvedPrompt(),
		client: makeHTTPClient(prov.Proxy, opts.effectiveTimeout()),
		log:    log.With(zap.String("provider", prov.ID)),
	}, nil
}

// Provider returns the provider the bridge talks to.
func (b *Bridge) Provider() Provider { return b.opts.Provider }

// Translate sends sentence to the provider once and returns its answer.
func (b *Bridge) Translate(ctx context.Context, sentence string) (string, error) {
	prov := b.opts.Provider
	endpoint, headers, body, err := buildHTTPRequest(prov, b.prompt, sentence, b.opts.SourceLang, b.opts.TargetLang)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	b.log.Debug("sending translation request", zap.String("endpoint", endpoint), zap.Int("chars", len(sentence)))

	resp, err := b.client.Do(req)
	if err != nil {
		return "", &Failure{Kind: ErrNetwork, Provider: prov.ID, Detail: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Failure{Kind: ErrNetwork, Provider: prov.ID, Status: resp.StatusCode, Detail: "reading body", Err: err}
	}
	b.log.Debug("translation response received",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &Failure{Kind: ErrQuotaExceeded, Provider: prov.ID, Status: resp.StatusCode, Detail: truncate(string(respBody), 200)}
	case resp.StatusCode != http.StatusOK:
		return "", &Failure{Kind: ErrProviderStatus, Provider: prov.ID, Status: resp.StatusCode, Detail: truncate(string(respBody), 500)}
	}

	text, err := extractResponseText(respBody)
	if err != nil {
		return "", &Failure{Kind: ErrMalformedResponse, Provider: prov.ID, Status: resp.StatusCode, Detail: err.Error(), Err: err}
	}
	if formatFor(prov) == formatLibre {
		return text, nil
	}
	return cleanResponse(text), nil
}
