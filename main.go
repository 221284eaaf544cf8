// Command nameproxy is name-preserving machine translation for games and fiction.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/minios-linux/nameproxy/config"
	"github.com/minios-linux/nameproxy/dict"
	"github.com/minios-linux/nameproxy/i18n"
	"github.com/minios-linux/nameproxy/logging"
	"github.com/minios-linux/nameproxy/proxy"
	"github.com/minios-linux/nameproxy/settings"
	"github.com/minios-linux/nameproxy/store"
	"github.com/minios-linux/nameproxy/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir    string
	configFile string
	verbose    bool
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nameproxy",
		Short: "Name-preserving machine translation",
		Long: `nameproxy — name-preserving machine translation.

Known character names are swapped for placeholder names before a sentence
is sent to a machine-translation provider, and the correct target-language
names are put back into the answer. Names come from per-context
dictionaries (YAML, TSV or a SQLite store).

Commands:
  translate   Translate one sentence
  batch       Translate a file line by line, in parallel
  match       Show which names would be replaced (no translation)
  dict        Import and inspect dictionaries
  cache       Manage the translation cache
  serve       Run the HTTP API
  auth        Manage provider API keys

Providers:
  google         Google AI (Gemini) — API key
  groq           Groq — API key
  opencode       OpenCode (multi-format dispatcher)
  anthropic      Anthropic — API key
  custom-openai  Custom OpenAI-compatible endpoint
  ollama         Ollama local server
  libre          LibreTranslate-compatible server`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global persistent flags, inherited by all subcommands
	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory (searched for "+config.FileName+")")
	root.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: <root>/"+config.FileName+")")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newTranslateCmd(),
		newBatchCmd(),
		newMatchCmd(),
		newDictCmd(),
		newCacheCmd(),
		newServeCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "nameproxy version %s\n", version)
			fmt.Fprintf(out, "  commit:    %s\n", commit)
			fmt.Fprintf(out, "  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// Shared flags
// ---------------------------------------------------------------------------

// addEngineFlags registers the flags that shape matching. Their names are
// the ones config.Load binds.
func addEngineFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("context", "", "Dictionary context (game or project ID)")
	f.StringSlice("dictionary", nil, "Dictionary file (YAML or TSV), repeatable")
	f.String("database", "", "SQLite dictionary store")
	f.String("pool", "", "Placeholder pool file (YAML)")
	f.String("join-marker", "", "Glyph joining two names into one compound (default ・)")
}

// addProviderFlags registers translation provider flags.
func addProviderFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("provider", "", "Translation provider: google, groq, opencode, anthropic, custom-openai, ollama, libre")
	f.String("model", "", "Model name (not used by libre)")
	f.String("api-key", "", "API key (or "+settings.EnvAPIKey+" env var)")
	f.String("base-url", "", "Custom API base URL")
	f.String("proxy", "", "HTTP/HTTPS proxy URL")
	f.Duration("timeout", 0, "Request timeout (0 = provider default)")
	f.String("prompt", "", "Custom system prompt (use {{sourceLang}} and {{targetLang}} placeholders)")
	f.String("prompt-type", "", "Prompt to use: sentence or dialogue")
	f.String("source-lang", "", "Source language (default ja)")
	f.String("target-lang", "", "Target language (default en)")
	f.Bool("cache", false, "Cache translations in the database")

	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		completions := make([]string, 0, len(allProviders))
		for _, p := range allProviders {
			completions = append(completions, fmt.Sprintf("%s\t%s", p.id, p.name))
		}
		return completions, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("model", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		p, _ := cmd.Flags().GetString("provider")
		if models, ok := modelExamples[p]; ok {
			return strings.Split(models, ", "), cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	})
}

// ---------------------------------------------------------------------------
// Application wiring
// ---------------------------------------------------------------------------

// app is everything a command needs, built from the layered config.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	store  *store.Store
	source dict.Source
	engine *proxy.Engine
}

type appOptions struct {
	// needTranslator fails early when no provider is configured.
	needTranslator bool
	// needPool fails early when no placeholder pool is configured.
	needPool  bool
	logFormat string
}

var errNoProvider = errors.New("no provider specified. Use --provider or set provider.id in " + config.FileName + "\n\n" +
	"Available providers:\n" +
	"  Cloud APIs (require API key):\n" +
	"    google         Google AI (Gemini)\n" +
	"    groq           Groq\n" +
	"    anthropic      Anthropic\n" +
	"    opencode       OpenCode\n\n" +
	"  Local services (no API key):\n" +
	"    ollama         Ollama local server\n" +
	"    libre          LibreTranslate server\n\n" +
	"  Custom:\n" +
	"    custom-openai  Custom OpenAI-compatible endpoint\n\n" +
	"Example: nameproxy translate --provider groq --model llama-3.3-70b-versatile --context game-1 '拓也さんが来た'")

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(config.LoadOptions{Root: rootDir, File: configFile, Flags: cmd.Flags()})
}

func newLogger(cfg *config.Config, format string) (*zap.Logger, error) {
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	return logging.New(logging.Options{Level: level, Format: format})
}

func newApp(cmd *cobra.Command, opts appOptions) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if opts.logFormat == "" {
		opts.logFormat = logging.FormatConsole
	}
	log, err := newLogger(cfg, opts.logFormat)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log}

	if err := a.openSource(); err != nil {
		a.Close()
		return nil, err
	}

	var pool *proxy.Pool
	if cfg.PoolFile != "" || len(cfg.Pool) > 0 || opts.needPool {
		if pool, err = cfg.LoadPool(); err != nil {
			a.Close()
			return nil, err
		}
	}

	var tr proxy.Translator
	if cfg.Provider.ID != "" || opts.needTranslator {
		if tr, err = a.translator(cmd); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.engine = proxy.New(a.source, pool, tr,
		proxy.WithLogger(log),
		proxy.WithJoinMarker(cfg.JoinMarker),
	)
	return a, nil
}

// openSource picks the dictionary: the configured database, else the
// configured dictionary files, else the default database if one exists.
func (a *app) openSource() error {
	path := a.cfg.DatabasePath()
	if path == "" {
		if files := a.cfg.DictionaryPaths(); len(files) > 0 {
			records, err := dict.LoadFiles(files...)
			if err != nil {
				return err
			}
			a.source = dict.NewCatalog(records)
			a.log.Debug("dictionary loaded", zap.Strings("files", files), zap.Int("records", len(records)))
			return nil
		}
		if def, err := config.DefaultDatabasePath(); err == nil && fileExists(def) {
			path = def
		}
	}
	if path == "" {
		a.log.Debug("no dictionary configured")
		a.source = dict.NewCatalog(nil)
		return nil
	}

	st, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("opening dictionary store %s: %w", path, err)
	}
	a.store = st
	a.source = st
	a.log.Debug("dictionary store opened", zap.String("path", path))
	return nil
}

func (a *app) translator(cmd *cobra.Command) (proxy.Translator, error) {
	p := a.cfg.Provider
	if p.ID == "" {
		return nil, errNoProvider
	}
	apiKeyFlag, _ := cmd.Flags().GetString("api-key")
	key := settings.ResolveAPIKey(p.ID, apiKeyFlag, p.APIKey)

	prov := resolveProvider(p.ID, p.BaseURL, key, p.Model, p.Proxy, p.Timeout)
	if err := validateProvider(prov, key); err != nil {
		return nil, err
	}

	prompts, promptsPath, err := translate.LoadPromptsFromDefaultLocations()
	if err != nil {
		logWarning(i18n.T("Cannot load prompts file %s: %v (using built-in prompts)"), promptsPath, err)
	}

	bridge, err := translate.NewBridge(translate.Options{
		Provider:     prov,
		SourceLang:   a.cfg.SourceLang,
		TargetLang:   a.cfg.TargetLang,
		SystemPrompt: a.cfg.Prompt,
		PromptType:   a.cfg.PromptType,
		Prompts:      prompts,
		Logger:       a.log,
	})
	if err != nil {
		return nil, err
	}

	if a.cfg.Cache && a.store != nil {
		return &store.CachedTranslator{
			Store:     a.store,
			Next:      bridge,
			Namespace: a.cfg.CacheNamespace(),
			Logger:    a.log,
		}, nil
	}
	return bridge, nil
}

func (a *app) Close() {
	if a.store != nil {
		_ = a.store.Close()
	}
	_ = a.log.Sync()
}

// contextID returns the dictionary context or an error if proxies need one.
func (a *app) contextID(useProxies bool) (string, error) {
	if useProxies && a.cfg.Context == "" {
		return "", errors.New("--context is required (or set context in " + config.FileName + ")")
	}
	return a.cfg.Context, nil
}

// explain adds a hint to errors the user can act on.
func explain(err error) error {
	var exhausted *proxy.PoolExhaustedError
	switch {
	case errors.As(err, &exhausted):
		return fmt.Errorf("%w\n\nThe sentence names more distinct %s characters than the pool has placeholders.\n"+
			"Add %s entries to pool_file or pool in %s", err, exhausted.Role, exhausted.Role, config.FileName)
	case errors.Is(err, translate.ErrQuotaExceeded):
		return fmt.Errorf("%w\n\nThe provider rejected the request for quota reasons; wait and retry", err)
	case errors.Is(err, proxy.ErrNoTranslatorConfigured):
		return errNoProvider
	}
	return err
}

func interruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt)
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

func newTranslateCmd() *cobra.Command {
	var (
		noProxy bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "translate [TEXT...]",
		Short: "Translate one sentence",
		Long: `Translate one sentence, keeping dictionary names intact.

The words are joined with spaces. Without arguments the sentence is read
from standard input.

Examples:
  nameproxy translate --context game-1 '拓也さんが来た'
  echo '拓也・モーガンさん' | nameproxy translate --context game-1 --json
  nameproxy translate --no-proxy 'こんにちは'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			a, err := newApp(cmd, appOptions{needTranslator: true, needPool: !noProxy})
			if err != nil {
				return err
			}
			defer a.Close()

			contextID, err := a.contextID(!noProxy)
			if err != nil {
				return err
			}

			ctx, stop := interruptContext(cmd.Context())
			defer stop()

			res, err := a.engine.Translate(ctx, contextID, input, !noProxy)
			if err != nil {
				return explain(err)
			}
			return printResult(cmd.OutOrStdout(), res, asJSON)
		},
	}

	addEngineFlags(cmd)
	addProviderFlags(cmd)
	cmd.Flags().BoolVar(&noProxy, "no-proxy", false, "Send the text as is, without name substitution")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")

	return cmd
}

func readInput(r io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading standard input: %w", err)
	}
	input := strings.TrimRight(string(data), "\r\n")
	if strings.TrimSpace(input) == "" {
		return "", errors.New("nothing to translate")
	}
	return input, nil
}

func printResult(w io.Writer, res *proxy.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintln(w, res.Output)
	if verbose {
		for _, u := range res.ProxiesUsed {
			logInfo("%s → %s (proxy %s/%s, %d×)", u.Source, u.Rendered, u.Proxy.Source, u.Proxy.Expected, u.Occurrences)
		}
	}
	for _, warn := range res.Warnings {
		logWarning("%v", warn)
	}
	return nil
}

// ---------------------------------------------------------------------------
// batch
// ---------------------------------------------------------------------------

// batchResult is one line of batch output.
type batchResult struct {
	Line     int                             `json:"line"`
	Input    string                          `json:"input"`
	Output   string                          `json:"output"`
	Proxies  []proxy.Usage                   `json:"proxies_used,omitempty"`
	Warnings []*proxy.ReverseMappingNotFound `json:"warnings,omitempty"`
	Error    string                          `json:"error,omitempty"`
}

type batchJob struct {
	index int
	text  string
}

func newBatchCmd() *cobra.Command {
	var (
		outPath       string
		maxConcurrent int
		requestDelay  time.Duration
		noProxy       bool
		asJSON        bool
		noProgress    bool
	)

	cmd := &cobra.Command{
		Use:   "batch FILE",
		Short: "Translate a file line by line, in parallel",
		Long: `Translate every non-empty line of FILE ("-" for standard input).

Lines are independent calls and run concurrently. Output keeps the input
order: one translated line per input line, or one JSON object per line
with --json. Failed lines are reported and left empty.

Examples:
  nameproxy batch script.txt --context game-1 --out script.en.txt
  nameproxy batch script.txt --context game-1 --json --max-concurrent 8`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := readLines(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			a, err := newApp(cmd, appOptions{needTranslator: true, needPool: !noProxy})
			if err != nil {
				return err
			}
			defer a.Close()

			contextID, err := a.contextID(!noProxy)
			if err != nil {
				return err
			}

			results := make([]batchResult, len(lines))
			var jobs []batchJob
			for i, line := range lines {
				results[i] = batchResult{Line: i + 1, Input: line}
				if strings.TrimSpace(line) != "" {
					jobs = append(jobs, batchJob{index: i, text: line})
				}
			}
			logInfo(i18n.N("Translating %d line (max concurrent: %d)", "Translating %d lines (max concurrent: %d)", len(jobs)), len(jobs), maxConcurrent)

			ctx, stop := interruptContext(cmd.Context())
			defer stop()

			var bar *uiprogress.Bar
			var progress *uiprogress.Progress
			if !noProgress && len(jobs) > 0 {
				uiprogress.Out = os.Stderr
				progress = uiprogress.New()
				progress.Start()
				bar = progress.AddBar(len(jobs)).AppendCompleted().PrependElapsed()
				bar.PrependFunc(func(b *uiprogress.Bar) string {
					return fmt.Sprintf("%d/%d", b.Current(), len(jobs))
				})
			}

			runErr := translate.RunParallel(ctx, jobs, maxConcurrent, requestDelay, func(ctx context.Context, j batchJob) error {
				res, err := a.engine.Translate(ctx, contextID, j.text, !noProxy)
				r := &results[j.index]
				if err != nil {
					r.Error = err.Error()
				} else {
					r.Output = res.Output
					r.Proxies = res.ProxiesUsed
					r.Warnings = res.Warnings
				}
				if bar != nil {
					bar.Incr()
				}
				return nil
			})
			if progress != nil {
				progress.Stop()
			}

			failed := 0
			for _, r := range results {
				if r.Error != "" {
					failed++
					logError("line %d: %s", r.Line, r.Error)
				}
				for _, w := range r.Warnings {
					logWarning("line %d: %v", r.Line, w)
				}
			}

			if err := writeBatch(cmd.OutOrStdout(), outPath, results, asJSON); err != nil {
				return err
			}
			if runErr != nil {
				return runErr
			}
			if failed > 0 {
				return fmt.Errorf(i18n.N("%d of %d line failed", "%d of %d lines failed", len(jobs)), failed, len(jobs))
			}
			logSuccess("%s", i18n.T("Translation complete!"))
			return nil
		},
	}

	addEngineFlags(cmd)
	addProviderFlags(cmd)
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default: standard output)")
	cmd.Flags().IntVar(&maxConcurrent, "max-concurrent", 3, "Maximum concurrent requests")
	cmd.Flags().DurationVar(&requestDelay, "request-delay", 0, "Delay between launching requests")
	cmd.Flags().BoolVar(&noProxy, "no-proxy", false, "Send lines as is, without name substitution")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Write one JSON result per line")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Hide the progress bar")

	return cmd
}

func readLines(stdin io.Reader, path string) ([]string, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return lines, nil
}

func writeBatch(stdout io.Writer, outPath string, results []batchResult, asJSON bool) error {
	w := stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for _, r := range results {
		if asJSON {
			if err := enc.Encode(r); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintln(bw, r.Output)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if outPath != "" {
		logSuccess(i18n.T("Wrote %s"), outPath)
	}
	return nil
}

// ---------------------------------------------------------------------------
// match (dry run)
// ---------------------------------------------------------------------------

func newMatchCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "match [TEXT...]",
		Short: "Show which names would be replaced (no translation)",
		Long: `Match TEXT against the dictionary and assign placeholders without
calling any provider. Prints every span found and the sentence that would
be sent.

Example:
  nameproxy match --context game-1 '拓也・モーガンさんと花'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			a, err := newApp(cmd, appOptions{needPool: true})
			if err != nil {
				return err
			}
			defer a.Close()

			contextID, err := a.contextID(true)
			if err != nil {
				return err
			}

			plan, err := a.engine.Prepare(cmd.Context(), contextID, input)
			if err != nil {
				return explain(err)
			}
			return printPlan(cmd.OutOrStdout(), plan, asJSON)
		},
	}

	addEngineFlags(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the plan as JSON")

	return cmd
}

func printPlan(w io.Writer, plan *proxy.Plan, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	}

	if len(plan.Spans) == 0 {
		fmt.Fprintln(w, i18n.T("No names found."))
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SPAN\tSHAPE\tROLE\tRENDERED\tPROXY")
	for _, sp := range plan.Spans {
		p, _ := plan.ProxyFor(sp.Text)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s → %s\n", sp.Text, sp.Shape, sp.Role(), sp.Rendered(), p.Source, p.Expected)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nSentence: %s\n", plan.Sentence)
	return nil
}

// ---------------------------------------------------------------------------
// Shared helpers
// ---------------------------------------------------------------------------

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

var modelExamples = map[string]string{
	translate.ProviderGoogle:       "gemini-2.5-flash, gemini-2.0-flash, gemini-1.5-pro",
	translate.ProviderGroq:         "llama-3.3-70b-versatile, mixtral-8x7b-32768",
	translate.ProviderOpenCode:     "big-pickle, gemini-2.5-flash, claude-sonnet-4.5, gpt-4o",
	translate.ProviderAnthropic:    "claude-sonnet-4-5, claude-haiku-4-5",
	translate.ProviderOllama:       "llama3.2, qwen2.5, mistral",
	translate.ProviderCustomOpenAI: "gpt-4o, gpt-4o-mini",
}

func resolveProvider(name, baseURL, apiKey, model, proxyURL string, timeout time.Duration) translate.Provider {
	defaults := translate.DefaultProviders()

	var prov translate.Provider

	if p, ok := defaults[strings.ToLower(name)]; ok {
		prov = p
	} else {
		// An unknown name is taken as the URL of an OpenAI-compatible endpoint.
		prov = translate.Provider{
			ID:      translate.ProviderCustomOpenAI,
			Name:    name,
			BaseURL: name,
			Timeout: 60 * time.Second,
		}
	}

	if baseURL != "" {
		prov.BaseURL = baseURL
	} else if stored := settings.GetBaseURL(prov.ID); stored != "" {
		prov.BaseURL = stored
	}
	if apiKey != "" {
		prov.APIKey = apiKey
	}
	if model != "" {
		prov.Model = model
	}
	if proxyURL != "" {
		prov.Proxy = proxyURL
	}
	if timeout > 0 {
		prov.Timeout = timeout
	}

	return prov
}

func validateProvider(prov translate.Provider, apiKey string) error {
	if prov.NeedsModel() && prov.Model == "" {
		examples := modelExamples[prov.ID]
		if examples == "" {
			examples = "check provider documentation"
		}
		return fmt.Errorf("--model is required for provider '%s'\n\n"+
			"Example models for %s:\n  %s\n\n"+
			"Usage: --provider %s --model MODEL_NAME",
			prov.ID, prov.Name, examples, prov.ID)
	}

	switch prov.ID {
	case translate.ProviderGoogle, translate.ProviderGroq, translate.ProviderAnthropic, translate.ProviderOpenCode:
		if apiKey == "" {
			return fmt.Errorf("provider '%s' requires an API key\n\n"+
				"Option 1: Store your API key:\n"+
				"  nameproxy auth login --provider %s\n\n"+
				"Option 2: Pass key directly:\n"+
				"  --api-key YOUR_KEY or export %s=YOUR_KEY",
				prov.ID, prov.ID, settings.EnvAPIKey)
		}

	case translate.ProviderCustomOpenAI:
		if prov.BaseURL == "" {
			return fmt.Errorf("provider 'custom-openai' requires an endpoint URL\n\n" +
				"Option 1: Configure via auth:\n" +
				"  nameproxy auth login --provider custom-openai\n\n" +
				"Option 2: Pass directly:\n" +
				"  --base-url https://api.example.com/v1")
		}

	case translate.ProviderOllama:
		client := &http.Client{Timeout: 2 * time.Second}
		ollamaURL := strings.TrimSuffix(strings.TrimRight(prov.BaseURL, "/"), "/v1")
		resp, err := client.Get(ollamaURL + "/api/tags")
		if err != nil {
			return fmt.Errorf("provider 'ollama' requires Ollama server to be running\n\n" +
				"Start Ollama with: ollama serve\n" +
				"Install from: https://ollama.com")
		}
		resp.Body.Close()
	}

	return nil
}
