package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/minios-linux/nameproxy/i18n"
	"github.com/minios-linux/nameproxy/settings"
	"github.com/minios-linux/nameproxy/translate"
)

// ---------------------------------------------------------------------------
// auth (login / logout / list)
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage provider API keys",
		Long: `Manage stored credentials for translation providers.

API key providers (paste your key):
  google        Google AI Studio (Gemini API key)
  groq          Groq Cloud (free tier available)
  opencode      OpenCode proxy
  anthropic     Anthropic API

Endpoint providers (URL plus optional key):
  custom-openai Custom OpenAI-compatible endpoint
  libre         LibreTranslate-compatible server

No auth required:
  ollama        Local Ollama server

Examples:
  nameproxy auth login                      Interactive provider selection
  nameproxy auth login --provider groq      Store a Groq API key
  nameproxy auth logout --provider groq     Remove the Groq API key
  nameproxy auth logout                     Remove all credentials
  nameproxy auth list                       Show all stored credentials`,
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthListCmd(),
	)

	return cmd
}

// allProviders is the ordered list of providers for menus and completion.
var allProviders = []struct {
	id   string
	name string
	desc string
	auth string // "api-key", "endpoint", "none"
}{
	{translate.ProviderGoogle, "Google AI Studio", "Gemini API key, free tier available", "api-key"},
	{translate.ProviderGroq, "Groq Cloud", "fast inference, free tier available", "api-key"},
	{translate.ProviderOpenCode, "OpenCode", "multi-provider proxy", "api-key"},
	{translate.ProviderAnthropic, "Anthropic", "Claude models", "api-key"},
	{translate.ProviderCustomOpenAI, "Custom OpenAI", "any OpenAI-compatible endpoint", "endpoint"},
	{translate.ProviderLibre, "LibreTranslate", "self-hosted or public server", "endpoint"},
	{translate.ProviderOllama, "Ollama", "local server, no auth needed", "none"},
}

func authProviderCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	completions := make([]string, 0, len(allProviders))
	for _, p := range allProviders {
		if p.auth == "none" {
			continue
		}
		completions = append(completions, fmt.Sprintf("%s\t%s", p.id, p.name))
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

// chooseProvider reads a menu choice (number or id) for providers that
// take credentials.
func chooseProvider(choice string) (string, bool) {
	choice = strings.TrimSpace(choice)
	idx := 0
	for _, p := range allProviders {
		if p.auth == "none" {
			continue
		}
		idx++
		if choice == strconv.Itoa(idx) || choice == p.id {
			return p.id, true
		}
	}
	return "", false
}

var errNoInput = errors.New("no input received")

func readLine(scanner *bufio.Scanner) (string, error) {
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", errNoInput
	}
	return strings.TrimSpace(scanner.Text()), nil
}

func newAuthLoginCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store credentials for a provider",
		Long: `Store an API key (and endpoint URL where needed) for a provider.

If --provider is not specified, you will be prompted to choose.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			scanner := bufio.NewScanner(cmd.InOrStdin())
			errOut := cmd.ErrOrStderr()

			if provider == "" {
				fmt.Fprintln(errOut)
				fmt.Fprintf(errOut, "%s%s%s\n\n", colorBlue, i18n.T("Select provider to authenticate:"), colorReset)
				idx := 0
				for _, p := range allProviders {
					if p.auth == "none" {
						continue
					}
					idx++
					label := i18n.T("API key")
					if p.auth == "endpoint" {
						label = i18n.T("URL + key")
					}
					fmt.Fprintf(errOut, "  %d. %s%-13s%s %s (%s)\n", idx, colorYellow, p.id, colorReset, p.desc, label)
				}
				fmt.Fprintln(errOut)
				fmt.Fprint(errOut, i18n.T("Enter choice (number or name): "))

				choice, err := readLine(scanner)
				if err != nil {
					return err
				}
				id, ok := chooseProvider(choice)
				if !ok {
					return errors.New("invalid choice. Use: nameproxy auth login --provider PROVIDER")
				}
				provider = id
			}

			switch provider {
			case translate.ProviderGoogle, translate.ProviderGroq, translate.ProviderOpenCode, translate.ProviderAnthropic:
				return authLoginAPIKey(scanner, errOut, provider)
			case translate.ProviderCustomOpenAI, translate.ProviderLibre:
				return authLoginEndpoint(scanner, errOut, provider)
			case translate.ProviderOllama:
				logInfo("%s", i18n.T("Ollama needs no credentials"))
				return nil
			}
			return fmt.Errorf("unknown provider %q. Run 'nameproxy auth login' for options", provider)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Provider to authenticate")
	_ = cmd.RegisterFlagCompletionFunc("provider", authProviderCompletion)

	return cmd
}

var apiKeyHelp = map[string]struct {
	name    string
	helpURL string
	example string
}{
	translate.ProviderGoogle: {
		name:    "Google AI Studio",
		helpURL: "https://aistudio.google.com/apikey",
		example: "nameproxy translate --provider google --model gemini-2.5-flash",
	},
	translate.ProviderGroq: {
		name:    "Groq Cloud",
		helpURL: "https://console.groq.com/keys",
		example: "nameproxy translate --provider groq --model llama-3.3-70b-versatile",
	},
	translate.ProviderOpenCode: {
		name:    "OpenCode",
		example: "nameproxy translate --provider opencode --model gemini-2.5-flash",
	},
	translate.ProviderAnthropic: {
		name:    "Anthropic",
		helpURL: "https://console.anthropic.com/settings/keys",
		example: "nameproxy translate --provider anthropic --model claude-sonnet-4-5",
	},
}

func authLoginAPIKey(scanner *bufio.Scanner, w io.Writer, providerID string) error {
	info := apiKeyHelp[providerID]

	fmt.Fprintf(w, "\n%s%s%s\n", colorBlue, fmt.Sprintf(i18n.T("%s API Key Setup"), info.name), colorReset)
	fmt.Fprintln(w, strings.Repeat("─", 60))
	fmt.Fprintln(w)

	if info.helpURL != "" {
		fmt.Fprintf(w, "  "+i18n.T("Get your API key from: %s")+"\n\n", colorGreen+info.helpURL+colorReset)
	}

	existing := settings.GetAPIKey(providerID)
	if existing != "" {
		fmt.Fprintf(w, "  "+i18n.T("Current key: %s")+"\n", colorYellow+settings.MaskKey(existing)+colorReset)
		fmt.Fprint(w, "  "+i18n.T("Enter new key to replace, or press Enter to keep: "))
	} else {
		fmt.Fprint(w, "  "+i18n.T("Enter API key: "))
	}

	key, err := readLine(scanner)
	if err != nil {
		return err
	}
	if key == "" {
		if existing != "" {
			logInfo("%s", i18n.T("Keeping existing key"))
			return nil
		}
		return errors.New("no API key provided")
	}

	if err := settings.SetAPIKey(providerID, key); err != nil {
		return fmt.Errorf("saving API key: %w", err)
	}

	logSuccess(i18n.T("%s API key saved!"), info.name)
	fmt.Fprintf(w, "\n  "+i18n.T("You can now use: %s")+"\n\n", info.example)
	return nil
}

func authLoginEndpoint(scanner *bufio.Scanner, w io.Writer, providerID string) error {
	title := i18n.T("Custom OpenAI-Compatible Endpoint")
	example := "https://api.example.com/v1"
	if providerID == translate.ProviderLibre {
		title = i18n.T("LibreTranslate Server")
		example = "https://libretranslate.example.com"
	}
	fmt.Fprintf(w, "\n%s%s%s\n", colorBlue, title, colorReset)
	fmt.Fprintln(w, strings.Repeat("─", 60))
	fmt.Fprintln(w)

	existing := settings.Get(providerID)
	if existing != nil && existing.BaseURL != "" {
		fmt.Fprintf(w, "  "+i18n.T("Current endpoint: %s")+"\n", colorYellow+existing.BaseURL+colorReset)
		fmt.Fprint(w, "  "+i18n.T("Enter new endpoint URL, or press Enter to keep: "))
	} else {
		fmt.Fprintf(w, "  "+i18n.T("Enter endpoint URL (e.g., %s): "), example)
	}

	baseURL, err := readLine(scanner)
	if err != nil {
		return err
	}
	if baseURL == "" && existing != nil {
		baseURL = existing.BaseURL
	}
	if baseURL == "" {
		return errors.New("endpoint URL is required")
	}

	if existing != nil && existing.Key != "" {
		fmt.Fprintf(w, "  "+i18n.T("Current key: %s")+"\n", colorYellow+settings.MaskKey(existing.Key)+colorReset)
		fmt.Fprint(w, "  "+i18n.T("Enter new API key, or press Enter to keep: "))
	} else {
		fmt.Fprint(w, "  "+i18n.T("Enter API key (or press Enter if not required): "))
	}

	apiKey, err := readLine(scanner)
	if err != nil && !errors.Is(err, errNoInput) {
		return err
	}
	if apiKey == "" && existing != nil {
		apiKey = existing.Key
	}

	if err := settings.SetAPIKeyWithBaseURL(providerID, apiKey, baseURL); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}

	logSuccess(i18n.T("%s endpoint saved!"), title)
	usage := "nameproxy translate --provider custom-openai --model MODEL_NAME"
	if providerID == translate.ProviderLibre {
		usage = "nameproxy translate --provider libre"
	}
	fmt.Fprintf(w, "\n  "+i18n.T("You can now use: %s")+"\n\n", usage)
	return nil
}

func newAuthLogoutCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		Long: `Remove stored credentials for one or all providers.

If --provider is not specified, credentials for ALL providers are removed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if provider == "" {
				if err := settings.RemoveAll(); err != nil {
					return fmt.Errorf("removing credentials: %w", err)
				}
				logSuccess("%s", i18n.T("All stored credentials removed"))
				return nil
			}

			known := false
			for _, p := range allProviders {
				if p.id == provider && p.auth != "none" {
					known = true
				}
			}
			if !known {
				return fmt.Errorf("unknown provider %q. Run 'nameproxy auth list' to see providers", provider)
			}
			if err := settings.Remove(provider); err != nil {
				return fmt.Errorf("removing %s credentials: %w", provider, err)
			}
			logSuccess(i18n.T("%s credentials removed"), provider)
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Provider to logout (default: all)")
	_ = cmd.RegisterFlagCompletionFunc("provider", authProviderCompletion)

	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show stored credentials and status",
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.ErrOrStderr()
			fmt.Fprintf(w, "\n%s%s%s\n", colorBlue, i18n.T("Stored Credentials"), colorReset)
			fmt.Fprintln(w, strings.Repeat("─", 60))
			fmt.Fprintln(w)

			configured := colorGreen + i18n.T("configured") + colorReset
			for _, p := range allProviders {
				if p.auth == "none" {
					continue
				}
				entry := settings.Get(p.id)
				switch {
				case entry != nil && entry.Key != "":
					status := fmt.Sprintf("%s ("+i18n.T("key: %s")+")", configured, settings.MaskKey(entry.Key))
					if entry.BaseURL != "" {
						status += fmt.Sprintf("\n  %14s "+i18n.T("endpoint: %s"), "", entry.BaseURL)
					}
					fmt.Fprintf(w, "  %-14s %s\n", p.id, status)
				case entry != nil && entry.BaseURL != "":
					fmt.Fprintf(w, "  %-14s %s (%s)\n  %14s "+i18n.T("endpoint: %s")+"\n", p.id, configured, i18n.T("no key"), "", entry.BaseURL)
				default:
					fmt.Fprintf(w, "  %-14s %s%s%s\n", p.id, colorRed, i18n.T("not configured"), colorReset)
				}
			}

			fmt.Fprintf(w, "\n  %s%s%s\n", colorYellow, i18n.T("Environment Variables"), colorReset)
			vars := []string{settings.EnvAPIKey}
			for _, p := range allProviders {
				if env := settings.EnvVarForProvider(p.id); env != "" {
					vars = append(vars, env)
				}
			}
			for _, env := range vars {
				if v := os.Getenv(env); v != "" {
					fmt.Fprintf(w, "  %-22s %s%s%s\n", env+":", colorGreen, settings.MaskKey(v), colorReset)
				} else {
					fmt.Fprintf(w, "  %-22s %s%s%s\n", env+":", colorRed, i18n.T("not set"), colorReset)
				}
			}
			fmt.Fprintf(w, "\n  "+i18n.T("Credentials file: %s")+"\n\n", settings.FilePath())
		},
	}
}
