package translate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/minios-linux/nameproxy/settings"
)

// ---------------------------------------------------------------------------
// System prompts
// ---------------------------------------------------------------------------

// Built-in prompt types.
const (
	PromptSentence = "sentence"
	PromptDialogue = "dialogue"
)

// SentenceSystemPrompt is the default prompt for LLM providers.
const SentenceSystemPrompt = `You are a professional translator. Translate the user's text from {{sourceLang}} to {{targetLang}}.

Rules:
- Output only the translation, with no quotes, notes or explanations.
- Personal names are already in their final form. Copy every personal name exactly as written, letter for letter. Do not translate, transliterate, respell, decline or add honorifics to them.
- Keep the gender implied by each name when choosing pronouns.
- Preserve punctuation, line breaks and placeholders.`

// DialogueSystemPrompt is tuned for game and novel dialogue lines.
const DialogueSystemPrompt = `You are a professional game localizer. Translate the user's line of dialogue from {{sourceLang}} to {{targetLang}}, keeping the speaker's tone and register.

Rules:
- Output only the translated line, with no quotes, notes or explanations.
- Personal names are already in their final form. Copy every personal name exactly as written, letter for letter. Do not translate, transliterate, respell or add honorifics to them.
- Keep the gender implied by each name when choosing pronouns.
- Preserve punctuation, line breaks and placeholders.`

// PromptsConfig holds the system prompts loaded from prompts.json.
type PromptsConfig struct {
	Prompts map[string]string `json:"prompts"`
}

// defaultPromptsMap returns all built-in system prompts as a map.
func defaultPromptsMap() map[string]string {
	return map[string]string{
		PromptSentence: SentenceSystemPrompt,
		PromptDialogue: DialogueSystemPrompt,
	}
}

// Get returns the prompt of the given type. A nil config, a missing type or
// an empty prompt fall back to the built-ins.
func (c *PromptsConfig) Get(promptType string) string {
	if c != nil {
		if prompt, ok := c.Prompts[promptType]; ok && prompt != "" {
			return prompt
		}
	}
	if prompt, ok := defaultPromptsMap()[promptType]; ok {
		return prompt
	}
	return SentenceSystemPrompt
}

// LoadPromptsFromFile loads system prompts from a JSON file. A missing file
// yields a nil config and no error.
func LoadPromptsFromFile(path string) (*PromptsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading prompts file: %w", err)
	}

	var config PromptsConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing prompts file: %w", err)
	}
	return &config, nil
}

// createDefaultPromptsFile writes the built-in prompts to path as a formatted JSON file.
func createDefaultPromptsFile(path string) error {
	config := PromptsConfig{
		Prompts: defaultPromptsMap(),
	}
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling default prompts: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating prompts directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing default prompts file: %w", err)
	}
	return nil
}

// LoadPromptsFromDefaultLocations loads prompts from the user data
// directory ($XDG_DATA_HOME/nameproxy/prompts.json), creating the file with
// the built-in prompts on first use. It returns the config and its path.
func LoadPromptsFromDefaultLocations() (*PromptsConfig, string, error) {
	path, err := settings.PromptsFilePath()
	if err != nil {
		return nil, "", fmt.Errorf("determining prompts file path: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := createDefaultPromptsFile(path); err != nil {
			return nil, "", err
		}
	}

	config, err := LoadPromptsFromFile(path)
	if err != nil {
		return nil, "", err
	}
	return config, path, nil
}
