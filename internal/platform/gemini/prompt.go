package gemini

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/phrazzld/kanjigate/internal/domain"
)

const characterPrompt = `You are helping a learner study Japanese kanji.
For the character "{{.Key}}", reply with a JSON object with two string fields:
"keyword": a single English keyword for the character's core meaning,
"mnemonic": one or two sentences tying the character's shape to the keyword.
Reply with the JSON object only.`

const vocabularyPrompt = `You are helping a learner study Japanese vocabulary.
For the expression "{{.Key}}", reply with a JSON object with one string field:
"description": a concise English dictionary gloss.
Reply with the JSON object only.`

var prompts = map[domain.EnrichmentKind]*template.Template{
	domain.EnrichmentCharacter:  template.Must(template.New("character").Parse(characterPrompt)),
	domain.EnrichmentVocabulary: template.Must(template.New("vocabulary").Parse(vocabularyPrompt)),
}

// promptData is the data passed to the prompt templates.
type promptData struct {
	Key string
}

// responseSchema is the JSON object the model is asked to return.
type responseSchema struct {
	Keyword     string `json:"keyword"`
	Mnemonic    string `json:"mnemonic"`
	Description string `json:"description"`
}

func buildPrompt(kind domain.EnrichmentKind, key string) (string, error) {
	tmpl, ok := prompts[kind]
	if !ok {
		return "", fmt.Errorf("no prompt for kind %q", kind)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, promptData{Key: key}); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}
