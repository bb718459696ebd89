package llm

import "errors"

var (
	// ErrNoOutput is returned when a backend answers without any text.
	ErrNoOutput = errors.New("llm returned no output")
	// ErrMissingAPIKey is returned when a provider is selected without a key.
	ErrMissingAPIKey = errors.New("llm api key not configured")
	// ErrUnknownProvider is returned for provider names other than openai and gemini.
	ErrUnknownProvider = errors.New("unknown llm provider")
)
