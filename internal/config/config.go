package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	LogLevel  string        `mapstructure:"log_level"  validate:"required,oneof=debug info warn error"`
	LogFormat string        `mapstructure:"log_format" validate:"required,oneof=json text"`
	Anki      AnkiConfig    `mapstructure:"anki"       validate:"required"`
	Models    ModelsConfig  `mapstructure:"models"     validate:"required"`
	Mastery   MasteryConfig `mapstructure:"mastery"    validate:"required"`
	Enrich    EnrichConfig  `mapstructure:"enrich"`
	LLM       LLMConfig     `mapstructure:"llm"`
	Cache     CacheConfig   `mapstructure:"cache"`
	Data      DataConfig    `mapstructure:"data"`
}

// AnkiConfig contains the AnkiConnect endpoint and where new notes go.
type AnkiConfig struct {
	URL     string        `mapstructure:"url"     validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Deck    string        `mapstructure:"deck"    validate:"required"`

	// SourceTag is added to every note this tool creates.
	SourceTag string `mapstructure:"source_tag"`
}

// ModelsConfig maps each tier onto an Anki note type and its field names.
type ModelsConfig struct {
	Vocabulary   NoteModelConfig `mapstructure:"vocabulary"   validate:"required"`
	Character    NoteModelConfig `mapstructure:"character"    validate:"required"`
	Subcomponent NoteModelConfig `mapstructure:"subcomponent" validate:"required"`
}

// NoteModelConfig describes one Anki note type.
type NoteModelConfig struct {
	Name            string `mapstructure:"name"             validate:"required"`
	KeyField        string `mapstructure:"key_field"        validate:"required"`
	DependencyField string `mapstructure:"dependency_field"`
	KeywordField    string `mapstructure:"keyword_field"`
	TextField       string `mapstructure:"text_field"`
	ReadingField    string `mapstructure:"reading_field"`
	Tag             string `mapstructure:"tag"`
}

// MasteryConfig contains the promotion threshold and the state tags.
type MasteryConfig struct {
	KnownIntervalDays int    `mapstructure:"known_interval_days" validate:"gt=0"`
	LockedTag         string `mapstructure:"locked_tag"          validate:"required,nefield=NewTag,nefield=KnownTag"`
	NewTag            string `mapstructure:"new_tag"             validate:"required,nefield=KnownTag"`
	KnownTag          string `mapstructure:"known_tag"           validate:"required"`
}

// EnrichConfig contains the dictionary lookup settings.
type EnrichConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	JPDBURL   string        `mapstructure:"jpdb_url"   validate:"omitempty,url"`
	Timeout   time.Duration `mapstructure:"timeout"    validate:"gte=0"`
	UserAgent string        `mapstructure:"user_agent"`
}

// LLMConfig contains the optional Gemini fallback settings.
// The fallback is disabled when GeminiAPIKey is empty.
type LLMConfig struct {
	GeminiAPIKey string        `mapstructure:"gemini_api_key"`
	ModelName    string        `mapstructure:"model_name"  validate:"required_with=GeminiAPIKey"`
	MaxRetries   int           `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	BaseDelay    time.Duration `mapstructure:"base_delay"  validate:"gte=0"`
}

// CacheConfig selects the backend for the enrichment cache and run ledger.
type CacheConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=sqlite pgx none"`
	DSN    string `mapstructure:"dsn"    validate:"required_unless=Driver none"`
}

// DataConfig contains paths to static curriculum data.
type DataConfig struct {
	DecompositionPath string `mapstructure:"decomposition_path"`
	TargetsPath       string `mapstructure:"targets_path"`
	ObservedPath      string `mapstructure:"observed_path"`
}
