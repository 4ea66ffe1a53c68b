package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "KANJIGATE"

// LoadOptions controls where Load looks for configuration.
type LoadOptions struct {
	// ConfigFile is an explicit config file path. When empty, Load looks for
	// kanjigate.yaml in the working directory and ignores a missing file.
	ConfigFile string
}

// Load configuration from defaults, an optional config file and environment
// variables, in increasing order of precedence.
// Returns a populated Config struct or an error if loading/validation fails.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.ConfigFile, err)
		}
	} else {
		v.SetConfigName("kanjigate")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// Every key needs a default so AutomaticEnv can override it on Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.SetDefault("anki.url", "http://localhost:8765")
	v.SetDefault("anki.timeout", 30*time.Second)
	v.SetDefault("anki.deck", "Japanese")
	v.SetDefault("anki.source_tag", "kanjigate")

	v.SetDefault("models.vocabulary.name", "yomitan Japanese")
	v.SetDefault("models.vocabulary.key_field", "Expression")
	v.SetDefault("models.vocabulary.dependency_field", "Kanji")
	v.SetDefault("models.vocabulary.keyword_field", "")
	v.SetDefault("models.vocabulary.text_field", "Meaning")
	v.SetDefault("models.vocabulary.reading_field", "Reading")
	v.SetDefault("models.vocabulary.tag", "vocab")

	v.SetDefault("models.character.name", "Japanese Kanji")
	v.SetDefault("models.character.key_field", "Character")
	v.SetDefault("models.character.dependency_field", "Radicals")
	v.SetDefault("models.character.keyword_field", "Keyword")
	v.SetDefault("models.character.text_field", "Mnemonic")
	v.SetDefault("models.character.reading_field", "")
	v.SetDefault("models.character.tag", "kanji")

	v.SetDefault("models.subcomponent.name", "Japanese Radicals")
	v.SetDefault("models.subcomponent.key_field", "Character")
	v.SetDefault("models.subcomponent.dependency_field", "")
	v.SetDefault("models.subcomponent.keyword_field", "Keyword")
	v.SetDefault("models.subcomponent.text_field", "Mnemonic")
	v.SetDefault("models.subcomponent.reading_field", "")
	v.SetDefault("models.subcomponent.tag", "radical")

	v.SetDefault("mastery.known_interval_days", 21)
	v.SetDefault("mastery.locked_tag", "locked")
	v.SetDefault("mastery.new_tag", "new")
	v.SetDefault("mastery.known_tag", "known")

	v.SetDefault("enrich.enabled", true)
	v.SetDefault("enrich.jpdb_url", "https://jpdb.io")
	v.SetDefault("enrich.timeout", 15*time.Second)
	v.SetDefault("enrich.user_agent", "kanjigate")

	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.base_delay", time.Second)

	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.dsn", "kanjigate.db")

	v.SetDefault("data.decomposition_path", "")
	v.SetDefault("data.targets_path", "")
	v.SetDefault("data.observed_path", "")
}
