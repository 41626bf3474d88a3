package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/match-ranker/internal/ai"
	"github.com/spigell/match-ranker/internal/ranking"
)

const (
	app       = "match-ranker"
	envPrefix = "MATCH_RANKER"
)

type Config struct {
	Store   *StoreConfig   `mapstructure:"store" validate:"required"`
	Filters *FiltersConfig `mapstructure:"filters"`
	AI      *AIConfig      `mapstructure:"ai" validate:"required"`
}

type StoreConfig struct {
	Driver      string `mapstructure:"driver" validate:"required,oneof=postgres file"`
	DatabaseURL string `mapstructure:"database-url" validate:"required_if=Driver postgres"`
	File        string `mapstructure:"file" validate:"required_if=Driver file"`
}

type FiltersConfig struct {
	ExcludeFile   string   `mapstructure:"exclude-file"`
	ExcludeOwners []string `mapstructure:"exclude-owners"`
	Disabled      []string `mapstructure:"disabled" validate:"dive,oneof=active owners exclude_file"`
}

type AIConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Provider        string        `mapstructure:"provider" validate:"omitempty,oneof=gemini openai"`
	Timeout         time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxLogLength    int           `mapstructure:"max-log-length" validate:"gte=0"`
	Model           string        `mapstructure:"model"`
	Temperature     float32       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	TopP            float32       `mapstructure:"top-p" validate:"gte=0,lte=1"`
	MaxOutputTokens int           `mapstructure:"max-output-tokens" validate:"gte=0"`
	Gemini          *GeminiConfig `mapstructure:"gemini"`
	OpenAI          *OpenAIConfig `mapstructure:"openai"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	APIKeyEnv  string `mapstructure:"api-key-env"`
}

type OpenAIConfig struct {
	BaseURL    string `mapstructure:"base-url" validate:"omitempty,url"`
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	APIKeyEnv  string `mapstructure:"api-key-env"`
}

// Validate checks the decoded configuration against its struct tags.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is required")
	}
	return validator.New().Struct(c)
}

// Params returns the generation parameters passed to the provider.
func (c *AIConfig) Params() ai.Params {
	return ai.Params{
		Model:           c.Model,
		Temperature:     c.Temperature,
		TopP:            c.TopP,
		MaxOutputTokens: c.MaxOutputTokens,
	}
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "match-ranker ranks open vacancies for a seeker and candidates for a vacancy",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is match-ranker.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("log-output", "stderr", "log destination: stderr, stdout or a file path")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("log-output", rootCmd.PersistentFlags().Lookup("log-output"))

	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database-url", "")
	v.SetDefault("store.file", "")
	v.SetDefault("filters.exclude-file", "")
	v.SetDefault("filters.exclude-owners", []string{})
	v.SetDefault("filters.disabled", []string{})
	v.SetDefault("ai.enabled", true)
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.timeout", ranking.DefaultTimeout)
	v.SetDefault("ai.max-log-length", 0)
	v.SetDefault("ai.model", "")
	v.SetDefault("ai.temperature", ai.DefaultTemperature)
	v.SetDefault("ai.top-p", ai.DefaultTopP)
	v.SetDefault("ai.max-output-tokens", ai.DefaultMaxOutputTokens)
	v.SetDefault("ai.gemini.api-key", "")
	v.SetDefault("ai.gemini.api-key-file", "")
	v.SetDefault("ai.gemini.api-key-env", "GEMINI_API_KEY")
	v.SetDefault("ai.openai.base-url", "")
	v.SetDefault("ai.openai.api-key", "")
	v.SetDefault("ai.openai.api-key-file", "")
	v.SetDefault("ai.openai.api-key-env", "OPENAI_API_KEY")
}

// bindEnv maps config keys to MATCH_RANKER_* variables plus a few
// conventional names.
func bindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	explicit := map[string]string{
		"store.database-url":     "DATABASE_URL",
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"ai.openai.api-key-file": "OPENAI_API_KEY_FILE",
	}
	for key, env := range explicit {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return fmt.Errorf("binding %s environment variable: %w", env, err)
		}
	}
	return nil
}

func initConfig() {
	// version does not need a config.
	if versionCmd.CalledAs() != "" {
		return
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env file: %v", err)
	}

	if err := bindEnv(viper.GetViper()); err != nil {
		log.Fatal(err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// A missing default config is fine: defaults and env may be enough.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}
