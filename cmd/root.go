package cmd

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/headhunter"
	"github.com/spigell/hh-matcher/internal/notify"
	"github.com/spigell/hh-matcher/internal/provider"
	"github.com/spigell/hh-matcher/internal/relevance"
	"github.com/spigell/hh-matcher/internal/textnorm"
)

const (
	app = "hh-matcher"
)

type Config struct {
	Profile   *ProfileConfig           `mapstructure:"profile" validate:"required"`
	Providers []provider.Resource      `mapstructure:"providers" validate:"dive"`
	Search    *headhunter.SearchParams `mapstructure:"search"`
	Matching  *MatchingConfig          `mapstructure:"matching" validate:"required"`
	Filters   *FiltersConfig           `mapstructure:"filters" validate:"required"`
	AI        *AIConfig                `mapstructure:"ai"`
	Storage   *StorageConfig           `mapstructure:"storage"`
	Notify    *NotifyConfig            `mapstructure:"notify"`
	Server    *ServerConfig            `mapstructure:"server"`
	UserAgent string                   `mapstructure:"user-agent"`
	TokenFile string                   `mapstructure:"token-file"`
}

// ProfileConfig holds the applicant profile. Skills and excluded skills are
// read from the raw config values so that non-string entries are rejected.
type ProfileConfig struct {
	Skills   []string `mapstructure:"-"`
	Excluded []string `mapstructure:"-"`
	Resume   string   `mapstructure:"resume"`
}

type MatchingConfig struct {
	MinScore      float64  `mapstructure:"min-score" validate:"gte=1,lte=100"`
	PenaltyPoints int      `mapstructure:"penalty-points" validate:"gte=0"`
	Languages     []string `mapstructure:"languages"`
}

type FiltersConfig struct {
	ExcludeFile string   `mapstructure:"exclude-file"`
	Companies   []string `mapstructure:"companies"`
	SkipApplied bool     `mapstructure:"skip-applied"`
	Disabled    []string `mapstructure:"disabled"`
}

type AIConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Provider        string        `mapstructure:"provider" validate:"omitempty,oneof=gemini"`
	MinimumFitScore float64       `mapstructure:"minimum-fit-score" validate:"gte=0,lte=1"`
	TopN            int           `mapstructure:"top-n" validate:"gte=0"`
	ExcludeRejected bool          `mapstructure:"exclude-rejected"`
	Gemini          *GeminiConfig `mapstructure:"gemini" validate:"required_if=Enabled true"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries" validate:"gte=0"`
	MaxLogLength int    `mapstructure:"max-log-length" validate:"gte=0"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver" validate:"omitempty,oneof=sqlite postgres"`
	DSN    string `mapstructure:"dsn"`
}

type NotifyConfig struct {
	Email *notify.EmailConfig `mapstructure:"email"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:          app,
		Short:        "hh-matcher ranks job postings by how well they match your skills",
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"token-file":                      "HH_TOKEN_FILE",
		"ai.gemini.api-key-file":          "GEMINI_API_KEY_FILE",
		"notify.email.smtp-password-file": "SMTP_PASSWORD_FILE",
		"storage.dsn":                     "HH_MATCHER_DSN",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is hh-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	viper.SetDefault("matching.min-score", relevance.DefaultMinScore)
	viper.SetDefault("matching.penalty-points", relevance.DefaultPenaltyPoints)
	viper.SetDefault("matching.languages", textnorm.DefaultLanguages)
	viper.SetDefault("filters.skip-applied", true)
	viper.SetDefault("ai.top-n", 10)
	viper.SetDefault("storage.driver", "sqlite")
	viper.SetDefault("server.addr", ":8080")
}

func initConfig() {
	if versionCmd.CalledAs() != "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Only run needs a config file; other commands work on defaults and flags.
	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) && runCmd.CalledAs() == "" {
		return
	}

	// We can't proceed if the config file parsed with error.
	if err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		config = &Config{}
	}

	if config.Profile == nil {
		config.Profile = &ProfileConfig{}
	}
	if config.Matching == nil {
		config.Matching = &MatchingConfig{}
	}
	if config.Filters == nil {
		config.Filters = &FiltersConfig{}
	}

	skills, err := relevance.StringsFrom("profile.skills", viper.Get("profile.skills"))
	if err != nil {
		return nil, err
	}
	excluded, err := relevance.StringsFrom("profile.excluded-skills", viper.Get("profile.excluded-skills"))
	if err != nil {
		return nil, err
	}
	config.Profile.Skills = skills
	config.Profile.Excluded = excluded

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// providers returns the configured providers, or a single authenticated
// hh.ru provider when none are configured.
func (c *Config) providers() []provider.Resource {
	if len(c.Providers) > 0 {
		return c.Providers
	}
	return []provider.Resource{{
		Name:           headhunter.Source,
		Kind:           provider.KindHH,
		Enabled:        true,
		APIKeyRequired: true,
		TokenFile:      c.TokenFile,
		TokenEnv:       "HH_TOKEN",
		UserAgent:      c.UserAgent,
	}}
}

// newEngine builds the relevance engine from the matching section.
func newEngine(cfg *MatchingConfig, logger *zap.Logger) (*relevance.Engine, error) {
	languages := make([]string, 0, len(cfg.Languages))
	for _, lang := range cfg.Languages {
		if lang = strings.TrimSpace(lang); lang != "" {
			languages = append(languages, lang)
		}
	}

	stopwords, err := textnorm.LoadStopwords(languages...)
	if err != nil {
		return nil, fmt.Errorf("loading stopwords: %w", err)
	}

	logger.Debug("stopwords loaded",
		zap.Strings("languages", stopwords.Languages()),
		zap.Int("words", stopwords.Len()),
	)

	return relevance.NewEngine(textnorm.New(stopwords),
		relevance.WithLogger(logger),
		relevance.WithMinScore(cfg.MinScore),
		relevance.WithPenaltyPoints(cfg.PenaltyPoints),
	), nil
}
