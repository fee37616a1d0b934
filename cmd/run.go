package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/ai"
	"github.com/spigell/hh-matcher/internal/ai/gemini"
	"github.com/spigell/hh-matcher/internal/filtering"
	"github.com/spigell/hh-matcher/internal/headhunter"
	"github.com/spigell/hh-matcher/internal/jobs"
	"github.com/spigell/hh-matcher/internal/logger"
	"github.com/spigell/hh-matcher/internal/notify"
	"github.com/spigell/hh-matcher/internal/provider"
	"github.com/spigell/hh-matcher/internal/secrets"
	"github.com/spigell/hh-matcher/internal/store"
)

const (
	PromptReportByCompanies   = "Report by companies"
	PromptPostingsToFile      = "Dump postings to file"
	PromptAppendToExcludeFile = "Append all postings to exclude file"
	PromptSendDigest          = "Send digest by email"
	PromptExit                = "Exit"

	excludeReasonManual = "manual"
)

var errExit = errors.New("exit requested")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch postings from the configured providers, filter and rank them",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("do-not-exclude-applied", "f", false, "do not exclude postings if already applied")
	runCmd.Flags().BoolP("auto-approve", "y", false, "do not ask what to do with the result: print the report, send the digest and exit")
	runCmd.Flags().StringP("exclude-file", "e", "", "special file with postings to exclude. Default is unset.")
	runCmd.Flags().StringSlice("disable-filter", nil, "names of filter steps to skip")

	viper.BindPFlag("filters.exclude-file", runCmd.Flags().Lookup("exclude-file"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the hh-matcher", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if flag := cmd.Flag("do-not-exclude-applied"); flag != nil && flag.Value.String() == "true" {
		config.Filters.SkipApplied = false
	}

	providers, err := provider.Build(config.providers(), config.Search, logger)
	if err != nil {
		logger.Fatal("building providers", zap.Error(err))
	}
	if len(providers) == 0 {
		logger.Fatal("no usable providers in config",
			zap.String("hint", "set HH_TOKEN_FILE or HH_TOKEN environment variable or the 'token-file' key in the configuration file"),
		)
	}

	hh := hhClient(providers)

	profile, err := buildProfile(ctx, config.Profile, hh, logger)
	if err != nil {
		logger.Fatal("building a profile", zap.Error(err))
	}

	postings, err := provider.FetchAll(ctx, providers, logger)
	if err != nil {
		logger.Fatal("getting available postings", zap.Error(err))
	}

	if postings.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no postings found"))
		return
	}

	engine, err := newEngine(config.Matching, logger)
	if err != nil {
		logger.Fatal("creating relevance engine", zap.Error(err))
	}

	deps := filtering.Deps{
		Logger:  logger,
		Engine:  engine,
		Profile: profile,
	}
	steps := filtering.Default()

	if hh != nil {
		deps.History = hh
	} else {
		filtering.DisableByName(steps, "applied_history", "no hh provider configured")
	}

	for _, name := range append(config.Filters.Disabled, mustStringSlice(cmd, "disable-filter")...) {
		filtering.DisableByName(steps, strings.TrimSpace(name), "disabled by config")
	}

	if config.AI != nil && config.AI.Enabled {
		matcher, err := newAIMatcher(ctx, config.AI, logger)
		if err != nil {
			logger.Warn("skipping AI filter", zap.Error(err))
			filtering.DisableByName(steps, "ai_fit", err.Error())
		} else {
			deps.Matcher = matcher
		}
	}

	postings, results, err := filtering.Run(ctx, filterConfig(config), deps, steps, postings)
	if err != nil {
		logger.Fatal("filtering failed", zap.Error(err))
	}

	for _, status := range filtering.Describe(steps) {
		logger.Debug("filter status",
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
			zap.String("reason", status.Reason),
			zap.Any("details", status.Details),
		)
	}
	logger.Debug("filters executed", zap.Int("steps", len(results)))

	saveRun(ctx, config.Storage, profile, postings, logger)

	if postings.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no postings left after filters"))
		return
	}

	if cmd.Flag("auto-approve").Value.String() == "true" {
		if err := handleAction(ctx, PromptReportByCompanies, config, profile, postings, logger); err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		if emailEnabled(config) {
			if err := handleAction(ctx, PromptSendDigest, config, profile, postings, logger); err != nil {
				logger.Fatal("exiting", zap.Error(err))
			}
		}
		return
	}

	items := []string{PromptReportByCompanies, PromptPostingsToFile}
	if config.Filters.ExcludeFile != "" {
		items = append(items, PromptAppendToExcludeFile)
	}
	if emailEnabled(config) {
		items = append(items, PromptSendDigest)
	}
	prompt := promptui.Select{
		Label: "What to do with the postings?",
		Items: append(items, PromptExit),
	}

	for {
		logger.Info("current list of postings", zap.Int("count", postings.Len()))

		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(ctx, action, config, profile, postings, logger); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(ctx context.Context, action string, config *Config, profile *ai.Profile, postings *jobs.Postings, logger *zap.Logger) error {
	switch action {
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	case PromptReportByCompanies:
		pretty, _ := json.MarshalIndent(postings.ReportByCompany(), "", "  ")
		logger.Info(string(pretty), zap.Int("postings count", postings.Len()))
		return nil
	case PromptPostingsToFile:
		filename, err := postings.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptAppendToExcludeFile:
		excludeFile := config.Filters.ExcludeFile
		excluded, err := jobs.LoadExcluded(excludeFile)
		if err != nil {
			return err
		}

		excluded.Append(postings.ToExcluded(excludeReasonManual))
		if err := excluded.ToFile(excludeFile); err != nil {
			return err
		}

		logger.Info("appended to exclude file", zap.String("filename", excludeFile))
		postings.Exclude(jobs.FieldID, excluded.IDs())
		return nil
	case PromptSendDigest:
		return sendDigest(ctx, config.Notify.Email, profile, postings, logger)
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

// hhClient returns the client of the first hh provider, if any. It serves
// negotiations and resumes.
func hhClient(providers []provider.Provider) *headhunter.Client {
	for _, p := range providers {
		if hh, ok := p.(*provider.HH); ok {
			return hh.Client()
		}
	}
	return nil
}

// buildProfile merges the configured skills with the skill set of the
// configured hh.ru resume. Order of first occurrence is kept.
func buildProfile(ctx context.Context, cfg *ProfileConfig, hh *headhunter.Client, logger *zap.Logger) (*ai.Profile, error) {
	profile := &ai.Profile{
		Skills:   append([]string(nil), cfg.Skills...),
		Excluded: append([]string(nil), cfg.Excluded...),
		Resume:   cfg.Resume,
	}

	if cfg.Resume != "" {
		if hh == nil {
			return nil, fmt.Errorf("profile.resume requires an hh provider")
		}

		resumes, err := hh.GetMineResumes(ctx)
		if err != nil {
			return nil, fmt.Errorf("getting mine resumes: %w", err)
		}
		logger.Info("getting mine resumes", zap.Int("count", resumes.Len()))

		resume := resumes.FindByTitle(cfg.Resume)
		if resume == nil {
			return nil, fmt.Errorf("resume %q not found, existing titles: %s", cfg.Resume, strings.Join(resumes.Titles(), ", "))
		}

		details, err := hh.GetResumeDetails(ctx, resume.ID)
		if err != nil {
			return nil, fmt.Errorf("getting resume details: %w", err)
		}

		profile.Skills = mergeSkills(profile.Skills, details.SkillSet)
		logger.Info("resume skills merged",
			zap.String("resume", cfg.Resume),
			zap.Int("resume_skills", len(details.SkillSet)),
			zap.Int("skills", len(profile.Skills)),
		)
	}

	if len(profile.Skills) == 0 {
		return nil, fmt.Errorf("no skills configured: set profile.skills or profile.resume")
	}

	return profile, nil
}

func mergeSkills(lists ...[]string) []string {
	seen := make(map[string]struct{})
	merged := make([]string, 0)
	for _, list := range lists {
		for _, skill := range list {
			key := strings.ToLower(strings.TrimSpace(skill))
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, skill)
		}
	}
	return merged
}

func filterConfig(config *Config) *filtering.Config {
	cfg := &filtering.Config{
		Companies:   config.Filters.Companies,
		ExcludeFile: config.Filters.ExcludeFile,
		SkipApplied: config.Filters.SkipApplied,
	}
	if config.AI != nil {
		cfg.AI = &filtering.AIConfig{
			Enabled:         config.AI.Enabled,
			TopN:            config.AI.TopN,
			ExcludeRejected: config.AI.ExcludeRejected,
		}
	}
	return cfg
}

func newAIMatcher(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Matcher, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
	if cfg.Gemini == nil {
		return nil, errors.New("gemini configuration is required when ai filter is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY)", err)
	}

	genLogger := logger.With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries))

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	matcherLogger := logger.With(zap.Float64("minimum_fit_score", cfg.MinimumFitScore))

	return gemini.NewMatcher(generator, cfg.MinimumFitScore, cfg.Gemini.MaxLogLength, matcherLogger), nil
}

// saveRun records the ranked postings when storage is configured. Failures
// are logged; the run result is still shown.
func saveRun(ctx context.Context, cfg *StorageConfig, profile *ai.Profile, postings *jobs.Postings, logger *zap.Logger) {
	if cfg == nil || strings.TrimSpace(cfg.DSN) == "" {
		return
	}

	s, err := store.Open(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		logger.Warn("opening run history", zap.Error(err))
		return
	}
	defer s.Close()

	run := store.NewRun(profile.Skills, profile.Excluded, postings.Scored())
	if err := s.SaveRun(ctx, run); err != nil {
		logger.Warn("saving run", zap.Error(err))
		return
	}

	logger.Info("run saved", zap.String("run_id", run.ID.String()), zap.Int("count", run.Count))
}

func emailEnabled(config *Config) bool {
	return config.Notify != nil && config.Notify.Email != nil && config.Notify.Email.Enabled
}

func sendDigest(ctx context.Context, cfg *notify.EmailConfig, profile *ai.Profile, postings *jobs.Postings, logger *zap.Logger) error {
	// anonymous relays need no password
	password := ""
	if cfg.User != "" {
		var err error
		password, err = secrets.Load(secrets.Source{Name: "smtp password", File: cfg.PasswordFile, Env: "SMTP_PASSWORD"})
		if err != nil {
			return fmt.Errorf("%w (set notify.email.smtp-password-file, SMTP_PASSWORD_FILE or SMTP_PASSWORD)", err)
		}
	}

	sender, err := notify.NewEmail(*cfg, password, logger)
	if err != nil {
		return fmt.Errorf("creating email notifier: %w", err)
	}

	msg, err := notify.Render(notify.Digest{Skills: profile.Skills, Postings: postings.Items})
	if err != nil {
		return err
	}

	return sender.Send(ctx, msg)
}

func mustStringSlice(cmd *cobra.Command, name string) []string {
	values, err := cmd.Flags().GetStringSlice(name)
	if err != nil {
		return nil
	}
	return values
}
