package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/logger"
	"github.com/spigell/hh-matcher/internal/relevance"
	"github.com/spigell/hh-matcher/internal/store"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank postings from a JSON file against skills and print the result",
	Long: `Rank postings from a JSON file against skills and print the result.

The input is a JSON array of postings, or with --request a full match request
{"skills": [...], "excluded_skills": [...], "jobs": [...]}. Skills given by flags
replace the profile of the config file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return match(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("input", "i", "-", "file with postings, - for stdin")
	matchCmd.Flags().Bool("request", false, "input is a full match request")
	matchCmd.Flags().StringSliceP("skill", "s", nil, "skill of the profile, repeatable")
	matchCmd.Flags().StringSliceP("exclude", "x", nil, "excluded keyword, repeatable")
	matchCmd.Flags().Bool("save", false, "record the run in the configured storage")
}

func match(cmd *cobra.Command) error {
	// stdout carries the ranked postings
	logger, err := logger.NewWithOutput(viper.GetBool("json"), viper.GetBool("debug"), "stderr")
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		return fmt.Errorf("getting a config: %w", err)
	}

	data, err := readInput(cmd.Flag("input").Value.String())
	if err != nil {
		return err
	}

	req := &relevance.Request{
		Skills:         config.Profile.Skills,
		ExcludedSkills: config.Profile.Excluded,
	}
	if isRequest, _ := cmd.Flags().GetBool("request"); isRequest {
		if req, err = relevance.DecodeRequest(data); err != nil {
			return err
		}
	} else {
		if req.Jobs, err = relevance.DecodePostings(data); err != nil {
			return err
		}
	}

	if skills, _ := cmd.Flags().GetStringSlice("skill"); len(skills) > 0 {
		req.Skills = skills
	}
	if excluded, _ := cmd.Flags().GetStringSlice("exclude"); len(excluded) > 0 {
		req.ExcludedSkills = excluded
	}

	engine, err := newEngine(config.Matching, logger)
	if err != nil {
		return err
	}

	ranked, err := engine.Match(req)
	if err != nil {
		return err
	}

	logger.Debug("postings ranked", zap.Int("input", len(req.Jobs)), zap.Int("kept", len(ranked)))

	if save, _ := cmd.Flags().GetBool("save"); save {
		if err := saveMatch(cmd, config.Storage, req, ranked); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(ranked)
}

func saveMatch(cmd *cobra.Command, cfg *StorageConfig, req *relevance.Request, ranked []relevance.ScoredPosting) error {
	if cfg == nil || cfg.DSN == "" {
		return fmt.Errorf("--save needs storage.dsn in config")
	}

	s, err := store.Open(cmd.Context(), cfg.Driver, cfg.DSN)
	if err != nil {
		return err
	}
	defer s.Close()

	run := store.NewRun(req.Skills, req.ExcludedSkills, ranked)
	if err := s.SaveRun(cmd.Context(), run); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "run %s saved\n", run.ID)
	return nil
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return data, nil
}
