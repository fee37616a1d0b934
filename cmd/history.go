package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/spigell/hh-matcher/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded runs or show one run",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return history(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntP("limit", "n", store.DefaultListLimit, "number of runs to list")
}

func history(cmd *cobra.Command, args []string) error {
	config, err := getConfig()
	if err != nil {
		return fmt.Errorf("getting a config: %w", err)
	}
	if config.Storage == nil || config.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is not configured")
	}

	s, err := store.Open(cmd.Context(), config.Storage.Driver, config.Storage.DSN)
	if err != nil {
		return err
	}
	defer s.Close()

	if len(args) == 1 {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", args[0], err)
		}
		run, err := s.GetRun(cmd.Context(), id)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := s.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tPOSTINGS\tSKILLS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", run.ID, run.CreatedAt.Local().Format("2006-01-02 15:04"), run.Count, strings.Join(run.Skills, ","))
	}
	return w.Flush()
}
