package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/amaumene/listarr/internal/app"
	"github.com/amaumene/listarr/internal/config"
	"github.com/amaumene/listarr/internal/models"
	"github.com/spf13/cobra"
)

func newProcessCmd() *cobra.Command {
	var (
		userID uint
		listID uint
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Process one list, or every enabled list of a user, right now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (listID != 0) {
				return errors.New("pass exactly one of --list or --all")
			}

			application, cleanup, err := initialize()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := application.Translator.Initialize(cmd.Context()); err != nil {
				application.Logger.Warn().Err(err).Msg("Anime id mapping unavailable")
			}

			if all {
				summaries, err := application.Process.TriggerAll(cmd.Context(), userID, models.TriggerManual)
				if len(summaries) > 0 {
					if encErr := printJSON(cmd, summaries); encErr != nil {
						return encErr
					}
				}
				return err
			}

			summary, err := application.Process.TriggerProcessing(cmd.Context(), userID, listID, models.TriggerManual)
			if summary != nil {
				if encErr := printJSON(cmd, summary); encErr != nil {
					return encErr
				}
			}
			return err
		},
	}

	cmd.Flags().UintVar(&userID, "user", 0, "owner of the lists")
	cmd.Flags().UintVar(&listID, "list", 0, "list to process")
	cmd.Flags().BoolVar(&all, "all", false, "process every enabled list of the user")
	cmd.MarkFlagRequired("user")
	return cmd
}

func newJobsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "Show the job the stored settings install",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, cleanup, err := initialize()
			if err != nil {
				return err
			}
			defer cleanup()

			jobs, err := application.Scheduler.Preview(cmd.Context())
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No active job")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSPEC\tNEXT RUN")
			for _, job := range jobs {
				fmt.Fprintf(w, "%d\t%s\t%s\n", job.ID, job.Spec, job.NextRun.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func initialize() (*app.App, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	application, cleanup, err := app.Initialize(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return application, cleanup, nil
}
