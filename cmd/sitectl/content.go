package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/apiliability/site/internal/api"
	"github.com/apiliability/site/internal/scenarios"
	"github.com/apiliability/site/internal/source"
)

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

func (a *app) importScenariosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-scenarios [DIR]",
		Short: "Load scenario Markdown files into the database",
		Long: `Parse every .md file in DIR (default: SCENARIOS_DIR) and insert it,
or overwrite the scenario with the same slug.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.ScenariosDir
			if len(args) == 1 {
				dir = args[0]
			}
			list, err := scenarios.LoadDir(dir)
			if err != nil {
				return err
			}

			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			for _, sc := range list {
				if err := st.UpsertScenario(cmd.Context(), sc.Record()); err != nil {
					return err
				}
				a.log.Debug("scenario imported", "slug", sc.Slug)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d scenarios from %s\n", len(list), dir)
			return nil
		},
	}
}

func (a *app) importNewsCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import-news FILE.csv",
		Short: "Add news items from a CSV file",
		Long: `Read a CSV file with a header row naming date, title, summary, type
and url columns. Every row is validated before anything is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			records, err := source.ReadRecords(f)
			if err != nil {
				return err
			}
			for i, rec := range records {
				if _, err := api.NewsFromRecord(rec); err != nil {
					// Line 1 is the header.
					return fmt.Errorf("%s line %d: %w", args[0], i+2, err)
				}
			}
			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "%d news items are valid\n", len(records))
				return nil
			}

			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			for _, rec := range records {
				item, _ := api.NewsFromRecord(rec)
				if err := st.CreateNews(cmd.Context(), item); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d news items\n", len(records))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate without writing")
	return cmd
}
