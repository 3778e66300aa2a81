// Command sitectl manages site content from the command line: schema
// migration, scenario and news imports, and local proposal tooling.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/apiliability/site/internal/config"
	"github.com/apiliability/site/internal/store"
)

// app carries state shared by subcommands.
type app struct {
	cfg      config.Config
	log      *slog.Logger
	verbose  bool
	database string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "sitectl",
		Short:         "Manage site content and the proposal document",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			if a.database == "" {
				a.database = cfg.DatabaseURL
			}
			level := slog.LevelInfo
			if a.verbose {
				level = slog.LevelDebug
			}
			a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&a.database, "database", "", "Database URL (default: DATABASE_URL)")

	root.AddCommand(
		a.migrateCmd(),
		a.importScenariosCmd(),
		a.importNewsCmd(),
		a.paginateCmd(),
		a.exportCmd(),
		a.viewCmd(),
	)
	return root
}

// openStore opens the configured database and makes sure the schema exists.
func (a *app) openStore(ctx context.Context) (*store.Store, error) {
	if a.database == "" {
		return nil, fmt.Errorf("no database: set DATABASE_URL or pass --database")
	}
	st, err := store.Open(a.database)
	if err != nil {
		return nil, err
	}
	if err := st.EnsureSchema(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
