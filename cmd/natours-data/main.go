package main

import (
	"context"
	"fmt"
	"os"

	"github.com/SanteonNL/natours/cmd/natours/config"
	"github.com/SanteonNL/natours/cmd/natours/datasource"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	log := zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) { w.Out = os.Stderr })).With().Timestamp().Caller().Logger()
	if err := newRootCmd(log).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(log zerolog.Logger) *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "natours-data",
		Short:         "Load or remove the natours development data",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "config.env", "environment file to load")

	openStore := func(ctx context.Context) (datasource.Store, error) {
		cfg, err := config.Load(envFile)
		if err != nil {
			return nil, err
		}
		if cfg.DataSource == config.DataSourceMemory {
			log.Warn().Msg("The memory data source does not persist between runs")
		}
		// the importer writes the data file itself
		cfg.DataFile = ""
		return datasource.Open(ctx, cfg, log)
	}

	var file string
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import tours into the configured data source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			tours, err := newTourSource(log).Read(ctx, file)
			if err != nil {
				return err
			}

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			for _, t := range tours {
				if err := store.Create(ctx, t); err != nil {
					return fmt.Errorf("failed to import %q: %w", t.Name, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Data successfully loaded! (%d tours)\n", len(tours))
			return nil
		},
	}
	importCmd.Flags().StringVarP(&file, "file", "f", "dev-data/data/tours.json", "tours JSON file path or http(s) URL")

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete every tour from the configured data source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.DeleteAll(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Data successfully deleted! (%d tours)\n", n)
			return nil
		},
	}

	root.AddCommand(importCmd, deleteCmd)
	return root
}
