package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/bean-flow/internal/cli"
)

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List past import runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), settings)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			records, err := store.Imports(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("No imports yet."))
				return nil
			}
			for _, rec := range records {
				fmt.Fprintf(out, "%s  %-28s %-32s %4d accepted %4d duplicates\n",
					rec.ImportedAt.Local().Format("2006-01-02 15:04"),
					rec.Source, rec.Account, rec.Accepted, rec.Duplicates)
			}
			return nil
		},
	}
}
