package main

import (
	"fmt"

	pgStorage "emoney-core/internal/adapter/storage/postgres"

	"github.com/spf13/cobra"
)

func migrateCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			_, pool, log, err := env.open(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			applied, err := pgStorage.Migrate(ctx, pool, log)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				return nil
			}
			for _, v := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", v)
			}
			return nil
		},
	}
}
