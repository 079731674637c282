// Command emoneyctl is the operator CLI for the e-money core: schema
// migrations, scheduled reconciliation runs and account provisioning.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "emoneyctl",
		Short:         "Operator tooling for the e-money core",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./config.yaml or ./config/config.yaml)")

	env := &cliEnv{configPath: &configPath}
	rootCmd.AddCommand(migrateCmd(env))
	rootCmd.AddCommand(reconcileCmd(env))
	rootCmd.AddCommand(hashPINCmd())
	rootCmd.AddCommand(walletCmd(env))
	rootCmd.AddCommand(userCmd(env))
	rootCmd.AddCommand(sessionTokenCmd(env))

	return rootCmd
}
