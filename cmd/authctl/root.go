package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd crea el comando raiz de authctl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "authctl",
		Short:         "Operator tooling for the AquaNova auth service",
		SilenceUsage: true,
	}

	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSendTestEmailCmd())

	return cmd
}
