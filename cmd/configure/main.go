package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pawkit/pet-reminders/cmd/configure/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "pet-reminders-configure",
		Short: "Configuration tool for the pet reminders API",
		Long:  "CLI tool for managing stored CORS and rate limit settings and testing service dependencies",
	}

	rootCmd.AddCommand(commands.NewListCmd())
	rootCmd.AddCommand(commands.NewTestCmd())
	rootCmd.AddCommand(commands.NewCorsCmd())
	rootCmd.AddCommand(commands.NewRatelimitCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
