package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mfield/retain/internal/config"
)

// NewRootCmd builds the root command and wires all subcommands.
func NewRootCmd(loader ConfigLoader) *cobra.Command {
	var (
		cfgFile string
		cfg     *config.Config
	)

	rootCmd := &cobra.Command{
		Use:   "retain",
		Short: "A spaced-repetition flashcard scheduler",
		Long: `Retain is a spaced-repetition study tool. Cards move through learning
steps, graduate to day-based review intervals, and come back more or less often
depending on how you grade your recall (Again | Hard | Good | Easy). Daily
workload is capped per deck, with child decks consuming their parents' budget.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile != "" {
				viper.SetConfigFile(cfgFile)
			}
			var err error
			cfg, err = loader.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.retain/retain.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "log in JSON format")
	rootCmd.PersistentFlags().String("database-path", "", "database file path")

	// Bind flags to viper
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log_json", rootCmd.PersistentFlags().Lookup("log-json"))
	_ = viper.BindPFlag("database.path", rootCmd.PersistentFlags().Lookup("database-path"))

	cfgRef := func() *config.Config { return cfg }
	rootCmd.AddCommand(NewDeckCmd(cfgRef))
	rootCmd.AddCommand(NewReviewCmd(cfgRef))
	rootCmd.AddCommand(NewBackupCmd(cfgRef))

	return rootCmd
}
