package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configFlag   string
	dataDirFlag  string
	logLevelFlag string
	userFlag     string
)

var rootCmd = &cobra.Command{
	Use:   "deltatree",
	Short: "deltatree - offline participant record editing",
	Long: `deltatree records edits to a participant's document tree as an encrypted delta
and merges them into the participant's base snapshot on save.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default: ./deltatree.{yaml,json,toml})")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Data directory, overrides dataDir from config")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&userFlag, "user", os.Getenv("USER"), "User id owning the participants")
}
