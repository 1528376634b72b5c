package main

import (
	"github.com/spf13/cobra"
)

var apiBase string

var rootCmd = &cobra.Command{
	Use:   "corpusmind",
	Short: "Command-line client for a corpusmind API server",
	Long:  `corpusmind drives a running corpusmind API process: trigger syncs, check their status, and ask questions against the personal knowledge base.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiBase, "api", "http://localhost:8080", "base URL of the corpusmind API server")
}

func Execute() error {
	return rootCmd.Execute()
}
