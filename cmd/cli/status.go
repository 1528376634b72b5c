package main

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [syncId]",
	Short: "Check the status of a running or completed sync",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	var out map[string]any
	if err := getJSON(apiBase+"/sync/status/"+args[0], &out); err != nil {
		return err
	}
	cmd.Printf("%+v\n", out)
	return nil
}
