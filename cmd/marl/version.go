package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marldb/marl"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the marl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(marl.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
