package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kimeobserver/ime-observer/internal/command"
)

var logCmd = &cobra.Command{
	Use:   "log <port>",
	Short: "Log observed IME/layer transitions without telling kanata anything",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid port number %q", args[0])
		}

		return runSupervisor(port, command.NewLog())
	},
}

func init() {
	rootCmd.AddCommand(logCmd)
}
