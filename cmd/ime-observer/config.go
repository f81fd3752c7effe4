package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kimeobserver/ime-observer/internal/command"
)

var configImeNames []string

var configCmd = &cobra.Command{
	Use:   "config <port> (-i|--ime <ime-name>)...",
	Short: "Request kanata to reload a config file for each observed IME",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid port number %q", args[0])
		}

		configMap := make(map[string]uint, len(configImeNames))
		for _, name := range configImeNames {
			if _, dup := configMap[name]; dup {
				return fmt.Errorf("duplicate IME name %q", name)
			}
			configMap[name] = uint(len(configMap))
		}
		if len(configMap) == 0 {
			return cmd.Help()
		}

		return runSupervisor(port, command.NewConfig(configMap))
	},
}

func init() {
	configCmd.Flags().StringArrayVarP(&configImeNames, "ime", "i", nil, "IME name to bind to the next config index (repeatable)")
	rootCmd.AddCommand(configCmd)
}
