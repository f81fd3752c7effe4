package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kimeobserver/ime-observer/internal/command"
)

var (
	layerImeNames   []string
	layerLayerNames []string
)

var layerCmd = &cobra.Command{
	Use:   "layer <port> (-i|--ime <ime-name> -l|--layer <layer-name>)...",
	Short: "Request kanata to switch layer for each observed IME",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid port number %q", args[0])
		}

		if len(layerImeNames) != len(layerLayerNames) {
			return fmt.Errorf("'ime-observer layer' needs the same number of IME names and layer names")
		}

		layerMap := make(map[string]string, len(layerImeNames))
		for i, name := range layerImeNames {
			if _, dup := layerMap[name]; dup {
				return fmt.Errorf("duplicate IME name %q", name)
			}
			layerMap[name] = layerLayerNames[i]
		}

		return runSupervisor(port, command.NewLayer(layerMap))
	},
}

func init() {
	layerCmd.Flags().StringArrayVarP(&layerImeNames, "ime", "i", nil, "IME name, paired positionally with the next --layer (repeatable)")
	layerCmd.Flags().StringArrayVarP(&layerLayerNames, "layer", "l", nil, "layer name, paired positionally with the preceding --ime (repeatable)")
	rootCmd.AddCommand(layerCmd)
}
