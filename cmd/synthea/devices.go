package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/liuscraft/synthea/internal/audio"
)

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List PortAudio output devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := audio.Devices()
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"", "Name", "Host API", "Channels", "Sample Rate"})
			for _, d := range devices {
				mark := ""
				if d.Default {
					mark = "*"
				}
				t.AppendRow(table.Row{mark, d.Name, d.HostAPI, d.MaxOutputChannels, fmt.Sprintf("%.0f", d.DefaultSampleRate)})
			}
			t.Render()
			return nil
		},
	}
}
