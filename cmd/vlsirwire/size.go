package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func sizeCmd(a *app) *cobra.Command {
	var (
		messageType string
		hexInput    bool
	)

	cmd := &cobra.Command{
		Use:   "size [file]",
		Short: "Report the encoded size of a message",
		Long: `Decode a message and report its size as read and the size it
re-encodes to. The two differ when the input carries unknown fields,
unpacked repeated scalars or repeated oneof members.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := a.messageType(messageType)
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			if hexInput {
				if data, err = decodeHex(data); err != nil {
					return err
				}
			}

			c, err := a.load()
			if err != nil {
				return err
			}
			msg, err := c.Parse(data, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "input:   %d\nencoded: %d\n", len(data), c.Size(msg))
			return nil
		},
	}

	cmd.Flags().StringVarP(&messageType, "type", "t", "", "fully qualified message type")
	cmd.Flags().BoolVar(&hexInput, "hex", false, "input is hex text instead of binary")

	return cmd
}
