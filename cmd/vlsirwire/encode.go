package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func encodeCmd(a *app) *cobra.Command {
	var (
		messageType string
		hexOutput   bool
	)

	cmd := &cobra.Command{
		Use:   "encode [file]",
		Short: "Encode a JSON object as a binary message",
		Long: `Encode a JSON object, read from file or standard input, as a protobuf
message. Keys are field names; enum fields take a name or a number, and
64-bit integers may be given as decimal strings.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := a.messageType(messageType)
			if err != nil {
				return err
			}
			input, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			var fields map[string]any
			if err := json.Unmarshal(input, &fields); err != nil {
				return fmt.Errorf("parse JSON input: %w", err)
			}

			c, err := a.load()
			if err != nil {
				return err
			}
			data, err := c.MarshalMap(fields, name)
			if err != nil {
				return err
			}
			a.logger.Debug().Str("type", name).Int("bytes", len(data)).Msg("encoded message")

			if hexOutput {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(data))
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&messageType, "type", "t", "", "fully qualified message type")
	cmd.Flags().BoolVar(&hexOutput, "hex", false, "print hex text instead of binary")

	return cmd
}
