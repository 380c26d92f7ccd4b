package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func listCmd(a *app) *cobra.Command {
	var (
		enums  bool
		prefix string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List loaded message types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.load()
			if err != nil {
				return err
			}
			names := c.ListMessages()
			if enums {
				names = c.ListEnums()
			}
			for _, name := range names {
				if strings.HasPrefix(name, prefix) {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&enums, "enums", "e", false, "list enums instead of messages")
	cmd.Flags().StringVarP(&prefix, "package", "p", "", "only names starting with this prefix")

	return cmd
}
