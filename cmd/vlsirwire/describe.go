package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vlsir/vlsirwire/schema"
)

func describeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "describe TYPE",
		Short: "Show the fields of a message or the values of an enum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.load()
			if err != nil {
				return err
			}
			reg := c.Registry()
			if msg, err := reg.GetMessage(args[0]); err == nil {
				return describeMessage(cmd.OutOrStdout(), msg)
			}
			enum, err := reg.GetEnum(args[0])
			if err != nil {
				return fmt.Errorf("no message or enum %s: %w", args[0], err)
			}
			return describeEnum(cmd.OutOrStdout(), enum)
		},
	}
}

func describeMessage(w io.Writer, msg *schema.Message) error {
	fmt.Fprintf(w, "message %s\n", msg.Name)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, fd := range msg.SortedFields() {
		oneof := ""
		if fd.Kind == schema.KindOneofMember {
			oneof = "oneof " + msg.OneofGroups[fd.OneofIndex()].Name
		}
		fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\t%s\n", fd.Number, fd.Name, fd.Kind, fieldType(fd), oneof)
	}
	return tw.Flush()
}

func fieldType(fd *schema.Field) string {
	var t string
	switch {
	case fd.Message != nil:
		t = fd.Message.Name
	case fd.Enum != nil:
		t = fd.Enum.Name
	default:
		t = string(fd.Type)
	}
	if fd.Kind == schema.KindMap {
		return fmt.Sprintf("map<%s, %s>", fd.MapKey, t)
	}
	if fd.Unpacked {
		return t + " [packed=false]"
	}
	return t
}

func describeEnum(w io.Writer, enum *schema.Enum) error {
	fmt.Fprintf(w, "enum %s\n", enum.Name)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, v := range enum.Values {
		fmt.Fprintf(tw, "  %d\t%s\n", v.Number, v.Name)
	}
	return tw.Flush()
}
