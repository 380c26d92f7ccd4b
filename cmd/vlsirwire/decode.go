package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vlsir/vlsirwire/dynamic"
	"github.com/vlsir/vlsirwire/schema"
	"github.com/vlsir/vlsirwire/wire"
)

func decodeCmd(a *app) *cobra.Command {
	var (
		messageType string
		raw         bool
		hexInput    bool
	)

	cmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "Decode a binary message to JSON",
		Long: `Decode a protobuf message read from file, or standard input, and print
it as JSON. Enum values are printed by name. With --raw no schema is used and
each top-level field is listed with its number, wire type and payload.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			if hexInput {
				if data, err = decodeHex(data); err != nil {
					return err
				}
			}
			if raw {
				return dumpRaw(cmd.OutOrStdout(), data)
			}

			name, err := a.messageType(messageType)
			if err != nil {
				return err
			}
			c, err := a.load()
			if err != nil {
				return err
			}
			msg, err := c.Parse(data, name)
			if err != nil {
				return err
			}
			a.logger.Debug().Str("type", name).Int("bytes", len(data)).Msg("decoded message")

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(render(msg))
		},
	}

	cmd.Flags().StringVarP(&messageType, "type", "t", "", "fully qualified message type")
	cmd.Flags().BoolVar(&raw, "raw", false, "list raw fields without a schema")
	cmd.Flags().BoolVar(&hexInput, "hex", false, "input is hex text instead of binary")

	return cmd
}

func decodeHex(data []byte) ([]byte, error) {
	text := strings.Join(strings.Fields(string(data)), "")
	out, err := hex.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("decode hex input: %w", err)
	}
	return out, nil
}

func dumpRaw(w io.Writer, data []byte) error {
	d := wire.NewDecoder(data)
	for {
		offset := d.Pos()
		f, err := d.DecodeRawField()
		if err != nil {
			return fmt.Errorf("offset %d: %w", offset, err)
		}
		if f == nil {
			return nil
		}
		switch f.WireType {
		case wire.WireBytes, wire.WireStartGroup:
			fmt.Fprintf(w, "%6d  #%-5d %-7s %d bytes  % x\n", offset, f.FieldNumber, f.WireType, len(f.Bytes), f.Bytes)
		default:
			fmt.Fprintf(w, "%6d  #%-5d %-7s %d\n", offset, f.FieldNumber, f.WireType, f.Varint)
		}
	}
}

// render converts msg to values encoding/json can print: enum numbers
// become names where the schema knows them and map keys become strings.
func render(msg *dynamic.Message) map[string]any {
	out := make(map[string]any)
	msg.Range(func(fd *schema.Field, v any) bool {
		out[fd.Name] = renderValue(fd, v)
		return true
	})
	return out
}

func renderValue(fd *schema.Field, v any) any {
	switch c := v.(type) {
	case *dynamic.Message:
		return render(c)
	case *dynamic.List:
		items := make([]any, c.Len())
		for i := range items {
			items[i] = renderElement(fd, c.Get(i))
		}
		return items
	case *dynamic.Map:
		out := make(map[string]any, c.Len())
		c.Range(func(k, val any) bool {
			out[fmt.Sprint(k)] = renderElement(fd, val)
			return true
		})
		return out
	default:
		return renderElement(fd, v)
	}
}

func renderElement(fd *schema.Field, v any) any {
	if m, ok := v.(*dynamic.Message); ok {
		return render(m)
	}
	if n, ok := v.(int32); ok && fd.Enum != nil {
		if ev := fd.Enum.ValueByNumber(n); ev != nil {
			return ev.Name
		}
	}
	return v
}
