package main

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vx-labs/shuffle/shuffle"
	"github.com/vx-labs/shuffle/worker/logfile"
)

func Positions(ctx context.Context, config *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use: "positions",
	}
	encode := &cobra.Command{
		Use:   "encode [hex bytes]",
		Short: "Encode raw bytes, or a commitlog record, as a position.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p shuffle.Position
			if cmd.Flags().Changed("offset") {
				p = logfile.RecordPosition([]byte(config.GetString("key")), []byte(config.GetString("secondary-key")), config.GetUint64("offset"))
			} else if len(args) == 1 {
				b, err := hex.DecodeString(args[0])
				if err != nil {
					return err
				}
				p = shuffle.FromBytes(b)
			} else {
				return fmt.Errorf("expected hex bytes or --offset")
			}
			fmt.Fprintln(cmd.OutOrStdout(), p.EncodeBase64())
			return nil
		},
	}
	encode.Flags().Uint64("offset", 0, "Commitlog record offset.")
	encode.Flags().String("key", "", "Commitlog record key, used with --offset.")
	encode.Flags().String("secondary-key", "", "Commitlog record secondary key, used with --offset.")
	cmd.AddCommand(encode)

	decode := &cobra.Command{
		Use:   "decode [position]",
		Short: "Print the raw bytes of a base64 encoded position.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := shuffle.FromBase64(args[0])
			if err != nil {
				return err
			}
			table := getTable([]string{"Position", "Hex", "Size", "Commitlog Record"}, cmd.OutOrStdout())
			record := "-"
			if key, secondaryKey, offset, err := logfile.ParsePosition(p); err == nil {
				record = fmt.Sprintf("%q/%q@%d", key, secondaryKey, offset)
			}
			table.Append([]string{p.String(), hex.EncodeToString(p.Bytes()), fmt.Sprintf("%d", len(p.Bytes())), record})
			table.Render()
			return nil
		},
	}
	cmd.AddCommand(decode)
	return cmd
}
