package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vx-labs/shuffle/coder"
	"github.com/vx-labs/shuffle/worker"
	"github.com/vx-labs/shuffle/worker/stats"
	"go.uber.org/zap"
)

// shardSpec builds the description of the shard stored at locator from the
// command line.
func shardSpec(config *viper.Viper, locator string) worker.Spec {
	spec := worker.Spec{
		worker.PropertyType:     config.GetString("shard-format"),
		worker.PropertyFilename: locator,
	}
	if v := config.GetInt64("start-offset"); v >= 0 {
		spec[worker.PropertyStartOffset] = v
	}
	if v := config.GetInt64("end-offset"); v >= 0 {
		spec[worker.PropertyEndOffset] = v
	}
	if v := config.GetString("start-position"); v != "" {
		spec[worker.PropertyStartShufflePosition] = v
	}
	if v := config.GetString("end-position"); v != "" {
		spec[worker.PropertyEndShufflePosition] = v
	}
	return spec
}

func shardFlags(cmd *cobra.Command) {
	cmd.Flags().String("shard-format", "shuffle", "Shard format (shuffle or commitlog).")
	cmd.Flags().Int64("start-offset", -1, "First record offset to read.")
	cmd.Flags().Int64("end-offset", -1, "Record offset to stop at.")
	cmd.Flags().String("start-position", "", "Base64 encoded position to start at.")
	cmd.Flags().String("end-position", "", "Base64 encoded position to stop at.")
}

func Read(ctx context.Context, config *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read [locator]",
		Short: "Print the entries of a shard.",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := worker.StoreLogger(ctx, getLogger(config))
			l := worker.L(ctx)
			valueCoder, err := coder.Lookup(config.GetString("value-coder"))
			if err != nil {
				l.Fatal("invalid value coder", zap.Error(err))
			}
			operationName := config.GetString("operation-name")
			r, err := newRegistry().Create(ctx, shardSpec(config, args[0]), valueCoder, readerOptions(config), stats.Counters(operationName), operationName)
			if err != nil {
				l.Fatal("failed to open shard", zap.Error(err))
			}
			table := getTable([]string{"Position", "Key", "Secondary key", "Size", "Value"}, cmd.OutOrStdout())
			e, err := r.Start(ctx)
			for ; e != nil && err == nil; e, err = r.Advance(ctx) {
				value, decodeErr := valueCoder.Decode(e.Value)
				if decodeErr != nil {
					value = decodeErr.Error()
				}
				table.Append([]string{
					e.Position.EncodeBase64(),
					string(e.Key),
					string(e.SecondaryKey),
					humanize.Bytes(uint64(len(e.Value))),
					fmt.Sprintf("%v", value),
				})
			}
			table.Render()
			if closeErr := r.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				l.Fatal("failed to read shard", zap.Error(err))
			}
		},
	}
	shardFlags(cmd)
	cmd.Flags().String("value-coder", "string_utf8", "Value coder.")
	cmd.Flags().String("operation-name", "shufflectl", "Operation name reported in metrics and logs.")
	return cmd
}
