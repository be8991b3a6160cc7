package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vx-labs/shuffle/coder"
	"github.com/vx-labs/shuffle/worker"
	"github.com/vx-labs/shuffle/worker/sortedshard"
	"go.uber.org/zap"
)

func Shards(ctx context.Context, config *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use: "shards",
	}
	write := &cobra.Command{
		Use:   "write",
		Short: "Write tab separated records read from stdin into sorted shards.",
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := worker.StoreLogger(ctx, getLogger(config))
			l := worker.L(ctx)
			valueCoder, err := coder.Lookup(config.GetString("value-coder"))
			if err != nil {
				l.Fatal("invalid value coder", zap.Error(err))
			}
			w, err := sortedshard.NewPartitionedWriter(ctx, config.GetString("data-dir"), config.GetInt("partitions"))
			if err != nil {
				l.Fatal("failed to open shards", zap.Error(err))
			}
			count, err := readRecords(cmd.InOrStdin(), valueCoder, func(r record) error {
				_, _, err := w.Append(r.Key, r.SecondaryKey, r.Value)
				return err
			})
			if closeErr := w.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				l.Fatal("failed to write shards", zap.Error(err))
			}
			l.Info("shards written", zap.Int("record_count", count))
			for _, dir := range w.ShardDirs() {
				fmt.Fprintln(cmd.OutOrStdout(), dir)
			}
		},
	}
	write.Flags().String("data-dir", "", "Shards location. One shard is created per partition.")
	write.MarkFlagRequired("data-dir")
	write.Flags().Int("partitions", 1, "Partition count.")
	write.Flags().String("value-coder", "string_utf8", "Value coder.")
	cmd.AddCommand(write)
	return cmd
}
