package main

import (
	"context"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vx-labs/shuffle/coder"
	"github.com/vx-labs/shuffle/shuffle"
	"github.com/vx-labs/shuffle/worker"
	"github.com/vx-labs/shuffle/worker/logfile"
	"go.uber.org/zap"
)

func Runs(ctx context.Context, config *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use: "runs",
	}
	write := &cobra.Command{
		Use:   "write",
		Short: "Sort tab separated records read from stdin and store them as a commitlog run.",
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := worker.StoreLogger(ctx, getLogger(config))
			l := worker.L(ctx)
			valueCoder, err := coder.Lookup(config.GetString("value-coder"))
			if err != nil {
				l.Fatal("invalid value coder", zap.Error(err))
			}
			records := []record{}
			_, err = readRecords(cmd.InOrStdin(), valueCoder, func(r record) error {
				records = append(records, r)
				return nil
			})
			if err != nil {
				l.Fatal("failed to read records", zap.Error(err))
			}
			sort.SliceStable(records, func(i, j int) bool {
				return shuffle.CompareEntries(
					&shuffle.Entry{Key: records[i].Key, SecondaryKey: records[i].SecondaryKey},
					&shuffle.Entry{Key: records[j].Key, SecondaryKey: records[j].SecondaryKey},
				) < 0
			})
			w, err := logfile.NewRunWriter(config.GetString("data-dir"), config.GetUint64("segment-records"))
			if err != nil {
				l.Fatal("failed to open run", zap.Error(err))
			}
			bare := config.GetBool("bare-values")
			for _, r := range records {
				if bare {
					_, err = w.AppendValue(r.Value)
				} else {
					_, err = w.Append(r.Key, r.SecondaryKey, r.Value)
				}
				if err != nil {
					break
				}
			}
			if closeErr := w.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				l.Fatal("failed to write run", zap.Error(err))
			}
			l.Info("run written", zap.Int("record_count", len(records)))
		},
	}
	write.Flags().String("data-dir", "", "Run location.")
	write.MarkFlagRequired("data-dir")
	write.Flags().Uint64("segment-records", logfile.DefaultSegmentRecordCount, "Record count per segment.")
	write.Flags().String("value-coder", "string_utf8", "Value coder.")
	write.Flags().Bool("bare-values", false, "Store bare values, as read by windowed value coders.")
	cmd.AddCommand(write)
	return cmd
}
