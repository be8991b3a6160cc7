package main

import (
	"context"
	"fmt"
	"io"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vx-labs/shuffle/coder"
	"github.com/vx-labs/shuffle/grouping"
	"github.com/vx-labs/shuffle/shuffle"
	"github.com/vx-labs/shuffle/stream"
	"github.com/vx-labs/shuffle/worker"
	"github.com/vx-labs/shuffle/worker/stats"
	"go.uber.org/zap"
)

const groupTemplate = `• {{ .Key | yellow }} ({{ .Count | humanCount }} values, {{ .Size | humanBytes }}) {{ .Position | faint }}
{{- range .Values }}
    {{ . }}
{{- end }}`

type groupOutput struct {
	Key      string
	Position string
	Count    int
	Size     uint64
	Values   []string
}

func Group(ctx context.Context, config *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group [locator...]",
		Short: "Merge shards and print their groups.",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := worker.StoreLogger(ctx, getLogger(config))
			l := worker.L(ctx)
			keyCoder, err := coder.Lookup(config.GetString("key-coder"))
			if err != nil {
				l.Fatal("invalid key coder", zap.Error(err))
			}
			valueCoder, err := coder.Lookup(config.GetString("value-coder"))
			if err != nil {
				l.Fatal("invalid value coder", zap.Error(err))
			}
			tpl, err := ParseTemplate(config.GetString("format"))
			if err != nil {
				l.Fatal("invalid output format", zap.Error(err))
			}
			opts := []grouping.Option{}
			if v := config.GetString("from-position"); v != "" {
				p, err := shuffle.FromBase64(v)
				if err != nil {
					l.Fatal("invalid resume position", zap.Error(err))
				}
				opts = append(opts, grouping.FromPosition(p))
			}
			operationName := config.GetString("operation-name")
			counters := stats.Counters(operationName)
			opts = append(opts, grouping.WithCounters(counters))
			registry := newRegistry()
			readers := make([]worker.Reader, 0, len(args))
			for _, locator := range args {
				r, err := registry.Create(ctx, shardSpec(config, locator), valueCoder, readerOptions(config), counters, operationName)
				if err != nil {
					for _, r := range readers {
						r.Close()
					}
					l.Fatal("failed to open shard", zap.String("shard_locator", locator), zap.Error(err))
				}
				readers = append(readers, r)
			}
			groups := grouping.New(ctx, readers, keyCoder, valueCoder, opts...)
			err = printGroups(ctx, cmd.OutOrStdout(), groups, tpl, operationName, config.GetInt64("max-groups"), l)
			if err != nil {
				l.Fatal("failed to group shards", zap.Error(err), zap.Stringer("resume_position", groups.Progress()))
			}
		},
	}
	shardFlags(cmd)
	cmd.Flags().String("key-coder", "string_utf8", "Key coder.")
	cmd.Flags().String("value-coder", "string_utf8", "Value coder.")
	cmd.Flags().String("from-position", "", "Base64 encoded group position to resume from.")
	cmd.Flags().Int64("max-groups", -1, "Stop after this many groups.")
	cmd.Flags().String("operation-name", "shufflectl", "Operation name reported in metrics and logs.")
	cmd.Flags().String("format", groupTemplate, "Format each group using Golang template format.")
	return cmd
}

// printGroups renders every group of groups with tpl, and closes groups before
// returning.
func printGroups(ctx context.Context, w io.Writer, groups *grouping.Reader, tpl *template.Template, operationName string, maxGroups int64, l *zap.Logger) error {
	err := stream.Consume(ctx, groups, func(ctx context.Context, g *grouping.Group) error {
		out := groupOutput{Key: fmt.Sprintf("%v", g.Key), Position: g.Position.EncodeBase64(), Values: []string{}}
		for g.Values.Next() {
			out.Count++
			out.Size += uint64(len(g.Values.RawValue()))
			out.Values = append(out.Values, fmt.Sprintf("%v", g.Values.Value()))
		}
		if err := g.Values.Err(); err != nil {
			return err
		}
		return tpl.Execute(w, out)
	},
		stream.WithName(operationName),
		stream.WithMaxGroupCount(maxGroups),
		stream.WithPerformanceLogging(l))
	if closeErr := groups.Close(); err == nil {
		err = closeErr
	}
	return err
}
