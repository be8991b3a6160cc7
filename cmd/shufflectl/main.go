package main

import (
	"context"
	"io"
	"log"
	"os"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vx-labs/shuffle/worker"
	"github.com/vx-labs/shuffle/worker/logfile"
	"github.com/vx-labs/shuffle/worker/sortedshard"
	"github.com/vx-labs/shuffle/worker/stats"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func getLogger(config *viper.Viper) *zap.Logger {
	if config.GetBool("debug") {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zap.New(zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.AddSync(colorable.NewColorableStderr()),
			zapcore.DebugLevel,
		), zap.AddCaller())
	}
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return logger
}

func getTable(headers []string, out io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(headers)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	return table
}

func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return dir + "/shufflectl"
}

func newRegistry() *worker.Registry {
	registry := worker.NewRegistry()
	if err := logfile.Register(registry); err != nil {
		panic(err)
	}
	if err := sortedshard.Register(registry); err != nil {
		panic(err)
	}
	return registry
}

func readerOptions(config *viper.Viper) worker.Options {
	opts := worker.DefaultOptions()
	opts.PrefetchValues = config.GetBool("prefetch-values")
	if size := config.GetInt("prefetch-size"); size > 0 {
		opts.PrefetchSize = size
	}
	return opts
}

func main() {
	config := viper.New()
	config.AddConfigPath(configDir())
	config.SetConfigType("yaml")
	config.SetConfigName("config")
	config.SetEnvPrefix("SHUFFLECTL")
	config.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	config.AutomaticEnv()

	ctx := context.Background()
	rootCmd := &cobra.Command{
		Use: "shufflectl",
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			config.BindPFlags(cmd.Flags())
			config.BindPFlags(cmd.PersistentFlags())
			if err := config.ReadInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
					log.Fatal(err)
				}
			}
			if port := config.GetInt("metrics-port"); port > 0 {
				go func() {
					if err := stats.ListenAndServe(port); err != nil {
						log.Print(err)
					}
				}()
			}
		},
	}
	rootCmd.AddCommand(Shards(ctx, config))
	rootCmd.AddCommand(Runs(ctx, config))
	rootCmd.AddCommand(Read(ctx, config))
	rootCmd.AddCommand(Group(ctx, config))
	rootCmd.AddCommand(Positions(ctx, config))
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Use a fancy logger and increase logging level.")
	rootCmd.PersistentFlags().Int("metrics-port", 0, "Start Prometheus HTTP metrics server on this port.")
	rootCmd.PersistentFlags().Bool("prefetch-values", true, "Load values ahead of iteration when the backend supports it.")
	rootCmd.PersistentFlags().Int("prefetch-size", 100, "Number of values loaded ahead of iteration.")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
