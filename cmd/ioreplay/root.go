package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/onedata/ioreplay/internal/cfg"
	"github.com/onedata/ioreplay/internal/logger"
)

var (
	cfgFile       string
	bindErr       error
	configFileErr error
	unmarshalErr  error
	config        cfg.Config
)

var rootCmd = &cobra.Command{
	Use:   "ioreplay [flags] trace-path",
	Short: "Reconstruct and replay a recorded FUSE I/O trace",
	Long: `ioreplay reconstructs user-level syscalls from a low-level FUSE
callback trace and, when given a mount path, replays them against a real
mounted filesystem. Given only a trace path it parses and validates the
trace without touching any filesystem (a dry run).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if bindErr != nil {
			return bindErr
		}
		if configFileErr != nil {
			return configFileErr
		}
		if unmarshalErr != nil {
			return unmarshalErr
		}
		logger.SetLogFormat(config.Logging.Format)
		logger.SetLoggingLevel(string(config.Logging.Severity))
		config.Trace.Path = args[0]
		return runReplay(cmd.OutOrStdout(), config)
	},
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to an optional YAML config file")
	bindErr = cfg.BindFlags(rootCmd.PersistentFlags())
}

func initConfig() {
	if cfgFile == "" {
		unmarshalErr = viper.Unmarshal(&config, viper.DecodeHook(cfg.DecodeHook()))
		return
	}
	viper.SetConfigFile(cfgFile)
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		configFileErr = fmt.Errorf("reading config file %q: %w", cfgFile, err)
		return
	}
	unmarshalErr = viper.Unmarshal(&config, viper.DecodeHook(cfg.DecodeHook()))
}

// Execute runs the root command, translating any returned error into the
// exit-code contract of spec.md §6: non-zero on parse failure of the mount
// line, on fatal preparation errors, or on I/O failures opening the trace
// file.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Errorf("ioreplay: %v", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
