// Package cfg holds the process configuration: a Config struct decoded from
// pflag-bound command-line flags and an optional YAML config file, in the
// shape of the teacher's cfg/config.go.
package cfg

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// LogSeverity mirrors internal/logger's accepted severity vocabulary, kept
// as its own type here so DecodeHook can validate it during config decode
// rather than at first use.
type LogSeverity string

// TraceConfig names the input trace and whether it should be pre-sorted
// before parsing (spec.md §4.3, §6).
type TraceConfig struct {
	Path         string `mapstructure:"path"`
	Presort      bool   `mapstructure:"presort"`
	PresortChunk int    `mapstructure:"presort-chunk-size"`
}

// ReplayConfig governs what happens with the reconstructed syscalls once
// parsing finishes (spec.md §6 "Command surface"): where to replay them,
// whether to prepare the environment first, and what to report.
type ReplayConfig struct {
	MountPath    string          `mapstructure:"mount-path"`
	PrepareEnv   bool            `mapstructure:"prepare-env"`
	DumpSyscalls bool            `mapstructure:"dump-syscalls"`
	EnvReport    bool            `mapstructure:"env-report"`
	Enabled      bool            `mapstructure:"replay"`
	Masks        []PathMaskEntry `mapstructure:"mask"`
}

// LoggingConfig is the on-disk/flag-bound shape of internal/logger's
// runtime configuration.
type LoggingConfig struct {
	FilePath        string      `mapstructure:"file-path"`
	Severity        LogSeverity `mapstructure:"severity"`
	Format          string      `mapstructure:"format"`
	MaxFileSizeMB   int         `mapstructure:"max-file-size-mb"`
	BackupFileCount int         `mapstructure:"backup-file-count"`
	Compress        bool        `mapstructure:"compress"`
}

// Config is the fully decoded process configuration.
type Config struct {
	Trace   TraceConfig   `mapstructure:"trace"`
	Replay  ReplayConfig  `mapstructure:"replay"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// BindFlags registers every flag ioreplay accepts onto flagSet and binds
// each one into viper under the dotted key its Config field decodes from,
// in the teacher's cfg.BindFlags style (cfg/config.go): one
// flagSet.XxxP(...) + viper.BindPFlag(...) pair per setting.
func BindFlags(flagSet *pflag.FlagSet) error {
	var err error

	flagSet.StringP("mount-path", "m", "", "Mount path to replay against; omitted means parse-only (dry run).")
	if err = viper.BindPFlag("replay.mount-path", flagSet.Lookup("mount-path")); err != nil {
		return err
	}

	flagSet.BoolP("presort", "", false, "Pre-sort the trace file by timestamp before parsing.")
	if err = viper.BindPFlag("trace.presort", flagSet.Lookup("presort")); err != nil {
		return err
	}

	flagSet.IntP("presort-chunk-size", "", 0, "In-memory chunk size for pre-sort; 0 uses the package default.")
	if err = viper.BindPFlag("trace.presort-chunk-size", flagSet.Lookup("presort-chunk-size")); err != nil {
		return err
	}

	flagSet.BoolP("prepare-env", "", false, "Create missing filesystem entries from the initial layer before replay.")
	if err = viper.BindPFlag("replay.prepare-env", flagSet.Lookup("prepare-env")); err != nil {
		return err
	}

	flagSet.BoolP("dump-syscalls", "", false, "Print the reconstructed syscall sequence before replay.")
	if err = viper.BindPFlag("replay.dump-syscalls", flagSet.Lookup("dump-syscalls")); err != nil {
		return err
	}

	flagSet.BoolP("env-report", "", false, "Print the original-vs-replayed timing report after replay.")
	if err = viper.BindPFlag("replay.env-report", flagSet.Lookup("env-report")); err != nil {
		return err
	}

	flagSet.BoolP("replay", "", true, "Actually replay the reconstructed syscalls against mount-path.")
	if err = viper.BindPFlag("replay.replay", flagSet.Lookup("replay")); err != nil {
		return err
	}

	flagSet.StringArrayP("mask", "", nil, "Path mask of the form original:replacement; may be repeated.")
	if err = viper.BindPFlag("replay.mask", flagSet.Lookup("mask")); err != nil {
		return err
	}

	flagSet.StringP("log-file", "", "", "Path to a diagnostic log file; decoded into the config but not applied by the ioreplay command, which always logs to stderr.")
	if err = viper.BindPFlag("logging.file-path", flagSet.Lookup("log-file")); err != nil {
		return err
	}

	flagSet.StringP("log-severity", "", "INFO", "Minimum diagnostic log severity (TRACE, DEBUG, INFO, WARNING, ERROR, OFF).")
	if err = viper.BindPFlag("logging.severity", flagSet.Lookup("log-severity")); err != nil {
		return err
	}

	flagSet.StringP("log-format", "", "json", "Diagnostic log format: json or text.")
	if err = viper.BindPFlag("logging.format", flagSet.Lookup("log-format")); err != nil {
		return err
	}

	return nil
}
