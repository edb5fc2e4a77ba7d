package config

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/Faultbox/elastic-fit/internal/fit"
)

// Flags holds the command line overrides shared by the efit subcommands.
type Flags struct {
	config      *string
	debug       *bool
	logFile     *string
	set         multiFlag
	offsetGroup multiFlag
}

// multiFlag collects a repeatable string flag.
type multiFlag []string

func (m *multiFlag) String() string     { return strings.Join(*m, ",") }
func (m *multiFlag) Set(v string) error { *m = append(*m, v); return nil }

// RegisterFlags adds the config flags to fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{
		config:  fs.String("config", "", "Path to config file"),
		debug:   fs.Bool("debug", false, "Enable debug logging"),
		logFile: fs.String("log-file", "", "Write logs to this file"),
	}
	fs.Var(&f.set, "set", "Override a fit parameter, name=value (repeatable)")
	fs.Var(&f.offsetGroup, "offset-group", "Add an offset fine tuning entry, group=influence (repeatable)")
	return f
}

// ConfigPath returns the explicit config path if provided via -config.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return *f.config
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) error {
	if f == nil {
		return nil
	}
	if *f.debug {
		cfg.Logging.Level = "debug"
	}
	if *f.logFile != "" {
		cfg.Logging.LogFile = *f.logFile
	}
	for _, kv := range f.set {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("-set %q: want name=value", kv)
		}
		if err := cfg.Fit.Set(strings.TrimSpace(name), value); err != nil {
			return fmt.Errorf("-set %q: %w", kv, err)
		}
	}
	for _, kv := range f.offsetGroup {
		group, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("-offset-group %q: want group=influence", kv)
		}
		influence, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("-offset-group %q: %w", kv, err)
		}
		cfg.Fit.OffsetGroups = append(cfg.Fit.OffsetGroups, fit.OffsetEntry{Group: group, Influence: influence})
	}
	return nil
}
