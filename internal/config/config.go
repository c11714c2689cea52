// Package config merges command-line flags, REMAPID_* environment variables
// and an optional YAML file into one Config and checks it per mode before
// any work starts.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/michaelscutari/remapid/internal/ident"
	"github.com/michaelscutari/remapid/internal/scan"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. REMAPID_SCAN_FILE.
const EnvPrefix = "REMAPID"

var (
	ErrMissingRange = errors.New("missing ID range")
	ErrMissingPath  = errors.New("missing path")
	ErrMissingFile  = errors.New("missing file")
	ErrInvalidRange = errors.New("invalid ID range")
	ErrInvalid      = errors.New("invalid configuration")
)

// Mode names the phase a command runs.
type Mode string

const (
	ModeScan    Mode = "scan"
	ModeMap     Mode = "map"
	ModeFile    Mode = "file"
	ModeAfter   Mode = "after"
	ModeCensus  Mode = "census"
	ModeJournal Mode = "journal"
)

// Config is the merged configuration of one invocation. Keys match the
// long flag names.
type Config struct {
	LogLevel         string        `mapstructure:"log-level" yaml:"log-level"`
	LogFormat        string        `mapstructure:"log-format" yaml:"log-format"`
	Verbose          bool          `mapstructure:"verbose" yaml:"verbose"`
	ProgressInterval time.Duration `mapstructure:"progress-interval" yaml:"progress-interval"`

	// PasswdFile and GroupFile replace the host identity database.
	PasswdFile string `mapstructure:"passwd-file" yaml:"passwd-file,omitempty"`
	GroupFile  string `mapstructure:"group-file" yaml:"group-file,omitempty"`

	MetricsFile string `mapstructure:"metrics-file" yaml:"metrics-file,omitempty"`

	// Range applies to both kinds; UIDRange and GIDRange override it.
	Range    string `mapstructure:"range" yaml:"range,omitempty"`
	UIDRange string `mapstructure:"uid-range" yaml:"uid-range,omitempty"`
	GIDRange string `mapstructure:"gid-range" yaml:"gid-range,omitempty"`

	ScanFile string `mapstructure:"scan-file" yaml:"scan-file"`
	MapFile  string `mapstructure:"map-file" yaml:"map-file"`
	Path     string `mapstructure:"path" yaml:"path,omitempty"`

	Reverse bool `mapstructure:"reverse" yaml:"reverse"`
	DryRun  bool `mapstructure:"dry-run" yaml:"dry-run"`

	Exclude []string `mapstructure:"exclude" yaml:"exclude,omitempty"`
	Xdev    bool     `mapstructure:"xdev" yaml:"xdev"`

	JournalDir       string `mapstructure:"journal-dir" yaml:"journal-dir,omitempty"`
	JournalRetention int    `mapstructure:"journal-retention" yaml:"journal-retention"`

	Journal string `mapstructure:"journal" yaml:"journal,omitempty"`
	Top     int    `mapstructure:"top" yaml:"top"`
}

// Load builds a Config from flags, then environment, then configPath.
// Explicitly set flags win over the environment, which wins over the file;
// flag defaults apply last. An empty configPath skips the file.
func Load(flags *pflag.FlagSet, configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("configuration file not found: %w", err)
		}
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate reports configuration errors for mode.
func (c *Config) Validate(mode Mode) error {
	if (c.PasswdFile == "") != (c.GroupFile == "") {
		return fmt.Errorf("%w: passwd-file and group-file must be given together", ErrInvalid)
	}
	if c.JournalRetention < 0 {
		return fmt.Errorf("%w: journal-retention must not be negative", ErrInvalid)
	}
	if c.ProgressInterval < 0 {
		return fmt.Errorf("%w: progress-interval must not be negative", ErrInvalid)
	}

	switch mode {
	case ModeScan:
		if _, err := c.ScanOptions(); err != nil {
			return err
		}
		return requireFile("scan-file", c.ScanFile)
	case ModeMap:
		if err := requireFile("scan-file", c.ScanFile); err != nil {
			return err
		}
		if c.DryRun {
			return nil
		}
		return requireFile("map-file", c.MapFile)
	case ModeFile:
		if err := requireFile("map-file", c.MapFile); err != nil {
			return err
		}
		return requirePath(c.Path)
	case ModeAfter:
		if err := requireFile("scan-file", c.ScanFile); err != nil {
			return err
		}
		return requirePath(c.Path)
	case ModeCensus:
		if c.Top < 0 {
			return fmt.Errorf("%w: top must not be negative", ErrInvalid)
		}
		return requirePath(c.Path)
	case ModeJournal:
		return requireFile("journal", c.Journal)
	}
	return fmt.Errorf("%w: unknown mode %q", ErrInvalid, mode)
}

// requirePath checks the tree to operate on.
func requirePath(value string) error {
	return required(ErrMissingPath, "path", value)
}

// requireFile checks an artifact or journal location.
func requireFile(name, value string) error {
	return required(ErrMissingFile, name, value)
}

func required(kind error, name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: --%s is required", kind, name)
	}
	return nil
}

// ScanOptions turns the range settings into scanner options.
func (c *Config) ScanOptions() (*scan.Options, error) {
	opts := scan.DefaultOptions()
	set := func(name, value string, with func(ident.Range) *scan.Options) error {
		if value == "" {
			return nil
		}
		r, err := ident.ParseRange(value)
		if err != nil {
			return fmt.Errorf("%w: --%s: %v", ErrInvalidRange, name, err)
		}
		with(r)
		return nil
	}
	if err := set("range", c.Range, opts.WithRange); err != nil {
		return nil, err
	}
	if err := set("uid-range", c.UIDRange, opts.WithUserRange); err != nil {
		return nil, err
	}
	if err := set("gid-range", c.GIDRange, opts.WithGroupRange); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: give --range, --uid-range or --gid-range", ErrMissingRange)
	}
	return opts, nil
}

// Resolver returns the identity source: the passwd/group files when set,
// the host database otherwise.
func (c *Config) Resolver() ident.Resolver {
	if c.PasswdFile != "" {
		return ident.FileResolver{PasswdPath: c.PasswdFile, GroupPath: c.GroupFile}
	}
	return ident.OSResolver{}
}
