// Package config layers built in defaults, an optional TOML file and flags
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"extract-gateway/internal/shared"

	"github.com/BurntSushi/toml"
	"github.com/labstack/gommon/bytes"
)

type Config struct {
	Debug          bool   `toml:"debug"`
	Host           string `toml:"host"`
	PortRangeStart int    `toml:"port_range_start"`
	PortRangeEnd   int    `toml:"port_range_end"`
	// RedisAddr enables the cross-instance provisioning lock when set.
	RedisAddr string `toml:"redis_addr"`
	// BodyLimit is the largest accepted extraction body, e.g. "8M"
	BodyLimit string `toml:"body_limit"`

	Runtime   RuntimeConfig   `toml:"runtime"`
	Provision ProvisionConfig `toml:"provision"`
	Extract   ExtractConfig   `toml:"extract"`
}

type RuntimeConfig struct {
	Binary            string        `toml:"binary"`
	DefaultModel      string        `toml:"default_model"`
	ListTimeout       time.Duration `toml:"list_timeout"`
	PullTimeout       time.Duration `toml:"pull_timeout"`
	RunTimeout        time.Duration `toml:"run_timeout"`
	MaxConcurrentRuns int           `toml:"max_concurrent_runs"`
}

type ProvisionConfig struct {
	SettleMode         string        `toml:"settle_mode"`
	SettleDelay        time.Duration `toml:"settle_delay"`
	SettleInitialDelay time.Duration `toml:"settle_initial_delay"`
	SettleMaxDelay     time.Duration `toml:"settle_max_delay"`
	SettleDeadline     time.Duration `toml:"settle_deadline"`
	LockTTL            time.Duration `toml:"lock_ttl"`
	LockWait           time.Duration `toml:"lock_wait"`
}

type ExtractConfig struct {
	CleanHTML    bool `toml:"clean_html"`
	MaxHTMLChars int  `toml:"max_html_chars"`
}

func Default() *Config {
	return &Config{
		Host:           "0.0.0.0",
		PortRangeStart: shared.DefaultPortRangeStart,
		PortRangeEnd:   shared.DefaultPortRangeEnd,
		BodyLimit:      shared.DefaultBodyLimit,
		Runtime: RuntimeConfig{
			Binary:            shared.DefaultRuntimeBinary,
			DefaultModel:      shared.DefaultModel,
			ListTimeout:       shared.DefaultListTimeout,
			PullTimeout:       shared.DefaultPullTimeout,
			RunTimeout:        shared.DefaultRunTimeout,
			MaxConcurrentRuns: shared.DefaultMaxConcurrentRuns,
		},
		Provision: ProvisionConfig{
			SettleMode:         shared.SettleModePoll,
			SettleDelay:        shared.DefaultSettleDelay,
			SettleInitialDelay: shared.DefaultSettleInitialDelay,
			SettleMaxDelay:     shared.DefaultSettleMaxDelay,
			SettleDeadline:     shared.DefaultSettleDeadline,
			LockTTL:            shared.ProvisionLockTTL,
			LockWait:           shared.ProvisionLockWait,
		},
	}
}

// Load reads a TOML file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed decoding config %s: %w", path, err)
	}
	return cfg, nil
}

// BindFlags registers one flag per setting, using the current values as
// defaults.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.Debug, "debug", c.Debug, "Debug enabled")
	fs.StringVar(&c.Host, "host", c.Host, "Address to bind the listener on")
	fs.IntVar(&c.PortRangeStart, "port-range-start", c.PortRangeStart, "First port to probe")
	fs.IntVar(&c.PortRangeEnd, "port-range-end", c.PortRangeEnd, "Last port to probe")
	fs.StringVar(&c.RedisAddr, "redis-addr", c.RedisAddr, "Redis host:port for the provisioning lock")
	fs.StringVar(&c.BodyLimit, "body-limit", c.BodyLimit, "Largest accepted extraction request body, e.g. 8M")

	fs.StringVar(&c.Runtime.Binary, "runtime-binary", c.Runtime.Binary, "Model runtime executable")
	fs.StringVar(&c.Runtime.DefaultModel, "default-model", c.Runtime.DefaultModel, "Model used when a request names none")
	fs.DurationVar(&c.Runtime.ListTimeout, "list-timeout", c.Runtime.ListTimeout, "Timeout for listing models")
	fs.DurationVar(&c.Runtime.PullTimeout, "pull-timeout", c.Runtime.PullTimeout, "Timeout for pulling a model")
	fs.DurationVar(&c.Runtime.RunTimeout, "run-timeout", c.Runtime.RunTimeout, "Timeout for a model run")
	fs.IntVar(&c.Runtime.MaxConcurrentRuns, "max-concurrent-runs", c.Runtime.MaxConcurrentRuns, "Model runs allowed at once")

	fs.StringVar(&c.Provision.SettleMode, "settle-mode", c.Provision.SettleMode, "poll or delay after a pull")
	fs.DurationVar(&c.Provision.SettleDelay, "settle-delay", c.Provision.SettleDelay, "Fixed wait after a pull in delay mode")
	fs.DurationVar(&c.Provision.SettleInitialDelay, "settle-initial-delay", c.Provision.SettleInitialDelay, "First readiness poll interval")
	fs.DurationVar(&c.Provision.SettleMaxDelay, "settle-max-delay", c.Provision.SettleMaxDelay, "Largest readiness poll interval")
	fs.DurationVar(&c.Provision.SettleDeadline, "settle-deadline", c.Provision.SettleDeadline, "Total readiness wait before failing")
	fs.DurationVar(&c.Provision.LockTTL, "lock-ttl", c.Provision.LockTTL, "Expiry of the provisioning lock")
	fs.DurationVar(&c.Provision.LockWait, "lock-wait", c.Provision.LockWait, "How long to wait for another pull of the same model")

	fs.BoolVar(&c.Extract.CleanHTML, "clean-html", c.Extract.CleanHTML, "Strip scripts, styles and comments before prompting")
	fs.IntVar(&c.Extract.MaxHTMLChars, "max-html-chars", c.Extract.MaxHTMLChars, "Truncate cleaned html to this many characters, 0 disables")
}

// Overlay applies every flag that was explicitly set on fs to c. It lets a
// config file loaded after parsing keep flags and env as the higher layer.
func (c *Config) Overlay(fs *flag.FlagSet) error {
	target := flag.NewFlagSet("overlay", flag.ContinueOnError)
	c.BindFlags(target)

	var errs []error
	fs.Visit(func(f *flag.Flag) {
		if target.Lookup(f.Name) == nil {
			return
		}
		if err := target.Set(f.Name, f.Value.String()); err != nil {
			errs = append(errs, fmt.Errorf("flag %s: %w", f.Name, err))
		}
	})
	return errors.Join(errs...)
}

func (c *Config) Validate() error {
	var errs []error
	if c.PortRangeStart < 1 || c.PortRangeEnd > 65535 || c.PortRangeStart > c.PortRangeEnd {
		errs = append(errs, fmt.Errorf("invalid port range %d-%d", c.PortRangeStart, c.PortRangeEnd))
	}
	if n, err := bytes.Parse(c.BodyLimit); err != nil || n <= 0 {
		errs = append(errs, fmt.Errorf("invalid body limit %q", c.BodyLimit))
	}
	if c.Runtime.Binary == "" {
		errs = append(errs, errors.New("runtime binary is required"))
	}
	if c.Runtime.MaxConcurrentRuns < 1 {
		errs = append(errs, errors.New("max concurrent runs must be at least 1"))
	}
	switch c.Provision.SettleMode {
	case shared.SettleModePoll, shared.SettleModeDelay:
	default:
		errs = append(errs, fmt.Errorf("unknown settle mode %q", c.Provision.SettleMode))
	}
	return errors.Join(errs...)
}
