package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "RASPI_EXPORTER"

// LogFormat selects the slog handler
type LogFormat string

const (
	LogPlain LogFormat = "plain"
	LogJSON  LogFormat = "json"
)

// Metric names a collector that can be enabled
type Metric string

const (
	MetricThrottled Metric = "throttled"
)

var knownMetrics = []Metric{MetricThrottled}

// Metrics is the set of enabled collectors
type Metrics []Metric

// String renders the enabled collectors comma-separated
func (m Metrics) String() string {
	names := make([]string, len(m))
	for i, metric := range m {
		names[i] = string(metric)
	}
	return strings.Join(names, ",")
}

// Config is the exporter configuration
type Config struct {
	Port            int
	Log             LogFormat
	LogLevel        slog.Level
	EnableMetrics   Metrics
	Vcgencmd        string
	CommandTimeout  time.Duration
	RateLimit       float64
	RateLimitBurst  int
	ShutdownTimeout time.Duration
}

// HasThrottled reports whether the throttled collector is enabled
func (c *Config) HasThrottled() bool {
	return slices.Contains(c.EnableMetrics, MetricThrottled)
}

// ErrHelp is returned when -h/--help was requested
var ErrHelp = pflag.ErrHelp

// Load parses args (without the program name). Values come from, in increasing
// precedence: defaults, the optional --config file, RASPI_EXPORTER_* environment
// variables, then flags.
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("raspi_exporter", pflag.ContinueOnError)
	fs.IntP("port", "p", 8021, "Port to listen on for metrics")
	fs.String("log", string(LogPlain), "Log format (plain, json)")
	fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	fs.StringSlice("enable-metrics", []string{string(MetricThrottled)}, "Comma-separated collectors to enable (throttled)")
	fs.String("vcgencmd", "vcgencmd", "Path to the vcgencmd executable")
	fs.Duration("command-timeout", 0, "Timeout for one vcgencmd invocation (0 = none)")
	fs.Float64("rate-limit", 0, "Maximum scrapes per second (0 = unlimited)")
	fs.Int("rate-limit-burst", 1, "Scrape burst allowed above --rate-limit")
	fs.Duration("shutdown-timeout", 30*time.Second, "Time to wait for in-flight scrapes on shutdown")
	fs.String("config", "", "Optional config file (toml, yaml or json)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Port:            v.GetInt("port"),
		Log:             LogFormat(strings.ToLower(v.GetString("log"))),
		Vcgencmd:        v.GetString("vcgencmd"),
		CommandTimeout:  v.GetDuration("command-timeout"),
		RateLimit:       v.GetFloat64("rate-limit"),
		RateLimitBurst:  v.GetInt("rate-limit-burst"),
		ShutdownTimeout: v.GetDuration("shutdown-timeout"),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("log-level"))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", v.GetString("log-level"))
	}

	metrics, err := parseMetrics(v.GetStringSlice("enable-metrics"))
	if err != nil {
		return nil, err
	}
	cfg.EnableMetrics = metrics

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseMetrics(raw []string) (Metrics, error) {
	var out Metrics
	for _, entry := range raw {
		// env values arrive as one comma-separated string
		for _, name := range strings.Split(entry, ",") {
			name = strings.TrimSpace(strings.ToLower(name))
			if name == "" {
				continue
			}
			m := Metric(name)
			if !slices.Contains(knownMetrics, m) {
				return nil, fmt.Errorf("unknown metric %q", name)
			}
			if !slices.Contains(out, m) {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Log != LogPlain && c.Log != LogJSON {
		errs = append(errs, fmt.Errorf("invalid log format %q", c.Log))
	}
	if c.HasThrottled() && c.Vcgencmd == "" {
		errs = append(errs, errors.New("vcgencmd path must not be empty"))
	}
	if c.CommandTimeout < 0 {
		errs = append(errs, errors.New("command timeout must not be negative"))
	}
	if c.RateLimit < 0 {
		errs = append(errs, errors.New("rate limit must not be negative"))
	}
	return errors.Join(errs...)
}
