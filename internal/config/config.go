// Package config decodes the host's settings file (TOML/YAML/JSON) into
// Settings, covering both the spec's configuration table and the ambient
// additions SPEC_FULL.md introduces for the logging, metrics, and
// scheduler stack.
//
// Grounded on the teacher's config.go: same viper+mapstructure loading
// shape (parseConfigFile), narrowed from a multi-process/group/cron
// config tree down to the single-service settings this host needs.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Settings is the full configuration surface (spec §6 fields plus the
// ambient additions SPEC_FULL.md §6 lists).
type Settings struct {
	ServiceName string `mapstructure:"service_name"`
	DisplayName string `mapstructure:"display_name"`
	Description string `mapstructure:"description"`

	WaitForExit time.Duration `mapstructure:"wait_for_exit"`
	MaxActive   time.Duration `mapstructure:"max_active"`
	MaxMemory   uint64        `mapstructure:"max_memory"`
	MaxThread   int32         `mapstructure:"max_thread"`
	AutoRestart time.Duration `mapstructure:"auto_restart"`
	WatchDog    string        `mapstructure:"watch_dog"`

	LogFile               string        `mapstructure:"log_file"`
	MetricsNamespace      string        `mapstructure:"metrics_namespace"`
	TimeCacheInterval     time.Duration `mapstructure:"time_cache_interval"`
	SchedulerAsyncWorkers int           `mapstructure:"scheduler_async_workers"`

	ThreadCount int             `mapstructure:"thread_count"`
	Intervals   []time.Duration `mapstructure:"intervals"`
	ThreadNames []string        `mapstructure:"thread_names"`
}

// Defaults fills unset fields with the ambient-stack defaults
// SPEC_FULL.md §6 and §3 name.
func (s *Settings) Defaults() {
	if s.MetricsNamespace == "" {
		s.MetricsNamespace = "svcguard"
	}
	if s.TimeCacheInterval <= 0 {
		s.TimeCacheInterval = 500 * time.Millisecond
	}
	if s.SchedulerAsyncWorkers <= 0 {
		s.SchedulerAsyncWorkers = 4
	}
	if s.DisplayName == "" {
		s.DisplayName = s.ServiceName
	}
}

// Load reads and decodes the settings file at path. Format (toml/yaml/
// json) is inferred from the extension, matching the teacher's
// parseConfigFile convention.
func Load(path string) (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}
	s.Defaults()

	if s.ServiceName == "" {
		return nil, fmt.Errorf("%s: service_name is required", path)
	}
	if s.ThreadCount <= 0 {
		return nil, fmt.Errorf("%s: thread_count must be positive", path)
	}
	if len(s.Intervals) != s.ThreadCount {
		return nil, fmt.Errorf("%s: intervals must have thread_count (%d) entries, got %d", path, s.ThreadCount, len(s.Intervals))
	}
	return &s, nil
}
