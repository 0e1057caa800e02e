package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/untoldecay/devlog/internal/debug"
	"github.com/untoldecay/devlog/internal/paths"
)

var v *viper.Viper

// Contract constants. These are part of the daemon's behavior contract and
// double as viper defaults so operators can tune them.
const (
	DefaultPollInterval        = 5 * time.Second
	DefaultSessionTimeout      = 5 * time.Minute
	DefaultCatchUpDebounce     = 30 * time.Second
	DefaultCatchUpMaxStale     = 5 * time.Minute
	DefaultStalenessInterval   = time.Hour
	DefaultDecayThresholdDays  = 30
	DefaultReviewThresholdDays = 90
	DefaultConsolidateTimeout  = 60 * time.Second
	DefaultSummarizeTimeout    = 30 * time.Second
	DefaultRecentLimit         = 10
)

// Initialize sets up the viper configuration singleton.
// Should be called once at application startup.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("json")

	// Global config lives at <global>/config.json. Per-project configuration
	// is intentionally absent: knowledge and session state are per-project,
	// the daemon and LLM endpoint are per-user.
	configPath := paths.GlobalConfigFile()
	configFileSet := false
	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		configFileSet = true
	}

	// Environment variables take precedence over config file.
	// E.g. DEVLOG_OLLAMA_MODEL, DEVLOG_POLL_INTERVAL, DEVLOG_LLM_PROVIDER.
	v.SetEnvPrefix("DEVLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// LLM collaborator defaults
	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("ollama_base_url", "http://localhost:11434")
	v.SetDefault("ollama_model", "qwen2.5:7b")
	v.SetDefault("anthropic.model", "claude-3-5-haiku-20241022")

	// Daemon loop defaults
	v.SetDefault("poll-interval", DefaultPollInterval)
	v.SetDefault("session.timeout", DefaultSessionTimeout)
	v.SetDefault("staleness-check-interval", DefaultStalenessInterval)

	// Knowledge decay thresholds (days)
	v.SetDefault("decay-threshold-days", DefaultDecayThresholdDays)
	v.SetDefault("review-threshold-days", DefaultReviewThresholdDays)

	// Catch-up recomputation state machine
	v.SetDefault("catchup.debounce", DefaultCatchUpDebounce)
	v.SetDefault("catchup.max-stale", DefaultCatchUpMaxStale)
	v.SetDefault("catchup.recent-limit", DefaultRecentLimit)

	// LLM call budgets
	v.SetDefault("consolidation.timeout", DefaultConsolidateTimeout)
	v.SetDefault("summarize.timeout", DefaultSummarizeTimeout)

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
		debug.Logf("Debug: loaded config from %s\n", v.ConfigFileUsed())
	} else {
		debug.Logf("Debug: no config.json found; using defaults and environment variables\n")
	}

	return nil
}

// GetString retrieves a string configuration value.
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool retrieves a boolean configuration value.
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetInt retrieves an integer configuration value.
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetDuration retrieves a duration configuration value.
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// Set sets a configuration value (tests and flag overrides).
func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}

// SessionTimeout returns the inactivity window after which an active session
// is finalized for consolidation.
func SessionTimeout() time.Duration {
	if d := GetDuration("session.timeout"); d > 0 {
		return d
	}
	return DefaultSessionTimeout
}

// PollInterval returns the daemon loop interval, floored at one second to
// prevent a misconfigured tight loop.
func PollInterval() time.Duration {
	d := GetDuration("poll-interval")
	if d <= 0 {
		return DefaultPollInterval
	}
	if d < time.Second {
		return time.Second
	}
	return d
}
