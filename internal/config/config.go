// Package config loads voicecore configuration from the environment, with
// defaults matching production tuning.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/calmroom/voicecore/pkg/voice"
)

// Config is the full configuration tree. Every field binds to a
// VOICECORE_-prefixed environment variable, e.g. voice.cooldown_ms to
// VOICECORE_VOICE_COOLDOWN_MS.
type Config struct {
	Log         Log      `mapstructure:"log"`
	Voice       Voice    `mapstructure:"voice"`
	Vendor      Vendor   `mapstructure:"vendor"`
	Docstore    Docstore `mapstructure:"docstore"`
	MetricsAddr string   `mapstructure:"metrics_addr"`
}

// Log selects handler level and format.
type Log struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text or json
}

// Voice tunes the orchestrator and echo guard.
type Voice struct {
	Language        string `mapstructure:"language"`
	InterimResults  bool   `mapstructure:"interim_results"`
	MaxAlternatives int    `mapstructure:"max_alternatives"`

	CooldownMs             int `mapstructure:"cooldown_ms"`
	MaxSpeakingTimeoutMs   int `mapstructure:"max_speaking_timeout_ms"`
	RestartDelayMs         int `mapstructure:"restart_delay_ms"`
	NoSpeechRestartDelayMs int `mapstructure:"no_speech_restart_delay_ms"`
	MaxRetries             int `mapstructure:"max_retries"`
	RetryBackoffBaseMs     int `mapstructure:"retry_backoff_base_ms"`
	RetryBackoffMaxMs      int `mapstructure:"retry_backoff_max_ms"`
	AlwaysOnSettleMs       int `mapstructure:"always_on_settle_ms"`
	ContinuousStartDelayMs int `mapstructure:"continuous_start_delay_ms"`
	HealthCheckIntervalMs  int `mapstructure:"health_check_interval_ms"`
	WatchdogTickMs         int `mapstructure:"watchdog_tick_ms"`

	ConfidenceFloor    float64 `mapstructure:"confidence_floor"`
	MinTranscriptChars int     `mapstructure:"min_transcript_chars"`
	MatchAvatarPhrases bool    `mapstructure:"match_avatar_phrases"`
}

// Vendor holds avatar vendor access and session parameters.
type Vendor struct {
	APIKey                string `mapstructure:"api_key"`
	BaseURL               string `mapstructure:"base_url"`
	Quality               string `mapstructure:"quality"`
	AvatarID              string `mapstructure:"avatar_id"`
	Version               string `mapstructure:"version"`
	VideoEncoding         string `mapstructure:"video_encoding"`
	STTLanguage           string `mapstructure:"stt_language"`
	SilenceResponse       bool   `mapstructure:"silence_response"`
	ProvisionAttempts     int    `mapstructure:"provision_attempts"`
	ProvisionRetryDelayMs int    `mapstructure:"provision_retry_delay_ms"`
}

// Docstore locates the device-document change feed.
type Docstore struct {
	URL      string `mapstructure:"url"`
	DeviceID string `mapstructure:"device_id"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VOICECORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("voice.language", "en-US")
	v.SetDefault("voice.interim_results", true)
	v.SetDefault("voice.max_alternatives", 1)
	v.SetDefault("voice.cooldown_ms", 2000)
	v.SetDefault("voice.max_speaking_timeout_ms", 45000)
	v.SetDefault("voice.restart_delay_ms", 750)
	v.SetDefault("voice.no_speech_restart_delay_ms", 100)
	v.SetDefault("voice.max_retries", 5)
	v.SetDefault("voice.retry_backoff_base_ms", 250)
	v.SetDefault("voice.retry_backoff_max_ms", 5000)
	v.SetDefault("voice.always_on_settle_ms", 200)
	v.SetDefault("voice.continuous_start_delay_ms", 500)
	v.SetDefault("voice.health_check_interval_ms", 15000)
	v.SetDefault("voice.watchdog_tick_ms", 1000)
	v.SetDefault("voice.confidence_floor", 0.3)
	v.SetDefault("voice.min_transcript_chars", 2)
	v.SetDefault("voice.match_avatar_phrases", false)

	v.SetDefault("vendor.api_key", "")
	v.SetDefault("vendor.base_url", "https://api.heygen.com")
	v.SetDefault("vendor.quality", "high")
	v.SetDefault("vendor.avatar_id", "")
	v.SetDefault("vendor.version", "v2")
	v.SetDefault("vendor.video_encoding", "H264")
	v.SetDefault("vendor.stt_language", "en")
	v.SetDefault("vendor.silence_response", false)
	v.SetDefault("vendor.provision_attempts", 3)
	v.SetDefault("vendor.provision_retry_delay_ms", 1000)

	v.SetDefault("docstore.url", "")
	v.SetDefault("docstore.device_id", "")

	v.SetDefault("metrics_addr", "")
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// Options builds the orchestrator tuning from the voice section.
func (c Voice) Options() voice.Options {
	opts := voice.DefaultOptions()
	opts.Capture.Language = c.Language
	opts.Capture.InterimResults = c.InterimResults
	opts.Capture.MaxAlternatives = c.MaxAlternatives
	opts.Cooldown = ms(c.CooldownMs)
	opts.MaxSpeaking = ms(c.MaxSpeakingTimeoutMs)
	opts.RestartDelay = ms(c.RestartDelayMs)
	opts.NoSpeechRestartDelay = ms(c.NoSpeechRestartDelayMs)
	opts.MaxRetries = c.MaxRetries
	opts.RetryBackoffBase = ms(c.RetryBackoffBaseMs)
	opts.RetryBackoffMax = ms(c.RetryBackoffMaxMs)
	opts.HealthCheckInterval = ms(c.HealthCheckIntervalMs)
	opts.WatchdogTick = ms(c.WatchdogTickMs)
	opts.Guard = voice.GuardConfig{
		ConfidenceFloor:    c.ConfidenceFloor,
		MinTranscriptChars: c.MinTranscriptChars,
		MatchAvatarPhrases: c.MatchAvatarPhrases,
	}
	return opts
}

// ModeConfig builds the mode controller entry delays.
func (c Voice) ModeConfig() voice.ModeConfig {
	return voice.ModeConfig{
		AlwaysOnSettle:       ms(c.AlwaysOnSettleMs),
		ContinuousStartDelay: ms(c.ContinuousStartDelayMs),
	}
}

// ProvisionRetryDelay returns the fixed delay between provisioning attempts.
func (c Vendor) ProvisionRetryDelay() time.Duration {
	return ms(c.ProvisionRetryDelayMs)
}
