package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Voice.Language != "en-US" {
		t.Errorf("language = %q", cfg.Voice.Language)
	}
	if cfg.Voice.CooldownMs != 2000 || cfg.Voice.MaxRetries != 5 {
		t.Errorf("voice = %+v", cfg.Voice)
	}
	if cfg.Voice.ConfidenceFloor != 0.3 || cfg.Voice.MatchAvatarPhrases {
		t.Errorf("guard settings = %+v", cfg.Voice)
	}
	if cfg.Vendor.ProvisionAttempts != 3 || cfg.Vendor.Version != "v2" {
		t.Errorf("vendor = %+v", cfg.Vendor)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("log = %+v", cfg.Log)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("VOICECORE_VOICE_COOLDOWN_MS", "1500")
	t.Setenv("VOICECORE_VOICE_MATCH_AVATAR_PHRASES", "true")
	t.Setenv("VOICECORE_VENDOR_API_KEY", "key-from-env")
	t.Setenv("VOICECORE_DOCSTORE_DEVICE_ID", "tv-42")
	t.Setenv("VOICECORE_LOG_FORMAT", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Voice.CooldownMs != 1500 {
		t.Errorf("cooldown = %d, want 1500", cfg.Voice.CooldownMs)
	}
	if !cfg.Voice.MatchAvatarPhrases {
		t.Error("match_avatar_phrases should be on")
	}
	if cfg.Vendor.APIKey != "key-from-env" {
		t.Errorf("api key = %q", cfg.Vendor.APIKey)
	}
	if cfg.Docstore.DeviceID != "tv-42" {
		t.Errorf("device id = %q", cfg.Docstore.DeviceID)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("log format = %q", cfg.Log.Format)
	}
}

func TestVoiceOptionsConversion(t *testing.T) {
	v := Voice{
		Language:               "de-DE",
		AlwaysOnSettleMs:       150,
		ContinuousStartDelayMs: 400,
		CooldownMs:             1200,
		MaxSpeakingTimeoutMs:   30000,
		RestartDelayMs:         500,
		NoSpeechRestartDelayMs: 50,
		MaxRetries:             3,
		RetryBackoffBaseMs:     100,
		RetryBackoffMaxMs:      2000,
		HealthCheckIntervalMs:  10000,
		WatchdogTickMs:         500,
		ConfidenceFloor:        0.5,
		MinTranscriptChars:     3,
	}
	opts := v.Options()
	if opts.Cooldown != 1200*time.Millisecond {
		t.Errorf("cooldown = %v", opts.Cooldown)
	}
	if opts.Capture.Language != "de-DE" {
		t.Errorf("language = %q", opts.Capture.Language)
	}
	if opts.Guard.ConfidenceFloor != 0.5 || opts.Guard.MinTranscriptChars != 3 {
		t.Errorf("guard = %+v", opts.Guard)
	}

	mc := v.ModeConfig()
	if mc.AlwaysOnSettle != 150*time.Millisecond || mc.ContinuousStartDelay != 400*time.Millisecond {
		t.Errorf("mode config = %+v", mc)
	}
}
