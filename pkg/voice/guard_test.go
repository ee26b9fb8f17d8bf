package voice

import (
	"testing"
	"time"
)

func conf(v float64) *float64 { return &v }

func TestGuardVerdict(t *testing.T) {
	g := NewGuard(DefaultGuardConfig())
	now := time.Now()

	speaking := AvatarSpeechWindow{IsSpeaking: true, StartedAt: now}
	quiet := AvatarSpeechWindow{LastEndedAt: now.Add(-10 * time.Second)}
	coolingDown := CooldownWindow{Active: true, ExpiresAt: now.Add(time.Second)}

	tests := []struct {
		name string
		res  RecognitionResult
		win  AvatarSpeechWindow
		cd   CooldownWindow
		mode ConversationMode
		want SuppressReason
	}{
		{
			name: "clean final result accepted",
			res:  RecognitionResult{Text: "hello there", IsFinal: true, Confidence: conf(0.9)},
			win:  quiet,
			mode: ModeAlwaysOn,
			want: SuppressNone,
		},
		{
			name: "cooldown active",
			res:  RecognitionResult{Text: "hello there", IsFinal: true, Confidence: conf(0.9)},
			win:  quiet,
			cd:   coolingDown,
			mode: ModeAlwaysOn,
			want: SuppressCooldown,
		},
		{
			name: "cooldown ignored in push-to-talk",
			res:  RecognitionResult{Text: "hello there", IsFinal: true, Confidence: conf(0.9)},
			win:  quiet,
			cd:   coolingDown,
			mode: ModePushToTalk,
			want: SuppressNone,
		},
		{
			name: "avatar speaking",
			res:  RecognitionResult{Text: "hello there", IsFinal: true, Confidence: conf(0.9)},
			win:  speaking,
			mode: ModeContinuous,
			want: SuppressAvatarSpeaking,
		},
		{
			name: "weak signal during playback",
			res:  RecognitionResult{Text: "hello there", IsFinal: true, Confidence: conf(0.1)},
			win:  speaking,
			mode: ModeAlwaysOn,
			want: SuppressLowConfidence,
		},
		{
			name: "low confidence alone is not suppressed",
			res:  RecognitionResult{Text: "hello there", IsFinal: true, Confidence: conf(0.1)},
			win:  quiet,
			mode: ModeAlwaysOn,
			want: SuppressNone,
		},
		{
			name: "nil confidence never counts as low",
			res:  RecognitionResult{Text: "hello there", IsFinal: true},
			win:  speaking,
			mode: ModeAlwaysOn,
			want: SuppressAvatarSpeaking,
		},
		{
			name: "nil confidence final accepted when quiet",
			res:  RecognitionResult{Text: "hello there", IsFinal: true},
			win:  quiet,
			mode: ModeAlwaysOn,
			want: SuppressNone,
		},
		{
			name: "single character is noise",
			res:  RecognitionResult{Text: "a", IsFinal: true, Confidence: conf(0.9)},
			win:  quiet,
			mode: ModeAlwaysOn,
			want: SuppressTooShort,
		},
		{
			name: "whitespace only is noise",
			res:  RecognitionResult{Text: "   ", IsFinal: true},
			win:  quiet,
			mode: ModeAlwaysOn,
			want: SuppressTooShort,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.Verdict(tt.res, tt.win, tt.cd, tt.mode, nil)
			if got != tt.want {
				t.Errorf("Verdict() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGuardPhraseHeuristic(t *testing.T) {
	cfg := DefaultGuardConfig()
	cfg.MatchAvatarPhrases = true
	g := NewGuard(cfg)

	quiet := AvatarSpeechWindow{LastEndedAt: time.Now().Add(-10 * time.Second)}
	phrases := []string{"Take a deep breath and let it go.", "How did that feel for you?"}

	tests := []struct {
		text string
		want SuppressReason
	}{
		// Verbatim fragment of a recent avatar line.
		{"take a deep breath", SuppressEchoPhrase},
		// Same words, different punctuation and case.
		{"How did that feel for you", SuppressEchoPhrase},
		// Genuine user speech shares too few words.
		{"I feel much better today", SuppressNone},
		{"can we talk about my week", SuppressNone},
	}

	for _, tt := range tests {
		res := RecognitionResult{Text: tt.text, IsFinal: true, Confidence: conf(0.9)}
		if got := g.Verdict(res, quiet, CooldownWindow{}, ModeAlwaysOn, phrases); got != tt.want {
			t.Errorf("Verdict(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestGuardPhraseHeuristicDisabledByDefault(t *testing.T) {
	g := NewGuard(DefaultGuardConfig())
	quiet := AvatarSpeechWindow{LastEndedAt: time.Now().Add(-10 * time.Second)}

	res := RecognitionResult{Text: "take a deep breath", IsFinal: true, Confidence: conf(0.9)}
	got := g.Verdict(res, quiet, CooldownWindow{}, ModeAlwaysOn, []string{"Take a deep breath and let it go."})
	if got != SuppressNone {
		t.Errorf("content heuristic should be off by default, got %v", got)
	}
}

func TestCooldownWindowDerivation(t *testing.T) {
	now := time.Now()

	w := AvatarSpeechWindow{LastEndedAt: now.Add(-500 * time.Millisecond)}
	cd := w.Cooldown(now, 2*time.Second)
	if !cd.Active {
		t.Error("cooldown should be active 500ms after avatar finished")
	}
	if want := w.LastEndedAt.Add(2 * time.Second); !cd.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", cd.ExpiresAt, want)
	}

	cd = w.Cooldown(now.Add(3*time.Second), 2*time.Second)
	if cd.Active {
		t.Error("cooldown should have expired")
	}

	if cd := (AvatarSpeechWindow{}).Cooldown(now, 2*time.Second); cd.Active {
		t.Error("no cooldown before the avatar ever spoke")
	}
}
