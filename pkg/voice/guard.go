package voice

import (
	"strings"
	"unicode"
)

// SuppressReason explains why the echo guard rejected a recognition result.
type SuppressReason int

const (
	// SuppressNone means the result is accepted.
	SuppressNone SuppressReason = iota
	// SuppressCooldown: the post-avatar-speech window is still open.
	SuppressCooldown
	// SuppressAvatarSpeaking: the avatar is talking right now.
	SuppressAvatarSpeaking
	// SuppressLowConfidence: weak signal while the avatar is playing back.
	SuppressLowConfidence
	// SuppressTooShort: transcript below the noise threshold.
	SuppressTooShort
	// SuppressEchoPhrase: transcript matches something the avatar just said.
	SuppressEchoPhrase
)

func (r SuppressReason) String() string {
	switch r {
	case SuppressNone:
		return "none"
	case SuppressCooldown:
		return "cooldown"
	case SuppressAvatarSpeaking:
		return "avatar-speaking"
	case SuppressLowConfidence:
		return "low-confidence"
	case SuppressTooShort:
		return "too-short"
	case SuppressEchoPhrase:
		return "echo-phrase"
	default:
		return "unknown"
	}
}

// GuardConfig tunes the echo guard.
type GuardConfig struct {
	// ConfidenceFloor rejects results scored below it while the avatar is
	// speaking. A nil confidence is never treated as low.
	ConfidenceFloor float64

	// MinTranscriptChars rejects transcripts shorter than this after
	// trimming; such fragments are capture noise.
	MinTranscriptChars int

	// MatchAvatarPhrases enables the secondary content heuristic: suppress
	// transcripts that closely match text the avatar was recently asked to
	// speak. Off by default; the timing rules above are the primary defense.
	MatchAvatarPhrases bool

	// PhraseOverlap is the word-overlap ratio at or above which a transcript
	// counts as an echo of a recent avatar phrase.
	PhraseOverlap float64
}

// DefaultGuardConfig returns the production thresholds.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		ConfidenceFloor:    0.3,
		MinTranscriptChars: 2,
		PhraseOverlap:      0.8,
	}
}

// Guard decides whether a recognition result must be suppressed as echo or
// noise. It holds no mutable state and has no side effects; every decision is
// a pure function of its inputs.
type Guard struct {
	cfg GuardConfig
}

// NewGuard creates a guard. Zero thresholds fall back to defaults.
func NewGuard(cfg GuardConfig) *Guard {
	def := DefaultGuardConfig()
	if cfg.ConfidenceFloor <= 0 {
		cfg.ConfidenceFloor = def.ConfidenceFloor
	}
	if cfg.MinTranscriptChars <= 0 {
		cfg.MinTranscriptChars = def.MinTranscriptChars
	}
	if cfg.PhraseOverlap <= 0 {
		cfg.PhraseOverlap = def.PhraseOverlap
	}
	return &Guard{cfg: cfg}
}

// Verdict evaluates a result against the current avatar speech window,
// cooldown window, and conversation mode. recentAvatarPhrases is the text of
// the avatar's latest utterances, newest last; it is consulted only when the
// content heuristic is enabled.
//
// The cooldown rule is skipped in push-to-talk: holding the talk control is an
// explicit user action and outranks the residual-audio delay. The
// avatar-speaking rule applies in every mode.
func (g *Guard) Verdict(res RecognitionResult, win AvatarSpeechWindow, cd CooldownWindow, mode ConversationMode, recentAvatarPhrases []string) SuppressReason {
	if cd.Active && mode != ModePushToTalk {
		return SuppressCooldown
	}
	if win.IsSpeaking {
		if res.Confidence != nil && *res.Confidence < g.cfg.ConfidenceFloor {
			return SuppressLowConfidence
		}
		return SuppressAvatarSpeaking
	}
	if len(strings.TrimSpace(res.Text)) < g.cfg.MinTranscriptChars {
		return SuppressTooShort
	}
	if g.cfg.MatchAvatarPhrases && matchesRecentPhrase(res.Text, recentAvatarPhrases, g.cfg.PhraseOverlap) {
		return SuppressEchoPhrase
	}
	return SuppressNone
}

// ShouldSuppress is the boolean form of Verdict.
func (g *Guard) ShouldSuppress(res RecognitionResult, win AvatarSpeechWindow, cd CooldownWindow, mode ConversationMode, recentAvatarPhrases []string) bool {
	return g.Verdict(res, win, cd, mode, recentAvatarPhrases) != SuppressNone
}

// matchesRecentPhrase reports whether transcript is likely an echo of one of
// the given phrases: either a contiguous fragment of a phrase, or sharing at
// least minOverlap of its words with one.
func matchesRecentPhrase(transcript string, phrases []string, minOverlap float64) bool {
	words := normalizeWords(transcript)
	if len(words) == 0 {
		return false
	}
	flat := strings.Join(words, " ")

	for _, phrase := range phrases {
		pw := normalizeWords(phrase)
		if len(pw) == 0 {
			continue
		}
		if strings.Contains(strings.Join(pw, " "), flat) {
			return true
		}
		if wordOverlap(words, pw) >= minOverlap {
			return true
		}
	}
	return false
}

// normalizeWords lowercases, strips punctuation, and splits into words.
func normalizeWords(s string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) || r == '\'' {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}

// wordOverlap returns the fraction of words in a that also occur in b.
func wordOverlap(a, b []string) float64 {
	if len(a) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(b))
	for _, w := range b {
		set[w] = struct{}{}
	}
	hits := 0
	for _, w := range a {
		if _, ok := set[w]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(a))
}
