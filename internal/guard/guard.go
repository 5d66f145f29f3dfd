// Package guard applies cheap menu-likeness heuristics to user input before any
// provider call is made. It is a pre-filter, not a classifier: garbage that slips
// through is tolerable, the goal is blocking obvious keyboard-mash submissions.
package guard

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/apex/log"
)

// MaxTextChars is the clamp length for menu text, in characters.
const MaxTextChars = 12_000

var (
	tokenPattern = regexp.MustCompile(`[A-Za-z]{2,}`)
	pricePattern = regexp.MustCompile(`[$€£]\s?\d|\b\d{1,3}\.\d{2}\b`)
)

// menuKeywords are matched case-insensitively as substrings. Any hit counts as
// a positive menu signal.
var menuKeywords = []string{
	"menu", "burger", "pizza", "salad", "drink", "appetizer", "dessert",
	"chicken", "fries", "soup", "sandwich", "pasta", "rice", "combo",
	"add on", "addons",
}

// Thresholds are the tuning constants for the gibberish heuristic. They were
// calibrated empirically; tests pin the defaults rather than asserting behavior
// at the exact boundaries.
type Thresholds struct {
	MinChars           int     // Inputs shorter than this are always rejected
	ShortTextChars     int     // Inputs shorter than this must carry a menu signal
	MaxGibberishTokens int     // Gibberish rule only applies at or below this token count
	MinVowelRatio      float64 // Below this vowel ratio text reads as keyboard mash
	MaxLongTokenRatio  float64 // Above this long-token ratio text reads as keyboard mash
}

// DefaultThresholds returns the calibrated defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinChars:           20,
		ShortTextChars:     120,
		MaxGibberishTokens: 3,
		MinVowelRatio:      0.22,
		MaxLongTokenRatio:  0.6,
	}
}

// ClampText trims the input and truncates it to MaxTextChars characters.
// Truncation is silent but logged. Idempotent.
func ClampText(text string) string {
	return ClampTextTo(text, MaxTextChars)
}

// ClampTextTo trims the input and truncates it to max characters. A max of
// zero or less disables truncation.
func ClampTextTo(text string, max int) string {
	cleaned := strings.TrimSpace(text)
	runes := []rune(cleaned)
	if max > 0 && len(runes) > max {
		log.WithFields(log.Fields{
			"from": len(runes),
			"to":   max,
		}).Info("clamping menu text input")
		cleaned = string(runes[:max])
	}
	return cleaned
}

// ValidateMenuLikeText applies the default thresholds. The source label
// ("text" or "image") only affects error messages.
func ValidateMenuLikeText(text, source string) error {
	return DefaultThresholds().Validate(text, source)
}

// Validate rejects input that does not look like menu content. Rules run in
// order: hard length floor, readable-token floor, then the gibberish and
// missing-signal heuristics. Any one positive signal (price pattern, two or
// more line breaks, or a menu keyword) bypasses the heuristic rejections.
func (t Thresholds) Validate(text, source string) error {
	candidate := strings.TrimSpace(text)
	lowered := strings.ToLower(candidate)

	if len([]rune(candidate)) < t.MinChars {
		return &SuspiciousInputError{
			Source:  source,
			Message: "input is too short to look like a real menu. Nice try though",
		}
	}

	tokens := tokenPattern.FindAllString(candidate, -1)
	if len(tokens) == 0 {
		return &SuspiciousInputError{
			Source:  source,
			Message: "input does not contain readable menu text",
		}
	}

	vowelRatio := vowelRatio(candidate)
	longTokens := 0
	for _, tok := range tokens {
		if len(tok) >= 9 {
			longTokens++
		}
	}
	longTokenRatio := float64(longTokens) / float64(len(tokens))

	hasPrice := pricePattern.MatchString(candidate)
	hasLineBreaks := strings.Count(candidate, "\n") >= 2
	hasMenuWords := false
	for _, word := range menuKeywords {
		if strings.Contains(lowered, word) {
			hasMenuWords = true
			break
		}
	}
	hasSignal := hasPrice || hasLineBreaks || hasMenuWords

	// Catch obvious keyboard-smash inputs like "dfdsfsdg".
	if !hasSignal && len(tokens) <= t.MaxGibberishTokens &&
		(vowelRatio < t.MinVowelRatio || longTokenRatio > t.MaxLongTokenRatio) {
		log.WithFields(log.Fields{
			"source":      source,
			"chars":       len(candidate),
			"tokens":      len(tokens),
			"vowel_ratio": vowelRatio,
		}).Info("rejected suspicious input as non-menu text")
		return &SuspiciousInputError{
			Source:  source,
			Message: "input does not look like a menu. It looks more like a keyboard warm-up",
		}
	}

	// Short text must carry at least one menu-ish signal.
	if len([]rune(candidate)) < t.ShortTextChars && !hasSignal {
		log.WithFields(log.Fields{
			"source": source,
			"chars":  len(candidate),
			"tokens": len(tokens),
		}).Info("rejected suspicious input due to missing menu signals")
		return &SuspiciousInputError{
			Source:  source,
			Message: "input doesn't look menu-ish yet. Paste actual menu items or upload a clearer menu image",
		}
	}

	return nil
}

func vowelRatio(text string) float64 {
	alpha, vowels := 0, 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		alpha++
		switch unicode.ToLower(r) {
		case 'a', 'e', 'i', 'o', 'u':
			vowels++
		}
	}
	if alpha == 0 {
		return 0
	}
	return float64(vowels) / float64(alpha)
}
