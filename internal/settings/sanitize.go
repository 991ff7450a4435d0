package settings

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxWarningTextLen caps the warning text so the broadcast caption stays
// within safe Telegram limits.
const MaxWarningTextLen = 4000

// Interval bounds in minutes. 1440 is one full day.
const (
	MinIntervalMinutes = 1
	MaxIntervalMinutes = 1440
)

const (
	reasonIntervalTooLarge = "interval is too large (max 1440 minutes)"
	reasonTextEmpty        = "text is empty"
	reasonTextTooLong      = "text is too long (max 4000 characters)"
)

var (
	backtickRuns   = regexp.MustCompile("```+")
	underscoreRuns = regexp.MustCompile(`___+`)
	asteriskRuns   = regexp.MustCompile(`\*\*\*+`)
)

// SanitizeWarningText collapses runaway Markdown delimiter runs so admin
// input cannot produce an unparseable broadcast message. Runs of three or
// more backticks, underscores, or asterisks are reduced to the longest
// form Telegram's Markdown still renders.
func SanitizeWarningText(s string) string {
	s = backtickRuns.ReplaceAllString(s, "```")
	s = underscoreRuns.ReplaceAllString(s, "__")
	s = asteriskRuns.ReplaceAllString(s, "**")
	return s
}

// ValidateWarningText reports why s is unusable as warning text, or ""
// when it is acceptable.
func ValidateWarningText(s string) string {
	if strings.TrimSpace(s) == "" {
		return reasonTextEmpty
	}
	if utf8.RuneCountInString(s) > MaxWarningTextLen {
		return reasonTextTooLong
	}
	return ""
}

// ValidateInterval reports why n is not an acceptable broadcast interval,
// or "" when it is.
func ValidateInterval(n int) string {
	switch {
	case n < MinIntervalMinutes:
		return "interval is too small (min 1 minute)"
	case n > MaxIntervalMinutes:
		return reasonIntervalTooLarge
	}
	return ""
}

// ParseIntervalInput validates free-form interval text. It returns the
// parsed minutes and "" on success, or 0 and a human-readable reason.
func ParseIntervalInput(raw string) (int, string) {
	s := strings.TrimSpace(raw)
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, "interval is not a number"
		}
		n = n*10 + int(r-'0')
		if n > MaxIntervalMinutes {
			return 0, reasonIntervalTooLarge
		}
	}
	if s == "" {
		return 0, "interval is not a number"
	}
	if reason := ValidateInterval(n); reason != "" {
		return 0, reason
	}
	return n, ""
}
