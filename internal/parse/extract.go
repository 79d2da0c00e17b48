package parse

import (
	"regexp"
	"strings"
)

// FallbackTask is used when a message yields no usable task text at all.
const FallbackTask = "Your reminder"

// Lead-in phrases stripped from the message, longest first so a longer
// phrase is never corrupted by a shorter prefix match. Each is removed
// at most once.
var leadInRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bset\s+a\s+reminder\s+to\s+`),
	regexp.MustCompile(`(?i)\bset\s+a\s+reminder\s+for\s+`),
	regexp.MustCompile(`(?i)\bset\s+reminder\s+to\s+`),
	regexp.MustCompile(`(?i)\bremind\s+me\s+to\s+`),
	regexp.MustCompile(`(?i)\bremind\s+me\b\s*`),
	regexp.MustCompile(`(?i)\breminder\s+to\s+`),
	regexp.MustCompile(`(?i)\bremind\b\s*`),
}

var (
	trailingConnectorRe = regexp.MustCompile(`(?i)\s+(at|on|by|in|for)\s*$`)
	trailingPunctRe     = regexp.MustCompile(`[.,;:!]+$`)
)

// Extract derives the task description from a message given the span of the
// time expression found by Resolve. It always returns a non-empty string:
// degenerate remainders fall back to an excerpt of the original message,
// and finally to FallbackTask.
func Extract(text string, m Match) string {
	// Cut the time expression first; the span offsets are only valid on
	// the original text.
	remain := text[:m.Start] + text[m.End:]

	for _, re := range leadInRes {
		if loc := re.FindStringIndex(remain); loc != nil {
			remain = remain[:loc[0]] + remain[loc[1]:]
		}
	}

	remain = strings.TrimSpace(remain)
	remain = trailingConnectorRe.ReplaceAllString(remain, "")
	remain = trailingPunctRe.ReplaceAllString(remain, "")
	remain = strings.TrimSpace(remain)

	if len(remain) >= 2 {
		return remain
	}

	// Degenerate remainder: take the first few words of the original
	// message so the reminder still says something recognizable.
	fields := strings.Fields(text)
	if len(fields) > 3 {
		fields = fields[:3]
	}
	if excerpt := strings.Join(fields, " "); excerpt != "" {
		return excerpt
	}
	return FallbackTask
}
