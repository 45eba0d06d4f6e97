// Package sanitize cleans and validates free-text clinical input before it
// reaches the generation pipeline. Sanitization strips markup that has no
// business in chart text; validation rejects inputs that look like prompt
// injection attempts.
package sanitize

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/medidocs/backend/internal/messages"
)

var (
	scriptBlockRe  = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleBlockRe   = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	iframeBlockRe  = regexp.MustCompile(`(?is)<iframe[^>]*>.*?</iframe>`)
	eventHandlerRe = regexp.MustCompile(`(?i)\son\w+\s*=\s*["'][^"']*["']`)
	controlCharRe  = regexp.MustCompile("[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]")
)

// Known prompt-injection phrasings. A single match is sufficient to reject.
var injectionPatterns = []struct {
	re   *regexp.Regexp
	flag string
}{
	// System-prompt override instructions (English)
	{regexp.MustCompile(`(?i)ignore\s+(previous|all|above|earlier)\s+(instruction|command|prompt|rule)`), "override_attempt"},
	{regexp.MustCompile(`(?i)disregard\s+(previous|all|above|earlier)\s+(instruction|command|prompt|rule)`), "override_attempt"},
	{regexp.MustCompile(`(?i)forget\s+(previous|all|above|earlier)\s+(instruction|command|prompt|rule)`), "override_attempt"},

	// System-prompt override instructions (Japanese)
	{regexp.MustCompile(`(以前|これまで|上記|全て)の(指示|命令|プロンプト|ルール)を(無視|忘れ|破棄)`), "override_attempt"},
	{regexp.MustCompile(`新しい(指示|命令|プロンプト|ルール)に従[いっ]?て`), "override_attempt"},

	// Role-play takeover
	{regexp.MustCompile(`(?i)you\s+are\s+now\s+`), "role_hijack"},
	{regexp.MustCompile(`(?i)act\s+as\s+(a|an)\s+`), "role_hijack"},
	{regexp.MustCompile(`(?i)pretend\s+(to\s+be|you\s+are)`), "role_hijack"},
	{regexp.MustCompile(`(あなた|君)は(今から|これから).*として(振る舞|行動)`), "role_hijack"},

	// Direct requests for system/prompt content
	{regexp.MustCompile(`(?i)(tell|show|give|provide)\s+me\s+(the|your)\s+(system|instruction|prompt)`), "system_leak"},
	{regexp.MustCompile(`(?i)reveal\s+(your|the)\s+(system|instruction|prompt)`), "system_leak"},
	{regexp.MustCompile(`(システム|指示|プロンプト)を(教え|見せ|表示)`), "system_leak"},

	// Chat-template delimiter tokens
	{regexp.MustCompile(`<\|im_(start|end)\|>`), "tag_injection"},
	{regexp.MustCompile(`(?i)\[INST\]|\[/INST\]`), "tag_injection"},
	{regexp.MustCompile(`(?i)<system>|</system>`), "tag_injection"},
	{regexp.MustCompile(`(?i)### (System|User|Assistant):`), "format_injection"},
}

// injectionHardCap rejects pathological inputs regardless of the per-request
// max length.
const injectionHardCap = 100000

// Sanitize strips script/style/iframe blocks, inline event-handler attributes
// and non-printable control characters (newline and tab survive). Idempotent:
// sanitizing sanitized text is a no-op.
func Sanitize(text string) string {
	if text == "" {
		return text
	}

	text = scriptBlockRe.ReplaceAllString(text, "")
	text = styleBlockRe.ReplaceAllString(text, "")
	text = iframeBlockRe.ReplaceAllString(text, "")
	text = eventHandlerRe.ReplaceAllString(text, "")
	text = controlCharRe.ReplaceAllString(text, "")

	return text
}

// DetectInjection reports whether the text matches any known prompt-injection
// pattern, along with the flags of everything that matched.
func DetectInjection(text string) (bool, []string) {
	if text == "" {
		return false, nil
	}

	var flags []string
	for _, p := range injectionPatterns {
		if p.re.MatchString(text) {
			flags = append(flags, p.flag)
		}
	}

	if hasRepeatedRun(text, 20, 10) {
		flags = append(flags, "repeated_pattern")
	}

	if utf8.RuneCountInString(text) > injectionHardCap {
		flags = append(flags, "excessive_length")
	}

	return len(flags) > 0, flags
}

// Validate checks a single text field: non-empty, within maxLength characters,
// and free of injection patterns. Returns ok plus a user-facing message on
// failure.
func Validate(text string, maxLength int) (bool, string) {
	if text == "" {
		return false, messages.ValidationEmptyText
	}

	if utf8.RuneCountInString(text) > maxLength {
		return false, fmt.Sprintf("入力テキストが長すぎます（最大%d文字）", maxLength)
	}

	if suspicious, _ := DetectInjection(text); suspicious {
		return false, messages.ValidationSuspiciousInput
	}

	return true, ""
}

// hasRepeatedRun detects a substring of at least minLen characters repeated
// minRepeats or more times back to back. RE2 has no backreferences, so this
// is a direct scan over candidate period lengths.
func hasRepeatedRun(s string, minLen, minRepeats int) bool {
	runes := []rune(s)
	n := len(runes)
	maxPeriod := n / minRepeats
	if maxPeriod > 512 {
		maxPeriod = 512
	}

	for period := minLen; period <= maxPeriod; period++ {
		span := period * minRepeats
		for i := 0; i+span <= n; i++ {
			if repeatsAt(runes, i, period, minRepeats) {
				return true
			}
		}
	}
	return false
}

func repeatsAt(runes []rune, start, period, count int) bool {
	for r := 1; r < count; r++ {
		off := start + r*period
		for j := 0; j < period; j++ {
			if runes[off+j] != runes[start+j] {
				return false
			}
		}
	}
	return true
}
