package llm

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Model output is untrusted: even with a JSON response-format hint, models
// wrap payloads in code fences, leave trailing commas, or prepend prose.
// These patterns are pre-compiled; compiling per parse is markedly slower.
var (
	codeFenceRegex     = regexp.MustCompile("(?s)`{3}(?:json)?\\s*\\n?([\\s\\S]*?)\\n?`{3}")
	trailingCommaRegex = regexp.MustCompile(`,(\s*[}\]])`)
	lineCommentRegex   = regexp.MustCompile(`(?m)//.*$`)
	blockCommentRegex  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	objectRegex        = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
	arrayRegex         = regexp.MustCompile(`(?s)\[[\s\S]*\]`)
)

// ParseJSON parses model output into T, trying progressively more forgiving
// strategies: direct parse, code-fence stripping, comma/comment cleanup, and
// finally extraction of the first JSON object or array from mixed content.
// It never panics; ok=false means every strategy failed and the caller
// should fail open.
func ParseJSON[T any](text string) (T, bool) {
	var zero T

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return zero, false
	}

	if v, err := tryParse[T](trimmed); err == nil {
		return v, true
	}

	unfenced := stripCodeFences(trimmed)
	if unfenced != trimmed {
		if v, err := tryParse[T](unfenced); err == nil {
			return v, true
		}
	}

	cleaned := cleanupJSON(unfenced)
	if v, err := tryParse[T](cleaned); err == nil {
		return v, true
	}

	if extracted := extractJSON(cleaned); extracted != "" {
		if v, err := tryParse[T](extracted); err == nil {
			return v, true
		}
	}

	slog.Debug("all JSON parsing strategies failed", "preview", truncate(text, 120))
	return zero, false
}

func tryParse[T any](text string) (T, error) {
	var v T
	err := json.Unmarshal([]byte(text), &v)
	return v, err
}

func stripCodeFences(text string) string {
	cleaned := codeFenceRegex.ReplaceAllString(text, "$1")
	if strings.HasPrefix(cleaned, "`") && strings.HasSuffix(cleaned, "`") {
		cleaned = strings.Trim(cleaned, "`")
	}
	return strings.TrimSpace(cleaned)
}

func cleanupJSON(text string) string {
	cleaned := lineCommentRegex.ReplaceAllString(text, "")
	cleaned = blockCommentRegex.ReplaceAllString(cleaned, "")
	cleaned = trailingCommaRegex.ReplaceAllString(cleaned, "$1")
	return strings.TrimSpace(cleaned)
}

// extractJSON pulls the outermost object or array out of surrounding prose.
// The first-character check keeps an array from being mis-extracted as its
// first element.
func extractJSON(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return arrayRegex.FindString(trimmed)
	}
	if match := objectRegex.FindString(trimmed); match != "" {
		return match
	}
	return arrayRegex.FindString(trimmed)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	for maxLen > 0 && !utf8.RuneStart(s[maxLen]) {
		maxLen--
	}
	return s[:maxLen] + "..."
}
