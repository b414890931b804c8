package summarize

import (
	"encoding/json"
	"fmt"
	"strings"
)

// junkPrefixes mark lines that are code or scaffolding rather than list
// items when a model ignores the JSON-only instruction.
var junkPrefixes = []string{"import", "def ", "for ", "action_", "meeting_", "#", "json", "print", "```", "//"}

// bulletChars are trimmed from the start of every recovered line.
const bulletChars = "•-*0123456789. \""

// parseList turns a model response into a list of strings. It tries
// [parseStrict] first and reports whether [parseFallback] was needed. The
// result is never nil.
func parseList(response string) (items []string, fallback bool) {
	items, err := parseStrict(response)
	if err == nil {
		return items, false
	}
	return parseFallback(response), true
}

// parseStrict strips markdown code fences, narrows the text to the span
// between the first '[' and the last ']', and decodes it as a JSON array of
// strings.
func parseStrict(response string) ([]string, error) {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start != -1 && end > start {
		cleaned = cleaned[start : end+1]
	}

	var items []string
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		return nil, fmt.Errorf("summarize: decode list: %w", err)
	}
	if items == nil {
		items = []string{}
	}
	return items, nil
}

// parseFallback recovers list items line by line from a response that is
// not valid JSON. Blank lines, bare brackets and lines that look like code
// are dropped; leading bullets, numbering and quotes are trimmed.
func parseFallback(response string) []string {
	items := []string{}
	for line := range strings.Lines(response) {
		line = strings.TrimSpace(line)
		if line == "" || line == "[" || line == "]" || hasJunkPrefix(line) {
			continue
		}
		line = strings.TrimLeft(line, bulletChars)
		if line == "" {
			continue
		}
		items = append(items, line)
	}
	return items
}

func hasJunkPrefix(line string) bool {
	for _, p := range junkPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}
