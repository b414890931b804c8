package meeting

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EncodeList serialises a list column as JSON text. A nil or empty list
// encodes as "[]".
func EncodeList(items []string) (string, error) {
	if len(items) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("meeting: encode list: %w", err)
	}
	return string(b), nil
}

// DecodeList parses a list column written by [EncodeList]. Empty text and
// JSON null both decode to an empty, non-nil slice.
func DecodeList(text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{}, nil
	}
	var items []string
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		return nil, fmt.Errorf("meeting: decode list: %w", err)
	}
	if items == nil {
		items = []string{}
	}
	return items, nil
}

// ContainsPattern turns a search query into a LIKE pattern that matches the
// query as a literal substring. It escapes the wildcard characters with a
// backslash, so the SQL must declare ESCAPE '\'.
func ContainsPattern(query string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(query) + "%"
}
