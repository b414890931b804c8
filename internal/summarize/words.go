package summarize

import "strings"

// maxWords bounds every request: single-shot tasks see only the first
// maxWords words, and long summaries are split into chunks of this size.
const maxWords = 800

// wordCount returns the number of whitespace-separated words in s.
func wordCount(s string) int {
	return len(strings.Fields(s))
}

// truncateWords returns the first n words of s joined by single spaces.
func truncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

// chunkWords splits s into consecutive chunks of at most n words. Chunks
// never split a word. An empty or blank s yields no chunks.
func chunkWords(s string, n int) []string {
	words := strings.Fields(s)
	chunks := make([]string, 0, (len(words)+n-1)/n)
	for start := 0; start < len(words); start += n {
		end := min(start+n, len(words))
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}
