package shortener

import "regexp"

// Scanner returns the distinct URLs embedded in text in order of first appearance.
type Scanner func(text string) []string

var urlPattern = regexp.MustCompile(`(?i)https?://[a-z0-9./?:@\-_=#]+\.[a-z0-9&./?:@\-_=#]*`)

// ScanURLs is the default Scanner. It matches http and https URLs inline in free text.
func ScanURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)

	return distinct(matches)
}

func distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))

	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}

		seen[v] = struct{}{}
		out = append(out, v)
	}

	return out
}
