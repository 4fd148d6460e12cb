package content

import (
	"regexp"
	"strings"
)

// Currency amounts with an optional scale ("$74.8B", "€3 billion"), then
// percentages, then bare scaled figures ("3.2M").
var metricPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[$€£¥]\s?\d[\d,]*(?:\.\d+)?\s?(?:[KMBT]\b|(?i:thousand|million|billion|trillion)\b)?`),
	regexp.MustCompile(`\d[\d,]*(?:\.\d+)?\s?%`),
	regexp.MustCompile(`\b\d[\d,]*(?:\.\d+)?[KMBT]\b`),
	regexp.MustCompile(`\b\d[\d,]*(?:\.\d+)?\s(?i:thousand|million|billion|trillion)\b`),
}

// ExtractMetricValue returns the first formatted figure in s, or "" when there
// is none.
func ExtractMetricValue(s string) string {
	for _, re := range metricPatterns {
		if m := re.FindString(s); m != "" {
			return strings.TrimSpace(m)
		}
	}
	return ""
}
