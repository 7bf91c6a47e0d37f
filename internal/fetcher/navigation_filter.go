package fetcher

import (
	"regexp"
	"strings"
)

// navKeywords are phrases that mark menu/navigation boilerplate. Snapshot
// facets matching them are dropped at extraction time so the differ never
// reports navigation churn as a content change.
var navKeywords = []string{
	"menu", "home", "about", "about us", "our team", "what we do",
	"social responsibility", "news", "faq", "portfolio",
	"testimonials", "overview", "work with us", "contact", "login",
	"courses", "resources", "archives", "investor login",
}

var navPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bmenu\b.*\bhome\b.*\babout\b`),
	regexp.MustCompile(`\bhome\s*/\s*\w+\s*/\s*\w+`),
}

// isNavigationContent reports whether text is likely navigation/menu
// boilerplate rather than page content.
func isNavigationContent(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)

	keywordCount := 0
	for _, keyword := range navKeywords {
		if strings.Contains(lower, keyword) {
			keywordCount++
		}
	}

	if len(text) < 500 && keywordCount >= 3 {
		return true
	}

	for _, pattern := range navPatterns {
		if pattern.MatchString(lower) {
			return true
		}
	}

	words := strings.Fields(lower)
	if len(words) > 0 && float64(keywordCount)/float64(len(words)) > 0.3 {
		return true
	}

	return false
}
