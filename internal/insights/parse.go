package insights

import (
	"regexp"
	"strings"
)

const (
	maxRecommendations     = 5
	descriptionFallbackLen = 500
)

// Insights is the parsed narrative for a report.
type Insights struct {
	Description     string   `json:"description"`
	Recommendations []string `json:"recommendations"`
}

var (
	descriptionMarker    = regexp.MustCompile(`(?i)^[#*\s]*(?:description|opis)\s*\**\s*:\s*\**\s*(.*)$`)
	recommendationMarker = regexp.MustCompile(`(?i)^[#*\s]*(?:recommendations|rekomendacje)\s*\**\s*:\s*\**\s*(.*)$`)
	enumerator           = regexp.MustCompile(`^\s*(?:\d+\s*[.):\-]|[-•*–])\s+`)
)

type section int

const (
	sectionNone section = iota
	sectionDescription
	sectionRecommendations
)

// ParseInsights extracts the description and at most five recommendations
// from model output. Every non-empty line of the recommendations section is
// one item. Without a description marker the first 500 characters become the
// description. When the recommendations section is missing or empty any
// enumerated lines are used.
func ParseInsights(text string) Insights {
	var (
		desc       []string
		recs       []string
		current    = sectionNone
		enumerated []string
	)

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if m := descriptionMarker.FindStringSubmatch(trimmed); m != nil {
			current = sectionDescription
			if rest := strings.TrimSpace(m[1]); rest != "" {
				desc = append(desc, rest)
			}
			continue
		}
		if m := recommendationMarker.FindStringSubmatch(trimmed); m != nil {
			current = sectionRecommendations
			if rest := strings.TrimSpace(m[1]); rest != "" {
				recs = append(recs, cleanRecommendation(rest))
			}
			continue
		}
		if trimmed == "" {
			continue
		}
		if enumerator.MatchString(trimmed) {
			enumerated = append(enumerated, cleanRecommendation(trimmed))
		}

		switch current {
		case sectionDescription:
			desc = append(desc, trimmed)
		case sectionRecommendations:
			recs = append(recs, cleanRecommendation(trimmed))
		}
	}

	out := Insights{Description: strings.Join(desc, " ")}
	if out.Description == "" {
		out.Description = truncateRunes(strings.TrimSpace(text), descriptionFallbackLen)
	}
	out.Recommendations = firstRecommendations(recs)
	if len(out.Recommendations) == 0 {
		out.Recommendations = firstRecommendations(enumerated)
	}
	return out
}

// firstRecommendations drops empty items and keeps at most maxRecommendations.
func firstRecommendations(recs []string) []string {
	var out []string
	for _, r := range recs {
		if r == "" {
			continue
		}
		out = append(out, r)
		if len(out) == maxRecommendations {
			break
		}
	}
	return out
}

func cleanRecommendation(s string) string {
	s = enumerator.ReplaceAllString(strings.TrimSpace(s), "")
	s = strings.ReplaceAll(s, "**", "")
	return strings.TrimSpace(s)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
