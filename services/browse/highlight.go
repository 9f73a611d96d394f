package browse

import (
	"regexp"
	"sort"
	"strings"
)

type Segment struct {
	Text    string `json:"text"`
	IsMatch bool   `json:"is_match"`
}

// Highlight splits text into segments, marking every case-insensitive
// occurrence of any token. Longer tokens win where tokens overlap.
func Highlight(text string, tokens []string) []Segment {
	if text == "" {
		return nil
	}

	pattern := highlightPattern(tokens)
	if pattern == nil {
		return []Segment{{Text: text}}
	}

	var segments []Segment
	last := 0
	for _, match := range pattern.FindAllStringIndex(text, -1) {
		if match[0] > last {
			segments = append(segments, Segment{Text: text[last:match[0]]})
		}
		segments = append(segments, Segment{Text: text[match[0]:match[1]], IsMatch: true})
		last = match[1]
	}
	if last < len(text) {
		segments = append(segments, Segment{Text: text[last:]})
	}

	return segments
}

func highlightPattern(tokens []string) *regexp.Regexp {
	unique := map[string]struct{}{}
	var alternatives []string
	for _, token := range tokens {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		if _, seen := unique[token]; seen {
			continue
		}
		unique[token] = struct{}{}
		alternatives = append(alternatives, token)
	}
	if len(alternatives) == 0 {
		return nil
	}

	sort.SliceStable(alternatives, func(i, j int) bool {
		return len(alternatives[i]) > len(alternatives[j])
	})
	for i, alternative := range alternatives {
		alternatives[i] = regexp.QuoteMeta(alternative)
	}

	return regexp.MustCompile("(?i)(?:" + strings.Join(alternatives, "|") + ")")
}
