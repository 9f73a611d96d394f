package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

const (
	notesSearchPath  = "/notes/search"
	notesSearchLimit = "10"
)

var nonWordRegex = regexp.MustCompile(`[^\p{L}\p{N}]+`)

type noteField[T any] struct {
	Value T `json:"value"`
}

type note struct {
	ID      string `json:"id"`
	Forum   string `json:"forum"`
	Content struct {
		Title   noteField[string]   `json:"title"`
		Authors noteField[[]string] `json:"authors"`
	} `json:"content"`
}

type notesResponse struct {
	Notes []note `json:"notes"`
}

// upstreamError is returned for non-2xx responses.
type upstreamError struct {
	StatusCode int
}

func (e *upstreamError) Error() string {
	return fmt.Sprintf("openreview responded with status %d", e.StatusCode)
}

// isUpstreamFailure reports whether err should count against the circuit
// breaker. Client errors say nothing about the health of the service.
func isUpstreamFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *upstreamError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= http.StatusInternalServerError || statusErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}

func (r *Resolver) searchNotes(ctx context.Context, title string) ([]note, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	params := url.Values{}
	params.Set("term", title)
	params.Set("type", "terms")
	params.Set("content", "all")
	params.Set("source", "forum")
	params.Set("limit", notesSearchLimit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+notesSearchPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &upstreamError{StatusCode: resp.StatusCode}
	}

	var body notesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("could not decode openreview response: %w", err)
	}
	return body.Notes, nil
}

// bestMatch returns the forum id of the first note whose normalised title
// equals normalisedTitle and, when author is given, lists a matching author.
func bestMatch(notes []note, normalisedTitle string, author string) (string, bool) {
	wanted := parseAuthor(author)
	for _, candidate := range notes {
		if normaliseTitle(candidate.Content.Title.Value) != normalisedTitle {
			continue
		}
		if wanted.lastName != "" && !wanted.matchesAny(candidate.Content.Authors.Value) {
			continue
		}

		forumID := candidate.Forum
		if forumID == "" {
			forumID = candidate.ID
		}
		if forumID == "" {
			continue
		}
		return forumID, true
	}
	return "", false
}

// normaliseTitle lowercases title and collapses every run of punctuation and
// whitespace into a single space.
func normaliseTitle(title string) string {
	return strings.TrimSpace(nonWordRegex.ReplaceAllString(strings.ToLower(title), " "))
}

type authorName struct {
	initial  string
	lastName string
}

func parseAuthor(author string) authorName {
	parts := strings.Fields(normaliseTitle(author))
	switch len(parts) {
	case 0:
		return authorName{}
	case 1:
		return authorName{lastName: parts[0]}
	default:
		return authorName{initial: string([]rune(parts[0])[:1]), lastName: parts[len(parts)-1]}
	}
}

func (a authorName) matchesAny(authors []string) bool {
	for _, candidate := range authors {
		name := parseAuthor(candidate)
		if name.lastName != a.lastName {
			continue
		}
		if a.initial == "" || name.initial == a.initial {
			return true
		}
	}
	return false
}
