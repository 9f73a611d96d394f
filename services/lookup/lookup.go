package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eapache/go-resiliency/breaker"
	"github.com/meghashyamc/paperdex/db/kvdb"
	"github.com/meghashyamc/paperdex/logger"
	"golang.org/x/time/rate"
)

type Source string

const (
	SourceOpenReview Source = "openreview"
	SourceWebSearch  Source = "web_search"

	DefaultForumURL  = "https://openreview.net/forum"
	DefaultSearchURL = "https://www.google.com/search"

	breakerErrorThreshold   = 3
	breakerSuccessThreshold = 1
	breakerTimeout          = 30 * time.Second
)

// Link is a resolved external reference for a paper.
type Link struct {
	URL    string `json:"url"`
	Source Source `json:"source"`
}

// LinkCache stores resolved links between process restarts.
type LinkCache interface {
	Get(bucket string, key string) (string, error)
	Set(bucket string, key string, value string) error
}

type Options struct {
	BaseURL       string
	ForumURL      string
	SearchURL     string
	Timeout       time.Duration
	RatePerSecond float64
	HTTPClient    *http.Client
}

type Resolver struct {
	logger     logger.Logger
	cache      LinkCache
	httpClient *http.Client
	baseURL    string
	forumURL   string
	searchURL  string
	timeout    time.Duration
	limiter    *rate.Limiter
	breaker    *breaker.Breaker
}

func New(logger logger.Logger, cache LinkCache, opts Options) *Resolver {
	if opts.ForumURL == "" {
		opts.ForumURL = DefaultForumURL
	}
	if opts.SearchURL == "" {
		opts.SearchURL = DefaultSearchURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}

	return &Resolver{
		logger:     logger,
		cache:      cache,
		httpClient: opts.HTTPClient,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		forumURL:   opts.ForumURL,
		searchURL:  opts.SearchURL,
		timeout:    opts.Timeout,
		limiter:    rate.NewLimiter(limit, 1),
		breaker:    breaker.New(breakerErrorThreshold, breakerSuccessThreshold, breakerTimeout),
	}
}

// Resolve finds the OpenReview forum of the paper titled title, optionally
// checking that one of its authors matches author ("A. Vaswani", "Vaswani").
// Any failure or unconfident match degrades to a web search link.
func (r *Resolver) Resolve(ctx context.Context, title string, author string) Link {
	normalisedTitle := normaliseTitle(title)
	if normalisedTitle == "" {
		return r.webSearchLink(title, author)
	}

	cacheKey := normalisedTitle + "|" + strings.ToLower(strings.TrimSpace(author))
	if link, ok := r.cachedLink(cacheKey); ok {
		return link
	}

	if err := r.limiter.Wait(ctx); err != nil {
		r.logger.Warn("lookup rate limit wait aborted", "err", err.Error())
		return r.webSearchLink(title, author)
	}

	var notes []note
	var searchErr error
	breakerErr := r.breaker.Run(func() error {
		notes, searchErr = r.searchNotes(ctx, title)
		if isUpstreamFailure(searchErr) {
			return searchErr
		}
		return nil
	})
	if breakerErr != nil || searchErr != nil {
		err := searchErr
		if errors.Is(breakerErr, breaker.ErrBreakerOpen) {
			err = breakerErr
		}
		r.logger.Warn("openreview lookup failed, falling back to web search", "title", title, "err", err.Error())
		return r.webSearchLink(title, author)
	}

	forumID, ok := bestMatch(notes, normalisedTitle, author)
	if !ok {
		r.logger.Debug("no confident openreview match", "title", title, "author", author, "candidates", len(notes))
		return r.webSearchLink(title, author)
	}

	link := Link{URL: r.forumURL + "?id=" + url.QueryEscape(forumID), Source: SourceOpenReview}
	r.cacheLink(cacheKey, link)
	return link
}

func (r *Resolver) webSearchLink(title string, author string) Link {
	query := strings.TrimSpace(strings.TrimSpace(title) + " " + strings.TrimSpace(author))
	return Link{URL: r.searchURL + "?q=" + url.QueryEscape(query), Source: SourceWebSearch}
}

func (r *Resolver) cachedLink(key string) (Link, bool) {
	if r.cache == nil {
		return Link{}, false
	}

	value, err := r.cache.Get(kvdb.LinksBucket, key)
	if err != nil {
		if !errors.Is(err, kvdb.ErrNotFound) {
			r.logger.Warn("could not read cached link", "key", key, "err", err.Error())
		}
		return Link{}, false
	}

	var link Link
	if err := json.Unmarshal([]byte(value), &link); err != nil {
		r.logger.Warn("could not decode cached link", "key", key, "err", err.Error())
		return Link{}, false
	}
	return link, true
}

func (r *Resolver) cacheLink(key string, link Link) {
	if r.cache == nil {
		return
	}

	data, err := json.Marshal(link)
	if err != nil {
		r.logger.Warn("could not encode link", "key", key, "err", err.Error())
		return
	}
	if err := r.cache.Set(kvdb.LinksBucket, key, string(data)); err != nil {
		r.logger.Warn("could not cache link", "key", key, "err", err.Error())
	}
}
