package client

import (
	"context"
	"errors"
	"sync"

	"github.com/meghashyamc/paperdex/services/browse"
	"github.com/meghashyamc/paperdex/services/search"
)

// ErrSuperseded is returned for a search that finished after a newer one was
// submitted. Its result must not be shown.
var ErrSuperseded = errors.New("search superseded by a newer request")

// Searcher runs at most one search at a time on behalf of a browsing
// session. Submitting a new search cancels the one in flight.
type Searcher struct {
	client  *Client
	tracker browse.Tracker

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewSearcher(client *Client) *Searcher {
	return &Searcher{client: client}
}

func (s *Searcher) Submit(ctx context.Context, state browse.State) (*search.Response, error) {
	s.mu.Lock()
	generation := s.tracker.Next()
	if s.cancel != nil {
		s.cancel()
	}
	requestCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	defer s.release(generation, cancel)

	response, err := s.client.Search(requestCtx, NewSearchRequest(state))
	if !s.tracker.IsLatest(generation) {
		return nil, ErrSuperseded
	}
	return response, err
}

func (s *Searcher) release(generation uint64, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cancel()
	if s.tracker.IsLatest(generation) {
		s.cancel = nil
	}
}
