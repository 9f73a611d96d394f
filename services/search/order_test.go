package search

import (
	"context"
	"fmt"
	"testing"

	"github.com/meghashyamc/paperdex/services/catalog"
	"github.com/stretchr/testify/require"
)

func fullOrder(assert *require.Assertions, service *Service, request Request) []int64 {
	request.Page, request.PageSize = 1, 100
	response, err := service.Search(context.Background(), request)
	assert.NoError(err)
	assert.Equal(response.Total, len(response.Results), "full order must fit on one page")
	return ids(response.Results)
}

func TestShuffleIsPermutation(t *testing.T) {
	assert := require.New(t)
	records := generateRecords(assert, 57)
	service := newTestService(assert, records, Options{MaxPageSize: 100})

	for _, seed := range []string{"0", "seed", "e3b0c442", "ünïcode"} {
		order := fullOrder(assert, service, Request{SortBy: SortRandom, Seed: seed})
		assert.Len(order, len(records))

		seen := map[int64]struct{}{}
		for _, id := range order {
			_, duplicate := seen[id]
			assert.False(duplicate, "id %d appears twice for seed %q", id, seed)
			seen[id] = struct{}{}
		}
		for _, record := range records {
			assert.Contains(seen, record.ID())
		}
	}
}

func TestShufflePagesConcatenateToFullOrder(t *testing.T) {
	assert := require.New(t)
	service := newTestService(assert, generateRecords(assert, 41), Options{MaxPageSize: 100, MatchCacheSize: 8})

	for _, filters := range []map[string][]string{nil, {"topic": {"NLP"}}} {
		request := Request{SortBy: SortRandom, Seed: "stable", Filters: filters}
		expected := fullOrder(assert, service, request)

		for pageSize := 1; pageSize <= 12; pageSize++ {
			var paged []int64
			seen := map[int64]int{}
			for page := 1; ; page++ {
				request.Page, request.PageSize = page, pageSize
				response, err := service.Search(context.Background(), request)
				assert.NoError(err)
				if len(response.Results) == 0 {
					break
				}
				for _, id := range ids(response.Results) {
					previous, duplicate := seen[id]
					assert.False(duplicate, "id %d on pages %d and %d (size %d)", id, previous, page, pageSize)
					seen[id] = page
				}
				paged = append(paged, ids(response.Results)...)
			}
			assert.Equal(expected, paged, "page size %d", pageSize)
		}
	}
}

func TestShuffleIsRepeatable(t *testing.T) {
	assert := require.New(t)
	records := generateRecords(assert, 30)
	cached := newTestService(assert, records, Options{MaxPageSize: 100, MatchCacheSize: 4})
	uncached := newTestService(assert, records, Options{MaxPageSize: 100})

	request := Request{SortBy: SortRandom, Seed: "repeat", Page: 2, PageSize: 7}
	first, err := cached.Search(context.Background(), request)
	assert.NoError(err)
	for i := 0; i < 3; i++ {
		again, err := cached.Search(context.Background(), request)
		assert.NoError(err)
		assert.Equal(ids(first.Results), ids(again.Results))

		fresh, err := uncached.Search(context.Background(), request)
		assert.NoError(err)
		assert.Equal(ids(first.Results), ids(fresh.Results))
	}
}

func TestShuffleChangesWithSeed(t *testing.T) {
	assert := require.New(t)
	service := newTestService(assert, generateRecords(assert, 12), Options{MaxPageSize: 100})

	orders := map[string]string{}
	for i := 0; i < 20; i++ {
		seed := fmt.Sprintf("seed-%d", i)
		order := fmt.Sprint(fullOrder(assert, service, Request{SortBy: SortRandom, Seed: seed}))
		if previous, exists := orders[order]; exists {
			assert.Fail("two seeds produced the same order", "%s and %s", previous, seed)
		}
		orders[order] = seed
	}
}

func TestShuffleIgnoresSortOrder(t *testing.T) {
	assert := require.New(t)
	service := newTestService(assert, generateRecords(assert, 15), Options{MaxPageSize: 100})

	asc := fullOrder(assert, service, Request{SortBy: SortRandom, Seed: "s", SortOrder: "asc"})
	desc := fullOrder(assert, service, Request{SortBy: SortRandom, Seed: "s", SortOrder: "desc"})
	assert.Equal(asc, desc)
}

func TestShuffleIndependentOfInputOrder(t *testing.T) {
	assert := require.New(t)
	records := generateRecords(assert, 20)

	forward := append([]catalog.Record(nil), records...)
	backward := make([]catalog.Record, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		backward = append(backward, records[i])
	}

	shuffle(forward, "x")
	shuffle(backward, "x")
	assert.Equal(ids(forward), ids(backward))
}

func TestShuffleKeyDependsOnSeedAndID(t *testing.T) {
	assert := require.New(t)

	assert.Equal(shuffleKey("a", 1), shuffleKey("a", 1))
	assert.NotEqual(shuffleKey("a", 1), shuffleKey("b", 1))
	assert.NotEqual(shuffleKey("a", 1), shuffleKey("a", 2))
}
