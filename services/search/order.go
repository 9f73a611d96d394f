package search

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/meghashyamc/paperdex/services/catalog"
)

// Sort key classes: records without a value come first, then numbers, then
// strings. Keeping the classes apart gives a total order over mixed fields.
const (
	classMissing = iota
	classNumber
	classString
)

type fieldKey struct {
	class int
	num   float64
	str   string
}

func (k fieldKey) compare(other fieldKey) int {
	if k.class != other.class {
		return k.class - other.class
	}
	switch k.class {
	case classNumber:
		switch {
		case k.num < other.num:
			return -1
		case k.num > other.num:
			return 1
		}
		return 0
	case classString:
		return strings.Compare(k.str, other.str)
	}
	return 0
}

func newFieldKey(value any) fieldKey {
	if list, ok := value.([]any); ok {
		if len(list) == 0 {
			return fieldKey{class: classMissing}
		}
		value = list[0]
	}
	if value == nil {
		return fieldKey{class: classMissing}
	}
	if num, ok := catalog.Number(value); ok {
		return fieldKey{class: classNumber, num: num}
	}

	values := catalog.Values(value)
	if len(values) == 0 {
		return fieldKey{class: classMissing}
	}
	return fieldKey{class: classString, str: strings.ToLower(values[0])}
}

// sortByField orders records by field, breaking ties by ascending id in both
// directions.
func sortByField(records []catalog.Record, field string, descending bool) {
	keys := make(map[int64]fieldKey, len(records))
	for _, record := range records {
		keys[record.ID()] = newFieldKey(record[field])
	}

	sort.Slice(records, func(i, j int) bool {
		left, right := records[i].ID(), records[j].ID()
		cmp := keys[left].compare(keys[right])
		if descending {
			cmp = -cmp
		}
		if cmp != 0 {
			return cmp < 0
		}
		return left < right
	})
}

func sortByID(records []catalog.Record) {
	sort.Slice(records, func(i, j int) bool { return records[i].ID() < records[j].ID() })
}

// shuffle orders records by a hash of (seed, id). The order depends only on
// the seed and the ids present, so slicing it into pages never repeats or
// skips a record.
func shuffle(records []catalog.Record, seed string) {
	keys := make(map[int64]uint64, len(records))
	for _, record := range records {
		keys[record.ID()] = shuffleKey(seed, record.ID())
	}

	sort.Slice(records, func(i, j int) bool {
		left, right := records[i].ID(), records[j].ID()
		if keys[left] != keys[right] {
			return keys[left] < keys[right]
		}
		return left < right
	})
}

func shuffleKey(seed string, id int64) uint64 {
	return xxhash.Sum64String(seed + ":" + strconv.FormatInt(id, 10))
}
