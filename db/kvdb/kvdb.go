package kvdb

const (
	// PapersBucket maps a decimal paper id to the paper's raw JSON.
	PapersBucket = "papers"
	// MetaBucket holds index build metadata.
	MetaBucket = "meta"
	// LinksBucket caches resolved external reference links.
	LinksBucket = "links"
)

var buckets = []string{PapersBucket, MetaBucket, LinksBucket}

type DB interface {
	Set(bucket string, key string, value string) error
	SetBatch(bucket string, entries map[string]string) error
	Get(bucket string, key string) (string, error)
	Delete(bucket string, key string) error
	GetAllKeys(bucket string) ([]string, error)
	ForEach(bucket string, fn func(key string, value []byte) error) error
	Close() error
}
