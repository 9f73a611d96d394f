package searchdb

type DB interface {
	BuildIndex(documents []Document) error
	DeleteDocuments(documentIDs []string) error
	Match(queryString string) ([]int64, error)
	GetDocCount() (uint64, error)
	Close() error
}
