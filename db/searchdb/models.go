package searchdb

// Document is the indexed form of a paper: its id and the flattened text of
// every searchable field.
type Document struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}
