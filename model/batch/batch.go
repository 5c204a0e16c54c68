package batch

import "fmt"

// Entry is a single token occurrence count within a document.
type Entry struct {
	Token string  `yaml:"token" json:"token"`
	Count float64 `yaml:"count" json:"count"`
}

// Document is one item of a batch.
type Document struct {
	ID      string  `yaml:"id,omitempty" json:"id,omitempty"`
	Entries []Entry `yaml:"entries" json:"entries"`
}

// Batch is an immutable unit of work: a set of documents processed together
// against one model snapshot.
type Batch struct {
	ID        string     `yaml:"id" json:"id"`
	Documents []Document `yaml:"documents" json:"documents"`
}

// Validate reports whether the batch is well formed.
func (b *Batch) Validate() error {
	if b == nil {
		return fmt.Errorf("batch is nil")
	}
	if b.ID == "" {
		return fmt.Errorf("batch id is empty")
	}
	if len(b.Documents) == 0 {
		return fmt.Errorf("batch %v has no documents", b.ID)
	}
	return nil
}

// TotalCount returns the summed token counts across all documents.
func (b *Batch) TotalCount() float64 {
	var total float64
	for _, doc := range b.Documents {
		for _, entry := range doc.Entries {
			total += entry.Count
		}
	}
	return total
}

// Tokens returns the distinct tokens appearing in the batch, in first-seen
// order.
func (b *Batch) Tokens() []string {
	seen := map[string]bool{}
	var tokens []string
	for _, doc := range b.Documents {
		for _, entry := range doc.Entries {
			if !seen[entry.Token] {
				seen[entry.Token] = true
				tokens = append(tokens, entry.Token)
			}
		}
	}
	return tokens
}
