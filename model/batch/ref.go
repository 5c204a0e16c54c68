package batch

// Ref references a batch either inline or by an external locator resolvable
// through the batch DAO (a registered batch id or a storage URL). Exactly one
// of the two fields is set.
type Ref struct {
	Inline *Batch
	URL    string
}

// InlineRef wraps an in-memory batch.
func InlineRef(b *Batch) Ref { return Ref{Inline: b} }

// ExternalRef references a batch by locator.
func ExternalRef(URL string) Ref { return Ref{URL: URL} }

// Key returns a stable identifier for logging and cache keys.
func (r Ref) Key() string {
	if r.Inline != nil {
		return r.Inline.ID
	}
	return r.URL
}

// IsZero reports whether the reference points at nothing.
func (r Ref) IsZero() bool { return r.Inline == nil && r.URL == "" }

// Group is one scheduling unit of the online algorithms: the batches flushed
// together plus the convex-combination weights applied when the group's
// accumulator is merged into the persistent one.
type Group struct {
	Refs    []Ref
	Weights []float64 // per-batch weight, defaults to 1.0

	DecayWeight float64 // weight of the existing accumulated mass
	ApplyWeight float64 // weight of this group's fresh mass
}

// Weight returns the weight of the i-th batch in the group.
func (g Group) Weight(i int) float64 {
	if i < len(g.Weights) {
		return g.Weights[i]
	}
	return 1.0
}
