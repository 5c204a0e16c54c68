// Package scores holds the two score stores of the pipeline: the
// round-scoped Manager that workers feed while a round is in flight, and the
// fit-scoped Tracker that records one value per score per round.
package scores
