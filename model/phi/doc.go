// Package phi defines the dense token-by-topic matrix used throughout the
// fitting pipeline together with its merge and normalisation operations.
// Matrices are published into the registry as immutable snapshots; only the
// round-scoped accumulator is ever mutated, and that mutation is guarded by
// the matrix itself.
package phi
