// Package registry holds named model snapshots and the whole-snapshot
// operations the orchestrator sequences between rounds: merge, regularize,
// normalize and dispose. Names are the only coordination mechanism across
// pipelined rounds; generation-indexed names keep concurrent rounds from
// aliasing a target.
package registry
