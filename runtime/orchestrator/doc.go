// Package orchestrator sequences the fitting pipeline: it submits rounds of
// processing tasks, waits for joint completion and drives the
// merge/regularize/normalize/dispose steps against the model registry
// between rounds. Three algorithms share one primitive: a synchronous full
// pass, a synchronous incremental pass and a pipelined incremental pass that
// overlaps round k+1's processing with round k's bookkeeping through
// generation-indexed model slots.
package orchestrator
