// Package phifit provides a pipelined fitting engine for probabilistic topic
// models trained with expectation-maximisation style passes over batched
// document collections.
//
// The engine splits a fit into rounds: each round fans a list of batches out
// to a fixed worker pool, every worker derives a partial count contribution
// against an immutable model snapshot, and the contributions accumulate into
// a shared slot in any completion order. Between rounds the orchestrator
// folds the counts through the regularizer chain and normalises them back
// into a probability snapshot. Three algorithms are built on this primitive:
// offline full passes, online incremental group updates and an asynchronous
// online variant that overlaps round k+1's processing with round k's
// bookkeeping.
//
// End-users typically interact with the engine via the high-level Service
// façade exposed by the root package:
//
//	srv, _ := phifit.New(phifit.WithWorkers(4))
//	rt := srv.Runtime()
//	_ = rt.Start(ctx)
//	defer rt.Shutdown(ctx)
//
//	_ = rt.InitializeModel(ctx, topics, tokens, 42)
//	_ = rt.ImportBatches(ctx, batches...)
//	_ = rt.FitOffline(ctx, orchestrator.OfflineArgs{Passes: 10})
//	model, _ := rt.TopicModel()
//
// For more details see the individual sub-packages.
package phifit
