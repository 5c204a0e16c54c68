package orchestrator

import (
	"github.com/viant/phifit/model/batch"
	"github.com/viant/phifit/model/types"
)

// OfflineArgs describe a fixed number of full passes over a batch list.
type OfflineArgs struct {
	Refs    []batch.Ref
	Weights []float64 // per-batch weight, defaults to 1.0
	Passes  int       // defaults to 1

	// CacheTheta asks workers to record per-document topic rows.
	CacheTheta bool
}

// OnlineArgs describe incremental updates over batch groups.
type OnlineArgs struct {
	Groups []batch.Group

	// Async overlaps round k+1's processing with round k's bookkeeping.
	Async bool

	// CacheTheta asks workers to record per-document topic rows. Not
	// supported in async mode: no stable point-in-time export exists while a
	// round is in flight.
	CacheTheta bool
}

// normalizeOffline validates args and fills in defaults, producing the
// immutable request value the algorithms run against.
func (s *Service) normalizeOffline(args OfflineArgs) (OfflineArgs, error) {
	if len(args.Refs) == 0 {
		for _, id := range s.batches.Keys() {
			args.Refs = append(args.Refs, batch.ExternalRef(id))
		}
		if len(args.Refs) == 0 {
			return args, types.NewConfigurationError("offline fit requires at least one batch")
		}
	}
	if args.Passes <= 0 {
		args.Passes = 1
	}
	return args, nil
}

// normalizeOnline validates args and fills in defaults.
func (s *Service) normalizeOnline(args OnlineArgs) (OnlineArgs, error) {
	if len(args.Groups) == 0 {
		return args, types.NewConfigurationError("online fit requires at least one batch group")
	}
	for i := range args.Groups {
		group := &args.Groups[i]
		if len(group.Refs) == 0 {
			return args, types.NewConfigurationError("online fit group has no batches")
		}
		if group.DecayWeight == 0 && group.ApplyWeight == 0 {
			group.DecayWeight = defaultDecayWeight
			group.ApplyWeight = defaultApplyWeight
		}
	}
	if args.Async && args.CacheTheta {
		return args, types.NewConfigurationError("theta caching is not available in async mode")
	}
	return args, nil
}
