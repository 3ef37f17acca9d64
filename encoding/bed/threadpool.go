// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bed

import (
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/grailbio/base/traverse"
)

// envPrecedence is the fixed, process-wide environment-variable precedence
// used to resolve the effective thread count when neither the call nor the
// handle pins one down. Read fresh on every call; nothing about it is
// cached: it is process-wide read-only configuration, not handle state.
var envPrecedence = []string{"PST_NUM_THREADS", "NUM_THREADS", "MKL_NUM_THREADS"}

// EffectiveThreads resolves the worker count for one call, following the
// precedence chain: an explicit call argument beats an
// explicit handle argument beats the environment chain beats available
// parallelism. A zero argument means "unset" at that level; a negative
// argument is InvalidConfiguration when its level is reached (a positive
// call argument wins before the handle argument is looked at).
func EffectiveThreads(callThreads, handleThreads int) (int, error) {
	if callThreads < 0 {
		return 0, newError(InvalidConfiguration, "thread count must be positive:", callThreads)
	}
	if callThreads > 0 {
		return callThreads, nil
	}
	if handleThreads < 0 {
		return 0, newError(InvalidConfiguration, "thread count must be positive:", handleThreads)
	}
	if handleThreads > 0 {
		return handleThreads, nil
	}
	for _, name := range envPrecedence {
		raw, ok := os.LookupEnv(name)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n <= 0 {
			return 0, newError(InvalidConfiguration, "invalid thread count in "+name+":", raw)
		}
		return n, nil
	}
	n := runtime.NumCPU()
	if n < 1 {
		n = 1
	}
	return n, nil
}

// ThreadPool is a bounded worker pool sized from EffectiveThreads. It wraps
// github.com/grailbio/base/traverse's parallel-for primitive rather than a
// hand-rolled goroutine/WaitGroup pool.
type ThreadPool struct {
	// Threads is the handle-level thread count (0 = unset, deferring to the
	// environment chain).
	Threads int
}

// RunParallelFor partitions 0..n into up to threads contiguous ranges (one
// per worker, via "(jobIdx*n)/threads" shard-boundary arithmetic) and invokes
// f(shardIdx, start, end) on each, blocking until every shard completes.
// callThreads, combined with p.Threads, resolves the effective worker count
// per EffectiveThreads.
//
// f's own return value is advisory only: RunParallelFor always waits for
// every shard to finish, even after one reports an error, since shards
// already in flight are not cancelled. Callers that need
// "first error by item order" semantics, rather than "first error to
// finish", should aggregate it themselves (see orderedErr in reader.go).
func (p *ThreadPool) RunParallelFor(n, callThreads int, f func(shardIdx, start, end int) error) error {
	if n <= 0 {
		return nil
	}
	threads, err := EffectiveThreads(callThreads, p.Threads)
	if err != nil {
		return err
	}
	if threads > n {
		threads = n
	}
	if threads < 1 {
		threads = 1
	}
	return traverse.T{Limit: threads}.Each(threads, func(shardIdx int) error {
		start := (shardIdx * n) / threads
		end := ((shardIdx + 1) * n) / threads
		if start == end {
			return nil
		}
		return f(shardIdx, start, end)
	})
}
