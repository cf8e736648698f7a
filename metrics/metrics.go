// Package metrics provides metrics-related utilities.
// Defined metrics:
//   pool.jobs.submitted (counter)
//   pool.jobs.completed (counter)
//   pool.jobs.failed (counter)
//   pool.workers.restarted (counter)
//   elapsed.lt1ms, elapsed.lt10ms, elapsed.lt100ms, elapsed.lt1s, elapsed.gt1s (counters)
package metrics

import (
	"time"

	"github.com/codahale/metrics"
)

// JobSubmitted counts one job entering the pool's queue.
func JobSubmitted() {
	metrics.Counter("pool.jobs.submitted").Add()
}

// JobCompleted counts one job that produced a verdict.
func JobCompleted() {
	metrics.Counter("pool.jobs.completed").Add()
}

// JobFailed counts one job that could not be evaluated
// (malformed reply, worker crash with no further retry, etc).
func JobFailed() {
	metrics.Counter("pool.jobs.failed").Add()
}

// WorkerRestarted counts one worker process respawned after a crash.
func WorkerRestarted() {
	metrics.Counter("pool.workers.restarted").Add()
}

// RecordElapsed buckets the duration since t0 into one of a fixed
// set of counters. It is meant to be used as:
//
//	defer metrics.RecordElapsed(time.Now())
func RecordElapsed(t0 time.Time) {
	d := time.Since(t0)
	switch {
	case d < time.Millisecond:
		metrics.Counter("elapsed.lt1ms").Add()
	case d < 10*time.Millisecond:
		metrics.Counter("elapsed.lt10ms").Add()
	case d < 100*time.Millisecond:
		metrics.Counter("elapsed.lt100ms").Add()
	case d < time.Second:
		metrics.Counter("elapsed.lt1s").Add()
	default:
		metrics.Counter("elapsed.gt1s").Add()
	}
}
