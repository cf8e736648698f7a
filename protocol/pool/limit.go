package pool

import (
	"sync"

	"golang.org/x/time/rate"
)

// bucketLimiter rate-limits job submissions per caller-supplied key
// (for example, a submitter id), each key getting its own token
// bucket. A zero-value bucketLimiter with freq 0 never limits.
type bucketLimiter struct {
	freq  rate.Limit
	burst int

	mu      sync.Mutex // protects buckets
	buckets map[string]*rate.Limiter
}

func newBucketLimiter(freq, burst int) *bucketLimiter {
	return &bucketLimiter{
		freq:    rate.Limit(freq),
		burst:   burst,
		buckets: make(map[string]*rate.Limiter),
	}
}

func (b *bucketLimiter) allow(key string) bool {
	if b.freq == 0 {
		return true
	}
	return b.bucket(key).Allow()
}

func (b *bucketLimiter) bucket(key string) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()
	bucket, ok := b.buckets[key]
	if !ok {
		bucket = rate.NewLimiter(b.freq, b.burst)
		b.buckets[key] = bucket
	}
	return bucket
}
