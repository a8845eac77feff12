package pipeline

import (
	"math"
	"math/rand"
	"time"
)

// maxBackoff caps the wait between two attempts.
const maxBackoff = 5 * time.Minute

// calculateBackoff calculates exponential backoff with jitter.
// Formula: min(baseWait * 2^attempt + random jitter, maxBackoff)
func calculateBackoff(baseWait time.Duration, attempt int) time.Duration {
	exponentialMs := baseWait.Milliseconds() * int64(math.Pow(2, float64(attempt)))

	// Jitter: random value between 0 and exponentialMs * 0.1
	jitterMs := rand.Int63n(exponentialMs/10 + 1)

	totalMs := exponentialMs + jitterMs
	if maxMs := maxBackoff.Milliseconds(); totalMs > maxMs {
		totalMs = maxMs
	}

	return time.Duration(totalMs) * time.Millisecond
}
