package retry

import "time"

// backoffSchedule is the delay before the next attempt, indexed by how many
// attempts have already been made. Deliberately coarse and unjittered:
// batches are capped and intents are staggered by their original failure
// time.
var backoffSchedule = []time.Duration{
	5 * time.Minute,
	15 * time.Minute,
	time.Hour,
	3 * time.Hour,
}

// Backoff returns the retry delay for the given attempt count, clamped to
// the last schedule entry.
func Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(backoffSchedule) {
		attempt = len(backoffSchedule) - 1
	}
	return backoffSchedule[attempt]
}
