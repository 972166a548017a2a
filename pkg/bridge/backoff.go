package bridge

import (
	"math"
	"time"
)

// ReconnectDelay returns the wait before reconnect attempt n (1-based):
// base * 2^(n-1), capped at max. A non-positive max means no cap.
func ReconnectDelay(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > math.MaxInt64/2 {
			delay = math.MaxInt64
			break
		}
		delay *= 2
		if max > 0 && delay >= max {
			break
		}
	}
	if max > 0 && delay > max {
		return max
	}
	return delay
}
