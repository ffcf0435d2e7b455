package server

type limiter struct {
	sem chan struct{}
}

func newLimiter(n int) *limiter {
	return &limiter{sem: make(chan struct{}, n)}
}

// tryAcquire takes a slot without waiting.
func (l *limiter) tryAcquire() bool {
	select {
	case l.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

func (l *limiter) release() { <-l.sem }

func (l *limiter) inUse() int { return len(l.sem) }
