package peers

import "errors"

var (
	ErrAlreadyPresent   = errors.New("address already present")
	ErrCapacityExceeded = errors.New("list capacity exceeded")
	ErrNotFound         = errors.New("address not found")
	ErrIndexOutOfRange  = errors.New("index out of range")
)

// List is an ordered set of peer addresses. It is not safe for concurrent use;
// owners guard it with their own lock.
type List struct {
	addrs []string
	limit int // 0 = unbounded
}
