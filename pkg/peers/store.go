package peers

import "strings"

func NewList() *List { return &List{} }

// NewBounded returns a list that refuses inserts past limit entries.
func NewBounded(limit int) *List {
	return &List{addrs: make([]string, 0, limit), limit: limit}
}

func (l *List) Insert(addr string) error {
	if l.Contains(addr) {
		return ErrAlreadyPresent
	}
	if l.limit > 0 && len(l.addrs) >= l.limit {
		return ErrCapacityExceeded
	}
	l.addrs = append(l.addrs, addr)
	return nil
}

func (l *List) Remove(addr string) error {
	i := l.indexOf(addr)
	if i < 0 {
		return ErrNotFound
	}
	return l.RemoveAt(i)
}

// RemoveAt drops the i-th entry and shifts the tail left.
func (l *List) RemoveAt(i int) error {
	if i < 0 || i >= len(l.addrs) {
		return ErrIndexOutOfRange
	}
	copy(l.addrs[i:], l.addrs[i+1:])
	l.addrs[len(l.addrs)-1] = ""
	l.addrs = l.addrs[:len(l.addrs)-1]
	return nil
}

func (l *List) Contains(addr string) bool {
	return l.indexOf(addr) >= 0
}

func (l *List) Len() int { return len(l.addrs) }

func (l *List) Limit() int { return l.limit }

func (l *List) All() []string {
	out := make([]string, len(l.addrs))
	copy(out, l.addrs)
	return out
}

// Render formats the list as " IP IP ... IP", the reply form used on the wire.
func (l *List) Render() string {
	return l.RenderN(0)
}

// RenderN is Render limited to the first max entries (max <= 0 means all).
func (l *List) RenderN(max int) string {
	n := len(l.addrs)
	if max > 0 && n > max {
		n = max
	}
	var b strings.Builder
	for _, a := range l.addrs[:n] {
		b.WriteByte(' ')
		b.WriteString(a)
	}
	return b.String()
}

func (l *List) indexOf(addr string) int {
	for i, a := range l.addrs {
		if a == addr {
			return i
		}
	}
	return -1
}
