package index

import (
	"fmt"
	"sort"

	"github.com/shuliakovsky/hash-tracker/pkg/peers"
)

// New builds an empty index. Zero limits fall back to the defaults; maxIPs is
// capped at MaxRenderedIPs.
func New(maxIPs, maxHashLen int) *Index {
	if maxIPs <= 0 {
		maxIPs = DefaultMaxIPs
	}
	if maxIPs > MaxRenderedIPs {
		maxIPs = MaxRenderedIPs
	}
	if maxHashLen <= 0 {
		maxHashLen = DefaultMaxHashLen
	}
	return &Index{
		entries:    map[string]*entry{},
		maxIPs:     maxIPs,
		maxHashLen: maxHashLen,
	}
}

// ValidateHash accepts 1..max ASCII letters and digits.
func ValidateHash(hash string, max int) error {
	if len(hash) == 0 || len(hash) > max {
		return fmt.Errorf("%w: length %d", ErrInvalidHash, len(hash))
	}
	for i := 0; i < len(hash); i++ {
		c := hash[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		default:
			return fmt.Errorf("%w: bad byte 0x%02x at %d", ErrInvalidHash, c, i)
		}
	}
	return nil
}

func (x *Index) ValidateHash(hash string) error { return ValidateHash(hash, x.maxHashLen) }

func (x *Index) MaxIPs() int { return x.maxIPs }

// Haves renders up to MaxIPs holders of hash. Unknown hashes yield "".
func (x *Index) Haves(hash string) (string, error) {
	return x.render(hash, Havers)
}

func (x *Index) Wanters(hash string) (string, error) {
	return x.render(hash, Wanters)
}

func (x *Index) render(hash string, which Which) (string, error) {
	if err := x.ValidateHash(hash); err != nil {
		return "", err
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	e, ok := x.entries[hash]
	if !ok {
		return "", nil
	}
	return e.list(which).RenderN(x.maxIPs), nil
}

// Put records ip as a holder of hash. peers.ErrAlreadyPresent is returned when
// ip was already listed; the index is unchanged in that case.
func (x *Index) Put(hash, ip string) error {
	return x.insert(hash, ip, Havers)
}

// Want records ip as looking for hash.
func (x *Index) Want(hash, ip string) error {
	return x.insert(hash, ip, Wanters)
}

func (x *Index) insert(hash, ip string, which Which) error {
	if err := x.ValidateHash(hash); err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.entryFor(hash).list(which).Insert(ip)
}

// Announce merges ips into the holders of hash and reports how many were new.
func (x *Index) Announce(hash string, ips []string) (int, error) {
	if err := x.ValidateHash(hash); err != nil {
		return 0, err
	}
	if len(ips) == 0 {
		return 0, nil
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	have := x.entryFor(hash).have
	added := 0
	for _, ip := range ips {
		if have.Insert(ip) == nil {
			added++
		}
	}
	return added, nil
}

// DeleteHash drops hash with both of its lists. Unknown hashes are ignored.
func (x *Index) DeleteHash(hash string) error {
	if err := x.ValidateHash(hash); err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.entries, hash)
	return nil
}

// DeletePeer removes ip from one list of hash. The entry is pruned once both
// lists are empty.
func (x *Index) DeletePeer(hash, ip string, which Which) error {
	if err := x.ValidateHash(hash); err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	e, ok := x.entries[hash]
	if !ok {
		return nil
	}
	_ = e.list(which).Remove(ip)
	if e.want.Len() == 0 && e.have.Len() == 0 {
		delete(x.entries, hash)
	}
	return nil
}

// Dump snapshots every entry, sorted by hash.
func (x *Index) Dump() []Entry {
	x.mu.RLock()
	out := make([]Entry, 0, len(x.entries))
	for h, e := range x.entries {
		out = append(out, Entry{Hash: h, Wanters: e.want.All(), Havers: e.have.All()})
	}
	x.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Hash < out[j].Hash })
	return out
}

func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// entryFor must be called with x.mu held for writing.
func (x *Index) entryFor(hash string) *entry {
	e, ok := x.entries[hash]
	if !ok {
		e = &entry{want: peers.NewList(), have: peers.NewList()}
		x.entries[hash] = e
	}
	return e
}

func (e *entry) list(w Which) *peers.List {
	if w == Wanters {
		return e.want
	}
	return e.have
}
