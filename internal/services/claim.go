package services

import "sync/atomic"

// ClaimPool tracks which candidates have been scheduled. Every id gets a
// flag up front so the map itself is never written after construction and
// concurrent day builders only contend on the flags.
type ClaimPool struct {
	flags map[string]*atomic.Bool
}

func NewClaimPool(ids []string) *ClaimPool {
	flags := make(map[string]*atomic.Bool, len(ids))
	for _, id := range ids {
		flags[id] = new(atomic.Bool)
	}
	return &ClaimPool{flags: flags}
}

// Claim marks id as used. It reports false when another builder already
// holds it or id is not part of the pool.
func (p *ClaimPool) Claim(id string) bool {
	f, ok := p.flags[id]
	if !ok {
		return false
	}
	return f.CompareAndSwap(false, true)
}

func (p *ClaimPool) Claimed(id string) bool {
	f, ok := p.flags[id]
	return ok && f.Load()
}
