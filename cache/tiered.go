package cache

// Tiered layers a fast cache in front of a slow one: reads check fast
// first and promote slow hits; writes go to both. The usual pairing is an
// LRU in front of a BoltCache.
type Tiered struct {
	Fast Cache
	Slow Cache
}

// NewTiered combines two caches. Either may be nil, in which case the
// other is used alone.
func NewTiered(fast, slow Cache) *Tiered {
	return &Tiered{Fast: fast, Slow: slow}
}

// Get checks the fast tier, then the slow tier, promoting slow hits into
// the fast tier.
func (t *Tiered) Get(id string) ([]byte, bool) {
	if t.Fast != nil {
		if payload, ok := t.Fast.Get(id); ok {
			return payload, true
		}
	}
	if t.Slow != nil {
		if payload, ok := t.Slow.Get(id); ok {
			if t.Fast != nil {
				t.Fast.Put(id, payload)
			}
			return payload, true
		}
	}
	return nil, false
}

// Put writes the payload to both tiers.
func (t *Tiered) Put(id string, payload []byte) {
	if t.Fast != nil {
		t.Fast.Put(id, payload)
	}
	if t.Slow != nil {
		t.Slow.Put(id, payload)
	}
}
