package alert

import "github.com/rickgao/market-alerts/internal/model"

// backlog holds descriptors whose market is not yet resolvable, in arrival
// order. At most one entry per uuid.
type backlog struct {
	entries []Descriptor
}

func (b *backlog) index(uuid string) int {
	for i, d := range b.entries {
		if d.UUID == uuid {
			return i
		}
	}
	return -1
}

// put inserts d or replaces the entry with the same uuid in place.
func (b *backlog) put(d Descriptor) {
	if i := b.index(d.UUID); i >= 0 {
		b.entries[i] = d
		return
	}
	b.entries = append(b.entries, d)
}

// merge lays d over an existing entry. It reports false if there is none.
func (b *backlog) merge(d Descriptor) bool {
	i := b.index(d.UUID)
	if i < 0 {
		return false
	}
	b.entries[i] = b.entries[i].Merge(d)
	return true
}

func (b *backlog) remove(uuid string) (Descriptor, bool) {
	i := b.index(uuid)
	if i < 0 {
		return Descriptor{}, false
	}
	d := b.entries[i]
	b.entries = append(b.entries[:i:i], b.entries[i+1:]...)
	return d, true
}

// take removes and returns every entry referencing key, in arrival order.
func (b *backlog) take(key model.MarketKey) []Descriptor {
	var taken []Descriptor
	kept := b.entries[:0:0]
	for _, d := range b.entries {
		if d.Market != nil && *d.Market == key {
			taken = append(taken, d)
			continue
		}
		kept = append(kept, d)
	}
	if len(taken) > 0 {
		b.entries = kept
	}
	return taken
}

func (b *backlog) list() []Descriptor {
	out := make([]Descriptor, len(b.entries))
	copy(out, b.entries)
	return out
}

func (b *backlog) clear() {
	b.entries = nil
}

func (b *backlog) len() int {
	return len(b.entries)
}
