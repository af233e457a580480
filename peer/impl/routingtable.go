package impl

import (
	"sort"
	"sync"

	"go.dedis.ch/kadem/peer"
	"go.dedis.ch/kadem/types"
)

// RoutingTable ranks known peers by XOR closeness to arbitrary target keys.
// One bucket per bit of the key space, most recently seen contacts first.
//
// - implements peer.NodeProvider
type RoutingTable struct {
	self    types.Contact
	buckets [types.KeyLength]kBucket
}

// NewRoutingTable returns a routing table owned by the given contact.
func NewRoutingTable(self types.Contact) *RoutingTable {
	return &RoutingTable{self: self}
}

// returns the index of the bucket which would contain given key
func (t *RoutingTable) bucketIndex(key types.Key) int {
	dist := t.self.Key.Distance(key)
	if dist.IsZero() {
		return 0
	}
	return dist.BitLen() - 1
}

// AddContact adds given contact to the appropriate bucket. The contact moves
// to the front of its bucket if already known.
func (t *RoutingTable) AddContact(contact types.Contact) {
	if contact.Equal(t.self) {
		return // don't add yourself
	}
	t.buckets[t.bucketIndex(contact.Key)].add(contact)
}

// KClosest implements peer.NodeProvider. The walk starts from the bucket the
// target would live in and widens until k contacts are gathered.
func (t *RoutingTable) KClosest(k int, target types.Key) []types.Contact {
	closest := make([]types.Contact, 0, k)

	index := t.bucketIndex(target)
	closest = append(closest, t.buckets[index].contactsCopy()...)

	for i := index - 1; i >= 0 && len(closest) < k; i-- {
		closest = append(closest, t.buckets[i].contactsCopy()...)
	}
	for i := index + 1; i < types.KeyLength && len(closest) < k; i++ {
		closest = append(closest, t.buckets[i].contactsCopy()...)
	}

	sortByDistance(closest, target)

	return closest[:min(len(closest), k)]
}

// FilterKClosest implements peer.NodeProvider. It never touches the buckets:
// only the given candidates are ranked.
func (t *RoutingTable) FilterKClosest(k int, target types.Key,
	candidates []types.Contact) []types.Contact {

	filtered := make([]types.Contact, 0, len(candidates))
	seen := make(map[types.Key]struct{}, len(candidates))

	for _, candidate := range candidates {
		if _, ok := seen[candidate.Key]; ok {
			continue
		}
		seen[candidate.Key] = struct{}{}
		filtered = append(filtered, candidate)
	}

	sortByDistance(filtered, target)

	return filtered[:min(len(filtered), k)]
}

// MarkVisited implements peer.NodeProvider. A visited contact is known to be
// alive, so it refreshes its bucket position.
func (t *RoutingTable) MarkVisited(contact types.Contact) {
	t.AddContact(contact)
}

// sorts contacts in ascending order of distance to target
func sortByDistance(contacts []types.Contact, target types.Key) {
	sort.Slice(contacts, func(i, j int) bool {
		return contacts[i].Distance(target).Less(contacts[j].Distance(target))
	})
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

/* ========== kBucket ========== */

// one k-bucket, most recently seen contact at index 0
type kBucket struct {
	sync.Mutex
	contacts []types.Contact
}

// Adds given contact to the bucket front, refreshing it if already present.
// A full bucket keeps its current contacts, per the least-recently seen
// eviction policy described in the Kademlia paper.
func (b *kBucket) add(contact types.Contact) bool {
	b.Lock()
	defer b.Unlock()

	for i, known := range b.contacts {
		if known.Equal(contact) {
			copy(b.contacts[1:i+1], b.contacts[:i])
			b.contacts[0] = contact
			return true
		}
	}

	if len(b.contacts) < peer.K {
		b.contacts = append([]types.Contact{contact}, b.contacts...)
		return true
	}

	// TODO: ping the least recently seen contact and evict it if unresponsive
	return false
}

func (b *kBucket) contactsCopy() []types.Contact {
	b.Lock()
	defer b.Unlock()

	res := make([]types.Contact, len(b.contacts))
	copy(res, b.contacts)
	return res
}
