package types

import "fmt"

// Contact pairs a node Key with a network reachable address.
// Ordering in sorted sets is by Key.
type Contact struct {
	Key  Key
	Addr string
}

// NewContact builds the contact for a network address, deriving its key.
func NewContact(addr string) Contact {
	return Contact{Key: NewKey(addr), Addr: addr}
}

// Distance returns the XOR distance between the contact's key and target.
func (c Contact) Distance(target Key) Key {
	return c.Key.Distance(target)
}

// Less reports whether c sorts before o (by key).
func (c Contact) Less(o Contact) bool {
	return c.Key.Less(o.Key)
}

// Equal reports whether both contacts carry the same key.
func (c Contact) Equal(o Contact) bool {
	return c.Key.Cmp(o.Key) == 0
}

func (c Contact) String() string {
	return fmt.Sprintf("%s@%s", c.Key, c.Addr)
}
