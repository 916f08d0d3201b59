package ecs

import "fmt"

// Owner is an opaque reference holder. Owners compare by identity: two
// owners created with the same label are still distinct holders.
type Owner struct {
	label string
}

// NewOwner creates a new reference holder. The label is only used in
// diagnostics.
func NewOwner(label string) *Owner {
	return &Owner{label: label}
}

func (o *Owner) String() string {
	if o == nil {
		return "<nil owner>"
	}
	return o.label
}

// ReferenceCounter counts the owners currently holding a reference.
type ReferenceCounter interface {
	Count() int
	AddRef(owner *Owner) error
	RemoveRef(owner *Owner) error
}

// uncheckedCounter only tracks the number of references. It never rejects
// an operation.
type uncheckedCounter struct {
	n int
}

// NewUncheckedCounter returns a counter that trusts its callers.
func NewUncheckedCounter() ReferenceCounter {
	return &uncheckedCounter{}
}

func (c *uncheckedCounter) Count() int { return c.n }

func (c *uncheckedCounter) AddRef(*Owner) error {
	c.n++
	return nil
}

func (c *uncheckedCounter) RemoveRef(*Owner) error {
	if c.n > 0 {
		c.n--
	}
	return nil
}

// checkedCounter keeps the identity of every owner and rejects duplicate
// acquisition and release of an unheld reference.
type checkedCounter struct {
	host   fmt.Stringer
	owners map[*Owner]struct{}
}

// NewCheckedCounter returns a counter that validates owner identity. host is
// named in error messages.
func NewCheckedCounter(host fmt.Stringer) ReferenceCounter {
	return &checkedCounter{
		host:   host,
		owners: make(map[*Owner]struct{}, 4),
	}
}

func (c *checkedCounter) Count() int { return len(c.owners) }

func (c *checkedCounter) AddRef(owner *Owner) error {
	if owner == nil {
		return fmt.Errorf("nil owner cannot reference %s: %w", c.host, ErrReferenceProtocol)
	}
	if _, held := c.owners[owner]; held {
		return fmt.Errorf("owner %s already references %s: %w", owner, c.host, ErrReferenceProtocol)
	}
	c.owners[owner] = struct{}{}
	return nil
}

func (c *checkedCounter) RemoveRef(owner *Owner) error {
	if _, held := c.owners[owner]; !held {
		return fmt.Errorf("owner %s does not reference %s: %w", owner, c.host, ErrReferenceProtocol)
	}
	delete(c.owners, owner)
	return nil
}

// mustRef is used for references the engine takes on its own behalf. A
// failure there means the engine's bookkeeping is corrupt.
func mustRef(err error) {
	if err != nil {
		panic(err)
	}
}
