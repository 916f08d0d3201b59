package ecs

// Component is an application-defined record. The engine identifies it only
// by the slot id it occupies; a nil Component means an empty slot.
//
// Components should be pointers: the engine hands released instances back
// through the pools and relies on identity to tell instances apart.
type Component any

// ComponentFactory builds a fresh component when a pool is empty.
type ComponentFactory func() Component

// componentPools holds one free list per component id, plus the factory
// registered for that id. A Manager owns exactly one componentPools and
// shares it with every entity it creates.
type componentPools struct {
	free      [][]Component
	factories []ComponentFactory
}

func newComponentPools(size int) *componentPools {
	return &componentPools{
		free:      make([][]Component, size),
		factories: make([]ComponentFactory, size),
	}
}

// register sets the factory used when the id's free list is empty.
func (p *componentPools) register(id int, factory ComponentFactory) {
	p.factories[id] = factory
}

// push returns a released instance to its id's free list. Fields are left
// as they are; resetting them is up to whoever pops the instance.
func (p *componentPools) push(id int, c Component) {
	if c == nil {
		return
	}
	p.free[id] = append(p.free[id], c)
}

// pop hands out a pooled instance, falling back to factory and then to the
// registered factory. It returns nil when none of them can produce one.
func (p *componentPools) pop(id int, factory ComponentFactory) Component {
	if n := len(p.free[id]); n > 0 {
		c := p.free[id][n-1]
		p.free[id][n-1] = nil
		p.free[id] = p.free[id][:n-1]
		return c
	}
	if factory == nil {
		factory = p.factories[id]
	}
	if factory == nil {
		return nil
	}
	return factory()
}

func (p *componentPools) len(id int) int {
	return len(p.free[id])
}

func (p *componentPools) clear(id int) {
	clear(p.free[id])
	p.free[id] = p.free[id][:0]
}

func (p *componentPools) clearAll() {
	for id := range p.free {
		p.clear(id)
	}
}
