package ecs

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// NoComponent is the component id carried by group notifications that were
// not caused by a component change (entity creation and destruction).
const NoComponent = -1

// ComponentEvent is emitted when a slot is filled or emptied.
type ComponentEvent struct {
	Entity    *Entity
	ID        int
	Component Component
}

// ComponentUpdateEvent is emitted when an occupied slot is replaced.
type ComponentUpdateEvent struct {
	Entity *Entity
	ID     int
	Old    Component
	New    Component
}

// Entity is a fixed-size array of component slots with a bitmask summarising
// which slots are occupied. Entities are created, recycled and destroyed by a
// Manager; they are never constructed directly.
//
// Every mutation is refused once the entity is disabled, which happens when
// its Manager finishes destroying it.
type Entity struct {
	serial int
	// generation counts lifetimes of this object and is never rewound,
	// unlike serial after a Manager reset.
	generation uint64
	enabled    bool
	released   bool

	slots []Component
	mask  BitSet32
	pools *componentPools
	info  *DebugInfo
	refs  ReferenceCounter

	all []Component
	str string

	OnComponentAdd    Signal[ComponentEvent]
	OnComponentRemove Signal[ComponentEvent]
	OnComponentUpdate Signal[ComponentUpdateEvent]
	OnRelease         Signal[*Entity]
	OnDestroy         Signal[*Entity]
}

// initialize is the one-time setup of a freshly constructed entity.
func (e *Entity) initialize(serial, maxComponents int, pools *componentPools, info *DebugInfo, refs ReferenceCounter) {
	e.slots = make([]Component, maxComponents)
	e.pools = pools
	e.info = info
	e.refs = refs
	e.reuse(serial)
}

// reuse prepares a recycled entity. Its slots are already empty.
func (e *Entity) reuse(serial int) {
	e.serial = serial
	e.generation++
	e.enabled = true
	e.released = false
	e.str = ""
}

// Serial returns the id issued by the Manager for the current lifetime.
func (e *Entity) Serial() int { return e.serial }

// Enabled reports whether the entity accepts mutations.
func (e *Entity) Enabled() bool { return e.enabled }

// Mask returns the set of occupied slots.
func (e *Entity) Mask() BitSet32 { return e.mask }

// RefCount returns the number of owners holding the entity.
func (e *Entity) RefCount() int { return e.refs.Count() }

// MaxComponents returns the number of slots.
func (e *Entity) MaxComponents() int { return len(e.slots) }

func (e *Entity) inRange(id int) bool {
	return id >= 0 && id < len(e.slots)
}

func (e *Entity) disabledError(op string, id int) error {
	return fmt.Errorf("%s %s on %s: entity is not enabled: %w", op, e.componentLabel(id), e, ErrInvalidState)
}

func (e *Entity) componentLabel(id int) string {
	if id == NoComponent {
		return "entity"
	}
	return "component " + e.info.Name(id)
}

// AddComponent stores c in slot id.
func (e *Entity) AddComponent(id int, c Component) error {
	if !e.enabled {
		return e.disabledError("add", id)
	}
	if !e.inRange(id) {
		return componentRangeError("add", id, len(e.slots))
	}
	if c == nil {
		return fmt.Errorf("add %s on %s: nil component: %w", e.componentLabel(id), e, ErrInvalidState)
	}
	if e.slots[id] != nil {
		return fmt.Errorf("add %s on %s: %w", e.componentLabel(id), e, ErrDuplicateComponent)
	}

	e.slots[id] = c
	e.mask.Set(id, true)
	e.all = nil
	e.str = ""

	e.OnComponentAdd.emit(ComponentEvent{Entity: e, ID: id, Component: c})
	return nil
}

// RemoveComponent empties slot id. Removing an absent component does nothing.
func (e *Entity) RemoveComponent(id int) error {
	if !e.enabled {
		return e.disabledError("remove", id)
	}
	if !e.HasComponent(id) {
		return nil
	}
	return e.UpdateComponent(id, nil)
}

// UpdateComponent replaces slot id with c. An empty slot behaves like
// AddComponent; a nil c empties the slot. The replaced instance goes back to
// the component pool.
func (e *Entity) UpdateComponent(id int, c Component) error {
	if !e.enabled {
		return e.disabledError("update", id)
	}
	if !e.inRange(id) {
		return componentRangeError("update", id, len(e.slots))
	}
	if e.slots[id] == nil {
		if c == nil {
			return nil
		}
		return e.AddComponent(id, c)
	}
	e.replace(id, c)
	return nil
}

// replace swaps an occupied slot. Removal is an update to nil so groups see
// a single code path for both.
func (e *Entity) replace(id int, c Component) {
	old := e.slots[id]
	e.all = nil

	if c != nil {
		e.slots[id] = c
		e.OnComponentUpdate.emit(ComponentUpdateEvent{Entity: e, ID: id, Old: old, New: c})
	} else {
		e.slots[id] = nil
		e.mask.Set(id, false)
		e.str = ""
		e.OnComponentRemove.emit(ComponentEvent{Entity: e, ID: id, Component: old})
	}

	if !sameComponent(old, c) {
		e.pools.push(id, old)
	}
}

// RemoveAllComponents empties every slot in ascending id order.
func (e *Entity) RemoveAllComponents() error {
	if !e.enabled {
		return e.disabledError("remove all", NoComponent)
	}
	e.removeAll()
	return nil
}

func (e *Entity) removeAll() {
	for id := range e.slots {
		if e.slots[id] != nil {
			e.replace(id, nil)
		}
	}
}

// GetComponent returns the component in slot id, or nil when it is empty.
func (e *Entity) GetComponent(id int) (Component, error) {
	if !e.enabled {
		return nil, e.disabledError("get", id)
	}
	if !e.inRange(id) {
		return nil, nil
	}
	return e.slots[id], nil
}

// HasComponent reports whether slot id is occupied.
func (e *Entity) HasComponent(id int) bool {
	return e.inRange(id) && e.slots[id] != nil
}

// HasAllComponents reports whether every slot in mask is occupied.
func (e *Entity) HasAllComponents(mask BitSet32) bool {
	return e.mask.ContainsAll(mask)
}

// HasAnyComponents reports whether at least one slot in mask is occupied.
func (e *Entity) HasAnyComponents(mask BitSet32) bool {
	return e.mask.ContainsAny(mask)
}

// AllComponents returns the occupied slots in ascending id order. The slice
// is cached until the next add or remove and must not be modified.
func (e *Entity) AllComponents() []Component {
	if e.all == nil {
		e.all = make([]Component, 0, e.mask.Len())
		for _, c := range e.slots {
			if c != nil {
				e.all = append(e.all, c)
			}
		}
	}
	return e.all
}

// CreateComponent takes an instance from the id's pool, or builds one with
// factory (or the factory registered on the Manager), and adds it.
func (e *Entity) CreateComponent(id int, factory ComponentFactory) (Component, error) {
	c, err := e.popComponent(id, factory)
	if err != nil {
		return nil, err
	}
	if err := e.addPooled(id, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (e *Entity) popComponent(id int, factory ComponentFactory) (Component, error) {
	if !e.enabled {
		return nil, e.disabledError("create", id)
	}
	if !e.inRange(id) {
		return nil, componentRangeError("create", id, len(e.slots))
	}
	if e.slots[id] != nil {
		return nil, fmt.Errorf("create %s on %s: %w", e.componentLabel(id), e, ErrDuplicateComponent)
	}
	c := e.pools.pop(id, factory)
	if c == nil {
		return nil, fmt.Errorf("create %s on %s: no factory registered: %w", e.componentLabel(id), e, ErrConfig)
	}
	return c, nil
}

// addPooled adds a popped instance, handing it back to the pool on failure.
func (e *Entity) addPooled(id int, c Component) error {
	if err := e.AddComponent(id, c); err != nil {
		e.pools.push(id, c)
		return err
	}
	return nil
}

// AddRef registers owner as a holder of the entity.
func (e *Entity) AddRef(owner *Owner) error {
	return e.refs.AddRef(owner)
}

// RemoveRef drops owner's reference. The release notification fires once,
// when the last reference goes away.
func (e *Entity) RemoveRef(owner *Owner) error {
	if err := e.refs.RemoveRef(owner); err != nil {
		return err
	}
	if e.refs.Count() == 0 && !e.released {
		e.released = true
		e.OnRelease.emit(e)
	}
	return nil
}

// Destroy asks the owning Manager to destroy the entity. It only emits the
// destroy notification; the Manager does the work.
func (e *Entity) Destroy() error {
	if !e.enabled {
		return e.disabledError("destroy", NoComponent)
	}
	e.OnDestroy.emit(e)
	return nil
}

// destroyInner disables the entity, empties its slots and detaches every
// subscriber except the release handlers. Disabling first keeps groups from
// re-admitting the entity while its components go away.
func (e *Entity) destroyInner() {
	e.enabled = false
	e.removeAll()

	e.OnComponentAdd.clear()
	e.OnComponentRemove.clear()
	e.OnComponentUpdate.clear()
	e.OnDestroy.clear()
}

// String renders "entity_<serial>(name.type, ...)" over occupied slots.
func (e *Entity) String() string {
	if e.str != "" {
		return e.str
	}
	var sb strings.Builder
	sb.WriteString("entity_")
	sb.WriteString(strconv.Itoa(e.serial))
	sb.WriteByte('(')
	first := true
	for id, c := range e.slots {
		if c == nil {
			continue
		}
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(e.info.Label(id))
	}
	sb.WriteByte(')')
	e.str = sb.String()
	return e.str
}

// sameComponent reports whether a and b are the same instance. Values of
// non-comparable types are never considered the same.
func sameComponent(a, b Component) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	t := reflect.TypeOf(a)
	if t != reflect.TypeOf(b) || !t.Comparable() {
		return false
	}
	return a == b
}

// Read returns slot id as *T, or nil when the slot is empty, holds another
// type, or the entity is disabled.
func Read[T any](e *Entity, id int) *T {
	c, err := e.GetComponent(id)
	if err != nil || c == nil {
		return nil
	}
	v, _ := c.(*T)
	return v
}

// Create is the typed form of CreateComponent, building new instances with
// new(T) when the pool is empty.
func Create[T any](e *Entity, id int) (*T, error) {
	c, err := e.popComponent(id, func() Component { return new(T) })
	if err != nil {
		return nil, err
	}
	v, ok := c.(*T)
	if !ok {
		// Mismatched instances stay pooled for whoever registered them.
		e.pools.push(id, c)
		return nil, fmt.Errorf("create component %d: pooled instance is %T, not *%s: %w",
			id, c, reflect.TypeFor[T](), ErrInvalidState)
	}
	if err := e.addPooled(id, v); err != nil {
		return nil, err
	}
	return v, nil
}
