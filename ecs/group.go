package ecs

import (
	"iter"
	"slices"

	"github.com/kamstrup/intmap"
)

// GroupEvent is emitted when an entity enters or leaves a group. ID and
// Component describe the change that caused it; ID is NoComponent when the
// cause was entity creation or destruction.
type GroupEvent struct {
	Group     *Group
	Entity    *Entity
	ID        int
	Component Component
}

// GroupUpdateEvent is emitted when a component of a member is replaced.
type GroupUpdateEvent struct {
	Group  *Group
	Entity *Entity
	ID     int
	Old    Component
	New    Component
}

// Group is the live set of enabled entities matching one Matcher. Its
// Manager keeps it up to date as components change; it is never rescanned.
//
// A group holds one reference on each member, so an indexed entity is never
// recycled out from under it.
type Group struct {
	matcher *Matcher
	owner   *Owner
	members *intmap.Map[int, *Entity]
	cache   []*Entity
	// releasing holds former members whose remove notification is still
	// being delivered; the group's reference on them is not yet dropped.
	releasing *intmap.Map[int, *Entity]

	OnEntityAdd    Signal[GroupEvent]
	OnEntityRemove Signal[GroupEvent]
	OnEntityUpdate Signal[GroupUpdateEvent]
}

func newGroup(matcher *Matcher) *Group {
	g := &Group{
		matcher: matcher,
		members:   intmap.New[int, *Entity](64),
		releasing: intmap.New[int, *Entity](4),
	}
	g.owner = NewOwner(g.String())
	return g
}

// Matcher returns the group's matcher. It must not be modified.
func (g *Group) Matcher() *Matcher { return g.matcher }

// Len returns the number of members.
func (g *Group) Len() int { return g.members.Len() }

// Has reports whether e is a member.
func (g *Group) Has(e *Entity) bool {
	m, ok := g.members.Get(e.serial)
	return ok && m == e
}

// Entities returns the members ordered by serial. The slice is cached until
// membership changes and must not be modified.
func (g *Group) Entities() []*Entity {
	if g.cache == nil {
		g.cache = make([]*Entity, 0, g.members.Len())
		g.members.ForEach(func(_ int, e *Entity) bool {
			g.cache = append(g.cache, e)
			return true
		})
		slices.SortFunc(g.cache, func(a, b *Entity) int { return a.serial - b.serial })
	}
	return g.cache
}

// AppendEntities appends the members to dst and returns the extended slice.
func (g *Group) AppendEntities(dst []*Entity) []*Entity {
	return append(dst, g.Entities()...)
}

// All iterates over a snapshot of the members, so the group may change
// while the loop runs.
func (g *Group) All() iter.Seq[*Entity] {
	return func(yield func(*Entity) bool) {
		for _, e := range g.Entities() {
			if !yield(e) {
				return
			}
		}
	}
}

// ClearSignals drops every subscriber of the group.
func (g *Group) ClearSignals() {
	g.OnEntityAdd.clear()
	g.OnEntityRemove.clear()
	g.OnEntityUpdate.clear()
}

func (g *Group) String() string {
	return "group(" + g.matcher.String() + ")"
}

func (g *Group) accepts(e *Entity) bool {
	return e.enabled && g.matcher.Matches(e)
}

// handleEntityMute classifies e without notifying subscribers. Used to seed
// a new group from the existing entities.
func (g *Group) handleEntityMute(e *Entity) {
	if g.accepts(e) {
		g.addMute(e)
	} else {
		g.removeMute(e)
	}
}

func (g *Group) addMute(e *Entity) bool {
	if !e.enabled || g.Has(e) {
		return false
	}
	g.members.Put(e.serial, e)
	g.cache = nil
	if !g.takeReleasing(e) {
		mustRef(e.AddRef(g.owner))
	}
	return true
}

// takeReleasing hands the reference still held on a leaving entity over to
// its re-admission.
func (g *Group) takeReleasing(e *Entity) bool {
	if r, ok := g.releasing.Get(e.serial); ok && r == e {
		g.releasing.Del(e.serial)
		return true
	}
	return false
}

func (g *Group) removeMute(e *Entity) bool {
	if !g.Has(e) {
		return false
	}
	g.members.Del(e.serial)
	g.cache = nil
	mustRef(e.RemoveRef(g.owner))
	return true
}

// handleEntity classifies e after a component change and notifies on a
// membership flip.
func (g *Group) handleEntity(e *Entity, id int, c Component) {
	if g.accepts(e) {
		g.addEntity(e, id, c)
	} else {
		g.removeEntity(e, id, c)
	}
}

func (g *Group) addEntity(e *Entity, id int, c Component) {
	if g.addMute(e) {
		g.OnEntityAdd.emit(GroupEvent{Group: g, Entity: e, ID: id, Component: c})
	}
}

// removeEntity notifies before dropping the group's reference, so
// subscribers still see a referenced entity. A subscriber that makes the
// entity match again takes that reference over instead.
func (g *Group) removeEntity(e *Entity, id int, c Component) {
	if !g.Has(e) {
		return
	}
	g.members.Del(e.serial)
	g.cache = nil
	g.releasing.Put(e.serial, e)
	g.OnEntityRemove.emit(GroupEvent{Group: g, Entity: e, ID: id, Component: c})
	if g.takeReleasing(e) {
		mustRef(e.RemoveRef(g.owner))
	}
}

// updateEntity reports a replaced component of a member as remove, add and
// update, in that order, without touching membership. A subscriber that
// takes the entity out of the group cuts the sequence short.
func (g *Group) updateEntity(e *Entity, id int, old, c Component) {
	if !g.Has(e) {
		return
	}
	g.OnEntityRemove.emit(GroupEvent{Group: g, Entity: e, ID: id, Component: old})
	if !g.Has(e) {
		return
	}
	g.OnEntityAdd.emit(GroupEvent{Group: g, Entity: e, ID: id, Component: c})
	if !g.Has(e) {
		return
	}
	g.OnEntityUpdate.emit(GroupUpdateEvent{Group: g, Entity: e, ID: id, Old: old, New: c})
}
