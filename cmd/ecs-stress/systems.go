package main

import (
	"math/rand"

	"github.com/plus3/reactecs/ecs"
)

// Component ids used by the stress systems. Ids from fillerID up to the
// configured component count carry Filler instances.
const (
	positionID = iota
	velocityID
	healthID
	markerID
	fillerID
)

type Position struct{ X, Y float32 }

type Velocity struct{ DX, DY float32 }

type Health struct{ Current, Max int }

type Marker struct{}

type Filler struct{ N int }

func registerComponents(m *ecs.Manager) error {
	factories := map[int]ecs.ComponentFactory{
		positionID: func() ecs.Component { return &Position{} },
		velocityID: func() ecs.Component { return &Velocity{} },
		healthID:   func() ecs.Component { return &Health{} },
		markerID:   func() ecs.Component { return &Marker{} },
	}
	for id := fillerID; id < m.MaxComponents(); id++ {
		factories[id] = func() ecs.Component { return &Filler{} }
	}
	for id, factory := range factories {
		if err := m.RegisterComponent(id, factory); err != nil {
			return err
		}
	}
	return nil
}

// spawn creates an entity with position and health plus a random subset of
// the other components. Pooled instances are reset here, the engine hands
// them back as they were.
func spawn(m *ecs.Manager, rng *rand.Rand) *ecs.Entity {
	e := m.CreateEntity()

	if pos, err := ecs.Create[Position](e, positionID); err == nil {
		pos.X, pos.Y = rng.Float32()*100, rng.Float32()*100
	}
	if h, err := ecs.Create[Health](e, healthID); err == nil {
		h.Max = 50 + rng.Intn(50)
		h.Current = h.Max
	}
	if rng.Intn(2) == 0 {
		if vel, err := ecs.Create[Velocity](e, velocityID); err == nil {
			vel.DX, vel.DY = rng.Float32()*2-1, rng.Float32()*2-1
		}
	}
	for id := fillerID; id < m.MaxComponents(); id++ {
		if rng.Intn(4) == 0 {
			if f, err := e.CreateComponent(id, nil); err == nil {
				f.(*Filler).N = id
			}
		}
	}
	return e
}

type mover struct {
	Pos *Position `ecs:"0"`
	Vel *Velocity `ecs:"1"`
}

// MovementSystem integrates velocity into position.
type MovementSystem struct {
	manager *ecs.Manager
	movers  *ecs.View[mover]
}

func (s *MovementSystem) SetManager(m *ecs.Manager) { s.manager = m }

func (s *MovementSystem) Init() error {
	view, err := ecs.NewView[mover](s.manager)
	if err != nil {
		return err
	}
	s.movers = view
	return nil
}

func (s *MovementSystem) Execute(frame *ecs.UpdateFrame) {
	dt := float32(frame.DeltaTime)
	for m := range s.movers.Values() {
		m.Pos.X += m.Vel.DX * dt
		m.Pos.Y += m.Vel.DY * dt
	}
}

// DecaySystem wears down health and queues the destruction of entities that
// ran out. Marked entities are spared.
type DecaySystem struct {
	mortal    *ecs.Group
	Destroyed int
}

func (s *DecaySystem) SetManager(m *ecs.Manager) {
	s.mortal = m.GetGroup(ecs.AllOf(healthID).NoneOf(markerID))
}

func (s *DecaySystem) Execute(frame *ecs.UpdateFrame) {
	for e := range s.mortal.All() {
		h := ecs.Read[Health](e, healthID)
		h.Current--
		if h.Current <= 0 {
			frame.Commands.Destroy(e)
			s.Destroyed++
		}
	}
}

// ChurnSystem keeps the population moving: it spawns new entities and
// toggles velocity and marker components on random live ones.
type ChurnSystem struct {
	manager *ecs.Manager
	rng     *rand.Rand
	perTick int
	Spawned int
}

func NewChurnSystem(rng *rand.Rand, perTick int) *ChurnSystem {
	return &ChurnSystem{rng: rng, perTick: perTick}
}

func (s *ChurnSystem) SetManager(m *ecs.Manager) { s.manager = m }

func (s *ChurnSystem) Execute(frame *ecs.UpdateFrame) {
	live := frame.Manager.Entities()
	for i := 0; i < s.perTick && len(live) > 0; i++ {
		e := live[s.rng.Intn(len(live))]
		id := velocityID
		if s.rng.Intn(3) == 0 {
			id = markerID
		}
		if e.HasComponent(id) {
			frame.Commands.RemoveComponent(e, id)
		} else if id == velocityID {
			frame.Commands.AddComponent(e, id, &Velocity{DX: 1})
		} else {
			frame.Commands.AddComponent(e, id, &Marker{})
		}
	}

	frame.Commands.Defer(func() {
		for i := 0; i < s.perTick; i++ {
			spawn(s.manager, s.rng)
			s.Spawned++
		}
	})
}

// EventCounter observes group membership changes.
type EventCounter struct {
	Added   int
	Removed int
	Updated int
	subs    []func()
}

func (c *EventCounter) SetManager(m *ecs.Manager) {
	g := m.GetGroup(ecs.AllOf(positionID, velocityID))
	add := g.OnEntityAdd.Subscribe(func(ecs.GroupEvent) { c.Added++ })
	remove := g.OnEntityRemove.Subscribe(func(ecs.GroupEvent) { c.Removed++ })
	update := g.OnEntityUpdate.Subscribe(func(ecs.GroupUpdateEvent) { c.Updated++ })
	c.subs = append(c.subs, func() {
		g.OnEntityAdd.Unsubscribe(add)
		g.OnEntityRemove.Unsubscribe(remove)
		g.OnEntityUpdate.Unsubscribe(update)
	})
}

func (c *EventCounter) Free() {
	for _, unsubscribe := range c.subs {
		unsubscribe()
	}
	c.subs = nil
}
