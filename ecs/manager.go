package ecs

import (
	"fmt"
	"slices"

	"github.com/kamstrup/intmap"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Option configures a Manager.
type Option func(*Manager)

// WithName names the manager in logs and leak reports.
func WithName(name string) Option {
	return func(m *Manager) { m.name = name }
}

// WithInitialSerial sets the first serial id issued, and the value Reset
// returns to.
func WithInitialSerial(serial int) Option {
	return func(m *Manager) { m.initialSerial = serial }
}

// WithDebugInfo sets the diagnostics table. It must describe exactly
// maxComponents ids.
func WithDebugInfo(info *DebugInfo) Option {
	return func(m *Manager) { m.info = info }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithUncheckedRefs makes entities count references without validating
// owner identity.
func WithUncheckedRefs() Option {
	return func(m *Manager) { m.checkedRefs = false }
}

// Manager creates, recycles and destroys entities, owns the component pools
// and keeps every Group it handed out synchronised with component changes.
//
// A Manager and everything it creates must be confined to one goroutine.
type Manager struct {
	name          string
	maxComponents int
	initialSerial int
	serial        int
	checkedRefs   bool
	owner         *Owner
	info          *DebugInfo
	logger        *zap.Logger

	entities *intmap.Map[int, *Entity]
	cache    []*Entity
	pool     []*Entity
	leaked   *intmap.Map[int, *Entity]

	components  *componentPools
	groups      map[MatcherKey]*Group
	groupList   []*Group
	byComponent [][]*Group

	OnEntityCreate       Signal[*Entity]
	OnEntityReadyDestroy Signal[*Entity]
	OnEntityDestroy      Signal[*Entity]
	OnGroupCreate        Signal[*Group]
}

// NewManager creates a manager whose entities have maxComponents slots.
func NewManager(maxComponents int, opts ...Option) (*Manager, error) {
	if maxComponents <= 0 || maxComponents > BitSetWidth {
		return nil, fmt.Errorf("max components %d outside [1,%d]: %w", maxComponents, BitSetWidth, ErrConfig)
	}

	m := &Manager{
		name:          "manager",
		maxComponents: maxComponents,
		checkedRefs:   true,
		entities:      intmap.New[int, *Entity](256),
		leaked:        intmap.New[int, *Entity](16),
		components:    newComponentPools(maxComponents),
		groups:        make(map[MatcherKey]*Group),
		byComponent:   make([][]*Group, maxComponents),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.info == nil {
		m.info = DefaultDebugInfo(m.name, maxComponents)
	} else if len(m.info.Components) != maxComponents {
		return nil, fmt.Errorf("debug info describes %d components, manager has %d: %w",
			len(m.info.Components), maxComponents, ErrConfig)
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	m.logger = m.logger.Named("ecs").With(zap.String("manager", m.name))
	m.owner = NewOwner(m.name)
	m.serial = m.initialSerial

	return m, nil
}

// Name returns the manager's name.
func (m *Manager) Name() string { return m.name }

// MaxComponents returns the number of slots of every entity.
func (m *Manager) MaxComponents() int { return m.maxComponents }

// DebugInfo returns the diagnostics table.
func (m *Manager) DebugInfo() *DebugInfo { return m.info }

// RegisterComponent sets the factory used by CreateComponent when the id's
// pool is empty.
func (m *Manager) RegisterComponent(id int, factory ComponentFactory) error {
	if id < 0 || id >= m.maxComponents {
		return componentRangeError("register", id, m.maxComponents)
	}
	m.components.register(id, factory)
	return nil
}

func (m *Manager) newCounter(e *Entity) ReferenceCounter {
	if m.checkedRefs {
		return NewCheckedCounter(e)
	}
	return NewUncheckedCounter()
}

// CreateEntity returns a recycled entity when one is pooled, or a new one.
func (m *Manager) CreateEntity() *Entity {
	var e *Entity
	if n := len(m.pool); n > 0 {
		e = m.pool[n-1]
		m.pool[n-1] = nil
		m.pool = m.pool[:n-1]
		e.reuse(m.serial)
		m.logger.Debug("entity reused", zap.Int("serial", e.serial))
	} else {
		e = &Entity{}
		e.initialize(m.serial, m.maxComponents, m.components, m.info, m.newCounter(e))
	}
	m.serial++

	m.entities.Put(e.serial, e)
	m.cache = nil
	mustRef(e.AddRef(m.owner))

	e.OnComponentAdd.Subscribe(m.onComponentChanged)
	e.OnComponentRemove.Subscribe(m.onComponentChanged)
	e.OnComponentUpdate.Subscribe(m.onComponentUpdated)
	e.OnRelease.Subscribe(m.onEntityReleased)
	e.OnDestroy.Subscribe(m.onEntityDestroyed)

	// A bare entity already satisfies matchers that require nothing.
	for _, g := range m.groupList {
		if g.matcher.key.All == 0 && g.matcher.key.Any == 0 {
			g.handleEntity(e, NoComponent, nil)
		}
	}

	m.OnEntityCreate.emit(e)
	return e
}

// HasEntity reports whether e is live in this manager.
func (m *Manager) HasEntity(e *Entity) bool {
	live, ok := m.entities.Get(e.serial)
	return ok && live == e
}

// Entities returns the live entities ordered by serial. The slice is cached
// until the live set changes and must not be modified.
func (m *Manager) Entities() []*Entity {
	if m.cache == nil {
		m.cache = make([]*Entity, 0, m.entities.Len())
		m.entities.ForEach(func(_ int, e *Entity) bool {
			m.cache = append(m.cache, e)
			return true
		})
		slices.SortFunc(m.cache, func(a, b *Entity) int { return a.serial - b.serial })
	}
	return m.cache
}

// EntityCount returns the number of live entities.
func (m *Manager) EntityCount() int { return m.entities.Len() }

// PooledEntityCount returns the number of entities waiting for reuse.
func (m *Manager) PooledEntityCount() int { return len(m.pool) }

// LeakedEntityCount returns the number of destroyed entities still held by
// external owners.
func (m *Manager) LeakedEntityCount() int { return m.leaked.Len() }

// GroupCount returns the number of cached groups.
func (m *Manager) GroupCount() int { return len(m.groupList) }

// GetGroup returns the group for matcher, building it on first request.
// Value-equal matchers always yield the same group.
func (m *Manager) GetGroup(matcher *Matcher) *Group {
	key := matcher.Key()
	if g, ok := m.groups[key]; ok {
		return g
	}

	g := newGroup(matcher.Clone())
	for _, e := range m.Entities() {
		g.handleEntityMute(e)
	}

	m.groups[key] = g
	m.groupList = append(m.groupList, g)
	g.matcher.Mix().Each(func(id int) bool {
		if id < m.maxComponents {
			m.byComponent[id] = append(m.byComponent[id], g)
		}
		return true
	})

	m.logger.Debug("group created", zap.Stringer("group", g), zap.Int("members", g.Len()))
	m.OnGroupCreate.emit(g)
	return g
}

// ClearComponentsPool discards the pooled instances of one component id.
func (m *Manager) ClearComponentsPool(id int) {
	if id < 0 || id >= m.maxComponents {
		return
	}
	m.components.clear(id)
}

// ClearAllComponentsPools discards every pooled component instance.
func (m *Manager) ClearAllComponentsPools() {
	m.components.clearAll()
}

// DestroyAllEntities destroys every live entity. It fails with a
// ReferenceLeakError when destroyed entities remain referenced afterwards.
func (m *Manager) DestroyAllEntities() error {
	var err error
	for _, e := range slices.Clone(m.Entities()) {
		// An earlier destroy handler may already have taken it.
		if !m.HasEntity(e) {
			continue
		}
		err = multierr.Append(err, e.Destroy())
	}

	if m.leaked.Len() > 0 {
		leak := &ReferenceLeakError{Manager: m.name}
		for _, e := range m.leakedEntities() {
			leak.Entities = append(leak.Entities, e.String())
		}
		m.logger.Warn("entities still referenced after destroy", zap.Strings("entities", leak.Entities))
		err = multierr.Append(err, leak)
	}
	return err
}

func (m *Manager) leakedEntities() []*Entity {
	out := make([]*Entity, 0, m.leaked.Len())
	m.leaked.ForEach(func(_ int, e *Entity) bool {
		out = append(out, e)
		return true
	})
	slices.SortFunc(out, func(a, b *Entity) int { return a.serial - b.serial })
	return out
}

// Reset destroys every entity and rewinds the serial counter. The counter
// is left untouched when entities leak, so serials stay unique.
func (m *Manager) Reset() error {
	if err := m.DestroyAllEntities(); err != nil {
		return err
	}
	m.serial = m.initialSerial
	return nil
}

// ClearSignals drops every subscriber of the manager's own signals.
func (m *Manager) ClearSignals() {
	m.OnEntityCreate.clear()
	m.OnEntityReadyDestroy.clear()
	m.OnEntityDestroy.clear()
	m.OnGroupCreate.clear()
}

func (m *Manager) onComponentChanged(ev ComponentEvent) {
	for _, g := range m.byComponent[ev.ID] {
		g.handleEntity(ev.Entity, ev.ID, ev.Component)
	}
}

func (m *Manager) onComponentUpdated(ev ComponentUpdateEvent) {
	for _, g := range m.byComponent[ev.ID] {
		g.updateEntity(ev.Entity, ev.ID, ev.Old, ev.New)
	}
}

// onEntityReleased is the only path that returns an entity to the pool.
func (m *Manager) onEntityReleased(e *Entity) {
	if e.enabled {
		m.logger.Warn("live entity lost all references", zap.Stringer("entity", e))
		return
	}
	e.OnRelease.clear()
	if leaked, ok := m.leaked.Get(e.serial); ok && leaked == e {
		m.leaked.Del(e.serial)
	}
	m.pool = append(m.pool, e)
	m.logger.Debug("entity recycled", zap.Int("serial", e.serial))
}

func (m *Manager) onEntityDestroyed(e *Entity) {
	if !m.HasEntity(e) {
		m.logger.Error("destroy of entity not owned by manager", zap.Stringer("entity", e))
		return
	}
	m.entities.Del(e.serial)
	m.cache = nil

	m.OnEntityReadyDestroy.emit(e)

	e.destroyInner()
	// Groups that never saw one of e's components still hold it.
	for _, g := range m.groupList {
		g.removeEntity(e, NoComponent, nil)
	}

	m.OnEntityDestroy.emit(e)

	if e.RefCount() > 1 {
		m.leaked.Put(e.serial, e)
		m.logger.Debug("entity destroyed while referenced",
			zap.Int("serial", e.serial), zap.Int("refs", e.RefCount()-1))
	}
	mustRef(e.RemoveRef(m.owner))
}
