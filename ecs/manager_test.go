package ecs_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/plus3/reactecs/ecs"
)

func TestNewManager(t *testing.T) {
	t.Run("component range", func(t *testing.T) {
		_, err := ecs.NewManager(0)
		assert.ErrorIs(t, err, ecs.ErrConfig)
		_, err = ecs.NewManager(33)
		assert.ErrorIs(t, err, ecs.ErrConfig)

		m, err := ecs.NewManager(32)
		require.NoError(t, err)
		assert.Equal(t, 32, m.MaxComponents())
	})

	t.Run("debug info must match", func(t *testing.T) {
		_, err := ecs.NewManager(3, ecs.WithDebugInfo(testDebugInfo()))
		assert.ErrorIs(t, err, ecs.ErrConfig)
	})

	t.Run("default debug info", func(t *testing.T) {
		m, err := ecs.NewManager(2, ecs.WithName("world"))
		require.NoError(t, err)
		assert.Equal(t, "world", m.Name())
		assert.Equal(t, "1", m.DebugInfo().Name(1))
	})
}

func TestManagerCreateEntity(t *testing.T) {
	t.Run("serials increase", func(t *testing.T) {
		m := newTestManager(t, ecs.WithInitialSerial(10))
		a, b := m.CreateEntity(), m.CreateEntity()
		assert.Equal(t, 10, a.Serial())
		assert.Equal(t, 11, b.Serial())
		assert.True(t, a.Enabled())
		assert.Equal(t, 1, a.RefCount())
		assert.Equal(t, testComponentCount, a.MaxComponents())
		assert.Equal(t, []*ecs.Entity{a, b}, m.Entities())
		assert.Equal(t, 2, m.EntityCount())
	})

	t.Run("create notification", func(t *testing.T) {
		m := newTestManager(t)
		var got *ecs.Entity
		m.OnEntityCreate.Subscribe(func(e *ecs.Entity) { got = e })
		e := m.CreateEntity()
		assert.Same(t, e, got)
	})

	t.Run("recycles destroyed entities", func(t *testing.T) {
		m := newTestManager(t)
		e := m.CreateEntity()
		require.NoError(t, e.AddComponent(PositionID, &Position{}))
		require.NoError(t, e.Destroy())
		assert.Equal(t, 1, m.PooledEntityCount())
		assert.False(t, m.HasEntity(e))

		reused := m.CreateEntity()
		assert.Same(t, e, reused)
		assert.Equal(t, 1, reused.Serial())
		assert.True(t, reused.Enabled())
		assert.True(t, reused.Mask().IsEmpty())
		assert.Equal(t, "entity_1()", reused.String())
		assert.Equal(t, 0, m.PooledEntityCount())

		// The reused entity is wired again.
		g := m.GetGroup(ecs.AllOf(PositionID))
		require.NoError(t, reused.AddComponent(PositionID, &Position{}))
		assert.True(t, g.Has(reused))
	})
}

func TestManagerGetGroup(t *testing.T) {
	m := newTestManager(t)
	a := m.GetGroup(ecs.AllOf(PositionID, VelocityID).NoneOf(TagID))
	b := m.GetGroup(ecs.NoneOf(TagID).AllOf(VelocityID, PositionID))
	c := m.GetGroup(ecs.AllOf(PositionID))

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, m.GroupCount())

	t.Run("group does not follow later matcher edits", func(t *testing.T) {
		matcher := ecs.AllOf(HealthID)
		g := m.GetGroup(matcher)
		matcher.AllOf(NameID)

		e := m.CreateEntity()
		require.NoError(t, e.AddComponent(HealthID, &Health{}))
		assert.True(t, g.Has(e))
		assert.Equal(t, ecs.MergeIDs(HealthID), g.Matcher().All())
	})
}

func TestManagerReferences(t *testing.T) {
	m := newTestManager(t)
	pos := m.GetGroup(ecs.AllOf(PositionID))
	either := m.GetGroup(ecs.AnyOf(PositionID, VelocityID))
	m.GetGroup(ecs.AllOf(HealthID))

	e := m.CreateEntity()
	require.NoError(t, e.AddComponent(PositionID, &Position{}))
	holder := ecs.NewOwner("holder")
	require.NoError(t, e.AddRef(holder))

	assert.True(t, pos.Has(e))
	assert.True(t, either.Has(e))
	assert.Equal(t, 1+2+1, e.RefCount())

	require.NoError(t, e.RemoveComponent(PositionID))
	assert.Equal(t, 1+0+1, e.RefCount())

	require.NoError(t, e.RemoveRef(holder))
	assert.Equal(t, 1, e.RefCount())
	assert.True(t, m.HasEntity(e))
	assert.Equal(t, 0, m.PooledEntityCount(), "live entities are never pooled")
}

func TestManagerScenarios(t *testing.T) {
	t.Run("leaving a group on component removal", func(t *testing.T) {
		m, err := ecs.NewManager(32)
		require.NoError(t, err)
		e := m.CreateEntity()
		require.NoError(t, e.AddComponent(0, "A"))
		require.NoError(t, e.AddComponent(1, "B"))

		g := m.GetGroup(ecs.AllOf(0, 1))
		assert.Equal(t, []*ecs.Entity{e}, g.Entities())

		var removed []*ecs.Entity
		g.OnEntityRemove.Subscribe(func(ev ecs.GroupEvent) { removed = append(removed, ev.Entity) })

		require.NoError(t, e.RemoveComponent(1))
		assert.Equal(t, 0, g.Len())
		assert.Equal(t, []*ecs.Entity{e}, removed)
	})

	t.Run("managers are independent", func(t *testing.T) {
		first := newTestManager(t)
		second := newTestManager(t)
		a := first.CreateEntity()
		b := second.CreateEntity()
		require.NoError(t, a.AddComponent(PositionID, &Position{}))
		require.NoError(t, b.AddComponent(PositionID, &Position{}))
		g := second.GetGroup(ecs.AllOf(PositionID))

		require.NoError(t, a.RemoveComponent(PositionID))
		require.NoError(t, first.DestroyAllEntities())

		assert.Equal(t, 0, first.EntityCount())
		assert.Equal(t, 1, first.PooledEntityCount())
		assert.Equal(t, 1, first.PooledComponentCount(PositionID))
		assert.Equal(t, 1, second.EntityCount())
		assert.Equal(t, 0, second.PooledComponentCount(PositionID))
		assert.True(t, b.Enabled())
		assert.True(t, g.Has(b))
		assert.NotSame(t, a, second.CreateEntity())
	})

	t.Run("removing an absent component changes nothing", func(t *testing.T) {
		m := newTestManager(t)
		g := m.GetGroup(ecs.NoneOf(HealthID))
		rec := &recorder{}
		rec.watch(g)
		e := m.CreateEntity()
		rec.events = nil
		before := e.String()

		require.NoError(t, e.RemoveComponent(HealthID))
		assert.Empty(t, rec.events)
		assert.Equal(t, before, e.String())
		assert.True(t, g.Has(e))
	})

	t.Run("adding to a destroyed entity fails", func(t *testing.T) {
		m := newTestManager(t)
		e := m.CreateEntity()
		require.NoError(t, e.Destroy())
		assert.ErrorIs(t, e.AddComponent(PositionID, &Position{}), ecs.ErrInvalidState)
	})

	t.Run("destroying a referenced entity defers recycling", func(t *testing.T) {
		m := newTestManager(t)
		e := m.CreateEntity()
		holder := ecs.NewOwner("holder")
		require.NoError(t, e.AddRef(holder))

		require.NoError(t, e.Destroy())
		assert.False(t, m.HasEntity(e))
		assert.Equal(t, 1, m.LeakedEntityCount())
		assert.Equal(t, 0, m.PooledEntityCount())
		assert.NotSame(t, e, m.CreateEntity())

		require.NoError(t, e.RemoveRef(holder))
		assert.Equal(t, 0, m.LeakedEntityCount())
		assert.Equal(t, 1, m.PooledEntityCount())
		assert.Same(t, e, m.CreateEntity())
	})
}

func TestManagerDestroy(t *testing.T) {
	t.Run("notification order", func(t *testing.T) {
		m := newTestManager(t)
		var order []string
		m.OnEntityReadyDestroy.Subscribe(func(e *ecs.Entity) {
			order = append(order, "ready")
			assert.True(t, e.HasComponent(PositionID), "components still present")
		})
		m.OnEntityDestroy.Subscribe(func(e *ecs.Entity) {
			order = append(order, "destroyed")
			assert.False(t, e.Enabled())
			assert.True(t, e.Mask().IsEmpty())
		})

		e := m.CreateEntity()
		require.NoError(t, e.AddComponent(PositionID, &Position{}))
		e.OnRelease.Subscribe(func(*ecs.Entity) { order = append(order, "released") })
		require.NoError(t, e.Destroy())

		assert.Equal(t, []string{"ready", "destroyed", "released"}, order)
	})

	t.Run("destroy detaches entity subscribers", func(t *testing.T) {
		m := newTestManager(t)
		e := m.CreateEntity()
		e.OnComponentAdd.Subscribe(func(ecs.ComponentEvent) {})
		require.NoError(t, e.Destroy())
		assert.Equal(t, 0, e.OnComponentAdd.Len())
		assert.Equal(t, 0, e.OnDestroy.Len())
	})

	t.Run("destroy from a group handler", func(t *testing.T) {
		m := newTestManager(t)
		g := m.GetGroup(ecs.AllOf(HealthID))
		g.OnEntityAdd.Subscribe(func(ev ecs.GroupEvent) {
			if ecs.Read[Health](ev.Entity, HealthID).Current <= 0 {
				require.NoError(t, ev.Entity.Destroy())
			}
		})

		e := m.CreateEntity()
		require.NoError(t, e.AddComponent(HealthID, &Health{}))
		assert.False(t, e.Enabled())
		assert.Equal(t, 0, g.Len())
		assert.Equal(t, 1, m.PooledEntityCount())
	})

	t.Run("destroy all", func(t *testing.T) {
		m := newTestManager(t)
		g := m.GetGroup(ecs.AllOf(PositionID))
		for range 4 {
			e := m.CreateEntity()
			require.NoError(t, e.AddComponent(PositionID, &Position{}))
		}
		var destroyed int
		m.OnEntityDestroy.Subscribe(func(*ecs.Entity) { destroyed++ })

		require.NoError(t, m.DestroyAllEntities())
		assert.Equal(t, 4, destroyed)
		assert.Equal(t, 0, m.EntityCount())
		assert.Equal(t, 0, g.Len())
		assert.Equal(t, 4, m.PooledEntityCount())
		assert.Equal(t, 4, m.PooledComponentCount(PositionID))
	})

	t.Run("destroy all reports leaks", func(t *testing.T) {
		m := newTestManager(t)
		kept := m.CreateEntity()
		require.NoError(t, kept.AddComponent(NameID, &Name{}))
		m.CreateEntity()
		holder := ecs.NewOwner("cache")
		require.NoError(t, kept.AddRef(holder))

		err := m.DestroyAllEntities()
		require.Error(t, err)
		assert.ErrorIs(t, err, ecs.ErrReferenceLeak)

		var leak *ecs.ReferenceLeakError
		require.True(t, errors.As(err, &leak))
		assert.Equal(t, "test", leak.Manager)
		assert.Equal(t, []string{"entity_0()"}, leak.Entities)
		assert.Equal(t, 1, m.PooledEntityCount())

		require.NoError(t, kept.RemoveRef(holder))
		assert.NoError(t, m.DestroyAllEntities())
		assert.Equal(t, 2, m.PooledEntityCount())
	})

	t.Run("destroy all creating from handlers", func(t *testing.T) {
		m := newTestManager(t)
		m.CreateEntity()
		m.CreateEntity()
		spawned := false
		m.OnEntityDestroy.Subscribe(func(*ecs.Entity) {
			if !spawned {
				spawned = true
				m.CreateEntity()
			}
		})

		require.NoError(t, m.DestroyAllEntities())
		assert.Equal(t, 1, m.EntityCount())
	})
}

func TestManagerReset(t *testing.T) {
	t.Run("rewinds serials", func(t *testing.T) {
		m := newTestManager(t, ecs.WithInitialSerial(5))
		m.CreateEntity()
		m.CreateEntity()

		require.NoError(t, m.Reset())
		assert.Equal(t, 0, m.EntityCount())
		assert.Equal(t, 5, m.CreateEntity().Serial())
	})

	t.Run("keeps serials when entities leak", func(t *testing.T) {
		m := newTestManager(t)
		e := m.CreateEntity()
		require.NoError(t, e.AddRef(ecs.NewOwner("holder")))

		assert.ErrorIs(t, m.Reset(), ecs.ErrReferenceLeak)
		assert.Equal(t, 1, m.CreateEntity().Serial())
	})
}

func TestManagerComponentPools(t *testing.T) {
	m := newTestManager(t)
	e := m.CreateEntity()
	require.NoError(t, e.AddComponent(PositionID, &Position{}))
	require.NoError(t, e.AddComponent(HealthID, &Health{}))
	require.NoError(t, e.RemoveAllComponents())

	stats := m.Stats()
	assert.Equal(t, []int{1, 0, 1, 0, 0}, stats.ComponentPools)

	m.ClearComponentsPool(PositionID)
	m.ClearComponentsPool(99)
	assert.Equal(t, 0, m.PooledComponentCount(PositionID))
	assert.Equal(t, 1, m.PooledComponentCount(HealthID))

	m.ClearAllComponentsPools()
	assert.Equal(t, 0, m.PooledComponentCount(HealthID))
	assert.True(t, e.Enabled())
}

func TestManagerStats(t *testing.T) {
	m := newTestManager(t)
	m.GetGroup(ecs.AllOf(PositionID))
	a := m.CreateEntity()
	m.CreateEntity()
	require.NoError(t, a.Destroy())

	assert.Equal(t, ecs.ManagerStats{
		Name:              "test",
		EntityCount:       1,
		PooledEntityCount: 1,
		GroupCount:        1,
		NextSerial:        2,
		ComponentPools:    []int{0, 0, 0, 0, 0},
	}, m.Stats())
}

func TestManagerUncheckedRefs(t *testing.T) {
	m := newTestManager(t, ecs.WithUncheckedRefs())
	e := m.CreateEntity()
	holder := ecs.NewOwner("holder")
	require.NoError(t, e.AddRef(holder))
	require.NoError(t, e.AddRef(holder))
	assert.Equal(t, 3, e.RefCount())

	require.NoError(t, e.Destroy())
	assert.Equal(t, 1, m.LeakedEntityCount())
	require.NoError(t, e.RemoveRef(holder))
	require.NoError(t, e.RemoveRef(holder))
	assert.Equal(t, 1, m.PooledEntityCount())
}

func TestManagerLogging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	m := newTestManager(t, ecs.WithLogger(zap.New(core)))

	e := m.CreateEntity()
	require.NoError(t, e.AddRef(ecs.NewOwner("holder")))
	require.Error(t, m.DestroyAllEntities())

	warnings := logs.FilterMessage("entities still referenced after destroy").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "ecs", warnings[0].LoggerName)
	assert.Equal(t, "test", warnings[0].ContextMap()["manager"])
}
