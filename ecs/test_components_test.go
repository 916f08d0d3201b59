package ecs_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/plus3/reactecs/ecs"
)

// Component ids shared by the tests
const (
	PositionID = iota
	VelocityID
	HealthID
	NameID
	TagID
	testComponentCount
)

// Common test component types
type Position struct {
	X, Y float32
}

type Velocity struct {
	DX, DY float32
}

type Health struct {
	Current int
	Max     int
}

type Name struct {
	Value string
}

type Tag struct{}

func testDebugInfo() *ecs.DebugInfo {
	return ecs.NewDebugInfo("test",
		ecs.ComponentInfo{Name: "position", Type: "Position"},
		ecs.ComponentInfo{Name: "velocity", Type: "Velocity"},
		ecs.ComponentInfo{Name: "health", Type: "Health"},
		ecs.ComponentInfo{Name: "name", Type: "Name"},
		ecs.ComponentInfo{Name: "tag"},
	)
}

func newTestManager(t testing.TB, opts ...ecs.Option) *ecs.Manager {
	t.Helper()
	opts = append([]ecs.Option{ecs.WithName("test"), ecs.WithDebugInfo(testDebugInfo())}, opts...)
	m, err := ecs.NewManager(testComponentCount, opts...)
	require.NoError(t, err)
	return m
}

// recorder collects group notifications in order.
type recorder struct {
	events []string
}

func (r *recorder) watch(g *ecs.Group) {
	g.OnEntityAdd.Subscribe(func(ev ecs.GroupEvent) {
		r.events = append(r.events, fmt.Sprintf("add %d", ev.Entity.Serial()))
	})
	g.OnEntityRemove.Subscribe(func(ev ecs.GroupEvent) {
		r.events = append(r.events, fmt.Sprintf("remove %d", ev.Entity.Serial()))
	})
	g.OnEntityUpdate.Subscribe(func(ev ecs.GroupUpdateEvent) {
		r.events = append(r.events, fmt.Sprintf("update %d", ev.Entity.Serial()))
	})
}
