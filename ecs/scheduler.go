package ecs

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrNotASystem is returned by Register for a value implementing none of the
// stage interfaces.
var ErrNotASystem = errors.New("ecs: value implements no system stage")

// SchedulerStats provides statistics about system execution.
type SchedulerStats struct {
	SystemCount     int
	Ticks           int64
	TotalExecutions int64
	Systems         []SystemStats
}

// SystemStats provides execution statistics for a single system.
type SystemStats struct {
	Name           string
	ExecutionCount int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
}

type systemStatsInternal struct {
	name           string
	executionCount int64
	minDuration    time.Duration
	maxDuration    time.Duration
	totalDuration  time.Duration
	lastDuration   time.Duration
}

func (s *systemStatsInternal) record(d time.Duration) {
	s.executionCount++
	s.lastDuration = d
	s.totalDuration += d
	if d < s.minDuration {
		s.minDuration = d
	}
	if d > s.maxDuration {
		s.maxDuration = d
	}
}

// Systems runs the lifecycle stages of a set of systems bound to one
// Manager. Each registered value takes part in every stage whose interface
// it implements; stages visit systems in registration order.
type Systems struct {
	manager  *Manager
	logger   *zap.Logger
	commands *Commands

	managerAware []ManagerAware
	initializers []Initializer
	updaters     []System
	freers       []Freer
	reloaders    []Reloader

	updateStats []*systemStatsInternal
	ticks       int64
}

// NewSystems creates an empty set of systems driving manager.
func NewSystems(manager *Manager) *Systems {
	return &Systems{
		manager:  manager,
		logger:   manager.logger.Named("systems"),
		commands: newCommands(),
	}
}

// Register adds a system to every stage it implements.
func (s *Systems) Register(system any) error {
	matched := false
	if v, ok := system.(ManagerAware); ok {
		s.managerAware = append(s.managerAware, v)
		matched = true
	}
	if v, ok := system.(Initializer); ok {
		s.initializers = append(s.initializers, v)
		matched = true
	}
	if v, ok := system.(System); ok {
		s.updaters = append(s.updaters, v)
		s.updateStats = append(s.updateStats, &systemStatsInternal{
			name:        systemName(system),
			minDuration: time.Duration(1<<63 - 1),
		})
		matched = true
	}
	if v, ok := system.(Freer); ok {
		s.freers = append(s.freers, v)
		matched = true
	}
	if v, ok := system.(Reloader); ok {
		s.reloaders = append(s.reloaders, v)
		matched = true
	}

	if !matched {
		return fmt.Errorf("register %T: %w", system, ErrNotASystem)
	}
	s.logger.Debug("system registered", zap.String("system", systemName(system)))
	return nil
}

func systemName(system any) string {
	t := reflect.TypeOf(system)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// Manager returns the manager the systems are bound to.
func (s *Systems) Manager() *Manager { return s.manager }

// Commands returns the buffer flushed after every update.
func (s *Systems) Commands() *Commands { return s.commands }

// SetManager hands the manager to every ManagerAware system.
func (s *Systems) SetManager() {
	for _, v := range s.managerAware {
		v.SetManager(s.manager)
	}
}

// Init runs every Initializer. It stops at the first failure.
func (s *Systems) Init() error {
	for _, v := range s.initializers {
		if err := v.Init(); err != nil {
			return fmt.Errorf("init %s: %w", systemName(v), err)
		}
	}
	return nil
}

// Update runs every System once with the given delta time, then flushes the
// commands they queued.
func (s *Systems) Update(dt float64) error {
	s.ticks++
	frame := newUpdateFrame(dt, s.ticks, s.commands, s.manager)

	for i, system := range s.updaters {
		start := time.Now()
		system.Execute(frame)
		s.updateStats[i].record(time.Since(start))
	}

	if err := s.commands.Flush(); err != nil {
		s.logger.Warn("command flush failed", zap.Int64("tick", s.ticks), zap.Error(err))
		return err
	}
	return nil
}

// Free runs every Freer in reverse registration order.
func (s *Systems) Free() {
	for i := len(s.freers) - 1; i >= 0; i-- {
		s.freers[i].Free()
	}
}

// Reload runs every Reloader and reports all failures.
func (s *Systems) Reload() error {
	var err error
	for _, v := range s.reloaders {
		if rerr := v.Reload(); rerr != nil {
			err = multierr.Append(err, fmt.Errorf("reload %s: %w", systemName(v), rerr))
		}
	}
	return err
}

// Run executes Update repeatedly at the given interval until the context is
// cancelled. Flush failures are logged and do not stop the loop.
func (s *Systems) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(lastTime).Seconds()
			lastTime = now
			_ = s.Update(dt)
		}
	}
}

// Stats returns statistics about the update stage.
func (s *Systems) Stats() *SchedulerStats {
	stats := &SchedulerStats{
		SystemCount: len(s.updaters),
		Ticks:       s.ticks,
		Systems:     make([]SystemStats, len(s.updateStats)),
	}

	var totalExecs int64
	for i, internal := range s.updateStats {
		avgDuration := time.Duration(0)
		minDuration := internal.minDuration
		if internal.executionCount > 0 {
			avgDuration = internal.totalDuration / time.Duration(internal.executionCount)
		} else {
			minDuration = 0
		}

		stats.Systems[i] = SystemStats{
			Name:           internal.name,
			ExecutionCount: internal.executionCount,
			MinDuration:    minDuration,
			MaxDuration:    internal.maxDuration,
			AvgDuration:    avgDuration,
			LastDuration:   internal.lastDuration,
			TotalDuration:  internal.totalDuration,
		}
		totalExecs += internal.executionCount
	}

	stats.TotalExecutions = totalExecs
	return stats
}
