package ecs

import "go.uber.org/multierr"

// Commands buffers entity mutations requested while systems run, so a system
// can iterate a group snapshot without the group shifting under it. The
// buffer is flushed after every update stage.
type Commands struct {
	queue commandQueue
	spare commandQueue
}

type commandQueue struct {
	destroys []entityCommand
	adds     []addComponentCommand
	removes  []entityCommand
	defers   []func()
}

func (q *commandQueue) len() int {
	return len(q.destroys) + len(q.adds) + len(q.removes) + len(q.defers)
}

func (q *commandQueue) reset() {
	clear(q.destroys)
	clear(q.adds)
	clear(q.removes)
	clear(q.defers)
	q.destroys = q.destroys[:0]
	q.adds = q.adds[:0]
	q.removes = q.removes[:0]
	q.defers = q.defers[:0]
}

func newCommands() *Commands {
	return &Commands{}
}

// entityCommand pins the entity's lifetime at enqueue time. A command whose
// entity was destroyed, or destroyed and reused, before the flush is dropped.
type entityCommand struct {
	entity     *Entity
	generation uint64
	id         int
}

type addComponentCommand struct {
	entityCommand
	component Component
}

func pin(e *Entity, id int) entityCommand {
	return entityCommand{entity: e, generation: e.generation, id: id}
}

func (c entityCommand) live() bool {
	return c.entity.enabled && c.entity.generation == c.generation
}

// Destroy queues an entity destruction.
func (c *Commands) Destroy(e *Entity) {
	c.queue.destroys = append(c.queue.destroys, pin(e, NoComponent))
}

// AddComponent queues a component addition.
func (c *Commands) AddComponent(e *Entity, id int, component Component) {
	c.queue.adds = append(c.queue.adds, addComponentCommand{entityCommand: pin(e, id), component: component})
}

// RemoveComponent queues a component removal.
func (c *Commands) RemoveComponent(e *Entity, id int) {
	c.queue.removes = append(c.queue.removes, pin(e, id))
}

// Defer queues a function execution.
func (c *Commands) Defer(fn func()) {
	c.queue.defers = append(c.queue.defers, fn)
}

// Len returns the number of queued operations.
func (c *Commands) Len() int {
	return c.queue.len()
}

// Flush applies destroys, then removals, then additions, then deferred
// functions. Every failure is reported; one failure does not stop the others.
// Commands queued while the flush runs, by signal handlers or deferred
// functions, are kept for the next flush.
func (c *Commands) Flush() error {
	q := c.queue
	c.queue, c.spare = c.spare, commandQueue{}
	var err error

	for _, cmd := range q.destroys {
		if cmd.live() {
			err = multierr.Append(err, cmd.entity.Destroy())
		}
	}

	for _, cmd := range q.removes {
		if cmd.live() {
			err = multierr.Append(err, cmd.entity.RemoveComponent(cmd.id))
		}
	}

	for _, cmd := range q.adds {
		if cmd.live() {
			err = multierr.Append(err, cmd.entity.AddComponent(cmd.id, cmd.component))
		}
	}

	for _, fn := range q.defers {
		fn()
	}

	q.reset()
	c.spare = q
	return err
}
