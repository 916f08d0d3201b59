package ecs

// System represents per-tick behaviour driven by a Systems runner. A system
// typically keeps the groups it iterates as fields, obtained once in Init.
type System interface {
	Execute(frame *UpdateFrame)
}

// ManagerAware systems receive the manager before any other stage runs.
type ManagerAware interface {
	SetManager(m *Manager)
}

// Initializer systems run once, after every system has its manager.
type Initializer interface {
	Init() error
}

// Freer systems release what Init acquired.
type Freer interface {
	Free()
}

// Reloader systems rebuild their state on demand, for example after the
// application reloads static data.
type Reloader interface {
	Reload() error
}
