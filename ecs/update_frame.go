package ecs

// UpdateFrame is handed to every System during one tick.
type UpdateFrame struct {
	DeltaTime float64
	Tick      int64
	Commands  *Commands
	Manager   *Manager
}

func newUpdateFrame(dt float64, tick int64, commands *Commands, manager *Manager) *UpdateFrame {
	return &UpdateFrame{
		DeltaTime: dt,
		Tick:      tick,
		Commands:  commands,
		Manager:   manager,
	}
}
