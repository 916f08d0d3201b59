package ecs

// ManagerStats is a point-in-time summary of a Manager.
type ManagerStats struct {
	Name              string
	EntityCount       int
	PooledEntityCount int
	LeakedEntityCount int
	GroupCount        int
	NextSerial        int
	// ComponentPools holds the number of pooled instances per component id.
	ComponentPools []int
}

// Stats collects the manager's current counters.
func (m *Manager) Stats() ManagerStats {
	pools := make([]int, m.maxComponents)
	for id := range pools {
		pools[id] = m.components.len(id)
	}
	return ManagerStats{
		Name:              m.name,
		EntityCount:       m.entities.Len(),
		PooledEntityCount: len(m.pool),
		LeakedEntityCount: m.leaked.Len(),
		GroupCount:        len(m.groupList),
		NextSerial:        m.serial,
		ComponentPools:    pools,
	}
}

// PooledComponentCount returns the number of pooled instances of id.
func (m *Manager) PooledComponentCount(id int) int {
	if id < 0 || id >= m.maxComponents {
		return 0
	}
	return m.components.len(id)
}
