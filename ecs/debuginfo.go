package ecs

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ComponentInfo names one component id for diagnostics.
type ComponentInfo struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// DebugInfo is the diagnostics table of a Manager: its name and one entry
// per component id. It is never consulted for behaviour.
type DebugInfo struct {
	Manager    string          `yaml:"manager"`
	Components []ComponentInfo `yaml:"components"`
}

// NewDebugInfo builds a table whose entry i describes component id i.
func NewDebugInfo(manager string, components ...ComponentInfo) *DebugInfo {
	return &DebugInfo{
		Manager:    manager,
		Components: components,
	}
}

// DefaultDebugInfo names each of size components by its id.
func DefaultDebugInfo(manager string, size int) *DebugInfo {
	components := make([]ComponentInfo, size)
	for i := range components {
		components[i].Name = strconv.Itoa(i)
	}
	return NewDebugInfo(manager, components...)
}

// LoadDebugInfo reads a table from a YAML file:
//
//	manager: world
//	components:
//	  - name: position
//	    type: Position
func LoadDebugInfo(path string) (*DebugInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read debug info %s: %w", path, err)
	}
	info, err := ParseDebugInfo(data)
	if err != nil {
		return nil, fmt.Errorf("parse debug info %s: %w", path, err)
	}
	return info, nil
}

// ParseDebugInfo decodes a YAML table.
func ParseDebugInfo(data []byte) (*DebugInfo, error) {
	var info DebugInfo
	if err := yaml.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Name returns the diagnostic name of component id.
func (d *DebugInfo) Name(id int) string {
	if id < 0 || id >= len(d.Components) {
		return strconv.Itoa(id)
	}
	return d.Components[id].Name
}

// Type returns the diagnostic type token of component id.
func (d *DebugInfo) Type(id int) string {
	if id < 0 || id >= len(d.Components) {
		return ""
	}
	return d.Components[id].Type
}

// Label renders "name.type", or just the name when no type token is set.
func (d *DebugInfo) Label(id int) string {
	if t := d.Type(id); t != "" {
		return d.Name(id) + "." + t
	}
	return d.Name(id)
}
