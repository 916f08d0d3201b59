package ecs

import (
	"errors"
	"fmt"
	"iter"
	"reflect"
	"strconv"
	"strings"
)

// View projects the members of a group onto a struct of component pointers.
// Every field of T is a pointer to a component type and names its slot with
// an `ecs` tag; ",optional" marks a slot that may be empty:
//
//	type mover struct {
//		Pos *Position `ecs:"0"`
//		Vel *Velocity `ecs:"1"`
//		Tag *Marker   `ecs:"3,optional"`
//	}
//
// The view's group requires every non-optional slot.
type View[T any] struct {
	manager *Manager
	group   *Group
	fields  []viewField
}

type viewField struct {
	index    int
	id       int
	typ      reflect.Type
	optional bool
}

// NewView parses T and binds the view to the manager's group for its
// required slots.
func NewView[T any](m *Manager) (*View[T], error) {
	structType := reflect.TypeFor[T]()
	if structType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("view type %s is not a struct: %w", structType, ErrConfig)
	}

	v := &View[T]{manager: m}
	var required []int
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		if !field.IsExported() || field.Type.Kind() != reflect.Pointer {
			return nil, fmt.Errorf("view field %s.%s must be an exported pointer: %w", structType, field.Name, ErrConfig)
		}

		id, optional, err := parseViewTag(field.Tag.Get("ecs"))
		if err != nil {
			return nil, fmt.Errorf("view field %s.%s: %v: %w", structType, field.Name, err, ErrConfig)
		}
		if id < 0 || id >= m.maxComponents {
			return nil, fmt.Errorf("view field %s.%s: %w", structType, field.Name,
				componentRangeError("view", id, m.maxComponents))
		}

		v.fields = append(v.fields, viewField{index: i, id: id, typ: field.Type, optional: optional})
		if !optional {
			required = append(required, id)
		}
	}

	v.group = m.GetGroup(AllOf(required...))
	return v, nil
}

func parseViewTag(tag string) (id int, optional bool, err error) {
	if tag == "" {
		return 0, false, errors.New("missing ecs tag")
	}
	idPart, opt, _ := strings.Cut(tag, ",")
	switch opt {
	case "":
	case "optional":
		optional = true
	default:
		return 0, false, fmt.Errorf("invalid ecs tag option %q (only \"optional\" is supported)", opt)
	}
	id, err = strconv.Atoi(idPart)
	if err != nil {
		return 0, false, fmt.Errorf("invalid component id %q", idPart)
	}
	return id, optional, nil
}

// Group returns the group the view iterates.
func (v *View[T]) Group() *Group { return v.group }

// Fill populates ptr with e's components. It returns false if e lacks a
// required slot or a slot holds a value of another type. Empty optional
// slots, and slots beyond the entity's range, are set to nil.
func (v *View[T]) Fill(e *Entity, ptr *T) bool {
	if !e.enabled {
		return false
	}
	out := reflect.ValueOf(ptr).Elem()
	for _, f := range v.fields {
		var c Component
		if e.inRange(f.id) {
			c = e.slots[f.id]
		}
		dst := out.Field(f.index)
		if c == nil {
			if !f.optional {
				return false
			}
			dst.SetZero()
			continue
		}
		val := reflect.ValueOf(c)
		if val.Type() != f.typ {
			return false
		}
		dst.Set(val)
	}
	return true
}

// Get returns a populated view struct for e, or nil if e does not fit.
func (v *View[T]) Get(e *Entity) *T {
	var result T
	if !v.Fill(e, &result) {
		return nil
	}
	return &result
}

// Iter yields every group member with its populated view struct. It runs
// over a snapshot of the group, so members may change during the loop.
func (v *View[T]) Iter() iter.Seq2[*Entity, T] {
	return func(yield func(*Entity, T) bool) {
		var result T
		for _, e := range v.group.Entities() {
			if !v.Fill(e, &result) {
				continue
			}
			if !yield(e, result) {
				return
			}
		}
	}
}

// Values iterates over just the view structs.
func (v *View[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, result := range v.Iter() {
			if !yield(result) {
				return
			}
		}
	}
}

// Spawn creates an entity holding every non-nil field of data. On failure
// the entity is returned as far as it was built.
func (v *View[T]) Spawn(data T) (*Entity, error) {
	e := v.manager.CreateEntity()
	in := reflect.ValueOf(data)
	for _, f := range v.fields {
		field := in.Field(f.index)
		if field.IsNil() {
			if f.optional {
				continue
			}
			return e, fmt.Errorf("spawn %s: required field %d is nil: %w", reflect.TypeFor[T](), f.id, ErrInvalidState)
		}
		if err := e.AddComponent(f.id, field.Interface()); err != nil {
			return e, err
		}
	}
	return e, nil
}
