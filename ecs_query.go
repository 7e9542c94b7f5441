package island

import (
	"reflect"
)

// Queries visit every entity whose archetype holds all requested components.
// Components passed as optionals may be absent; their pointer is then nil.
// The callback returns false to stop iteration. Visiting order is unspecified.
type Query1[A any] struct{ ecs *Ecs }
type Query2[A, B any] struct{ ecs *Ecs }
type Query3[A, B, C any] struct{ ecs *Ecs }

func MakeQuery1[A any](cmd *Commands) Query1[A]             { return Query1[A]{ecs: cmd.app.ecs} }
func MakeQuery2[A, B any](cmd *Commands) Query2[A, B]       { return Query2[A, B]{ecs: cmd.app.ecs} }
func MakeQuery3[A, B, C any](cmd *Commands) Query3[A, B, C] { return Query3[A, B, C]{ecs: cmd.app.ecs} }

func (q Query1[A]) Map(m func(EntityId, *A) bool, optionals ...any) {
	id1 := identifyComponent[A](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		comps1, ok1 := columnOf[A](arch, id1, opt)
		if !ok1 {
			continue
		}

		for entityId, row := range arch.entities {
			if !m(entityId, cell(comps1, row)) {
				return
			}
		}
	}
}

func (q Query2[A, B]) Map(m func(EntityId, *A, *B) bool, optionals ...any) {
	id1 := identifyComponent[A](q.ecs)
	id2 := identifyComponent[B](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		comps1, ok1 := columnOf[A](arch, id1, opt)
		comps2, ok2 := columnOf[B](arch, id2, opt)
		if !ok1 || !ok2 {
			continue
		}

		for entityId, row := range arch.entities {
			if !m(entityId, cell(comps1, row), cell(comps2, row)) {
				return
			}
		}
	}
}

func (q Query3[A, B, C]) Map(m func(EntityId, *A, *B, *C) bool, optionals ...any) {
	id1 := identifyComponent[A](q.ecs)
	id2 := identifyComponent[B](q.ecs)
	id3 := identifyComponent[C](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		comps1, ok1 := columnOf[A](arch, id1, opt)
		comps2, ok2 := columnOf[B](arch, id2, opt)
		comps3, ok3 := columnOf[C](arch, id3, opt)
		if !ok1 || !ok2 || !ok3 {
			continue
		}

		for entityId, row := range arch.entities {
			if !m(entityId, cell(comps1, row), cell(comps2, row), cell(comps3, row)) {
				return
			}
		}
	}
}

// Count returns how many entities the query matches.
func (q Query1[A]) Count(optionals ...any) int {
	n := 0
	q.Map(func(EntityId, *A) bool {
		n++
		return true
	}, optionals...)
	return n
}

// columnOf returns the typed slice for id in arch. A nil slice with ok=true means the
// component is optional and missing from this archetype.
func columnOf[T any](arch *archetype, id componentId, opt set[componentId]) ([]T, bool) {
	if data, ok := arch.componentData[id]; ok {
		return data.([]T), true
	}
	if _, ok := opt[id]; ok {
		return nil, true
	}
	return nil, false
}

func cell[T any](column []T, r row) *T {
	if column == nil {
		return nil
	}
	return &column[r]
}

func identifyOptionals(ecs *Ecs, components ...any) set[componentId] {
	res := make(set[componentId])
	for _, c := range components {
		t := reflect.TypeOf(c)
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		res[ecs.getComponentId(t)] = struct{}{}
	}
	return res
}

func identifyComponent[A any](ecs *Ecs) componentId {
	var a A
	return ecs.getComponentId(reflect.TypeOf(a))
}
