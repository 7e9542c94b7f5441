package island

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuery_Map(t *testing.T) {
	type Comp1 struct{ a int }
	type Comp2 struct{ b float32 }
	type Comp3 struct{}

	ecs := MakeEcs()
	ecs.addEntity(Comp1{a: 1})
	id2 := ecs.addEntity(Comp1{a: 2}, Comp2{b: 1.37})
	id3 := ecs.addEntity(Comp1{a: 3}, Comp2{b: 4.20}, Comp3{})
	ecs.addEntity(Comp1{a: 4}, Comp3{})
	ecs.addEntity(Comp2{b: 3.14})

	query := Query2[Comp1, Comp2]{ecs: &ecs}

	got := map[EntityId]int{}
	query.Map(func(entityId EntityId, comp1 *Comp1, comp2 *Comp2) bool {
		got[entityId] = comp1.a
		return true
	})

	assert.Equal(t, map[EntityId]int{id2: 2, id3: 3}, got)
}

func TestQuery_MapWritesThrough(t *testing.T) {
	type Counter struct{ n int }

	ecs := MakeEcs()
	id := ecs.addEntity(Counter{n: 1})
	query := Query1[Counter]{ecs: &ecs}

	query.Map(func(_ EntityId, c *Counter) bool {
		c.n = 41
		return true
	})
	query.Map(func(eid EntityId, c *Counter) bool {
		assert.Equal(t, id, eid)
		assert.Equal(t, 41, c.n)
		return true
	})
}

func TestQuery_Optionals(t *testing.T) {
	type Body struct{ m int }
	type Tag struct{ name string }

	ecs := MakeEcs()
	ecs.addEntity(Body{m: 1})
	ecs.addEntity(Body{m: 2}, Tag{name: "tagged"})

	query := Query2[Body, Tag]{ecs: &ecs}

	withTag, withoutTag := 0, 0
	query.Map(func(_ EntityId, b *Body, tag *Tag) bool {
		if tag == nil {
			withoutTag++
		} else {
			assert.Equal(t, "tagged", tag.name)
			withTag++
		}
		return true
	}, Tag{})

	assert.Equal(t, 1, withTag)
	assert.Equal(t, 1, withoutTag)
}

func TestQuery_StopsWhenCallbackReturnsFalse(t *testing.T) {
	type Comp struct{}

	ecs := MakeEcs()
	for i := 0; i < 5; i++ {
		ecs.addEntity(Comp{})
	}

	visited := 0
	Query1[Comp]{ecs: &ecs}.Map(func(EntityId, *Comp) bool {
		visited++
		return visited < 2
	})

	assert.Equal(t, 2, visited)
	assert.Equal(t, 5, Query1[Comp]{ecs: &ecs}.Count())
}

func TestQuery3_Map(t *testing.T) {
	type A struct{ v int }
	type B struct{ v int }
	type C struct{ v int }

	ecs := MakeEcs()
	ecs.addEntity(A{1}, B{2}, C{3})
	ecs.addEntity(A{1}, B{2})

	sum, n := 0, 0
	Query3[A, B, C]{ecs: &ecs}.Map(func(_ EntityId, a *A, b *B, c *C) bool {
		sum += a.v + b.v + c.v
		n++
		return true
	})

	assert.Equal(t, 1, n)
	assert.Equal(t, 6, sum)
}
