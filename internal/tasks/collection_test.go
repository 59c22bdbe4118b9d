package tasks

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"todo/internal/service"
)

func task(id int64, title string) service.Task {
	return service.Task{ID: id, Title: title}
}

func ids(c Collection) []int64 {
	out := make([]int64, 0, c.Len())
	for _, t := range c.Tasks() {
		out = append(out, t.ID)
	}
	return out
}

func TestApply_AddAddRemove(t *testing.T) {
	tests := []struct {
		name   string
		t1, t2 service.Task
	}{
		{"distinct titles", task(1, "A"), task(2, "B")},
		{"same title", task(1, "same"), task(2, "same")},
		{"reverse ids", task(9, "A"), task(3, "B")},
		{"completed first", service.Task{ID: 1, Title: "A", IsCompleted: true}, task(2, "B")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Apply(Collection{}, Added{Task: tt.t1})
			c = Apply(c, Added{Task: tt.t2})
			c = Apply(c, Removed{ID: tt.t1.ID})
			assert.Equal(t, []service.Task{tt.t2}, c.Tasks())
		})
	}
}

func TestApply_ReplaceUnknownIsNoop(t *testing.T) {
	before := NewCollection([]service.Task{task(1, "A"), task(2, "B")})
	after := Apply(before, Replaced{Task: task(3, "C")})
	assert.Equal(t, before.Tasks(), after.Tasks())
}

func TestApply_RemoveUnknownIsNoop(t *testing.T) {
	before := NewCollection([]service.Task{task(1, "A")})
	after := Apply(before, Removed{ID: 7})
	assert.Equal(t, before.Tasks(), after.Tasks())
}

func TestApply_SetAllReplaceRemove(t *testing.T) {
	c := Apply(Collection{}, SetAll{Tasks: []service.Task{task(1, "A"), task(2, "B")}})
	c = Apply(c, Replaced{Task: task(1, "A2")})
	c = Apply(c, Removed{ID: 2})
	assert.Equal(t, []service.Task{task(1, "A2")}, c.Tasks())
}

func TestApply_SetAllReplacesEverything(t *testing.T) {
	c := NewCollection([]service.Task{task(1, "A"), task(2, "B")})
	c = Apply(c, SetAll{Tasks: []service.Task{task(5, "E")}})
	assert.Equal(t, []int64{5}, ids(c))

	c = Apply(c, SetAll{})
	assert.Zero(t, c.Len())
}

func TestApply_SetAllCollapsesDuplicates(t *testing.T) {
	c := Apply(Collection{}, SetAll{Tasks: []service.Task{
		task(1, "A"), task(2, "B"), task(1, "A-last"),
	}})
	assert.Equal(t, []service.Task{task(1, "A-last"), task(2, "B")}, c.Tasks())
}

func TestApply_AddedExistingIDMergesInPlace(t *testing.T) {
	c := NewCollection([]service.Task{task(1, "A"), task(2, "B")})
	c = Apply(c, Added{Task: task(1, "A2")})
	assert.Equal(t, []service.Task{task(1, "A2"), task(2, "B")}, c.Tasks())
}

func TestApply_PreservesOrder(t *testing.T) {
	c := NewCollection([]service.Task{task(3, "C"), task(1, "A"), task(2, "B")})
	c = Apply(c, Replaced{Task: task(1, "A2")})
	c = Apply(c, Added{Task: task(4, "D")})
	assert.Equal(t, []int64{3, 1, 2, 4}, ids(c))
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	before := NewCollection([]service.Task{task(1, "A"), task(2, "B")})
	_ = Apply(before, Replaced{Task: task(1, "A2")})
	_ = Apply(before, Removed{ID: 2})
	_ = Apply(before, Added{Task: task(3, "C")})
	assert.Equal(t, []service.Task{task(1, "A"), task(2, "B")}, before.Tasks())
}

func TestApply_IDsStayUnique(t *testing.T) {
	muts := []Mutation{
		Added{Task: task(1, "A")},
		Added{Task: task(1, "A")},
		SetAll{Tasks: []service.Task{task(2, "B"), task(2, "B"), task(1, "A")}},
		Added{Task: task(2, "B2")},
		Replaced{Task: task(1, "A3")},
		Removed{ID: 1},
		Added{Task: task(1, "A4")},
	}

	var c Collection
	for _, m := range muts {
		c = Apply(c, m)
		seen := make(map[int64]bool)
		for _, id := range ids(c) {
			assert.False(t, seen[id], "duplicate id %d after %T", id, m)
			seen[id] = true
		}
	}
	assert.Equal(t, []int64{2, 1}, ids(c))
}

func TestCollection_Get(t *testing.T) {
	c := NewCollection([]service.Task{task(1, "A")})

	got, ok := c.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "A", got.Title)

	_, ok = c.Get(2)
	assert.False(t, ok)
}

func TestCollection_TasksReturnsCopy(t *testing.T) {
	c := NewCollection([]service.Task{task(1, "A")})
	got := c.Tasks()
	got[0].Title = "changed"
	assert.Equal(t, "A", c.Tasks()[0].Title)
}
