// Package tasks keeps the local copy of the user's task list in step with
// the server.
//
// The collection is a cache: it only ever changes in response to a server
// answer. Callers make the network call, then report the confirmed record as
// a Mutation.
package tasks

import (
	"fmt"

	"todo/internal/service"
)

// Collection is an ordered set of tasks keyed by ID. Order is the order in
// which the client learned about each task. The zero value is empty.
//
// A Collection is immutable; Apply returns a new one.
type Collection struct {
	items []service.Task
}

// NewCollection builds a collection from tasks, as SetAll would.
func NewCollection(tasks []service.Task) Collection {
	return Apply(Collection{}, SetAll{Tasks: tasks})
}

// Len returns the number of tasks.
func (c Collection) Len() int {
	return len(c.items)
}

// Tasks returns a copy of the tasks in order.
func (c Collection) Tasks() []service.Task {
	out := make([]service.Task, len(c.items))
	copy(out, c.items)
	return out
}

// Get returns the task with id.
func (c Collection) Get(id int64) (service.Task, bool) {
	if i := c.index(id); i >= 0 {
		return c.items[i], true
	}
	return service.Task{}, false
}

func (c Collection) index(id int64) int {
	for i, t := range c.items {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Mutation is a confirmed change to apply. The set of mutations is closed:
// only the types in this package implement it.
type Mutation interface {
	mutation()
}

// SetAll replaces the whole collection with a freshly fetched list.
type SetAll struct {
	Tasks []service.Task
}

// Added reports a task returned by a successful create.
type Added struct {
	Task service.Task
}

// Replaced reports a task returned by a successful update.
type Replaced struct {
	Task service.Task
}

// Removed reports a successful delete.
type Removed struct {
	ID int64
}

func (SetAll) mutation()   {}
func (Added) mutation()    {}
func (Replaced) mutation() {}
func (Removed) mutation()  {}

// Apply returns the collection that follows c after m. It never fails and
// never leaves two tasks with the same ID:
//   - SetAll keeps server order; a repeated ID keeps its first position and
//     its last value.
//   - Added appends; an ID already present is updated in place instead.
//   - Replaced swaps the task with the same ID; unknown IDs are ignored.
//   - Removed drops the task with the ID; unknown IDs are ignored.
func Apply(c Collection, m Mutation) Collection {
	switch m := m.(type) {
	case SetAll:
		items := make([]service.Task, 0, len(m.Tasks))
		pos := make(map[int64]int, len(m.Tasks))
		for _, t := range m.Tasks {
			if i, ok := pos[t.ID]; ok {
				items[i] = t
				continue
			}
			pos[t.ID] = len(items)
			items = append(items, t)
		}
		return Collection{items: items}

	case Added:
		if i := c.index(m.Task.ID); i >= 0 {
			return c.with(i, m.Task)
		}
		items := make([]service.Task, len(c.items), len(c.items)+1)
		copy(items, c.items)
		return Collection{items: append(items, m.Task)}

	case Replaced:
		if i := c.index(m.Task.ID); i >= 0 {
			return c.with(i, m.Task)
		}
		return c

	case Removed:
		i := c.index(m.ID)
		if i < 0 {
			return c
		}
		items := make([]service.Task, 0, len(c.items)-1)
		items = append(items, c.items[:i]...)
		items = append(items, c.items[i+1:]...)
		return Collection{items: items}

	default:
		panic(fmt.Sprintf("tasks: unhandled mutation %T", m))
	}
}

func (c Collection) with(i int, t service.Task) Collection {
	items := make([]service.Task, len(c.items))
	copy(items, c.items)
	items[i] = t
	return Collection{items: items}
}
