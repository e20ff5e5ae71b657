// Package task is a small rake-like task registry. Tasks have a name, an
// optional description, prerequisite task names and a list of actions.
//
// Names are namespaced with ':' (e.g. "core:build"). Defining a task that
// already exists enhances it: prerequisites and actions are appended.
//
// Invoking a task invokes its prerequisites first, in order, then runs its
// actions. Within one run every task executes at most once, and tasks execute
// strictly one after another.
package task

import (
	"fmt"
	"slices"
	"strings"

	"github.com/erlake-build/erlake/internal/msg"
)

const Separator = ":"

// Action is the body of a task
type Action func() error

type Task struct {
	Name          string
	Description   string
	Prerequisites []string
	Actions       []Action
}

// UnknownTaskError is returned when invoking or depending on a task that was never defined
type UnknownTaskError struct {
	Name string
}

func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("don't know how to build task %q", e.Name)
}

type Registry struct {
	tasks map[string]*Task
}

func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*Task)}
}

// Join builds a namespaced task name
func Join(parts ...string) string {
	return strings.Join(parts, Separator)
}

// Define creates or enhances the task name. action may be nil.
func (r *Registry) Define(name, description string, prerequisites []string, action Action) *Task {
	t, ok := r.tasks[name]
	if !ok {
		t = &Task{Name: name}
		r.tasks[name] = t
	}
	if description != "" {
		t.Description = description
	}
	for _, p := range prerequisites {
		if !slices.Contains(t.Prerequisites, p) {
			t.Prerequisites = append(t.Prerequisites, p)
		}
	}
	if action != nil {
		t.Actions = append(t.Actions, action)
	}
	return t
}

func (r *Registry) Lookup(name string) (*Task, bool) {
	t, ok := r.tasks[name]
	return t, ok
}

// Tasks returns all tasks sorted by name
func (r *Registry) Tasks() []*Task {
	tasks := make([]*Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		tasks = append(tasks, t)
	}
	slices.SortFunc(tasks, func(a, b *Task) int { return strings.Compare(a.Name, b.Name) })
	return tasks
}

// Invoke runs the named tasks, in order, sharing one run: a task that was
// already executed for an earlier name is not executed again.
func (r *Registry) Invoke(names ...string) error {
	run := &run{registry: r, invoked: make(map[string]bool)}
	for _, name := range names {
		if err := run.invoke(name); err != nil {
			return err
		}
	}
	return nil
}

type run struct {
	registry *Registry
	invoked  map[string]bool
}

func (run *run) invoke(name string) error {
	t, ok := run.registry.tasks[name]
	if !ok {
		return &UnknownTaskError{Name: name}
	}
	// marked before the prerequisites so a cycle ends instead of recursing forever
	if run.invoked[name] {
		return nil
	}
	run.invoked[name] = true

	for _, p := range t.Prerequisites {
		if err := run.invoke(p); err != nil {
			return err
		}
	}

	if len(t.Actions) > 0 {
		msg.Verbose("execute %s", name)
	}
	for _, action := range t.Actions {
		if err := action(); err != nil {
			return fmt.Errorf("task %s: %w", name, err)
		}
	}
	return nil
}
