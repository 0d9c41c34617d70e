package scheduler

// Task is a resumable unit of work.
type Task interface {
	// Name identifies the task in logs.
	Name() string

	// Step advances the task by one unit of work. It returns false once the
	// task is finished; Step is not called again after that.
	Step() bool
}

// ListTask walks a list of items, one item per step. The completion hook
// runs on the step after the last item, so a list of n items takes n+1
// steps. Progress can be inspected between steps.
type ListTask[T any] struct {
	name   string
	items  []T
	each   func(int, T)
	done   func()
	cursor int
	ended  bool
}

// NewListTask creates a task calling each for every item in order and done
// (which may be nil) once all items were processed.
func NewListTask[T any](name string, items []T, each func(int, T), done func()) *ListTask[T] {
	return &ListTask[T]{name: name, items: items, each: each, done: done}
}

// Name implements Task.
func (t *ListTask[T]) Name() string { return t.name }

// Step implements Task.
func (t *ListTask[T]) Step() bool {
	if t.ended {
		return false
	}
	if t.cursor < len(t.items) {
		t.each(t.cursor, t.items[t.cursor])
		t.cursor++
		return true
	}
	t.ended = true
	if t.done != nil {
		t.done()
	}
	return false
}

// Cursor returns the number of items processed so far.
func (t *ListTask[T]) Cursor() int { return t.cursor }

// Len returns the number of items.
func (t *ListTask[T]) Len() int { return len(t.items) }

// Done reports whether the completion hook ran.
func (t *ListTask[T]) Done() bool { return t.ended }

// funcTask adapts a function to Task.
type funcTask struct {
	name string
	fn   func() bool
}

func (t *funcTask) Name() string { return t.name }
func (t *funcTask) Step() bool   { return t.fn() }

// Func returns a task that calls fn on every step until fn returns false.
func Func(name string, fn func() bool) Task {
	return &funcTask{name: name, fn: fn}
}

// Once returns a task that calls fn exactly once.
func Once(name string, fn func()) Task {
	return &funcTask{name: name, fn: func() bool {
		fn()
		return false
	}}
}
