package workflow

import (
	"sort"
	"time"
)

// Controller sequences the wizard. All operations are synchronous and never
// fail: out-of-range indices and locked targets are ignored.
//
// Controller is not safe for concurrent use. The wizard's update loop (or the
// headless runner) is its single writer.
type Controller struct {
	steps     []Step
	current   int
	completed map[int]struct{}
	data      *Data
	observers []Observer
	now       func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithObserver registers an observer for state changes.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// NewController creates a controller positioned on the first step with empty
// Data and no completed steps.
func NewController(steps []Step, opts ...Option) (*Controller, error) {
	if err := validateSteps(steps); err != nil {
		return nil, err
	}
	c := &Controller{
		steps:     append([]Step(nil), steps...),
		completed: make(map[int]struct{}),
		data:      newData(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CompleteStep stores result under the step's key, marks the step completed
// and advances to the next step unless i is the last one.
func (c *Controller) CompleteStep(i int, result Result) {
	if !c.inRange(i) {
		return
	}
	step := c.steps[i]
	c.data.set(step.Key(), result)
	c.completed[i] = struct{}{}

	from := c.current
	if i < len(c.steps)-1 {
		c.current = i + 1
	}

	ev := Event{Kind: EventCompleted, Step: i, StepKey: step.Key(), From: from, To: c.current, Result: result}
	if result != nil {
		ev.ResultKind = result.Kind()
	}
	c.emit(ev)
}

// SkipStep advances one step without recording anything.
func (c *Controller) SkipStep() {
	if c.current >= len(c.steps)-1 {
		return
	}
	from := c.current
	c.current++
	c.emit(Event{Kind: EventSkipped, Step: from, StepKey: c.steps[from].Key(), From: from, To: c.current})
}

// GoToStep moves to target when CanGoTo allows it.
func (c *Controller) GoToStep(target int) {
	if !c.CanGoTo(target) || target == c.current {
		return
	}
	from := c.current
	c.current = target
	c.emit(Event{Kind: EventMoved, Step: target, StepKey: c.steps[target].Key(), From: from, To: target})
}

// GoBack moves to the previous step.
func (c *Controller) GoBack() {
	if c.current == 0 {
		return
	}
	from := c.current
	c.current--
	c.emit(Event{Kind: EventBack, Step: c.current, StepKey: c.steps[c.current].Key(), From: from, To: c.current})
}

// CanGoTo reports whether target is unlocked: it is completed, current, the
// first step, or directly follows a completed step.
func (c *Controller) CanGoTo(target int) bool {
	if !c.inRange(target) {
		return false
	}
	if target == 0 || target == c.current || c.IsCompleted(target) {
		return true
	}
	return c.IsCompleted(target - 1)
}

// Current returns the current step index.
func (c *Controller) Current() int {
	return c.current
}

// CurrentStep returns the current step.
func (c *Controller) CurrentStep() Step {
	return c.steps[c.current]
}

// Steps returns a copy of the step list.
func (c *Controller) Steps() []Step {
	return append([]Step(nil), c.steps...)
}

// Len returns the number of steps.
func (c *Controller) Len() int {
	return len(c.steps)
}

// IsLast reports whether the current step is the last one.
func (c *Controller) IsLast() bool {
	return c.current == len(c.steps)-1
}

// IsCompleted reports whether step i has been completed at least once.
func (c *Controller) IsCompleted(i int) bool {
	_, ok := c.completed[i]
	return ok
}

// Completed returns the completed step indices in ascending order.
func (c *Controller) Completed() []int {
	out := make([]int, 0, len(c.completed))
	for i := range c.completed {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Finished reports whether the last step has been completed.
func (c *Controller) Finished() bool {
	return c.IsCompleted(len(c.steps) - 1)
}

// Data returns a snapshot of every stored result.
func (c *Controller) Data() Data {
	return c.data.clone(nil)
}

// Inputs returns a snapshot holding only results of steps before i. This is
// what step i is allowed to read.
func (c *Controller) Inputs(i int) Data {
	before := make(map[StepKey]bool, len(c.steps))
	for idx, s := range c.steps {
		if idx < i {
			before[s.Key()] = true
		}
	}
	return c.data.clone(func(k StepKey) bool { return before[k] })
}

func (c *Controller) inRange(i int) bool {
	return i >= 0 && i < len(c.steps)
}

func (c *Controller) emit(ev Event) {
	if len(c.observers) == 0 {
		return
	}
	ev.At = c.now()
	for _, o := range c.observers {
		o(ev)
	}
}
