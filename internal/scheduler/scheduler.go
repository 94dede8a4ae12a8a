// Package scheduler runs cooperative fibers, one step per host tick.
//
// A fiber is a named step function paired with a predicate. Every tick the
// predicate is evaluated fresh; while it holds the step runs, once it fails the
// fiber is retired for good. Nothing here blocks or spawns goroutines, so tests
// drive ticks one at a time.
package scheduler

import (
	"context"
	"errors"
	"fmt"

	intOtel "github.com/OCAP2/position-tracker/internal/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/position-tracker/internal/scheduler"

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Step is one tick's worth of fiber work.
type Step func() error

// Predicate decides whether a fiber keeps running.
type Predicate func() bool

// Always is a predicate that never retires its fiber.
func Always() bool { return true }

// Handle lets the owner cancel a fiber.
type Handle struct {
	name      string
	cancelled bool
}

// Name returns the fiber name.
func (h *Handle) Name() string { return h.name }

// Cancel retires the fiber before its next step.
func (h *Handle) Cancel() { h.cancelled = true }

// Done reports whether the fiber has been cancelled or retired.
func (h *Handle) Done() bool { return h.cancelled }

type fiber struct {
	handle *Handle
	step   Step
	while  Predicate
}

// Scheduler is a registry of fibers. It is not safe for concurrent use.
type Scheduler struct {
	fibers  []*fiber
	running []*fiber
	logger  Logger

	ticks metric.Int64Counter
	steps metric.Int64Counter
}

// New creates a scheduler reporting to the global OTel meter.
func New(logger Logger) (*Scheduler, error) {
	m := intOtel.Meter(instrumentationName)

	ticks, err := m.Int64Counter("scheduler.ticks",
		metric.WithDescription("Total scheduler ticks"))
	if err != nil {
		return nil, fmt.Errorf("creating tick counter: %w", err)
	}
	steps, err := m.Int64Counter("scheduler.steps",
		metric.WithDescription("Total fiber steps executed"))
	if err != nil {
		return nil, fmt.Errorf("creating step counter: %w", err)
	}

	return &Scheduler{logger: logger, ticks: ticks, steps: steps}, nil
}

// ExecuteWhile registers a fiber that runs step on every tick while the
// predicate holds. A nil predicate means Always.
func (s *Scheduler) ExecuteWhile(name string, step Step, while Predicate) *Handle {
	if while == nil {
		while = Always
	}
	h := &Handle{name: name}
	s.fibers = append(s.fibers, &fiber{handle: h, step: step, while: while})
	s.logger.Debug("fiber started", "fiber", name)
	return h
}

// Tick runs one step of every live fiber in registration order and returns
// the joined step errors. A failing step does not stop the others.
func (s *Scheduler) Tick() error {
	ctx := context.Background()
	s.ticks.Add(ctx, 1)

	// fibers registered by a step join from the next tick
	current := s.fibers
	s.fibers = nil
	s.running = current
	defer func() { s.running = nil }()

	var errs []error
	live := make([]*fiber, 0, len(current))
	for _, f := range current {
		if f.handle.cancelled || !f.while() {
			f.handle.cancelled = true
			s.logger.Debug("fiber retired", "fiber", f.handle.name)
			continue
		}
		live = append(live, f)

		if err := s.run(f); err != nil {
			s.logger.Error("fiber step failed", "fiber", f.handle.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", f.handle.name, err))
		}
		s.steps.Add(ctx, 1, metric.WithAttributes(attribute.String("fiber", f.handle.name)))
	}
	kept := live[:0]
	for _, f := range live {
		if !f.handle.cancelled {
			kept = append(kept, f)
		}
	}
	s.fibers = append(kept, s.fibers...)

	return errors.Join(errs...)
}

func (s *Scheduler) run(f *fiber) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return f.step()
}

// Len returns the number of fibers that have not been retired yet.
func (s *Scheduler) Len() int {
	return len(s.fibers)
}

// Stop cancels and drops every fiber.
func (s *Scheduler) Stop() {
	for _, f := range s.running {
		f.handle.cancelled = true
	}
	for _, f := range s.fibers {
		f.handle.cancelled = true
	}
	s.fibers = nil
}
