// Package tracker assembles the capture components around one session and
// exposes them to the host through the dispatcher.
package tracker

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/OCAP2/position-tracker/internal/capture"
	"github.com/OCAP2/position-tracker/internal/config"
	"github.com/OCAP2/position-tracker/internal/dispatcher"
	"github.com/OCAP2/position-tracker/internal/frontend"
	"github.com/OCAP2/position-tracker/internal/host"
	"github.com/OCAP2/position-tracker/internal/logging"
	"github.com/OCAP2/position-tracker/internal/persist"
	"github.com/OCAP2/position-tracker/internal/scheduler"
	"github.com/OCAP2/position-tracker/internal/session"
)

// Tracker commands.
const (
	CommandTick    = ":TICK:"
	CommandStatus  = ":STATUS:"
	CommandVersion = ":VERSION:"
)

// Dependencies holds all dependencies for the tracker
type Dependencies struct {
	Config  config.TrackerConfig
	Bridge  *host.Bridge
	Logger  *slog.Logger
	Now     func() time.Time
	Version string
}

// Status is the reply to the status command.
type Status struct {
	Capture     session.CaptureState
	Mode        frontend.Mode
	MenuVisible bool
	Fibers      int
}

func (s Status) String() string {
	return fmt.Sprintf("capture=%s mode=%s menuVisible=%t fibers=%d",
		s.Capture, s.Mode, s.MenuVisible, s.Fibers)
}

// Tracker owns the session and every component that shares it.
type Tracker struct {
	deps      Dependencies
	session   *session.State
	scheduler *scheduler.Scheduler
	writer    *persist.Writer
	capture   *capture.Machine
	frontend  *frontend.Controller
	started   bool
}

// New builds the components. Nothing runs until Start.
func New(deps Dependencies) (*Tracker, error) {
	if deps.Bridge == nil {
		return nil, errors.New("tracker: bridge is required")
	}
	if err := deps.Config.Validate(); err != nil {
		return nil, fmt.Errorf("tracker: %w", err)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	t := &Tracker{deps: deps, session: session.New()}

	var err error
	t.scheduler, err = scheduler.New(logging.NewDispatcherLogger(deps.Logger.With("component", "scheduler")))
	if err != nil {
		return nil, err
	}

	t.writer, err = persist.NewWriter(persist.Dependencies{
		Dir:     deps.Config.FilePath,
		Style:   deps.Config.Style,
		Tokens:  deps.Config.Tokens,
		Logger:  deps.Logger.With("component", "persist"),
		Trivial: deps.Bridge,
		Now:     deps.Now,
	})
	if err != nil {
		return nil, err
	}

	t.capture, err = capture.New(capture.Dependencies{
		Session:  t.session,
		Position: deps.Bridge,
		Entry:    deps.Bridge,
		Notifier: deps.Bridge,
		Writer:   t.writer,
		Logger:   deps.Logger.With("component", "capture"),
		Now:      deps.Now,
	})
	if err != nil {
		return nil, err
	}

	t.frontend, err = frontend.New(frontend.Dependencies{
		Config:    deps.Config,
		Session:   t.session,
		Capture:   t.capture,
		Menu:      deps.Bridge,
		Keys:      deps.Bridge,
		Scheduler: t.scheduler,
		Logger:    deps.Logger.With("component", "frontend"),
	})
	if err != nil {
		return nil, err
	}

	return t, nil
}

// ErrAlreadyStarted is returned by a second Start.
var ErrAlreadyStarted = errors.New("tracker already started")

// Start builds the menu if configured and starts the fibers.
func (t *Tracker) Start() error {
	if t.started {
		return ErrAlreadyStarted
	}
	if err := t.frontend.Start(); err != nil {
		return err
	}
	t.started = true
	return nil
}

// RegisterHandlers registers the tracker and bridge commands.
func (t *Tracker) RegisterHandlers(d *dispatcher.Dispatcher) {
	t.deps.Bridge.RegisterHandlers(d)

	d.Register(CommandTick, func(dispatcher.Event) (any, error) {
		return nil, t.Tick()
	})
	d.Register(CommandStatus, func(dispatcher.Event) (any, error) {
		return t.Status(), nil
	})
	d.Register(CommandVersion, func(dispatcher.Event) (any, error) {
		return t.deps.Version, nil
	})
}

// Tick latches host input and runs one scheduler tick.
func (t *Tracker) Tick() error {
	t.deps.Bridge.BeginTick()
	defer t.deps.Bridge.EndTick()
	return t.scheduler.Tick()
}

// Status reports the current capture phase and front-end state.
func (t *Tracker) Status() Status {
	return Status{
		Capture:     t.session.Capture(),
		Mode:        t.frontend.Mode(),
		MenuVisible: t.session.MenuVisible(),
		Fibers:      t.scheduler.Len(),
	}
}

// LogAttrs describes the tracker for every log record.
func (t *Tracker) LogAttrs() []slog.Attr {
	if t == nil || t.frontend == nil {
		return nil
	}
	return []slog.Attr{
		slog.String("captureState", t.session.Capture().String()),
		slog.String("mode", t.frontend.Mode().String()),
	}
}

// Shutdown stops every fiber. A pending capture is abandoned.
func (t *Tracker) Shutdown() {
	live := t.frontend.Stop()
	t.scheduler.Stop()
	t.deps.Logger.Info("Tracker stopped", "stoppedFibers", live)
	if t.session.Capture().Active() {
		t.deps.Logger.Warn("Shutting down with capture in progress", "state", t.session.Capture().String())
	}
}
