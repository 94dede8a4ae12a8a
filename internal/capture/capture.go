// Package capture drives one position capture from the operator's trigger
// through label entry to the persisted record.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/OCAP2/position-tracker/internal/host"
	intOtel "github.com/OCAP2/position-tracker/internal/otel"
	"github.com/OCAP2/position-tracker/internal/session"
	"github.com/OCAP2/position-tracker/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/position-tracker/internal/capture"

const (
	// PromptID is the host's localisation key for the label prompt.
	PromptID = "FMMC_KEY_TIP8"
	// MaxLabelLength bounds the label the operator can type.
	MaxLabelLength = 40
	// VerticalOffset is subtracted from the reported height.
	VerticalOffset = 1.0

	failureNotice = "~r~Failed to save position."
)

// ErrCaptureInProgress is returned by BeginCapture while a capture is active.
var ErrCaptureInProgress = errors.New("capture already in progress")

// ErrNoSnapshot is returned when a label arrives with no position held.
var ErrNoSnapshot = errors.New("no captured position to label")

// Appender persists a finished record.
type Appender interface {
	Append(rec core.PositionRecord) error
}

// Dependencies holds all dependencies for the machine
type Dependencies struct {
	Session  *session.State
	Position host.PositionProvider
	Entry    host.TextEntry
	Notifier host.Notifier
	Writer   Appender
	Logger   *slog.Logger
	Now      func() time.Time
}

// Machine is the capture state machine. It is driven from scheduler fibers
// and is not safe for concurrent use.
type Machine struct {
	deps     Dependencies
	outcomes metric.Int64Counter
}

// New creates a machine. Session, Position, Entry, Notifier and Writer are required.
func New(deps Dependencies) (*Machine, error) {
	if deps.Session == nil || deps.Position == nil || deps.Entry == nil ||
		deps.Notifier == nil || deps.Writer == nil {
		return nil, errors.New("capture: missing dependency")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	outcomes, err := intOtel.Meter(instrumentationName).Int64Counter("capture.outcomes",
		metric.WithDescription("Finished captures by outcome"))
	if err != nil {
		return nil, fmt.Errorf("creating outcomes counter: %w", err)
	}

	return &Machine{deps: deps, outcomes: outcomes}, nil
}

// State returns the current capture phase.
func (m *Machine) State() session.CaptureState {
	return m.deps.Session.Capture()
}

// BeginCapture snapshots the operator's position and opens the label prompt.
func (m *Machine) BeginCapture() error {
	s := m.deps.Session
	if s.Capture() != session.Idle {
		return fmt.Errorf("%w (%s)", ErrCaptureInProgress, s.Capture())
	}

	pos, heading, err := m.deps.Position.Position()
	if err != nil {
		return fmt.Errorf("reading operator position: %w", err)
	}
	pos.Z -= VerticalOffset

	if err := s.Transition(session.Idle, session.Capturing); err != nil {
		return err
	}
	s.SetSnapshot(core.Snapshot{Position: pos, Heading: heading, CapturedAt: m.deps.Now()})
	m.deps.Logger.Debug("Position captured",
		"x", pos.X, "y", pos.Y, "z", pos.Z, "heading", heading)

	if err := m.deps.Entry.Open(PromptID, "", MaxLabelLength); err != nil {
		s.ClearSnapshot()
		// Capturing -> Idle is always allowed here
		_ = s.Transition(session.Capturing, session.Idle)
		return fmt.Errorf("opening label entry: %w", err)
	}

	return s.Transition(session.Capturing, session.AwaitingInput)
}

// PollInputStatus checks the label prompt once. It does nothing unless a
// label is being awaited.
func (m *Machine) PollInputStatus() error {
	s := m.deps.Session
	if s.Capture() != session.AwaitingInput {
		return nil
	}

	switch m.deps.Entry.Status() {
	case host.EntryPending:
		return nil
	case host.EntryCancelled:
		s.ClearSnapshot()
		m.record("cancelled")
		m.deps.Logger.Debug("Label entry cancelled")
		return s.Transition(session.AwaitingInput, session.Idle)
	case host.EntryFinished:
		return m.finish()
	}
	return nil
}

func (m *Machine) finish() error {
	s := m.deps.Session
	snap := s.Snapshot()
	s.ClearSnapshot()
	if err := s.Transition(session.AwaitingInput, session.Idle); err != nil {
		return err
	}
	if snap.IsZero() {
		m.record("failed")
		return ErrNoSnapshot
	}

	label := m.deps.Entry.Result()
	rec := core.NewPositionRecord(snap, label, m.deps.Now())

	if err := m.deps.Writer.Append(rec); err != nil {
		m.record("failed")
		m.deps.Notifier.Notify(failureNotice)
		return err
	}

	m.record("saved")
	m.deps.Notifier.Notify(fmt.Sprintf("~HC_9~%s~s~ %s ~g~saved to file.", label, rec))
	m.deps.Notifier.LogTrivial(fmt.Sprintf("%s %s saved to file.", label, rec))
	m.deps.Logger.Info("Position saved", "label", label, "record", rec.String())
	return nil
}

func (m *Machine) record(outcome string) {
	m.outcomes.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("outcome", outcome)))
}
