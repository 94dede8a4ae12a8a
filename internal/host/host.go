// Package host defines what the tracker needs from the game host and
// implements it over the extension command/callback channel.
package host

import (
	"errors"

	"github.com/OCAP2/position-tracker/internal/keys"
	"github.com/OCAP2/position-tracker/pkg/core"
)

// ErrNoOperator is returned when the host has not reported an operator position.
var ErrNoOperator = errors.New("no operator position available")

// EntryStatus is the on-screen keyboard state.
type EntryStatus int

const (
	EntryPending EntryStatus = iota
	EntryFinished
	EntryCancelled
)

func (s EntryStatus) String() string {
	switch s {
	case EntryPending:
		return "pending"
	case EntryFinished:
		return "finished"
	case EntryCancelled:
		return "cancelled"
	}
	return "unknown"
}

// PositionProvider reports where the operator stands and which way they face.
type PositionProvider interface {
	Position() (pos core.Position3D, heading float64, err error)
}

// KeyState reports key presses for the current tick.
type KeyState interface {
	WasPressed(code keys.Code) bool
}

// TextEntry is the on-screen keyboard.
type TextEntry interface {
	Open(promptID, defaultText string, maxLength int) error
	Status() EntryStatus
	Result() string
}

// MenuItem is one selectable menu entry.
type MenuItem struct {
	ID          string
	Title       string
	Description string
	OnActivated func()
}

// Menu is the host-rendered menu.
type Menu interface {
	Build(title, subtitle string, items ...MenuItem) error
	SetVisible(visible bool) error
	Process()
}

// Notifier shows messages to the operator and writes the host console log.
type Notifier interface {
	Notify(msg string)
	LogTrivial(msg string)
}
