package host

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/OCAP2/position-tracker/internal/keys"
	"github.com/OCAP2/position-tracker/internal/queue"
	"github.com/OCAP2/position-tracker/pkg/core"
	"github.com/rs/zerolog"
)

// Host callback functions.
const (
	CallbackKeyboardOpen = ":KEYBOARD:OPEN:"
	CallbackNotify       = ":NOTIFY:"
	CallbackMenuCreate   = ":MENU:CREATE:"
	CallbackMenuItem     = ":MENU:ITEM:"
	CallbackMenuVisible  = ":MENU:VISIBLE:"
)

// Keyboard status codes as reported by the host.
const (
	KeyboardNotDisplayed = -1
	KeyboardEditing      = 0
	KeyboardFinished     = 1
	KeyboardCancelled    = 2
	KeyboardFailed       = 3
)

// pending input is bounded so a host that stops ticking cannot grow it forever
const maxPendingInput = 64

// Callback delivers a request to the host.
type Callback func(function string, data ...string) error

// Bridge implements every host contract on top of state pushed in by host
// commands and requests sent out through the callback.
//
// Key presses and menu activations are queued as they arrive and latched at
// BeginTick, so every fiber in a tick sees the same input.
type Bridge struct {
	callback Callback
	logger   *slog.Logger
	trivial  zerolog.Logger

	position    core.Position3D
	heading     float64
	hasPosition bool

	keyQueue *queue.Queue[keys.Code]
	pressed  map[keys.Code]bool

	entryOpen   bool
	entryStatus EntryStatus
	entryResult string

	menuItems   map[string]MenuItem
	activations *queue.Queue[string]
	menuVisible bool
}

// NewBridge creates a bridge. trivial receives LogTrivial lines.
func NewBridge(callback Callback, logger *slog.Logger, trivial zerolog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		callback:    callback,
		logger:      logger,
		trivial:     trivial,
		keyQueue:    queue.NewBounded[keys.Code](maxPendingInput),
		pressed:     make(map[keys.Code]bool),
		menuItems:   make(map[string]MenuItem),
		activations: queue.NewBounded[string](maxPendingInput),
	}
}

func (b *Bridge) send(function string, data ...string) error {
	if b.callback == nil {
		return fmt.Errorf("no host callback registered for %s", function)
	}
	if err := b.callback(function, data...); err != nil {
		return fmt.Errorf("host callback %s: %w", function, err)
	}
	return nil
}

// SetPosition records the operator's latest position.
func (b *Bridge) SetPosition(pos core.Position3D, heading float64) {
	b.position = pos
	b.heading = heading
	b.hasPosition = true
}

// ClearPosition forgets the operator, e.g. when the host reports none.
func (b *Bridge) ClearPosition() {
	b.hasPosition = false
}

// Position implements PositionProvider.
func (b *Bridge) Position() (core.Position3D, float64, error) {
	if !b.hasPosition {
		return core.Position3D{}, 0, ErrNoOperator
	}
	return b.position, b.heading, nil
}

// PressKey queues a key-down for the next tick.
func (b *Bridge) PressKey(code keys.Code) {
	if dropped := b.keyQueue.Push(code); dropped > 0 {
		b.logger.Warn("Dropped queued key presses", "count", dropped)
	}
}

// BeginTick latches queued input for this tick.
func (b *Bridge) BeginTick() {
	clear(b.pressed)
	for _, code := range b.keyQueue.Drain() {
		b.pressed[code] = true
	}
}

// EndTick discards input that nobody consumed.
func (b *Bridge) EndTick() {
	clear(b.pressed)
}

// WasPressed implements KeyState.
func (b *Bridge) WasPressed(code keys.Code) bool {
	return code != keys.None && b.pressed[code]
}

// Open implements TextEntry.
func (b *Bridge) Open(promptID, defaultText string, maxLength int) error {
	b.entryStatus = EntryPending
	b.entryResult = ""
	if err := b.send(CallbackKeyboardOpen, promptID, defaultText, strconv.Itoa(maxLength)); err != nil {
		b.entryOpen = false
		return err
	}
	b.entryOpen = true
	return nil
}

// SetKeyboardStatus records the host's keyboard status code and text.
// Reports that arrive while no keyboard is open are ignored.
func (b *Bridge) SetKeyboardStatus(code int, text string) error {
	var status EntryStatus
	switch code {
	case KeyboardEditing:
		status = EntryPending
	case KeyboardFinished:
		status = EntryFinished
	case KeyboardCancelled, KeyboardFailed, KeyboardNotDisplayed:
		status = EntryCancelled
	default:
		return fmt.Errorf("unknown keyboard status %d", code)
	}

	if !b.entryOpen {
		return nil
	}
	b.entryStatus = status
	if status == EntryFinished {
		b.entryResult = text
	}
	if status != EntryPending {
		b.entryOpen = false
	}
	return nil
}

// Status implements TextEntry.
func (b *Bridge) Status() EntryStatus {
	return b.entryStatus
}

// Result implements TextEntry.
func (b *Bridge) Result() string {
	return b.entryResult
}

// Build implements Menu.
func (b *Bridge) Build(title, subtitle string, items ...MenuItem) error {
	if err := b.send(CallbackMenuCreate, title, subtitle); err != nil {
		return err
	}
	for _, item := range items {
		if err := b.send(CallbackMenuItem, item.ID, item.Title, item.Description); err != nil {
			return err
		}
		b.menuItems[item.ID] = item
	}
	return nil
}

// SetVisible implements Menu.
func (b *Bridge) SetVisible(visible bool) error {
	if err := b.send(CallbackMenuVisible, strconv.FormatBool(visible)); err != nil {
		return err
	}
	b.menuVisible = visible
	return nil
}

// MenuVisible reports the last visibility sent to the host.
func (b *Bridge) MenuVisible() bool {
	return b.menuVisible
}

// ActivateItem queues a menu activation for the next Process call.
func (b *Bridge) ActivateItem(id string) error {
	if _, ok := b.menuItems[id]; !ok {
		return fmt.Errorf("unknown menu item %q", id)
	}
	if dropped := b.activations.Push(id); dropped > 0 {
		b.logger.Warn("Dropped queued menu activations", "count", dropped)
	}
	return nil
}

// Process implements Menu by running queued activation handlers.
func (b *Bridge) Process() {
	for _, id := range b.activations.Drain() {
		item := b.menuItems[id]
		b.logger.Debug("Menu item activated", "item", id)
		if item.OnActivated != nil {
			item.OnActivated()
		}
	}
}

// Notify implements Notifier. Delivery failures are logged, not returned.
func (b *Bridge) Notify(msg string) {
	if err := b.send(CallbackNotify, msg); err != nil {
		b.logger.Warn("Failed to deliver notification", "error", err)
	}
}

// LogTrivial implements Notifier.
func (b *Bridge) LogTrivial(msg string) {
	b.trivial.Info().Msg(msg)
}
