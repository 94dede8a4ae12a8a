package host

import (
	"fmt"
	"strconv"

	"github.com/OCAP2/position-tracker/internal/dispatcher"
	"github.com/OCAP2/position-tracker/internal/keys"
	"github.com/OCAP2/position-tracker/internal/util"
	"github.com/OCAP2/position-tracker/pkg/core"
)

// Host commands that feed the bridge.
const (
	CommandPosition     = ":POSITION:"
	CommandNoOperator   = ":POSITION:NONE:"
	CommandKeyDown      = ":KEY:DOWN:"
	CommandKeyboard     = ":KEYBOARD:"
	CommandMenuActivate = ":MENU:ACTIVATE:"
)

// RegisterHandlers wires the host's state commands to the bridge.
func (b *Bridge) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(CommandPosition, b.handlePosition, dispatcher.MinArgs(4))
	d.Register(CommandNoOperator, func(dispatcher.Event) (any, error) {
		b.ClearPosition()
		return nil, nil
	})
	d.Register(CommandKeyDown, b.handleKeyDown, dispatcher.MinArgs(1), dispatcher.Logged())
	d.Register(CommandKeyboard, b.handleKeyboard, dispatcher.MinArgs(1), dispatcher.Logged())
	d.Register(CommandMenuActivate, b.handleMenuActivate, dispatcher.MinArgs(1), dispatcher.Logged())
}

// args: x, y, z, heading
func (b *Bridge) handlePosition(e dispatcher.Event) (any, error) {
	var v [4]float64
	for i := range v {
		f, err := util.ParseFloatArg(e.Args[i])
		if err != nil {
			return nil, fmt.Errorf("%s arg %d: %w", CommandPosition, i, err)
		}
		v[i] = f
	}
	b.SetPosition(core.Position3D{X: v[0], Y: v[1], Z: v[2]}, v[3])
	return nil, nil
}

// args: key name or code
func (b *Bridge) handleKeyDown(e dispatcher.Event) (any, error) {
	code, err := keys.Parse(util.CleanArg(e.Args[0]))
	if err != nil {
		return nil, err
	}
	b.PressKey(code)
	return nil, nil
}

// args: status code, [text]
func (b *Bridge) handleKeyboard(e dispatcher.Event) (any, error) {
	code, err := strconv.Atoi(util.CleanArg(e.Args[0]))
	if err != nil {
		return nil, fmt.Errorf("invalid keyboard status %q", e.Args[0])
	}
	var text string
	if len(e.Args) > 1 {
		text = util.CleanArg(e.Args[1])
	}
	return nil, b.SetKeyboardStatus(code, text)
}

// args: item id
func (b *Bridge) handleMenuActivate(e dispatcher.Event) (any, error) {
	return nil, b.ActivateItem(util.CleanArg(e.Args[0]))
}
