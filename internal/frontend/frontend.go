// Package frontend turns operator input into capture requests, either through
// a host menu or a single hotkey, and keeps the label prompt polled.
package frontend

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/OCAP2/position-tracker/internal/capture"
	"github.com/OCAP2/position-tracker/internal/config"
	"github.com/OCAP2/position-tracker/internal/host"
	"github.com/OCAP2/position-tracker/internal/scheduler"
	"github.com/OCAP2/position-tracker/internal/session"
)

// Fiber names.
const (
	FiberMenuProcessor         = "MenuProcessor"
	FiberMenuToggle            = "MenuToggle"
	FiberKeyboardProcessor     = "KeyboardProcessor"
	FiberKeyboardStatusChecker = "KeyboardStatusChecker"
)

// Menu text.
const (
	MenuTitle           = "PositionTracker"
	MenuSubtitle        = "Save the players coordinates"
	SaveItemID          = "save"
	SaveItemTitle       = "Save Current Position"
	SaveItemDescription = "Saves the player's current coordinates to a file"
)

// Mode selects how the operator triggers a capture.
type Mode int

const (
	ModeMenu Mode = iota
	ModeHotkey
)

func (m Mode) String() string {
	switch m {
	case ModeMenu:
		return "menu"
	case ModeHotkey:
		return "hotkey"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// Capturer is the part of the capture machine the front end drives.
type Capturer interface {
	BeginCapture() error
	PollInputStatus() error
}

// Dependencies holds all dependencies for the controller
type Dependencies struct {
	Config    config.TrackerConfig
	Session   *session.State
	Capture   Capturer
	Menu      host.Menu
	Keys      host.KeyState
	Scheduler *scheduler.Scheduler
	Logger    *slog.Logger
}

// Controller owns the front-end fibers.
type Controller struct {
	deps    Dependencies
	mode    Mode
	handles []*scheduler.Handle
}

// New creates a controller. The mode is fixed here from UseMenu.
func New(deps Dependencies) (*Controller, error) {
	if deps.Session == nil || deps.Capture == nil || deps.Keys == nil || deps.Scheduler == nil {
		return nil, errors.New("frontend: missing dependency")
	}
	if deps.Config.UseMenu && deps.Menu == nil {
		return nil, errors.New("frontend: menu mode requires a menu")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	mode := ModeHotkey
	if deps.Config.UseMenu {
		mode = ModeMenu
	}
	return &Controller{deps: deps, mode: mode}, nil
}

// Mode returns the trigger mode.
func (c *Controller) Mode() Mode {
	return c.mode
}

// Start builds the menu when needed and registers the fibers.
func (c *Controller) Start() error {
	if c.mode == ModeMenu {
		err := c.deps.Menu.Build(MenuTitle, MenuSubtitle, host.MenuItem{
			ID:          SaveItemID,
			Title:       SaveItemTitle,
			Description: SaveItemDescription,
			OnActivated: c.onSaveItem,
		})
		if err != nil {
			return fmt.Errorf("building menu: %w", err)
		}

		inMenuMode := func() bool { return c.mode == ModeMenu }
		c.spawn(FiberMenuProcessor, func() error {
			c.deps.Menu.Process()
			return nil
		}, inMenuMode)
		c.spawn(FiberMenuToggle, func() error {
			if c.deps.Keys.WasPressed(c.deps.Config.SaveKey) {
				return c.ToggleMenu()
			}
			return nil
		}, inMenuMode)
	} else {
		c.spawn(FiberKeyboardProcessor, func() error {
			if c.deps.Keys.WasPressed(c.deps.Config.SaveKey) {
				return c.begin()
			}
			return nil
		}, func() bool { return c.mode == ModeHotkey })
	}

	c.spawn(FiberKeyboardStatusChecker, c.deps.Capture.PollInputStatus, scheduler.Always)

	c.deps.Logger.Info("Front end started", "mode", c.mode.String(), "saveKey", c.deps.Config.SaveKey.String())
	return nil
}

func (c *Controller) spawn(name string, step scheduler.Step, while scheduler.Predicate) {
	c.handles = append(c.handles, c.deps.Scheduler.ExecuteWhile(name, step, while))
}

// ToggleMenu flips the menu visibility.
func (c *Controller) ToggleMenu() error {
	visible := !c.deps.Session.MenuVisible()
	if err := c.deps.Menu.SetVisible(visible); err != nil {
		return fmt.Errorf("toggling menu: %w", err)
	}
	c.deps.Session.SetMenuVisible(visible)
	return nil
}

// ActivateSaveItem hides the menu and then begins a capture.
func (c *Controller) ActivateSaveItem() error {
	if err := c.deps.Menu.SetVisible(false); err != nil {
		c.deps.Logger.Warn("Failed to hide menu", "error", err)
	} else {
		c.deps.Session.SetMenuVisible(false)
	}
	return c.begin()
}

func (c *Controller) onSaveItem() {
	if err := c.ActivateSaveItem(); err != nil {
		c.deps.Logger.Error("Capture from menu failed", "error", err)
	}
}

func (c *Controller) begin() error {
	err := c.deps.Capture.BeginCapture()
	if errors.Is(err, capture.ErrCaptureInProgress) {
		c.deps.Logger.Debug("Capture request ignored", "reason", err)
		return nil
	}
	return err
}

// Stop cancels every fiber started by Start and returns the names of those
// that were still live.
func (c *Controller) Stop() []string {
	var live []string
	for _, h := range c.handles {
		if !h.Done() {
			live = append(live, h.Name())
		}
		h.Cancel()
	}
	c.handles = nil
	return live
}
