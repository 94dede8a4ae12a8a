package tracker

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OCAP2/position-tracker/internal/config"
	"github.com/OCAP2/position-tracker/internal/dispatcher"
	"github.com/OCAP2/position-tracker/internal/frontend"
	"github.com/OCAP2/position-tracker/internal/host"
	"github.com/OCAP2/position-tracker/internal/keys"
	"github.com/OCAP2/position-tracker/internal/logging"
	"github.com/OCAP2/position-tracker/internal/persist"
	"github.com/OCAP2/position-tracker/internal/session"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type callback struct {
	function string
	data     []string
}

type harness struct {
	t       *testing.T
	tracker *Tracker
	d       *dispatcher.Dispatcher
	sent    []callback
	trivial *bytes.Buffer
	logs    *bytes.Buffer
	dir     string
	now     time.Time
}

func testConfig(dir string, useMenu bool) config.TrackerConfig {
	return config.TrackerConfig{
		UseMenu:  useMenu,
		SaveKey:  keys.F7,
		FilePath: dir,
		Style:    "{X}, {Y}, {Z}, {W} | {T} | {N}",
		Tokens: config.Tokens{
			X: "{X}", Y: "{Y}", Z: "{Z}", W: "{W}", Time: "{T}", Name: "{N}",
		},
	}
}

func newHarness(t *testing.T, useMenu bool) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		trivial: &bytes.Buffer{},
		logs:    &bytes.Buffer{},
		dir:     t.TempDir(),
		now:     time.Date(2026, 3, 7, 14, 5, 9, 0, time.UTC),
	}

	bridge := host.NewBridge(func(function string, data ...string) error {
		h.sent = append(h.sent, callback{function, data})
		return nil
	}, nil, zerolog.New(h.trivial))

	d, err := dispatcher.New(logging.NewDispatcherLogger(nil))
	require.NoError(t, err)

	tr, err := New(Dependencies{
		Config:  testConfig(h.dir, useMenu),
		Bridge:  bridge,
		Logger:  slog.New(slog.NewTextHandler(h.logs, nil)),
		Now:     func() time.Time { return h.now },
		Version: "1.2.3",
	})
	require.NoError(t, err)
	tr.RegisterHandlers(d)
	require.NoError(t, tr.Start())

	h.tracker = tr
	h.d = d
	return h
}

func (h *harness) dispatch(command string, args ...string) (any, error) {
	return h.d.Dispatch(dispatcher.Event{Command: command, Args: args, Timestamp: h.now})
}

func (h *harness) mustDispatch(command string, args ...string) any {
	h.t.Helper()
	result, err := h.dispatch(command, args...)
	require.NoError(h.t, err, command)
	return result
}

func (h *harness) callbacks(function string) []callback {
	var out []callback
	for _, c := range h.sent {
		if c.function == function {
			out = append(out, c)
		}
	}
	return out
}

func (h *harness) dayFile() string {
	return filepath.Join(h.dir, "Coords_26-03-07.txt")
}

func TestNew_RequiresBridge(t *testing.T) {
	_, err := New(Dependencies{Config: testConfig(t.TempDir(), false)})
	assert.Error(t, err)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	bridge := host.NewBridge(nil, nil, zerolog.Nop())
	cfg := testConfig("", false)

	_, err := New(Dependencies{Config: cfg, Bridge: bridge})
	assert.Error(t, err)
}

func TestHotkeyScenario(t *testing.T) {
	h := newHarness(t, false)

	h.mustDispatch(host.CommandPosition, "100", "200", "30", "90")
	h.mustDispatch(host.CommandKeyDown, "F7")
	h.mustDispatch(CommandTick)

	opens := h.callbacks(host.CallbackKeyboardOpen)
	require.Len(t, opens, 1)
	assert.Equal(t, []string{"FMMC_KEY_TIP8", "", "40"}, opens[0].data)
	assert.Equal(t, session.AwaitingInput, h.tracker.Status().Capture)

	h.mustDispatch(host.CommandKeyboard, "0")
	h.mustDispatch(CommandTick)
	assert.NoFileExists(t, h.dayFile())

	h.mustDispatch(host.CommandKeyboard, "1", `"Alpha"`)
	h.mustDispatch(CommandTick)

	data, err := os.ReadFile(h.dayFile())
	require.NoError(t, err)
	assert.Equal(t, "100, 200, 29, 90 | 07-03-26 14:05:09 | Alpha\n", string(data))
	assert.Equal(t, session.Idle, h.tracker.Status().Capture)

	notices := h.callbacks(host.CallbackNotify)
	require.Len(t, notices, 1)
	assert.Equal(t, []string{"~HC_9~Alpha~s~ X:100 Y:200 Z:29 W:90 ~g~saved to file."}, notices[0].data)

	trivial := h.trivial.String()
	assert.Contains(t, trivial, "Creating new Coords file "+h.dayFile())
	assert.Contains(t, trivial, "Alpha X:100 Y:200 Z:29 W:90 saved to file.")
}

func TestHotkeyScenario_SecondPressWhileAwaitingIsIgnored(t *testing.T) {
	h := newHarness(t, false)

	h.mustDispatch(host.CommandPosition, "1", "2", "3", "0")
	h.mustDispatch(host.CommandKeyDown, "F7")
	h.mustDispatch(CommandTick)
	h.mustDispatch(host.CommandKeyDown, "F7")
	h.mustDispatch(CommandTick)

	assert.Len(t, h.callbacks(host.CallbackKeyboardOpen), 1)
	assert.Equal(t, session.AwaitingInput, h.tracker.Status().Capture)
}

func TestHotkeyScenario_Cancelled(t *testing.T) {
	h := newHarness(t, false)

	h.mustDispatch(host.CommandPosition, "1", "2", "3", "0")
	h.mustDispatch(host.CommandKeyDown, "F7")
	h.mustDispatch(CommandTick)
	h.mustDispatch(host.CommandKeyboard, "2")
	h.mustDispatch(CommandTick)

	assert.Equal(t, session.Idle, h.tracker.Status().Capture)
	assert.NoFileExists(t, h.dayFile())
	assert.Empty(t, h.callbacks(host.CallbackNotify))
}

func TestHotkeyScenario_NoOperatorSurfacesOnTick(t *testing.T) {
	h := newHarness(t, false)

	h.mustDispatch(host.CommandNoOperator)
	h.mustDispatch(host.CommandKeyDown, "F7")
	_, err := h.dispatch(CommandTick)

	assert.ErrorIs(t, err, host.ErrNoOperator)
	assert.Equal(t, session.Idle, h.tracker.Status().Capture)
}

func TestHotkeyScenario_WriteFailureSurfacesOnTick(t *testing.T) {
	h := newHarness(t, false)
	// a plain file where the day file's directory should be
	require.NoError(t, os.RemoveAll(h.dir))
	require.NoError(t, os.WriteFile(h.dir, []byte("x"), 0644))

	h.mustDispatch(host.CommandPosition, "1", "2", "3", "0")
	h.mustDispatch(host.CommandKeyDown, "F7")
	h.mustDispatch(CommandTick)
	h.mustDispatch(host.CommandKeyboard, "1", "Bravo")
	_, err := h.dispatch(CommandTick)

	assert.ErrorIs(t, err, persist.ErrWrite)
	notices := h.callbacks(host.CallbackNotify)
	require.Len(t, notices, 1)
	assert.Equal(t, []string{"~r~Failed to save position."}, notices[0].data)
	assert.Equal(t, session.Idle, h.tracker.Status().Capture)
}

func TestMenuScenario(t *testing.T) {
	h := newHarness(t, true)

	creates := h.callbacks(host.CallbackMenuCreate)
	require.Len(t, creates, 1)
	assert.Equal(t, []string{frontend.MenuTitle, frontend.MenuSubtitle}, creates[0].data)
	items := h.callbacks(host.CallbackMenuItem)
	require.Len(t, items, 1)
	assert.Equal(t, []string{frontend.SaveItemID, frontend.SaveItemTitle, frontend.SaveItemDescription}, items[0].data)

	h.mustDispatch(host.CommandPosition, "100", "200", "30", "90")
	h.mustDispatch(host.CommandKeyDown, "F7")
	h.mustDispatch(CommandTick)
	assert.True(t, h.tracker.Status().MenuVisible)
	assert.Equal(t, session.Idle, h.tracker.Status().Capture, "hotkey only toggles the menu")

	h.mustDispatch(host.CommandMenuActivate, frontend.SaveItemID)
	h.mustDispatch(CommandTick)

	assert.False(t, h.tracker.Status().MenuVisible)
	assert.Equal(t, session.AwaitingInput, h.tracker.Status().Capture)

	// the menu is hidden before the label prompt opens
	var order []string
	for _, c := range h.sent {
		switch c.function {
		case host.CallbackMenuVisible, host.CallbackKeyboardOpen:
			order = append(order, c.function+c.data[0])
		}
	}
	assert.Equal(t, []string{
		host.CallbackMenuVisible + "true",
		host.CallbackMenuVisible + "false",
		host.CallbackKeyboardOpen + "FMMC_KEY_TIP8",
	}, order)

	h.mustDispatch(host.CommandKeyboard, "1", "Alpha")
	h.mustDispatch(CommandTick)
	data, err := os.ReadFile(h.dayFile())
	require.NoError(t, err)
	assert.Equal(t, "100, 200, 29, 90 | 07-03-26 14:05:09 | Alpha\n", string(data))
}

func TestNewDayNewFile(t *testing.T) {
	h := newHarness(t, false)
	h.mustDispatch(host.CommandPosition, "1", "2", "3", "0")

	save := func(label string) {
		h.mustDispatch(host.CommandKeyDown, "F7")
		h.mustDispatch(CommandTick)
		h.mustDispatch(host.CommandKeyboard, "1", label)
		h.mustDispatch(CommandTick)
	}

	save("first")
	h.now = h.now.Add(24 * time.Hour)
	save("second")

	assert.FileExists(t, filepath.Join(h.dir, "Coords_26-03-07.txt"))
	assert.FileExists(t, filepath.Join(h.dir, "Coords_26-03-08.txt"))
}

func TestStatusAndVersion(t *testing.T) {
	h := newHarness(t, true)

	status := h.mustDispatch(CommandStatus)
	assert.Equal(t, "capture=idle mode=menu menuVisible=false fibers=3", status.(Status).String())
	assert.Equal(t, "1.2.3", h.mustDispatch(CommandVersion))
}

func TestLogAttrs(t *testing.T) {
	h := newHarness(t, false)

	attrs := h.tracker.LogAttrs()
	require.Len(t, attrs, 2)
	assert.Equal(t, "idle", attrs[0].Value.String())
	assert.Equal(t, "hotkey", attrs[1].Value.String())

	var nilTracker *Tracker
	assert.Nil(t, nilTracker.LogAttrs())
}

func TestStart_Twice(t *testing.T) {
	h := newHarness(t, true)

	assert.ErrorIs(t, h.tracker.Start(), ErrAlreadyStarted)
	assert.Len(t, h.callbacks(host.CallbackMenuCreate), 1)
	assert.Equal(t, 3, h.tracker.Status().Fibers)
}

func TestShutdown(t *testing.T) {
	h := newHarness(t, false)

	h.tracker.Shutdown()
	h.mustDispatch(CommandTick)

	assert.Contains(t, h.logs.String(), "stoppedFibers=")
	assert.Contains(t, h.logs.String(), "KeyboardStatusChecker")

	assert.Zero(t, h.tracker.Status().Fibers)
}
