package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// recordingExporter keeps the body and string attributes of every exported
// OTel record.
type recordingExporter struct {
	mu     sync.Mutex
	bodies []string
	attrs  []map[string]string
}

func (e *recordingExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		kv := map[string]string{}
		r.WalkAttributes(func(a otellog.KeyValue) bool {
			kv[a.Key] = a.Value.AsString()
			return true
		})
		e.bodies = append(e.bodies, r.Body().AsString())
		e.attrs = append(e.attrs, kv)
	}
	return nil
}

func (e *recordingExporter) Shutdown(context.Context) error { return nil }

func (e *recordingExporter) ForceFlush(context.Context) error { return nil }

func (e *recordingExporter) snapshot() ([]string, []map[string]string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.bodies...), append([]map[string]string(nil), e.attrs...)
}

func TestSetup_LogFileSilencesStdout(t *testing.T) {
	out := captureStdout(t)

	var file bytes.Buffer
	m := NewSlogManager()
	m.Setup(&file, "info", nil)
	m.Logger().Info("Position saved", "path", "Coords_26-10-19.txt")

	assert.Contains(t, file.String(), "Logging initialized")
	assert.Contains(t, file.String(), "path=Coords_26-10-19.txt")
	assert.Empty(t, out())
}

func TestSetup_BootstrapWritesToStdout(t *testing.T) {
	out := captureStdout(t)

	// Before config is loaded the extension logs with no file at all.
	m := NewSlogManager()
	m.Setup(nil, "info", nil)
	m.Logger().Warn("Config not found, using defaults")

	got := out()
	assert.Contains(t, got, "Logging initialized")
	assert.Contains(t, got, "Config not found, using defaults")
}

func TestSetup_ReconfigureMovesToFile(t *testing.T) {
	out := captureStdout(t)

	m := NewSlogManager()
	m.Setup(nil, "info", nil)
	bootstrap := m.Logger()

	var file bytes.Buffer
	m.Setup(&file, "info", nil)
	m.Logger().Info("after config")

	assert.NotSame(t, bootstrap, m.Logger())
	assert.Contains(t, file.String(), "after config")
	assert.NotContains(t, out(), "after config")
}

func TestSetup_LogLevelFromConfig(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{"debug", true, true},
		{"INFO", false, true},
		{"warn", false, false},
		{"error", false, false},
		{"", false, true},
		{"verbose", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var file bytes.Buffer
			m := NewSlogManager()
			m.Setup(&file, tt.level, nil)
			m.Logger().Debug("tick handled")
			m.Logger().Info("menu toggled")

			assert.Equal(t, tt.wantDebug, strings.Contains(file.String(), "tick handled"))
			assert.Equal(t, tt.wantInfo, strings.Contains(file.String(), "menu toggled"))
		})
	}
}

func TestSetup_TimestampsInUTC(t *testing.T) {
	var file bytes.Buffer
	m := NewSlogManager()
	m.Setup(&file, "info", nil)

	assert.Regexp(t, `time=\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z `, file.String())
}

func TestSetup_TrackerStateOnEveryRecord(t *testing.T) {
	state := "Idle"
	var file bytes.Buffer
	m := NewSlogManager()
	m.State = func() []slog.Attr {
		return []slog.Attr{
			slog.String("captureState", state),
			slog.String("mode", "Keyboard"),
		}
	}
	m.Setup(&file, "info", nil)

	// Components log through derived loggers; state must survive With.
	capture := m.Logger().With("component", "capture")
	state = "Capturing"
	capture.Info("Capture started")
	state = "AwaitingInput"
	capture.Info("Awaiting label")

	lines := strings.Split(strings.TrimSpace(file.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "captureState=Idle")
	assert.Contains(t, lines[1], "component=capture")
	assert.Contains(t, lines[1], "captureState=Capturing")
	assert.Contains(t, lines[2], "captureState=AwaitingInput")
	assert.Contains(t, lines[2], "mode=Keyboard")
}

func TestSetup_StateBeforeTrackerExists(t *testing.T) {
	var file bytes.Buffer
	m := NewSlogManager()
	// The tracker is built after logging, so the provider starts out empty.
	m.State = func() []slog.Attr { return nil }
	m.Setup(&file, "info", nil)
	m.Logger().Info("Config loaded")

	assert.Contains(t, file.String(), "Config loaded")
	assert.NotContains(t, file.String(), "captureState")
}

func TestSetup_OTelBridgeReceivesRecords(t *testing.T) {
	exp := &recordingExporter{}
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exp)))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	var file bytes.Buffer
	m := NewSlogManager()
	m.State = func() []slog.Attr { return []slog.Attr{slog.String("captureState", "Idle")} }
	m.Setup(&file, "info", provider)
	m.Logger().Info("Position saved", "label", "hill")

	assert.Contains(t, file.String(), "Position saved")

	bodies, attrs := exp.snapshot()
	require.Contains(t, bodies, "Position saved")
	idx := len(bodies) - 1
	assert.Equal(t, "Position saved", bodies[idx])
	assert.Equal(t, "hill", attrs[idx]["label"])
	assert.Equal(t, "Idle", attrs[idx]["captureState"])
}

func TestFlush_DrainsBatchedRecords(t *testing.T) {
	exp := &recordingExporter{}
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(
		sdklog.NewBatchProcessor(exp, sdklog.WithExportInterval(time.Hour)),
	))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	var file bytes.Buffer
	m := NewSlogManager()
	m.Setup(&file, "info", provider)
	m.Logger().Info("Shutting down")

	require.NoError(t, m.Flush(context.Background()))

	bodies, _ := exp.snapshot()
	assert.Contains(t, bodies, "Shutting down")
}

func TestFlush_WithoutProvider(t *testing.T) {
	m := NewSlogManager()
	assert.NoError(t, m.Flush(context.Background()))

	var file bytes.Buffer
	m.Setup(&file, "info", nil)
	assert.NoError(t, m.Flush(context.Background()))
}

func TestLogger_DefaultBeforeSetup(t *testing.T) {
	assert.Same(t, slog.Default(), NewSlogManager().Logger())
}

// failingHandler accepts every record and fails to handle it.
type failingHandler struct {
	slog.Handler
	err error
}

func (h *failingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *failingHandler) Handle(context.Context, slog.Record) error { return h.err }

func TestMultiHandler_JoinsSinkErrors(t *testing.T) {
	errFile := errors.New("disk full")
	errExport := errors.New("collector unreachable")

	var buf bytes.Buffer
	text := slog.NewTextHandler(&buf, nil)
	multi := NewMultiHandler(&failingHandler{err: errFile}, nil, text, &failingHandler{err: errExport})

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "Position saved", 0)
	err := multi.Handle(context.Background(), r)

	assert.ErrorIs(t, err, errFile)
	assert.ErrorIs(t, err, errExport)
	assert.Contains(t, buf.String(), "Position saved")
}

// captureStdout swaps the package stdout writer for a buffer and returns a
// function that restores it and returns what was captured.
func captureStdout(t *testing.T) func() string {
	t.Helper()

	var buf bytes.Buffer
	orig := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = orig })

	return func() string {
		stdout = orig
		return buf.String()
	}
}
