// Package persist appends captured positions to per-day text files.
package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/OCAP2/position-tracker/internal/config"
	intOtel "github.com/OCAP2/position-tracker/internal/otel"
	"github.com/OCAP2/position-tracker/pkg/core"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/position-tracker/internal/persist"

// ErrWrite wraps every failure to create or append to a day file.
var ErrWrite = errors.New("position write failed")

// TrivialLogger receives host-console diagnostics.
type TrivialLogger interface {
	LogTrivial(msg string)
}

// Dependencies holds all dependencies for the writer
type Dependencies struct {
	Dir     string
	Style   string
	Tokens  config.Tokens
	Logger  *slog.Logger
	Trivial TrivialLogger
	Now     func() time.Time
}

// Writer appends one formatted line per record. It keeps no file open
// between calls.
type Writer struct {
	deps     Dependencies
	appended metric.Int64Counter
	created  metric.Int64Counter
}

// NewWriter creates a writer. Logger and Now default to slog.Default and time.Now.
func NewWriter(deps Dependencies) (*Writer, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	m := intOtel.Meter(instrumentationName)
	appended, err := m.Int64Counter("persist.records.appended",
		metric.WithDescription("Total position records appended"))
	if err != nil {
		return nil, fmt.Errorf("creating appended counter: %w", err)
	}
	created, err := m.Int64Counter("persist.files.created",
		metric.WithDescription("Total day files created"))
	if err != nil {
		return nil, fmt.Errorf("creating created counter: %w", err)
	}

	return &Writer{deps: deps, appended: appended, created: created}, nil
}

// PathFor returns the day file for t: {dir}/Coords_{yy-MM-dd}.txt.
func (w *Writer) PathFor(t time.Time) string {
	return filepath.Join(w.deps.Dir, fmt.Sprintf("Coords_%s.txt", t.Format(core.DayLayout)))
}

// Format renders rec with the configured style as a single line.
func (w *Writer) Format(rec core.PositionRecord) string {
	return SingleLine(FormatLine(w.deps.Style, Substitutions(w.deps.Tokens, rec)))
}

// Append writes rec as one line to today's file, creating it if needed.
func (w *Writer) Append(rec core.PositionRecord) error {
	path := w.PathFor(w.deps.Now())

	if err := w.ensureFile(path); err != nil {
		return w.fail("create", path, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return w.fail("open", path, err)
	}

	// one write call so a line lands whole or not at all
	line := w.Format(rec) + "\n"
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return w.fail("write", path, err)
	}
	if err := f.Close(); err != nil {
		return w.fail("close", path, err)
	}

	w.appended.Add(context.Background(), 1)
	w.deps.Logger.Debug("Appended position record", "path", path, "label", rec.Label)
	return nil
}

func (w *Writer) ensureFile(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, os.ErrExist) {
		return nil
	}
	if err != nil {
		return err
	}

	if w.deps.Trivial != nil {
		w.deps.Trivial.LogTrivial("Creating new Coords file " + path)
	}
	w.deps.Logger.Info("Created coords file", "path", path)
	w.created.Add(context.Background(), 1)
	return f.Close()
}

func (w *Writer) fail(op, path string, err error) error {
	w.deps.Logger.Error("Failed to save position", "op", op, "path", path, "error", err)
	return fmt.Errorf("%w: %s %s: %w", ErrWrite, op, path, err)
}
