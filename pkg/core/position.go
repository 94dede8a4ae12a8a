// pkg/core/position.go
package core

import (
	"fmt"
	"strconv"
	"time"
)

// TimestampLayout is the record timestamp format (dd-MM-yy HH:mm:ss).
const TimestampLayout = "02-01-06 15:04:05"

// DayLayout names the per-day output file (yy-MM-dd).
const DayLayout = "06-01-02"

// Position3D is a point in the host's world frame.
type Position3D struct {
	X float64
	Y float64
	Z float64
}

// Snapshot is a captured position waiting for its label.
type Snapshot struct {
	Position   Position3D
	Heading    float64
	CapturedAt time.Time
}

// IsZero reports whether no snapshot has been taken.
func (s Snapshot) IsZero() bool {
	return s.CapturedAt.IsZero() && s.Position == (Position3D{}) && s.Heading == 0
}

// PositionRecord is one labelled capture, ready to be written out.
type PositionRecord struct {
	X         float64
	Y         float64
	Z         float64
	Heading   float64
	Label     string
	Timestamp string
}

// NewPositionRecord combines a snapshot with the operator's label.
// The timestamp is taken from at, not from the snapshot.
func NewPositionRecord(s Snapshot, label string, at time.Time) PositionRecord {
	return PositionRecord{
		X:         s.Position.X,
		Y:         s.Position.Y,
		Z:         s.Position.Z,
		Heading:   s.Heading,
		Label:     label,
		Timestamp: at.Format(TimestampLayout),
	}
}

// String renders the coordinates as "X:<x> Y:<y> Z:<z> W:<heading>".
func (r PositionRecord) String() string {
	return fmt.Sprintf("X:%s Y:%s Z:%s W:%s",
		FormatFloat(r.X), FormatFloat(r.Y), FormatFloat(r.Z), FormatFloat(r.Heading))
}

// FormatFloat uses the shortest decimal form that round-trips.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
