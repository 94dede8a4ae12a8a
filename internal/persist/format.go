package persist

import (
	"strings"

	"github.com/OCAP2/position-tracker/internal/config"
	"github.com/OCAP2/position-tracker/pkg/core"
)

// Substitution replaces every occurrence of Token with Value.
type Substitution struct {
	Token string
	Value string
}

// Substitutions lists the record's values in application order: X, Y, Z, W, time, name.
// The label goes last so text typed by the operator is never re-expanded.
func Substitutions(tokens config.Tokens, rec core.PositionRecord) []Substitution {
	return []Substitution{
		{Token: tokens.X, Value: core.FormatFloat(rec.X)},
		{Token: tokens.Y, Value: core.FormatFloat(rec.Y)},
		{Token: tokens.Z, Value: core.FormatFloat(rec.Z)},
		{Token: tokens.W, Value: core.FormatFloat(rec.Heading)},
		{Token: tokens.Time, Value: rec.Timestamp},
		{Token: tokens.Name, Value: rec.Label},
	}
}

// lineBreaks flattens CR/LF so a record always occupies one line.
var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// SingleLine replaces every line break in s with a space.
func SingleLine(s string) string {
	return lineBreaks.Replace(s)
}

// FormatLine applies subs to style in order. Empty tokens are skipped.
func FormatLine(style string, subs []Substitution) string {
	line := style
	for _, s := range subs {
		if s.Token == "" {
			continue
		}
		line = strings.ReplaceAll(line, s.Token, s.Value)
	}
	return line
}
