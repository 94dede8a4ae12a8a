// Package keys maps host key names to virtual-key codes.
package keys

import (
	"fmt"
	"strconv"
	"strings"
)

// Code is a virtual-key code as reported by the host.
type Code int

// None is the zero key; it never matches a press.
const None Code = 0

// Function keys commonly bound to the save action.
const (
	F5 Code = 116
	F6 Code = 117
	F7 Code = 118
	F8 Code = 119
)

var names = map[string]Code{
	"back":      8,
	"tab":       9,
	"enter":     13,
	"return":    13,
	"pause":     19,
	"capslock":  20,
	"escape":    27,
	"space":     32,
	"pageup":    33,
	"prior":     33,
	"pagedown":  34,
	"next":      34,
	"end":       35,
	"home":      36,
	"left":      37,
	"up":        38,
	"right":     39,
	"down":      40,
	"insert":    45,
	"delete":    46,
	"multiply":  106,
	"add":       107,
	"separator": 108,
	"subtract":  109,
	"decimal":   110,
	"divide":    111,
	"numlock":   144,
	"scroll":    145,
	"oemtilde":  192,
}

var reverse = func() map[Code]string {
	r := map[Code]string{
		8: "Back", 9: "Tab", 13: "Enter", 19: "Pause", 20: "CapsLock", 27: "Escape",
		32: "Space", 33: "PageUp", 34: "PageDown", 35: "End", 36: "Home",
		37: "Left", 38: "Up", 39: "Right", 40: "Down", 45: "Insert", 46: "Delete",
		106: "Multiply", 107: "Add", 108: "Separator", 109: "Subtract",
		110: "Decimal", 111: "Divide", 144: "NumLock", 145: "Scroll", 192: "Oemtilde",
	}
	for c := 'A'; c <= 'Z'; c++ {
		r[Code(c)] = string(c)
	}
	for d := 0; d <= 9; d++ {
		r[Code('0'+d)] = fmt.Sprintf("D%d", d)
		r[Code(96+d)] = fmt.Sprintf("NumPad%d", d)
	}
	for f := 1; f <= 24; f++ {
		r[Code(111+f)] = fmt.Sprintf("F%d", f)
	}
	return r
}()

// Parse accepts a key name ("F7", "NumPad5", "D1", "Insert", "K")
// or a decimal virtual-key code ("118"). Names are case-insensitive.
func Parse(s string) (Code, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return None, fmt.Errorf("empty key name")
	}

	if n, err := strconv.Atoi(name); err == nil {
		if n <= 0 || n > 254 {
			return None, fmt.Errorf("key code out of range: %d", n)
		}
		return Code(n), nil
	}

	if c, ok := names[name]; ok {
		return c, nil
	}

	switch {
	case len(name) == 1 && name[0] >= 'a' && name[0] <= 'z':
		return Code(name[0] - 'a' + 'A'), nil
	case len(name) == 2 && name[0] == 'd' && name[1] >= '0' && name[1] <= '9':
		return Code('0' + name[1] - '0'), nil
	case strings.HasPrefix(name, "numpad"):
		if d, err := strconv.Atoi(name[len("numpad"):]); err == nil && d >= 0 && d <= 9 {
			return Code(96 + d), nil
		}
	case strings.HasPrefix(name, "f"):
		if f, err := strconv.Atoi(name[1:]); err == nil && f >= 1 && f <= 24 {
			return Code(111 + f), nil
		}
	}

	return None, fmt.Errorf("unknown key: %q", s)
}

// String returns the canonical key name, or the numeric code if unnamed.
func (c Code) String() string {
	if name, ok := reverse[c]; ok {
		return name
	}
	return strconv.Itoa(int(c))
}
