package color

import (
	"fmt"
	"hash/fnv"
	"os"
	"strconv"
	"strings"
)

const (
	Reset = "\033[0m"
	Bold  = "\033[1m"
	Dim   = "\033[2m"
)

// Palette for free-text labels such as task tags.
var tagColors = []string{
	"\033[91m", // bright red
	"\033[92m", // bright green
	"\033[93m", // bright yellow
	"\033[94m", // bright blue
	"\033[95m", // bright magenta
	"\033[96m", // bright cyan
}

// Color256 returns the escape sequence for a 256-color foreground.
func Color256(code int) string {
	return fmt.Sprintf("\033[38;5;%dm", code)
}

// Enabled reports whether the terminal should receive ANSI sequences.
// NO_COLOR wins over FORCE_COLOR, which wins over TERM detection.
func Enabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	term := os.Getenv("TERM")
	if term == "" || term == "dumb" || os.Getenv("CI") != "" {
		return false
	}
	colorTerm := os.Getenv("COLORTERM")
	if colorTerm == "truecolor" || colorTerm == "24bit" {
		return true
	}
	for _, hint := range []string{"color", "ansi", "xterm", "screen"} {
		if strings.Contains(term, hint) {
			return true
		}
	}
	return false
}

// Colorize wraps text in the escape sequence when color output is enabled.
func Colorize(text, seq string) string {
	if seq == "" || !Enabled() {
		return text
	}
	return seq + text + Reset
}

// FromHex maps a "#rrggbb" display color to the nearest xterm 256-color
// cube entry. Malformed input yields an empty sequence.
func FromHex(hex string) string {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return ""
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return ""
	}
	r, g, b := int(v>>16&0xff), int(v>>8&0xff), int(v&0xff)
	return Color256(16 + 36*cubeIndex(r) + 6*cubeIndex(g) + cubeIndex(b))
}

// cubeIndex maps 0-255 onto the six levels 0,95,135,175,215,255.
func cubeIndex(c int) int {
	if c < 48 {
		return 0
	}
	if c < 115 {
		return 1
	}
	return (c - 35) / 40
}

// TagColor returns a stable palette color for the given label.
func TagColor(label string) string {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(label)))
	return tagColors[int(h.Sum32()%uint32(len(tagColors)))]
}
