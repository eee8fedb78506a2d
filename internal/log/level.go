package log

import (
	"log/slog"
	"strings"
)

// Level represents the severity of a log message
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelTable = [...]struct {
	name string
	slog slog.Level
}{
	LevelDebug: {"DEBUG", slog.LevelDebug},
	LevelInfo:  {"INFO", slog.LevelInfo},
	LevelWarn:  {"WARN", slog.LevelWarn},
	LevelError: {"ERROR", slog.LevelError},
}

func (l Level) valid() bool { return l >= LevelDebug && l <= LevelError }

func (l Level) String() string {
	if !l.valid() {
		return "UNKNOWN"
	}
	return levelTable[l].name
}

// ToSlogLevel converts l; unknown levels log at info.
func (l Level) ToSlogLevel() slog.Level {
	if !l.valid() {
		return slog.LevelInfo
	}
	return levelTable[l].slog
}

// ParseLevel reads a level name case-insensitively. "warning" is accepted
// for warn; anything unrecognized is info.
func ParseLevel(s string) Level {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "WARNING" {
		return LevelWarn
	}
	for l, e := range levelTable {
		if e.name == s {
			return Level(l)
		}
	}
	return LevelInfo
}

// UnmarshalText lets a Level be read straight from YAML or flags.
func (l *Level) UnmarshalText(text []byte) error {
	*l = ParseLevel(string(text))
	return nil
}

// MarshalText renders the level in lower case.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(l.String())), nil
}
