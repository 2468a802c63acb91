package extension

import (
	"fmt"
	"strings"
)

// Level is how broadly an extension applies. Narrower extensions are asked
// to parse a path before broader ones.
type Level int

const (
	Tiny Level = iota
	Small
	Medium
	Big
	Huge
)

// Levels lists every level from narrowest to broadest.
var Levels = [...]Level{Tiny, Small, Medium, Big, Huge}

var levelNames = [...]string{"tiny", "small", "medium", "big", "huge"}

// Valid reports whether l is one of the defined levels.
func (l Level) Valid() bool {
	return l >= Tiny && l <= Huge
}

func (l Level) String() string {
	if !l.Valid() {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel maps a level name (case-insensitive) back to a Level.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(i), nil
		}
	}
	return 0, fmt.Errorf("unknown applicability level: %q", s)
}
