package events

import (
	"fmt"
	"strings"
)

// Mode classifies what kind of entity a worker monitors, and therefore
// which sinks may receive its events.
type Mode uint8

const (
	ModeMatch Mode = 1 << iota
	ModeLeague
)

func (m Mode) String() string {
	switch m {
	case ModeMatch:
		return "match"
	case ModeLeague:
		return "league"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseMode converts "match" / "league" (case-insensitive) to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "match", "team":
		return ModeMatch, nil
	case "league":
		return ModeLeague, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", s)
	}
}

// ModeSet is the capability set a sink declares. It only grows: there is
// no way to remove a mode once added.
type ModeSet struct {
	bits Mode
}

func NewModeSet(modes ...Mode) ModeSet {
	var s ModeSet
	for _, m := range modes {
		s = s.With(m)
	}
	return s
}

// With returns the union of s and m.
func (s ModeSet) With(m Mode) ModeSet {
	return ModeSet{bits: s.bits | m}
}

// Union returns the union of both sets.
func (s ModeSet) Union(o ModeSet) ModeSet {
	return ModeSet{bits: s.bits | o.bits}
}

func (s ModeSet) Has(m Mode) bool { return m != 0 && s.bits&m == m }

func (s ModeSet) Intersects(o ModeSet) bool { return s.bits&o.bits != 0 }

func (s ModeSet) Empty() bool { return s.bits == 0 }

func (s ModeSet) Modes() []Mode {
	var out []Mode
	for _, m := range []Mode{ModeMatch, ModeLeague} {
		if s.Has(m) {
			out = append(out, m)
		}
	}
	return out
}

func (s ModeSet) String() string {
	modes := s.Modes()
	parts := make([]string, len(modes))
	for i, m := range modes {
		parts[i] = m.String()
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// ParseModeSet parses a list like ["match", "league"]. An empty list yields
// the default capability of a sink, which is match-only.
func ParseModeSet(names []string) (ModeSet, error) {
	if len(names) == 0 {
		return NewModeSet(ModeMatch), nil
	}
	var s ModeSet
	for _, n := range names {
		m, err := ParseMode(n)
		if err != nil {
			return ModeSet{}, err
		}
		s = s.With(m)
	}
	return s, nil
}
