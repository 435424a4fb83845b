package workflow

import (
	"errors"
	"strings"

	"github.com/existflow/secureplan/internal/model"
)

// Outcome describes what a mutation did. Refusals are outcomes, not errors:
// the caller decides whether to surface them.
type Outcome int

const (
	OutcomeApplied    Outcome = iota // state changed and an activity was recorded
	OutcomeDenied                    // actor is not allowed to perform the mutation
	OutcomeOutOfRange                // move past todo/done or link index out of bounds
	OutcomeNoop                      // nothing to change
)

// Applied reports whether the mutation was persisted.
func (o Outcome) Applied() bool {
	return o == OutcomeApplied
}

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeDenied:
		return "denied"
	case OutcomeOutOfRange:
		return "out_of_range"
	case OutcomeNoop:
		return "noop"
	default:
		return "unknown"
	}
}

// Direction selects the neighbouring stage for a move.
type Direction string

const (
	Next Direction = "next"
	Prev Direction = "prev"
)

// ErrInvalidDirection is returned for anything other than next or prev.
var ErrInvalidDirection = errors.New("direction must be next or prev")

// ParseDirection parses a direction name case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Next:
		return Next, nil
	case Prev:
		return Prev, nil
	default:
		return "", ErrInvalidDirection
	}
}

// step returns the adjacent stage in the given direction.
func step(s model.Status, dir Direction) (model.Status, bool) {
	switch dir {
	case Next:
		return s.Next()
	case Prev:
		return s.Prev()
	default:
		return s, false
	}
}
