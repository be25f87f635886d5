package domain

import (
	"fmt"
	"math/rand/v2"
)

type BreakType int

const (
	CoffeeBreak BreakType = iota
	Lunch
	Meeting
	TechnicalIssue
)

// BreakTypes lists every break category in sampling order.
var BreakTypes = []BreakType{CoffeeBreak, Lunch, Meeting, TechnicalIssue}

var breakRanges = [...]struct {
	name     string
	min, max int
}{
	CoffeeBreak:    {"coffee", 15, 30},
	Lunch:          {"lunch", 60, 60},
	Meeting:        {"meeting", 30, 60},
	TechnicalIssue: {"technical_issue", 10, 45},
}

func (t BreakType) valid() bool { return t >= 0 && int(t) < len(breakRanges) }

func (t BreakType) String() string {
	if !t.valid() {
		return fmt.Sprintf("BreakType(%d)", int(t))
	}
	return breakRanges[t].name
}

// Range returns the inclusive duration bounds in minutes.
func (t BreakType) Range() (lo, hi int) {
	if !t.valid() {
		return 0, 0
	}
	r := breakRanges[t]
	return r.min, r.max
}

// Break is an interruption owned by one employee at a time. Duration is
// fixed once sampled; only Remaining shrinks as hours consume it.
type Break struct {
	Type      BreakType
	Duration  int
	Remaining int
	Active    bool
}

// SampleBreak draws a duration uniformly from the type's range.
func SampleBreak(t BreakType, rng *rand.Rand) *Break {
	lo, hi := t.Range()
	return NewBreak(t, lo+rng.IntN(hi-lo+1))
}

// NewBreak builds a break with an explicit duration.
func NewBreak(t BreakType, minutes int) *Break {
	return &Break{Type: t, Duration: minutes, Remaining: minutes}
}

// Consume takes up to budget minutes from the break. It reports the minutes
// used and whether the break is over.
func (b *Break) Consume(budget int) (used int, finished bool) {
	if b.Remaining > budget {
		b.Remaining -= budget
		return budget, false
	}
	used = b.Remaining
	b.Remaining = 0
	b.Active = false
	return used, true
}

func (b *Break) String() string {
	return fmt.Sprintf("%s (%s left of %s)", b.Type, FormatMinutes(b.Remaining), FormatMinutes(b.Duration))
}
