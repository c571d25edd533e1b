package xmaplib

import "time"

// Phase is a mapping's position in its state machine.
type Phase int

const (
	// Initial is the sole entry and sole terminal state across ticks.
	Initial Phase = iota
	Down
	Repeat
	Up
)

func (p Phase) String() string {
	switch p {
	case Initial:
		return "initial"
	case Down:
		return "down"
	case Repeat:
		return "repeat"
	case Up:
		return "up"
	default:
		return "unknown"
	}
}

// MappingState is the mutable part of a Mapping: its current phase and the
// two timers that gate repeat/reset eligibility.
type MappingState struct {
	phase Phase

	// RepeatTimer: elapsed means the next repeat is permitted (Down/Repeat),
	// or that a reset to Initial is permitted (Up).
	RepeatTimer *Timer
	// FirstRepeatDelay: elapsed means the first repeat after Down is permitted.
	FirstRepeatDelay *Timer
}

// NewMappingState builds a MappingState in Initial with timers armed to the
// given durations (NewMapping passes the config's custom delays where set and
// the package defaults otherwise).
func NewMappingState(repeatDelay, firstRepeatDelay time.Duration) *MappingState {
	return &MappingState{
		phase:            Initial,
		RepeatTimer:      NewTimer(repeatDelay),
		FirstRepeatDelay: NewTimer(firstRepeatDelay),
	}
}

func (s *MappingState) IsInitial() bool { return s.phase == Initial }
func (s *MappingState) IsDown() bool { return s.phase == Down }
func (s *MappingState) IsRepeating() bool { return s.phase == Repeat }
func (s *MappingState) IsUp() bool { return s.phase == Up }

func (s *MappingState) SetInitial() { s.phase = Initial }
func (s *MappingState) SetDown() { s.phase = Down }
func (s *MappingState) SetRepeat() { s.phase = Repeat }
func (s *MappingState) SetUp() { s.phase = Up }

// GetPhase returns the current phase, mostly useful for tests and introspection.
func (s *MappingState) GetPhase() Phase { return s.phase }
