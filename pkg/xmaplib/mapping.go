package xmaplib

import "time"

const (
	// DefaultRepeatDelay is the interval between successive key-repeat events
	// once a mapping with UsesInfiniteRepeat is in the Repeat phase.
	DefaultRepeatDelay = 33 * time.Millisecond
	// DefaultFirstRepeatDelay is the pause after the initial Down before the
	// first repeat (or the single repeat, for SendsFirstRepeatOnly mappings) fires.
	DefaultFirstRepeatDelay = 500 * time.Millisecond
)

// ActionFn is a callback invoked on a phase transition. A nil ActionFn is a
// no-op; the state transition still occurs.
type ActionFn func()

// MappingConfig is the immutable configuration of a single controller
// button to action mapping.
type MappingConfig struct {
	ButtonVK uint16

	// UsesInfiniteRepeat: if true, repeat fires indefinitely while Down/Repeat.
	UsesInfiniteRepeat bool
	// SendsFirstRepeatOnly: if true, fire exactly one repeat after
	// FirstRepeatDelay elapses, then stop repeating (the mapping moves to
	// Repeat and stays there until released).
	SendsFirstRepeatOnly bool

	// ExclusivityGroup: if non-nil, at most one mapping in this group may be
	// Down/Repeat at a time (see OvertakingPolicy).
	ExclusivityGroup *int

	// CustomRepeatDelay/CustomFirstRepeatDelay override the package defaults
	// for this mapping's timers.
	CustomRepeatDelay      *time.Duration
	CustomFirstRepeatDelay *time.Duration

	OnDown   ActionFn
	OnUp     ActionFn
	OnRepeat ActionFn
	OnReset  ActionFn
}

// validate rejects a configuration combination the spec declares ambiguous:
// infinite-repeat and single-first-repeat-only set simultaneously.
func (c MappingConfig) validate() error {
	if c.UsesInfiniteRepeat && c.SendsFirstRepeatOnly {
		return newInvalidRepeatPolicyError(c.ButtonVK)
	}
	return nil
}

func (c MappingConfig) repeatDelay() time.Duration {
	if c.CustomRepeatDelay != nil {
		return *c.CustomRepeatDelay
	}
	return DefaultRepeatDelay
}

func (c MappingConfig) firstRepeatDelay() time.Duration {
	if c.CustomFirstRepeatDelay != nil {
		return *c.CustomFirstRepeatDelay
	}
	return DefaultFirstRepeatDelay
}

// Mapping pairs an immutable MappingConfig with its mutable MappingState.
// A KeyboardActionTranslator builds one Mapping per MappingConfig passed to
// New; thereafter its config never changes, and its state mutates only via
// TranslationResult.Advance thunks.
type Mapping struct {
	Config MappingConfig
	State  *MappingState
}

// NewMapping builds a Mapping with freshly-initialized timers derived from
// the config's (possibly custom) delays.
func NewMapping(cfg MappingConfig) Mapping {
	return Mapping{
		Config: cfg,
		State:  NewMappingState(cfg.repeatDelay(), cfg.firstRepeatDelay()),
	}
}
