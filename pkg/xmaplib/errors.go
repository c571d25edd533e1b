package xmaplib

import "fmt"

// ConfigErrorKind enumerates the ways a mapping table can fail construction-time validation.
type ConfigErrorKind int

const (
	// InconsistentExclusivity means two mappings share a button VK but disagree on exclusivity group.
	InconsistentExclusivity ConfigErrorKind = iota
	// InvalidRepeatPolicy means a mapping sets both UsesInfiniteRepeat and SendsFirstRepeatOnly.
	InvalidRepeatPolicy
)

func (k ConfigErrorKind) String() string {
	switch k {
	case InconsistentExclusivity:
		return "inconsistent_exclusivity"
	case InvalidRepeatPolicy:
		return "invalid_repeat_policy"
	default:
		return "unknown"
	}
}

// ConfigError is returned from New when a mapping table fails validation.
// Translator construction is the only operation that can fail; per-tick
// translation is total on a successfully constructed translator.
type ConfigError struct {
	Kind    ConfigErrorKind
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("xmaplib: %s: %s", e.Kind, e.Message)
}

func newInconsistentExclusivityError(buttonVK uint16) *ConfigError {
	return &ConfigError{
		Kind:    InconsistentExclusivity,
		Message: fmt.Sprintf("button_vk %d maps to more than one exclusivity group", buttonVK),
	}
}

func newInvalidRepeatPolicyError(buttonVK uint16) *ConfigError {
	return &ConfigError{
		Kind:    InvalidRepeatPolicy,
		Message: fmt.Sprintf("button_vk %d sets both uses_infinite_repeat and sends_first_repeat_only", buttonVK),
	}
}
